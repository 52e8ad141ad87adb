// Package cli provides the command-line interface for partmatch.
package cli

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/asteroid-belt/partmatch/internal/config"
	"github.com/asteroid-belt/partmatch/internal/log"
	"github.com/asteroid-belt/partmatch/internal/matcherr"
	"github.com/asteroid-belt/partmatch/internal/telemetry"
	"github.com/asteroid-belt/partmatch/pkg/version"
)

const skipConfigAnnotation = "skip-config"

var (
	telemetryClient = telemetry.New(nil, true)
	ownsTelemetry   bool

	commandStartTime time.Time

	configPath string
	appConfig  *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "partmatch",
	Short: "Semantic product matching against a parts catalog",
	Long: `Semantic product matching against a parts catalog

partmatch embeds every product of a catalog into a versioned vector
index and ranks catalog products against free-text queries such as
lines from a purchase order.

  partmatch index build catalog.json
  partmatch search "DuroSeal W&H End Seals Miraflex SDS 007"

Telemetry:
  Telemetry is anonymous and never includes query text or catalog data.

  Opt-out with:
  	PARTMATCH_TELEMETRY_DISABLED=true`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		commandStartTime = time.Now()
		if cmd.Annotations[skipConfigAnnotation] == "true" {
			return nil
		}
		return loadApp(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		durationMs := time.Since(commandStartTime).Milliseconds()
		hasFlags := cmd.Flags().NFlag() > 0
		telemetryClient.TrackCLICommandExecuted(cmd.CommandPath(), hasFlags, durationMs)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: $XDG_DATA_HOME/partmatch/config.yaml)")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(pairsCmd)
	rootCmd.AddCommand(finetuneCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the CLI with fang enhancements. A nil client makes the CLI
// create its own from the loaded configuration.
func Execute(ctx context.Context, tc telemetry.Client) error {
	if tc == nil {
		ownsTelemetry = true
	} else {
		telemetryClient = tc
	}
	defer func() {
		if ownsTelemetry {
			telemetryClient.Close()
		}
		_ = log.Close()
	}()

	return fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(version.Version),
		fang.WithCommit(version.Commit),
	)
}

// loadApp loads configuration, starts logging and, when the CLI owns it,
// the telemetry client.
func loadApp(cmd *cobra.Command) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return trackCLIError(cmd.Name(), err)
	}
	if err := log.Init(cfg.Log.Dir, cfg.Log.Level); err != nil {
		return trackCLIError(cmd.Name(), err)
	}
	if ownsTelemetry {
		telemetryClient = telemetry.New(telemetry.NewFileTrackingID(cfg.BaseDir), cfg.Telemetry.Disabled)
		telemetryClient.TrackAppStarted("cli")
	}
	appConfig = cfg
	return nil
}

// trackCLIError wraps an error with telemetry tracking.
// Call this before returning errors from CLI commands.
func trackCLIError(cmdName string, err error) error {
	if err == nil {
		return nil
	}
	telemetryClient.TrackCLIError(cmdName, classifyError(err))
	return err
}

// classifyError determines the error type for telemetry.
func classifyError(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, os.ErrNotExist):
		return "not_found"
	case errors.Is(err, os.ErrPermission):
		return "permission"
	default:
		return matcherr.KindName(err)
	}
}
