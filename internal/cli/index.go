package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/asteroid-belt/partmatch/internal/vector"
)

var indexJSON bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and inspect the vector index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build [catalog.json]",
	Short: "Build the index from a catalog",
	Long: `Encode every catalog product and publish a new index.

Fails if an index is already published; use 'index rebuild' to replace it.
The catalog defaults to the one set in the config file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndexBuild(cmd, args, false)
	},
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild [catalog.json]",
	Short: "Replace the index with one built from a catalog",
	Long: `Encode every catalog product into a new index version and publish it.

Run this after fine-tuning: an index built with another model is
refused at load time.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndexBuild(cmd, args, true)
	},
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the published index",
	Args:  cobra.NoArgs,
	RunE:  runIndexStats,
}

func init() {
	indexStatsCmd.Flags().BoolVar(&indexJSON, "json", false, "print stats as JSON")

	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexRebuildCmd)
	indexCmd.AddCommand(indexStatsCmd)
}

func runIndexBuild(cmd *cobra.Command, args []string, rebuild bool) error {
	name := "index " + cmd.Name()

	products, path, err := loadCatalog(args)
	if err != nil {
		return trackCLIError(name, err)
	}
	ix, err := openIndex()
	if err != nil {
		return trackCLIError(name, err)
	}

	progress := NewProgressBar(len(products), 30)
	stderr := cmd.ErrOrStderr()
	ix.OnProgress(func(done, total int) {
		progress.Update(done, "encoding")
		progress.Draw(stderr)
	})

	start := time.Now()
	if rebuild {
		err = ix.Rebuild(cmd.Context(), products)
	} else {
		err = ix.Build(cmd.Context(), products)
	}
	progress.Done(stderr)
	if err != nil {
		return trackCLIError(name, err)
	}
	durationMs := time.Since(start).Milliseconds()

	stats := ix.Stats()
	telemetryClient.TrackIndexBuilt(stats.Rows, stats.ModelID, rebuild, durationMs)

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d products from %s\n", stats.Rows, path)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\nModel: %s\n", stats.Version, stats.ModelID)
	return nil
}

func runIndexStats(cmd *cobra.Command, args []string) error {
	ix, err := openIndex()
	if err != nil {
		return trackCLIError("index stats", err)
	}
	if err := ix.Load(cmd.Context()); err != nil {
		return trackCLIError("index stats", err)
	}
	stats := ix.Stats()

	out := cmd.OutOrStdout()
	if indexJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	_, _ = fmt.Fprint(out, renderStats(stats))
	return nil
}

func renderStats(s vector.Stats) string {
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B6B6B")).Width(11)
	value := lipgloss.NewStyle().Bold(true)

	rows := []struct{ k, v string }{
		{"State", s.State.String()},
		{"Directory", s.Dir},
		{"Version", s.Version},
		{"Model", s.ModelID},
		{"Dimension", fmt.Sprintf("%d", s.Dimension)},
		{"Products", fmt.Sprintf("%d", s.Rows)},
		{"Created", s.CreatedAt.Local().Format(time.RFC3339)},
	}
	var out string
	for _, r := range rows {
		out += label.Render(r.k) + value.Render(r.v) + "\n"
	}
	return out
}
