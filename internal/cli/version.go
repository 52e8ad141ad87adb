package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asteroid-belt/partmatch/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print build information",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfigAnnotation: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Full())
	},
}
