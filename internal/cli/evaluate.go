package cli

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/asteroid-belt/partmatch/internal/search"
)

var (
	evaluateTopK int
	evaluateJSON bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <queries.json>",
	Short: "Measure retrieval quality on labelled queries",
	Long: `Run labelled queries against the index and report Hit@1, Hit@K and MRR.

The queries file is a JSON array of objects with the expected product
code and the query text:

  [{"code": "SDS007H", "text": "DuroSeal W&H End Seals Miraflex SDS 007"}]`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().IntVarP(&evaluateTopK, "top-k", "k", 5, "cut-off K for Hit@K")
	evaluateCmd.Flags().BoolVar(&evaluateJSON, "json", false, "print the report as JSON")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	queries, err := search.LoadEvalQueries(args[0])
	if err != nil {
		return trackCLIError("evaluate", err)
	}
	svc, err := openSearch(cmd.Context())
	if err != nil {
		return trackCLIError("evaluate", err)
	}
	report, err := svc.Evaluate(cmd.Context(), queries, evaluateTopK)
	if err != nil {
		return trackCLIError("evaluate", err)
	}
	telemetryClient.TrackEvaluationRun(len(queries), report.HitAt1, report.MRR)

	out := cmd.OutOrStdout()
	if evaluateJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	md := report.Markdown()
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err == nil {
		if rendered, rerr := renderer.Render(md); rerr == nil {
			md = rendered
		}
	}
	_, _ = fmt.Fprint(out, md)
	return nil
}
