package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/asteroid-belt/partmatch/internal/search"
)

var (
	searchTopK     int
	searchMinScore float32
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Rank catalog products against a query",
	Long: `Rank catalog products against a free-text query.

Arguments are joined with spaces, so quoting the query is optional.
Scores are cosine similarities; results below --min-score are dropped.
Each result is labelled with the decision tier its score falls into.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.Flags().Float32Var(&searchMinScore, "min-score", 0, "minimum score in [0, 1] (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print results as JSON")
}

// searchResult is the JSON shape of a CLI result.
type searchResult struct {
	search.Candidate
	Decision search.Decision `json:"decision"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	svc, err := openSearch(cmd.Context())
	if err != nil {
		return trackCLIError("search", err)
	}

	cfg := svc.Config()
	topK := cfg.TopK
	if cmd.Flags().Changed("top-k") {
		topK = searchTopK
	}
	minScore := cfg.MinScore
	if cmd.Flags().Changed("min-score") {
		minScore = searchMinScore
	}

	query := strings.Join(args, " ")
	candidates, err := svc.Search(cmd.Context(), query, topK, minScore)
	if err != nil {
		return trackCLIError("search", err)
	}
	telemetryClient.TrackSearchPerformed(len(candidates), topK, "cli")

	out := cmd.OutOrStdout()
	if searchJSON {
		results := make([]searchResult, len(candidates))
		for i, c := range candidates {
			results[i] = searchResult{Candidate: c, Decision: search.Decide(c.Score, cfg.Policy)}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	printCandidates(out, candidates, cfg.Policy)
	return nil
}

var decisionColors = map[search.Decision]lipgloss.Color{
	search.DecisionAuto:   lipgloss.Color("#10B981"),
	search.DecisionReview: lipgloss.Color("#F59E0B"),
	search.DecisionManual: lipgloss.Color("#EF4444"),
}

func printCandidates(w io.Writer, candidates []search.Candidate, policy search.Policy) {
	if len(candidates) == 0 {
		_, _ = fmt.Fprintln(w, "No matching products.")
		return
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B6B6B"))
	code := lipgloss.NewStyle().Bold(true)

	for i, c := range candidates {
		decision := search.Decide(c.Score, policy)
		score := lipgloss.NewStyle().Foreground(decisionColors[decision]).Bold(true)

		line := fmt.Sprintf("%2d. %s  %s  %s",
			i+1,
			score.Render(fmt.Sprintf("%.3f", c.Score)),
			code.Render(c.Product.Code),
			c.Product.Name)
		if c.Method == search.MethodSemanticCode {
			line += dim.Render("  [code]")
		}
		_, _ = fmt.Fprintln(w, line)
		_, _ = fmt.Fprintln(w, dim.Render(fmt.Sprintf("    row %d, %s", c.Product.Row, decision)))
	}
}
