package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/asteroid-belt/partmatch/internal/log"
	"github.com/asteroid-belt/partmatch/internal/models"
	"github.com/asteroid-belt/partmatch/internal/pairs"
)

var pairsOutput string

var pairsCmd = &cobra.Command{
	Use:   "pairs [catalog.json]",
	Short: "Generate fine-tuning pairs from a catalog",
	Long: `Generate labelled text pairs from a catalog and write them as JSON lines.

Positives pair products of the same kind with similar dimensions and
materials; hard negatives pair products across categories and sub-types;
augmented pairs tie each product to variants of its own name.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPairs,
}

func init() {
	pairsCmd.Flags().StringVarP(&pairsOutput, "output", "o", "", "write pairs to a file instead of stdout")
}

func runPairs(cmd *cobra.Command, args []string) error {
	products, _, err := loadCatalog(args)
	if err != nil {
		return trackCLIError("pairs", err)
	}
	result, err := pairs.New(appConfig.PairsOptions(), log.Get()).Generate(products)
	if err != nil {
		return trackCLIError("pairs", err)
	}
	telemetryClient.TrackPairsGenerated(result.Stats.Products, result.Stats.Total)

	out := cmd.OutOrStdout()
	if pairsOutput != "" {
		f, err := os.Create(pairsOutput)
		if err != nil {
			return trackCLIError("pairs", fmt.Errorf("create %s: %w", pairsOutput, err))
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	if err := writePairs(out, result.Pairs); err != nil {
		return trackCLIError("pairs", err)
	}

	s := result.Stats
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(),
		"%d pairs from %d products: %d positive, %d category negative, %d sub-type negative, %d augmented\n",
		s.Total, s.Products, s.Positives, s.CategoryNegatives, s.SubtypeNegatives, s.Augmented)
	return nil
}

// writePairs writes one JSON object per line.
func writePairs(w io.Writer, ps []models.TrainingPair) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, p := range ps {
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("write pair: %w", err)
		}
	}
	return bw.Flush()
}
