package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/asteroid-belt/partmatch/internal/embedding"
	"github.com/asteroid-belt/partmatch/internal/finetune"
	"github.com/asteroid-belt/partmatch/internal/log"
	"github.com/asteroid-belt/partmatch/internal/pairs"
)

var (
	finetuneEpochs    int
	finetuneBatchSize int
	finetuneDevice    string
	finetuneSeed      int64
)

var finetuneCmd = &cobra.Command{
	Use:   "finetune [catalog.json]",
	Short: "Fine-tune the embedding model on a catalog",
	Long: `Generate training pairs from a catalog, fine-tune the base embedding
model on them and save the result to the model directory.

The saved model has a new model ID, so the index must be rebuilt
afterwards with 'partmatch index rebuild'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFinetune,
}

func init() {
	finetuneCmd.Flags().IntVar(&finetuneEpochs, "epochs", 0, "training epochs (default from config)")
	finetuneCmd.Flags().IntVar(&finetuneBatchSize, "batch-size", 0, "pairs per gradient step (default from config)")
	finetuneCmd.Flags().StringVar(&finetuneDevice, "device", "", "cpu or cpu-parallel (default from config)")
	finetuneCmd.Flags().Int64Var(&finetuneSeed, "seed", 0, "seed for pair sampling and shuffling")
}

func runFinetune(cmd *cobra.Command, args []string) error {
	opts, err := appConfig.TrainingOptions()
	if err != nil {
		return trackCLIError("finetune", err)
	}
	if cmd.Flags().Changed("epochs") {
		opts.Epochs = finetuneEpochs
	}
	if cmd.Flags().Changed("batch-size") {
		opts.BatchSize = finetuneBatchSize
	}
	if cmd.Flags().Changed("device") {
		if opts.Device, err = finetune.ParseDevice(finetuneDevice); err != nil {
			return trackCLIError("finetune", err)
		}
	}
	pairsCfg := appConfig.PairsOptions()
	if cmd.Flags().Changed("seed") {
		opts.Seed = finetuneSeed
		pairsCfg.Seed = finetuneSeed
	}

	products, _, err := loadCatalog(args)
	if err != nil {
		return trackCLIError("finetune", err)
	}
	logger := log.Get()
	generated, err := pairs.New(pairsCfg, logger).Generate(products)
	if err != nil {
		return trackCLIError("finetune", err)
	}
	telemetryClient.TrackPairsGenerated(generated.Stats.Products, generated.Stats.Total)

	// Training always starts from the base model, never from a previous
	// fine-tuned one.
	base, err := embedding.NewBase(appConfig.EmbeddingOptions(), logger)
	if err != nil {
		return trackCLIError("finetune", err)
	}

	stderr := cmd.ErrOrStderr()
	progress := NewProgressBar(max(opts.Epochs, 1), 30)
	trainer := finetune.New(base, logger)
	trainer.OnEpoch(func(epoch, total int, loss float64) {
		progress.Update(epoch, fmt.Sprintf("loss %.4f", loss))
		progress.Draw(stderr)
	})

	start := time.Now()
	adapter, report, err := trainer.Run(cmd.Context(), generated.Pairs, opts, appConfig.Embedding.ModelDir)
	progress.Done(stderr)
	if err != nil {
		return trackCLIError("finetune", err)
	}
	telemetryClient.TrackFineTuneCompleted(report.Pairs, report.Epochs, string(report.Device), time.Since(start).Milliseconds())

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Trained on %d pairs for %d epochs (%s)\n", report.Pairs, report.Epochs, report.Device)
	_, _ = fmt.Fprintf(out, "Loss: %.4f -> %.4f\n", report.InitialLoss, report.FinalLoss)
	_, _ = fmt.Fprintf(out, "Model %s saved to %s\n", adapter.ModelID(), appConfig.Embedding.ModelDir)
	_, _ = fmt.Fprintln(out, "Run 'partmatch index rebuild' to index the catalog with the new model.")
	return nil
}
