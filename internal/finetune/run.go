package finetune

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/asteroid-belt/partmatch/internal/embedding"
	"github.com/asteroid-belt/partmatch/internal/models"
)

// Run trains on pairs and persists the resulting model to modelDir.
func Run(ctx context.Context, base embedding.Provider, pairs []models.TrainingPair, opts Options, modelDir string, logger zerolog.Logger) (*embedding.Adapter, *Report, error) {
	return New(base, logger).Run(ctx, pairs, opts, modelDir)
}

// Run is Train followed by saving the model to modelDir. The previous
// model in modelDir is only replaced once training succeeded.
func (t *Trainer) Run(ctx context.Context, pairs []models.TrainingPair, opts Options, modelDir string) (*embedding.Adapter, *Report, error) {
	adapter, report, err := t.Train(ctx, pairs, opts)
	if err != nil {
		return nil, nil, err
	}
	info := embedding.TrainingInfo{
		Epochs:       report.Epochs,
		BatchSize:    opts.BatchSize,
		LearningRate: opts.LearningRate,
		Pairs:        report.Pairs,
		FinalLoss:    report.FinalLoss,
		Device:       string(report.Device),
	}
	if err := embedding.SaveAdapter(modelDir, adapter, info); err != nil {
		return nil, nil, fmt.Errorf("save model: %w", err)
	}
	t.logger.Info().Str("dir", modelDir).Str("model", adapter.ModelID()).Msg("fine-tuned model saved")
	return adapter, report, nil
}
