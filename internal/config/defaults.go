package config

import (
	"github.com/asteroid-belt/partmatch/internal/embedding"
	"github.com/asteroid-belt/partmatch/internal/finetune"
	"github.com/asteroid-belt/partmatch/internal/pairs"
	"github.com/asteroid-belt/partmatch/internal/search"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	train := finetune.DefaultOptions()
	sample := pairs.DefaultConfig()
	query := search.DefaultConfig()

	return &Config{
		BaseDir: DefaultBaseDir(),

		Embedding: EmbeddingConfig{
			Provider:  embedding.ProviderHash,
			Dimension: embedding.DefaultHashDimension,
			Model:     "text-embedding-3-small",
			BatchSize: 100,
			RateLimit: 3000,
		},

		Cache: CacheConfig{
			Backend:    embedding.CacheMemory,
			MaxEntries: 10000,
		},

		Index: IndexConfig{BatchSize: 64},

		Search: SearchConfig{
			TopK:        query.TopK,
			MinScore:    query.MinScore,
			AutoApprove: query.Policy.AutoApprove,
			Review:      query.Policy.Review,
		},

		Pairs: PairsConfig{
			PositiveCap:    sample.PositiveCap,
			NegativeRatio:  sample.NegativeRatio,
			SubtypeSampleA: sample.SubtypeSampleA,
			SubtypeSampleB: sample.SubtypeSampleB,
		},

		Training: TrainingConfig{
			Epochs:         train.Epochs,
			BatchSize:      train.BatchSize,
			LearningRate:   train.LearningRate,
			Regularization: train.Regularization,
			Device:         string(train.Device),
		},

		Log: LogConfig{Level: "info"},
	}
}
