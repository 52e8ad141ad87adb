package embedding

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Provider names.
const (
	ProviderHash   = "hash"
	ProviderOpenAI = "openai"
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config selects and configures the embedding model.
type Config struct {
	Provider  string
	Dimension int
	OpenAI    OpenAIConfig

	// ModelDir holds the fine-tuned artifact. When it contains a model,
	// Open returns the fine-tuned adapter instead of the base model.
	ModelDir string

	Cache CacheConfig
}

// CacheConfig configures the embedding cache in front of the base model.
type CacheConfig struct {
	Backend    string
	MaxEntries int
	Redis      RedisConfig
}

// NewBase creates the configured base model, wrapped in the configured cache.
func NewBase(cfg Config, logger zerolog.Logger) (Provider, error) {
	var base Provider
	switch cfg.Provider {
	case "", ProviderHash:
		base = NewHash(cfg.Dimension)
	case ProviderOpenAI:
		p, err := NewOpenAI(cfg.OpenAI)
		if err != nil {
			return nil, err
		}
		base = p
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	switch cfg.Cache.Backend {
	case "", CacheNone:
		return base, nil
	case CacheMemory:
		return NewCached(base, NewMemoryCache(cfg.Cache.MaxEntries), logger), nil
	case CacheRedis:
		rc, err := NewRedisCache(cfg.Cache.Redis, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("redis cache unavailable, using memory cache")
			return NewCached(base, NewMemoryCache(cfg.Cache.MaxEntries), logger), nil
		}
		return NewCached(base, rc, logger), nil
	default:
		return nil, fmt.Errorf("unknown embedding cache backend %q", cfg.Cache.Backend)
	}
}

// Open returns the model used for indexing and search: the fine-tuned
// adapter when ModelDir holds an artifact, otherwise the base model.
func Open(cfg Config, logger zerolog.Logger) (Provider, error) {
	base, err := NewBase(cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.ModelDir == "" || !ArtifactExists(cfg.ModelDir) {
		logger.Debug().Str("model", base.ModelID()).Msg("using base embedding model")
		return base, nil
	}
	adapter, err := LoadAdapter(cfg.ModelDir, base)
	if err != nil {
		return nil, fmt.Errorf("load fine-tuned model: %w", err)
	}
	logger.Debug().Str("model", adapter.ModelID()).Msg("using fine-tuned embedding model")
	return adapter, nil
}
