// Package config handles application configuration management.
//
// Settings are layered: built-in defaults, then the YAML config file, then
// environment variables (a .env file in the working directory is loaded
// first and never overrides variables already set).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/asteroid-belt/partmatch/internal/embedding"
	"github.com/asteroid-belt/partmatch/internal/finetune"
	"github.com/asteroid-belt/partmatch/internal/matcherr"
	"github.com/asteroid-belt/partmatch/internal/pairs"
	"github.com/asteroid-belt/partmatch/internal/search"
	"github.com/asteroid-belt/partmatch/internal/vector"
)

// Config holds all application configuration.
type Config struct {
	// Base directory for all partmatch data ($XDG_DATA_HOME/partmatch)
	BaseDir string `yaml:"-"`

	// Catalog is the default catalog JSON file.
	Catalog string `yaml:"catalog"`

	Embedding EmbeddingConfig `yaml:"embedding"`
	Cache     CacheConfig     `yaml:"cache"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Pairs     PairsConfig     `yaml:"pairs"`
	Training  TrainingConfig  `yaml:"training"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EmbeddingConfig selects the base embedding model.
type EmbeddingConfig struct {
	// Provider is "hash" (offline) or "openai".
	Provider  string `yaml:"provider"`
	Dimension int    `yaml:"dimension"`
	// OpenAI settings. The API key is only read from OPENAI_API_KEY.
	Model     string `yaml:"model"`
	APIKey    string `yaml:"-"`
	BaseURL   string `yaml:"base_url"`
	BatchSize int    `yaml:"batch_size"`
	RateLimit int    `yaml:"rate_limit"`
	// ModelDir holds the fine-tuned model (default: <base>/model).
	ModelDir string `yaml:"model_dir"`
}

// CacheConfig configures the embedding cache.
type CacheConfig struct {
	// Backend is "none", "memory" or "redis".
	Backend    string      `yaml:"backend"`
	MaxEntries int         `yaml:"max_entries"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"-"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// IndexConfig holds vector index settings.
type IndexConfig struct {
	// Dir is the index root (default: <base>/index).
	Dir       string `yaml:"dir"`
	BatchSize int    `yaml:"batch_size"`
	Compress  bool   `yaml:"compress"`
}

// SearchConfig holds query defaults and decision thresholds.
type SearchConfig struct {
	TopK        int     `yaml:"top_k"`
	MinScore    float32 `yaml:"min_score"`
	AutoApprove float32 `yaml:"auto_approve"`
	Review      float32 `yaml:"review"`
}

// PairsConfig holds training pair sampling settings.
type PairsConfig struct {
	PositiveCap    int     `yaml:"positive_cap"`
	NegativeRatio  float64 `yaml:"negative_ratio"`
	SubtypeSampleA int     `yaml:"subtype_sample_a"`
	SubtypeSampleB int     `yaml:"subtype_sample_b"`
	Seed           int64   `yaml:"seed"`
}

// TrainingConfig holds fine-tuning settings.
type TrainingConfig struct {
	Epochs         int     `yaml:"epochs"`
	BatchSize      int     `yaml:"batch_size"`
	LearningRate   float64 `yaml:"learning_rate"`
	Regularization float64 `yaml:"regularization"`
	Device         string  `yaml:"device"`
	Workers        int     `yaml:"workers"`
	Seed           int64   `yaml:"seed"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	// Dir holds partmatch.log (default: <base>/logs).
	Dir string `yaml:"dir"`
}

// TelemetryConfig holds anonymous usage tracking settings.
type TelemetryConfig struct {
	Disabled bool `yaml:"disabled"`
}

// Load builds the configuration. path names a YAML file; when empty,
// <base>/config.yaml is used if it exists.
func Load(path string) (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if v := os.Getenv("PARTMATCH_HOME"); v != "" {
		cfg.BaseDir = v
	}

	explicit := path != ""
	if !explicit {
		path = GetPaths(cfg).Config
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	cfg.resolveDirs()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ensureDirectories(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return matcherr.WrapErr(matcherr.ErrConfiguration, "read config file", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return matcherr.WrapErr(matcherr.ErrConfiguration, "parse config file "+path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PARTMATCH_CATALOG"); v != "" {
		cfg.Catalog = v
	}
	if v := os.Getenv("PARTMATCH_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("PARTMATCH_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("PARTMATCH_CACHE"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
		if os.Getenv("PARTMATCH_CACHE") == "" {
			cfg.Cache.Backend = embedding.CacheRedis
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.Redis.Password = v
	}
	if v := os.Getenv("PARTMATCH_DEVICE"); v != "" {
		cfg.Training.Device = v
	}
	if v := os.Getenv("PARTMATCH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PARTMATCH_TELEMETRY_DISABLED"); v != "" {
		if disabled, err := strconv.ParseBool(v); err == nil {
			cfg.Telemetry.Disabled = disabled
		}
	}
}

func (c *Config) resolveDirs() {
	paths := GetPaths(c)
	if c.Index.Dir == "" {
		c.Index.Dir = paths.Index
	}
	if c.Embedding.ModelDir == "" {
		c.Embedding.ModelDir = paths.Model
	}
	if c.Log.Dir == "" {
		c.Log.Dir = paths.Logs
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case embedding.ProviderHash, embedding.ProviderOpenAI:
	default:
		return matcherr.Wrapf(matcherr.ErrConfiguration, "invalid embedding provider: %q", c.Embedding.Provider)
	}
	if c.Embedding.Provider == embedding.ProviderOpenAI && c.Embedding.APIKey == "" {
		return matcherr.Wrap(matcherr.ErrConfiguration, "OPENAI_API_KEY required for the openai embedding provider")
	}
	switch c.Cache.Backend {
	case embedding.CacheNone, embedding.CacheMemory, embedding.CacheRedis:
	default:
		return matcherr.Wrapf(matcherr.ErrConfiguration, "invalid cache backend: %q", c.Cache.Backend)
	}
	if c.Cache.Backend == embedding.CacheRedis && c.Cache.Redis.Addr == "" {
		return matcherr.Wrap(matcherr.ErrConfiguration, "redis cache requires cache.redis.addr or REDIS_ADDR")
	}
	if c.Search.TopK < 1 {
		return matcherr.Wrapf(matcherr.ErrConfiguration, "search.top_k must be >= 1, got %d", c.Search.TopK)
	}
	if c.Search.MinScore < 0 || c.Search.MinScore > 1 {
		return matcherr.Wrapf(matcherr.ErrConfiguration, "search.min_score must be in [0, 1], got %g", c.Search.MinScore)
	}
	if c.Search.Review > c.Search.AutoApprove {
		return matcherr.Wrap(matcherr.ErrConfiguration, "search.review must not exceed search.auto_approve")
	}
	if _, err := finetune.ParseDevice(c.Training.Device); err != nil {
		return err
	}
	return nil
}

// EmbeddingOptions returns the embedding model configuration.
func (c *Config) EmbeddingOptions() embedding.Config {
	return embedding.Config{
		Provider:  c.Embedding.Provider,
		Dimension: c.Embedding.Dimension,
		OpenAI: embedding.OpenAIConfig{
			APIKey:    c.Embedding.APIKey,
			Model:     c.Embedding.Model,
			BaseURL:   c.Embedding.BaseURL,
			BatchSize: c.Embedding.BatchSize,
			RateLimit: c.Embedding.RateLimit,
		},
		ModelDir: c.Embedding.ModelDir,
		Cache: embedding.CacheConfig{
			Backend:    c.Cache.Backend,
			MaxEntries: c.Cache.MaxEntries,
			Redis: embedding.RedisConfig{
				Addr:     c.Cache.Redis.Addr,
				Password: c.Cache.Redis.Password,
				DB:       c.Cache.Redis.DB,
				Prefix:   c.Cache.Redis.Prefix,
				TTL:      c.Cache.Redis.TTL,
			},
		},
	}
}

// IndexOptions returns the vector index configuration.
func (c *Config) IndexOptions() vector.Config {
	return vector.Config{Dir: c.Index.Dir, BatchSize: c.Index.BatchSize, Compress: c.Index.Compress}
}

// SearchOptions returns the search service configuration.
func (c *Config) SearchOptions() search.Config {
	return search.Config{
		TopK:     c.Search.TopK,
		MinScore: c.Search.MinScore,
		Policy:   search.Policy{AutoApprove: c.Search.AutoApprove, Review: c.Search.Review},
	}
}

// PairsOptions returns the pair generator configuration.
func (c *Config) PairsOptions() pairs.Config {
	p := pairs.DefaultConfig()
	p.PositiveCap = c.Pairs.PositiveCap
	p.NegativeRatio = c.Pairs.NegativeRatio
	p.SubtypeSampleA = c.Pairs.SubtypeSampleA
	p.SubtypeSampleB = c.Pairs.SubtypeSampleB
	p.Seed = c.Pairs.Seed
	return p
}

// TrainingOptions returns the fine-tuning options.
func (c *Config) TrainingOptions() (finetune.Options, error) {
	device, err := finetune.ParseDevice(c.Training.Device)
	if err != nil {
		return finetune.Options{}, err
	}
	return finetune.Options{
		Epochs:         c.Training.Epochs,
		BatchSize:      c.Training.BatchSize,
		LearningRate:   c.Training.LearningRate,
		Regularization: c.Training.Regularization,
		Device:         device,
		Workers:        c.Training.Workers,
		Seed:           c.Training.Seed,
	}, nil
}

// ensureDirectories creates required directories if they don't exist.
func ensureDirectories(cfg *Config) error {
	for _, dir := range []string{cfg.BaseDir, cfg.Log.Dir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Clean(dir), err)
		}
	}
	return nil
}
