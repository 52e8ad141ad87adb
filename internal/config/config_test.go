package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asteroid-belt/partmatch/internal/embedding"
	"github.com/asteroid-belt/partmatch/internal/finetune"
	"github.com/asteroid-belt/partmatch/internal/matcherr"
)

// isolate points the config at a temp base dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("PARTMATCH_HOME", home)
	for _, key := range []string{
		"PARTMATCH_CATALOG", "PARTMATCH_EMBEDDING_PROVIDER", "PARTMATCH_EMBEDDING_MODEL",
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "PARTMATCH_CACHE", "REDIS_ADDR", "REDIS_PASSWORD",
		"PARTMATCH_DEVICE", "PARTMATCH_LOG_LEVEL", "PARTMATCH_TELEMETRY_DISABLED",
	} {
		t.Setenv(key, "")
	}
	return home
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, embedding.ProviderHash, cfg.Embedding.Provider)
	assert.Equal(t, embedding.DefaultHashDimension, cfg.Embedding.Dimension)
	assert.Equal(t, embedding.CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, 5, cfg.Search.TopK)
	assert.Equal(t, float32(0.90), cfg.Search.AutoApprove)
	assert.Equal(t, float32(0.75), cfg.Search.Review)
	assert.Equal(t, 4, cfg.Training.Epochs)
	assert.Equal(t, 16, cfg.Training.BatchSize)
	assert.Equal(t, "cpu", cfg.Training.Device)
	assert.Equal(t, 3, cfg.Pairs.PositiveCap)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, home, cfg.BaseDir)
	assert.Equal(t, filepath.Join(home, "index"), cfg.Index.Dir)
	assert.Equal(t, filepath.Join(home, "model"), cfg.Embedding.ModelDir)
	assert.DirExists(t, filepath.Join(home, "logs"))
}

func TestLoad_YAMLFile(t *testing.T) {
	home := isolate(t)
	yaml := `
catalog: /data/products.json
embedding:
  dimension: 128
cache:
  backend: none
index:
  dir: /data/index
search:
  top_k: 10
  min_score: 0.6
training:
  epochs: 8
  device: cpu-parallel
  workers: 2
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/data/products.json", cfg.Catalog)
	assert.Equal(t, 128, cfg.Embedding.Dimension)
	assert.Equal(t, embedding.CacheNone, cfg.Cache.Backend)
	assert.Equal(t, "/data/index", cfg.Index.Dir)
	assert.Equal(t, 10, cfg.Search.TopK)
	assert.Equal(t, float32(0.6), cfg.Search.MinScore)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Unset keys keep their defaults.
	assert.Equal(t, 16, cfg.Training.BatchSize)

	opts, err := cfg.TrainingOptions()
	require.NoError(t, err)
	assert.Equal(t, 8, opts.Epochs)
	assert.Equal(t, finetune.DeviceCPUParallel, opts.Device)
	assert.Equal(t, 2, opts.Workers)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	home := isolate(t)
	_, err := Load(filepath.Join(home, "nope.yaml"))
	assert.ErrorIs(t, err, matcherr.ErrConfiguration)
}

func TestLoad_InvalidYAML(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: [unclosed"), 0644))

	_, err := Load(path)
	assert.ErrorIs(t, err, matcherr.ErrConfiguration)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PARTMATCH_EMBEDDING_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test-123")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("PARTMATCH_LOG_LEVEL", "warn")
	t.Setenv("PARTMATCH_TELEMETRY_DISABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, embedding.ProviderOpenAI, cfg.Embedding.Provider)
	assert.Equal(t, "sk-test-123", cfg.Embedding.APIKey)
	assert.Equal(t, embedding.CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Telemetry.Disabled)

	emb := cfg.EmbeddingOptions()
	assert.Equal(t, "sk-test-123", emb.OpenAI.APIKey)
	assert.Equal(t, "localhost:6379", emb.Cache.Redis.Addr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "bert" }},
		{"openai without key", func(c *Config) { c.Embedding.Provider = embedding.ProviderOpenAI }},
		{"unknown cache", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"redis without addr", func(c *Config) { c.Cache.Backend = embedding.CacheRedis }},
		{"zero top k", func(c *Config) { c.Search.TopK = 0 }},
		{"min score above one", func(c *Config) { c.Search.MinScore = 1.2 }},
		{"review above auto", func(c *Config) { c.Search.Review = 0.95 }},
		{"unknown device", func(c *Config) { c.Training.Device = "cuda" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mod(cfg)
			assert.ErrorIs(t, cfg.Validate(), matcherr.ErrConfiguration)
		})
	}
}

func TestOptionConversions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Index.Dir = "/idx"
	cfg.Index.Compress = true
	cfg.Cache.Redis.TTL = time.Hour
	cfg.Pairs.Seed = 9

	assert.Equal(t, "/idx", cfg.IndexOptions().Dir)
	assert.True(t, cfg.IndexOptions().Compress)
	assert.Equal(t, time.Hour, cfg.EmbeddingOptions().Cache.Redis.TTL)
	assert.Equal(t, int64(9), cfg.PairsOptions().Seed)
	assert.Equal(t, float32(0.90), cfg.SearchOptions().Policy.AutoApprove)
}

func TestGetPaths(t *testing.T) {
	paths := GetPaths(&Config{BaseDir: "/base"})
	assert.Equal(t, "/base/config.yaml", paths.Config)
	assert.Equal(t, "/base/index", paths.Index)
	assert.Equal(t, "/base/model", paths.Model)
	assert.Equal(t, "/base/logs", paths.Logs)
}
