package embedding

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/asteroid-belt/partmatch/internal/hash"
)

// Cache stores embeddings by key. Implementations must be safe for
// concurrent use. A failing cache behaves like a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, vec []float32)
}

// CachedProvider wraps a Provider with an embedding cache keyed by model ID
// and text.
type CachedProvider struct {
	inner  Provider
	cache  Cache
	logger zerolog.Logger
}

// NewCached wraps inner with cache.
func NewCached(inner Provider, cache Cache, logger zerolog.Logger) *CachedProvider {
	return &CachedProvider{inner: inner, cache: cache, logger: logger}
}

// ModelID implements Provider.
func (p *CachedProvider) ModelID() string { return p.inner.ModelID() }

// Dimension implements Provider.
func (p *CachedProvider) Dimension() int { return p.inner.Dimension() }

// Unwrap returns the wrapped provider.
func (p *CachedProvider) Unwrap() Provider { return p.inner }

// Embed implements Provider.
func (p *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := CacheKey(p.inner.ModelID(), text)
	if vec, ok := p.cache.Get(ctx, key); ok {
		return vec, nil
	}
	vec, err := p.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	p.cache.Set(ctx, key, vec)
	return vec, nil
}

// EmbedBatch implements Provider. Only cache misses reach the inner model.
func (p *CachedProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		if vec, ok := p.cache.Get(ctx, CacheKey(p.inner.ModelID(), t)); ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := p.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embed batch returned %d vectors for %d texts", len(vecs), len(missTexts))
	}
	for k, i := range missIdx {
		out[i] = vecs[k]
		p.cache.Set(ctx, CacheKey(p.inner.ModelID(), texts[i]), vecs[k])
	}
	p.logger.Debug().Int("hits", len(texts)-len(missTexts)).Int("misses", len(missTexts)).Msg("embedding cache")
	return out, nil
}

// CacheKey derives the cache key of text under modelID.
func CacheKey(modelID, text string) string {
	return modelID + ":" + hash.Text(text)
}

// MemoryCache is an in-process cache bounded by entry count. When full,
// new entries are dropped.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string][]float32
	max   int
}

// NewMemoryCache creates a cache holding at most max entries (0 = 10000).
func NewMemoryCache(max int) *MemoryCache {
	if max <= 0 {
		max = 10000
	}
	return &MemoryCache{items: make(map[string][]float32), max: max}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.items[key]
	if !ok {
		return nil, false
	}
	return cloneVector(vec), true
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok && len(c.items) >= c.max {
		return
	}
	c.items[key] = cloneVector(vec)
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// RedisCache shares embeddings between processes through Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(cfg RedisConfig, logger zerolog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "partmatch:emb:"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: cfg.TTL, logger: logger}, nil
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("redis get failed")
		return nil, false
	}
	vec, err := decodeVector(data)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("corrupt cached embedding")
		return nil, false
	}
	return vec, true
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, vec []float32) {
	if err := c.client.Set(ctx, c.prefix+key, encodeVector(vec), c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("redis set failed")
	}
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4+4*len(vec))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(vec)))
	for i, v := range vec {
		off := 4 + i*4
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("cached vector truncated")
	}
	n := int(binary.LittleEndian.Uint32(data[:4]))
	if len(data) != 4+4*n {
		return nil, fmt.Errorf("cached vector has %d bytes, want %d", len(data), 4+4*n)
	}
	vec := make([]float32, n)
	for i := range vec {
		off := 4 + i*4
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
	}
	return vec, nil
}

func cloneVector(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
