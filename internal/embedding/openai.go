package embedding

import (
	"context"
	"fmt"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/asteroid-belt/partmatch/internal/models"
)

// maxInflight caps concurrent embedding requests of one EmbedBatch call.
const maxInflight = 4

// OpenAIConfig holds settings for the OpenAI embedding provider.
type OpenAIConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint (proxies, compatible servers).
	BaseURL string
	// BatchSize caps inputs per request (default: 100).
	BatchSize int
	// RateLimit is requests per minute (default: 3000).
	RateLimit int
}

// OpenAIProvider implements Provider using OpenAI API.
type OpenAIProvider struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	dim       int
	batchSize int
	limiter   *rate.Limiter
}

// NewOpenAI creates a new OpenAI embedding provider.
func NewOpenAI(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY required for openai embeddings")
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	dim, ok := models.EmbeddingModelDimensions[model]
	if !ok {
		return nil, fmt.Errorf("unknown embedding model %q", model)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 3000
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     openai.EmbeddingModel(model),
		dim:       dim,
		batchSize: cfg.BatchSize,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RateLimit)), cfg.RateLimit/60+1),
	}, nil
}

// ModelID implements Provider.
func (p *OpenAIProvider) ModelID() string {
	return "openai/" + string(p.model)
}

// Dimension implements Provider.
func (p *OpenAIProvider) Dimension() int {
	return p.dim
}

// Embed generates an embedding for a single text string.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.request(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple text strings, splitting
// them into requests of at most BatchSize inputs. Up to maxInflight
// requests run at once; results keep input order.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInflight)
	for start := 0; start < len(texts); start += p.batchSize {
		end := min(start+p.batchSize, len(texts))
		g.Go(func() error {
			vecs, err := p.request(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("batch %d-%d: %w", start, end, err)
			}
			copy(result[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *OpenAIProvider) request(ctx context.Context, texts []string) ([][]float32, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: p.model,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
	result := make([][]float32, len(texts))
	for i, data := range resp.Data {
		result[i] = data.Embedding
	}
	return result, nil
}
