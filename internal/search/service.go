// Package search answers free-text product queries against the vector
// index and evaluates retrieval quality.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/asteroid-belt/partmatch/internal/embedding"
	"github.com/asteroid-belt/partmatch/internal/matcherr"
	"github.com/asteroid-belt/partmatch/internal/vector"
)

// Config holds search service configuration.
type Config struct {
	TopK     int     `yaml:"top_k"`
	MinScore float32 `yaml:"min_score"`
	Policy   Policy  `yaml:"policy"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TopK:     5,
		MinScore: 0.5,
		Policy:   DefaultPolicy(),
	}
}

// Service runs queries against a loaded index. It is safe for concurrent
// use; each call works on the index version that is current when it starts.
type Service struct {
	index  *vector.Index
	config Config
	logger zerolog.Logger
}

// New creates a new search service.
func New(index *vector.Index, cfg Config, logger zerolog.Logger) *Service {
	d := DefaultConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = d.TopK
	}
	if cfg.Policy == (Policy{}) {
		cfg.Policy = d.Policy
	}
	return &Service{index: index, config: cfg, logger: logger}
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.config
}

// Index returns the underlying vector index.
func (s *Service) Index() *vector.Index {
	return s.index
}

// Search encodes query and returns up to topK candidates scoring at least
// minScore, best first. No candidate above the threshold is a valid empty
// result.
func (s *Service) Search(ctx context.Context, query string, topK int, minScore float32) ([]Candidate, error) {
	if topK < 1 {
		return nil, matcherr.Wrapf(matcherr.ErrPrecondition, "top_k must be >= 1, got %d", topK)
	}
	if minScore < 0 || minScore > 1 {
		return nil, matcherr.Wrapf(matcherr.ErrPrecondition, "min_score must be in [0, 1], got %g", minScore)
	}
	if strings.TrimSpace(query) == "" {
		return nil, matcherr.Wrap(matcherr.ErrPrecondition, "query is empty")
	}
	if s.index.State() != vector.StateReady {
		return nil, matcherr.Wrap(matcherr.ErrPrecondition, "index is not ready; build or load it first")
	}

	start := time.Now()
	vec, err := s.index.Model().Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	hits, err := s.index.Search(ctx, embedding.Normalize(vec), topK)
	if err != nil {
		return nil, err
	}

	queryTokens := embedding.Tokenize(query)
	out := make([]Candidate, 0, len(hits))
	for _, h := range hits {
		if h.Score < minScore {
			continue
		}
		method := MethodSemantic
		if containsCode(queryTokens, h.Product.Code) {
			method = MethodSemanticCode
		}
		out = append(out, Candidate{Product: h.Product, Score: h.Score, Method: method})
	}

	s.logger.Debug().
		Str("query", query).
		Int("top_k", topK).
		Int("results", len(out)).
		Dur("duration", time.Since(start)).
		Msg("search")
	return out, nil
}

// containsCode reports whether the tokens of code appear as a contiguous
// run in the query tokens.
func containsCode(queryTokens []string, code string) bool {
	codeTokens := embedding.Tokenize(code)
	if len(codeTokens) == 0 || len(codeTokens) > len(queryTokens) {
		return false
	}
	for i := 0; i+len(codeTokens) <= len(queryTokens); i++ {
		match := true
		for j, t := range codeTokens {
			if queryTokens[i+j] != t {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
