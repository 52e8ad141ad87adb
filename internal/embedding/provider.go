// Package embedding provides text embedding models: deterministic and
// remote base models, the fine-tuned projection adapter, and caching.
package embedding

import (
	"context"
	"math"
)

// Provider generates embeddings from text.
type Provider interface {
	// Embed generates an embedding for a single text string.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple text strings.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// ModelID identifies the vector space. Vectors from different model
	// IDs are not comparable.
	ModelID() string

	// Dimension is the length of every returned vector.
	Dimension() int
}

// Normalize returns a unit-length copy of v. A zero vector is returned
// unchanged.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		copy(out, v)
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

// Dot returns the inner product of a and b over their common length.
func Dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}

// Cosine returns the cosine similarity of a and b, or 0 if either is zero.
func Cosine(a, b []float32) float32 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
