package embedding

import (
	"context"
	"fmt"
)

// Adapter is a fine-tuned model: a learned square projection applied to the
// unit-length output of a base model, followed by re-normalisation.
type Adapter struct {
	base    Provider
	id      string
	dim     int
	weights []float32 // row-major dim×dim
}

// IdentityWeights returns a dim×dim identity matrix in row-major order.
func IdentityWeights(dim int) []float32 {
	w := make([]float32, dim*dim)
	for i := 0; i < dim; i++ {
		w[i*dim+i] = 1
	}
	return w
}

// NewAdapter wraps base with the projection weights. The weights are copied.
func NewAdapter(base Provider, id string, weights []float32) (*Adapter, error) {
	dim := base.Dimension()
	if len(weights) != dim*dim {
		return nil, fmt.Errorf("projection has %d weights, want %d for dimension %d", len(weights), dim*dim, dim)
	}
	w := make([]float32, len(weights))
	copy(w, weights)
	return &Adapter{base: base, id: id, dim: dim, weights: w}, nil
}

// ModelID implements Provider.
func (a *Adapter) ModelID() string {
	return a.id
}

// Dimension implements Provider.
func (a *Adapter) Dimension() int {
	return a.dim
}

// Base returns the underlying base model.
func (a *Adapter) Base() Provider {
	return a.base
}

// Weights returns a copy of the projection matrix.
func (a *Adapter) Weights() []float32 {
	w := make([]float32, len(a.weights))
	copy(w, a.weights)
	return w
}

// Project maps a base-model vector into the fine-tuned space.
func (a *Adapter) Project(v []float32) []float32 {
	return Normalize(Apply(a.weights, a.dim, Normalize(v)))
}

// Embed implements Provider.
func (a *Adapter) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := a.base.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return a.Project(v), nil
}

// EmbedBatch implements Provider.
func (a *Adapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := a.base.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(vecs))
	for i, v := range vecs {
		out[i] = a.Project(v)
	}
	return out, nil
}

// Apply returns W·v for a row-major dim×dim matrix W.
func Apply(w []float32, dim int, v []float32) []float32 {
	out := make([]float32, dim)
	for r := 0; r < dim; r++ {
		row := w[r*dim : (r+1)*dim]
		var sum float32
		for c := 0; c < dim && c < len(v); c++ {
			sum += row[c] * v[c]
		}
		out[r] = sum
	}
	return out
}
