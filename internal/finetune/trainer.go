// Package finetune adapts a base embedding model to the catalog vocabulary.
//
// The fine-tuned model is a square linear projection on top of the base
// model's unit vectors. Training starts from identity and runs mini-batch
// gradient descent on the pairwise loss (cos(Wa, Wb) - label)², so a model
// trained for zero steps equals the base model.
package finetune

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/asteroid-belt/partmatch/internal/embedding"
	"github.com/asteroid-belt/partmatch/internal/matcherr"
	"github.com/asteroid-belt/partmatch/internal/models"
)

const encodeBatchSize = 64

// Report summarises a training run.
type Report struct {
	Pairs       int           `json:"pairs"`
	Texts       int           `json:"texts"`
	Epochs      int           `json:"epochs"`
	EpochLosses []float64     `json:"epoch_losses"`
	InitialLoss float64       `json:"initial_loss"`
	FinalLoss   float64       `json:"final_loss"`
	Device      Device        `json:"device"`
	Duration    time.Duration `json:"duration"`
}

// EpochFunc is called after every epoch with its mean training loss.
type EpochFunc func(epoch, total int, loss float64)

// Trainer fine-tunes a projection over a base model.
type Trainer struct {
	base    embedding.Provider
	logger  zerolog.Logger
	onEpoch EpochFunc
}

// New creates a trainer for base.
func New(base embedding.Provider, logger zerolog.Logger) *Trainer {
	return &Trainer{base: base, logger: logger}
}

// OnEpoch registers a progress callback.
func (t *Trainer) OnEpoch(fn EpochFunc) {
	t.onEpoch = fn
}

// example is a pair resolved to indices into the encoded text table.
type example struct {
	a, b  int
	label float64
}

// Train fits a projection to pairs. An empty pair pool fails with a
// precondition error rather than returning the unchanged base model.
func (t *Trainer) Train(ctx context.Context, pairs []models.TrainingPair, opts Options) (*embedding.Adapter, *Report, error) {
	if len(pairs) == 0 {
		return nil, nil, matcherr.Wrap(matcherr.ErrPrecondition, "no training pairs")
	}
	opts, err := opts.validate()
	if err != nil {
		return nil, nil, err
	}
	start := time.Now()
	t.logger.Info().Int("pairs", len(pairs)).Str("options", opts.String()).Msg("fine-tuning started")

	vectors, examples, err := t.encode(ctx, pairs)
	if err != nil {
		return nil, nil, err
	}

	dim := t.base.Dimension()
	w := identity(dim)
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	report := &Report{
		Pairs:       len(pairs),
		Texts:       len(vectors),
		Epochs:      opts.Epochs,
		Device:      opts.Device,
		InitialLoss: meanLoss(w, dim, vectors, examples),
	}

	workers := newWorkerPool(opts.Workers, dim)
	order := make([]int, len(examples))
	for i := range order {
		order[i] = i
	}
	for epoch := 1; epoch <= opts.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		var epochLoss float64
		for bs := 0; bs < len(order); bs += opts.BatchSize {
			be := bs + opts.BatchSize
			if be > len(order) {
				be = len(order)
			}
			batch := order[bs:be]
			grad, loss, err := workers.gradient(w, dim, vectors, examples, batch)
			if err != nil {
				return nil, nil, err
			}
			epochLoss += loss
			step(w, grad, dim, len(batch), opts.LearningRate, opts.Regularization)
		}
		mean := epochLoss / float64(len(examples))
		report.EpochLosses = append(report.EpochLosses, mean)
		t.logger.Debug().Int("epoch", epoch).Float64("loss", mean).Msg("epoch finished")
		if t.onEpoch != nil {
			t.onEpoch(epoch, opts.Epochs, mean)
		}
	}

	report.FinalLoss = meanLoss(w, dim, vectors, examples)
	report.Duration = time.Since(start)

	adapter, err := embedding.NewAdapter(t.base, embedding.NewModelID(t.base.ModelID()), toFloat32(w))
	if err != nil {
		return nil, nil, fmt.Errorf("build adapter: %w", err)
	}
	t.logger.Info().
		Float64("initial_loss", report.InitialLoss).
		Float64("final_loss", report.FinalLoss).
		Dur("duration", report.Duration).
		Str("model", adapter.ModelID()).
		Msg("fine-tuning finished")
	return adapter, report, nil
}

// encode embeds every distinct text once with the base model.
func (t *Trainer) encode(ctx context.Context, pairs []models.TrainingPair) ([][]float64, []example, error) {
	index := make(map[string]int)
	var texts []string
	lookup := func(s string) int {
		if i, ok := index[s]; ok {
			return i
		}
		index[s] = len(texts)
		texts = append(texts, s)
		return index[s]
	}
	examples := make([]example, len(pairs))
	for i, p := range pairs {
		examples[i] = example{a: lookup(p.TextA), b: lookup(p.TextB), label: float64(p.Label)}
	}

	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += encodeBatchSize {
		end := start + encodeBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := t.base.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, nil, fmt.Errorf("encode training texts: %w", err)
		}
		for _, v := range vecs {
			vectors = append(vectors, toFloat64(embedding.Normalize(v)))
		}
	}
	return vectors, examples, nil
}

// step applies one SGD update with L2 pull toward identity.
func step(w, grad []float64, dim, batch int, lr, reg float64) {
	scale := lr / float64(batch)
	for r := 0; r < dim; r++ {
		for c := 0; c < dim; c++ {
			i := r*dim + c
			target := 0.0
			if r == c {
				target = 1
			}
			w[i] -= scale*grad[i] + lr*reg*(w[i]-target)
		}
	}
}

func meanLoss(w []float64, dim int, vectors [][]float64, examples []example) float64 {
	u := make([]float64, dim)
	v := make([]float64, dim)
	var sum float64
	for _, ex := range examples {
		d := cosine(w, dim, vectors[ex.a], vectors[ex.b], u, v) - ex.label
		sum += d * d
	}
	return sum / float64(len(examples))
}

// workerPool holds per-worker gradient buffers.
type workerPool struct {
	grads   [][]float64
	scratch [][2][]float64
}

func newWorkerPool(n, dim int) *workerPool {
	p := &workerPool{grads: make([][]float64, n), scratch: make([][2][]float64, n)}
	for i := 0; i < n; i++ {
		p.grads[i] = make([]float64, dim*dim)
		p.scratch[i] = [2][]float64{make([]float64, dim), make([]float64, dim)}
	}
	return p
}

// gradient sums the batch gradient. Shards are contiguous and summed in
// worker order, so results do not depend on scheduling.
func (p *workerPool) gradient(w []float64, dim int, vectors [][]float64, examples []example, batch []int) ([]float64, float64, error) {
	n := len(p.grads)
	if n > len(batch) {
		n = len(batch)
	}
	losses := make([]float64, n)
	shard := (len(batch) + n - 1) / n

	var g errgroup.Group
	for k := 0; k < n; k++ {
		g.Go(func() error {
			grad := p.grads[k]
			for i := range grad {
				grad[i] = 0
			}
			lo, hi := k*shard, (k+1)*shard
			if hi > len(batch) {
				hi = len(batch)
			}
			u, v := p.scratch[k][0], p.scratch[k][1]
			for _, idx := range batch[lo:hi] {
				ex := examples[idx]
				losses[k] += pairGradient(w, dim, vectors[ex.a], vectors[ex.b], ex.label, grad, u, v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	total := p.grads[0]
	loss := losses[0]
	for k := 1; k < n; k++ {
		for i, x := range p.grads[k] {
			total[i] += x
		}
		loss += losses[k]
	}
	return total, loss, nil
}

func identity(dim int) []float64 {
	w := make([]float64, dim*dim)
	for i := 0; i < dim; i++ {
		w[i*dim+i] = 1
	}
	return w
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
