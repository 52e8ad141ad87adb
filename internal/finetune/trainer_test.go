package finetune

import (
	"context"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asteroid-belt/partmatch/internal/embedding"
	"github.com/asteroid-belt/partmatch/internal/matcherr"
	"github.com/asteroid-belt/partmatch/internal/models"
	"github.com/asteroid-belt/partmatch/internal/pairs"
	"github.com/asteroid-belt/partmatch/internal/testutil"
)

func samplePairs(t *testing.T) []models.TrainingPair {
	t.Helper()
	cfg := pairs.DefaultConfig()
	cfg.Seed = 17
	res, err := pairs.New(cfg, zerolog.Nop()).Generate(testutil.SampleCatalog())
	require.NoError(t, err)
	return res.Pairs
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Epochs = 5
	opts.BatchSize = 8
	opts.Seed = 3
	return opts
}

func TestTrain_EmptyPairsFailsFast(t *testing.T) {
	_, _, err := New(embedding.NewHash(16), zerolog.Nop()).Train(context.Background(), nil, DefaultOptions())
	assert.ErrorIs(t, err, matcherr.ErrPrecondition)
}

func TestTrain_InvalidOptions(t *testing.T) {
	p := []models.TrainingPair{{TextA: "a", TextB: "b", Label: 1}}
	trainer := New(embedding.NewHash(8), zerolog.Nop())

	tests := []struct {
		name string
		mod  func(*Options)
		kind error
	}{
		{"zero epochs", func(o *Options) { o.Epochs = 0 }, matcherr.ErrPrecondition},
		{"zero batch", func(o *Options) { o.BatchSize = 0 }, matcherr.ErrPrecondition},
		{"zero learning rate", func(o *Options) { o.LearningRate = 0 }, matcherr.ErrPrecondition},
		{"unknown device", func(o *Options) { o.Device = "tpu" }, matcherr.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mod(&opts)
			_, _, err := trainer.Train(context.Background(), p, opts)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestTrain_ReducesLoss(t *testing.T) {
	base := embedding.NewHash(64)
	trainer := New(base, zerolog.Nop())

	var epochs []int
	trainer.OnEpoch(func(epoch, total int, loss float64) {
		epochs = append(epochs, epoch)
		assert.Equal(t, 5, total)
		assert.False(t, math.IsNaN(loss))
	})

	adapter, report, err := trainer.Train(context.Background(), samplePairs(t), testOptions())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, epochs)
	assert.Len(t, report.EpochLosses, 5)
	assert.Less(t, report.FinalLoss, report.InitialLoss)
	assert.Equal(t, DeviceCPU, report.Device)
	assert.Contains(t, adapter.ModelID(), base.ModelID()+"+ft-")
	assert.Equal(t, 64, adapter.Dimension())
}

func TestTrain_ParallelMatchesSerial(t *testing.T) {
	base := embedding.NewHash(32)
	p := samplePairs(t)

	serialOpts := testOptions()
	serial, _, err := New(base, zerolog.Nop()).Train(context.Background(), p, serialOpts)
	require.NoError(t, err)

	parallelOpts := testOptions()
	parallelOpts.Device = DeviceCPUParallel
	parallelOpts.Workers = 3
	parallel, report, err := New(base, zerolog.Nop()).Train(context.Background(), p, parallelOpts)
	require.NoError(t, err)
	assert.Equal(t, DeviceCPUParallel, report.Device)

	sw, pw := serial.Weights(), parallel.Weights()
	require.Len(t, pw, len(sw))
	for i := range sw {
		assert.InDelta(t, sw[i], pw[i], 1e-4)
	}
}

func TestPairGradient_MatchesFiniteDifference(t *testing.T) {
	const dim = 3
	rng := rand.New(rand.NewSource(1))
	w := make([]float64, dim*dim)
	for i := range w {
		w[i] = rng.Float64()*2 - 1
	}
	a := []float64{0.2, -0.5, 0.8}
	b := []float64{0.6, 0.1, -0.3}
	y := 0.7

	grad := make([]float64, dim*dim)
	u, v := make([]float64, dim), make([]float64, dim)
	pairGradient(w, dim, a, b, y, grad, u, v)

	loss := func(w []float64) float64 {
		d := cosine(w, dim, a, b, u, v) - y
		return d * d
	}
	const h = 1e-6
	for i := range w {
		plus := append([]float64(nil), w...)
		minus := append([]float64(nil), w...)
		plus[i] += h
		minus[i] -= h
		numeric := (loss(plus) - loss(minus)) / (2 * h)
		assert.InDelta(t, numeric, grad[i], 1e-5, "weight %d", i)
	}
}

func TestStep_RegularizationPullsTowardIdentity(t *testing.T) {
	w := []float64{2, 1, 1, 2}
	step(w, make([]float64, 4), 2, 1, 0.5, 1.0)
	assert.Equal(t, []float64{1.5, 0.5, 0.5, 1.5}, w)
}

func TestParseDevice(t *testing.T) {
	d, err := ParseDevice("")
	require.NoError(t, err)
	assert.Equal(t, DeviceCPU, d)

	d, err = ParseDevice("cpu-parallel")
	require.NoError(t, err)
	assert.Equal(t, DeviceCPUParallel, d)

	_, err = ParseDevice("cuda")
	assert.ErrorIs(t, err, matcherr.ErrConfiguration)
}

func TestRun_PersistsLoadableArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "model")
	base := embedding.NewHash(16)

	adapter, report, err := Run(context.Background(), base, samplePairs(t), testOptions(), dir, zerolog.Nop())
	require.NoError(t, err)
	assert.Positive(t, report.Pairs)

	loaded, err := embedding.LoadAdapter(dir, embedding.NewHash(16))
	require.NoError(t, err)
	assert.Equal(t, adapter.ModelID(), loaded.ModelID())
	assert.Equal(t, adapter.Weights(), loaded.Weights())

	m, err := embedding.ReadArtifactManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, "cpu", m.Training.Device)
	assert.Equal(t, 5, m.Training.Epochs)
}
