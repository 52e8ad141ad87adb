package vector

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asteroid-belt/partmatch/internal/embedding"
	"github.com/asteroid-belt/partmatch/internal/matcherr"
	"github.com/asteroid-belt/partmatch/internal/models"
	"github.com/asteroid-belt/partmatch/internal/testutil"
)

func newTestIndex(t *testing.T, dir string) *Index {
	t.Helper()
	return New(Config{Dir: dir, BatchSize: 4}, embedding.NewHash(256), zerolog.Nop())
}

func buildSample(t *testing.T) (*Index, []models.Product) {
	t.Helper()
	products := testutil.SampleCatalog()
	ix := newTestIndex(t, filepath.Join(t.TempDir(), "index"))
	require.NoError(t, ix.Build(context.Background(), products))
	return ix, products
}

func embedText(t *testing.T, ix *Index, text string) []float32 {
	t.Helper()
	vec, err := ix.Model().Embed(context.Background(), text)
	require.NoError(t, err)
	return vec
}

func TestBuildAndSearchRoundTrip(t *testing.T) {
	ix, products := buildSample(t)
	assert.Equal(t, StateReady, ix.State())
	assert.Equal(t, len(products), ix.Size())

	for i, p := range products {
		hits, err := ix.Search(context.Background(), embedText(t, ix, PrepareContent(p)), 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, i, hits[0].Row, "product %q", p.Code)
		assert.GreaterOrEqual(t, hits[0].Score, float32(0.99))
		assert.Equal(t, p.Code, hits[0].Product.Code)
		assert.Equal(t, p.Name, hits[0].Product.Name)
	}
}

func TestSearchOrdering(t *testing.T) {
	ix, products := buildSample(t)

	hits, err := ix.Search(context.Background(), embedText(t, ix, "Foam Seal Miraflex"), 5)
	require.NoError(t, err)
	require.Len(t, hits, 5)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}

	all, err := ix.Search(context.Background(), embedText(t, ix, "seal"), 100)
	require.NoError(t, err)
	assert.Len(t, all, len(products))
}

func TestSearchTiesBreakByRow(t *testing.T) {
	dup := models.Product{Code: "SDS900", Name: "End Seal Bobst 20x8"}
	products := []models.Product{
		{Code: "BLD040", Name: "Doctor Blade stainless 40x0.2"},
		dup,
		{Code: "FLT10", Name: "Felt Strip 10x2"},
		dup,
		dup,
		dup,
		{Code: "TPE12", Name: "Foam Tape adhesive 12x3"},
		dup,
	}
	ix := newTestIndex(t, filepath.Join(t.TempDir(), "index"))
	require.NoError(t, ix.Build(context.Background(), products))
	query := embedText(t, ix, PrepareContent(dup))

	hits, err := ix.Search(context.Background(), query, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Row)

	hits, err = ix.Search(context.Background(), query, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []int{1, 3, 4}, []int{hits[0].Row, hits[1].Row, hits[2].Row})
	assert.Equal(t, hits[0].Score, hits[2].Score)
}

func TestSearchPreconditions(t *testing.T) {
	ix := newTestIndex(t, filepath.Join(t.TempDir(), "index"))
	_, err := ix.Search(context.Background(), make([]float32, 256), 5)
	assert.ErrorIs(t, err, matcherr.ErrPrecondition)
	assert.Equal(t, StateUninitialized, ix.State())

	ix, _ = buildSample(t)
	query := embedText(t, ix, "seal")

	_, err = ix.Search(context.Background(), query, 0)
	assert.ErrorIs(t, err, matcherr.ErrPrecondition)

	_, err = ix.Search(context.Background(), query[:10], 5)
	assert.ErrorIs(t, err, matcherr.ErrPrecondition)
}

func TestBuildEmptyCatalogWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	ix := newTestIndex(t, dir)

	err := ix.Build(context.Background(), nil)
	assert.ErrorIs(t, err, matcherr.ErrConfiguration)
	assert.NoDirExists(t, dir)
	assert.Equal(t, StateUninitialized, ix.State())
}

func TestBuildRefusesPublishedIndex(t *testing.T) {
	ix, products := buildSample(t)
	err := ix.Build(context.Background(), products)
	assert.ErrorIs(t, err, matcherr.ErrPrecondition)
	assert.Equal(t, StateReady, ix.State())
}

func TestRebuildPublishesAndPrunes(t *testing.T) {
	ix, products := buildSample(t)
	before := ix.Stats().Version

	require.NoError(t, ix.Rebuild(context.Background(), products[:5]))
	after := ix.Stats()
	assert.NotEqual(t, before, after.Version)
	assert.Equal(t, 5, after.Rows)

	entries, err := os.ReadDir(filepath.Join(after.Dir, versionsDir))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, after.Version, entries[0].Name())

	current, err := readCurrent(after.Dir)
	require.NoError(t, err)
	assert.Equal(t, after.Version, current)
	assert.NoFileExists(t, filepath.Join(after.Dir, lockFile))
}

func TestBuildLockContention(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, lockFile), []byte("pid=1\n"), 0644))

	ix := newTestIndex(t, dir)
	err := ix.Build(context.Background(), testutil.SampleCatalog())
	assert.ErrorIs(t, err, matcherr.ErrPrecondition)
	assert.NoFileExists(t, filepath.Join(dir, currentFile))
}

func TestBuildReportsProgress(t *testing.T) {
	products := testutil.SampleCatalog()
	ix := newTestIndex(t, filepath.Join(t.TempDir(), "index"))

	var calls [][2]int
	ix.OnProgress(func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})
	require.NoError(t, ix.Build(context.Background(), products))

	require.NotEmpty(t, calls)
	assert.Equal(t, [2]int{len(products), len(products)}, calls[len(calls)-1])
	assert.Len(t, calls, (len(products)+3)/4)
}

func TestLoad(t *testing.T) {
	built, products := buildSample(t)
	dir := built.Stats().Dir

	ix := newTestIndex(t, dir)
	require.NoError(t, ix.Load(context.Background()))
	assert.Equal(t, len(products), ix.Size())
	assert.Equal(t, built.Stats().Version, ix.Stats().Version)

	hits, err := ix.Search(context.Background(), embedText(t, ix, PrepareContent(products[3])), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, hits[0].Row)

	matches := ix.Lookup("sds007h")
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].Row)
}

func TestLoadWithoutIndex(t *testing.T) {
	ix := newTestIndex(t, t.TempDir())
	err := ix.Load(context.Background())
	assert.ErrorIs(t, err, matcherr.ErrIntegrity)
	assert.Equal(t, StateUninitialized, ix.State())
}

func TestLoadModelMismatch(t *testing.T) {
	built, _ := buildSample(t)

	ix := New(Config{Dir: built.Stats().Dir}, embedding.NewHash(128), zerolog.Nop())
	err := ix.Load(context.Background())
	assert.ErrorIs(t, err, matcherr.ErrIntegrity)
	assert.Contains(t, err.Error(), "rebuild")
}

func TestLoadRowCountMismatch(t *testing.T) {
	built, _ := buildSample(t)
	st := built.Stats()
	versionDir := filepath.Join(st.Dir, versionsDir, st.Version)

	m, err := readManifest(versionDir)
	require.NoError(t, err)
	m.Rows++
	require.NoError(t, writeManifest(versionDir, m))

	ix := newTestIndex(t, st.Dir)
	err = ix.Load(context.Background())
	assert.ErrorIs(t, err, matcherr.ErrIntegrity)
	assert.Contains(t, err.Error(), "row count mismatch")
}

func TestLoadMissingArtifacts(t *testing.T) {
	built, _ := buildSample(t)
	st := built.Stats()
	require.NoError(t, os.RemoveAll(filepath.Join(st.Dir, versionsDir, st.Version, metadataFile)))

	ix := newTestIndex(t, st.Dir)
	assert.ErrorIs(t, ix.Load(context.Background()), matcherr.ErrIntegrity)
}

func TestLoadRejectsFormatMajor(t *testing.T) {
	built, _ := buildSample(t)
	st := built.Stats()
	path := filepath.Join(st.Dir, versionsDir, st.Version, manifestFile)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	raw["format_version"] = "2.0.0"
	data, err = json.Marshal(raw)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	ix := newTestIndex(t, st.Dir)
	assert.ErrorIs(t, ix.Load(context.Background()), matcherr.ErrIntegrity)
}

func TestPrepareContent(t *testing.T) {
	p := models.Product{Code: "BLD060", Name: "Rakel Edelstahl 60x0.15", DisplayName: "Doctor Blade 60"}
	assert.Equal(t, "BLD060\nRakel Edelstahl 60x0.15\nDoctor Blade 60\nBLD060", PrepareContent(p))

	same := models.Product{Code: "X1", Name: "Felt", DisplayName: "Felt"}
	assert.Equal(t, "X1\nFelt\nX1", PrepareContent(same))

	assert.Equal(t, "Dichtung", PrepareContent(models.Product{Name: "Dichtung"}))
	assert.Len(t, TruncateToTokens(string(make([]byte, 100)), 10), 40)
}

func TestTruncateToTokensKeepsRunes(t *testing.T) {
	// "ä" is two bytes, so a 4-byte limit after "x" falls inside a rune.
	got := TruncateToTokens("xääää", 1)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "xä", got)

	long := strings.Repeat("Dichtungsschnur Weiß ", 2000)
	got = TruncateToTokens(long, 1001)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 4004)
	assert.True(t, strings.HasPrefix(long, got))
}

func buildPair(t *testing.T, products []models.Product) Stats {
	t.Helper()
	ix := newTestIndex(t, filepath.Join(t.TempDir(), "index"))
	require.NoError(t, ix.Build(context.Background(), products))
	return ix.Stats()
}

func copyTree(t *testing.T, src, dst string) {
	t.Helper()
	require.NoError(t, os.RemoveAll(dst))
	err := filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0644)
	})
	require.NoError(t, err)
}

var (
	sealAndBlade = []models.Product{
		{Code: "SDS007H", Name: "DuroSeal W&H End Seals Miraflex SDS 007 CR Grau"},
		{Code: "BLD040", Name: "Rakel Edelstahl 40x0.20", DisplayName: "Doctor Blade 40"},
	}
	feltAndTape = []models.Product{
		{Code: "FLT10", Name: "Filzstreifen 10mm", DisplayName: "Felt Strip 10"},
		{Code: "TPE12", Name: "Klebeband Schaum 12mm", DisplayName: "Foam Tape 12"},
	}
)

func TestLoadRejectsForeignMetadata(t *testing.T) {
	a := buildPair(t, sealAndBlade)
	b := buildPair(t, feltAndTape)

	copyTree(t,
		filepath.Join(b.Dir, versionsDir, b.Version, metadataFile),
		filepath.Join(a.Dir, versionsDir, a.Version, metadataFile))

	ix := newTestIndex(t, a.Dir)
	err := ix.Load(context.Background())
	assert.ErrorIs(t, err, matcherr.ErrIntegrity)
	assert.Contains(t, err.Error(), "catalog checksum")
	assert.NotEqual(t, StateReady, ix.State())
}

func TestSearchRejectsForeignVectors(t *testing.T) {
	a := buildPair(t, sealAndBlade)
	b := buildPair(t, feltAndTape)

	copyTree(t,
		filepath.Join(b.Dir, versionsDir, b.Version, vectorsDir),
		filepath.Join(a.Dir, versionsDir, a.Version, vectorsDir))

	ix := newTestIndex(t, a.Dir)
	require.NoError(t, ix.Load(context.Background()))

	_, err := ix.Search(context.Background(), embedText(t, ix, "Felt Strip 10"), 1)
	assert.ErrorIs(t, err, matcherr.ErrIntegrity)
	assert.Contains(t, err.Error(), "does not match its metadata")
}

func TestProductByRow(t *testing.T) {
	ix := newTestIndex(t, filepath.Join(t.TempDir(), "index"))
	_, ok := ix.Product(0)
	assert.False(t, ok)

	ix, products := buildSample(t)
	p, ok := ix.Product(9)
	require.True(t, ok)
	assert.Equal(t, products[9].Code, p.Code)
	assert.Equal(t, products[9].DisplayName, p.DisplayName)

	_, ok = ix.Product(len(products))
	assert.False(t, ok)
}
