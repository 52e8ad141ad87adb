package vector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/asteroid-belt/partmatch/internal/catalog"
	"github.com/asteroid-belt/partmatch/internal/db"
	"github.com/asteroid-belt/partmatch/internal/embedding"
	"github.com/asteroid-belt/partmatch/internal/matcherr"
	"github.com/asteroid-belt/partmatch/internal/models"
)

// State is the lifecycle state of an Index.
type State int32

// Index states. There is no partially-built state: a build either
// publishes a complete version or leaves the previous state untouched.
const (
	StateUninitialized State = iota
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "READY"
	}
	return "UNINITIALIZED"
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config holds index configuration.
type Config struct {
	// Dir is the index root holding CURRENT, versions/ and build.lock.
	Dir string
	// BatchSize is the number of products encoded per model call (default: 64).
	BatchSize int
	// Compress stores vectors gzip-compressed.
	Compress bool
}

// ProgressFunc reports encoded rows during a build.
type ProgressFunc func(done, total int)

// Hit is a search result row.
type Hit struct {
	Row     int
	Score   float32
	Product models.ProductMetadata
}

// Stats describes the serving index version.
type Stats struct {
	State     State     `json:"state"`
	Dir       string    `json:"dir"`
	Version   string    `json:"version,omitempty"`
	ModelID   string    `json:"model_id,omitempty"`
	Dimension int       `json:"dimension,omitempty"`
	Rows      int       `json:"rows"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// snapshot is an immutable, fully loaded index version.
type snapshot struct {
	manifest Manifest
	store    VectorStore
	rows     []models.ProductMetadata
}

// Index is the catalog vector index. Searches are safe for concurrent use
// and always see one complete version; builds are serialised.
type Index struct {
	cfg        Config
	model      embedding.Provider
	logger     zerolog.Logger
	buildMu    sync.Mutex
	current    atomic.Pointer[snapshot]
	onProgress ProgressFunc
}

// New creates an index in the UNINITIALIZED state. Call Build, Rebuild or
// Load before searching.
func New(cfg Config, model embedding.Provider, logger zerolog.Logger) *Index {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	return &Index{cfg: cfg, model: model, logger: logger}
}

// OnProgress registers a build progress callback.
func (ix *Index) OnProgress(fn ProgressFunc) {
	ix.onProgress = fn
}

// Model returns the embedding model the index is bound to.
func (ix *Index) Model() embedding.Provider {
	return ix.model
}

// State returns the lifecycle state.
func (ix *Index) State() State {
	if ix.current.Load() == nil {
		return StateUninitialized
	}
	return StateReady
}

// Size returns the number of rows served, or 0 when not ready.
func (ix *Index) Size() int {
	snap := ix.current.Load()
	if snap == nil {
		return 0
	}
	return len(snap.rows)
}

// Stats describes the serving version.
func (ix *Index) Stats() Stats {
	st := Stats{State: ix.State(), Dir: ix.cfg.Dir}
	if snap := ix.current.Load(); snap != nil {
		st.Version = snap.manifest.Version
		st.ModelID = snap.manifest.ModelID
		st.Dimension = snap.manifest.Dimension
		st.Rows = len(snap.rows)
		st.CreatedAt = snap.manifest.CreatedAt
	}
	return st
}

// Product returns the metadata of a catalog row.
func (ix *Index) Product(row int) (models.ProductMetadata, bool) {
	snap := ix.current.Load()
	if snap == nil || row < 0 || row >= len(snap.rows) {
		return models.ProductMetadata{}, false
	}
	return snap.rows[row], true
}

// Lookup returns the rows whose code equals code, ignoring case.
func (ix *Index) Lookup(code string) []models.ProductMetadata {
	snap := ix.current.Load()
	if snap == nil {
		return nil
	}
	var out []models.ProductMetadata
	for _, r := range snap.rows {
		if strings.EqualFold(r.Code, code) {
			out = append(out, r)
		}
	}
	return out
}

// Build encodes products into a new index. It fails if an index is
// already published in Dir; use Rebuild to replace one. An empty catalog
// fails with a configuration error and writes nothing.
func (ix *Index) Build(ctx context.Context, products []models.Product) error {
	return ix.build(ctx, products, false)
}

// Rebuild encodes products into a new version, publishes it atomically and
// removes every other version. Searches keep using the previous version
// until the new one is published.
func (ix *Index) Rebuild(ctx context.Context, products []models.Product) error {
	return ix.build(ctx, products, true)
}

func (ix *Index) build(ctx context.Context, products []models.Product, replace bool) error {
	if len(products) == 0 {
		return matcherr.Wrap(matcherr.ErrConfiguration, "cannot build an index from an empty catalog")
	}
	if !ix.buildMu.TryLock() {
		return matcherr.Wrap(matcherr.ErrPrecondition, "an index build is already running")
	}
	defer ix.buildMu.Unlock()

	if err := os.MkdirAll(ix.cfg.Dir, 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	lock, err := acquireBuildLock(ix.cfg.Dir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.release(); err != nil {
			ix.logger.Warn().Err(err).Msg("release build lock")
		}
	}()

	if !replace {
		current, err := readCurrent(ix.cfg.Dir)
		if err != nil {
			return err
		}
		if current != "" {
			return matcherr.Wrapf(matcherr.ErrPrecondition, "an index is already published in %s; use rebuild", ix.cfg.Dir)
		}
	}

	start := time.Now()
	snap, err := ix.writeVersion(ctx, products)
	if err != nil {
		return err
	}
	ix.current.Store(snap)
	ix.logger.Info().
		Str("version", snap.manifest.Version).
		Str("model", snap.manifest.ModelID).
		Int("rows", snap.manifest.Rows).
		Dur("duration", time.Since(start)).
		Msg("index published")

	if replace {
		ix.prune(snap.manifest.Version)
	}
	return nil
}

// writeVersion stages a complete version, moves it into versions/ and
// points CURRENT at it.
func (ix *Index) writeVersion(ctx context.Context, products []models.Product) (*snapshot, error) {
	id := uuid.New().String()
	versionsRoot := filepath.Join(ix.cfg.Dir, versionsDir)
	if err := os.MkdirAll(versionsRoot, 0755); err != nil {
		return nil, fmt.Errorf("create versions dir: %w", err)
	}
	staging := filepath.Join(versionsRoot, ".staging-"+id)
	published := false
	defer func() {
		if !published {
			_ = os.RemoveAll(staging)
		}
	}()

	store, err := CreateChromemStore(filepath.Join(staging, vectorsDir), ix.cfg.Compress)
	if err != nil {
		return nil, err
	}
	if err := ix.encodeInto(ctx, store, products); err != nil {
		return nil, err
	}
	if err := store.Close(); err != nil {
		return nil, fmt.Errorf("close vector store: %w", err)
	}

	rows := make([]models.ProductMetadata, len(products))
	for i, p := range products {
		rows[i] = models.NewProductMetadata(i, p)
	}
	mdb, err := db.New(db.DefaultConfig(filepath.Join(staging, metadataFile)))
	if err != nil {
		return nil, fmt.Errorf("create metadata store: %w", err)
	}
	if err := mdb.InsertProducts(rows); err != nil {
		_ = mdb.Close()
		return nil, err
	}
	if err := mdb.Close(); err != nil {
		return nil, fmt.Errorf("close metadata store: %w", err)
	}

	manifest := Manifest{
		FormatVersion:   FormatVersion,
		Version:         id,
		ModelID:         ix.model.ModelID(),
		Dimension:       ix.model.Dimension(),
		Rows:            len(products),
		CatalogChecksum: catalog.Checksum(products),
		CreatedAt:       time.Now().UTC(),
	}
	if err := writeManifest(staging, manifest); err != nil {
		return nil, err
	}

	final := filepath.Join(versionsRoot, id)
	if err := os.Rename(staging, final); err != nil {
		return nil, fmt.Errorf("move index version into place: %w", err)
	}
	published = true

	snap, err := ix.openVersion(final)
	if err != nil {
		_ = os.RemoveAll(final)
		return nil, err
	}
	if err := writeCurrent(ix.cfg.Dir, id); err != nil {
		_ = os.RemoveAll(final)
		return nil, err
	}
	return snap, nil
}

func (ix *Index) encodeInto(ctx context.Context, store VectorStore, products []models.Product) error {
	dim := ix.model.Dimension()
	total := len(products)
	for start := 0; start < total; start += ix.cfg.BatchSize {
		end := start + ix.cfg.BatchSize
		if end > total {
			end = total
		}
		texts := make([]string, end-start)
		for i := range texts {
			texts[i] = PrepareContent(products[start+i])
		}
		vecs, err := ix.model.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("encode rows %d-%d: %w", start, end, err)
		}
		if len(vecs) != len(texts) {
			return fmt.Errorf("model returned %d vectors for %d texts", len(vecs), len(texts))
		}

		docs := make([]Document, len(texts))
		for i, v := range vecs {
			row := start + i
			if len(v) != dim {
				return fmt.Errorf("row %d: model returned dimension %d, want %d", row, len(v), dim)
			}
			unit := embedding.Normalize(v)
			if isZero(unit) {
				return fmt.Errorf("row %d: model returned a zero vector", row)
			}
			docs[i] = Document{Row: row, Vector: unit, Content: texts[i], Code: products[row].Code}
		}
		if err := store.Add(ctx, docs); err != nil {
			return err
		}
		if ix.onProgress != nil {
			ix.onProgress(end, total)
		}
	}
	return nil
}

// Load opens the published version in Dir. On any inconsistency between
// manifest, vectors and metadata it fails with an integrity error and the
// index state is unchanged.
func (ix *Index) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := readCurrent(ix.cfg.Dir)
	if err != nil {
		return err
	}
	if id == "" {
		return matcherr.Wrapf(matcherr.ErrIntegrity, "no published index in %s", ix.cfg.Dir)
	}
	snap, err := ix.openVersion(filepath.Join(ix.cfg.Dir, versionsDir, id))
	if err != nil {
		return err
	}
	ix.current.Store(snap)
	ix.logger.Debug().Str("version", id).Int("rows", len(snap.rows)).Msg("index loaded")
	return nil
}

func (ix *Index) openVersion(dir string) (*snapshot, error) {
	manifest, err := readManifest(dir)
	if err != nil {
		return nil, err
	}
	if manifest.ModelID != ix.model.ModelID() {
		return nil, matcherr.Wrapf(matcherr.ErrIntegrity,
			"index was built with model %s but the active model is %s; rebuild the index", manifest.ModelID, ix.model.ModelID())
	}

	store, err := OpenChromemStore(filepath.Join(dir, vectorsDir), ix.cfg.Compress)
	if err != nil {
		return nil, matcherr.WrapErr(matcherr.ErrIntegrity, "open vectors", err)
	}

	mdb, err := db.Open(db.DefaultConfig(filepath.Join(dir, metadataFile)))
	if err != nil {
		return nil, matcherr.WrapErr(matcherr.ErrIntegrity, "open metadata", err)
	}
	defer func() { _ = mdb.Close() }()
	rows, err := mdb.AllProducts()
	if err != nil {
		return nil, matcherr.WrapErr(matcherr.ErrIntegrity, "read metadata", err)
	}

	if store.Count() != manifest.Rows || len(rows) != manifest.Rows {
		return nil, matcherr.Wrapf(matcherr.ErrIntegrity,
			"row count mismatch: manifest %d, vectors %d, metadata %d", manifest.Rows, store.Count(), len(rows))
	}
	for i, r := range rows {
		if r.Row != i {
			return nil, matcherr.Wrapf(matcherr.ErrIntegrity, "metadata row %d found at position %d", r.Row, i)
		}
	}
	products := make([]models.Product, len(rows))
	for i, r := range rows {
		products[i] = r.Product()
	}
	if sum := catalog.Checksum(products); sum != manifest.CatalogChecksum {
		return nil, matcherr.Wrapf(matcherr.ErrIntegrity,
			"metadata checksum %s does not match manifest catalog checksum %s", sum, manifest.CatalogChecksum)
	}
	return &snapshot{manifest: manifest, store: store, rows: rows}, nil
}

// prune removes every version directory except keep.
func (ix *Index) prune(keep string) {
	root := filepath.Join(ix.cfg.Dir, versionsDir)
	entries, err := os.ReadDir(root)
	if err != nil {
		ix.logger.Warn().Err(err).Msg("list index versions")
		return
	}
	for _, e := range entries {
		if e.Name() == keep {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
			ix.logger.Warn().Err(err).Str("version", e.Name()).Msg("remove old index version")
		}
	}
}

// Search returns the topK rows with the highest inner product against vec,
// ordered by descending score with ties broken by catalog row.
func (ix *Index) Search(ctx context.Context, vec []float32, topK int) ([]Hit, error) {
	snap := ix.current.Load()
	if snap == nil {
		return nil, matcherr.Wrap(matcherr.ErrPrecondition, "index is not ready; build or load it first")
	}
	if topK < 1 {
		return nil, matcherr.Wrapf(matcherr.ErrPrecondition, "top_k must be >= 1, got %d", topK)
	}
	if len(vec) != snap.manifest.Dimension {
		return nil, matcherr.Wrapf(matcherr.ErrPrecondition,
			"query dimension %d does not match index dimension %d", len(vec), snap.manifest.Dimension)
	}
	count := snap.store.Count()
	if count == 0 {
		return nil, matcherr.Wrap(matcherr.ErrPrecondition, "index is empty")
	}
	query := embedding.Normalize(vec)
	if isZero(query) {
		return nil, matcherr.Wrap(matcherr.ErrPrecondition, "query vector is zero")
	}

	// Fetch one extra row. While it ties with the last kept row, rows
	// with lower catalog position may be missing, so widen the fetch.
	n := min(topK+1, count)
	var hits []SearchHit
	for {
		var err error
		hits, err = snap.store.Query(ctx, query, n)
		if err != nil {
			return nil, err
		}
		sortHits(hits)
		if len(hits) > topK && n < count && hits[len(hits)-1].Score == hits[topK-1].Score {
			n = min(2*n, count)
			continue
		}
		break
	}
	if len(hits) > topK {
		hits = hits[:topK]
	}

	out := make([]Hit, len(hits))
	for i, h := range hits {
		if h.Row < 0 || h.Row >= len(snap.rows) {
			return nil, matcherr.Wrapf(matcherr.ErrIntegrity, "vector row %d has no metadata", h.Row)
		}
		row := snap.rows[h.Row]
		if h.ContentHash != ContentHash(PrepareContent(row.Product())) {
			return nil, matcherr.Wrapf(matcherr.ErrIntegrity, "vector row %d does not match its metadata", h.Row)
		}
		out[i] = Hit{Row: h.Row, Score: h.Score, Product: row}
	}
	return out, nil
}

func sortHits(hits []SearchHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Row < hits[j].Row
	})
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
