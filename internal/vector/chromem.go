package vector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
)

const collectionName = "products"

var errNoEmbedder = errors.New("vectors are computed by the index, not the store")

// noEmbed is installed as the collection embedding function. Every document
// and query arrives with its vector, so it is never expected to run.
func noEmbed(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedder
}

// ChromemStore implements VectorStore using chromem-go.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	dataDir    string
}

// CreateChromemStore creates a new, empty persistent store in dataDir.
func CreateChromemStore(dataDir string, compress bool) (*ChromemStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create vector dir: %w", err)
	}
	db, err := chromem.NewPersistentDB(dataDir, compress)
	if err != nil {
		return nil, fmt.Errorf("create chromem db: %w", err)
	}
	collection, err := db.CreateCollection(collectionName, nil, noEmbed)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &ChromemStore{db: db, collection: collection, dataDir: dataDir}, nil
}

// OpenChromemStore opens an existing store. A missing directory or
// collection is an error rather than an empty store.
func OpenChromemStore(dataDir string, compress bool) (*ChromemStore, error) {
	if _, err := os.Stat(dataDir); err != nil {
		return nil, fmt.Errorf("open vector dir: %w", err)
	}
	db, err := chromem.NewPersistentDB(dataDir, compress)
	if err != nil {
		return nil, fmt.Errorf("open chromem db: %w", err)
	}
	collection := db.GetCollection(collectionName, noEmbed)
	if collection == nil {
		return nil, fmt.Errorf("collection %q not found in %s", collectionName, dataDir)
	}
	return &ChromemStore{db: db, collection: collection, dataDir: dataDir}, nil
}

// Add implements VectorStore.
func (s *ChromemStore) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	batch := make([]chromem.Document, len(docs))
	for i, d := range docs {
		batch[i] = chromem.Document{
			ID:        strconv.Itoa(d.Row),
			Content:   d.Content,
			Embedding: d.Vector,
			Metadata: map[string]string{
				"row":          strconv.Itoa(d.Row),
				"code":         d.Code,
				"content_hash": ContentHash(d.Content),
			},
		}
	}
	if err := s.collection.AddDocuments(ctx, batch, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

// Query implements VectorStore. n is capped to the collection size.
func (s *ChromemStore) Query(ctx context.Context, vec []float32, n int) ([]SearchHit, error) {
	count := s.collection.Count()
	if n > count {
		n = count
	}
	if n <= 0 {
		return []SearchHit{}, nil
	}

	results, err := s.collection.QueryEmbedding(ctx, vec, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		row, err := strconv.Atoi(r.ID)
		if err != nil {
			return nil, fmt.Errorf("corrupt document id %q: %w", r.ID, err)
		}
		hits = append(hits, SearchHit{
			Row:         row,
			Score:       r.Similarity,
			ContentHash: r.Metadata["content_hash"],
		})
	}
	return hits, nil
}

// Count implements VectorStore.
func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

// Close implements VectorStore.
func (s *ChromemStore) Close() error {
	// chromem-go writes documents as they are added; nothing to flush.
	return nil
}
