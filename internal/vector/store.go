// Package vector builds, persists and serves the catalog vector index.
//
// An index version is a directory holding three artifacts written together:
// the vectors (a chromem-go persistent collection), the row-aligned product
// metadata (SQLite through GORM) and a manifest tying both to the embedding
// model. A CURRENT pointer names the published version.
package vector

import "context"

// VectorStore persists row vectors and answers nearest-neighbour queries.
type VectorStore interface {
	// Add stores documents. Vectors must be unit length.
	Add(ctx context.Context, docs []Document) error

	// Query returns the n highest-scoring rows for a unit query vector.
	Query(ctx context.Context, vec []float32, n int) ([]SearchHit, error)

	// Count returns the number of stored vectors.
	Count() int

	// Close releases resources.
	Close() error
}

// Document is one catalog row to store.
type Document struct {
	Row     int
	Vector  []float32
	Content string
	Code    string
}

// SearchHit is a row with its inner-product score.
type SearchHit struct {
	Row         int
	Score       float32
	ContentHash string
}
