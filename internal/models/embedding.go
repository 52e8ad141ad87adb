package models

// EmbeddingModelDimensions maps known remote embedding models to their
// output dimensions.
var EmbeddingModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// ModelKind distinguishes base models from fine-tuned artifacts.
type ModelKind string

// Model kinds.
const (
	ModelKindBase      ModelKind = "base"
	ModelKindFineTuned ModelKind = "fine-tuned"
)
