package models

// PairKind identifies the pool a training pair was drawn from.
type PairKind string

// Pair kinds.
const (
	PairPositive         PairKind = "positive"
	PairNegativeCategory PairKind = "negative_category"
	PairNegativeSubtype  PairKind = "negative_subtype"
	PairAugmented        PairKind = "augmented"
)

// TrainingPair is a supervised example for fine-tuning: two texts and a
// target similarity in [0, 1].
type TrainingPair struct {
	TextA string   `json:"text_a"`
	TextB string   `json:"text_b"`
	Label float32  `json:"label"`
	Kind  PairKind `json:"kind,omitempty"`
}

// IsNegative reports whether the pair came from a hard-negative pool.
func (p TrainingPair) IsNegative() bool {
	return p.Kind == PairNegativeCategory || p.Kind == PairNegativeSubtype
}
