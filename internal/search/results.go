package search

import (
	"github.com/asteroid-belt/partmatch/internal/models"
)

// Method annotates how a candidate was found.
type Method string

const (
	// MethodSemantic is a plain vector match.
	MethodSemantic Method = "semantic"
	// MethodSemanticCode is a vector match whose code also appears in the query.
	MethodSemanticCode Method = "semantic+code"
)

// Candidate is a ranked search result.
type Candidate struct {
	Product models.ProductMetadata `json:"product"`
	Score   float32                `json:"score"`
	Method  Method                 `json:"method"`
}

// Decision is the downstream handling tier for a score.
type Decision string

const (
	DecisionAuto   Decision = "auto"
	DecisionReview Decision = "review"
	DecisionManual Decision = "manual"
)

// Policy holds the decision thresholds consumers apply to scores. Search
// itself never filters by these.
type Policy struct {
	AutoApprove float32 `yaml:"auto_approve" json:"auto_approve"`
	Review      float32 `yaml:"review" json:"review"`
}

// DefaultPolicy returns the standard thresholds.
func DefaultPolicy() Policy {
	return Policy{AutoApprove: 0.90, Review: 0.75}
}

// Decide maps a score to its decision tier.
func Decide(score float32, p Policy) Decision {
	switch {
	case score >= p.AutoApprove:
		return DecisionAuto
	case score >= p.Review:
		return DecisionReview
	default:
		return DecisionManual
	}
}
