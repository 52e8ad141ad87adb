// Package similarity decides whether two catalog products describe the
// same kind of item, using only extracted features.
//
// Rules are applied in order and the first conflict rejects the pair. A
// feature missing on either side never rejects; only a present, conflicting
// feature does.
package similarity

import (
	"math"

	"github.com/asteroid-belt/partmatch/internal/features"
	"github.com/asteroid-belt/partmatch/internal/models"
)

// DimensionTolerance is the largest relative difference between primary
// dimensions that still counts as similar.
const DimensionTolerance = 0.10

// Rule names the rule that decided a comparison.
type Rule string

// Decision rules, in evaluation order.
const (
	RuleCategory  Rule = "category"
	RuleSubtype   Rule = "subtype"
	RuleDimension Rule = "dimension"
	RuleMaterial  Rule = "material"
	RuleDefault   Rule = "default"
)

// Verdict is the outcome of a comparison.
type Verdict struct {
	Similar bool
	Rule    Rule
}

// Similar reports whether products a and b are semantically related.
func Similar(a, b models.Product) bool {
	return Compare(features.Extract(a), features.Extract(b)).Similar
}

// Compare applies the rules to precomputed features.
func Compare(a, b features.Features) Verdict {
	if a.Category != "" && b.Category != "" && a.Category != b.Category {
		return Verdict{Rule: RuleCategory}
	}
	if a.Subtype.Known() && b.Subtype.Known() && a.Subtype != b.Subtype {
		return Verdict{Rule: RuleSubtype}
	}
	if pa, ok := a.Primary(); ok {
		if pb, ok := b.Primary(); ok && RelativeDifference(pa.First, pb.First) > DimensionTolerance {
			return Verdict{Rule: RuleDimension}
		}
	}
	if len(a.Materials) > 0 && len(b.Materials) > 0 && !intersects(a.Materials, b.Materials) {
		return Verdict{Rule: RuleMaterial}
	}
	return Verdict{Similar: true, Rule: RuleDefault}
}

// RelativeDifference returns |x-y| divided by the larger magnitude, which
// keeps the measure symmetric. Two zeros differ by 0.
func RelativeDifference(x, y float64) float64 {
	denom := math.Max(math.Abs(x), math.Abs(y))
	if denom == 0 {
		return 0
	}
	return math.Abs(x-y) / denom
}

// intersects expects both slices sorted.
func intersects(a, b []string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			return true
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return false
}
