package pairs

// Config holds the sampling caps and label ranges of the generator.
type Config struct {
	// PositiveCap limits similar partners collected per product.
	PositiveCap int
	// PositiveLabel and PositiveJitter give the positive label range
	// PositiveLabel ± PositiveJitter, clamped to [0, 1].
	PositiveLabel  float64
	PositiveJitter float64

	// NegativeRatio caps cross-category negatives at ratio × positives.
	NegativeRatio    float64
	NegativeLabelMax float64

	// SubtypeSampleA and SubtypeSampleB bound how many products are drawn
	// from each side of a sub-type pairing.
	SubtypeSampleA  int
	SubtypeSampleB  int
	SubtypeLabelMax float64

	AugmentLabel float64

	// Seed for the sampling source; 0 seeds from the clock.
	Seed int64
}

// DefaultConfig returns the standard sampling setup.
func DefaultConfig() Config {
	return Config{
		PositiveCap:      3,
		PositiveLabel:    0.9,
		PositiveJitter:   0.1,
		NegativeRatio:    2.0,
		NegativeLabelMax: 0.3,
		SubtypeSampleA:   5,
		SubtypeSampleB:   2,
		SubtypeLabelMax:  0.2,
		AugmentLabel:     0.95,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PositiveCap <= 0 {
		c.PositiveCap = d.PositiveCap
	}
	if c.PositiveLabel <= 0 {
		c.PositiveLabel = d.PositiveLabel
	}
	if c.PositiveJitter < 0 {
		c.PositiveJitter = 0
	}
	if c.NegativeRatio <= 0 {
		c.NegativeRatio = d.NegativeRatio
	}
	if c.NegativeLabelMax <= 0 {
		c.NegativeLabelMax = d.NegativeLabelMax
	}
	if c.SubtypeSampleA <= 0 {
		c.SubtypeSampleA = d.SubtypeSampleA
	}
	if c.SubtypeSampleB <= 0 {
		c.SubtypeSampleB = d.SubtypeSampleB
	}
	if c.SubtypeLabelMax <= 0 {
		c.SubtypeLabelMax = d.SubtypeLabelMax
	}
	if c.AugmentLabel <= 0 {
		c.AugmentLabel = d.AugmentLabel
	}
	return c
}
