// Package pairs synthesizes labeled training pairs from an unlabeled
// catalog using the similarity rules.
//
// Four pools are produced: positives between similar products, hard
// negatives across categories, hard negatives across seal sub-types, and
// augmented variants of each product's own text. The pools are merged and
// shuffled into one example set.
package pairs

import (
	"math/rand"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/asteroid-belt/partmatch/internal/features"
	"github.com/asteroid-belt/partmatch/internal/matcherr"
	"github.com/asteroid-belt/partmatch/internal/models"
)

// Stats counts the pairs emitted per pool.
type Stats struct {
	Products          int `json:"products"`
	Positives         int `json:"positives"`
	CategoryNegatives int `json:"category_negatives"`
	SubtypeNegatives  int `json:"subtype_negatives"`
	Augmented         int `json:"augmented"`
	Total             int `json:"total"`
}

// Result is a generated example set.
type Result struct {
	Pairs []models.TrainingPair
	Stats Stats
}

// Generator builds training pairs. It is not safe for concurrent use.
type Generator struct {
	cfg    Config
	rng    *rand.Rand
	logger zerolog.Logger
}

// New creates a generator. Zero config fields take their defaults.
func New(cfg Config, logger zerolog.Logger) *Generator {
	cfg = cfg.withDefaults()
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger,
	}
}

// Config returns the effective configuration.
func (g *Generator) Config() Config {
	return g.cfg
}

// Generate produces the pooled, shuffled example set for products.
//
// Positive generation compares each product with the rest of the catalog,
// which is quadratic in catalog size and dominates generation time.
// Bucketing by category and sub-type prunes most comparisons on real
// catalogs but the worst case stays O(N²).
func (g *Generator) Generate(products []models.Product) (*Result, error) {
	if len(products) == 0 {
		return nil, matcherr.Wrap(matcherr.ErrConfiguration, "cannot generate pairs from an empty catalog")
	}

	feats := make([]features.Features, len(products))
	for i, p := range products {
		feats[i] = features.Extract(p)
	}

	positives := g.positives(feats)
	catNegatives := g.categoryNegatives(feats, int(g.cfg.NegativeRatio*float64(len(positives))))
	subNegatives := g.subtypeNegatives(feats)
	augmented := g.augmented(products)

	all := make([]models.TrainingPair, 0, len(positives)+len(catNegatives)+len(subNegatives)+len(augmented))
	all = append(all, positives...)
	all = append(all, catNegatives...)
	all = append(all, subNegatives...)
	all = append(all, augmented...)
	g.rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })

	stats := Stats{
		Products:          len(products),
		Positives:         len(positives),
		CategoryNegatives: len(catNegatives),
		SubtypeNegatives:  len(subNegatives),
		Augmented:         len(augmented),
		Total:             len(all),
	}
	g.logger.Info().
		Int("products", stats.Products).
		Int("positives", stats.Positives).
		Int("category_negatives", stats.CategoryNegatives).
		Int("subtype_negatives", stats.SubtypeNegatives).
		Int("augmented", stats.Augmented).
		Msg("generated training pairs")

	return &Result{Pairs: all, Stats: stats}, nil
}

func (g *Generator) positives(feats []features.Features) []models.TrainingPair {
	var out []models.TrainingPair
	for i, hits := range positiveMatches(feats, g.cfg.PositiveCap) {
		for _, j := range hits {
			if feats[i].FullText == "" || feats[j].FullText == "" {
				continue
			}
			out = append(out, models.TrainingPair{
				TextA: feats[i].FullText,
				TextB: feats[j].FullText,
				Label: g.uniform(g.cfg.PositiveLabel-g.cfg.PositiveJitter, g.cfg.PositiveLabel+g.cfg.PositiveJitter),
				Kind:  models.PairPositive,
			})
		}
	}
	return out
}

func (g *Generator) categoryNegatives(feats []features.Features, limit int) []models.TrainingPair {
	var out []models.TrainingPair
	order := g.rng.Perm(len(feats))
	for k := 0; k+1 < len(order) && len(out) < limit; k++ {
		a, b := feats[order[k]], feats[order[k+1]]
		if a.Category == "" || b.Category == "" || a.Category == b.Category {
			continue
		}
		out = append(out, models.TrainingPair{
			TextA: a.FullText,
			TextB: b.FullText,
			Label: g.uniform(0, g.cfg.NegativeLabelMax),
			Kind:  models.PairNegativeCategory,
		})
	}
	return out
}

var subtypeOrder = []features.Subtype{
	features.SubtypeDuroSeal,
	features.SubtypeFoamSeal,
	features.SubtypeEndSeal,
	features.SubtypeSideSeal,
}

func (g *Generator) subtypeNegatives(feats []features.Features) []models.TrainingPair {
	groups := make(map[features.Subtype][]int)
	for i, f := range feats {
		if f.Subtype.Known() {
			groups[f.Subtype] = append(groups[f.Subtype], i)
		}
	}

	var out []models.TrainingPair
	for x := 0; x < len(subtypeOrder); x++ {
		for y := x + 1; y < len(subtypeOrder); y++ {
			left := g.sample(groups[subtypeOrder[x]], g.cfg.SubtypeSampleA)
			right := g.sample(groups[subtypeOrder[y]], g.cfg.SubtypeSampleB)
			for _, i := range left {
				for _, j := range right {
					out = append(out, models.TrainingPair{
						TextA: feats[i].FullText,
						TextB: feats[j].FullText,
						Label: g.uniform(0, g.cfg.SubtypeLabelMax),
						Kind:  models.PairNegativeSubtype,
					})
				}
			}
		}
	}
	return out
}

func (g *Generator) augmented(products []models.Product) []models.TrainingPair {
	var out []models.TrainingPair
	for _, p := range products {
		if p.Code == "" || p.Name == "" {
			continue
		}
		canonical := p.FullText()
		for _, v := range Variants(p) {
			out = append(out, models.TrainingPair{
				TextA: v,
				TextB: canonical,
				Label: float32(g.cfg.AugmentLabel),
				Kind:  models.PairAugmented,
			})
		}
	}
	return out
}

// Variants returns distinct surface variants of p's canonical text: code
// only, name only, case changes, the code split at letter/digit boundaries
// and the name without whitespace. Variants equal to the canonical text are
// dropped.
func Variants(p models.Product) []string {
	canonical := p.FullText()
	candidates := []string{
		p.Code,
		p.Name,
		strings.ToLower(canonical),
		strings.ToUpper(canonical),
		SplitCode(p.Code) + " " + p.Name,
		p.Code + " " + strings.Join(strings.Fields(p.Name), ""),
	}

	seen := map[string]bool{canonical: true}
	var out []string
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// SplitCode inserts spaces at letter/digit boundaries: "SDS007H" becomes
// "SDS 007 H".
func SplitCode(code string) string {
	var b strings.Builder
	var prev rune
	for i, r := range code {
		if i > 0 && (unicode.IsLetter(prev) && unicode.IsDigit(r) || unicode.IsDigit(prev) && unicode.IsLetter(r)) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

func (g *Generator) sample(rows []int, n int) []int {
	if len(rows) <= n {
		return rows
	}
	out := make([]int, n)
	for i, k := range g.rng.Perm(len(rows))[:n] {
		out[i] = rows[k]
	}
	return out
}

func (g *Generator) uniform(lo, hi float64) float32 {
	lo = clamp01(lo)
	hi = clamp01(hi)
	return float32(lo + g.rng.Float64()*(hi-lo))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
