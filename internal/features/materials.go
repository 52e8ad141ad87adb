package features

import (
	"sort"
	"strings"
)

// materialKeywords maps each canonical material tag to the English and
// German spellings that select it. Matching is by lower-case substring.
var materialKeywords = map[string][]string{
	"stainless": {"stainless", "edelstahl", "rostfrei", "inox"},
	"steel":     {"steel", "stahl"},
	"rubber":    {"rubber", "gummi"},
	"foam":      {"foam", "schaum"},
	"adhesive":  {"adhesive", "klebe", "selbstklebend"},
	"tape":      {"tape", "klebeband"},
	"blade":     {"blade", "klinge", "rakel"},
	"seal":      {"seal", "dichtung"},
	"plastic":   {"plastic", "kunststoff"},
	"felt":      {"felt", "filz"},
}

// MaterialTags returns the canonical material vocabulary, sorted.
func MaterialTags() []string {
	tags := make([]string, 0, len(materialKeywords))
	for tag := range materialKeywords {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Materials returns the sorted set of material tags found in lower.
// The caller lower-cases the text.
func Materials(lower string) []string {
	var found []string
	for tag, words := range materialKeywords {
		for _, w := range words {
			if strings.Contains(lower, w) {
				found = append(found, tag)
				break
			}
		}
	}
	sort.Strings(found)
	return found
}

var sealKeywords = []string{"seal", "dichtung"}

// subtypeRules are checked in order; the first hit wins.
var subtypeRules = []struct {
	needles []string
	subtype Subtype
}{
	{[]string{"duro"}, SubtypeDuroSeal},
	{[]string{"foam", "schaum"}, SubtypeFoamSeal},
	{[]string{"end"}, SubtypeEndSeal},
	{[]string{"side", "seiten"}, SubtypeSideSeal},
}

// SealSubtype resolves the seal sub-type of lower-cased text.
func SealSubtype(lower string) Subtype {
	isSeal := false
	for _, k := range sealKeywords {
		if strings.Contains(lower, k) {
			isSeal = true
			break
		}
	}
	if !isSeal {
		return SubtypeNone
	}
	for _, r := range subtypeRules {
		for _, n := range r.needles {
			if strings.Contains(lower, n) {
				return r.subtype
			}
		}
	}
	return SubtypeUnset
}
