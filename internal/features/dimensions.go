package features

import (
	"regexp"
	"sort"
)

var (
	pairPattern   = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*[xX×*]\s*(\d+(?:[.,]\d+)?)`)
	lengthPattern = regexp.MustCompile(`(?i)\b(?:length|länge|laenge)\s*[:=]?\s*(\d+(?:[.,]\d+)?)`)
)

type span struct {
	start, end int
	dim        Dimension
}

// Dimensions returns every numeric pair and length value in text, in order
// of appearance. A length whose number is part of a pair is not repeated.
func Dimensions(text string) []Dimension {
	var spans []span
	for _, m := range pairPattern.FindAllStringSubmatchIndex(text, -1) {
		a, okA := parseNumber(text[m[2]:m[3]])
		b, okB := parseNumber(text[m[4]:m[5]])
		if !okA || !okB {
			continue
		}
		spans = append(spans, span{start: m[0], end: m[1], dim: Dimension{First: a, Second: b, HasSecond: true}})
	}
	pairs := len(spans)
	for _, m := range lengthPattern.FindAllStringSubmatchIndex(text, -1) {
		if overlaps(spans[:pairs], m[2], m[3]) {
			continue
		}
		v, ok := parseNumber(text[m[2]:m[3]])
		if !ok {
			continue
		}
		spans = append(spans, span{start: m[0], end: m[1], dim: Dimension{First: v}})
	}
	if len(spans) == 0 {
		return nil
	}

	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	dims := make([]Dimension, len(spans))
	for i, s := range spans {
		dims[i] = s.dim
	}
	return dims
}

func overlaps(spans []span, start, end int) bool {
	for _, s := range spans {
		if start < s.end && s.start < end {
			return true
		}
	}
	return false
}
