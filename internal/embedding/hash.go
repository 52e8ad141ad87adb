package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultHashDimension is the vector size of the hashing model.
const DefaultHashDimension = 256

const (
	wordWeight    = 1.0
	partWeight    = 0.75
	trigramWeight = 0.5
)

// HashProvider is a deterministic, offline embedding model. Text is NFKC
// normalised and lower-cased, split into word tokens and letter/digit
// parts, and each token plus its character trigrams is hashed into a signed
// bucket of a fixed-size vector.
type HashProvider struct {
	dim int
}

// NewHash creates a hashing model with dim buckets. dim <= 0 selects
// DefaultHashDimension.
func NewHash(dim int) *HashProvider {
	if dim <= 0 {
		dim = DefaultHashDimension
	}
	return &HashProvider{dim: dim}
}

// ModelID implements Provider.
func (p *HashProvider) ModelID() string {
	return fmt.Sprintf("hash-ngram-v1/%d", p.dim)
}

// Dimension implements Provider.
func (p *HashProvider) Dimension() int {
	return p.dim
}

// Embed implements Provider. The result is unit length.
func (p *HashProvider) Embed(_ context.Context, text string) ([]float32, error) {
	return p.vector(text), nil
}

// EmbedBatch implements Provider.
func (p *HashProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.vector(t)
	}
	return out, nil
}

func (p *HashProvider) vector(text string) []float32 {
	vec := make([]float32, p.dim)
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		p.add(vec, "\x00empty", 1)
		return Normalize(vec)
	}
	for _, tok := range tokens {
		p.add(vec, "w:"+tok, wordWeight)
		if parts := splitAlnum(tok); len(parts) > 1 {
			for _, part := range parts {
				p.add(vec, "w:"+part, partWeight)
			}
		}
		for _, tri := range trigrams("#" + tok + "#") {
			p.add(vec, "t:"+tri, trigramWeight)
		}
	}
	return Normalize(vec)
}

func (p *HashProvider) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(p.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// Tokenize normalises text and splits it into lower-case runs of letters
// and digits.
func Tokenize(text string) []string {
	text = strings.ToLower(norm.NFKC.String(text))
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// splitAlnum splits a token at letter/digit transitions.
func splitAlnum(tok string) []string {
	var parts []string
	start := 0
	var prev rune
	for i, r := range tok {
		if i > 0 && unicode.IsDigit(prev) != unicode.IsDigit(r) {
			parts = append(parts, tok[start:i])
			start = i
		}
		prev = r
	}
	return append(parts, tok[start:])
}

func trigrams(s string) []string {
	runes := []rune(s)
	if len(runes) < 3 {
		return []string{s}
	}
	out := make([]string, 0, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		out = append(out, string(runes[i:i+3]))
	}
	return out
}
