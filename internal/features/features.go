// Package features derives structured attributes from catalog products.
//
// Extraction is a pure function of the product text: a category prefix taken
// from the code, ordered dimension pairs, material keywords and a seal
// sub-type. Missing inputs yield empty features, never errors.
package features

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/asteroid-belt/partmatch/internal/models"
)

// Subtype is the resolved kind of a seal product.
type Subtype string

// Seal sub-types. SubtypeNone means no seal keyword is present at all;
// SubtypeUnset means a seal keyword is present but no rule resolved it.
const (
	SubtypeUnset    Subtype = ""
	SubtypeNone     Subtype = "none"
	SubtypeDuroSeal Subtype = "duro_seal"
	SubtypeFoamSeal Subtype = "foam_seal"
	SubtypeEndSeal  Subtype = "end_seal"
	SubtypeSideSeal Subtype = "side_seal"
)

// Known reports whether s is one of the four resolved seal sub-types.
func (s Subtype) Known() bool {
	switch s {
	case SubtypeDuroSeal, SubtypeFoamSeal, SubtypeEndSeal, SubtypeSideSeal:
		return true
	}
	return false
}

func (s Subtype) String() string {
	if s == SubtypeUnset {
		return "unset"
	}
	return string(s)
}

// Dimension is a numeric pair such as 40x0.2. Length-only matches leave
// the second component missing.
type Dimension struct {
	First     float64
	Second    float64
	HasSecond bool
}

// Features are the attributes the similarity rules compare.
type Features struct {
	Category   string
	Dimensions []Dimension
	Materials  []string
	Subtype    Subtype
	FullText   string
}

// Primary returns the first extracted dimension.
func (f Features) Primary() (Dimension, bool) {
	if len(f.Dimensions) == 0 {
		return Dimension{}, false
	}
	return f.Dimensions[0], true
}

// HasMaterial reports whether tag is among the matched materials.
func (f Features) HasMaterial(tag string) bool {
	i := sort.SearchStrings(f.Materials, tag)
	return i < len(f.Materials) && f.Materials[i] == tag
}

// Extract computes the features of p.
func Extract(p models.Product) Features {
	text := p.FeatureText()
	lower := strings.ToLower(text)
	return Features{
		Category:   Category(p.Code),
		Dimensions: Dimensions(text),
		Materials:  Materials(lower),
		Subtype:    SealSubtype(lower),
		FullText:   p.FullText(),
	}
}

// Category returns the leading run of uppercase letters of code, or "" when
// code is empty or starts with anything else.
func Category(code string) string {
	code = strings.TrimSpace(code)
	end := 0
	for i, r := range code {
		if !unicode.IsUpper(r) {
			break
		}
		end = i + len(string(r))
	}
	return code[:end]
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
