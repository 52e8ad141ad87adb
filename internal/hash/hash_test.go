package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	id := Text("SDS007H Duro Seal")
	assert.Len(t, id, IDLength)
	assert.Equal(t, id, Text("SDS007H Duro Seal"))
	assert.NotEqual(t, id, Text("SDS007H Duro seal"))
}

func TestDigest_Deterministic(t *testing.T) {
	a := NewDigest()
	a.Record("SDS100", "End Seal")
	a.Record("BLD040", "Doctor Blade")

	b := NewDigest()
	b.Record("SDS100", "End Seal")
	b.Record("BLD040", "Doctor Blade")

	assert.Len(t, a.Sum(), IDLength)
	assert.Equal(t, a.Sum(), b.Sum())
}

func TestDigest_FieldBoundaries(t *testing.T) {
	tests := []struct {
		name string
		a, b [][]string
	}{
		{"split point", [][]string{{"ab", "c"}}, [][]string{{"a", "bc"}}},
		{"record boundary", [][]string{{"a"}, {"b"}}, [][]string{{"a", "b"}}},
		{"empty field", [][]string{{"a", ""}}, [][]string{{"a"}}},
		{"record order", [][]string{{"a"}, {"b"}}, [][]string{{"b"}, {"a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			da, db := NewDigest(), NewDigest()
			for _, r := range tt.a {
				da.Record(r...)
			}
			for _, r := range tt.b {
				db.Record(r...)
			}
			assert.NotEqual(t, da.Sum(), db.Sum())
		})
	}
}
