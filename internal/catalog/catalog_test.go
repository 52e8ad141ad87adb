package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asteroid-belt/partmatch/internal/matcherr"
	"github.com/asteroid-belt/partmatch/internal/models"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Array(t *testing.T) {
	path := writeFile(t, `[
		{"code": " SDS007H ", "name": "Duro Seal W&H Miraflex CR-GRY"},
		{"code": "", "name": "Foam Tape 12x3", "description": "grey"}
	]`)

	products, err := Load(path)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "SDS007H", products[0].Code)
	assert.Equal(t, "Foam Tape 12x3", products[1].Name)
	assert.Equal(t, "grey", products[1].Description)
}

func TestLoad_Envelope(t *testing.T) {
	path := writeFile(t, `{"products": [{"code": "BLD100", "name": "Doctor Blade 40x0.2", "display_name": "Blade"}]}`)

	products, err := Load(path)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Blade", products[0].DisplayName)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"empty array", "[]"},
		{"empty envelope", `{"products": []}`},
		{"invalid json", `[{"code": }`},
		{"scalar", `"nope"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.content))
			assert.ErrorIs(t, err, matcherr.ErrConfiguration)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, matcherr.ErrConfiguration)
}

func TestChecksum(t *testing.T) {
	a := []models.Product{{Code: "A1", Name: "one"}, {Code: "B2", Name: "two"}}
	b := []models.Product{{Code: "B2", Name: "two"}, {Code: "A1", Name: "one"}}

	assert.Len(t, Checksum(a), 16)
	assert.Equal(t, Checksum(a), Checksum(a))
	assert.NotEqual(t, Checksum(a), Checksum(b), "order is part of the fingerprint")
}
