package vector

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/asteroid-belt/partmatch/internal/matcherr"
	"github.com/asteroid-belt/partmatch/pkg/version"
)

// FormatVersion is the on-disk layout version of index versions.
const FormatVersion = "1.0.0"

const (
	manifestFile = "manifest.json"
	metadataFile = "metadata.db"
	vectorsDir   = "vectors"
	currentFile  = "CURRENT"
	versionsDir  = "versions"
	lockFile     = "build.lock"
)

// Manifest ties the artifacts of an index version together.
type Manifest struct {
	FormatVersion   string    `json:"format_version"`
	Version         string    `json:"version"`
	ModelID         string    `json:"model_id"`
	Dimension       int       `json:"dimension"`
	Rows            int       `json:"rows"`
	CatalogChecksum string    `json:"catalog_checksum"`
	CreatedAt       time.Time `json:"created_at"`
}

func writeManifest(dir string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func readManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return m, matcherr.WrapErr(matcherr.ErrIntegrity, "read index manifest", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, matcherr.WrapErr(matcherr.ErrIntegrity, "decode index manifest", err)
	}
	ok, err := version.SameMajor(m.FormatVersion, FormatVersion)
	if err != nil {
		return m, matcherr.WrapErr(matcherr.ErrIntegrity, "index format version", err)
	}
	if !ok {
		return m, matcherr.Wrapf(matcherr.ErrIntegrity, "unsupported index format %s (want %s)", m.FormatVersion, FormatVersion)
	}
	return m, nil
}

// readCurrent returns the published version id, or "" if none.
func readCurrent(root string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, currentFile))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", matcherr.WrapErr(matcherr.ErrIntegrity, "read CURRENT", err)
	}
	return string(trimNewline(data)), nil
}

// writeCurrent publishes id by writing a temp file and renaming it over
// CURRENT.
func writeCurrent(root, id string) error {
	tmp := filepath.Join(root, currentFile+".tmp")
	if err := os.WriteFile(tmp, []byte(id+"\n"), 0644); err != nil {
		return fmt.Errorf("write CURRENT: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(root, currentFile)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish CURRENT: %w", err)
	}
	return nil
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r' || b[len(b)-1] == ' ') {
		b = b[:len(b)-1]
	}
	return b
}
