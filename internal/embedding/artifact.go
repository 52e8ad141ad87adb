package embedding

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/asteroid-belt/partmatch/internal/matcherr"
	"github.com/asteroid-belt/partmatch/internal/models"
	"github.com/asteroid-belt/partmatch/pkg/version"
)

// ArtifactFormat is the on-disk format version of fine-tuned models.
const ArtifactFormat = "1.0.0"

const (
	manifestFile   = "manifest.json"
	projectionFile = "projection.bin"
)

// TrainingInfo records how an artifact was produced.
type TrainingInfo struct {
	Epochs       int     `json:"epochs"`
	BatchSize    int     `json:"batch_size"`
	LearningRate float64 `json:"learning_rate"`
	Pairs        int     `json:"pairs"`
	FinalLoss    float64 `json:"final_loss"`
	Device       string  `json:"device"`
}

// ArtifactManifest describes a persisted fine-tuned model.
type ArtifactManifest struct {
	FormatVersion string           `json:"format_version"`
	ModelID       string           `json:"model_id"`
	BaseModelID   string           `json:"base_model_id"`
	Kind          models.ModelKind `json:"kind"`
	Dimension     int              `json:"dimension"`
	CreatedAt     time.Time        `json:"created_at"`
	Training      TrainingInfo     `json:"training"`
}

// NewModelID returns a fresh identifier for a model fine-tuned from base.
func NewModelID(baseID string) string {
	return baseID + "+ft-" + uuid.New().String()[:8]
}

// SaveAdapter writes the adapter into dir. The artifact is staged in a
// sibling directory and renamed into place, so readers see either the old
// or the new model.
func SaveAdapter(dir string, a *Adapter, info TrainingInfo) error {
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("create model parent dir: %w", err)
	}
	tmp, err := os.MkdirTemp(parent, ".model-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	manifest := ArtifactManifest{
		FormatVersion: ArtifactFormat,
		ModelID:       a.ModelID(),
		BaseModelID:   a.base.ModelID(),
		Kind:          models.ModelKindFineTuned,
		Dimension:     a.dim,
		CreatedAt:     time.Now().UTC(),
		Training:      info,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal model manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, manifestFile), data, 0644); err != nil {
		return fmt.Errorf("write model manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, projectionFile), encodeMatrix(a.weights, a.dim), 0644); err != nil {
		return fmt.Errorf("write projection: %w", err)
	}

	old := dir + ".old"
	_ = os.RemoveAll(old)
	if _, err := os.Stat(dir); err == nil {
		if err := os.Rename(dir, old); err != nil {
			return fmt.Errorf("move previous model: %w", err)
		}
	}
	if err := os.Rename(tmp, dir); err != nil {
		_ = os.Rename(old, dir)
		return fmt.Errorf("publish model: %w", err)
	}
	_ = os.RemoveAll(old)
	return nil
}

// ReadArtifactManifest reads the manifest of the artifact in dir.
func ReadArtifactManifest(dir string) (*ArtifactManifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, matcherr.WrapErr(matcherr.ErrIntegrity, "read model manifest", err)
	}
	var m ArtifactManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, matcherr.WrapErr(matcherr.ErrIntegrity, "decode model manifest", err)
	}
	if err := checkFormat(m.FormatVersion, ArtifactFormat); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadAdapter loads the artifact in dir on top of base. The base model must
// be the one the artifact was trained from.
func LoadAdapter(dir string, base Provider) (*Adapter, error) {
	m, err := ReadArtifactManifest(dir)
	if err != nil {
		return nil, err
	}
	if m.BaseModelID != base.ModelID() {
		return nil, matcherr.Wrapf(matcherr.ErrIntegrity,
			"model %s was trained on %s, configured base model is %s", m.ModelID, m.BaseModelID, base.ModelID())
	}

	data, err := os.ReadFile(filepath.Join(dir, projectionFile))
	if err != nil {
		return nil, matcherr.WrapErr(matcherr.ErrIntegrity, "read projection", err)
	}
	weights, dim, err := decodeMatrix(data)
	if err != nil {
		return nil, err
	}
	if dim != m.Dimension || dim != base.Dimension() {
		return nil, matcherr.Wrapf(matcherr.ErrIntegrity,
			"projection dimension %d does not match manifest %d / base %d", dim, m.Dimension, base.Dimension())
	}
	return NewAdapter(base, m.ModelID, weights)
}

// ArtifactExists reports whether dir holds a model manifest.
func ArtifactExists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, manifestFile))
	return err == nil
}

// encodeMatrix lays out rows, cols as little-endian uint32 followed by the
// row-major float32 values.
func encodeMatrix(w []float32, dim int) []byte {
	buf := make([]byte, 8+4*len(w))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(dim))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(dim))
	for i, v := range w {
		off := 8 + i*4
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
	}
	return buf
}

func decodeMatrix(data []byte) ([]float32, int, error) {
	if len(data) < 8 {
		return nil, 0, matcherr.Wrap(matcherr.ErrIntegrity, "projection file truncated")
	}
	rows := int(binary.LittleEndian.Uint32(data[0:4]))
	cols := int(binary.LittleEndian.Uint32(data[4:8]))
	if rows != cols {
		return nil, 0, matcherr.Wrapf(matcherr.ErrIntegrity, "projection is %dx%d, want square", rows, cols)
	}
	if len(data) != 8+4*rows*cols {
		return nil, 0, matcherr.Wrapf(matcherr.ErrIntegrity, "projection has %d bytes, want %d", len(data), 8+4*rows*cols)
	}
	w := make([]float32, rows*cols)
	for i := range w {
		off := 8 + i*4
		w[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
	}
	return w, rows, nil
}

// checkFormat accepts artifacts with the same major format version.
func checkFormat(got, want string) error {
	ok, err := version.SameMajor(got, want)
	if err != nil {
		return matcherr.WrapErr(matcherr.ErrIntegrity, "model format version", err)
	}
	if !ok {
		return matcherr.Wrapf(matcherr.ErrIntegrity, "unsupported model format %s (want %s)", got, want)
	}
	return nil
}
