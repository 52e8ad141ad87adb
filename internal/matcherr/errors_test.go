package matcherr

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsKind(t *testing.T) {
	err := Wrap(ErrConfiguration, "catalog is empty")
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Equal(t, "configuration error: catalog is empty", err.Error())

	err = Wrapf(ErrPrecondition, "top_k must be >= 1, got %d", 0)
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.Contains(t, err.Error(), "got 0")
}

func TestWrapErrKeepsCause(t *testing.T) {
	err := WrapErr(ErrIntegrity, "open manifest", fs.ErrNotExist)
	assert.ErrorIs(t, err, ErrIntegrity)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"configuration", Wrap(ErrConfiguration, "x"), ErrConfiguration},
		{"integrity", WrapErr(ErrIntegrity, "x", errors.New("boom")), ErrIntegrity},
		{"precondition", ErrPrecondition, ErrPrecondition},
		{"plain", errors.New("other"), nil},
		{"nil", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestKindName(t *testing.T) {
	assert.Equal(t, "configuration", KindName(Wrap(ErrConfiguration, "x")))
	assert.Equal(t, "integrity", KindName(fmt.Errorf("load: %w", Wrap(ErrIntegrity, "x"))))
	assert.Equal(t, "precondition", KindName(Wrap(ErrPrecondition, "x")))
	assert.Equal(t, "internal", KindName(errors.New("boom")))
}
