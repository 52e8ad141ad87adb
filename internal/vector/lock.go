package vector

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/asteroid-belt/partmatch/internal/matcherr"
)

// buildLock is an advisory lock file held for the duration of a build. It
// serialises builds across processes sharing an index directory.
type buildLock struct {
	path string
}

func acquireBuildLock(root string) (*buildLock, error) {
	path := filepath.Join(root, lockFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if os.IsExist(err) {
		return nil, matcherr.Wrapf(matcherr.ErrPrecondition,
			"another index build holds %s (remove it if no build is running)", path)
	}
	if err != nil {
		return nil, fmt.Errorf("create build lock: %w", err)
	}
	_, _ = fmt.Fprintf(f, "pid=%d started=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write build lock: %w", err)
	}
	return &buildLock{path: path}, nil
}

func (l *buildLock) release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release build lock: %w", err)
	}
	return nil
}
