package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Parsed returns the build version as semver, or nil for dev builds.
func Parsed() *semver.Version {
	v, err := semver.NewVersion(Version)
	if err != nil {
		return nil
	}
	return v
}

// IsDevBuild returns true if this is a development build (no valid semver).
func IsDevBuild() bool {
	return Parsed() == nil
}

// SameMajor reports whether two format versions share a major version.
// Persisted artifacts stay readable across minor and patch bumps.
func SameMajor(got, want string) (bool, error) {
	gv, err := semver.NewVersion(got)
	if err != nil {
		return false, fmt.Errorf("parse version %q: %w", got, err)
	}
	wv, err := semver.NewVersion(want)
	if err != nil {
		return false, fmt.Errorf("parse version %q: %w", want, err)
	}
	return gv.Major() == wv.Major(), nil
}
