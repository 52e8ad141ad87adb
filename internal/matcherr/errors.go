// Package matcherr defines the error kinds shared by the matching engine.
package matcherr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned for missing or invalid inputs such as an
	// unreadable catalog or an empty product list.
	ErrConfiguration = errors.New("configuration error")

	// ErrIntegrity is returned when persisted artifacts are missing, corrupt,
	// or inconsistent with each other.
	ErrIntegrity = errors.New("integrity error")

	// ErrPrecondition is returned when an operation is invoked in a state or
	// with arguments it does not accept.
	ErrPrecondition = errors.New("precondition failed")
)

// Wrap annotates kind with a message. The result matches kind via errors.Is.
func Wrap(kind error, msg string) error {
	return fmt.Errorf("%w: %s", kind, msg)
}

// Wrapf is Wrap with formatting.
func Wrapf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// WrapErr annotates kind with msg and keeps cause in the chain, so both
// errors.Is(err, kind) and errors.Is(err, cause) hold.
func WrapErr(kind error, msg string, cause error) error {
	return fmt.Errorf("%w: %s: %w", kind, msg, cause)
}

// Kind returns the engine error kind of err, or nil when err carries none.
func Kind(err error) error {
	for _, k := range []error{ErrConfiguration, ErrIntegrity, ErrPrecondition} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// KindName returns a short label for the kind of err: "configuration",
// "integrity", "precondition", or "internal" for anything else.
func KindName(err error) string {
	switch Kind(err) {
	case ErrConfiguration:
		return "configuration"
	case ErrIntegrity:
		return "integrity"
	case ErrPrecondition:
		return "precondition"
	default:
		return "internal"
	}
}
