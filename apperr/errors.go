// Package apperr defines the sentinel errors shared across services and
// handlers. Callers match them with errors.Is; handlers translate them
// into HTTP status codes in one place.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument covers missing or malformed required fields and
	// out-of-enum values.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnauthenticated covers missing/invalid/expired tokens and bad
	// credentials.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden means the caller is authenticated but the policy
	// denies the action.
	ErrForbidden = errors.New("forbidden")

	ErrNotFound = errors.New("not found")

	// ErrConflict covers duplicate account sign-up.
	ErrConflict = errors.New("conflict")
)

// Wrap attaches a human-readable message to a sentinel so that both
// errors.Is matching and the message survive propagation.
func Wrap(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{sentinel}, args...)...)
}
