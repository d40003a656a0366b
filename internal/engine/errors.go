// internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine's failure taxonomy. Callers classify with
// errors.Is; the HTTP layer maps them to status codes.
var (
	// ErrUnauthorized means the operation requires an authenticated caller
	// identity and none was supplied.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidID means the supplied task identifier is malformed.
	ErrInvalidID = errors.New("invalid task id")

	// ErrNotFound means the task, project, or contact record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means an annotator/reviewer exclusivity rule was violated.
	ErrConflict = errors.New("assignment conflict")

	// ErrConfig means a notification template lookup failed.
	ErrConfig = errors.New("template lookup failed")
)

func conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}
