package secretary

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates an option or argument failed validation.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates a missing key, profile, or conversation.
	ErrNotFound = errors.New("not found")

	// ErrNotConfigured indicates the backend has no credential set.
	ErrNotConfigured = errors.New("backend not configured")

	// ErrTransport indicates a network or server-side HTTP failure.
	ErrTransport = errors.New("transport error")

	// ErrBackendRejection indicates the backend refused the request for
	// content-safety, quota, or policy reasons.
	ErrBackendRejection = errors.New("backend rejected request")

	// ErrMalformedResponse indicates a response did not match the expected shape.
	ErrMalformedResponse = errors.New("malformed backend response")

	// ErrAuthentication indicates the identity exchange failed.
	ErrAuthentication = errors.New("authentication failed")

	// ErrAlreadyInProgress indicates a sign-in is already outstanding.
	ErrAlreadyInProgress = errors.New("sign-in already in progress")

	// ErrPersistence matches every PersistenceWarning.
	ErrPersistence = errors.New("persistence failure")
)

// PersistenceWarning reports a failed write to the persistence medium. It
// is non-fatal: the in-memory copy stays authoritative.
type PersistenceWarning struct {
	Key string
	Err error
}

func (w *PersistenceWarning) Error() string {
	return fmt.Sprintf("persist %s: %v", w.Key, w.Err)
}

func (w *PersistenceWarning) Unwrap() error { return w.Err }

// Is reports whether target is ErrPersistence.
func (w *PersistenceWarning) Is(target error) bool { return target == ErrPersistence }
