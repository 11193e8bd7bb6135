package usecase

import "errors"

var (
	// ErrInvalidTransition means the event does not apply to the booking's
	// current state. Nothing is written; callers surface it as a client error.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrConflict means the optimistic version check kept losing races past
	// the retry bound. The caller should re-fetch and retry.
	ErrConflict = errors.New("booking version conflict")

	// ErrNotFound means no booking matched the given identity.
	ErrNotFound = errors.New("booking not found")

	// errVersionMismatch is the internal retryable marker for a single lost
	// conditional write. It never escapes Apply.
	errVersionMismatch = errors.New("version mismatch")
)
