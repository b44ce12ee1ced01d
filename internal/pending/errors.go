package pending

import "errors"

// Registry errors. All of them indicate a programming error in the caller,
// not a user-facing condition.
var (
	// ErrDuplicateID is returned when an id is registered while an entry
	// with the same id is still pending.
	ErrDuplicateID = errors.New("correlation id already pending")

	// ErrInvalidEntry is returned for an empty id or a nil sink.
	ErrInvalidEntry = errors.New("invalid pending entry")

	// ErrClosed is returned by Register after Close.
	ErrClosed = errors.New("pending registry closed")
)
