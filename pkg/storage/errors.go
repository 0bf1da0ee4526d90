package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when no output has been written under a name.
	ErrNotFound = errors.New("stage output not found")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store closed")
)
