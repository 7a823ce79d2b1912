package storage

import "errors"

// Common client storage errors
var (
	// ErrNotFound indicates that a document (or a revision of it) does not exist,
	// or that all its leaves are tombstones
	ErrNotFound = errors.New("document not found")

	// ErrRevisionConflict indicates that the expected revision is not the current winner
	ErrRevisionConflict = errors.New("revision conflict")

	// ErrAuthNotFound indicates that no session data exists
	ErrAuthNotFound = errors.New("authentication data not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
