package store

import "errors"

var (
	// ErrLockTimeout is returned when a path lock is still held after the retry budget.
	ErrLockTimeout = errors.New("docfs: lock timeout")

	// ErrValidation is returned when a validator rejects a document on write, or on read
	// with ValidateOnRead enabled. Writes that fail validation perform no I/O.
	ErrValidation = errors.New("docfs: validation failed")

	// ErrWriteFailed is returned for filesystem failures while writing a document.
	// The previous version of the document, if any, is left untouched.
	ErrWriteFailed = errors.New("docfs: write failed")

	// ErrParse is returned when a document file does not contain valid JSON.
	ErrParse = errors.New("docfs: malformed document")

	// ErrPath is returned for collection names, ids or paths that are empty, malformed,
	// or resolve outside the base directory.
	ErrPath = errors.New("docfs: invalid path")

	// ErrInvalidOp is reported by batches for operations missing required fields or
	// carrying an unknown type.
	ErrInvalidOp = errors.New("docfs: invalid batch operation")
)
