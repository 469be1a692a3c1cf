package storage

import "errors"

// Storage errors shared by all store implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a record whose key already
	// exists. Exclusive creation is the protocol's race guard: the losing
	// side of a concurrent deposit or grant claim surfaces as this error.
	ErrDuplicateKey = errors.New("duplicate key: record already exists")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStaleUpdate is returned by compare-and-swap updates when the stored
	// value no longer matches the caller's expectation. The caller reloads
	// and retries.
	ErrStaleUpdate = errors.New("stale update: stored value changed")
)
