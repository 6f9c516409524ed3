package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidQuote is returned by PriceHistoryStore.Append for malformed
	// or out-of-order quotes. Rejected quotes are never stored and leave
	// history unchanged.
	ErrInvalidQuote = errors.New("invalid quote")
)
