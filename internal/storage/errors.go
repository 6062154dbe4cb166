package storage

import "errors"

// Metadata cache errors. Entries are written once and never updated.
var (
	// ErrNotFound is returned when no entry exists for a mint.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned by Insert when the mint is already cached.
	// The first writer wins; callers read the stored entry back.
	ErrDuplicateKey = errors.New("duplicate key: metadata entry already exists")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
