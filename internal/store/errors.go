package store

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicate is returned when an insert violates a unique constraint,
	// e.g. a second template for the same external message id.
	ErrDuplicate = errors.New("store: duplicate")
)
