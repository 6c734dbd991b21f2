package sqlite

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("storage: not found")

	ErrEmptyText = errors.New("storage: text is empty")
)
