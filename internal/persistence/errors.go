package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique attribute is already taken.
	ErrDuplicate = errors.New("persistence: duplicate")
	// ErrConstraintViolation is returned when a record is missing required attributes.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrTransactionsUnsupported is returned when the backing store cannot
	// commit several writes atomically.
	ErrTransactionsUnsupported = errors.New("persistence: transactions unsupported")
)
