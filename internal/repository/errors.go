package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a uniqueness constraint is violated.
	// Callers treat it as a concurrency signal: recompute and retry, never crash.
	ErrDuplicate = errors.New("duplicate: uniqueness constraint violated")

	// ErrForeignKeyViolation is returned when a foreign key constraint fails
	ErrForeignKeyViolation = errors.New("foreign key violation")
)
