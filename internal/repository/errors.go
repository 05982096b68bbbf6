package repository

import "errors"

var (
	// ErrNotFound is returned when a row does not exist or is not owned by the caller.
	ErrNotFound = errors.New("not found")
	// ErrStaleStatus is returned when a compare-and-set status update lost a race.
	ErrStaleStatus = errors.New("status changed concurrently")
)
