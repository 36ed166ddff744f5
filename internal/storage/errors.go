package storage

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrConcurrentMutation is returned when a write lost a race with
	// another writer: a debt it meant to retire was already settled, or the
	// database stayed locked past its busy timeout. The caller may retry.
	ErrConcurrentMutation = errors.New("storage: concurrent mutation")

	// ErrAlreadySettled is returned when settling a debt that is already settled.
	ErrAlreadySettled = errors.New("storage: debt already settled")

	// ErrPrecisionChanged is returned when the configured currency precision
	// table differs from the one the stored amounts were written with.
	ErrPrecisionChanged = errors.New("storage: currency precision changed")
)

// IsRetryable reports whether err is a conflict worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentMutation)
}
