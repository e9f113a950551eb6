package types

import (
	"errors"
	"fmt"
)

// Engine error kinds. Every error returned by a Store operation wraps at most
// one of these; callers match with errors.Is.
var (
	// ErrNotFound reports a missing class, object, link type or link.
	ErrNotFound = errors.New("not found")

	// ErrConflict reports a duplicate link type or link, or a write that lost
	// a race with a concurrent transaction.
	ErrConflict = errors.New("conflict")

	// ErrCapacityExceeded is the Conflict raised by the capacity guard.
	ErrCapacityExceeded = fmt.Errorf("capacity exceeded: %w", ErrConflict)

	// ErrInvariantViolation reports a missing or divergent mirror row. It
	// indicates prior corruption and is never converted to ErrNotFound.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrInvalidArgument reports a request that failed validation.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// IsUserError reports whether err is an expected, caller-recoverable outcome.
func IsUserError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInvalidArgument)
}
