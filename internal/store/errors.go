package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. This is the generic version of the entity-specific not found
	// errors (e.g., ErrTaskNotFound, ErrHistoryNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate of
	// a unique entity (e.g., a task with the same owner and client ID).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrVersionConflict is returned when an optimistic-concurrency write
	// finds that the stored version no longer matches the version the caller
	// read. The caller lost a race with a concurrent writer and should
	// re-read before retrying.
	ErrVersionConflict = errors.New("version conflict")

	// Entity-specific "not found" errors

	// ErrTaskNotFound indicates that the requested task does not exist in the store.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrHistoryNotFound indicates that the requested history entry does not exist in the store.
	ErrHistoryNotFound = fmt.Errorf("%w: history entry", ErrNotFound)

	// ErrJobNotFound indicates that the requested scheduled job does not exist in the store.
	ErrJobNotFound = fmt.Errorf("%w: scheduled job", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrClientIDExists indicates that a task with the given owner and
	// client ID already exists.
	ErrClientIDExists = fmt.Errorf("%w: client ID", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
