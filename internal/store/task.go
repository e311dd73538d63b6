package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/taskwell/taskwell-api/internal/domain"
)

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task to the store.
	// Returns ErrClientIDExists if a task with the same owner and client ID
	// already exists, and validation errors if the task data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its ID, scoped to the owner.
	// Returns ErrTaskNotFound if no matching task exists.
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Task, error)

	// GetByClientID retrieves a task by its caller-supplied client ID,
	// scoped to the owner. Returns ErrTaskNotFound if no matching task exists.
	GetByClientID(ctx context.Context, ownerID uuid.UUID, clientID string) (*domain.Task, error)

	// List returns a page of the owner's tasks ordered by creation time
	// descending, plus the total count for pagination.
	List(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*domain.Task, int, error)

	// Update writes the task back conditionally on expectedVersion: the row
	// is only written if its stored version still equals expectedVersion.
	// The task's Version field must already hold the new (bumped) value.
	// Returns ErrVersionConflict when a concurrent writer got there first
	// and ErrTaskNotFound when the task no longer exists.
	Update(ctx context.Context, task *domain.Task, expectedVersion int) error

	// Delete removes a task row, scoped to the owner.
	// Returns ErrTaskNotFound if no matching task exists.
	Delete(ctx context.Context, ownerID, id uuid.UUID) error

	// WithTx returns a new TaskStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller
	// (typically a service via RunInTransaction).
	WithTx(tx *sql.Tx) TaskStore
}
