package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/taskwell/taskwell-api/internal/domain"
)

// HistoryFilter narrows a history query. Zero-valued fields are ignored.
type HistoryFilter struct {
	// ActionType limits results to one lifecycle action.
	ActionType domain.ActionType

	// From and To bound the action date (inclusive on both ends).
	From time.Time
	To   time.Time

	// TitleSearch matches entries whose title contains the given substring,
	// case-insensitively.
	TitleSearch string
}

// HistoryStore defines the interface for the append-only audit log.
type HistoryStore interface {
	// Create appends a history entry. Entries are immutable once written;
	// the only later mutation is MarkRestored consuming a restorable entry.
	Create(ctx context.Context, entry *domain.HistoryEntry) error

	// GetByID retrieves a history entry by ID, scoped to the owner.
	// Returns ErrHistoryNotFound if no matching entry exists.
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.HistoryEntry, error)

	// List returns a page of the owner's history entries matching the
	// filter, ordered by action date descending with ID descending as a
	// deterministic tiebreak, plus the total matching count.
	List(ctx context.Context, ownerID uuid.UUID, filter HistoryFilter, offset, limit int) ([]*domain.HistoryEntry, int, error)

	// MarkRestored flips the entry's can_restore flag to false, consuming
	// its one restore. Returns ErrHistoryNotFound if the entry does not
	// exist or is not restorable, so a concurrent double-restore loses.
	MarkRestored(ctx context.Context, id uuid.UUID) error

	// DeleteExpired removes every entry whose retention_until is strictly
	// before cutoff and returns the number removed. An entry whose
	// retention_until equals cutoff is retained.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)

	// WithTx returns a new HistoryStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) HistoryStore
}
