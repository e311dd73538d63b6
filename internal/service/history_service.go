package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/taskwell/taskwell-api/internal/domain"
	"github.com/taskwell/taskwell-api/internal/platform/logger"
	"github.com/taskwell/taskwell-api/internal/store"
)

// HistoryService exposes the audit log: querying past lifecycle actions,
// restoring deleted tasks from their snapshots, and purging entries past
// retention.
type HistoryService interface {
	// Query returns a page of the owner's history entries matching the
	// filter, newest first, plus the total matching count.
	Query(ctx context.Context, ownerID uuid.UUID, filter store.HistoryFilter, page, pageSize int) ([]*domain.HistoryEntry, int, error)

	// Get retrieves a single history entry by ID.
	Get(ctx context.Context, ownerID, entryID uuid.UUID) (*domain.HistoryEntry, error)

	// Restore recreates a deleted task from its history snapshot. Each
	// entry can be restored at most once; a second attempt, including a
	// concurrent one, fails with ErrNotRestorable.
	Restore(ctx context.Context, ownerID, entryID uuid.UUID) (*domain.Task, error)

	// Purge deletes every entry whose retention deadline is strictly
	// before cutoff and returns the number removed.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

// historyServiceImpl implements the HistoryService interface.
type historyServiceImpl struct {
	history store.HistoryStore
	tasks   store.TaskStore
	tx      store.Transactioner
	logger  *slog.Logger
}

// NewHistoryService creates a new HistoryService.
// It returns an error if any of the required dependencies are nil.
func NewHistoryService(
	history store.HistoryStore,
	tasks store.TaskStore,
	tx store.Transactioner,
	log *slog.Logger,
) (HistoryService, error) {
	if history == nil {
		return nil, fmt.Errorf("%w: history store cannot be nil", domain.ErrValidation)
	}
	if tasks == nil {
		return nil, fmt.Errorf("%w: tasks store cannot be nil", domain.ErrValidation)
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: transactioner cannot be nil", domain.ErrValidation)
	}
	if log == nil {
		log = slog.Default()
	}

	return &historyServiceImpl{
		history: history,
		tasks:   tasks,
		tx:      tx,
		logger:  log.With(slog.String("component", "history_service")),
	}, nil
}

// Query implements HistoryService.Query.
func (s *historyServiceImpl) Query(ctx context.Context, ownerID uuid.UUID, filter store.HistoryFilter, page, pageSize int) ([]*domain.HistoryEntry, int, error) {
	page, pageSize = clampPage(page, pageSize)
	return s.history.List(ctx, ownerID, filter, (page-1)*pageSize, pageSize)
}

// Get implements HistoryService.Get.
func (s *historyServiceImpl) Get(ctx context.Context, ownerID, entryID uuid.UUID) (*domain.HistoryEntry, error) {
	return s.history.GetByID(ctx, ownerID, entryID)
}

// Restore implements HistoryService.Restore. Recreating the task and
// consuming the entry's restore flag commit atomically; MarkRestored's
// conditional update is what makes a concurrent double-restore lose.
func (s *historyServiceImpl) Restore(ctx context.Context, ownerID, entryID uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var restored *domain.Task
	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txHistory := s.history.WithTx(tx)
		txTasks := s.tasks.WithTx(tx)

		entry, err := txHistory.GetByID(ctx, ownerID, entryID)
		if err != nil {
			return err
		}
		if !entry.CanRestore {
			return ErrNotRestorable
		}

		task, err := entry.RestoredTask()
		if err != nil {
			return err
		}
		if err := txTasks.Create(ctx, task); err != nil {
			return err
		}

		if err := txHistory.MarkRestored(ctx, entryID); err != nil {
			// A racing restore consumed the entry between our read and the
			// conditional update.
			if errors.Is(err, store.ErrHistoryNotFound) {
				return ErrNotRestorable
			}
			return err
		}

		restored = task
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotRestorable) || store.IsNotFoundError(err) {
			return nil, err
		}
		return nil, NewHistoryServiceError("restore_task", "failed to restore task", err)
	}

	log.Info("restored task from history",
		slog.String("entry_id", entryID.String()),
		slog.String("task_id", restored.ID.String()))
	return restored, nil
}

// Purge implements HistoryService.Purge and satisfies the scheduler's
// Purger interface for the daily retention cleanup job.
func (s *historyServiceImpl) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	removed, err := s.history.DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, NewHistoryServiceError("purge_history", "failed to purge expired entries", err)
	}

	if removed > 0 {
		log.Info("purged expired history entries",
			slog.Int64("removed", removed),
			slog.Time("cutoff", cutoff))
	}
	return removed, nil
}
