package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskwell/taskwell-api/internal/domain"
	"github.com/taskwell/taskwell-api/internal/domain/recurrence"
	"github.com/taskwell/taskwell-api/internal/store"
)

// PostgresHistoryStore implements the store.HistoryStore interface
// using a PostgreSQL database as the storage backend.
type PostgresHistoryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresHistoryStore creates a new PostgreSQL implementation of the
// HistoryStore interface. If logger is nil, a default logger will be used.
func NewPostgresHistoryStore(db store.DBTX, logger *slog.Logger) *PostgresHistoryStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresHistoryStore{
		db:     db,
		logger: logger.With(slog.String("component", "history_store")),
	}
}

// Ensure PostgresHistoryStore implements store.HistoryStore interface
var _ store.HistoryStore = (*PostgresHistoryStore)(nil)

const historyColumns = `id, owner_id, original_task_id, title, description, completed,
	due_date, recurrence_pattern, action_type, action_date, action_by, can_restore, retention_until`

// Create implements store.HistoryStore.Create.
func (s *PostgresHistoryStore) Create(ctx context.Context, entry *domain.HistoryEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO task_history (` + historyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.OwnerID,
		entry.OriginalTaskID,
		entry.Title,
		entry.Description,
		entry.Completed,
		entry.DueDate,
		patternToString(entry.RecurrencePattern),
		string(entry.ActionType),
		entry.ActionDate,
		entry.ActionBy,
		entry.CanRestore,
		entry.RetentionUntil,
	)
	if err != nil {
		return MapError(err)
	}

	return nil
}

// GetByID implements store.HistoryStore.GetByID.
func (s *PostgresHistoryStore) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.HistoryEntry, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM task_history
		WHERE id = $1 AND owner_id = $2
	`
	entry, err := scanHistoryEntry(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrHistoryNotFound
		}
		return nil, MapError(err)
	}
	return entry, nil
}

// List implements store.HistoryStore.List. Entries come back ordered by
// action date descending with ID descending as a deterministic tiebreak.
func (s *PostgresHistoryStore) List(ctx context.Context, ownerID uuid.UUID, filter store.HistoryFilter, offset, limit int) ([]*domain.HistoryEntry, int, error) {
	conditions := []string{"owner_id = $1"}
	args := []any{ownerID}

	if filter.ActionType != "" {
		args = append(args, string(filter.ActionType))
		conditions = append(conditions, fmt.Sprintf("action_type = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conditions = append(conditions, fmt.Sprintf("action_date >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conditions = append(conditions, fmt.Sprintf("action_date <= $%d", len(args)))
	}
	if filter.TitleSearch != "" {
		args = append(args, "%"+filter.TitleSearch+"%")
		conditions = append(conditions, fmt.Sprintf("title ILIKE $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM task_history WHERE ` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, MapError(err)
	}

	args = append(args, offset, limit)
	query := fmt.Sprintf(`
		SELECT `+historyColumns+`
		FROM task_history
		WHERE %s
		ORDER BY action_date DESC, id DESC
		OFFSET $%d LIMIT $%d
	`, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*domain.HistoryEntry
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, 0, MapError(err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, MapError(err)
	}

	return entries, total, nil
}

// MarkRestored implements store.HistoryStore.MarkRestored. The conditional
// WHERE makes the restore consume the entry exactly once: a second caller
// finds can_restore already false and gets ErrHistoryNotFound.
func (s *PostgresHistoryStore) MarkRestored(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE task_history
		SET can_restore = FALSE
		WHERE id = $1 AND can_restore = TRUE
	`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrHistoryNotFound
	}

	return nil
}

// DeleteExpired implements store.HistoryStore.DeleteExpired. The strict
// inequality means an entry whose retention_until equals cutoff survives.
func (s *PostgresHistoryStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM task_history WHERE retention_until < $1`
	result, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, MapError(err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return removed, nil
}

// WithTx implements store.HistoryStore.WithTx.
func (s *PostgresHistoryStore) WithTx(tx *sql.Tx) store.HistoryStore {
	return &PostgresHistoryStore{
		db:     tx,
		logger: s.logger,
	}
}

func scanHistoryEntry(row rowScanner) (*domain.HistoryEntry, error) {
	var (
		entry   domain.HistoryEntry
		dueDate sql.NullTime
		pattern sql.NullString
		action  string
	)

	err := row.Scan(
		&entry.ID,
		&entry.OwnerID,
		&entry.OriginalTaskID,
		&entry.Title,
		&entry.Description,
		&entry.Completed,
		&dueDate,
		&pattern,
		&action,
		&entry.ActionDate,
		&entry.ActionBy,
		&entry.CanRestore,
		&entry.RetentionUntil,
	)
	if err != nil {
		return nil, err
	}

	entry.ActionType = domain.ActionType(action)
	if dueDate.Valid {
		due := dueDate.Time.UTC()
		entry.DueDate = &due
	}
	if pattern.Valid {
		p := recurrence.Pattern(pattern.String)
		entry.RecurrencePattern = &p
	}

	return &entry, nil
}
