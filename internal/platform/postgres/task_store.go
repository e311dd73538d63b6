package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/taskwell/taskwell-api/internal/domain"
	"github.com/taskwell/taskwell-api/internal/domain/recurrence"
	"github.com/taskwell/taskwell-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface. The database connection or transaction is managed by
// the caller. If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// clientIDUniqueIndex is the partial unique index on (owner_id, client_id)
// in migrations; its violation means the caller reused a client ID.
const clientIDUniqueIndex = "idx_tasks_owner_client_id"

const taskColumns = `id, owner_id, client_id, title, description, completed,
	due_date, recurrence_pattern, is_recurring, reminder_minutes, next_occurrence,
	version, created_at, updated_at`

// Create implements store.TaskStore.Create.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.OwnerID,
		task.ClientID,
		task.Title,
		task.Description,
		task.Completed,
		task.DueDate,
		patternToString(task.RecurrencePattern),
		task.IsRecurring,
		task.ReminderMinutes,
		task.NextOccurrence,
		task.Version,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err, clientIDUniqueIndex) {
			return fmt.Errorf("%w: %v", store.ErrClientIDExists, err)
		}
		return MapError(err)
	}

	return nil
}

// GetByID implements store.TaskStore.GetByID.
func (s *PostgresTaskStore) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1 AND owner_id = $2
	`
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, MapError(err)
	}
	return task, nil
}

// GetByClientID implements store.TaskStore.GetByClientID.
func (s *PostgresTaskStore) GetByClientID(ctx context.Context, ownerID uuid.UUID, clientID string) (*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE owner_id = $1 AND client_id = $2
	`
	task, err := scanTask(s.db.QueryRowContext(ctx, query, ownerID, clientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, MapError(err)
	}
	return task, nil
}

// List implements store.TaskStore.List.
func (s *PostgresTaskStore) List(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*domain.Task, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM tasks WHERE owner_id = $1`
	if err := s.db.QueryRowContext(ctx, countQuery, ownerID).Scan(&total); err != nil {
		return nil, 0, MapError(err)
	}

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
		OFFSET $2 LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, ownerID, offset, limit)
	if err != nil {
		return nil, 0, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, MapError(err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, MapError(err)
	}

	return tasks, total, nil
}

// Update implements store.TaskStore.Update. The write is conditional on the
// stored version still matching expectedVersion; when it does not, the
// caller lost a concurrent-update race and gets ErrVersionConflict.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task, expectedVersion int) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE tasks
		SET title = $1, description = $2, completed = $3, due_date = $4,
			recurrence_pattern = $5, is_recurring = $6, reminder_minutes = $7,
			next_occurrence = $8, version = $9, updated_at = $10
		WHERE id = $11 AND owner_id = $12 AND version = $13
	`
	result, err := s.db.ExecContext(ctx, query,
		task.Title,
		task.Description,
		task.Completed,
		task.DueDate,
		patternToString(task.RecurrencePattern),
		task.IsRecurring,
		task.ReminderMinutes,
		task.NextOccurrence,
		task.Version,
		task.UpdatedAt,
		task.ID,
		task.OwnerID,
		expectedVersion,
	)
	if err != nil {
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Distinguish a lost race from a vanished row.
		var exists bool
		checkQuery := `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1 AND owner_id = $2)`
		if err := s.db.QueryRowContext(ctx, checkQuery, task.ID, task.OwnerID).Scan(&exists); err != nil {
			return MapError(err)
		}
		if exists {
			return store.ErrVersionConflict
		}
		return store.ErrTaskNotFound
	}

	return nil
}

// Delete implements store.TaskStore.Delete.
func (s *PostgresTaskStore) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	query := `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`
	result, err := s.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrTaskNotFound
	}

	return nil
}

// WithTx implements store.TaskStore.WithTx.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task           domain.Task
		clientID       sql.NullString
		dueDate        sql.NullTime
		pattern        sql.NullString
		nextOccurrence sql.NullTime
	)

	err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&clientID,
		&task.Title,
		&task.Description,
		&task.Completed,
		&dueDate,
		&pattern,
		&task.IsRecurring,
		&task.ReminderMinutes,
		&nextOccurrence,
		&task.Version,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if clientID.Valid {
		task.ClientID = &clientID.String
	}
	if dueDate.Valid {
		due := dueDate.Time.UTC()
		task.DueDate = &due
	}
	if pattern.Valid {
		p := recurrence.Pattern(pattern.String)
		task.RecurrencePattern = &p
	}
	if nextOccurrence.Valid {
		next := nextOccurrence.Time.UTC()
		task.NextOccurrence = &next
	}

	return &task, nil
}

func patternToString(p *recurrence.Pattern) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}
