package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskwell/taskwell-api/internal/scheduler"
	"github.com/taskwell/taskwell-api/internal/store"
)

// PostgresJobStore implements the scheduler.JobStore interface using
// PostgreSQL, giving scheduled jobs durability across process restarts.
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresJobStore creates a new PostgresJobStore.
// If logger is nil, a default logger will be used.
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

// Ensure PostgresJobStore implements scheduler.JobStore interface
var _ scheduler.JobStore = (*PostgresJobStore)(nil)

// Upsert implements scheduler.JobStore.Upsert. Replace-on-conflict gives
// deterministic job IDs their cancel-and-reschedule semantics.
func (s *PostgresJobStore) Upsert(ctx context.Context, job *scheduler.Job) error {
	query := `
		INSERT INTO scheduled_jobs (id, kind, run_at, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET kind = EXCLUDED.kind,
			run_at = EXCLUDED.run_at,
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, query,
		job.ID,
		string(job.Kind),
		job.RunAt,
		job.Payload,
		now,
		now,
	)
	if err != nil {
		return MapError(err)
	}

	return nil
}

// Delete implements scheduler.JobStore.Delete.
func (s *PostgresJobStore) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM scheduled_jobs WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrJobNotFound
	}

	return nil
}

// ListDue implements scheduler.JobStore.ListDue.
func (s *PostgresJobStore) ListDue(ctx context.Context, now time.Time, limit int) ([]*scheduler.Job, error) {
	query := `
		SELECT id, kind, run_at, payload, created_at, updated_at
		FROM scheduled_jobs
		WHERE run_at <= $1
		ORDER BY run_at ASC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*scheduler.Job
	for rows.Next() {
		var (
			job  scheduler.Job
			kind string
		)
		if err := rows.Scan(&job.ID, &kind, &job.RunAt, &job.Payload, &job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, MapError(err)
		}
		job.Kind = scheduler.JobKind(kind)
		jobs = append(jobs, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return jobs, nil
}
