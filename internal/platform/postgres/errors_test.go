package postgres_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/taskwell/taskwell-api/internal/platform/postgres"
	"github.com/taskwell/taskwell-api/internal/store"
)

func newPgError(code, constraint string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "error message",
		SchemaName:     "public",
		TableName:      "tasks",
		ColumnName:     "client_id",
		ConstraintName: constraint,
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		target error
	}{
		{
			name:   "no rows maps to not found",
			err:    fmt.Errorf("query: %w", sql.ErrNoRows),
			target: store.ErrNotFound,
		},
		{
			name:   "unique violation maps to duplicate",
			err:    newPgError("23505", "idx_tasks_owner_client_id"),
			target: store.ErrDuplicate,
		},
		{
			name:   "foreign key violation maps to invalid entity",
			err:    newPgError("23503", "fk_owner"),
			target: store.ErrInvalidEntity,
		},
		{
			name:   "check violation maps to invalid entity",
			err:    newPgError("23514", "chk_reminder_minutes"),
			target: store.ErrInvalidEntity,
		},
		{
			name:   "not null violation maps to invalid entity",
			err:    newPgError("23502", ""),
			target: store.ErrInvalidEntity,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			mapped := postgres.MapError(tc.err)
			assert.ErrorIs(t, mapped, tc.target)
		})
	}

	t.Run("nil passes through", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, postgres.MapError(nil))
	})

	t.Run("unknown error passes through unchanged", func(t *testing.T) {
		t.Parallel()
		err := errors.New("connection refused")
		assert.Equal(t, err, postgres.MapError(err))
	})
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		constraint string
		expected   bool
	}{
		{
			name:       "matching constraint",
			err:        newPgError("23505", "idx_tasks_owner_client_id"),
			constraint: "idx_tasks_owner_client_id",
			expected:   true,
		},
		{
			name:       "any constraint when name empty",
			err:        newPgError("23505", "some_other_index"),
			constraint: "",
			expected:   true,
		},
		{
			name:       "different constraint",
			err:        newPgError("23505", "some_other_index"),
			constraint: "idx_tasks_owner_client_id",
			expected:   false,
		},
		{
			name:       "wrong code",
			err:        newPgError("23503", "idx_tasks_owner_client_id"),
			constraint: "idx_tasks_owner_client_id",
			expected:   false,
		},
		{
			name:       "wrapped pg error still detected",
			err:        fmt.Errorf("insert: %w", newPgError("23505", "idx_tasks_owner_client_id")),
			constraint: "idx_tasks_owner_client_id",
			expected:   true,
		},
		{
			name:       "non-pg error",
			err:        errors.New("boom"),
			constraint: "idx_tasks_owner_client_id",
			expected:   false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, postgres.IsUniqueViolation(tc.err, tc.constraint))
		})
	}
}
