package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/taskwell/taskwell-api/internal/domain/recurrence"
)

// RetentionPeriodYears is how long history entries are kept before the
// daily purge removes them.
const RetentionPeriodYears = 2

// ActionType identifies the lifecycle action captured by a history entry.
type ActionType string

// Possible history action types.
const (
	ActionCreated   ActionType = "CREATED"
	ActionUpdated   ActionType = "UPDATED"
	ActionCompleted ActionType = "COMPLETED"
	ActionDeleted   ActionType = "DELETED"
	ActionArchived  ActionType = "ARCHIVED"
	ActionRestored  ActionType = "RESTORED"
)

// Valid reports whether a is one of the defined action types.
func (a ActionType) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionCompleted, ActionDeleted, ActionArchived, ActionRestored:
		return true
	}
	return false
}

// HistoryEntry is an immutable snapshot of a Task at the moment of a
// lifecycle action. Snapshot fields are copied verbatim from the task and
// never updated afterward; the only permitted mutation is flipping
// CanRestore to false when a deleted task is restored.
type HistoryEntry struct {
	ID             uuid.UUID `json:"id"`
	OwnerID        uuid.UUID `json:"owner_id"`
	OriginalTaskID uuid.UUID `json:"original_task_id"`

	// Snapshot of the task at action time.
	Title             string              `json:"title"`
	Description       string              `json:"description"`
	Completed         bool                `json:"completed"`
	DueDate           *time.Time          `json:"due_date,omitempty"`
	RecurrencePattern *recurrence.Pattern `json:"recurrence_pattern,omitempty"`

	ActionType ActionType `json:"action_type"`
	ActionDate time.Time  `json:"action_date"`
	ActionBy   uuid.UUID  `json:"action_by"`

	// CanRestore is true only for DELETED entries that have not been
	// restored yet. A restore consumes the entry by flipping this to false.
	CanRestore bool `json:"can_restore"`

	// RetentionUntil is fixed at creation: ActionDate plus the retention
	// period. The purge removes entries whose RetentionUntil has passed.
	RetentionUntil time.Time `json:"retention_until"`
}

// NewHistoryEntry builds the immutable snapshot of task for the given
// action. CanRestore is derived from the action type: deleted tasks are
// restorable, everything else is not. Returns an error for unknown action
// types or an empty actor.
func NewHistoryEntry(task *Task, action ActionType, actionBy uuid.UUID) (*HistoryEntry, error) {
	if !action.Valid() {
		return nil, ErrUnknownActionType
	}
	if actionBy == uuid.Nil {
		return nil, ErrOwnerIDEmpty
	}

	now := time.Now().UTC()
	entry := &HistoryEntry{
		ID:             uuid.New(),
		OwnerID:        task.OwnerID,
		OriginalTaskID: task.ID,
		Title:          task.Title,
		Description:    task.Description,
		Completed:      task.Completed,
		ActionType:     action,
		ActionDate:     now,
		ActionBy:       actionBy,
		CanRestore:     action == ActionDeleted,
		RetentionUntil: now.AddDate(RetentionPeriodYears, 0, 0),
	}
	if task.DueDate != nil {
		due := *task.DueDate
		entry.DueDate = &due
	}
	if task.RecurrencePattern != nil {
		pattern := *task.RecurrencePattern
		entry.RecurrencePattern = &pattern
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}

// Validate checks the entry's invariants, in particular that a COMPLETED
// entry is never restorable.
func (e *HistoryEntry) Validate() error {
	if e.OwnerID == uuid.Nil {
		return ErrOwnerIDEmpty
	}
	if !e.ActionType.Valid() {
		return ErrUnknownActionType
	}
	if e.ActionType == ActionCompleted && e.CanRestore {
		return ErrCompletedNotRestorable
	}
	return nil
}

// RestoredTask constructs a new active Task from the snapshot. The task
// gets a fresh ID and version, IsRecurring is derived from the presence of
// the snapshot's pattern, and the reminder falls back to the default since
// the snapshot does not capture it.
func (e *HistoryEntry) RestoredTask() (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:              uuid.New(),
		OwnerID:         e.OwnerID,
		Title:           e.Title,
		Description:     e.Description,
		Completed:       e.Completed,
		ReminderMinutes: DefaultReminderMinutes,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if e.DueDate != nil {
		due := *e.DueDate
		task.DueDate = &due
	}
	if e.RecurrencePattern != nil {
		pattern := *e.RecurrencePattern
		task.RecurrencePattern = &pattern
		task.IsRecurring = true
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}
