package domain

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/taskwell/taskwell-api/internal/domain/recurrence"
)

// Task field limits.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
	MaxClientIDLength    = 100
	MaxReminderMinutes   = 1440

	// DefaultReminderMinutes is the reminder lead time applied when the
	// caller does not supply one.
	DefaultReminderMinutes = 15
)

// Task represents a user's to-do item. Due dates are stored in UTC; a nil
// DueDate means the task has no deadline. Version is a monotonic counter
// used for optimistic concurrency control on updates.
type Task struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`

	// ClientID is an optional caller-supplied idempotency key used by
	// offline-first clients to deduplicate task creation.
	ClientID *string `json:"client_id,omitempty"`

	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`

	DueDate           *time.Time          `json:"due_date,omitempty"`
	RecurrencePattern *recurrence.Pattern `json:"recurrence_pattern,omitempty"`
	IsRecurring       bool                `json:"is_recurring"`
	ReminderMinutes   int                 `json:"reminder_minutes"`
	NextOccurrence    *time.Time          `json:"next_occurrence,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTask creates a new Task owned by ownerID. It generates the task ID,
// initializes the version counter, normalizes the recurrence flags and
// validates the result. Returns an error if validation fails.
func NewTask(ownerID uuid.UUID, title, description string) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		Title:           title,
		Description:     description,
		ReminderMinutes: DefaultReminderMinutes,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// Validate checks the Task's invariants. Setting a recurrence pattern
// without the IsRecurring flag marks the task recurring as a side effect,
// mirroring how callers express "repeat this" with just a pattern.
func (t *Task) Validate() error {
	if t.OwnerID == uuid.Nil {
		return ErrOwnerIDEmpty
	}
	if t.Title == "" {
		return ErrTitleRequired
	}
	if utf8.RuneCountInString(t.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if t.ClientID != nil && utf8.RuneCountInString(*t.ClientID) > MaxClientIDLength {
		return ErrClientIDTooLong
	}
	if t.ReminderMinutes < 0 || t.ReminderMinutes > MaxReminderMinutes {
		return ErrReminderOutOfRange
	}
	if t.DueDate != nil && t.DueDate.IsZero() {
		return ErrZeroDueDate
	}

	if t.RecurrencePattern != nil {
		if !t.RecurrencePattern.Valid() {
			return fmt.Errorf("%w: %q", recurrence.ErrUnknownPattern, string(*t.RecurrencePattern))
		}
		t.IsRecurring = true
	}
	if t.IsRecurring {
		if t.RecurrencePattern == nil {
			return ErrRecurrenceWithoutPattern
		}
		if t.DueDate == nil {
			return ErrRecurrenceWithoutDueDate
		}
	}

	return nil
}

// NextOccurrenceAfterDue computes the occurrence following the task's due
// date. It is only meaningful for recurring tasks.
func (t *Task) NextOccurrenceAfterDue() (time.Time, error) {
	if !t.IsRecurring || t.DueDate == nil || t.RecurrencePattern == nil {
		return time.Time{}, fmt.Errorf("%w: next occurrence requires a recurring task with a due date", ErrValidation)
	}
	return recurrence.Next(*t.DueDate, *t.RecurrencePattern)
}

// Touch bumps the version counter and refreshes the update timestamp.
// Every successful write goes through here so the optimistic concurrency
// counter stays monotonic.
func (t *Task) Touch() {
	t.Version++
	t.UpdatedAt = time.Now().UTC()
}
