// Package scheduler implements the durable, time-triggered job runner that
// delivers task notifications and drives the daily history retention purge.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobKind identifies what a scheduled job does when it fires.
type JobKind string

// Supported job kinds.
const (
	// JobKindReminder fires at due date minus the reminder lead time.
	JobKindReminder JobKind = "reminder"

	// JobKindDue fires at the task's exact due time.
	JobKindDue JobKind = "due"

	// JobKindRetentionCleanup is the daily history purge. It is driven by a
	// cron trigger rather than a one-shot persisted job, but shares the kind
	// namespace for job identification.
	JobKindRetentionCleanup JobKind = "retention_cleanup"
)

// Job is a durable, time-triggered callback. Jobs survive process restarts;
// a job whose RunAt passed while the process was down fires on the first
// poll after startup rather than being dropped.
type Job struct {
	// ID is deterministic, derived from the task and kind, so re-adding a
	// job with the same ID replaces the prior one. That makes
	// cancel-and-reschedule race-free without locks.
	ID string

	Kind    JobKind
	RunAt   time.Time
	Payload []byte

	CreatedAt time.Time
	UpdatedAt time.Time
}

// JobID derives the deterministic job ID for a task and kind.
func JobID(taskID uuid.UUID, kind JobKind) string {
	return fmt.Sprintf("%s:%s", taskID, kind)
}

// NotificationPayload is the JSON payload carried by reminder and due jobs.
type NotificationPayload struct {
	TaskID          uuid.UUID `json:"task_id"`
	Title           string    `json:"title"`
	ReminderMinutes int       `json:"reminder_minutes"`
}

// newNotificationJob builds a notification job for the given task and kind.
func newNotificationJob(taskID uuid.UUID, kind JobKind, runAt time.Time, title string, reminderMinutes int) (*Job, error) {
	payload, err := json.Marshal(NotificationPayload{
		TaskID:          taskID,
		Title:           title,
		ReminderMinutes: reminderMinutes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	now := time.Now().UTC()
	return &Job{
		ID:        JobID(taskID, kind),
		Kind:      kind,
		RunAt:     runAt,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// JobStore defines the interface for durable job persistence.
type JobStore interface {
	// Upsert saves a job, replacing any existing job with the same ID.
	Upsert(ctx context.Context, job *Job) error

	// Delete removes a job by ID. Returns store.ErrJobNotFound if no such
	// job exists.
	Delete(ctx context.Context, id string) error

	// ListDue returns up to limit jobs whose RunAt is at or before now,
	// ordered by RunAt ascending.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*Job, error)
}
