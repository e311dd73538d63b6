package api

import (
	"time"

	"github.com/taskwell/taskwell-api/internal/domain"
)

// CreateTaskRequest is the request body for creating a task. DueDate is
// interpreted in Timezone (UTC when omitted).
type CreateTaskRequest struct {
	Title             string  `json:"title"              validate:"required,max=200"`
	Description       string  `json:"description"        validate:"max=1000"`
	ClientID          *string `json:"client_id,omitempty" validate:"omitempty,max=100"`
	DueDate           string  `json:"due_date,omitempty"`
	Timezone          string  `json:"timezone,omitempty"`
	RecurrencePattern string  `json:"recurrence_pattern,omitempty" validate:"omitempty,oneof=daily weekly bi-weekly monthly yearly"`
	ReminderMinutes   *int    `json:"reminder_minutes,omitempty"   validate:"omitempty,gte=0,lte=1440"`
}

// UpdateTaskRequest is the request body for a partial task update. Omitted
// fields are left untouched.
type UpdateTaskRequest struct {
	Title             *string    `json:"title,omitempty"       validate:"omitempty,min=1,max=200"`
	Description       *string    `json:"description,omitempty" validate:"omitempty,max=1000"`
	Completed         *bool      `json:"completed,omitempty"`
	DueDate           *time.Time `json:"due_date,omitempty"`
	RecurrencePattern *string    `json:"recurrence_pattern,omitempty" validate:"omitempty,oneof=daily weekly bi-weekly monthly yearly"`
	ReminderMinutes   *int       `json:"reminder_minutes,omitempty"   validate:"omitempty,gte=0,lte=1440"`
}

// TaskResponse is the wire representation of a task.
type TaskResponse struct {
	ID                string     `json:"id"`
	ClientID          *string    `json:"client_id,omitempty"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Completed         bool       `json:"completed"`
	DueDate           *time.Time `json:"due_date,omitempty"`
	RecurrencePattern *string    `json:"recurrence_pattern,omitempty"`
	IsRecurring       bool       `json:"is_recurring"`
	ReminderMinutes   int        `json:"reminder_minutes"`
	NextOccurrence    *time.Time `json:"next_occurrence,omitempty"`
	Version           int        `json:"version"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TaskListResponse is a page of tasks plus the total count.
type TaskListResponse struct {
	Tasks    []TaskResponse `json:"tasks"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// CompleteTaskResponse reports a completion and, for recurring tasks, the
// automatically created next occurrence.
type CompleteTaskResponse struct {
	Task     TaskResponse  `json:"task"`
	NextTask *TaskResponse `json:"next_task,omitempty"`
}

// HistoryEntryResponse is the wire representation of a history entry.
type HistoryEntryResponse struct {
	ID                string     `json:"id"`
	OriginalTaskID    string     `json:"original_task_id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Completed         bool       `json:"completed"`
	DueDate           *time.Time `json:"due_date,omitempty"`
	RecurrencePattern *string    `json:"recurrence_pattern,omitempty"`
	ActionType        string     `json:"action_type"`
	ActionDate        time.Time  `json:"action_date"`
	CanRestore        bool       `json:"can_restore"`
	RetentionUntil    time.Time  `json:"retention_until"`
}

// HistoryListResponse is a page of history entries plus the total count.
type HistoryListResponse struct {
	Entries  []HistoryEntryResponse `json:"entries"`
	Total    int                    `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
}

// taskToResponse converts a domain.Task to its wire representation.
func taskToResponse(task *domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:              task.ID.String(),
		ClientID:        task.ClientID,
		Title:           task.Title,
		Description:     task.Description,
		Completed:       task.Completed,
		DueDate:         task.DueDate,
		IsRecurring:     task.IsRecurring,
		ReminderMinutes: task.ReminderMinutes,
		NextOccurrence:  task.NextOccurrence,
		Version:         task.Version,
		CreatedAt:       task.CreatedAt,
		UpdatedAt:       task.UpdatedAt,
	}
	if task.RecurrencePattern != nil {
		pattern := string(*task.RecurrencePattern)
		resp.RecurrencePattern = &pattern
	}
	return resp
}

// historyEntryToResponse converts a domain.HistoryEntry to its wire
// representation.
func historyEntryToResponse(entry *domain.HistoryEntry) HistoryEntryResponse {
	resp := HistoryEntryResponse{
		ID:             entry.ID.String(),
		OriginalTaskID: entry.OriginalTaskID.String(),
		Title:          entry.Title,
		Description:    entry.Description,
		Completed:      entry.Completed,
		DueDate:        entry.DueDate,
		ActionType:     string(entry.ActionType),
		ActionDate:     entry.ActionDate,
		CanRestore:     entry.CanRestore,
		RetentionUntil: entry.RetentionUntil,
	}
	if entry.RecurrencePattern != nil {
		pattern := string(*entry.RecurrencePattern)
		resp.RecurrencePattern = &pattern
	}
	return resp
}
