// Package service contains the orchestration layer: task lifecycle
// transitions and their cascading effects on history and scheduling.
package service

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to callers of the service layer.
var (
	// ErrAlreadyCompleted indicates an attempt to complete a task that is
	// already completed. Surfacing this as a conflict (rather than silently
	// rewriting the task) is the deliberate, stricter behavior.
	ErrAlreadyCompleted = errors.New("task is already completed")

	// ErrNotRestorable indicates a restore attempt on a history entry whose
	// one restore has been consumed, or whose action type never permitted
	// restoring in the first place.
	ErrNotRestorable = errors.New("history entry cannot be restored")

	// ErrInvalidDueDate indicates a due date string that could not be
	// interpreted, or a timezone that does not exist.
	ErrInvalidDueDate = errors.New("invalid due date")
)

// TaskServiceError wraps errors from the task service with context.
type TaskServiceError struct {
	// Operation is the operation that failed (e.g., "create_task", "complete_task").
	Operation string
	// Message is a human-readable description of the error.
	Message string
	// Err is the underlying error that caused the failure.
	Err error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
func NewTaskServiceError(operation, message string, err error) *TaskServiceError {
	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// HistoryServiceError wraps errors from the history service with context.
type HistoryServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for HistoryServiceError.
func (e *HistoryServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("history service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("history service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *HistoryServiceError) Unwrap() error {
	return e.Err
}

// NewHistoryServiceError creates a new HistoryServiceError.
func NewHistoryServiceError(operation, message string, err error) *HistoryServiceError {
	return &HistoryServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
