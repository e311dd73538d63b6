// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrTitleRequired is returned when a task title is empty.
	ErrTitleRequired = errors.New("title cannot be empty")

	// ErrTitleTooLong is returned when a task title exceeds 200 characters.
	ErrTitleTooLong = errors.New("title cannot exceed 200 characters")

	// ErrDescriptionTooLong is returned when a description exceeds 1000 characters.
	ErrDescriptionTooLong = errors.New("description cannot exceed 1000 characters")

	// ErrClientIDTooLong is returned when a client-supplied ID exceeds 100 characters.
	ErrClientIDTooLong = errors.New("client ID cannot exceed 100 characters")

	// ErrReminderOutOfRange is returned when reminder minutes fall outside 0-1440.
	ErrReminderOutOfRange = errors.New("reminder minutes must be between 0 and 1440")

	// ErrRecurrenceWithoutDueDate is returned when a recurrence pattern is set
	// on a task that has no due date.
	ErrRecurrenceWithoutDueDate = errors.New("recurring tasks must have a due date")

	// ErrRecurrenceWithoutPattern is returned when a task is flagged recurring
	// without a recurrence pattern.
	ErrRecurrenceWithoutPattern = errors.New("recurring tasks must have a recurrence pattern")

	// ErrZeroDueDate is returned when a due date is present but carries no
	// actual instant (the zero time).
	ErrZeroDueDate = errors.New("due date must be a valid instant")

	// ErrOwnerIDEmpty is returned when an entity's owner ID is empty or nil.
	ErrOwnerIDEmpty = errors.New("owner ID cannot be empty")

	// ErrCompletedNotRestorable is returned when a history entry for a
	// completed task is marked restorable.
	ErrCompletedNotRestorable = errors.New("completed tasks cannot be marked as restorable")

	// ErrUnknownActionType is returned when a history action type is not one
	// of the defined values.
	ErrUnknownActionType = errors.New("unknown history action type")
)
