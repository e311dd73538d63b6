package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/taskwell/taskwell-api/internal/domain/recurrence"
)

func historyFixtureTask(t *testing.T) *Task {
	t.Helper()
	due := time.Date(2026, time.April, 10, 12, 0, 0, 0, time.UTC)
	pattern := recurrence.Weekly
	task := &Task{
		ID:                uuid.New(),
		OwnerID:           uuid.New(),
		Title:             "water plants",
		Description:       "the ficus too",
		DueDate:           &due,
		RecurrencePattern: &pattern,
		IsRecurring:       true,
		ReminderMinutes:   45,
		Version:           3,
	}
	if err := task.Validate(); err != nil {
		t.Fatalf("fixture task invalid: %v", err)
	}
	return task
}

func TestNewHistoryEntry(t *testing.T) {
	t.Parallel()

	task := historyFixtureTask(t)
	actor := task.OwnerID

	entry, err := NewHistoryEntry(task, ActionDeleted, actor)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if entry.ID == uuid.Nil {
		t.Error("Expected non-nil entry ID")
	}
	if entry.OriginalTaskID != task.ID {
		t.Errorf("Expected original task ID %s, got %s", task.ID, entry.OriginalTaskID)
	}
	if entry.Title != task.Title || entry.Description != task.Description {
		t.Error("Expected snapshot to copy title and description")
	}
	if entry.DueDate == nil || !entry.DueDate.Equal(*task.DueDate) {
		t.Error("Expected snapshot to copy the due date")
	}
	if entry.RecurrencePattern == nil || *entry.RecurrencePattern != *task.RecurrencePattern {
		t.Error("Expected snapshot to copy the recurrence pattern")
	}
	if !entry.CanRestore {
		t.Error("Expected DELETED entry to be restorable")
	}

	wantRetention := entry.ActionDate.AddDate(RetentionPeriodYears, 0, 0)
	if !entry.RetentionUntil.Equal(wantRetention) {
		t.Errorf("Expected retention until %s, got %s", wantRetention, entry.RetentionUntil)
	}
}

func TestNewHistoryEntryCanRestoreByAction(t *testing.T) {
	t.Parallel()

	task := historyFixtureTask(t)

	tests := []struct {
		action     ActionType
		canRestore bool
	}{
		{ActionCreated, false},
		{ActionUpdated, false},
		{ActionCompleted, false},
		{ActionDeleted, true},
		{ActionArchived, false},
		{ActionRestored, false},
	}

	for _, tt := range tests {
		entry, err := NewHistoryEntry(task, tt.action, task.OwnerID)
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", tt.action, err)
		}
		if entry.CanRestore != tt.canRestore {
			t.Errorf("%s: expected CanRestore=%v, got %v", tt.action, tt.canRestore, entry.CanRestore)
		}
	}
}

func TestNewHistoryEntryErrors(t *testing.T) {
	t.Parallel()

	task := historyFixtureTask(t)

	if _, err := NewHistoryEntry(task, ActionType("EXPLODED"), task.OwnerID); !errors.Is(err, ErrUnknownActionType) {
		t.Errorf("Expected ErrUnknownActionType, got %v", err)
	}
	if _, err := NewHistoryEntry(task, ActionCreated, uuid.Nil); !errors.Is(err, ErrOwnerIDEmpty) {
		t.Errorf("Expected ErrOwnerIDEmpty, got %v", err)
	}
}

func TestHistoryEntryValidateCompletedNeverRestorable(t *testing.T) {
	t.Parallel()

	task := historyFixtureTask(t)
	entry, err := NewHistoryEntry(task, ActionCompleted, task.OwnerID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	entry.CanRestore = true
	if err := entry.Validate(); !errors.Is(err, ErrCompletedNotRestorable) {
		t.Errorf("Expected ErrCompletedNotRestorable, got %v", err)
	}
}

func TestRestoredTask(t *testing.T) {
	t.Parallel()

	task := historyFixtureTask(t)
	entry, err := NewHistoryEntry(task, ActionDeleted, task.OwnerID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	restored, err := entry.RestoredTask()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if restored.ID == task.ID {
		t.Error("Expected restored task to get a fresh ID")
	}
	if restored.Version != 1 {
		t.Errorf("Expected restored version 1, got %d", restored.Version)
	}
	if restored.Title != task.Title || restored.Description != task.Description {
		t.Error("Expected restored task to carry the snapshot's content")
	}
	if restored.DueDate == nil || !restored.DueDate.Equal(*task.DueDate) {
		t.Error("Expected restored task to carry the snapshot's due date")
	}
	if !restored.IsRecurring {
		t.Error("Expected IsRecurring to be derived from the snapshot's pattern")
	}
	if restored.ReminderMinutes != DefaultReminderMinutes {
		t.Errorf("Expected default reminder %d, got %d", DefaultReminderMinutes, restored.ReminderMinutes)
	}
	if restored.ClientID != nil {
		t.Error("Expected restored task to have no client ID")
	}
}

func TestActionTypeValid(t *testing.T) {
	t.Parallel()

	valid := []ActionType{ActionCreated, ActionUpdated, ActionCompleted, ActionDeleted, ActionArchived, ActionRestored}
	for _, a := range valid {
		if !a.Valid() {
			t.Errorf("Expected %q to be valid", a)
		}
	}
	for _, a := range []ActionType{"", "created", "PURGED"} {
		if a.Valid() {
			t.Errorf("Expected %q to be invalid", a)
		}
	}
}
