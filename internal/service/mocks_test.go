package service

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taskwell/taskwell-api/internal/domain"
	"github.com/taskwell/taskwell-api/internal/store"
)

// fakeTransactioner runs the callback directly with a nil transaction. The
// mock stores ignore the transaction handle, so transactional paths can be
// exercised without a database.
type fakeTransactioner struct {
	calls int
	// failWith, when set, is returned without invoking the callback.
	failWith error
}

func (f *fakeTransactioner) RunInTransaction(ctx context.Context, fn store.TxFn) error {
	f.calls++
	if f.failWith != nil {
		return f.failWith
	}
	return fn(ctx, nil)
}

// mockTaskStore is an in-memory store.TaskStore.
type mockTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task

	createErr error
	updateErr error
	deleteErr error
}

func newMockTaskStore() *mockTaskStore {
	return &mockTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (m *mockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.tasks {
		if existing.OwnerID == task.OwnerID &&
			existing.ClientID != nil && task.ClientID != nil &&
			*existing.ClientID == *task.ClientID {
			return store.ErrClientIDExists
		}
	}
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *mockTaskStore) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return nil, store.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (m *mockTaskStore) GetByClientID(ctx context.Context, ownerID uuid.UUID, clientID string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, task := range m.tasks {
		if task.OwnerID == ownerID && task.ClientID != nil && *task.ClientID == clientID {
			copied := *task
			return &copied, nil
		}
	}
	return nil, store.ErrTaskNotFound
}

func (m *mockTaskStore) List(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*domain.Task, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Task
	for _, task := range m.tasks {
		if task.OwnerID == ownerID {
			copied := *task
			out = append(out, &copied)
		}
	}
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *mockTaskStore) Update(ctx context.Context, task *domain.Task, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	existing, ok := m.tasks[task.ID]
	if !ok || existing.OwnerID != task.OwnerID {
		return store.ErrTaskNotFound
	}
	if existing.Version != expectedVersion {
		return store.ErrVersionConflict
	}
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *mockTaskStore) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	task, ok := m.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return store.ErrTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *mockTaskStore) WithTx(tx *sql.Tx) store.TaskStore { return m }

// mockHistoryStore is an in-memory store.HistoryStore.
type mockHistoryStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*domain.HistoryEntry

	createErr error
}

func newMockHistoryStore() *mockHistoryStore {
	return &mockHistoryStore{entries: make(map[uuid.UUID]*domain.HistoryEntry)}
}

func (m *mockHistoryStore) Create(ctx context.Context, entry *domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	copied := *entry
	m.entries[entry.ID] = &copied
	return nil
}

func (m *mockHistoryStore) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[id]
	if !ok || entry.OwnerID != ownerID {
		return nil, store.ErrHistoryNotFound
	}
	copied := *entry
	return &copied, nil
}

func (m *mockHistoryStore) List(ctx context.Context, ownerID uuid.UUID, filter store.HistoryFilter, offset, limit int) ([]*domain.HistoryEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.HistoryEntry
	for _, entry := range m.entries {
		if entry.OwnerID != ownerID {
			continue
		}
		if filter.ActionType != "" && entry.ActionType != filter.ActionType {
			continue
		}
		if filter.TitleSearch != "" && !strings.Contains(strings.ToLower(entry.Title), strings.ToLower(filter.TitleSearch)) {
			continue
		}
		copied := *entry
		out = append(out, &copied)
	}
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *mockHistoryStore) MarkRestored(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[id]
	if !ok || !entry.CanRestore {
		return store.ErrHistoryNotFound
	}
	entry.CanRestore = false
	return nil
}

func (m *mockHistoryStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for id, entry := range m.entries {
		if entry.RetentionUntil.Before(cutoff) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed, nil
}

func (m *mockHistoryStore) WithTx(tx *sql.Tx) store.HistoryStore { return m }

// entriesByAction returns the stored entries with the given action type.
func (m *mockHistoryStore) entriesByAction(action domain.ActionType) []*domain.HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.HistoryEntry
	for _, entry := range m.entries {
		if entry.ActionType == action {
			copied := *entry
			out = append(out, &copied)
		}
	}
	return out
}

// mockScheduler records scheduling calls.
type mockScheduler struct {
	mu        sync.Mutex
	scheduled []uuid.UUID
	canceled  []uuid.UUID

	scheduleErr error
	cancelErr   error
}

func (m *mockScheduler) ScheduleNotification(ctx context.Context, taskID uuid.UUID, title string, dueDate time.Time, reminderMinutes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scheduleErr != nil {
		return m.scheduleErr
	}
	m.scheduled = append(m.scheduled, taskID)
	return nil
}

func (m *mockScheduler) CancelNotifications(ctx context.Context, taskID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancelErr != nil {
		return m.cancelErr
	}
	m.canceled = append(m.canceled, taskID)
	return nil
}
