package scheduler

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskwell/taskwell-api/internal/store"
)

// memoryJobStore is an in-memory JobStore for scheduler tests.
type memoryJobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func newMemoryJobStore() *memoryJobStore {
	return &memoryJobStore{jobs: make(map[string]*Job)}
}

func (m *memoryJobStore) Upsert(ctx context.Context, job *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *memoryJobStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return store.ErrJobNotFound
	}
	delete(m.jobs, id)
	return nil
}

func (m *memoryJobStore) ListDue(ctx context.Context, now time.Time, limit int) ([]*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []*Job
	for _, job := range m.jobs {
		if !job.RunAt.After(now) {
			copied := *job
			due = append(due, &copied)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].RunAt.Before(due[j].RunAt) })
	if limit < len(due) {
		due = due[:limit]
	}
	return due, nil
}

func (m *memoryJobStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

func (m *memoryJobStore) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.jobs[id]
	return ok
}

// captureSink records fired notifications.
type captureSink struct {
	mu    sync.Mutex
	fired []Notification
}

func (c *captureSink) Notify(ctx context.Context, n Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fired = append(c.fired, n)
	return nil
}

func (c *captureSink) notifications() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.fired))
	copy(out, c.fired)
	return out
}

func newTestScheduler(jobs JobStore, sink NotificationSink, now time.Time) *Scheduler {
	s := New(jobs, sink, nil, DefaultConfig(), nil)
	s.clock = func() time.Time { return now }
	return s
}

func TestScheduleNotificationCreatesBothJobs(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	jobs := newMemoryJobStore()
	s := newTestScheduler(jobs, &captureSink{}, now)

	taskID := uuid.New()
	due := now.Add(2 * time.Hour)

	require.NoError(t, s.ScheduleNotification(context.Background(), taskID, "call dentist", due, 30))

	assert.True(t, jobs.has(JobID(taskID, JobKindReminder)))
	assert.True(t, jobs.has(JobID(taskID, JobKindDue)))

	reminder := jobs.jobs[JobID(taskID, JobKindReminder)]
	assert.True(t, reminder.RunAt.Equal(due.Add(-30*time.Minute)))
}

func TestScheduleNotificationSkipsPastReminder(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	jobs := newMemoryJobStore()
	s := newTestScheduler(jobs, &captureSink{}, now)

	taskID := uuid.New()
	// Due in 10 minutes with a 30-minute lead: the reminder moment has
	// already passed, only the due job is persisted.
	due := now.Add(10 * time.Minute)

	require.NoError(t, s.ScheduleNotification(context.Background(), taskID, "too late to remind", due, 30))

	assert.False(t, jobs.has(JobID(taskID, JobKindReminder)))
	assert.True(t, jobs.has(JobID(taskID, JobKindDue)))
}

func TestScheduleNotificationSkipsPastDue(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	jobs := newMemoryJobStore()
	s := newTestScheduler(jobs, &captureSink{}, now)

	require.NoError(t, s.ScheduleNotification(context.Background(), uuid.New(), "already overdue", now.Add(-time.Hour), 15))
	assert.Equal(t, 0, jobs.count())
}

func TestScheduleNotificationReplacesExistingJobs(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	jobs := newMemoryJobStore()
	s := newTestScheduler(jobs, &captureSink{}, now)

	taskID := uuid.New()
	require.NoError(t, s.ScheduleNotification(context.Background(), taskID, "v1", now.Add(2*time.Hour), 15))
	require.NoError(t, s.ScheduleNotification(context.Background(), taskID, "v2", now.Add(4*time.Hour), 15))

	// Still two jobs; the deterministic IDs replaced the old pair.
	assert.Equal(t, 2, jobs.count())
	due := jobs.jobs[JobID(taskID, JobKindDue)]
	assert.True(t, due.RunAt.Equal(now.Add(4*time.Hour)))
}

func TestCancelNotificationsIsIdempotent(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	jobs := newMemoryJobStore()
	s := newTestScheduler(jobs, &captureSink{}, now)

	taskID := uuid.New()
	require.NoError(t, s.ScheduleNotification(context.Background(), taskID, "cancel me", now.Add(time.Hour), 15))
	require.NoError(t, s.CancelNotifications(context.Background(), taskID))
	assert.Equal(t, 0, jobs.count())

	// Cancelling again, or cancelling a task that never had jobs, is fine.
	require.NoError(t, s.CancelNotifications(context.Background(), taskID))
	require.NoError(t, s.CancelNotifications(context.Background(), uuid.New()))
}

func TestRunDueJobsFiresAndRemoves(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	jobs := newMemoryJobStore()
	sink := &captureSink{}
	s := newTestScheduler(jobs, sink, now)

	taskID := uuid.New()
	require.NoError(t, s.ScheduleNotification(context.Background(), taskID, "fire me", now.Add(time.Hour), 15))

	// Nothing is due yet.
	s.runDueJobs()
	assert.Empty(t, sink.notifications())

	// Advance past the due time; both jobs fire and are removed.
	s.clock = func() time.Time { return now.Add(2 * time.Hour) }
	s.runDueJobs()

	fired := sink.notifications()
	require.Len(t, fired, 2)
	kinds := map[JobKind]bool{}
	for _, n := range fired {
		assert.Equal(t, taskID, n.TaskID)
		assert.Equal(t, "fire me", n.Title)
		kinds[n.Kind] = true
	}
	assert.True(t, kinds[JobKindReminder])
	assert.True(t, kinds[JobKindDue])
	assert.Equal(t, 0, jobs.count())
}

func TestRunDueJobsFiresJobsPersistedBeforeRestart(t *testing.T) {
	// A job written by a previous process whose run time passed during
	// downtime fires on the first poll instead of being dropped.
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	jobs := newMemoryJobStore()

	taskID := uuid.New()
	job, err := newNotificationJob(taskID, JobKindDue, now.Add(-3*time.Hour), "from before restart", 0)
	require.NoError(t, err)
	require.NoError(t, jobs.Upsert(context.Background(), job))

	sink := &captureSink{}
	s := newTestScheduler(jobs, sink, now)
	s.runDueJobs()

	fired := sink.notifications()
	require.Len(t, fired, 1)
	assert.Equal(t, taskID, fired[0].TaskID)
	assert.Equal(t, 0, jobs.count())
}

func TestStartStop(t *testing.T) {
	jobs := newMemoryJobStore()
	cfg := DefaultConfig()
	cfg.PollInterval = 10 * time.Millisecond
	s := New(jobs, &captureSink{}, nil, cfg, nil)

	s.Start()
	time.Sleep(30 * time.Millisecond)
	s.Stop()
}

func TestJobID(t *testing.T) {
	taskID := uuid.MustParse("a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11")
	assert.Equal(t, "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11:reminder", JobID(taskID, JobKindReminder))
	assert.Equal(t, "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11:due", JobID(taskID, JobKindDue))
}
