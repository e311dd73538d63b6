package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/taskwell/taskwell-api/internal/store"
)

// Notification describes a fired reminder or due-time trigger.
type Notification struct {
	TaskID          uuid.UUID
	Title           string
	ReminderMinutes int
	Kind            JobKind
}

// NotificationSink receives fired notifications. The default implementation
// logs them; a push delivery service would implement this interface.
type NotificationSink interface {
	Notify(ctx context.Context, n Notification) error
}

// Purger removes expired history entries. Implemented by the history
// service; invoked by the daily retention cleanup trigger.
type Purger interface {
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config holds configuration for the scheduler.
type Config struct {
	// PollInterval determines how often the job store is checked for due
	// jobs. If zero, defaults to 30 seconds.
	PollInterval time.Duration

	// BatchSize caps how many due jobs a single poll processes.
	// If zero, defaults to 100.
	BatchSize int

	// CleanupHourUTC is the hour (UTC) of the daily retention purge.
	CleanupHourUTC int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:   30 * time.Second,
		BatchSize:      100,
		CleanupHourUTC: 2,
	}
}

// Scheduler is a single-worker, at-least-once job runner backed by a
// durable job store. One instance per deployment owns the job store;
// request handlers and the polling loop coordinate through it rather than
// through in-process locks.
type Scheduler struct {
	jobs   JobStore
	sink   NotificationSink
	purger Purger
	cron   *cron.Cron

	config     Config
	logger     *slog.Logger
	clock      func() time.Time
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// New creates a Scheduler. All dependencies are explicit: the instance is
// constructed at process start and handed to the services that need it,
// with Start/Stop bound to the host process lifecycle.
func New(jobs JobStore, sink NotificationSink, purger Purger, config Config, logger *slog.Logger) *Scheduler {
	if config.PollInterval <= 0 {
		config.PollInterval = 30 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		jobs:       jobs,
		sink:       sink,
		purger:     purger,
		cron:       cron.New(cron.WithLocation(time.UTC)),
		config:     config,
		logger:     logger.With(slog.String("component", "scheduler")),
		clock:      func() time.Time { return time.Now().UTC() },
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the polling loop and the cron triggers. Jobs persisted by
// a previous process are picked up by the first poll: ListDue matches on
// "run_at has passed", so a job that came due during downtime fires
// immediately instead of being dropped.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.pollLoop()
	s.cron.Start()

	s.logger.Info("scheduler started",
		"poll_interval", s.config.PollInterval.String(),
		"batch_size", s.config.BatchSize)
}

// Stop shuts the scheduler down, waiting for any in-flight job execution to
// finish. A job already mid-execution is allowed to complete.
func (s *Scheduler) Stop() {
	s.cancelFunc()
	s.wg.Wait()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// ScheduleNotification upserts the reminder and due-time jobs for a task.
// The reminder fires reminderMinutes before dueDate; either job is silently
// skipped when its fire time is already in the past. Re-scheduling the same
// task replaces any prior pending jobs via the deterministic job IDs.
func (s *Scheduler) ScheduleNotification(ctx context.Context, taskID uuid.UUID, title string, dueDate time.Time, reminderMinutes int) error {
	now := s.clock()

	reminderTime := dueDate.Add(-time.Duration(reminderMinutes) * time.Minute)
	if reminderTime.After(now) {
		job, err := newNotificationJob(taskID, JobKindReminder, reminderTime, title, reminderMinutes)
		if err != nil {
			return err
		}
		if err := s.jobs.Upsert(ctx, job); err != nil {
			return fmt.Errorf("failed to schedule reminder job: %w", err)
		}
		s.logger.Debug("scheduled reminder",
			"task_id", taskID,
			"run_at", reminderTime)
	}

	if dueDate.After(now) {
		job, err := newNotificationJob(taskID, JobKindDue, dueDate, title, 0)
		if err != nil {
			return err
		}
		if err := s.jobs.Upsert(ctx, job); err != nil {
			return fmt.Errorf("failed to schedule due job: %w", err)
		}
		s.logger.Debug("scheduled due notification",
			"task_id", taskID,
			"run_at", dueDate)
	}

	return nil
}

// CancelNotifications removes both notification jobs for a task. Absence of
// either job is not an error; cancellation is idempotent.
func (s *Scheduler) CancelNotifications(ctx context.Context, taskID uuid.UUID) error {
	for _, kind := range []JobKind{JobKindReminder, JobKindDue} {
		err := s.jobs.Delete(ctx, JobID(taskID, kind))
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to cancel %s job: %w", kind, err)
		}
	}
	return nil
}

// ScheduleRetentionCleanup registers the daily history purge at the
// configured UTC hour.
func (s *Scheduler) ScheduleRetentionCleanup() error {
	if s.purger == nil {
		return errors.New("no purger configured")
	}

	spec := fmt.Sprintf("0 %d * * *", s.config.CleanupHourUTC)
	_, err := s.cron.AddFunc(spec, s.runRetentionCleanup)
	if err != nil {
		return fmt.Errorf("failed to register retention cleanup: %w", err)
	}

	s.logger.Info("scheduled daily history cleanup",
		"hour_utc", s.config.CleanupHourUTC)
	return nil
}

func (s *Scheduler) runRetentionCleanup() {
	ctx := s.ctx
	removed, err := s.purger.Purge(ctx, s.clock())
	if err != nil {
		s.logger.Error("history cleanup failed", "error", err)
		return
	}
	s.logger.Info("history cleanup completed", "removed", removed)
}

// pollLoop wakes every PollInterval and fires due jobs.
func (s *Scheduler) pollLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runDueJobs()
		}
	}
}

// runDueJobs fires every job whose run time has passed, removing each job
// after its attempt. Callback errors are logged and swallowed so a bad job
// can never stop the scheduler.
func (s *Scheduler) runDueJobs() {
	ctx := s.ctx

	due, err := s.jobs.ListDue(ctx, s.clock(), s.config.BatchSize)
	if err != nil {
		s.logger.Error("failed to list due jobs", "error", err)
		return
	}

	for _, job := range due {
		s.fireJob(ctx, job)

		if err := s.jobs.Delete(ctx, job.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("failed to remove fired job",
				"job_id", job.ID,
				"error", err)
		}
	}
}

// fireJob executes a single job's callback, isolating panics and errors.
func (s *Scheduler) fireJob(ctx context.Context, job *Job) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("job execution panicked",
				"job_id", job.ID,
				"job_kind", string(job.Kind),
				"panic", p)
		}
	}()

	switch job.Kind {
	case JobKindReminder, JobKindDue:
		var payload NotificationPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			s.logger.Error("failed to unmarshal notification payload",
				"job_id", job.ID,
				"error", err)
			return
		}
		n := Notification{
			TaskID:          payload.TaskID,
			Title:           payload.Title,
			ReminderMinutes: payload.ReminderMinutes,
			Kind:            job.Kind,
		}
		if err := s.sink.Notify(ctx, n); err != nil {
			s.logger.Error("notification delivery failed",
				"job_id", job.ID,
				"task_id", payload.TaskID,
				"error", err)
		}
	default:
		s.logger.Error("unknown job kind", "job_id", job.ID, "job_kind", string(job.Kind))
	}
}

// LogSink is a NotificationSink that records notification triggers in the
// log. Actual delivery to the user is the frontend's responsibility.
type LogSink struct {
	Logger *slog.Logger
}

// Notify implements NotificationSink.
func (l *LogSink) Notify(ctx context.Context, n Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	when := "due now"
	if n.Kind == JobKindReminder {
		when = fmt.Sprintf("due in %d minutes", n.ReminderMinutes)
	}
	logger.Info("notification trigger",
		"task_id", n.TaskID,
		"title", n.Title,
		"when", when)
	return nil
}
