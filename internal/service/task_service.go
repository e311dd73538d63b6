package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/taskwell/taskwell-api/internal/domain"
	"github.com/taskwell/taskwell-api/internal/domain/recurrence"
	"github.com/taskwell/taskwell-api/internal/platform/logger"
	"github.com/taskwell/taskwell-api/internal/store"
)

// NotificationScheduler is the slice of the scheduler the task lifecycle
// needs: durable upsert of a task's notification jobs and their idempotent
// cancellation.
type NotificationScheduler interface {
	ScheduleNotification(ctx context.Context, taskID uuid.UUID, title string, dueDate time.Time, reminderMinutes int) error
	CancelNotifications(ctx context.Context, taskID uuid.UUID) error
}

// CreateTaskInput carries the caller-supplied fields for task creation.
// DueDateText is interpreted in Timezone; alternatively a pre-parsed
// DueDate can be supplied directly.
type CreateTaskInput struct {
	Title       string
	Description string
	ClientID    *string

	DueDateText string
	Timezone    string
	DueDate     *time.Time

	RecurrencePattern *recurrence.Pattern
	ReminderMinutes   *int
}

// TaskPatch carries a partial update; nil fields are left untouched.
type TaskPatch struct {
	Title             *string
	Description       *string
	Completed         *bool
	DueDate           *time.Time
	RecurrencePattern *recurrence.Pattern
	ReminderMinutes   *int
}

// CompletionOutcome reports the result of completing a task. The primary
// mutation and its history entry are transactional; the recurring-instance
// creation and notification scheduling are best-effort, and their failures
// are reported here instead of failing the completion.
type CompletionOutcome struct {
	// Task is the completed task.
	Task *domain.Task

	// NextTask is the automatically created next occurrence, nil when the
	// task is not recurring or when creating the instance failed.
	NextTask *domain.Task

	// RecurrenceErr records a failure to create the next occurrence.
	RecurrenceErr error

	// SchedulingErr records a failure to schedule notifications, for either
	// the completed task's replacement or the next occurrence.
	SchedulingErr error
}

// TaskService orchestrates task state transitions and their cascading
// effects: audit history, recurring-instance creation, and notification
// scheduling.
type TaskService interface {
	// Create validates and persists a new task, then best-effort schedules
	// its notifications.
	Create(ctx context.Context, ownerID uuid.UUID, input CreateTaskInput) (*domain.Task, error)

	// Get retrieves a task by server ID or, when the argument is not a
	// UUID, by the caller-supplied client ID.
	Get(ctx context.Context, ownerID uuid.UUID, idOrClientID string) (*domain.Task, error)

	// List returns a page of the owner's tasks plus the total count.
	List(ctx context.Context, ownerID uuid.UUID, page, pageSize int) ([]*domain.Task, int, error)

	// Update applies a partial update with optimistic concurrency control.
	// A patch that flips completed from false to true runs the identical
	// completion cascade as Complete.
	Update(ctx context.Context, ownerID, taskID uuid.UUID, patch TaskPatch) (*domain.Task, error)

	// Complete transitions a task to completed, writes the audit entry in
	// the same transaction, and then best-effort creates the next
	// occurrence for recurring tasks.
	Complete(ctx context.Context, ownerID, taskID uuid.UUID) (*CompletionOutcome, error)

	// Delete removes a task. The deletion snapshot history entry is written
	// in the same transaction as the row removal; losing the audit entry
	// would be unrecoverable, so history failure aborts the delete.
	Delete(ctx context.Context, ownerID, taskID uuid.UUID) error

	// CreateRecurringInstance persists the next occurrence of a completed
	// recurring task and schedules its notifications.
	CreateRecurringInstance(ctx context.Context, completed *domain.Task) (*domain.Task, error)
}

// taskServiceImpl implements the TaskService interface.
type taskServiceImpl struct {
	tasks     store.TaskStore
	history   store.HistoryStore
	scheduler NotificationScheduler
	tx        store.Transactioner
	logger    *slog.Logger
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	tasks store.TaskStore,
	history store.HistoryStore,
	scheduler NotificationScheduler,
	tx store.Transactioner,
	log *slog.Logger,
) (TaskService, error) {
	if tasks == nil {
		return nil, fmt.Errorf("%w: tasks store cannot be nil", domain.ErrValidation)
	}
	if history == nil {
		return nil, fmt.Errorf("%w: history store cannot be nil", domain.ErrValidation)
	}
	if scheduler == nil {
		return nil, fmt.Errorf("%w: scheduler cannot be nil", domain.ErrValidation)
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: transactioner cannot be nil", domain.ErrValidation)
	}
	if log == nil {
		log = slog.Default()
	}

	return &taskServiceImpl{
		tasks:     tasks,
		history:   history,
		scheduler: scheduler,
		tx:        tx,
		logger:    log.With(slog.String("component", "task_service")),
	}, nil
}

// NextRecurringInstance builds the next occurrence of a recurring task:
// title, description, pattern and reminder are copied, the due date becomes
// the next occurrence, completion resets, the lookahead is recomputed one
// step further, and the client ID is cleared so the new instance never
// collides with an offline idempotency key. The single factory is shared by
// every path that materializes a next occurrence.
func NextRecurringInstance(completed *domain.Task) (*domain.Task, error) {
	nextDue, err := completed.NextOccurrenceAfterDue()
	if err != nil {
		return nil, err
	}

	pattern := *completed.RecurrencePattern
	now := time.Now().UTC()
	instance := &domain.Task{
		ID:                uuid.New(),
		OwnerID:           completed.OwnerID,
		Title:             completed.Title,
		Description:       completed.Description,
		Completed:         false,
		DueDate:           &nextDue,
		RecurrencePattern: &pattern,
		IsRecurring:       true,
		ReminderMinutes:   completed.ReminderMinutes,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	lookahead, err := recurrence.Next(nextDue, pattern)
	if err != nil {
		return nil, err
	}
	instance.NextOccurrence = &lookahead

	if err := instance.Validate(); err != nil {
		return nil, err
	}
	return instance, nil
}

// Create implements TaskService.Create.
func (s *taskServiceImpl) Create(ctx context.Context, ownerID uuid.UUID, input CreateTaskInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := domain.NewTask(ownerID, input.Title, input.Description)
	if err != nil {
		return nil, err
	}
	task.ClientID = input.ClientID

	if input.ReminderMinutes != nil {
		task.ReminderMinutes = *input.ReminderMinutes
	}

	if input.DueDate != nil {
		due := input.DueDate.UTC()
		task.DueDate = &due
	} else if input.DueDateText != "" {
		due, err := ParseDueDate(input.DueDateText, input.Timezone)
		if err != nil {
			return nil, err
		}
		task.DueDate = &due
	}

	if input.RecurrencePattern != nil {
		if task.DueDate == nil {
			return nil, domain.ErrRecurrenceWithoutDueDate
		}
		pattern := *input.RecurrencePattern
		task.RecurrencePattern = &pattern
		task.IsRecurring = true

		next, err := recurrence.Next(*task.DueDate, pattern)
		if err != nil {
			return nil, err
		}
		task.NextOccurrence = &next
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, NewTaskServiceError("create_task", "failed to save task", err)
	}

	// Audit trail and notifications are best-effort on creation: the task
	// exists regardless.
	if entry, err := domain.NewHistoryEntry(task, domain.ActionCreated, ownerID); err == nil {
		if err := s.history.Create(ctx, entry); err != nil {
			log.Error("failed to record task creation in history",
				slog.String("task_id", task.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	if task.DueDate != nil {
		if err := s.scheduler.ScheduleNotification(ctx, task.ID, task.Title, *task.DueDate, task.ReminderMinutes); err != nil {
			log.Error("failed to schedule notifications for new task",
				slog.String("task_id", task.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	log.Debug("created task",
		slog.String("task_id", task.ID.String()),
		slog.Bool("recurring", task.IsRecurring))
	return task, nil
}

// Get implements TaskService.Get.
func (s *taskServiceImpl) Get(ctx context.Context, ownerID uuid.UUID, idOrClientID string) (*domain.Task, error) {
	if id, err := uuid.Parse(idOrClientID); err == nil {
		return s.tasks.GetByID(ctx, ownerID, id)
	}
	return s.tasks.GetByClientID(ctx, ownerID, idOrClientID)
}

// List implements TaskService.List.
func (s *taskServiceImpl) List(ctx context.Context, ownerID uuid.UUID, page, pageSize int) ([]*domain.Task, int, error) {
	page, pageSize = clampPage(page, pageSize)
	return s.tasks.List(ctx, ownerID, (page-1)*pageSize, pageSize)
}

// Update implements TaskService.Update.
func (s *taskServiceImpl) Update(ctx context.Context, ownerID, taskID uuid.UUID, patch TaskPatch) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.tasks.GetByID(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	expectedVersion := task.Version

	completing := patch.Completed != nil && *patch.Completed && !task.Completed
	schedulingChanged := false

	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}
	if patch.DueDate != nil {
		due := patch.DueDate.UTC()
		task.DueDate = &due
		schedulingChanged = true
	}
	if patch.RecurrencePattern != nil {
		pattern := *patch.RecurrencePattern
		task.RecurrencePattern = &pattern
		task.IsRecurring = true
	}
	if patch.ReminderMinutes != nil {
		task.ReminderMinutes = *patch.ReminderMinutes
		schedulingChanged = true
	}

	if task.IsRecurring && task.DueDate != nil && task.RecurrencePattern != nil &&
		(patch.DueDate != nil || patch.RecurrencePattern != nil) {
		next, err := recurrence.Next(*task.DueDate, *task.RecurrencePattern)
		if err != nil {
			return nil, err
		}
		task.NextOccurrence = &next
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	task.Touch()

	if completing {
		// Flipping completed through a patch must behave exactly like
		// Complete: same transaction shape, same cascade.
		outcome, err := s.finishCompletion(ctx, task, expectedVersion, ownerID)
		if err != nil {
			return nil, err
		}
		return outcome.Task, nil
	}

	if err := s.tasks.Update(ctx, task, expectedVersion); err != nil {
		return nil, err
	}

	if schedulingChanged {
		if err := s.rescheduleNotifications(ctx, task); err != nil {
			log.Error("failed to reschedule notifications",
				slog.String("task_id", task.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	return task, nil
}

// Complete implements TaskService.Complete.
func (s *taskServiceImpl) Complete(ctx context.Context, ownerID, taskID uuid.UUID) (*CompletionOutcome, error) {
	task, err := s.tasks.GetByID(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Completed {
		return nil, ErrAlreadyCompleted
	}

	expectedVersion := task.Version
	task.Completed = true
	task.Touch()

	return s.finishCompletion(ctx, task, expectedVersion, ownerID)
}

// finishCompletion is the single implementation of the completion cascade,
// shared by Complete and by Update patches that flip the completed flag.
// The task mutation and the COMPLETED history entry commit atomically; the
// recurring-instance creation and its notification scheduling run after the
// commit and fail soft into the outcome.
func (s *taskServiceImpl) finishCompletion(ctx context.Context, task *domain.Task, expectedVersion int, actionBy uuid.UUID) (*CompletionOutcome, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		txHistory := s.history.WithTx(tx)

		if err := txTasks.Update(ctx, task, expectedVersion); err != nil {
			return err
		}

		entry, err := domain.NewHistoryEntry(task, domain.ActionCompleted, actionBy)
		if err != nil {
			return err
		}
		return txHistory.Create(ctx, entry)
	})
	if err != nil {
		if errors.Is(err, store.ErrVersionConflict) || store.IsNotFoundError(err) {
			return nil, err
		}
		return nil, NewTaskServiceError("complete_task", "failed to complete task", err)
	}

	outcome := &CompletionOutcome{Task: task}

	// The completed task no longer needs its pending notifications.
	if err := s.scheduler.CancelNotifications(ctx, task.ID); err != nil {
		log.Error("failed to cancel notifications for completed task",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		outcome.SchedulingErr = err
	}

	if task.IsRecurring && task.DueDate != nil && task.RecurrencePattern != nil {
		next, err := s.CreateRecurringInstance(ctx, task)
		if err != nil {
			log.Error("failed to create recurring instance",
				slog.String("task_id", task.ID.String()),
				slog.String("error", err.Error()))
			outcome.RecurrenceErr = err
		} else {
			outcome.NextTask = next
		}
	}

	log.Info("completed task",
		slog.String("task_id", task.ID.String()),
		slog.Bool("recurring", task.IsRecurring))
	return outcome, nil
}

// Delete implements TaskService.Delete. History-write-then-delete is one
// transaction: a deletion that cannot leave its audit snapshot behind must
// not happen at all.
func (s *taskServiceImpl) Delete(ctx context.Context, ownerID, taskID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.tasks.GetByID(ctx, ownerID, taskID)
	if err != nil {
		return err
	}

	err = s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		txHistory := s.history.WithTx(tx)

		entry, err := domain.NewHistoryEntry(task, domain.ActionDeleted, ownerID)
		if err != nil {
			return err
		}
		if err := txHistory.Create(ctx, entry); err != nil {
			return err
		}
		return txTasks.Delete(ctx, ownerID, taskID)
	})
	if err != nil {
		if store.IsNotFoundError(err) {
			return err
		}
		return NewTaskServiceError("delete_task", "failed to delete task", err)
	}

	if err := s.scheduler.CancelNotifications(ctx, taskID); err != nil {
		log.Error("failed to cancel notifications for deleted task",
			slog.String("task_id", taskID.String()),
			slog.String("error", err.Error()))
	}

	log.Info("deleted task", slog.String("task_id", taskID.String()))
	return nil
}

// CreateRecurringInstance implements TaskService.CreateRecurringInstance.
func (s *taskServiceImpl) CreateRecurringInstance(ctx context.Context, completed *domain.Task) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	instance, err := NextRecurringInstance(completed)
	if err != nil {
		return nil, err
	}

	if err := s.tasks.Create(ctx, instance); err != nil {
		return nil, NewTaskServiceError("create_recurring_instance", "failed to save next occurrence", err)
	}

	if instance.DueDate != nil {
		if err := s.scheduler.ScheduleNotification(ctx, instance.ID, instance.Title, *instance.DueDate, instance.ReminderMinutes); err != nil {
			log.Error("failed to schedule notifications for recurring instance",
				slog.String("task_id", instance.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	log.Debug("created recurring instance",
		slog.String("original_task_id", completed.ID.String()),
		slog.String("task_id", instance.ID.String()))
	return instance, nil
}

// rescheduleNotifications cancels a task's pending jobs and, when the task
// still has an upcoming deadline, schedules fresh ones.
func (s *taskServiceImpl) rescheduleNotifications(ctx context.Context, task *domain.Task) error {
	if err := s.scheduler.CancelNotifications(ctx, task.ID); err != nil {
		return err
	}
	if task.DueDate != nil && !task.Completed {
		return s.scheduler.ScheduleNotification(ctx, task.ID, task.Title, *task.DueDate, task.ReminderMinutes)
	}
	return nil
}

// clampPage normalizes pagination arguments: pages are 1-indexed, the page
// size defaults to 50 and is capped at 100.
func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
