package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/originals/task-api/internal/core/domain"
	"github.com/originals/task-api/internal/core/ports"
	"github.com/originals/task-api/internal/pkg/metrics"
)

// TaskService orchestrates the task lifecycle on top of the task and
// identity stores.
type TaskService struct {
	tasks    ports.TaskRepository
	users    ports.UserRepository
	notifier ports.Notifier
	// strict enforces TODO -> IN_PROGRESS -> DONE on status changes.
	strict bool
	logger zerolog.Logger
}

func NewTaskService(
	tasks ports.TaskRepository,
	users ports.UserRepository,
	notifier ports.Notifier,
	strictTransitions bool,
	logger zerolog.Logger,
) *TaskService {
	return &TaskService{
		tasks:    tasks,
		users:    users,
		notifier: notifier,
		strict:   strictTransitions,
		logger:   logger,
	}
}

// CreateTask creates a task owned by input.ResponsiblePersonID. The
// responsible person is taken from the input, not from the caller.
func (s *TaskService) CreateTask(ctx context.Context, caller domain.Principal, input ports.CreateTaskInput) (*domain.Task, error) {
	if err := authorize(caller, domain.ActionCreateTask); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	status := input.Status
	if status == "" {
		status = domain.StatusTodo
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if err := validateEnums(&status, &priority); err != nil {
		return nil, err
	}

	if input.ResponsiblePersonID <= 0 {
		return nil, fmt.Errorf("%w: responsible person is required", domain.ErrValidation)
	}
	owner, err := s.users.FindByID(ctx, input.ResponsiblePersonID)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	if owner == nil {
		return nil, fmt.Errorf("%w: responsible person %d does not exist", domain.ErrValidation, input.ResponsiblePersonID)
	}

	now := time.Now().UTC()
	task := &domain.Task{
		Title:               title,
		Description:         input.Description,
		Status:              status,
		Priority:            priority,
		ResponsiblePersonID: owner.ID,
		Assignees:           []domain.User{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	created, err := s.tasks.Create(ctx, task)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create task")
		return nil, fmt.Errorf("create task: %w", err)
	}

	metrics.TasksCreatedTotal.WithLabelValues(string(created.Priority)).Inc()
	s.logger.Info().
		Int64("task_id", created.ID).
		Int64("responsible_person_id", created.ResponsiblePersonID).
		Str("by", caller.Username).
		Msg("task created")

	return created, nil
}

func (s *TaskService) GetTask(ctx context.Context, caller domain.Principal, id int64) (*domain.Task, error) {
	if err := authorize(caller, domain.ActionReadTask); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// UpdateTask applies a partial update. Only managers may call it.
func (s *TaskService) UpdateTask(ctx context.Context, caller domain.Principal, id int64, patch domain.TaskPatch) (*domain.Task, error) {
	if err := authorize(caller, domain.ActionUpdateTask); err != nil {
		return nil, err
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", domain.ErrValidation)
	}
	if err := validateEnums(patch.Status, patch.Priority); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return s.load(ctx, id)
	}
	if patch.Status != nil && s.strict {
		current, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if !current.Status.CanTransitionTo(*patch.Status) {
			return nil, fmt.Errorf("update task: %w (from %s to %s)", domain.ErrInvalidTransition, current.Status, *patch.Status)
		}
	}

	task, err := s.tasks.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}

	s.logger.Info().Int64("task_id", id).Str("by", caller.Username).Msg("task updated")
	return task, nil
}

// DeleteTask removes a task. Users linked to it are never deleted.
func (s *TaskService) DeleteTask(ctx context.Context, caller domain.Principal, id int64) error {
	if err := authorize(caller, domain.ActionDeleteTask); err != nil {
		return err
	}

	deleted, err := s.tasks.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if !deleted {
		return domain.ErrTaskNotFound
	}

	s.logger.Info().Int64("task_id", id).Str("by", caller.Username).Msg("task deleted")
	return nil
}

// AssignTask adds userID to the task's assignees. Assigning a user who is
// already an assignee is a no-op that returns the unchanged task.
func (s *TaskService) AssignTask(ctx context.Context, caller domain.Principal, taskID, userID int64) (*domain.Task, error) {
	if err := authorize(caller, domain.ActionAssignTask); err != nil {
		return nil, err
	}

	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("assign task: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	if task.HasAssignee(user.ID) {
		metrics.TaskAssignmentsTotal.WithLabelValues("duplicate").Inc()
		s.logger.Debug().Int64("task_id", taskID).Int64("user_id", userID).Msg("user already assigned")
		return task, nil
	}

	updated, err := s.tasks.AddAssignee(ctx, taskID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("assign task: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrTaskNotFound
	}

	metrics.TaskAssignmentsTotal.WithLabelValues("added").Inc()
	s.logger.Info().Int64("task_id", taskID).Int64("user_id", userID).Str("by", caller.Username).Msg("task assigned")
	return updated, nil
}

// ChangeTaskStatus updates only the status field and then notifies the
// responsible person. Notification failures are logged, never returned.
func (s *TaskService) ChangeTaskStatus(ctx context.Context, caller domain.Principal, taskID int64, status domain.TaskStatus) (*domain.Task, error) {
	if err := authorize(caller, domain.ActionChangeStatus); err != nil {
		return nil, err
	}
	if status == "" {
		return nil, fmt.Errorf("%w: status is required", domain.ErrValidation)
	}
	if err := validateEnums(&status, nil); err != nil {
		return nil, err
	}

	if s.strict {
		current, err := s.load(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if !current.Status.CanTransitionTo(status) {
			return nil, fmt.Errorf("change status: %w (from %s to %s)", domain.ErrInvalidTransition, current.Status, status)
		}
	}

	task, err := s.tasks.Update(ctx, taskID, domain.TaskPatch{Status: &status})
	if err != nil {
		return nil, fmt.Errorf("change status: %w", err)
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}

	metrics.TaskStatusChangesTotal.WithLabelValues(string(task.Status)).Inc()
	s.logger.Info().
		Int64("task_id", task.ID).
		Str("status", string(task.Status)).
		Str("by", caller.Username).
		Msg("task status changed")

	if s.notifier != nil {
		change := domain.StatusChange{
			ID:        uuid.NewString(),
			TaskID:    task.ID,
			Status:    task.Status,
			ChangedAt: task.UpdatedAt,
		}
		if err := s.notifier.Notify(ctx, change); err != nil {
			s.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("status notification failed")
		}
	}

	return task, nil
}

func (s *TaskService) load(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

// validateEnums checks the optional status and priority values.
func validateEnums(status *domain.TaskStatus, priority *domain.TaskPriority) error {
	if status != nil && !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrValidation, *status)
	}
	if priority != nil && !priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", domain.ErrValidation, *priority)
	}
	return nil
}
