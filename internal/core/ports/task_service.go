package ports

import (
	"context"

	"github.com/originals/task-api/internal/core/domain"
)

// CreateTaskInput carries all data needed to create a new task.
type CreateTaskInput struct {
	Title               string
	Description         string
	Status              domain.TaskStatus
	Priority            domain.TaskPriority
	ResponsiblePersonID int64
}

// TaskService defines the task lifecycle use cases. Every operation is
// checked against domain.IsAllowed for the caller's role.
type TaskService interface {
	CreateTask(ctx context.Context, caller domain.Principal, input CreateTaskInput) (*domain.Task, error)
	GetTask(ctx context.Context, caller domain.Principal, id int64) (*domain.Task, error)
	UpdateTask(ctx context.Context, caller domain.Principal, id int64, patch domain.TaskPatch) (*domain.Task, error)
	DeleteTask(ctx context.Context, caller domain.Principal, id int64) error
	AssignTask(ctx context.Context, caller domain.Principal, taskID, userID int64) (*domain.Task, error)
	ChangeTaskStatus(ctx context.Context, caller domain.Principal, taskID int64, status domain.TaskStatus) (*domain.Task, error)
}

// Notifier receives status-change notifications. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, change domain.StatusChange) error
}
