package ports

import (
	"context"

	"github.com/originals/task-api/internal/core/domain"
)

// TaskRepository defines persistence operations for tasks and their assignees.
// Lookups and updates return (nil, nil) when the task does not exist.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	// FindByID loads the task with its assignee set resolved.
	FindByID(ctx context.Context, id int64) (*domain.Task, error)
	// Update applies only the non-nil fields of patch.
	Update(ctx context.Context, id int64, patch domain.TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, id int64) (bool, error)
	// AddAssignee links userID to the task with set semantics: linking the
	// same user twice leaves a single membership.
	AddAssignee(ctx context.Context, taskID, userID int64) (*domain.Task, error)
}
