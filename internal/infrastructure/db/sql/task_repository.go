package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/originals/task-api/internal/core/domain"
)

// TaskRepository implements ports.TaskRepository using gorm. Assignees live
// in the task_assignees join table.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	m := taskModel{
		Title:               task.Title,
		Description:         task.Description,
		Status:              string(task.Status),
		Priority:            string(task.Priority),
		ResponsiblePersonID: task.ResponsiblePersonID,
		CreatedAt:           task.CreatedAt.UTC(),
		UpdatedAt:           task.UpdatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&m).Error; err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return m.toDomain(), nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := r.load(r.db.WithContext(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return task, nil
}

// Update writes only the supplied fields and bumps updated_at.
func (r *TaskRepository) Update(ctx context.Context, id int64, patch domain.TaskPatch) (*domain.Task, error) {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Status != nil {
		updates["status"] = string(*patch.Status)
	}
	if patch.Priority != nil {
		updates["priority"] = string(*patch.Priority)
	}

	var task *domain.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := r.exists(tx, id)
		if err != nil || !found {
			return err
		}
		if err := tx.Model(&taskModel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		task, err = r.load(tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

// Delete removes the task and its assignee links. Users are untouched.
func (r *TaskRepository) Delete(ctx context.Context, id int64) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&taskAssigneeModel{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&taskModel{}, id)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	return deleted, nil
}

// AddAssignee links userID to the task. An existing link is left as is.
func (r *TaskRepository) AddAssignee(ctx context.Context, taskID, userID int64) (*domain.Task, error) {
	var task *domain.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := r.exists(tx, taskID)
		if err != nil || !found {
			return err
		}
		link := taskAssigneeModel{TaskID: taskID, UserID: userID, CreatedAt: time.Now().UTC()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
			return err
		}
		if err := tx.Model(&taskModel{}).Where("id = ?", taskID).Update("updated_at", time.Now().UTC()).Error; err != nil {
			return err
		}
		task, err = r.load(tx, taskID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("assign task: %w", err)
	}
	return task, nil
}

func (r *TaskRepository) exists(tx *gorm.DB, id int64) (bool, error) {
	var n int64
	if err := tx.Model(&taskModel{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// load reads a task with its assignees, returning nil when absent.
func (r *TaskRepository) load(tx *gorm.DB, id int64) (*domain.Task, error) {
	var m taskModel
	err := tx.Preload("Assignees", func(db *gorm.DB) *gorm.DB {
		return db.Order("users.id")
	}).First(&m, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return m.toDomain(), nil
}
