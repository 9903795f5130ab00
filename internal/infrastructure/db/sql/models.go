package sql

import (
	"time"

	"github.com/originals/task-api/internal/core/domain"
)

type userModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Username     string    `gorm:"size:100;not null;uniqueIndex"`
	Email        string    `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string    `gorm:"size:255;not null"`
	Role         string    `gorm:"size:20;not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (userModel) TableName() string { return "users" }

func (m userModel) toDomain() *domain.User {
	return &domain.User{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.Role(m.Role),
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

type taskModel struct {
	ID                  int64       `gorm:"primaryKey;autoIncrement"`
	Title               string      `gorm:"size:255;not null"`
	Description         string      `gorm:"type:text"`
	Status              string      `gorm:"size:20;not null;index"`
	Priority            string      `gorm:"size:20;not null"`
	ResponsiblePersonID int64       `gorm:"not null;index"`
	Assignees           []userModel `gorm:"many2many:task_assignees;joinForeignKey:TaskID;joinReferences:UserID"`
	CreatedAt           time.Time   `gorm:"not null"`
	UpdatedAt           time.Time   `gorm:"not null"`
}

func (taskModel) TableName() string { return "tasks" }

func (m taskModel) toDomain() *domain.Task {
	assignees := make([]domain.User, 0, len(m.Assignees))
	for _, a := range m.Assignees {
		assignees = append(assignees, *a.toDomain())
	}
	return &domain.Task{
		ID:                  m.ID,
		Title:               m.Title,
		Description:         m.Description,
		Status:              domain.TaskStatus(m.Status),
		Priority:            domain.TaskPriority(m.Priority),
		ResponsiblePersonID: m.ResponsiblePersonID,
		Assignees:           assignees,
		CreatedAt:           m.CreatedAt.UTC(),
		UpdatedAt:           m.UpdatedAt.UTC(),
	}
}

// taskAssigneeModel is the join row; the composite key keeps a user from
// being linked to the same task twice.
type taskAssigneeModel struct {
	TaskID    int64 `gorm:"primaryKey"`
	UserID    int64 `gorm:"primaryKey;index"`
	CreatedAt time.Time
}

func (taskAssigneeModel) TableName() string { return "task_assignees" }
