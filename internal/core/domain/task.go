package domain

import (
	"time"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusDone       TaskStatus = "DONE"
)

// TaskPriority ranks how urgent a task is.
type TaskPriority string

const (
	PriorityHighest TaskPriority = "HIGHEST"
	PriorityHigh    TaskPriority = "HIGH"
	PriorityMedium  TaskPriority = "MEDIUM"
	PriorityLow     TaskPriority = "LOW"
	PriorityLowest  TaskPriority = "LOWEST"
)

// forwardTransitions is the ordering enforced when strict transitions are enabled.
var forwardTransitions = map[TaskStatus][]TaskStatus{
	StatusTodo:       {StatusInProgress},
	StatusInProgress: {StatusDone},
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next respects the forward
// ordering TODO -> IN_PROGRESS -> DONE. Re-applying the current status is allowed.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range forwardTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether p is one of the known priorities.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityHighest, PriorityHigh, PriorityMedium, PriorityLow, PriorityLowest:
		return true
	}
	return false
}

// Task is the core aggregate. Assignees never contain the same user twice.
type Task struct {
	ID                  int64        `json:"id"`
	Title               string       `json:"title"`
	Description         string       `json:"description"`
	Status              TaskStatus   `json:"status"`
	Priority            TaskPriority `json:"priority"`
	ResponsiblePersonID int64        `json:"responsible_person_id"`
	Assignees           []User       `json:"assignees"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// HasAssignee reports whether userID is already in the assignee set.
func (t *Task) HasAssignee(userID int64) bool {
	for _, u := range t.Assignees {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// TaskPatch carries a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *TaskStatus
	Priority    *TaskPriority
}

// Empty reports whether the patch would change nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil
}

// StatusChange is the payload handed to notification sinks. ID is unique per
// change; a redelivered change keeps its ID.
type StatusChange struct {
	ID        string
	TaskID    int64
	Status    TaskStatus
	ChangedAt time.Time
}
