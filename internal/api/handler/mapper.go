package handler

import (
	"github.com/originals/task-api/internal/core/domain"
)

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

func toTaskResponse(t *domain.Task) taskResponse {
	assignees := make([]assigneeResponse, 0, len(t.Assignees))
	for _, a := range t.Assignees {
		assignees = append(assignees, assigneeResponse{ID: a.ID, Username: a.Username, Email: a.Email})
	}
	return taskResponse{
		ID:                  t.ID,
		Title:               t.Title,
		Description:         t.Description,
		Status:              string(t.Status),
		Priority:            string(t.Priority),
		ResponsiblePersonID: t.ResponsiblePersonID,
		Assignees:           assignees,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

// toTaskPatch keeps nil for every field the client did not send.
func toTaskPatch(req updateTaskRequest) domain.TaskPatch {
	patch := domain.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Status != nil {
		s := domain.TaskStatus(*req.Status)
		patch.Status = &s
	}
	if req.Priority != nil {
		p := domain.TaskPriority(*req.Priority)
		patch.Priority = &p
	}
	return patch
}
