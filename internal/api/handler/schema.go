package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Auth ---

type registerRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=100"`
	Email    string `json:"email"    form:"email"    validate:"required,email,max=255"`
	Password string `json:"password" form:"password" validate:"required"`
}

type loginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token" validate:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Tasks ---

type createTaskRequest struct {
	Title               string `json:"title"                 validate:"required,max=255"`
	Description         string `json:"description"`
	Status              string `json:"status"                validate:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	Priority            string `json:"priority"              validate:"omitempty,oneof=HIGHEST HIGH MEDIUM LOW LOWEST"`
	ResponsiblePersonID *int64 `json:"responsible_person_id" validate:"omitempty,gt=0"`
}

// updateTaskRequest carries a partial update; absent fields stay nil.
type updateTaskRequest struct {
	Title       *string `json:"title"       validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	Status      *string `json:"status"      validate:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	Priority    *string `json:"priority"    validate:"omitempty,oneof=HIGHEST HIGH MEDIUM LOW LOWEST"`
}

type assigneeResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type taskResponse struct {
	ID                  int64              `json:"id"`
	Title               string             `json:"title"`
	Description         string             `json:"description"`
	Status              string             `json:"status"`
	Priority            string             `json:"priority"`
	ResponsiblePersonID int64              `json:"responsible_person_id"`
	Assignees           []assigneeResponse `json:"assignees"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}
