package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/originals/task-api/internal/core/domain"
	"github.com/originals/task-api/internal/core/ports"
)

// TaskHandler handles HTTP requests for task operations.
type TaskHandler struct {
	tasks ports.TaskService
	users ports.AuthService
}

func NewTaskHandler(tasks ports.TaskService, users ports.AuthService) *TaskHandler {
	return &TaskHandler{tasks: tasks, users: users}
}

// Create handles POST /api/v1/tasks. When responsible_person_id is omitted
// the caller becomes the responsible person.
//
// @Summary      Create a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createTaskRequest  true  "Task details"
// @Success      201   {object}  taskResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /api/v1/tasks [post]
func (h *TaskHandler) Create(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req createTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	var responsibleID int64
	if req.ResponsiblePersonID != nil {
		responsibleID = *req.ResponsiblePersonID
	} else {
		me, err := h.users.Me(ctx, caller)
		if err != nil {
			return err
		}
		responsibleID = me.ID
	}

	task, err := h.tasks.CreateTask(ctx, caller, ports.CreateTaskInput{
		Title:               req.Title,
		Description:         req.Description,
		Status:              domain.TaskStatus(req.Status),
		Priority:            domain.TaskPriority(req.Priority),
		ResponsiblePersonID: responsibleID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toTaskResponse(task))
}

// Get handles GET /api/v1/tasks/:id.
//
// @Summary      Get a task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Task id"
// @Success      200  {object}  taskResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/v1/tasks/{id} [get]
func (h *TaskHandler) Get(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	task, err := h.tasks.GetTask(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTaskResponse(task))
}

// Update handles PUT /api/v1/tasks/:id. Only the supplied fields change.
//
// @Summary      Update a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                true  "Task id"
// @Param        body  body      updateTaskRequest  true  "Fields to change"
// @Success      200   {object}  taskResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/v1/tasks/{id} [put]
func (h *TaskHandler) Update(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.tasks.UpdateTask(c.Request().Context(), caller, id, toTaskPatch(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTaskResponse(task))
}

// Delete handles DELETE /api/v1/tasks/:id.
//
// @Summary      Delete a task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Task id"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/v1/tasks/{id} [delete]
func (h *TaskHandler) Delete(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.tasks.DeleteTask(c.Request().Context(), caller, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Task deleted successfully"})
}

// Assign handles POST /api/v1/tasks/:id/assign/:user_id.
//
// @Summary      Assign a user to a task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int  true  "Task id"
// @Param        user_id  path      int  true  "User id"
// @Success      200      {object}  taskResponse
// @Failure      403      {object}  errorResponse
// @Failure      404      {object}  errorResponse
// @Router       /api/v1/tasks/{id}/assign/{user_id} [post]
func (h *TaskHandler) Assign(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	taskID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	userID, err := pathID(c, "user_id")
	if err != nil {
		return err
	}

	task, err := h.tasks.AssignTask(c.Request().Context(), caller, taskID, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTaskResponse(task))
}

// ChangeStatus handles PUT /api/v1/tasks/:id/status?new_status=DONE.
// newStatus is accepted as an alias of new_status.
//
// @Summary      Change task status
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id          path      int     true  "Task id"
// @Param        new_status  query     string  true  "TODO, IN_PROGRESS or DONE"
// @Success      200         {object}  taskResponse
// @Failure      400         {object}  errorResponse
// @Failure      404         {object}  errorResponse
// @Failure      422         {object}  errorResponse
// @Router       /api/v1/tasks/{id}/status [put]
func (h *TaskHandler) ChangeStatus(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	status := c.QueryParam("new_status")
	if status == "" {
		status = c.QueryParam("newStatus")
	}

	task, err := h.tasks.ChangeTaskStatus(c.Request().Context(), caller, id, domain.TaskStatus(status))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTaskResponse(task))
}
