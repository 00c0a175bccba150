package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/anupk5743/Colleborative-task-manager1/internal/domain"
	"github.com/anupk5743/Colleborative-task-manager1/internal/service"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/log"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/middleware"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/response"
)

// TaskHandler handles task endpoints.
type TaskHandler struct {
	taskService    service.TaskService
	authMiddleware *middleware.AuthMiddleware
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(taskService service.TaskService, authMiddleware *middleware.AuthMiddleware) *TaskHandler {
	return &TaskHandler{
		taskService:    taskService,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers task routes under api.
func (h *TaskHandler) RegisterRoutes(api *gin.RouterGroup) {
	tasks := api.Group("/tasks")
	tasks.Use(h.authMiddleware.RequireAuth())
	{
		tasks.GET("", h.List)
		tasks.POST("", h.Create)
		tasks.GET("/created/me", h.ListCreated)
		tasks.GET("/assigned/me", h.ListAssigned)
		tasks.GET("/overdue/me", h.ListOverdue)
		tasks.GET("/:id", h.Get)
		tasks.PUT("/:id", h.Update)
		tasks.DELETE("/:id", h.Delete)
	}
}

// Create creates a task owned by the caller.
func (h *TaskHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid create task request")
		response.ValidationError(c, bindingDetails(err))
		return
	}

	task, err := h.taskService.Create(ctx, middleware.GetUserID(c), &req)
	if err != nil {
		h.handleError(c, err, "failed to create task")
		return
	}
	response.Created(c, task)
}

// List returns tasks created by or assigned to the caller.
func (h *TaskHandler) List(c *gin.Context) {
	h.list(c, domain.ScopeInvolved)
}

// ListCreated returns tasks created by the caller.
func (h *TaskHandler) ListCreated(c *gin.Context) {
	h.list(c, domain.ScopeCreated)
}

// ListAssigned returns tasks assigned to the caller.
func (h *TaskHandler) ListAssigned(c *gin.Context) {
	h.list(c, domain.ScopeAssigned)
}

// ListOverdue returns the caller's overdue tasks.
func (h *TaskHandler) ListOverdue(c *gin.Context) {
	ctx := c.Request.Context()
	tasks, err := h.taskService.ListOverdue(ctx, middleware.GetUserID(c))
	if err != nil {
		h.handleError(c, err, "failed to list overdue tasks")
		return
	}
	response.Success(c, tasks)
}

// Get returns a single task.
func (h *TaskHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	task, err := h.taskService.Get(ctx, middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		h.handleError(c, err, "failed to get task")
		return
	}
	response.Success(c, task)
}

// Update applies a partial update to a task.
func (h *TaskHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid update task request")
		response.ValidationError(c, bindingDetails(err))
		return
	}

	task, err := h.taskService.Update(ctx, middleware.GetUserID(c), c.Param("id"), &req)
	if err != nil {
		h.handleError(c, err, "failed to update task")
		return
	}
	response.Success(c, task)
}

// Delete removes a task.
func (h *TaskHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.taskService.Delete(ctx, middleware.GetUserID(c), c.Param("id")); err != nil {
		h.handleError(c, err, "failed to delete task")
		return
	}
	response.SuccessMessage(c, "Task deleted successfully")
}

func (h *TaskHandler) list(c *gin.Context, scope domain.TaskScope) {
	ctx := c.Request.Context()
	order := strings.ToLower(c.Query("order"))
	if order != "" && order != "asc" && order != "desc" {
		response.ValidationError(c, []string{"order must be asc or desc"})
		return
	}
	filter := domain.TaskFilter{
		Scope:    scope,
		Status:   domain.TaskStatus(c.Query("status")),
		Priority: domain.TaskPriority(c.Query("priority")),
		SortBy:   c.Query("sortBy"),
		Desc:     order == "desc",
	}

	tasks, err := h.taskService.List(ctx, middleware.GetUserID(c), filter)
	if err != nil {
		h.handleError(c, err, "failed to list tasks")
		return
	}
	response.Success(c, tasks)
}

func (h *TaskHandler) handleError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrInvalidTask),
		errors.Is(err, service.ErrDueDateInPast),
		errors.Is(err, service.ErrAssigneeMissing):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, "Not authorized to access this task")
	case errors.Is(err, service.ErrTaskNotFound):
		response.NotFound(c, "Task not found")
	default:
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str(log.FieldTaskID, c.Param("id")).Msg(msg)
		response.InternalError(c, msg)
	}
}
