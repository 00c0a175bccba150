package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anupk5743/Colleborative-task-manager1/internal/audit"
	"github.com/anupk5743/Colleborative-task-manager1/internal/domain"
	"github.com/anupk5743/Colleborative-task-manager1/internal/repository"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/log"
)

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrForbidden       = errors.New("not authorized to access this task")
	ErrDueDateInPast   = errors.New("due date must be in the future")
	ErrInvalidTask     = errors.New("invalid task")
	ErrAssigneeMissing = errors.New("assigned user does not exist")
)

type taskServiceImpl struct {
	tasks repository.TaskRepository
	users repository.UserRepository
	now   func() time.Time
}

// NewTaskService creates a new task service.
func NewTaskService(tasks repository.TaskRepository, users repository.UserRepository) TaskService {
	return &taskServiceImpl{tasks: tasks, users: users, now: time.Now}
}

// Create creates a task owned by userID.
func (s *taskServiceImpl) Create(ctx context.Context, userID string, req *domain.CreateTaskRequest) (*domain.Task, error) {
	l := log.Ctx(ctx)

	task := &domain.Task{
		Title:        strings.TrimSpace(req.Title),
		Description:  strings.TrimSpace(req.Description),
		DueDate:      req.DueDate.UTC(),
		Priority:     req.Priority,
		Status:       req.Status,
		CreatorID:    userID,
		AssignedToID: normalizeAssignee(req.AssignedToID),
	}
	if task.Priority == "" {
		task.Priority = domain.PriorityMedium
	}
	if task.Status == "" {
		task.Status = domain.StatusToDo
	}

	if err := s.validate(ctx, task); err != nil {
		return nil, err
	}
	if !task.DueDate.After(s.now()) {
		return nil, ErrDueDateInPast
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		l.Error().Err(err).Msg("failed to create task")
		return nil, err
	}

	audit.LogTarget(ctx, audit.ActionTaskCreate, userID, task.ID, "task created")
	return task, nil
}

// Get returns a task visible to userID.
func (s *taskServiceImpl) Get(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.CanView(userID) {
		return nil, ErrForbidden
	}
	return task, nil
}

// Update applies a partial update. Only the creator may update a task.
func (s *taskServiceImpl) Update(ctx context.Context, userID, taskID string, req *domain.UpdateTaskRequest) (*domain.Task, error) {
	l := log.Ctx(ctx)

	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.CanModify(userID) {
		return nil, ErrForbidden
	}

	if req.Title != nil {
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		task.Description = strings.TrimSpace(*req.Description)
	}
	if req.DueDate != nil {
		if !req.DueDate.After(s.now()) {
			return nil, ErrDueDateInPast
		}
		task.DueDate = req.DueDate.UTC()
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.AssignedToID.Set {
		task.AssignedToID = normalizeAssignee(req.AssignedToID.Value)
	}

	if err := s.validate(ctx, task); err != nil {
		return nil, err
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		l.Error().Err(err).Str(log.FieldTaskID, taskID).Msg("failed to update task")
		return nil, err
	}

	audit.LogTarget(ctx, audit.ActionTaskUpdate, userID, taskID, "task updated")
	return task, nil
}

// Delete removes a task. Only the creator may delete it.
func (s *taskServiceImpl) Delete(ctx context.Context, userID, taskID string) error {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return err
	}
	if !task.CanModify(userID) {
		return ErrForbidden
	}

	if err := s.tasks.Delete(ctx, taskID); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	audit.LogTarget(ctx, audit.ActionTaskDelete, userID, taskID, "task deleted")
	return nil
}

// List returns tasks related to userID.
func (s *taskServiceImpl) List(ctx context.Context, userID string, filter domain.TaskFilter) ([]*domain.Task, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTask, filter.Status)
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, filter.Priority)
	}
	switch filter.SortBy {
	case "", domain.SortByDueDate, domain.SortByCreatedAt, domain.SortByPriority:
	default:
		return nil, fmt.Errorf("%w: unknown sort key %q", ErrInvalidTask, filter.SortBy)
	}
	return s.tasks.List(ctx, userID, filter)
}

// ListOverdue returns tasks past due that are not completed.
func (s *taskServiceImpl) ListOverdue(ctx context.Context, userID string) ([]*domain.Task, error) {
	return s.tasks.ListOverdue(ctx, userID, s.now().UTC())
}

func (s *taskServiceImpl) load(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func (s *taskServiceImpl) validate(ctx context.Context, task *domain.Task) error {
	if task.Title == "" || len([]rune(task.Title)) > domain.MaxTitleLength {
		return fmt.Errorf("%w: title must be 1-%d characters", ErrInvalidTask, domain.MaxTitleLength)
	}
	if task.Description == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidTask)
	}
	if !task.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, task.Priority)
	}
	if !task.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTask, task.Status)
	}
	if task.AssignedToID != nil {
		if _, err := s.users.GetByID(ctx, *task.AssignedToID); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return ErrAssigneeMissing
			}
			return err
		}
	}
	return nil
}

// normalizeAssignee treats an empty assignee as unassigned.
func normalizeAssignee(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
