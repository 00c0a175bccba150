package repository

import (
	"context"
	"errors"
	"time"

	"github.com/anupk5743/Colleborative-task-manager1/internal/domain"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
	ErrTaskNotFound = errors.New("task not found")
)

// UserRepository defines the interface for user data persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

// TaskRepository defines the interface for task data persistence.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id string) error
	// List returns tasks related to userID according to filter.Scope.
	List(ctx context.Context, userID string, filter domain.TaskFilter) ([]*domain.Task, error)
	// ListOverdue returns tasks related to userID that are due before now
	// and not completed, earliest first.
	ListOverdue(ctx context.Context, userID string, now time.Time) ([]*domain.Task, error)
}
