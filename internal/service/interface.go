package service

import (
	"context"
	"time"

	"github.com/anupk5743/Colleborative-task-manager1/internal/domain"
)

// UserService defines the interface for account business logic.
type UserService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error)
	Logout(ctx context.Context, userID string) error
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, req *domain.UpdateProfileRequest) (*domain.User, error)
}

// TaskService defines the interface for task business logic.
type TaskService interface {
	Create(ctx context.Context, userID string, req *domain.CreateTaskRequest) (*domain.Task, error)
	Get(ctx context.Context, userID, taskID string) (*domain.Task, error)
	Update(ctx context.Context, userID, taskID string, req *domain.UpdateTaskRequest) (*domain.Task, error)
	Delete(ctx context.Context, userID, taskID string) error
	List(ctx context.Context, userID string, filter domain.TaskFilter) ([]*domain.Task, error)
	ListOverdue(ctx context.Context, userID string) ([]*domain.Task, error)
}

// TokenIssuer signs tokens for authenticated users.
type TokenIssuer interface {
	GenerateToken(userID string) (string, time.Time, error)
}
