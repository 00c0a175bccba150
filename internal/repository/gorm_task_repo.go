package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anupk5743/Colleborative-task-manager1/internal/domain"
)

// GormTaskRepository implements TaskRepository using GORM.
type GormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GORM-based task repository.
func NewGormTaskRepository(db *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task.
func (r *GormTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	task.ID = uuid.New().String()

	model := domain.TaskToModel(task)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}

	task.CreatedAt = model.CreatedAt
	task.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID retrieves a task by ID.
func (r *GormTaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	var model domain.TaskModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// Update writes every mutable field of task.
func (r *GormTaskRepository) Update(ctx context.Context, task *domain.Task) error {
	model := domain.TaskToModel(task)
	result := r.db.WithContext(ctx).Model(&domain.TaskModel{}).
		Where("id = ?", task.ID).
		Updates(map[string]any{
			"title":          model.Title,
			"description":    model.Description,
			"due_date":       model.DueDate,
			"priority":       model.Priority,
			"priority_rank":  model.PriorityRank,
			"status":         model.Status,
			"assigned_to_id": model.AssignedToID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}

	var updated domain.TaskModel
	if err := r.db.WithContext(ctx).First(&updated, "id = ?", task.ID).Error; err == nil {
		task.UpdatedAt = updated.UpdatedAt
	}
	return nil
}

// Delete removes a task.
func (r *GormTaskRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&domain.TaskModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// List returns tasks related to userID according to filter.
func (r *GormTaskRepository) List(ctx context.Context, userID string, filter domain.TaskFilter) ([]*domain.Task, error) {
	q := r.scoped(ctx, userID, filter.Scope)

	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Priority != "" {
		q = q.Where("priority = ?", string(filter.Priority))
	}

	q = q.Order(orderClause(filter.SortBy, filter.Desc))

	var models []domain.TaskModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	return toDomainTasks(models), nil
}

// ListOverdue returns overdue tasks related to userID.
func (r *GormTaskRepository) ListOverdue(ctx context.Context, userID string, now time.Time) ([]*domain.Task, error) {
	var models []domain.TaskModel
	err := r.scoped(ctx, userID, domain.ScopeInvolved).
		Where("due_date < ? AND status <> ?", now, string(domain.StatusCompleted)).
		Order("due_date ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainTasks(models), nil
}

func (r *GormTaskRepository) scoped(ctx context.Context, userID string, scope domain.TaskScope) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&domain.TaskModel{})
	switch scope {
	case domain.ScopeCreated:
		return q.Where("creator_id = ?", userID)
	case domain.ScopeAssigned:
		return q.Where("assigned_to_id = ?", userID)
	default:
		return q.Where("creator_id = ? OR assigned_to_id = ?", userID, userID)
	}
}

// orderClause maps a sort key to a column. Unknown keys sort by due date.
// The column names come from a fixed set, never from user input.
func orderClause(sortBy string, desc bool) string {
	column := "due_date"
	switch sortBy {
	case domain.SortByCreatedAt:
		column = "created_at"
	case domain.SortByPriority:
		column = "priority_rank"
	}
	if desc {
		return column + " DESC"
	}
	return column + " ASC"
}

func toDomainTasks(models []domain.TaskModel) []*domain.Task {
	tasks := make([]*domain.Task, 0, len(models))
	for i := range models {
		tasks = append(tasks, models[i].ToDomain())
	}
	return tasks
}
