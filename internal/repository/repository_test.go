package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/anupk5743/Colleborative-task-manager1/internal/domain"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.New(&database.Config{
		Driver:   "sqlite",
		FilePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, &domain.UserModel{}, &domain.TaskModel{}))
	t.Cleanup(func() { database.Close(db) })
	return db
}

func strPtr(s string) *string { return &s }

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormUserRepository(newTestDB(t))

	user := &domain.User{Name: "Alice", Email: "alice@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	err := repo.Create(ctx, &domain.User{Name: "Other", Email: "alice@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrEmailExists)

	err = repo.Create(ctx, &domain.User{Name: "Upper", Email: " ALICE@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrEmailExists)

	got, err := repo.GetByEmail(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	got.Name = "Alice B"
	require.NoError(t, repo.Update(ctx, got))

	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice B", got.Name)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = repo.Update(ctx, &domain.User{ID: "missing", Name: "x"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestTaskRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewGormTaskRepository(newTestDB(t))

	task := &domain.Task{
		Title:       "Write docs",
		Description: "API reference",
		DueDate:     time.Now().Add(24 * time.Hour).UTC(),
		Priority:    domain.PriorityHigh,
		Status:      domain.StatusToDo,
		CreatorID:   "u1",
	}
	require.NoError(t, repo.Create(ctx, task))
	assert.NotEmpty(t, task.ID)

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write docs", got.Title)
	assert.Nil(t, got.AssignedToID)

	got.Status = domain.StatusReview
	got.AssignedToID = strPtr("u2")
	require.NoError(t, repo.Update(ctx, got))

	got, err = repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReview, got.Status)
	require.NotNil(t, got.AssignedToID)
	assert.Equal(t, "u2", *got.AssignedToID)

	require.NoError(t, repo.Delete(ctx, task.ID))
	_, err = repo.GetByID(ctx, task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, task.ID), ErrTaskNotFound)
}

func TestTaskRepository_ListFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	repo := NewGormTaskRepository(newTestDB(t))
	base := time.Now().UTC().Add(48 * time.Hour)

	seed := []*domain.Task{
		{Title: "a", Description: "d", DueDate: base.Add(3 * time.Hour), Priority: domain.PriorityLow, Status: domain.StatusToDo, CreatorID: "u1"},
		{Title: "b", Description: "d", DueDate: base.Add(1 * time.Hour), Priority: domain.PriorityUrgent, Status: domain.StatusInProgress, CreatorID: "u1", AssignedToID: strPtr("u2")},
		{Title: "c", Description: "d", DueDate: base.Add(2 * time.Hour), Priority: domain.PriorityMedium, Status: domain.StatusToDo, CreatorID: "u2", AssignedToID: strPtr("u1")},
		{Title: "d", Description: "d", DueDate: base, Priority: domain.PriorityHigh, Status: domain.StatusToDo, CreatorID: "u3"},
	}
	for _, task := range seed {
		require.NoError(t, repo.Create(ctx, task))
	}

	titles := func(tasks []*domain.Task) []string {
		out := make([]string, 0, len(tasks))
		for _, task := range tasks {
			out = append(out, task.Title)
		}
		return out
	}

	tasks, err := repo.List(ctx, "u1", domain.TaskFilter{Scope: domain.ScopeInvolved, SortBy: domain.SortByDueDate})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, titles(tasks))

	tasks, err = repo.List(ctx, "u1", domain.TaskFilter{Scope: domain.ScopeCreated, SortBy: domain.SortByPriority, Desc: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, titles(tasks))

	tasks, err = repo.List(ctx, "u1", domain.TaskFilter{Scope: domain.ScopeAssigned})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, titles(tasks))

	tasks, err = repo.List(ctx, "u1", domain.TaskFilter{Scope: domain.ScopeInvolved, Status: domain.StatusToDo})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, titles(tasks))

	tasks, err = repo.List(ctx, "u1", domain.TaskFilter{Scope: domain.ScopeInvolved, Priority: domain.PriorityUrgent})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, titles(tasks))
}

func TestTaskRepository_ListOverdue(t *testing.T) {
	ctx := context.Background()
	repo := NewGormTaskRepository(newTestDB(t))
	now := time.Now().UTC()

	seed := []*domain.Task{
		{Title: "late", Description: "d", DueDate: now.Add(-2 * time.Hour), Priority: domain.PriorityLow, Status: domain.StatusToDo, CreatorID: "u1"},
		{Title: "done", Description: "d", DueDate: now.Add(-2 * time.Hour), Priority: domain.PriorityLow, Status: domain.StatusCompleted, CreatorID: "u1"},
		{Title: "future", Description: "d", DueDate: now.Add(2 * time.Hour), Priority: domain.PriorityLow, Status: domain.StatusToDo, CreatorID: "u1"},
		{Title: "other", Description: "d", DueDate: now.Add(-2 * time.Hour), Priority: domain.PriorityLow, Status: domain.StatusToDo, CreatorID: "u9"},
	}
	for _, task := range seed {
		require.NoError(t, repo.Create(ctx, task))
	}

	tasks, err := repo.ListOverdue(ctx, "u1", now)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "late", tasks[0].Title)
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "due_date ASC", orderClause("", false))
	assert.Equal(t, "created_at DESC", orderClause(domain.SortByCreatedAt, true))
	assert.Equal(t, "priority_rank ASC", orderClause(domain.SortByPriority, false))
	assert.Equal(t, "due_date ASC", orderClause("title; DROP TABLE tasks", false))
}
