package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anupk5743/Colleborative-task-manager1/internal/cache"
	"github.com/anupk5743/Colleborative-task-manager1/internal/domain"
	"github.com/anupk5743/Colleborative-task-manager1/internal/repository"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/database"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/jwt"
)

type fixture struct {
	users    UserService
	tasks    *taskServiceImpl
	userRepo repository.UserRepository
	jwt      *jwt.Manager
	cache    *memoryCache
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string]cache.UserCacheResult
	gets  int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string]cache.UserCacheResult)}
}

func (c *memoryCache) Get(_ context.Context, key string) (*cache.UserCacheResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	r, ok := c.items[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return &r, nil
}

func (c *memoryCache) Set(_ context.Context, key string, r *cache.UserCacheResult, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = *r
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

func (c *memoryCache) BuildKeyByID(userID string) string { return "user:id:" + userID }
func (c *memoryCache) Close() error                      { return nil }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.New(&database.Config{
		Driver:   "sqlite",
		FilePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, &domain.UserModel{}, &domain.TaskModel{}))
	t.Cleanup(func() { database.Close(db) })

	manager, err := jwt.NewManager("secret", time.Hour, "test")
	require.NoError(t, err)

	userRepo := repository.NewGormUserRepository(db)
	mc := newMemoryCache()
	return &fixture{
		users:    NewUserService(userRepo, manager, mc, time.Minute),
		tasks:    NewTaskService(repository.NewGormTaskRepository(db), userRepo).(*taskServiceImpl),
		userRepo: userRepo,
		jwt:      manager,
		cache:    mc,
	}
}

func (f *fixture) register(t *testing.T, name, email string) *domain.User {
	t.Helper()
	resp, err := f.users.Register(context.Background(), &domain.RegisterRequest{Name: name, Email: email, Password: "secret123"})
	require.NoError(t, err)
	return resp.User
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.users.Register(ctx, &domain.RegisterRequest{Name: " Alice ", Email: "Alice@Example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", resp.User.Name)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.NotEqual(t, "secret123", resp.User.PasswordHash)

	userID, err := f.jwt.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, userID)

	_, err = f.users.Register(ctx, &domain.RegisterRequest{Name: "Again", Email: "alice@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrEmailExists)

	login, err := f.users.Login(ctx, &domain.LoginRequest{Email: "ALICE@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	_, err = f.users.Login(ctx, &domain.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.users.Login(ctx, &domain.LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.NoError(t, f.users.Logout(ctx, resp.User.ID))
}

func TestProfileCacheAside(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "Bob", "bob@example.com")
	key := f.cache.BuildKeyByID(user.ID)

	got, err := f.users.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.Name)
	assert.Eventually(t, func() bool { return f.cache.has(key) }, time.Second, 10*time.Millisecond)

	name := "Robert"
	updated, err := f.users.UpdateProfile(ctx, user.ID, &domain.UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Robert", updated.Name)
	assert.False(t, f.cache.has(key))

	got, err = f.users.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Robert", got.Name)

	_, err = f.users.GetProfile(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestTaskLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")
	bob := f.register(t, "Bob", "bob@example.com")
	carol := f.register(t, "Carol", "carol@example.com")

	task, err := f.tasks.Create(ctx, alice.ID, &domain.CreateTaskRequest{
		Title:        "Ship release",
		Description:  "Tag and publish",
		DueDate:      time.Now().Add(24 * time.Hour),
		AssignedToID: &bob.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityMedium, task.Priority)
	assert.Equal(t, domain.StatusToDo, task.Status)

	_, err = f.tasks.Get(ctx, bob.ID, task.ID)
	assert.NoError(t, err)
	_, err = f.tasks.Get(ctx, carol.ID, task.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.tasks.Get(ctx, alice.ID, "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	status := domain.StatusInProgress
	_, err = f.tasks.Update(ctx, bob.ID, task.ID, &domain.UpdateTaskRequest{Status: &status})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := f.tasks.Update(ctx, alice.ID, task.ID, &domain.UpdateTaskRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, updated.Status)

	past := time.Now().Add(-time.Hour)
	_, err = f.tasks.Update(ctx, alice.ID, task.ID, &domain.UpdateTaskRequest{DueDate: &past})
	assert.ErrorIs(t, err, ErrDueDateInPast)

	assert.ErrorIs(t, f.tasks.Delete(ctx, bob.ID, task.ID), ErrForbidden)
	require.NoError(t, f.tasks.Delete(ctx, alice.ID, task.ID))
	assert.ErrorIs(t, f.tasks.Delete(ctx, alice.ID, task.ID), ErrTaskNotFound)
}

func TestCreateTaskValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")
	future := time.Now().Add(time.Hour)

	_, err := f.tasks.Create(ctx, alice.ID, &domain.CreateTaskRequest{Title: "t", Description: "d", DueDate: time.Now().Add(-time.Minute)})
	assert.ErrorIs(t, err, ErrDueDateInPast)

	_, err = f.tasks.Create(ctx, alice.ID, &domain.CreateTaskRequest{Title: "t", Description: "d", DueDate: future, Priority: "Critical"})
	assert.ErrorIs(t, err, ErrInvalidTask)

	_, err = f.tasks.Create(ctx, alice.ID, &domain.CreateTaskRequest{Title: "   ", Description: "d", DueDate: future})
	assert.ErrorIs(t, err, ErrInvalidTask)

	missing := "ghost"
	_, err = f.tasks.Create(ctx, alice.ID, &domain.CreateTaskRequest{Title: "t", Description: "d", DueDate: future, AssignedToID: &missing})
	assert.ErrorIs(t, err, ErrAssigneeMissing)

	empty := ""
	task, err := f.tasks.Create(ctx, alice.ID, &domain.CreateTaskRequest{Title: "t", Description: "d", DueDate: future, AssignedToID: &empty})
	require.NoError(t, err)
	assert.Nil(t, task.AssignedToID)
}

func TestUpdateTaskAssignee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")
	bob := f.register(t, "Bob", "bob@example.com")

	task, err := f.tasks.Create(ctx, alice.ID, &domain.CreateTaskRequest{
		Title:        "Review",
		Description:  "Read the diff",
		DueDate:      time.Now().Add(time.Hour),
		AssignedToID: &bob.ID,
	})
	require.NoError(t, err)

	title := "Review again"
	updated, err := f.tasks.Update(ctx, alice.ID, task.ID, &domain.UpdateTaskRequest{Title: &title})
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedToID)
	assert.Equal(t, bob.ID, *updated.AssignedToID)

	updated, err = f.tasks.Update(ctx, alice.ID, task.ID, &domain.UpdateTaskRequest{
		AssignedToID: domain.NullableID{Set: true},
	})
	require.NoError(t, err)
	assert.Nil(t, updated.AssignedToID)

	stored, err := f.tasks.Get(ctx, alice.ID, task.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.AssignedToID)

	missing := "ghost"
	_, err = f.tasks.Update(ctx, alice.ID, task.ID, &domain.UpdateTaskRequest{
		AssignedToID: domain.NullableID{Set: true, Value: &missing},
	})
	assert.ErrorIs(t, err, ErrAssigneeMissing)
}

func TestListAndOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@example.com")

	_, err := f.tasks.Create(ctx, alice.ID, &domain.CreateTaskRequest{Title: "soon", Description: "d", DueDate: time.Now().Add(2 * time.Hour)})
	require.NoError(t, err)

	// Move the clock forward so the task becomes overdue.
	f.tasks.now = func() time.Time { return time.Now().Add(3 * time.Hour) }

	overdue, err := f.tasks.ListOverdue(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "soon", overdue[0].Title)

	_, err = f.tasks.List(ctx, alice.ID, domain.TaskFilter{SortBy: "title"})
	assert.ErrorIs(t, err, ErrInvalidTask)

	_, err = f.tasks.List(ctx, alice.ID, domain.TaskFilter{Status: "Done"})
	assert.ErrorIs(t, err, ErrInvalidTask)

	tasks, err := f.tasks.List(ctx, alice.ID, domain.TaskFilter{Scope: domain.ScopeCreated})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}
