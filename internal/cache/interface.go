package cache

import (
	"context"
	"errors"
	"time"

	"github.com/anupk5743/Colleborative-task-manager1/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

type UserCacheResult struct {
	User domain.User `json:"user"`
}

// UserCache stores user profiles in front of the database.
type UserCache interface {
	Get(ctx context.Context, key string) (*UserCacheResult, error)
	Set(ctx context.Context, key string, result *UserCacheResult, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	BuildKeyByID(userID string) string
	Close() error
}

// NopUserCache always misses. It is used when Redis is disabled.
type NopUserCache struct{}

func (NopUserCache) Get(context.Context, string) (*UserCacheResult, error) { return nil, ErrCacheMiss }
func (NopUserCache) Set(context.Context, string, *UserCacheResult, time.Duration) error {
	return nil
}
func (NopUserCache) Delete(context.Context, ...string) error { return nil }
func (NopUserCache) BuildKeyByID(userID string) string       { return userID }
func (NopUserCache) Close() error                            { return nil }
