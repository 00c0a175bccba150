package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"

	"github.com/anupk5743/Colleborative-task-manager1/internal/audit"
	"github.com/anupk5743/Colleborative-task-manager1/internal/cache"
	"github.com/anupk5743/Colleborative-task-manager1/internal/domain"
	"github.com/anupk5743/Colleborative-task-manager1/internal/repository"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/log"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("user already exists with this email")
)

const passwordCost = 10

// userServiceImpl implements UserService interface.
type userServiceImpl struct {
	repo     repository.UserRepository
	tokens   TokenIssuer
	cache    cache.UserCache
	cacheTTL time.Duration
	sf       singleflight.Group
}

// NewUserService creates a new user service.
func NewUserService(repo repository.UserRepository, tokens TokenIssuer, userCache cache.UserCache, cacheTTL time.Duration) UserService {
	if userCache == nil {
		userCache = cache.NopUserCache{}
	}
	return &userServiceImpl{
		repo:     repo,
		tokens:   tokens,
		cache:    userCache,
		cacheTTL: cacheTTL,
	}
}

// Register registers a new user.
func (s *userServiceImpl) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error) {
	l := log.Ctx(ctx)
	email := normalizeEmail(req.Email)

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		l.Error().Err(err).Msg("failed to look up user by email")
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), passwordCost)
	if err != nil {
		l.Error().Err(err).Msg("failed to hash password")
		return nil, err
	}

	user := &domain.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hashedPassword),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailExists
		}
		l.Error().Err(err).Msg("failed to create user")
		return nil, err
	}

	resp, err := s.issue(user)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, user.ID).Msg("failed to generate token after register")
		return nil, err
	}

	audit.Log(ctx, audit.ActionRegister, user.ID, "user registered")
	return resp, nil
}

// Login authenticates a user.
func (s *userServiceImpl) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	l := log.Ctx(ctx)
	email := normalizeEmail(req.Email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			audit.LogWithDetail(ctx, audit.ActionLoginFailed, "", email, "login failed: user not found")
			return nil, ErrInvalidCredentials
		}
		l.Error().Err(err).Msg("failed to get user by email")
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		audit.LogWithDetail(ctx, audit.ActionLoginFailed, user.ID, email, "login failed: wrong password")
		return nil, ErrInvalidCredentials
	}

	resp, err := s.issue(user)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, user.ID).Msg("failed to generate token after login")
		return nil, err
	}

	audit.Log(ctx, audit.ActionLogin, user.ID, "user logged in")
	return resp, nil
}

// Logout records the logout. Tokens are stateless; the handler clears the
// cookie.
func (s *userServiceImpl) Logout(ctx context.Context, userID string) error {
	audit.Log(ctx, audit.ActionLogout, userID, "user logged out")
	return nil
}

// GetProfile returns a user, served from the cache when possible.
func (s *userServiceImpl) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	key := s.cache.BuildKeyByID(userID)

	result, err, _ := s.sf.Do(key, func() (any, error) {
		cached, err := s.cache.Get(ctx, key)
		if err == nil {
			user := cached.User
			return &user, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Msg("cache get error")
		}

		user, err := s.repo.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}

		s.asyncCacheSet(key, user)
		return user, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*domain.User), nil
}

// UpdateProfile changes the user's display name.
func (s *userServiceImpl) UpdateProfile(ctx context.Context, userID string, req *domain.UpdateProfileRequest) (*domain.User, error) {
	l := log.Ctx(ctx)

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to update user")
		return nil, err
	}

	if err := s.cache.Delete(ctx, s.cache.BuildKeyByID(userID)); err != nil {
		l.Warn().Err(err).Msg("cache delete error")
	}

	audit.Log(ctx, audit.ActionUpdateProfile, userID, "profile updated")
	return user, nil
}

func (s *userServiceImpl) issue(user *domain.User) (*domain.AuthResponse, error) {
	token, exp, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResponse{User: user, Token: token, ExpiresAt: exp}, nil
}

func (s *userServiceImpl) asyncCacheSet(key string, user *domain.User) {
	snapshot := *user
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := s.cache.Set(ctx, key, &cache.UserCacheResult{User: snapshot}, s.cacheTTL); err != nil {
			l := log.L()
			l.Warn().Err(err).Str("key", key).Msg("cache set error")
		}
	}()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
