package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anupk5743/Colleborative-task-manager1/internal/domain"
	"github.com/anupk5743/Colleborative-task-manager1/internal/service"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/log"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/middleware"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/response"
)

// AuthHandler handles account endpoints.
type AuthHandler struct {
	userService    service.UserService
	authMiddleware *middleware.AuthMiddleware
	cookieSecure   bool
}

// NewAuthHandler creates a new account handler.
func NewAuthHandler(userService service.UserService, authMiddleware *middleware.AuthMiddleware, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		userService:    userService,
		authMiddleware: authMiddleware,
		cookieSecure:   cookieSecure,
	}
}

// RegisterRoutes registers account routes under api.
func (h *AuthHandler) RegisterRoutes(api *gin.RouterGroup) {
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.authMiddleware.OptionalAuth(), h.Logout)
		auth.GET("/me", h.authMiddleware.RequireAuth(), h.GetMe)
		auth.PUT("/profile", h.authMiddleware.RequireAuth(), h.UpdateProfile)
	}
}

// Register handles user registration.
func (h *AuthHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid register request")
		response.ValidationError(c, bindingDetails(err))
		return
	}

	result, err := h.userService.Register(ctx, &req)
	if err != nil {
		if errors.Is(err, service.ErrEmailExists) {
			response.Conflict(c, "User already exists with this email")
			return
		}
		l.Error().Err(err).Msg("register failed")
		response.InternalError(c, "failed to register user")
		return
	}

	h.setTokenCookie(c, result.Token, result.ExpiresAt)
	response.Created(c, result)
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid login request")
		response.ValidationError(c, bindingDetails(err))
		return
	}

	result, err := h.userService.Login(ctx, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, "Invalid email or password")
			return
		}
		l.Error().Err(err).Msg("login failed")
		response.InternalError(c, "failed to login")
		return
	}

	h.setTokenCookie(c, result.Token, result.ExpiresAt)
	response.Success(c, result)
}

// Logout clears the token cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	if userID := middleware.GetUserID(c); userID != "" {
		if err := h.userService.Logout(ctx, userID); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("logout failed")
		}
	}
	h.clearTokenCookie(c)
	response.SuccessMessage(c, "Logged out successfully")
}

// GetMe returns the caller's profile.
func (h *AuthHandler) GetMe(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.userService.GetProfile(ctx, middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, "User not found")
			return
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("get profile failed")
		response.InternalError(c, "failed to get profile")
		return
	}
	response.Success(c, user)
}

// UpdateProfile updates the caller's profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid profile request")
		response.ValidationError(c, bindingDetails(err))
		return
	}

	user, err := h.userService.UpdateProfile(ctx, middleware.GetUserID(c), &req)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, "User not found")
			return
		}
		l.Error().Err(err).Msg("update profile failed")
		response.InternalError(c, "failed to update profile")
		return
	}
	response.Success(c, user)
}

func (h *AuthHandler) setTokenCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, token, maxAge, "/", "", h.cookieSecure, true)
}

func (h *AuthHandler) clearTokenCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", h.cookieSecure, true)
}
