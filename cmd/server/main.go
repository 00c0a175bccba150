package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anupk5743/Colleborative-task-manager1/internal/cache"
	"github.com/anupk5743/Colleborative-task-manager1/internal/config"
	"github.com/anupk5743/Colleborative-task-manager1/internal/domain"
	"github.com/anupk5743/Colleborative-task-manager1/internal/gateway"
	"github.com/anupk5743/Colleborative-task-manager1/internal/handler"
	"github.com/anupk5743/Colleborative-task-manager1/internal/hub"
	"github.com/anupk5743/Colleborative-task-manager1/internal/repository"
	"github.com/anupk5743/Colleborative-task-manager1/internal/service"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/database"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/jwt"
	pkglog "github.com/anupk5743/Colleborative-task-manager1/pkg/log"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/middleware"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/pubsub"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, ServiceName: "task-manager"})
	logger := pkglog.L()

	// Connect to database using GORM
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db, &domain.UserModel{}, &domain.TaskModel{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")

	// User cache (Redis when enabled)
	var userCache cache.UserCache = cache.NopUserCache{}
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisUserCache(cfg.Redis, "task-manager")
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, user cache disabled")
		} else {
			userCache = rc
			logger.Info().Str("address", cfg.Redis.Address).Msg("redis user cache enabled")
		}
	}

	// Token verifier shared by the API and the realtime gateway
	tokens, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create jwt manager")
	}
	authMiddleware := middleware.NewAuthMiddleware(tokens)

	// Event stream mirror
	publisher, err := pubsub.NewPublisher(cfg.Events)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create event publisher")
	}
	var gwOpts []gateway.Option
	var stream *gateway.Stream
	if cfg.Events.Driver != "" && cfg.Events.Driver != "none" {
		stream = gateway.NewStream(publisher, pubsub.ChannelTaskEvents)
		gwOpts = append(gwOpts, gateway.WithStream(stream))
		logger.Info().Str("driver", cfg.Events.Driver).Msg("event stream enabled")
	}

	// Realtime gateway
	h := hub.NewHub(cfg.WebSocket)
	go h.Run()
	gw := gateway.New(h, tokens, gwOpts...)

	realtimeServer := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: handler.NewRealtimeRouter(
			handler.NewWSHandler(h, gw, cfg.WebSocket, cfg.Server.AllowedOrigins),
			handler.NewHTTPHandler(gw, h),
			authMiddleware,
			logger,
		),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// REST API
	userRepo := repository.NewGormUserRepository(db)
	taskRepo := repository.NewGormTaskRepository(db)
	userService := service.NewUserService(userRepo, tokens, userCache, cfg.Redis.CacheTTL)
	taskService := service.NewTaskService(taskRepo, userRepo)

	apiServer := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		Handler: handler.NewAPIRouter(
			handler.NewAuthHandler(userService, authMiddleware, cfg.API.CookieSecure),
			handler.NewTaskHandler(taskService, authMiddleware),
			logger,
		),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if stream != nil {
		g.Go(func() error {
			stream.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		logger.Info().Str("addr", realtimeServer.Addr).Msg("realtime server listening")
		if err := realtimeServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("realtime server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info().Str("addr", apiServer.Addr).Msg("api server listening")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down task-manager")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// 1. stop accepting new connections and requests
		if err := realtimeServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("realtime server shutdown error")
		}
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("api server shutdown error")
		}

		// 2. close all websocket clients, stop Hub.Run()
		h.Stop()

		// 3. flush the event stream, then close the publisher
		if stream != nil {
			stream.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server error")
	}

	if err := publisher.Close(); err != nil {
		logger.Error().Err(err).Msg("event publisher close error")
	}
	if err := userCache.Close(); err != nil {
		logger.Error().Err(err).Msg("user cache close error")
	}
	if err := database.Close(db); err != nil {
		logger.Error().Err(err).Msg("database close error")
	}
	logger.Info().Msg("task-manager stopped")
}
