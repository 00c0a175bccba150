package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/anupk5743/Colleborative-task-manager1/pkg/log"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/middleware"
)

// NewRealtimeRouter wires the realtime server routes.
func NewRealtimeRouter(ws *WSHandler, httpHandler *HTTPHandler, auth *middleware.AuthMiddleware, logger zerolog.Logger) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/ws", ws.HandleWebSocket)
	router.HandleFunc("/health", httpHandler.Health).Methods(http.MethodGet)
	router.Handle("/api/v1/presence", auth.HTTP(http.HandlerFunc(httpHandler.GetPresence))).Methods(http.MethodGet)

	return log.HTTPMiddleware(logger)(router)
}

// NewAPIRouter wires the REST API routes.
func NewAPIRouter(authHandler *AuthHandler, taskHandler *TaskHandler, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(log.GinMiddleware(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	authHandler.RegisterRoutes(api)
	taskHandler.RegisterRoutes(api)

	return r
}
