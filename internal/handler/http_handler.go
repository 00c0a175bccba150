package handler

import (
	"encoding/json"
	"net/http"

	"github.com/anupk5743/Colleborative-task-manager1/internal/gateway"
	"github.com/anupk5743/Colleborative-task-manager1/internal/hub"
)

// HTTPHandler serves the plain HTTP endpoints of the realtime server.
type HTTPHandler struct {
	gateway *gateway.Gateway
	hub     *hub.Hub
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(gw *gateway.Gateway, h *hub.Hub) *HTTPHandler {
	return &HTTPHandler{gateway: gw, hub: h}
}

// PresenceResponse is the API response for presence queries.
type PresenceResponse struct {
	Users []string `json:"users"`
	Total int      `json:"total"`
}

// GetPresence handles GET /api/v1/presence
func (h *HTTPHandler) GetPresence(w http.ResponseWriter, r *http.Request) {
	users := h.gateway.Presence().Online()
	writeJSON(w, http.StatusOK, PresenceResponse{Users: users, Total: len(users)})
}

// HealthResponse reports liveness of the realtime server.
type HealthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

// Health handles GET /health
func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Connections: h.hub.ClientCount()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
