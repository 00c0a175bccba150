package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/anupk5743/Colleborative-task-manager1/internal/config"
	"github.com/anupk5743/Colleborative-task-manager1/internal/gateway"
	"github.com/anupk5743/Colleborative-task-manager1/internal/hub"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/log"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/middleware"
)

type WSHandler struct {
	hub      *hub.Hub
	gateway  *gateway.Gateway
	wsCfg    config.WebSocketConfig
	upgrader websocket.Upgrader
}

func NewWSHandler(h *hub.Hub, gw *gateway.Gateway, wsCfg config.WebSocketConfig, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:     h,
		gateway: gw,
		wsCfg:   wsCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

// HandleWebSocket authenticates the handshake before upgrading. A request
// without a valid credential is refused with 401 and never becomes a
// connection, so it cannot appear in presence or trigger a broadcast.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := log.Ctx(ctx)

	userID, err := h.gateway.Authenticate(ctx, middleware.HandshakeToken(r))
	if err != nil {
		http.Error(w, gateway.AuthFailedMessage, http.StatusUnauthorized)
		return
	}
	log.SetActor(ctx, userID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), userID, h.hub, conn, h.wsCfg)
	client.SetDisconnectHandler(h.gateway.Disconnect)

	h.gateway.Admit(ctx, client)

	go client.WritePump()
	go client.ReadPump(h.gateway.Route)
}

// checkOrigin allows every origin when none are configured.
func checkOrigin(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
