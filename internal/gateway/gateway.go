// Package gateway implements the realtime connection lifecycle and event
// routing on top of the hub: handshake authentication, presence updates on
// connect and disconnect, and fan-out of task events.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/anupk5743/Colleborative-task-manager1/internal/audit"
	"github.com/anupk5743/Colleborative-task-manager1/internal/domain"
	"github.com/anupk5743/Colleborative-task-manager1/internal/hub"
	"github.com/anupk5743/Colleborative-task-manager1/internal/presence"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/jwt"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/log"
)

// ErrAuthFailed is the only error a rejected handshake reports. The
// underlying verifier error is logged, never returned.
var ErrAuthFailed = errors.New("authentication failed")

// AuthFailedMessage is the text sent to clients whose handshake is rejected.
const AuthFailedMessage = "Authentication failed"

// Gateway owns the presence table and routes events between connections.
type Gateway struct {
	hub      *hub.Hub
	presence *presence.Table
	verifier jwt.Verifier
	stream   *Stream
	now      func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithStream mirrors every fanned-out event to s.
func WithStream(s *Stream) Option {
	return func(g *Gateway) { g.stream = s }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

func New(h *hub.Hub, verifier jwt.Verifier, opts ...Option) *Gateway {
	g := &Gateway{
		hub:      h,
		presence: presence.NewTable(),
		verifier: verifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Presence exposes the presence table for read-only queries.
func (g *Gateway) Presence() *presence.Table {
	return g.presence
}

// Authenticate resolves the handshake credential to a user ID.
func (g *Gateway) Authenticate(ctx context.Context, token string) (string, error) {
	l := log.Ctx(ctx)
	if token == "" {
		l.Debug().Msg("handshake without credential")
		audit.LogWithDetail(ctx, audit.ActionAuthFailed, "", "missing token", "realtime authentication failed")
		return "", ErrAuthFailed
	}

	userID, err := g.verifier.Verify(token)
	if err != nil {
		l.Debug().Err(err).Msg("handshake credential rejected")
		audit.LogWithDetail(ctx, audit.ActionAuthFailed, "", err.Error(), "realtime authentication failed")
		return "", ErrAuthFailed
	}
	return userID, nil
}

// Admit registers an authenticated client, records it as the user's
// current connection and announces the user to every other connection.
func (g *Gateway) Admit(ctx context.Context, client *hub.Client) {
	g.hub.Register(client)
	g.presence.Set(client.UserID, client.ID)

	client.Logger.Info().Msg("user connected")
	audit.LogTarget(ctx, audit.ActionConnect, client.UserID, client.ID, "realtime connection admitted")

	g.broadcast(domain.Event{
		Kind:      domain.KindOnline,
		Payload:   domain.UserPresencePayload{UserID: client.UserID},
		SenderID:  client.UserID,
		Timestamp: g.now(),
	}, client.ID)
}

// Disconnect removes a client whose transport has closed. The presence
// entry is only cleared while it still points at this connection, so a
// stale disconnect cannot erase a newer login.
func (g *Gateway) Disconnect(client *hub.Client) {
	g.hub.Unregister(client)
	cleared := g.presence.DeleteIfMatches(client.UserID, client.ID)

	client.Logger.Info().Bool("presence_cleared", cleared).Msg("user disconnected")
	audit.LogTarget(log.WithLogger(context.Background(), client.Logger), audit.ActionDisconnect, client.UserID, client.ID, "realtime connection closed")

	g.broadcast(domain.Event{
		Kind:      domain.KindOffline,
		Payload:   domain.UserPresencePayload{UserID: client.UserID},
		SenderID:  client.UserID,
		Timestamp: g.now(),
	}, "")
}

// broadcast encodes e once and queues it for every connection except
// exclude.
func (g *Gateway) broadcast(e domain.Event, exclude string) {
	data, err := domain.EncodeEvent(e)
	if err != nil {
		l := log.L()
		l.Error().Err(err).Str(log.FieldEvent, e.Kind.String()).Msg("failed to encode event")
		return
	}
	g.hub.Broadcast(data, exclude)
	g.mirror(e)
}

func (g *Gateway) unicast(e domain.Event, connID string) {
	data, err := domain.EncodeEvent(e)
	if err != nil {
		l := log.L()
		l.Error().Err(err).Str(log.FieldEvent, e.Kind.String()).Msg("failed to encode event")
		return
	}
	g.hub.SendTo(connID, data)
	g.mirror(e)
}

func (g *Gateway) mirror(e domain.Event) {
	if g.stream != nil {
		g.stream.Enqueue(e)
	}
}
