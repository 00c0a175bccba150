package log

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type actorKey struct{}

// actor is filled in by auth middleware further down the chain so the
// access log can name the caller.
type actor struct {
	userID string
}

// SetActor records the authenticated user for the access log entry of the
// current request. It is a no-op outside HTTPMiddleware.
func SetActor(ctx context.Context, userID string) {
	if a, ok := ctx.Value(actorKey{}).(*actor); ok {
		a.userID = userID
	}
}

// HTTPMiddleware returns a net/http middleware for gorilla/mux routers. It
// tags every request with a request ID, injects a child logger into the
// request context and logs the completed request. Websocket upgrades are
// logged when the connection is handed off, not when it closes.
func HTTPMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := r.Header.Get(headerRequestID)
			if reqID == "" {
				reqID = uuid.New().String()
			}

			child := logger.With().
				Str(FieldRequestID, reqID).
				Str(FieldMethod, r.Method).
				Str(FieldPath, r.URL.Path).
				Str(FieldClientIP, clientIP(r)).
				Logger()

			w.Header().Set(headerRequestID, reqID)

			who := &actor{}
			ctx := WithLogger(r.Context(), child)
			ctx = context.WithValue(ctx, actorKey{}, who)
			r = r.WithContext(ctx)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			evt := child.Info()
			if rec.status >= 500 {
				evt = child.Error()
			}
			evt = evt.
				Int(FieldStatus, rec.status).
				Float64(FieldLatency, float64(time.Since(start).Milliseconds()))
			if who.userID != "" {
				evt = evt.Str(FieldUserID, who.userID)
			}

			msg := "request completed"
			if rec.hijacked {
				msg = "connection upgraded"
			}
			evt.Msg(msg)
		})
	}
}

// statusRecorder captures the status code while still exposing the
// Hijacker and Flusher of the underlying writer; gorilla/websocket needs
// the former.
type statusRecorder struct {
	http.ResponseWriter
	status   int
	hijacked bool
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not implement http.Hijacker")
	}
	conn, rw, err := h.Hijack()
	if err == nil {
		r.hijacked = true
		r.status = http.StatusSwitchingProtocols
	}
	return conn, rw, err
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// clientIP extracts the client IP from X-Forwarded-For, X-Real-IP, or RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
