package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func fastConfig(url, token string) Config {
	cfg := DefaultConfig(url, token)
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond
	cfg.MaxAttempts = 3
	return cfg
}

func nextEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case evt, ok := <-c.Events():
		require.True(t, ok, "events channel closed")
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestBackoff(t *testing.T) {
	c := New(DefaultConfig("ws://example", ""))

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, d := range want {
		assert.Equal(t, d, c.backoff(i+1), "attempt %d", i+1)
	}
}

func TestConnect_UnauthorizedIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "Authentication failed", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(fastConfig(wsURL(srv), "bad"))
	err := c.Connect(context.Background())

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, StateFailed, c.State())
	assert.ErrorIs(t, c.Err(), ErrUnauthorized)

	_, ok := <-c.Events()
	assert.False(t, ok)
}

func TestConnect_GivesUpAfterMaxAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(fastConfig(wsURL(srv), "tok"))
	err := c.Connect(context.Background())

	assert.ErrorIs(t, err, ErrCannotConnect)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, StateFailed, c.State())
}

func TestEmitAndReceive(t *testing.T) {
	tokens := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens <- r.URL.Query().Get("token")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := New(fastConfig(wsURL(srv), "tok-1"))
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	assert.Equal(t, "tok-1", <-tokens)
	assert.Equal(t, StateConnected, c.State())

	require.NoError(t, c.Emit("task:deleted", map[string]string{"taskId": "t1"}))

	evt := nextEvent(t, c)
	assert.Equal(t, "task:deleted", evt.Name)
	var data map[string]string
	require.NoError(t, json.Unmarshal(evt.Data, &data))
	assert.Equal(t, "t1", data["taskId"])
}

func TestReconnectAfterDrop(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := conns.Add(1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		frame, _ := json.Marshal(map[string]any{"event": "hello", "data": map[string]int32{"n": n}})
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
		if n == 1 {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := New(fastConfig(wsURL(srv), "tok"))
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	first := nextEvent(t, c)
	assert.JSONEq(t, `{"n":1}`, string(first.Data))

	second := nextEvent(t, c)
	assert.JSONEq(t, `{"n":2}`, string(second.Data))

	assert.Eventually(t, func() bool { return c.State() == StateConnected }, time.Second, 5*time.Millisecond)
}

func TestClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := New(fastConfig(wsURL(srv), "tok"))
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Close())

	assert.Equal(t, StateDisconnected, c.State())
	_, ok := <-c.Events()
	assert.False(t, ok)
	assert.ErrorIs(t, c.Emit("task:deleted", map[string]string{"taskId": "t1"}), ErrNotConnected)

	require.NoError(t, c.Close())
}

func TestCloseDuringReconnectHandshake(t *testing.T) {
	var conns atomic.Int32
	second := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if conns.Add(1) == 1 {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err == nil {
				conn.Close()
			}
			return
		}
		close(second)
		<-release
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := New(fastConfig(wsURL(srv), "tok"))
	require.NoError(t, c.Connect(context.Background()))

	select {
	case <-second:
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatal("client never redialed")
	}

	closed := make(chan struct{})
	go func() {
		c.Close()
		close(closed)
	}()

	time.Sleep(50 * time.Millisecond)
	close(release)

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("Close did not return; state=%s", c.State())
	}

	assert.Equal(t, StateDisconnected, c.State())
	_, ok := <-c.Events()
	assert.False(t, ok)
}
