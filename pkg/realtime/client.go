// Package realtime is a websocket client for the task gateway. It keeps one
// connection open, reconnecting with capped exponential backoff after
// transport failures, and surfaces inbound frames on a channel.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/anupk5743/Colleborative-task-manager1/pkg/log"
)

var (
	// ErrCannotConnect is returned once every allowed attempt has failed.
	ErrCannotConnect = errors.New("cannot connect to realtime server")
	// ErrUnauthorized is returned when the server rejects the credential.
	// It is never retried.
	ErrUnauthorized = errors.New("realtime authentication failed")
	ErrNotConnected = errors.New("realtime client not connected")
	ErrClosed       = errors.New("realtime client closed")
)

// State is the connection state of a Client.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Config holds client settings.
type Config struct {
	URL            string
	Token          string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxAttempts    int
	EventBuffer    int
	WriteWait      time.Duration
	Dialer         *websocket.Dialer
}

// DefaultConfig returns the standard reconnection policy: 1s initial delay
// doubling up to 5s, five attempts.
func DefaultConfig(serverURL, token string) Config {
	return Config{
		URL:            serverURL,
		Token:          token,
		InitialBackoff: time.Second,
		MaxBackoff:     5 * time.Second,
		MaxAttempts:    5,
		EventBuffer:    64,
		WriteWait:      10 * time.Second,
	}
}

// Event is one inbound frame.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// Client maintains a gateway connection.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer

	state  atomic.Int32
	events chan Event

	mu   sync.Mutex
	conn *websocket.Conn
	err  error

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a client. Call Connect to open the connection.
func New(cfg Config) *Client {
	def := DefaultConfig(cfg.URL, cfg.Token)
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = def.EventBuffer
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	return &Client{
		cfg:    cfg,
		dialer: dialer,
		events: make(chan Event, cfg.EventBuffer),
		done:   make(chan struct{}),
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Events returns inbound frames. The channel is closed when the client is
// closed or gives up reconnecting.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Err returns the error that moved the client to StateFailed, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Connect opens the connection, retrying per the backoff policy, and
// starts the read loop. It returns ErrUnauthorized or ErrCannotConnect
// when the client gives up.
func (c *Client) Connect(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return fmt.Errorf("connect in state %s", c.State())
	}

	c.wg.Add(1)
	conn, err := c.dialWithRetry(ctx)
	if err != nil {
		if errors.Is(err, ErrClosed) {
			c.state.Store(int32(StateDisconnected))
		} else {
			c.fail(err)
		}
		close(c.events)
		c.wg.Done()
		return err
	}

	if !c.adopt(conn) {
		close(c.events)
		c.wg.Done()
		return ErrClosed
	}

	go c.run(conn)
	return nil
}

// Emit sends an event to the gateway.
func (c *Client) Emit(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Event{Name: event, Data: raw})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.State() != StateConnected {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// Close closes the connection and stops reconnecting.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		// done is closed under mu so adopt either sees it or its
		// connection is closed here.
		c.mu.Lock()
		close(c.done)
		if c.conn != nil {
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.cfg.WriteWait))
			c.conn.Close()
		}
		c.mu.Unlock()

		c.wg.Wait()
		if c.State() != StateFailed {
			c.state.Store(int32(StateDisconnected))
		}
	})
	return nil
}

// run reads frames until the connection drops, then reconnects. It owns
// the events channel once Connect has succeeded.
func (c *Client) run(conn *websocket.Conn) {
	defer c.wg.Done()
	defer close(c.events)

	l := log.L()
	for {
		c.readLoop(conn)

		select {
		case <-c.done:
			return
		default:
		}

		l.Warn().Msg("realtime connection lost, reconnecting")
		c.state.Store(int32(StateReconnecting))

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			select {
			case <-c.done:
				cancel()
			case <-ctx.Done():
			}
		}()
		next, err := c.dialWithRetry(ctx)
		cancel()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.fail(err)
			}
			return
		}

		if !c.adopt(next) {
			return
		}
		conn = next
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			return
		}

		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			l := log.L()
			l.Debug().Err(err).Msg("dropping malformed realtime frame")
			continue
		}

		select {
		case c.events <- evt:
		case <-c.done:
			return
		}
	}
}

// dialWithRetry dials until success, an auth rejection, context
// cancellation or MaxAttempts failures.
func (c *Client) dialWithRetry(ctx context.Context) (*websocket.Conn, error) {
	l := log.L()
	target, err := c.endpoint()
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		conn, resp, err := c.dialer.DialContext(ctx, target, nil)
		if err == nil {
			return conn, nil
		}
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
		lastErr = err

		if attempt == c.cfg.MaxAttempts {
			break
		}

		delay := c.backoff(attempt)
		l.Debug().Err(err).Int("attempt", attempt).Dur("backoff", delay).Msg("realtime dial failed")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-c.done:
			timer.Stop()
			return nil, ErrClosed
		}
	}

	return nil, fmt.Errorf("%w: %d attempts: %v", ErrCannotConnect, c.cfg.MaxAttempts, lastErr)
}

// backoff returns the delay after the given failed attempt (1-based).
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.cfg.InitialBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.cfg.MaxBackoff {
			return c.cfg.MaxBackoff
		}
	}
	if delay > c.cfg.MaxBackoff {
		return c.cfg.MaxBackoff
	}
	return delay
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse realtime url: %w", err)
	}
	if c.cfg.Token != "" {
		q := u.Query()
		q.Set("token", c.cfg.Token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// adopt installs a freshly dialed connection unless Close has already
// run, in which case the connection is closed and false returned.
func (c *Client) adopt(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		conn.Close()
		return false
	default:
	}
	c.conn = conn
	c.state.Store(int32(StateConnected))
	return true
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	c.err = err
	c.conn = nil
	c.mu.Unlock()
	c.state.Store(int32(StateFailed))
}
