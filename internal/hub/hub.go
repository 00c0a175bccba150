package hub

import (
	"sync"

	"github.com/anupk5743/Colleborative-task-manager1/internal/config"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/log"
)

// Hub owns the set of live connections and fans frames out to them.
// Run is the only goroutine that mutates membership or delivers frames, so
// frames submitted by one goroutine are delivered in submission order.
type Hub struct {
	clients    map[string]*Client // connectionID -> client
	register   chan *Client
	unregister chan *Client
	outbound   chan *Message
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	config     config.WebSocketConfig
}

// Message is a frame queued for delivery. An empty Target broadcasts to
// every client except Exclude; otherwise only Target receives it.
type Message struct {
	Data    []byte
	Target  string
	Exclude string
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan *Message, 256),
		done:       make(chan struct{}),
		config:     cfg,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldConnectionID, client.ID).Str(log.FieldUserID, client.UserID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.ID]; ok && current == client {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldConnectionID, client.ID).Str(log.FieldUserID, client.UserID).Msg("client unregistered")

		case msg := <-h.outbound:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if msg.Target != "" {
		if client, ok := h.clients[msg.Target]; ok {
			h.trySend(client, msg.Data)
		}
		return
	}

	for id, client := range h.clients {
		if id == msg.Exclude {
			continue
		}
		h.trySend(client, msg.Data)
	}
}

// trySend never blocks; a client whose buffer is full is evicted so one
// slow reader cannot stall the rest of the fan-out.
func (h *Hub) trySend(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		l := log.L()
		l.Warn().Str(log.FieldConnectionID, client.ID).Msg("send buffer full, evicting client")
		go h.removeClient(client)
	}
}

// Register adds a client. Frames submitted after Register returns reach it.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client and closes its send channel. Frames submitted
// after Unregister returns no longer reach it. Unregistering a client that
// is not present is a no-op.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues data for every client except the one with ID exclude.
func (h *Hub) Broadcast(data []byte, exclude string) {
	h.enqueue(&Message{Data: data, Exclude: exclude})
}

// SendTo queues data for a single client.
func (h *Hub) SendTo(connID string, data []byte) {
	h.enqueue(&Message{Data: data, Target: connID})
}

func (h *Hub) enqueue(msg *Message) {
	select {
	case h.outbound <- msg:
	case <-h.done:
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop terminates Run and closes every client's send channel, which makes
// each write pump send a close frame.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		close(client.Send)
		delete(h.clients, id)
	}
}

func (h *Hub) removeClient(client *Client) {
	h.Unregister(client)
}
