package websocket

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// Message represents an event sent over WebSocket to a dashboard client.
type Message struct {
	Type    string      `json:"type"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Client represents a connected WebSocket client. Clients are keyed by the
// email they subscribed with; a user may hold several connections (tabs).
type Client struct {
	UserEmail string
	Conn      *websocket.Conn

	// writeMu serializes writes: gorilla/websocket allows at most one
	// concurrent writer per connection, and two alert evaluations for the same
	// user can push at the same time.
	writeMu sync.Mutex
}

// Send writes one message to the connection, serialized per client.
func (c *Client) Send(message Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteJSON(message)
}

// Hub maintains the set of active clients and routes alert notifications to
// the connections subscribed to the matching email.
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.UserEmail] == nil {
				h.clients[client.UserEmail] = make(map[*Client]bool)
			}
			h.clients[client.UserEmail][client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.clients[client.UserEmail]; ok {
				delete(conns, client)
				if len(conns) == 0 {
					delete(h.clients, client.UserEmail)
				}
			}
			client.Conn.Close()
			h.mu.Unlock()
		}
	}
}

// SendToUser sends a message to every connection subscribed to the email.
func (h *Hub) SendToUser(userEmail string, message Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, ok := h.clients[userEmail]
	if !ok || len(conns) == 0 {
		return fmt.Errorf("user not connected")
	}

	for client := range conns {
		client.Send(message)
	}
	return nil
}
