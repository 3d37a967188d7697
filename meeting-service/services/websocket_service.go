package services

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	EventLevelInfo    = "info"
	EventLevelSuccess = "success"
	EventLevelWarning = "warning"

	writeWait      = 10 * time.Second
	clientQueueLen = 32
)

// Event is a realtime notification pushed to a connected staff user
type Event struct {
	Type      string    `json:"type"`
	Level     string    `json:"level"`
	Title     string    `json:"title,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Entity    string    `json:"entity,omitempty"`
	EntityID  string    `json:"entityId,omitempty"`
}

type wsClient struct {
	userID string
	conn   *websocket.Conn
	send   chan Event
}

type delivery struct {
	userID string
	client *wsClient
	event  Event
}

// Hub tracks one websocket connection per user and routes events to it.
// Run owns the client map writes and every client's send channel.
type Hub struct {
	upgrader   websocket.Upgrader
	mutex      sync.RWMutex
	clients    map[string]*wsClient
	register   chan *wsClient
	unregister chan *wsClient
	outbound   chan delivery
	now        func() time.Time
}

// NewHub creates a hub accepting browser connections from allowedOrigins.
// Requests without an Origin header (non-browser clients) are accepted.
func NewHub(allowedOrigins ...string) *Hub {
	h := &Hub{
		clients:    make(map[string]*wsClient),
		register:   make(chan *wsClient, 100),
		unregister: make(chan *wsClient, 100),
		outbound:   make(chan delivery, 1000),
		now:        time.Now,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			log.Printf("🚫 WebSocket connection rejected from origin: %s", origin)
			return false
		},
	}
	return h
}

// Run handles the hub event loop until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for userID, client := range h.clients {
				close(client.send)
				delete(h.clients, userID)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case d := <-h.outbound:
			h.deliver(d)
		}
	}
}

func (h *Hub) registerClient(client *wsClient) {
	h.mutex.Lock()
	if existing, exists := h.clients[client.userID]; exists {
		close(existing.send)
	}
	h.clients[client.userID] = client
	total := len(h.clients)
	h.mutex.Unlock()

	log.Printf("🔌 WebSocket client connected: %s (Total: %d)", client.userID, total)

	h.enqueue(client, Event{
		Type:      "connection",
		Level:     EventLevelInfo,
		Title:     "🔌 Connected",
		Message:   "WebSocket connection established",
		Timestamp: h.now().UTC(),
	})
}

func (h *Hub) unregisterClient(client *wsClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if current, exists := h.clients[client.userID]; exists && current == client {
		delete(h.clients, client.userID)
		close(client.send)
		log.Printf("🔌 WebSocket client disconnected: %s (Total: %d)", client.userID, len(h.clients))
	}
}

func (h *Hub) deliver(d delivery) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	target := d.client
	if target == nil {
		target = h.clients[d.userID]
	} else if h.clients[target.userID] != target {
		return
	}
	if target == nil {
		return
	}
	h.enqueue(target, d.event)
}

// enqueue drops the event if the client's queue is full
func (h *Hub) enqueue(client *wsClient, event Event) {
	select {
	case client.send <- event:
	default:
		log.Printf("⚠️ WebSocket queue full for user %s, dropping %s event", client.userID, event.Type)
	}
}

// Publish queues event for userID. It never blocks; events for offline users are dropped.
func (h *Hub) Publish(userID uuid.UUID, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = h.now().UTC()
	}
	select {
	case h.outbound <- delivery{userID: userID.String(), event: event}:
	default:
		log.Printf("⚠️ Event queue full, dropping message: %s", event.Message)
	}
}

// ConnectionCount returns number of active connections
func (h *Hub) ConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and serves the connection for userID until it closes
func (h *Hub) ServeWS(c *gin.Context, userID uuid.UUID) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Failed to upgrade WebSocket: %v", err)
		return
	}

	client := &wsClient{
		userID: userID.String(),
		conn:   conn,
		send:   make(chan Event, clientQueueLen),
	}

	go h.writePump(client)
	h.register <- client
	defer func() {
		h.unregister <- client
	}()

	for {
		var message map[string]interface{}
		if err := conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("❌ WebSocket error for user %s: %v", client.userID, err)
			}
			return
		}

		if msgType, ok := message["type"].(string); ok && msgType == "ping" {
			h.outbound <- delivery{client: client, event: Event{
				Type:      "pong",
				Level:     EventLevelInfo,
				Message:   "pong",
				Timestamp: h.now().UTC(),
			}}
		}
	}
}

func (h *Hub) writePump(client *wsClient) {
	defer client.conn.Close()

	for event := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.conn.WriteJSON(event); err != nil {
			log.Printf("❌ Failed to send message to user %s: %v", client.userID, err)
			client.conn.Close()
			// drain until Run closes the channel
			for range client.send {
			}
			return
		}
	}
	client.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}
