package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/admit/internal/limiter"
	"github.com/SmitUplenchwar2687/admit/internal/recorder"
)

const (
	writeWait = time.Second

	// sendBuffer is how many records a client may fall behind before new
	// ones are dropped for it.
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local dev tool.
	},
}

// client is one dashboard connection. Only its write loop writes to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub manages WebSocket clients and broadcasts admission events.
// Broadcast only queues messages; each client has its own writer goroutine,
// so a slow client never holds up the caller that produced the event.
type Hub struct {
	log *zap.Logger

	mu      sync.Mutex
	clients map[*client]bool
}

// NewHub creates a new WebSocket hub. A nil logger discards output.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:     log,
		clients: make(map[*client]bool),
	}
}

// HandleWebSocket upgrades the HTTP connection and registers the client.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go h.writeLoop(c)

	// Read loop: keeps the connection alive and notices disconnects.
	go func() {
		defer h.remove(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) writeLoop(c *client) {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Debug("websocket write failed", zap.Error(err))
			// Closing makes the read loop exit and unregister the client.
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
}

// remove unregisters c. Whoever deletes c from the map closes its queue.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

// ObserveAdmission lets the hub be passed to limiter.WithObserver.
func (h *Hub) ObserveAdmission(e limiter.Event) {
	h.Broadcast(recorder.FromEvent(e))
}

// Broadcast queues an admission record for every connected client without
// waiting on any socket. Clients whose queue is full miss the record.
func (h *Hub) Broadcast(rec recorder.AdmissionRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		h.log.Warn("websocket marshal failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Debug("websocket client lagging, dropping record", zap.String("id", rec.ID))
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var group errs.Group
	for c := range h.clients {
		close(c.send)
		if err := c.conn.Close(); !errors.Is(err, net.ErrClosed) {
			group.Add(err)
		}
		delete(h.clients, c)
	}
	return group.Err()
}
