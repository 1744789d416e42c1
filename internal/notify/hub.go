package notify

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a user facing message, the terminal's equivalent of an alert box.
type Notice struct {
	Level   Level     `json:"level"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Code    string    `json:"transaction_code,omitempty"`
	At      time.Time `json:"at"`
}

type Notifier interface {
	Notify(n Notice)
}

const (
	keepRecent = 50
	// notices queued per client before it is considered stuck and dropped
	clientBuffer = 16
	writeWait    = 2 * time.Second
)

type client struct {
	conn *websocket.Conn
	send chan Notice
}

// writeLoop owns all writes to the connection. A failed write closes the
// connection, which ends the read loop in ServeHTTP.
func (c *client) writeLoop() {
	for n := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(n); err != nil {
			c.conn.Close()
			return
		}
	}
}

// Hub fans notices out to every websocket client and keeps the last few for
// clients that poll instead.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	recent  []Notice
}

func NewHub(allowOrigin func(r *http.Request) bool) *Hub {
	if allowOrigin == nil {
		allowOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		clients:  make(map[*client]struct{}),
	}
}

// Notify logs n and queues it for every client without waiting on the
// network. A client whose queue is full is dropped.
func (h *Hub) Notify(n Notice) {
	if n.At.IsZero() {
		n.At = time.Now()
	}
	log.Printf("notice [%s] %s: %s", n.Level, n.Title, n.Message)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.recent = append(h.recent, n)
	if len(h.recent) > keepRecent {
		h.recent = h.recent[len(h.recent)-keepRecent:]
	}
	for c := range h.clients {
		select {
		case c.send <- n:
		default:
			log.Printf("notify: client %s too slow, dropped", c.conn.RemoteAddr())
			h.removeLocked(c)
		}
	}
}

// removeLocked forgets c and stops its writer; h.mu must be held.
func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	c.conn.Close()
}

// Recent returns up to limit notices, newest last.
func (h *Hub) Recent(limit int) []Notice {
	h.mu.Lock()
	defer h.mu.Unlock()
	if limit <= 0 || limit > len(h.recent) {
		limit = len(h.recent)
	}
	out := make([]Notice, limit)
	copy(out, h.recent[len(h.recent)-limit:])
	return out
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and holds the connection until the client
// goes away. Inbound frames are ignored.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("notify: upgrade failed: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan Notice, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	go c.writeLoop()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

// Discard drops notices; for tools that run without a front end.
type Discard struct{}

func (Discard) Notify(Notice) {}
