package notify

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 32
)

// Message is the wire format pushed to subscribers.
type Message struct {
	Event     string    `json:"event"`
	SubjectID string    `json:"subjectId"`
	Payload   any       `json:"payload,omitempty"`
	At        time.Time `json:"at"`
}

// Hub fans state-change events out to WebSocket subscribers. Delivery is
// at-most-once: a slow client's messages are dropped, a failed client is
// evicted, and Publish never returns an error.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn     *websocket.Conn
	send     chan []byte
	subjects map[string]struct{} // empty => all subjects
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Auth lives upstream; the socket only mirrors state.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: map[*client]struct{}{},
	}
}

// Publish sends the event to every subscriber watching subjectID. Failures
// are logged and swallowed.
func (h *Hub) Publish(event string, subjectID string, payload any) {
	msg := Message{Event: event, SubjectID: subjectID, Payload: payload, At: time.Now()}
	b, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("notify: marshal failed", "event", event, "subject_id", subjectID, "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.wants(subjectID) {
			continue
		}
		select {
		case c.send <- b:
		default:
			h.logger.Warn("notify: dropping message for slow subscriber", "event", event, "subject_id", subjectID)
		}
	}
}

func (c *client) wants(subjectID string) bool {
	if len(c.subjects) == 0 {
		return true
	}
	_, ok := c.subjects[subjectID]
	return ok
}

// ServeHTTP upgrades the request and registers the subscriber. Subjects to
// watch come from the comma-separated "subjects" query parameter; absent
// means everything.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("notify: upgrade failed", "err", err)
		return
	}

	c := &client{
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		subjects: parseSubjects(r.URL.Query().Get("subjects")),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	_ = c.conn.Close()
}

func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		// subscribers never send data; this loop only services control frames
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case b, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ClientCount reports the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func parseSubjects(raw string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out[s] = struct{}{}
		}
	}
	return out
}
