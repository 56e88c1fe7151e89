package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/roach88/foodstand/internal/engine"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
)

// Message is one websocket frame: a "view" or a "status" event.
type Message struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// hub fans engine views out to websocket clients. It is an engine
// renderer: Render runs on the engine loop and only queues frames.
//
// While at least one client is connected the engine's refresher runs.
type hub struct {
	engine          *engine.Engine
	refreshInterval time.Duration

	mu          sync.Mutex
	clients     map[*client]struct{}
	stopRefresh func()
	lastStatus  time.Time
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func newHub(e *engine.Engine, refreshInterval time.Duration) *hub {
	return &hub{
		engine:          e,
		refreshInterval: refreshInterval,
		clients:         make(map[*client]struct{}),
	}
}

// Render implements engine.Renderer.
func (h *hub) Render(v engine.View) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) == 0 {
		return
	}

	// An echo of our own write shows nothing the last view did not.
	if !v.Echo {
		h.broadcastLocked(Message{Event: "view", Payload: v})
	}
	if v.Status != nil && !v.Status.PostedAt.Equal(h.lastStatus) {
		h.lastStatus = v.Status.PostedAt
		h.broadcastLocked(Message{Event: "status", Payload: v.Status})
	}
}

func (h *hub) broadcastLocked(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		slog.Error("websocket: marshal message", "event", m.Event, "error", err)
		return
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Views are full snapshots; a slow client just misses one.
			slog.Debug("websocket: client behind, dropping frame", "conn", c.id, "event", m.Event)
		}
	}
}

// serve upgrades the request and keeps the connection until the peer
// goes away.
func (h *hub) serve(ctx *gin.Context) {
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		slog.Warn("websocket: upgrade failed", "error", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	if v, err := h.engine.View(ctx.Request.Context()); err == nil {
		if data, err := json.Marshal(Message{Event: "view", Payload: v}); err == nil {
			c.send <- data
		}
	}

	h.register(c)
	go c.writePump()

	defer h.unregister(c)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
	if len(h.clients) == 1 && h.stopRefresh == nil {
		h.stopRefresh = h.engine.StartRefresher(context.Background(), h.refreshInterval)
	}
	slog.Info("websocket: client connected", "conn", c.id, "clients", len(h.clients))
}

func (h *hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.close()
	if len(h.clients) == 0 && h.stopRefresh != nil {
		h.stopRefresh()
		h.stopRefresh = nil
	}
	slog.Info("websocket: client disconnected", "conn", c.id, "clients", len(h.clients))
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// closeAll disconnects every client.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
	if h.stopRefresh != nil {
		h.stopRefresh()
		h.stopRefresh = nil
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

func (c *client) writePump() {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Debug("websocket: write failed", "conn", c.id, "error", err)
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
