// internal/api/hub.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/utils/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// HubConfig tunes the event stream.
type HubConfig struct {
	// SendBuffer is the per-client queue; a client that falls this far behind is dropped.
	SendBuffer int
}

// Hub fans bus events out to websocket clients. It is an events.Handler.
type Hub struct {
	logger   *zap.Logger
	metrics  *metrics.Collector
	upgrader websocket.Upgrader
	buffer   int

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	// launch filters the stream; zero means every launch.
	launch domain.LaunchID
	once   sync.Once
}

// NewHub creates a hub. metrics may be nil.
func NewHub(cfg HubConfig, m *metrics.Collector, logger *zap.Logger) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	return &Hub{
		logger:  logger.Named("ws_hub"),
		metrics: m,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		buffer:  cfg.SendBuffer,
		clients: make(map[*client]struct{}),
	}
}

var _ events.Handler = (*Hub)(nil)

// Handle pushes ev to every matching client without blocking.
func (h *Hub) Handle(_ context.Context, ev events.Event) error {
	msg, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		if !c.launch.IsZero() && !c.launch.Equals(ev.LaunchID()) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Debug("Dropping slow client", zap.String("remote", c.conn.RemoteAddr().String()))
		h.remove(c)
	}
	return nil
}

// ServeHTTP upgrades the request. ?launch=<id> limits the stream to one launch.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var launch domain.LaunchID
	if s := r.URL.Query().Get("launch"); s != "" {
		id, err := domain.ParseAddress(s)
		if err != nil {
			badRequest(w, domain.CodeBadAddress, "launch must be a base58 address")
			return
		}
		launch = id
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("Failed to upgrade", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, h.buffer), launch: launch}
	if !h.add(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	go h.writePump(c)
	go h.readPump(c)
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.report(n)
	return true
}

func (h *Hub) remove(c *client) {
	c.once.Do(func() {
		h.mu.Lock()
		delete(h.clients, c)
		n := len(h.clients)
		h.mu.Unlock()
		close(c.send)
		h.report(n)
	})
}

func (h *Hub) report(n int) {
	if h.metrics != nil {
		h.metrics.UpdateWebsocketConnections(n)
	}
}

// readPump только отслеживает pong и закрытие; входящие сообщения игнорируются
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
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
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
