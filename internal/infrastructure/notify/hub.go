// Package notify streams session events to websocket clients.
package notify

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// client wraps a websocket connection with a mutex for thread-safe writes.
type client struct {
	sessionID string
	conn      *ws.Conn
	mu        sync.Mutex
}

func (c *client) write(data []byte) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ws: write panic: %v", r)
		}
	}()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(ws.TextMessage, data)
}

// Hub keeps websocket clients grouped by session and publishes events to
// every client of one session.
type Hub struct {
	logger   *zap.Logger
	upgrader ws.Upgrader

	mu       sync.RWMutex
	sessions map[string]map[*client]struct{}
}

// NewHub creates a Hub. checkOrigin may be nil to accept any origin.
func NewHub(logger *zap.Logger, checkOrigin func(r *http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		logger:   logger,
		upgrader: ws.Upgrader{CheckOrigin: checkOrigin},
		sessions: make(map[string]map[*client]struct{}),
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.sessions[c.sessionID]
	if !ok {
		set = make(map[*client]struct{})
		h.sessions[c.sessionID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if set, ok := h.sessions[c.sessionID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.sessions, c.sessionID)
		}
	}
	h.mu.Unlock()
	_ = c.conn.Close()
}

func (h *Hub) clients(sessionID string) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set := h.sessions[sessionID]
	out := make([]*client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// Publish sends payload as JSON to every client of sessionID. Clients that
// fail to receive are dropped.
func (h *Hub) Publish(sessionID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("ws: marshal error", zap.Error(err))
		return
	}
	for _, c := range h.clients(sessionID) {
		if err := c.write(data); err != nil {
			h.logger.Debug("ws: dropping client", zap.String("session_id", sessionID), zap.Error(err))
			h.unregister(c)
		}
	}
}

// CloseSession disconnects every client of sessionID.
func (h *Hub) CloseSession(sessionID string) {
	for _, c := range h.clients(sessionID) {
		c.mu.Lock()
		_ = c.conn.WriteControl(ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, "session closed"),
			time.Now().Add(writeWait))
		c.mu.Unlock()
		h.unregister(c)
	}
}

// ClientCount returns the number of clients connected for sessionID.
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// Serve upgrades the request and keeps the connection alive with pings
// until the client goes away. It blocks for the lifetime of the connection.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws: upgrade error", zap.Error(err))
		return
	}

	c := &client{sessionID: sessionID, conn: conn}
	h.register(c)
	h.logger.Debug("ws: client connected",
		zap.String("session_id", sessionID),
		zap.Int("clients", h.ClientCount(sessionID)),
	)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.mu.Lock()
				err := conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait))
				c.mu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(done)
	h.unregister(c)
	h.logger.Debug("ws: client disconnected", zap.String("session_id", sessionID))
}
