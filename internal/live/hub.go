// Package live pushes reload notices to open pages over websockets while the
// server runs in dev mode.
package live

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// ReloadMessage is sent when content changes.
const ReloadMessage = "reload"

const (
	clientBuffer = 4
	writeTimeout = 5 * time.Second
)

type client struct {
	send chan string
}

// Hub tracks connected pages and broadcasts messages to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  *zap.Logger
	// OriginPatterns are passed to websocket.Accept. Empty means same origin.
	OriginPatterns []string
}

// NewHub returns an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{clients: map[*client]struct{}{}, logger: logger}
}

// Count returns the number of connected pages.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every connected page. Slow pages miss messages
// rather than block the sender.
func (h *Hub) Broadcast(msg string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("live: dropped message for slow client")
		}
	}
}

// Reload asks every page to reload.
func (h *Hub) Reload() { h.Broadcast(ReloadMessage) }

// ServeHTTP upgrades the request and streams messages until the page goes
// away or the request context ends.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.OriginPatterns})
	if err != nil {
		h.logger.Warn("live: accept", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	c := &client{send: make(chan string, clientBuffer)}
	h.add(c)
	defer h.remove(c)

	// pages never send; CloseRead handles control frames and reports closure
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.send:
			if err := write(ctx, conn, msg); err != nil {
				h.logger.Debug("live: write", zap.Error(err))
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, []byte(msg))
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}
