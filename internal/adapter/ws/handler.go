// Package ws streams pipeline events to dashboard clients over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	writeTimeout = 5 * time.Second
	outboxSize   = 32
)

// Message is the envelope for every frame sent to clients.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// client is one dashboard connection. A non-empty rootID limits it to the
// events of one revision tree.
type client struct {
	ws     *websocket.Conn
	rootID string
	outbox chan []byte
	done   chan struct{}
	once   sync.Once
}

func (c *client) wants(rootID string) bool {
	return c.rootID == "" || c.rootID == rootID
}

func (c *client) stop() {
	c.once.Do(func() { close(c.done) })
}

// Hub fans pipeline events out to connected clients. Each client has its
// own writer goroutine, so one stalled browser cannot delay the others or
// the stage handler that published the event.
type Hub struct {
	mu             sync.RWMutex
	clients        map[*client]struct{}
	originPatterns []string
}

// NewHub accepts cross-origin upgrades from allowedOrigin; empty means
// same-origin only.
func NewHub(allowedOrigin string) *Hub {
	h := &Hub{clients: make(map[*client]struct{})}
	if allowedOrigin != "" {
		h.originPatterns = []string{allowedOrigin}
	}
	return h
}

// HandleWS serves /ws. The optional root_id query parameter subscribes to
// a single revision tree.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		slog.Warn("websocket accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	c := &client{
		ws:     ws,
		rootID: r.URL.Query().Get("root_id"),
		outbox: make(chan []byte, outboxSize),
		done:   make(chan struct{}),
	}
	h.add(c)
	slog.Info("websocket connected", "remote", r.RemoteAddr, "root_id", c.rootID)

	// Clients only listen; CloseRead drains pings and ends readCtx on close.
	readCtx := ws.CloseRead(context.WithoutCancel(r.Context()))
	go h.pump(readCtx, c)
}

// pump writes queued frames until the client leaves or a write fails.
func (h *Hub) pump(ctx context.Context, c *client) {
	defer func() {
		h.drop(c)
		_ = c.ws.Close(websocket.StatusNormalClosure, "")
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case frame := <-c.outbox:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.ws.Write(wctx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				slog.Debug("websocket write failed", "root_id", c.rootID, "error", err)
				return
			}
		}
	}
}

// Broadcast queues msg for every client watching rootID or everything.
// A client whose outbox is full is disconnected.
func (h *Hub) Broadcast(_ context.Context, rootID string, msg Message) {
	frame, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal failed", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.wants(rootID) {
			continue
		}
		select {
		case c.outbox <- frame:
		default:
			slog.Warn("websocket client too slow, disconnecting", "root_id", c.rootID)
			c.stop()
		}
	}
}

// ConnectionCount returns the number of live clients.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.stop()
		slog.Info("websocket disconnected", "root_id", c.rootID)
	}
}
