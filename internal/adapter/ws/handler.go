// Package ws implements the live handoff event feed over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

const (
	writeTimeout = 5 * time.Second
	sendBuffer   = 32
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// conn wraps a single WebSocket connection subscribed to one user's events.
// Writes go through send so that a slow client never stalls the publisher.
type conn struct {
	ws     *websocket.Conn
	cancel context.CancelFunc
	userID string
	send   chan []byte
}

// Hub manages all active WebSocket connections and fans events out to them.
type Hub struct {
	mu      sync.RWMutex
	conns   map[*conn]struct{}
	origins []string
	dropped atomic.Int64
}

// NewHub creates a new WebSocket hub. originPatterns restricts cross-origin
// upgrades; nil accepts any origin.
func NewHub(originPatterns []string) *Hub {
	return &Hub{
		conns:   make(map[*conn]struct{}),
		origins: originPatterns,
	}
}

// HandleWS upgrades the request to a WebSocket. The user_id query parameter
// is required and limits the feed to that user's handoffs.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     h.origins,
		InsecureSkipVerify: len(h.origins) == 0,
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	// The feed outlives the upgrade request.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	c := &conn{ws: ws, cancel: cancel, userID: userID, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	slog.Info("websocket connected", "remote", r.RemoteAddr, "user_id", c.userID)

	go h.writeLoop(ctx, c)

	// Read loop (to detect disconnects and consume pings)
	go func() {
		defer func() {
			h.remove(c)
			_ = ws.Close(websocket.StatusNormalClosure, "")
		}()
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) writeLoop(ctx context.Context, c *conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.ws.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				slog.Debug("websocket write failed", "user_id", c.userID, "error", err)
				h.remove(c)
				return
			}
		}
	}
}

// publish queues msg for every connection subscribed to userID. Connections
// whose queue is full miss the message.
func (h *Hub) publish(ctx context.Context, userID string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.conns {
		if c.userID != userID {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.dropped.Add(1)
			slog.Debug("websocket send queue full, dropping message", "user_id", c.userID, "type", msg.Type)
		}
	}
	return nil
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// DroppedCount returns how many messages were dropped for slow clients.
func (h *Hub) DroppedCount() int64 {
	return h.dropped.Load()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[*conn]struct{})
	h.mu.Unlock()

	for c := range conns {
		c.cancel()
		if c.ws != nil {
			_ = c.ws.Close(websocket.StatusGoingAway, "server shutting down")
		}
	}
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		c.cancel()
		delete(h.conns, c)
		slog.Info("websocket disconnected", "user_id", c.userID)
	}
}
