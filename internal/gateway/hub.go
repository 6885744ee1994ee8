package gateway

import (
	"sync"

	"github.com/park285/bonk-chess-server/internal/obslog"
	"github.com/park285/bonk-chess-server/pkg/bonkdto"
	"go.uber.org/zap"
)

// Hub routes outbound events to live connections. It implements match.Emitter.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*client
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]*client)}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if cur, ok := h.conns[c.id]; ok && cur == c {
		delete(h.conns, c.id)
	}
	h.mu.Unlock()
}

// Emit enqueues without blocking. A connection whose queue is full is closed.
func (h *Hub) Emit(connID, event string, payload any) {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if !c.enqueue(bonkdto.Outgoing{Type: event, Data: payload}) {
		obslog.L().Warn("ws_send_queue_full", zap.String("conn_id", connID), zap.String("event", event))
		c.stop()
	}
}

// Len returns the number of live connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseAll stops every connection; their read loops then run the normal disconnect path.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]*client, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		c.stop()
	}
}
