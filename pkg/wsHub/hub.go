package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/Temutjin2k/delivery-tracking/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
)

var (
	ErrEmptyConn      = errors.New("connection is empty")
	ErrConnIsNotFound = errors.New("connection not found")
)

// ConnectionHub keeps active WebSocket connections grouped by topic.
// A topic may have any number of connections.
type ConnectionHub struct {
	clients map[uuid.UUID]*Conn
	topics  map[string]map[uuid.UUID]*Conn
	l       logger.Logger
	mu      sync.Mutex
	wg      sync.WaitGroup
}

func NewConnHub(l logger.Logger) *ConnectionHub {
	return &ConnectionHub{
		clients: make(map[uuid.UUID]*Conn),
		topics:  make(map[string]map[uuid.UUID]*Conn),
		l:       l,
	}
}

// Add registers a connection under its topic.
func (h *ConnectionHub) Add(c *Conn) error {
	if c == nil {
		return ErrEmptyConn
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c.id] = c
	if h.topics[c.topic] == nil {
		h.topics[c.topic] = make(map[uuid.UUID]*Conn)
	}
	h.topics[c.topic][c.id] = c
	h.wg.Add(1)

	return nil
}

// Delete closes and removes the connection by ID.
func (h *ConnectionHub) Delete(id uuid.UUID) error {
	h.mu.Lock()
	c, ok := h.clients[id]
	if !ok {
		h.mu.Unlock()
		return ErrConnIsNotFound
	}
	delete(h.clients, id)
	if subs := h.topics[c.topic]; subs != nil {
		delete(subs, id)
		if len(subs) == 0 {
			delete(h.topics, c.topic)
		}
	}
	h.mu.Unlock()

	if err := c.Close(); err != nil {
		h.l.Warn(wrap.WithAction(context.Background(), "ws_connection_delete"),
			"failed to close conn",
			"conn_id", id.String(),
			"err", err.Error(),
		)
	}
	h.wg.Done()

	return nil
}

// Broadcast sends msg to every connection of topic and returns how many received it.
// Connections that fail to receive are dropped.
func (h *ConnectionHub) Broadcast(topic string, msg any) int {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.topics[topic]))
	for _, c := range h.topics[topic] {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	sent := 0
	for _, c := range conns {
		if err := c.Send(msg); err != nil {
			h.l.Warn(wrap.WithAction(context.Background(), "ws_broadcast"),
				"dropping connection after failed send",
				"conn_id", c.id.String(),
				"topic", topic,
				"err", err.Error(),
			)
			_ = h.Delete(c.id)
			continue
		}
		sent++
	}
	return sent
}

// Count returns the number of connections subscribed to topic.
func (h *ConnectionHub) Count(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topic])
}

// Close closes every websocket connection
func (h *ConnectionHub) Close() {
	ctx := wrap.WithAction(context.Background(), "hub_close")

	h.mu.Lock()
	ids := make([]uuid.UUID, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	for _, id := range ids {
		_ = h.Delete(id)
	}

	h.wg.Wait()

	h.l.Info(ctx, "all websocket connections closed gracefully")
}
