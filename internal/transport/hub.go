package transport

import (
	"sync"

	"codeberg.org/mutker/sysfeed/internal/errors"
	"codeberg.org/mutker/sysfeed/internal/manager"
)

// DefaultSendQueue is the per-connection outbound buffer.
const DefaultSendQueue = 64

// Hub tracks connected subscribers and implements manager.Dispatcher by
// queueing each emission on the subscriber's connection.
type Hub struct {
	queueSize int

	mu      sync.RWMutex
	clients map[string]*client
}

func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultSendQueue
	}

	return &Hub{
		queueSize: queueSize,
		clients:   make(map[string]*client),
	}
}

var _ manager.Dispatcher = (*Hub)(nil)

// Deliver never blocks: an emission that does not fit the subscriber's
// queue is dropped and reported as an error.
func (h *Hub) Deliver(subscriberID string, e manager.Emission) error {
	c, ok := h.client(subscriberID)
	if !ok {
		return errors.New().WithData(ErrClientGone, subscriberID)
	}

	data, err := encodeEmission(e)
	if err != nil {
		return err
	}

	return c.enqueue(data)
}

// Len returns the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

func (h *Hub) client(id string) (*client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[id]
	return c, ok
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c.id] = c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c.id] == c {
		delete(h.clients, c.id)
	}
}

// closeAll disconnects every client.
func (h *Hub) closeAll() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.close()
	}
}
