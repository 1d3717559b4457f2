package ws

import (
	"context"
	"sync"

	"github.com/Webrookie0/growex-all-projects/internal/metrics"
)

// Hub tracks live clients so they show up in metrics and can be closed on
// shutdown. Room membership lives in the broker, not here.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	closing bool
	wg      sync.WaitGroup
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// Serve registers c and blocks until its socket closes.
func (h *Hub) Serve(c *Client) {
	if !h.register(c) {
		c.session.Close()
		c.shutdown()
		return
	}
	defer h.unregister(c)
	c.run()
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.clients[c] = struct{}{}
	h.wg.Add(1)
	metrics.WsConnections.Inc()
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		metrics.WsConnections.Dec()
		h.wg.Done()
	}
}

// Count returns the number of live clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Shutdown closes every socket and waits for them to unwind or ctx to end.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.shutdown()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
