package replication

import (
	"context"
	"sync"

	"stallpos/terminal/internal/domain"
)

// Hub is an in-process broadcast bus. It stands in for a real network
// when several terminal instances run inside one process, and it is
// what the multi-terminal tests drive.
type Hub struct {
	mu    sync.Mutex
	ports []*LoopbackTransport
}

func NewHub() *Hub {
	return &Hub{}
}

// Attach creates a new port on the hub. Messages published on one
// port are delivered synchronously to every other port.
func (h *Hub) Attach() *LoopbackTransport {
	h.mu.Lock()
	defer h.mu.Unlock()

	port := &LoopbackTransport{hub: h}
	h.ports = append(h.ports, port)
	return port
}

func (h *Hub) broadcast(ctx context.Context, from *LoopbackTransport, msg domain.Message) {
	h.mu.Lock()
	ports := make([]*LoopbackTransport, len(h.ports))
	copy(ports, h.ports)
	h.mu.Unlock()

	for _, port := range ports {
		if port == from {
			continue
		}
		port.deliver(ctx, msg)
	}
}

type LoopbackTransport struct {
	hub *Hub

	mu      sync.Mutex
	handler Handler
	closed  bool
}

func (t *LoopbackTransport) Publish(ctx context.Context, msg domain.Message) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil
	}
	t.hub.broadcast(ctx, t, msg)
	return nil
}

func (t *LoopbackTransport) Subscribe(h Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = h
}

func (t *LoopbackTransport) Resync(context.Context) ([]domain.Message, error) {
	return nil, nil
}

func (t *LoopbackTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *LoopbackTransport) deliver(ctx context.Context, msg domain.Message) {
	t.mu.Lock()
	h := t.handler
	closed := t.closed
	t.mu.Unlock()

	if closed || h == nil {
		return
	}
	h(ctx, msg)
}
