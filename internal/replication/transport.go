package replication

import (
	"context"

	"stallpos/terminal/internal/domain"
)

type Handler func(ctx context.Context, msg domain.Message)

// Transport moves replication messages between the terminals of one
// stall. Delivery is at-least-once and unordered; every consumer of
// these messages has to stay idempotent.
type Transport interface {
	Publish(ctx context.Context, msg domain.Message) error
	// Subscribe registers the single message handler. Must be called
	// before the first Publish from a peer is expected.
	Subscribe(h Handler)
	// Resync fetches the peer's full state after a gap in delivery.
	// Transports without a backing authority return nil, nil.
	Resync(ctx context.Context) ([]domain.Message, error)
	Close() error
}

// Noop is the transport for a stall running a single terminal.
type Noop struct{}

func (Noop) Publish(context.Context, domain.Message) error    { return nil }
func (Noop) Subscribe(Handler)                                {}
func (Noop) Resync(context.Context) ([]domain.Message, error) { return nil, nil }
func (Noop) Close() error                                     { return nil }
