package wire

import (
	"context"
	"time"
)

// WaitObserver receives how long a caller queued for the gate.
type WaitObserver func(waited time.Duration)

// Gate serializes calls into a client that is not safe for concurrent use.
// It behaves like a mutex whose Lock respects context cancellation.
type Gate struct {
	name    string
	sem     chan struct{}
	observe WaitObserver
}

// NewGate creates an unlocked gate. observe may be nil.
func NewGate(name string, observe WaitObserver) *Gate {
	return &Gate{name: name, sem: make(chan struct{}, 1), observe: observe}
}

// Name identifies the serialized client.
func (g *Gate) Name() string { return g.name }

// Do runs fn while holding the gate. It returns ctx.Err() if the context
// ends before the gate is acquired.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	start := time.Now()
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-g.sem }()

	if g.observe != nil {
		g.observe(time.Since(start))
	}
	return fn(ctx)
}
