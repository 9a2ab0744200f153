// Package session holds the client's resolved auth state. Guard decisions
// must never run against an unresolved session, so the gate blocks callers
// until the first resolution lands, and it opens exactly once.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// State is the resolved auth state for one client session. The zero value is
// a resolved anonymous session.
type State struct {
	UserID        uuid.UUID
	Authenticated bool
	EmailVerified bool
	IsAdmin       bool
}

// Gate is a single-shot readiness gate over a session's auth state. Resolve
// opens the gate; later calls only update the state.
type Gate struct {
	mu    sync.RWMutex
	state State
	ready chan struct{}
	once  sync.Once
}

// NewGate creates an unresolved gate.
func NewGate() *Gate {
	return &Gate{ready: make(chan struct{})}
}

// Resolve records the auth state and opens the gate on the first call.
func (g *Gate) Resolve(s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
	g.once.Do(func() { close(g.ready) })
}

// Await blocks until the gate has resolved at least once, then returns the
// current state.
func (g *Gate) Await(ctx context.Context) (State, error) {
	select {
	case <-g.ready:
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state, nil
}

// Current returns the state and whether the gate has resolved. It never
// blocks.
func (g *Gate) Current() (State, bool) {
	select {
	case <-g.ready:
	default:
		return State{}, false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state, true
}
