package serverstate

import (
	"context"
	"sync"
)

// Status values reported by /healthz and /api/state.
const (
	StatusNotReady = "not_ready"
	StatusReady    = "ready"
	StatusDraining = "draining"
	StatusUnknown  = "unknown"
)

// State holds the server status and draining flag. Both fields are written
// together so readers always observe a consistent snapshot.
type State struct {
	Status   string `json:"status"`
	Draining bool   `json:"draining"`
}

// Store persists the server state. The in-memory store serves a single
// process; the Redis store publishes it under a per-instance key so every
// replica's status can be read from one Redis.
type Store interface {
	Load(ctx context.Context) (State, error)
	Store(ctx context.Context, s State) error
}

// Tracker is the server's view of its own lifecycle.
type Tracker struct {
	store Store
}

// NewTracker returns a Tracker over s. A nil s uses memory.
func NewTracker(s Store) *Tracker {
	if s == nil {
		s = NewMemoryStore()
	}
	return &Tracker{store: s}
}

// Get returns the current state. Store errors are reported as StatusUnknown.
func (t *Tracker) Get(ctx context.Context) State {
	st, err := t.store.Load(ctx)
	if err != nil {
		return State{Status: StatusUnknown}
	}
	return st
}

// SetReady marks the server as accepting traffic unless a drain has started.
func (t *Tracker) SetReady(ctx context.Context) error {
	st, err := t.store.Load(ctx)
	if err != nil {
		return err
	}
	if st.Draining {
		return nil
	}
	st.Status = StatusReady
	return t.store.Store(ctx, st)
}

// StartDrain marks the server as draining.
func (t *Tracker) StartDrain(ctx context.Context) error {
	return t.store.Store(ctx, State{Status: StatusDraining, Draining: true})
}

// IsDraining reports whether a drain has started.
func (t *Tracker) IsDraining(ctx context.Context) bool {
	return t.Get(ctx).Draining
}

type memoryStore struct {
	mu sync.RWMutex
	st State
}

// NewMemoryStore returns a memory-backed Store initialized to "not_ready".
func NewMemoryStore() Store {
	return &memoryStore{st: State{Status: StatusNotReady}}
}

func (m *memoryStore) Load(context.Context) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st, nil
}

func (m *memoryStore) Store(_ context.Context, s State) error {
	m.mu.Lock()
	m.st = s
	m.mu.Unlock()
	return nil
}
