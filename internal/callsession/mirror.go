package callsession

import (
	"context"
	"sync"
)

// Mirror holds a State shared between the event consumer and readers.
type Mirror struct {
	mu       sync.RWMutex
	state    State
	onChange func(State)
}

// NewMirror returns an idle mirror. onChange, if non-nil, is called after
// every applied event with the new state, outside the lock.
func NewMirror(onChange func(State)) *Mirror {
	return &Mirror{onChange: onChange}
}

// Apply reduces ev into the mirror and returns the new state.
func (m *Mirror) Apply(ev Event) State {
	m.mu.Lock()
	m.state = Reduce(m.state, ev)
	s := m.state
	m.mu.Unlock()
	if m.onChange != nil {
		m.onChange(s)
	}
	return s
}

// Snapshot returns the current state.
func (m *Mirror) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Run applies events from ch until it closes or ctx is done.
func (m *Mirror) Run(ctx context.Context, ch <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			m.Apply(ev)
		}
	}
}
