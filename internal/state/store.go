package state

import "sync"

// Hook observes dispatched actions after the reducer has run. It receives
// the action and a snapshot of the post-reduce state. Hooks run outside the
// store lock, in registration order, and may dispatch further actions.
type Hook func(Action, AppState)

// Store holds the application state and serializes mutations through
// Dispatch. Reads are cheap snapshots; the layout handle inside a snapshot
// is shared, everything else is copied.
type Store struct {
	mu    sync.Mutex
	state AppState

	hookMu sync.Mutex
	hooks  []Hook
}

// NewStore returns a store holding the initial state.
func NewStore() *Store {
	return &Store{state: initialState()}
}

// State returns a snapshot of the current state.
func (s *Store) State() AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Use registers a post-reduce hook. Hooks registered after a dispatch has
// started will not observe that dispatch.
func (s *Store) Use(h Hook) {
	if h == nil {
		return
	}
	s.hookMu.Lock()
	s.hooks = append(s.hooks, h)
	s.hookMu.Unlock()
}

// Dispatch reduces the action into the state and then notifies hooks with
// the resulting snapshot. Reduction is serialized; hooks run outside the
// state lock so they can call Dispatch recursively.
func (s *Store) Dispatch(a Action) {
	if a == nil {
		return
	}
	s.mu.Lock()
	s.state = reduce(s.state, a)
	snap := s.state
	s.mu.Unlock()

	s.hookMu.Lock()
	hooks := make([]Hook, len(s.hooks))
	copy(hooks, s.hooks)
	s.hookMu.Unlock()

	for _, h := range hooks {
		h(a, snap)
	}
}
