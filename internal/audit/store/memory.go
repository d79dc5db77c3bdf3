package store

import (
	"context"
	"sync"

	"taxtrail/internal/audit"
	id "taxtrail/pkg/domain"
)

// InMemoryStore is an append-only audit log used in tests and local runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a snapshot of everything appended so far, in order.
func (s *InMemoryStore) Events() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByClient filters the log down to one client's trail.
func (s *InMemoryStore) ByClient(clientID id.ClientID) []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.ClientID == clientID {
			out = append(out, e)
		}
	}
	return out
}
