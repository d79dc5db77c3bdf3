package store

import (
	"context"
	"sync"

	"taxtrail/internal/escalation"
	id "taxtrail/pkg/domain"
)

// InMemoryStore keeps escalation events per client, append-only.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.ClientID][]*escalation.Event
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.ClientID][]*escalation.Event)}
}

func (s *InMemoryStore) Record(_ context.Context, event *escalation.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *event
	s.events[event.ClientID] = append(s.events[event.ClientID], &copied)
	return nil
}

func (s *InMemoryStore) ListByClient(_ context.Context, clientID id.ClientID) ([]*escalation.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]*escalation.Event, 0, len(s.events[clientID]))
	for _, e := range s.events[clientID] {
		copied := *e
		events = append(events, &copied)
	}
	return events, nil
}
