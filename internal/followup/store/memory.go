package store

import (
	"context"
	"sync"
	"time"

	"taxtrail/internal/followup/models"
	id "taxtrail/pkg/domain"
	"taxtrail/pkg/platform/sentinel"
)

// InMemoryStore keeps per-client follow-up ledgers. Append enforces the same
// conditional-write rule as the Postgres store: an event whose sequence is
// already taken is rejected, which serializes racing reminder senders.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.ClientID][]*models.Event
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.ClientID][]*models.Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger := s.events[event.ClientID]
	if event.Seq != len(ledger)+1 {
		return sentinel.ErrConflict
	}
	copied := *event
	s.events[event.ClientID] = append(ledger, &copied)
	return nil
}

func (s *InMemoryStore) Latest(_ context.Context, clientID id.ClientID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ledger := s.events[clientID]
	if len(ledger) == 0 {
		return nil, sentinel.ErrNotFound
	}
	copied := *ledger[len(ledger)-1]
	return &copied, nil
}

func (s *InMemoryStore) Count(_ context.Context, clientID id.ClientID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events[clientID]), nil
}

// ListByClient returns the full ledger in sequence order.
func (s *InMemoryStore) ListByClient(_ context.Context, clientID id.ClientID) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ledger := s.events[clientID]
	out := make([]*models.Event, 0, len(ledger))
	for _, e := range ledger {
		copied := *e
		out = append(out, &copied)
	}
	return out, nil
}

// MarkResponded sets the response flag on one ledger entry. The only
// permitted mutation after append.
func (s *InMemoryStore) MarkResponded(_ context.Context, clientID id.ClientID, seq int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger := s.events[clientID]
	if seq < 1 || seq > len(ledger) {
		return sentinel.ErrNotFound
	}
	ledger[seq-1].MarkResponded(now)
	return nil
}
