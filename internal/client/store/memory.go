package store

import (
	"context"
	"sync"
	"time"

	"taxtrail/internal/client/models"
	"taxtrail/internal/escalation"
	id "taxtrail/pkg/domain"
	"taxtrail/pkg/platform/sentinel"
)

// InMemoryStore holds clients in a map, guarded by a RWMutex. Suitable for
// tests and single-node development; use PostgresStore in production.
type InMemoryStore struct {
	mu      sync.RWMutex
	clients map[id.ClientID]*models.Client
	order   []id.ClientID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{clients: make(map[id.ClientID]*models.Client)}
}

func (s *InMemoryStore) Create(_ context.Context, c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.clients[c.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := *c
	s.clients[c.ID] = &copied
	s.order = append(s.order, c.ID)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, clientID id.ClientID) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[clientID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

// FindByAccountant returns the accountant's clients in creation order, which
// keeps aggregator sorting stable across calls.
func (s *InMemoryStore) FindByAccountant(_ context.Context, accountantID id.AccountantID) ([]*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Client
	for _, cid := range s.order {
		c := s.clients[cid]
		if c.AccountantID == accountantID {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

// All returns every client in creation order. Used by the sweep worker.
func (s *InMemoryStore) All(_ context.Context) ([]*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Client, 0, len(s.order))
	for _, cid := range s.order {
		copied := *s.clients[cid]
		out = append(out, &copied)
	}
	return out, nil
}

// UpdateStatus transitions a client's status conditionally: the write only
// lands if the stored status still equals from. A lost race returns
// ErrConflict so callers can re-read and re-evaluate.
func (s *InMemoryStore) UpdateStatus(_ context.Context, clientID id.ClientID, from, to escalation.Status, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[clientID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if c.Status != from {
		return sentinel.ErrConflict
	}
	c.Status = to
	c.UpdatedAt = now
	return nil
}
