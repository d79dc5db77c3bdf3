package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"taxtrail/internal/document/models"
	id "taxtrail/pkg/domain"
	"taxtrail/pkg/platform/sentinel"
)

// InMemoryStore keeps requirements per client, preserving insertion order via
// the Position field.
type InMemoryStore struct {
	mu           sync.RWMutex
	requirements map[id.ClientID]map[models.DocumentType]*models.Requirement
	nextPosition map[id.ClientID]int
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		requirements: make(map[id.ClientID]map[models.DocumentType]*models.Requirement),
		nextPosition: make(map[id.ClientID]int),
	}
}

// Put inserts or replaces a requirement. A replaced requirement keeps its
// original position so registry order stays stable.
func (s *InMemoryStore) Put(_ context.Context, r *models.Requirement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byType, ok := s.requirements[r.ClientID]
	if !ok {
		byType = make(map[models.DocumentType]*models.Requirement)
		s.requirements[r.ClientID] = byType
	}
	copied := *r
	if existing, ok := byType[r.Type]; ok {
		copied.Position = existing.Position
	} else {
		copied.Position = s.nextPosition[r.ClientID]
		s.nextPosition[r.ClientID]++
	}
	byType[r.Type] = &copied
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, clientID id.ClientID, docType models.DocumentType) (*models.Requirement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requirements[clientID][docType]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

// ListByClient returns the client's requirements in registry insertion order.
func (s *InMemoryStore) ListByClient(_ context.Context, clientID id.ClientID) ([]*models.Requirement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Requirement, 0, len(s.requirements[clientID]))
	for _, r := range s.requirements[clientID] {
		copied := *r
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *InMemoryStore) Remove(_ context.Context, clientID id.ClientID, docType models.DocumentType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requirements[clientID][docType]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.requirements[clientID], docType)
	return nil
}

// MarkSatisfied flags receipt of a document type if the requirement exists.
func (s *InMemoryStore) MarkSatisfied(_ context.Context, clientID id.ClientID, docType models.DocumentType, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requirements[clientID][docType]
	if !ok {
		return sentinel.ErrNotFound
	}
	r.MarkSatisfied(now)
	return nil
}

// TouchChecked stamps every requirement of the client with a last-checked
// time after a reconcile pass.
func (s *InMemoryStore) TouchChecked(_ context.Context, clientID id.ClientID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requirements[clientID] {
		checked := now
		r.LastCheckedAt = &checked
	}
	return nil
}
