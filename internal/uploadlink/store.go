package uploadlink

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	id "taxtrail/pkg/domain"
	"taxtrail/pkg/platform/sentinel"
)

// Record is the stored half of an upload link: the secret is never persisted,
// only its bcrypt hash.
type Record struct {
	LinkID     uuid.UUID
	ClientID   id.ClientID
	SecretHash string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Store persists upload-link records.
type Store interface {
	Save(ctx context.Context, record *Record) error
	Find(ctx context.Context, linkID uuid.UUID) (*Record, error)
	Delete(ctx context.Context, linkID uuid.UUID) error
}

// InMemoryStore backs tests and local development.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[uuid.UUID]*Record)}
}

func (s *InMemoryStore) Save(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *record
	s.records[record.LinkID] = &copied
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, linkID uuid.UUID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[linkID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *InMemoryStore) Delete(_ context.Context, linkID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[linkID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, linkID)
	return nil
}
