// Package scan abstracts the inbox of uploaded client artifacts. The service
// reconciles the requirement registry against whatever the source reports,
// so swapping object storage for a different intake channel is a one-type
// change.
package scan

import (
	"context"
	"sync"
	"time"

	id "taxtrail/pkg/domain"
)

// Artifact is one uploaded file as seen by the scan source. DeclaredType
// carries the uploader's own classification when present; it takes precedence
// over filename heuristics.
type Artifact struct {
	Filename     string
	DeclaredType string
	UploadedAt   time.Time
	SizeBytes    int64
}

// Source lists the artifacts currently uploaded for a client.
type Source interface {
	List(ctx context.Context, clientID id.ClientID) ([]Artifact, error)
}

// InMemorySource backs tests and local development.
type InMemorySource struct {
	mu        sync.RWMutex
	artifacts map[id.ClientID][]Artifact
}

func NewInMemorySource() *InMemorySource {
	return &InMemorySource{artifacts: make(map[id.ClientID][]Artifact)}
}

func (s *InMemorySource) Add(clientID id.ClientID, artifact Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[clientID] = append(s.artifacts[clientID], artifact)
}

func (s *InMemorySource) List(_ context.Context, clientID id.ClientID) ([]Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Artifact, len(s.artifacts[clientID]))
	copy(out, s.artifacts[clientID])
	return out, nil
}
