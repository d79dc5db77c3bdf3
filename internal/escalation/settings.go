package escalation

import (
	"context"
	"sync"

	id "taxtrail/pkg/domain"
)

// SettingsStore resolves the escalation thresholds for an accountant.
// Accountants without an override get the configured defaults.
type SettingsStore interface {
	Get(ctx context.Context, accountantID id.AccountantID) (Config, error)
	Put(ctx context.Context, accountantID id.AccountantID, cfg Config) error
}

// InMemorySettings keeps per-accountant overrides in a map.
type InMemorySettings struct {
	mu        sync.RWMutex
	defaults  Config
	overrides map[id.AccountantID]Config
}

func NewInMemorySettings(defaults Config) *InMemorySettings {
	return &InMemorySettings{
		defaults:  defaults,
		overrides: make(map[id.AccountantID]Config),
	}
}

func (s *InMemorySettings) Get(_ context.Context, accountantID id.AccountantID) (Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cfg, ok := s.overrides[accountantID]; ok {
		return cfg, nil
	}
	return s.defaults, nil
}

func (s *InMemorySettings) Put(_ context.Context, accountantID id.AccountantID, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[accountantID] = cfg
	return nil
}
