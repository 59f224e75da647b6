// Package registry persists the singleton program registry.
package registry

import (
	"context"
	"sync"

	"custody/internal/vault/models"
)

// InMemoryStore keeps the registry in memory for tests and single-node dev.
type InMemoryStore struct {
	mu  sync.Mutex
	reg models.Registry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Get(_ context.Context) (*models.Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg := s.reg
	return &reg, nil
}

// Update applies fn to a copy and keeps it only when fn succeeds.
func (s *InMemoryStore) Update(_ context.Context, fn func(*models.Registry) error) (*models.Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.reg
	if err := fn(&next); err != nil {
		return nil, err
	}
	s.reg = next
	out := next
	return &out, nil
}
