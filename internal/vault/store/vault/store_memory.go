// Package vault persists vault aggregates with optimistic versioning.
package vault

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"custody/internal/vault/models"
	id "custody/pkg/domain"
	"custody/pkg/platform/sentinel"
)

// InMemoryStore keeps vaults in memory. Callers always receive clones, so a
// mutated vault only becomes visible through Update.
type InMemoryStore struct {
	mu     sync.RWMutex
	vaults map[id.VaultID]*models.Vault
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{vaults: make(map[id.VaultID]*models.Vault)}
}

func (s *InMemoryStore) Create(_ context.Context, vault *models.Vault) error {
	if vault == nil {
		return fmt.Errorf("vault is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vaults[vault.ID]; ok {
		return fmt.Errorf("vault %d: %w", vault.ID, sentinel.ErrAlreadyUsed)
	}
	vault.Version = 1
	s.vaults[vault.ID] = vault.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, vaultID id.VaultID) (*models.Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vaults[vaultID]
	if !ok {
		return nil, fmt.Errorf("vault %d: %w", vaultID, sentinel.ErrNotFound)
	}
	return v.Clone(), nil
}

func (s *InMemoryStore) Update(_ context.Context, vault *models.Vault) error {
	if vault == nil {
		return fmt.Errorf("vault is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.vaults[vault.ID]
	if !ok {
		return fmt.Errorf("vault %d: %w", vault.ID, sentinel.ErrNotFound)
	}
	if current.Version != vault.Version {
		return fmt.Errorf("vault %d version %d: %w", vault.ID, vault.Version, sentinel.ErrConflict)
	}
	vault.Version++
	s.vaults[vault.ID] = vault.Clone()
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Vault, 0, len(s.vaults))
	for _, v := range s.vaults {
		out = append(out, v.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
