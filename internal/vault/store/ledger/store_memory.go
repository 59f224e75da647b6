// Package ledger persists deposit entries, one per (vault, depositor).
package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"custody/internal/vault/models"
	id "custody/pkg/domain"
	"custody/pkg/platform/sentinel"
)

type entryKey struct {
	vault     id.VaultID
	depositor id.PrincipalID
}

// InMemoryStore keeps deposit entries in memory for tests and single-node dev.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[entryKey]*models.DepositEntry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{entries: make(map[entryKey]*models.DepositEntry)}
}

func (s *InMemoryStore) Find(_ context.Context, vaultID id.VaultID, depositor id.PrincipalID) (*models.DepositEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[entryKey{vaultID, depositor}]
	if !ok {
		return nil, fmt.Errorf("deposit entry %d/%s: %w", vaultID, depositor, sentinel.ErrNotFound)
	}
	return e.Clone(), nil
}

func (s *InMemoryStore) Save(_ context.Context, entry *models.DepositEntry) error {
	if entry == nil {
		return fmt.Errorf("deposit entry is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entryKey{entry.VaultID, entry.Depositor}
	current, ok := s.entries[key]
	switch {
	case !ok && entry.Version != 0:
		return fmt.Errorf("deposit entry %d/%s: %w", entry.VaultID, entry.Depositor, sentinel.ErrNotFound)
	case ok && current.Version != entry.Version:
		return fmt.Errorf("deposit entry %d/%s version %d: %w", entry.VaultID, entry.Depositor, entry.Version, sentinel.ErrConflict)
	}
	entry.Version++
	s.entries[key] = entry.Clone()
	return nil
}

func (s *InMemoryStore) ListByVault(_ context.Context, vaultID id.VaultID) ([]*models.DepositEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DepositEntry
	for k, e := range s.entries {
		if k.vault == vaultID {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Depositor < out[j].Depositor })
	return out, nil
}
