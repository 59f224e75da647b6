package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	id "custody/pkg/domain"
	audit "custody/pkg/platform/audit"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	events   map[id.VaultID][]audit.Event
	archived map[uuid.UUID]struct{}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[id.VaultID][]audit.Event)
	s.archived = make(map[uuid.UUID]struct{})
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		events:   make(map[id.VaultID][]audit.Event),
		archived: make(map[uuid.UUID]struct{}),
	}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	s.events[event.VaultID] = append(s.events[event.VaultID], event)
	return nil
}

func (s *InMemoryStore) ListByVault(_ context.Context, vaultID id.VaultID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[vaultID]...), nil
}

// ListAll returns all audit events across all vaults. Registry events are
// stored under vault 0.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var allEvents []audit.Event
	for _, vaultEvents := range s.events {
		allEvents = append(allEvents, vaultEvents...)
	}
	return allEvents, nil
}

// Archive appends a consumed event once per eventID.
func (s *InMemoryStore) Archive(ctx context.Context, eventID uuid.UUID, event audit.Event) error {
	s.mu.Lock()
	if _, ok := s.archived[eventID]; ok {
		s.mu.Unlock()
		return nil
	}
	s.archived[eventID] = struct{}{}
	s.mu.Unlock()
	return s.Append(ctx, event)
}
