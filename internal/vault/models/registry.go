package models

import (
	"time"

	id "custody/pkg/domain"
)

// Registry is the process-wide program state that hands out vault IDs.
//
// Invariants:
//   - Initialized goes false -> true exactly once
//   - NextVaultID only increases; an allocated ID is never handed out again,
//     even when the vault creation that requested it fails
type Registry struct {
	NextVaultID   id.VaultID `json:"next_vault_id"`
	Initialized   bool       `json:"initialized"`
	InitializedAt time.Time  `json:"initialized_at"`
}

// Initialize starts ID allocation at 1.
func (r *Registry) Initialize(now time.Time) error {
	if r.Initialized {
		return ErrRegistryAlreadyInitialized
	}
	r.NextVaultID = 1
	r.Initialized = true
	r.InitializedAt = now
	return nil
}

// AllocateVaultID returns the current NextVaultID and advances the counter.
func (r *Registry) AllocateVaultID() (id.VaultID, error) {
	if !r.Initialized {
		return 0, ErrRegistryNotInitialized
	}
	allocated := r.NextVaultID
	r.NextVaultID++
	return allocated, nil
}
