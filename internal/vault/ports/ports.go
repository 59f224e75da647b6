// Package ports defines the interfaces the vault service consumes: its stores
// and the external collaborators that hold real assets and accounts.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks AuditPublisher,RegistryStore,VaultStore,LedgerStore,AccountDirectory,TransferService,TokenTx,PartitionLocker

import (
	"context"
	"log/slog"

	"custody/internal/vault/models"
	id "custody/pkg/domain"
	"custody/pkg/platform/audit"
	"custody/pkg/requestcontext"
)

// AuditPublisher is the event sink. Emission is fire-and-forget from the
// service's point of view.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// RegistryStore persists the singleton registry.
type RegistryStore interface {
	// Get returns the registry; an absent row reads as the zero (uninitialized) value.
	Get(ctx context.Context) (*models.Registry, error)

	// Update loads the registry, applies fn and persists the result atomically.
	// Nothing is written when fn returns an error.
	Update(ctx context.Context, fn func(*models.Registry) error) (*models.Registry, error)
}

// VaultStore persists vaults keyed by id.
type VaultStore interface {
	// Create inserts a new vault. Returns sentinel.ErrAlreadyUsed when the id exists.
	Create(ctx context.Context, vault *models.Vault) error

	// FindByID returns sentinel.ErrNotFound when absent.
	FindByID(ctx context.Context, vaultID id.VaultID) (*models.Vault, error)

	// Update writes vault if its Version still matches the stored one and
	// bumps the version. Returns sentinel.ErrConflict on a stale write.
	Update(ctx context.Context, vault *models.Vault) error

	// List returns all vaults ordered by id.
	List(ctx context.Context) ([]*models.Vault, error)
}

// LedgerStore persists deposit entries keyed by (vault, depositor).
type LedgerStore interface {
	// Find returns sentinel.ErrNotFound when the depositor has never deposited.
	Find(ctx context.Context, vaultID id.VaultID, depositor id.PrincipalID) (*models.DepositEntry, error)

	// Save inserts a new entry (Version 0) or updates an existing one with
	// optimistic versioning. Returns sentinel.ErrConflict on a stale write.
	Save(ctx context.Context, entry *models.DepositEntry) error

	// ListByVault returns a vault's entries ordered by depositor.
	ListByVault(ctx context.Context, vaultID id.VaultID) ([]*models.DepositEntry, error)
}

// Account is a token account known to the directory.
type Account struct {
	Address id.Address
	Owner   id.PrincipalID
	Asset   id.AssetID
}

// AccountDirectory derives and allocates deterministic account addresses.
type AccountDirectory interface {
	// DeriveAddress is a pure function of its seed components.
	DeriveAddress(seeds ...string) id.Address

	// CreateAccount allocates an account at addr. Returns sentinel.ErrAlreadyUsed
	// when the address is taken.
	CreateAccount(ctx context.Context, account Account, payer id.PrincipalID) error

	// Lookup returns sentinel.ErrNotFound when no account exists at addr.
	Lookup(ctx context.Context, addr id.Address) (Account, error)
}

// TransferService moves the real asset and the claim receipts.
// All calls are single-shot and must succeed before the core commits.
type TransferService interface {
	Transfer(ctx context.Context, from, to id.Address, amount uint64) error
	Mint(ctx context.Context, to id.Address, amount uint64, authority id.PrincipalID) error
	Burn(ctx context.Context, from id.Address, amount uint64, authority id.PrincipalID) error
}

// TokenTx groups collaborator calls so they succeed or fail together.
type TokenTx interface {
	RunAtomic(ctx context.Context, fn func(ctx context.Context, tokens TransferService) error) error
}

// PartitionLocker serializes work on one state partition (a vault's flags, or
// one depositor's ledger entry). Unlock must be called exactly once.
type PartitionLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// LogAudit logs an audit line and emits the event to the publisher if present.
// Emission failures are logged and never fail the caller's operation.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event audit.Event, attrs ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	event.RequestID = requestID

	args := append(attrs, "event", event.Action, "log_type", "audit")
	if logger != nil {
		logger.InfoContext(ctx, event.Action, args...)
	}

	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", event.Action, "error", err)
	}
}
