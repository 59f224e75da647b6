package audit

import (
	"context"
	"time"

	id "custody/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing downstream of the outbox.
type EventCategory string

const (
	// CategoryCompliance covers events that move or account for funds.
	// These require long retention and are never sampled.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers changes to who may administer a vault and to
	// its lifecycle flags.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine request bookkeeping.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Action    string
	VaultID   id.VaultID
	// ActorID is the principal that performed the action.
	ActorID id.PrincipalID
	// Subject is the principal acted upon: the depositor for ledger events,
	// the guardian for guardian events.
	Subject   id.PrincipalID
	Asset     id.AssetID
	Amount    uint64
	Slot      int
	Reason    string
	RequestID string
}

type AuditEvent string

const (
	EventRegistryInitialized AuditEvent = "registry_initialized"

	// Vault lifecycle events
	EventVaultCreated  AuditEvent = "vault_created"
	EventVaultFrozen   AuditEvent = "vault_frozen"
	EventVaultUnfrozen AuditEvent = "vault_unfrozen"
	EventVaultClosed   AuditEvent = "vault_closed"

	// Guardian events
	EventGuardianAdded      AuditEvent = "guardian_added"
	EventGuardianRemoved    AuditEvent = "guardian_removed"
	EventGuardianSuspended  AuditEvent = "guardian_suspended"
	EventGuardianReinstated AuditEvent = "guardian_reinstated"

	// Ledger events
	EventVaultDeposit    AuditEvent = "vault_deposit"
	EventVaultWithdrawal AuditEvent = "vault_withdrawal"

	// Withdrawal request events
	EventWithdrawalInitiated AuditEvent = "withdrawal_initiated"
	EventWithdrawalAdvanced  AuditEvent = "withdrawal_advanced"
	EventWithdrawalCancelled AuditEvent = "withdrawal_cancelled"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventVaultDeposit:    CategoryCompliance,
	EventVaultWithdrawal: CategoryCompliance,
	EventVaultClosed:     CategoryCompliance,
	EventVaultCreated:    CategoryCompliance,

	EventRegistryInitialized: CategorySecurity,
	EventVaultFrozen:         CategorySecurity,
	EventVaultUnfrozen:       CategorySecurity,
	EventGuardianAdded:       CategorySecurity,
	EventGuardianRemoved:     CategorySecurity,
	EventGuardianSuspended:   CategorySecurity,
	EventGuardianReinstated:  CategorySecurity,

	EventWithdrawalInitiated: CategoryOperations,
	EventWithdrawalAdvanced:  CategoryOperations,
	EventWithdrawalCancelled: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByVault(ctx context.Context, vaultID id.VaultID) ([]Event, error)
}

// OutboxEntry is one row waiting to be relayed to the message broker.
type OutboxEntry struct {
	ID          string
	EventType   string
	AggregateID string
	Payload     []byte
	CreatedAt   time.Time
}

// Outbox is the relay's view of the outbox table.
type Outbox interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	FetchUnpublished(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []string) error
}
