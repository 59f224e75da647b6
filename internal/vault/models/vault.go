package models

import (
	"time"

	"custody/internal/vault/policy"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
)

// Vault is the aggregate root for a custody container of one asset.
//
// Invariants:
//   - Closed is terminal: once true, no field changes again
//   - Frozen and Closed are independent flags; Closed rejects deposits and
//     withdrawals regardless of Frozen
//   - Guardians holds at most MaxGuardians members and never the creator
//   - Creator and Asset are immutable after construction
//
// Every admin-gated transition authorizes the caller through policy.Authorize
// before inspecting lifecycle flags, so an unauthorized caller learns nothing
// about vault state.
type Vault struct {
	ID             id.VaultID     `json:"id"`
	Creator        id.PrincipalID `json:"creator"`
	Asset          id.AssetID     `json:"asset"`
	MaxDeposit     uint64         `json:"max_deposit,omitempty"` // 0 means no cap
	Frozen         bool           `json:"frozen"`
	Closed         bool           `json:"closed"`
	Guardians      GuardianSet    `json:"guardians"`
	CustodyAccount id.Address     `json:"custody_account"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Version        int64          `json:"-"`
}

func NewVault(vaultID id.VaultID, creator id.PrincipalID, asset id.AssetID, maxDeposit uint64, now time.Time) (*Vault, error) {
	if vaultID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "vault id cannot be zero")
	}
	if creator.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "vault creator cannot be empty")
	}
	if asset.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "vault asset cannot be empty")
	}
	return &Vault{
		ID:         vaultID,
		Creator:    creator,
		Asset:      asset,
		MaxDeposit: maxDeposit,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// CreatorID implements policy.AdminSet.
func (v *Vault) CreatorID() id.PrincipalID {
	return v.Creator
}

// IsActiveGuardian implements policy.AdminSet.
func (v *Vault) IsActiveGuardian(p id.PrincipalID) bool {
	return v.Guardians.IsActive(p)
}

func (v *Vault) IsAdmin(p id.PrincipalID) bool {
	return policy.IsAdmin(v, p)
}

// Authority is the principal that owns the custody account and signs
// receipt mints and burns.
func (v *Vault) Authority() id.PrincipalID {
	return id.PrincipalID("vault:" + v.ID.String())
}

// ReceiptAsset is the claim token minted 1:1 against deposits.
func (v *Vault) ReceiptAsset() id.AssetID {
	return id.AssetID("receipt:" + v.ID.String())
}

// Status is the derived lifecycle state: closed wins over frozen.
func (v *Vault) Status() string {
	switch {
	case v.Closed:
		return "closed"
	case v.Frozen:
		return "frozen"
	default:
		return "active"
	}
}

// CanTransact reports whether deposits and withdrawals are accepted.
func (v *Vault) CanTransact() error {
	if v.Closed {
		return ErrVaultClosed
	}
	if v.Frozen {
		return ErrVaultFrozen
	}
	return nil
}

// CheckDepositLimit enforces existing + amount <= MaxDeposit when a cap is set.
func (v *Vault) CheckDepositLimit(existing, amount uint64) error {
	if v.MaxDeposit == 0 {
		return nil
	}
	if amount > v.MaxDeposit || existing > v.MaxDeposit-amount {
		return ErrDepositLimitExceeded
	}
	return nil
}

func (v *Vault) authorize(caller id.PrincipalID, action policy.Action) error {
	if err := policy.Authorize(v, caller, action); err != nil {
		return err
	}
	if v.Closed && action != policy.ActionClose {
		return ErrVaultClosed
	}
	return nil
}

// CanFreeze checks that caller may freeze an active vault.
func (v *Vault) CanFreeze(caller id.PrincipalID) error {
	if err := v.authorize(caller, policy.ActionFreeze); err != nil {
		return err
	}
	if v.Frozen {
		return ErrVaultAlreadyFrozen
	}
	return nil
}

// ApplyFreeze must only be called after CanFreeze returns nil.
func (v *Vault) ApplyFreeze(now time.Time) {
	v.Frozen = true
	v.UpdatedAt = now
}

func (v *Vault) Freeze(caller id.PrincipalID, now time.Time) error {
	if err := v.CanFreeze(caller); err != nil {
		return err
	}
	v.ApplyFreeze(now)
	return nil
}

// CanUnfreeze checks that caller may lift a freeze.
func (v *Vault) CanUnfreeze(caller id.PrincipalID) error {
	if err := v.authorize(caller, policy.ActionUnfreeze); err != nil {
		return err
	}
	if !v.Frozen {
		return ErrVaultNotFrozen
	}
	return nil
}

// ApplyUnfreeze must only be called after CanUnfreeze returns nil.
func (v *Vault) ApplyUnfreeze(now time.Time) {
	v.Frozen = false
	v.UpdatedAt = now
}

func (v *Vault) Unfreeze(caller id.PrincipalID, now time.Time) error {
	if err := v.CanUnfreeze(caller); err != nil {
		return err
	}
	v.ApplyUnfreeze(now)
	return nil
}

// CanClose checks that caller may close the vault. Frozen vaults may be closed.
func (v *Vault) CanClose(caller id.PrincipalID) error {
	if err := v.authorize(caller, policy.ActionClose); err != nil {
		return err
	}
	if v.Closed {
		return ErrVaultAlreadyClosed
	}
	return nil
}

// ApplyClose must only be called after CanClose returns nil.
// Recorded balances are left untouched.
func (v *Vault) ApplyClose(now time.Time) {
	v.Closed = true
	v.UpdatedAt = now
}

func (v *Vault) Close(caller id.PrincipalID, now time.Time) error {
	if err := v.CanClose(caller); err != nil {
		return err
	}
	v.ApplyClose(now)
	return nil
}

// AddGuardian inserts candidate as an active guardian. The creator is always
// an admin and is reported as already present.
func (v *Vault) AddGuardian(caller, candidate id.PrincipalID, now time.Time) error {
	if err := v.authorize(caller, policy.ActionAddGuardian); err != nil {
		return err
	}
	if candidate == v.Creator {
		return ErrAlreadyGuardian
	}
	if err := v.Guardians.Add(candidate, now); err != nil {
		return err
	}
	v.UpdatedAt = now
	return nil
}

func (v *Vault) RemoveGuardian(caller, candidate id.PrincipalID, now time.Time) error {
	if err := v.authorize(caller, policy.ActionRemoveGuardian); err != nil {
		return err
	}
	if err := v.Guardians.Remove(candidate); err != nil {
		return err
	}
	v.UpdatedAt = now
	return nil
}

// SuspendGuardian keeps the guardian's slot but revokes its admin rights.
func (v *Vault) SuspendGuardian(caller, guardian id.PrincipalID, now time.Time) error {
	if err := v.authorize(caller, policy.ActionSuspendGuardian); err != nil {
		return err
	}
	if err := v.Guardians.SetActive(guardian, false); err != nil {
		return err
	}
	v.UpdatedAt = now
	return nil
}

func (v *Vault) ReinstateGuardian(caller, guardian id.PrincipalID, now time.Time) error {
	if err := v.authorize(caller, policy.ActionReinstateGuardian); err != nil {
		return err
	}
	if err := v.Guardians.SetActive(guardian, true); err != nil {
		return err
	}
	v.UpdatedAt = now
	return nil
}

// Clone returns a deep copy so stores never share guardian storage with callers.
func (v *Vault) Clone() *Vault {
	if v == nil {
		return nil
	}
	c := *v
	c.Guardians = v.Guardians.Clone()
	return &c
}
