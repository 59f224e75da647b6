// Package policy answers "may principal P perform action A on vault V".
//
// Every mutating vault operation goes through Authorize; there is no other
// path to an admin-gated transition. The functions are pure: they read the
// admin set and never mutate it.
package policy

import (
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
)

// Action names an admin-gated vault mutation.
type Action string

const (
	ActionFreeze            Action = "freeze"
	ActionUnfreeze          Action = "unfreeze"
	ActionClose             Action = "close"
	ActionAddGuardian       Action = "add_guardian"
	ActionRemoveGuardian    Action = "remove_guardian"
	ActionSuspendGuardian   Action = "suspend_guardian"
	ActionReinstateGuardian Action = "reinstate_guardian"
)

var adminActions = map[Action]bool{
	ActionFreeze:            true,
	ActionUnfreeze:          true,
	ActionClose:             true,
	ActionAddGuardian:       true,
	ActionRemoveGuardian:    true,
	ActionSuspendGuardian:   true,
	ActionReinstateGuardian: true,
}

func (a Action) IsValid() bool {
	return adminActions[a]
}

var (
	// ErrUnauthorized is returned when the caller is neither the creator nor an active guardian.
	ErrUnauthorized = dErrors.New(dErrors.CodeUnauthorized, "caller is not the vault creator or an active guardian")
	// ErrUnknownAction guards against callers inventing actions the policy does not know.
	ErrUnknownAction = dErrors.New(dErrors.CodeInternal, "unknown vault action")
	// ErrInvalidTokenAccountOwner is returned when the caller does not own a token account it wants to move funds through.
	ErrInvalidTokenAccountOwner = dErrors.New(dErrors.CodeOwnershipMismatch, "signer is not the owner of the token account")
	// ErrNotDepositOwner is returned when a caller touches another depositor's ledger entry.
	ErrNotDepositOwner = dErrors.New(dErrors.CodeOwnershipMismatch, "caller does not own the deposit entry")
)

// AdminSet is the view of a vault the policy needs.
type AdminSet interface {
	CreatorID() id.PrincipalID
	IsActiveGuardian(p id.PrincipalID) bool
}

// IsAdmin reports p == creator or p is an active guardian.
func IsAdmin(s AdminSet, p id.PrincipalID) bool {
	if s == nil || p.IsNil() {
		return false
	}
	return p == s.CreatorID() || s.IsActiveGuardian(p)
}

// Authorize returns nil when caller may perform action on the vault.
func Authorize(s AdminSet, caller id.PrincipalID, action Action) error {
	if !action.IsValid() {
		return ErrUnknownAction
	}
	if !IsAdmin(s, caller) {
		return ErrUnauthorized
	}
	return nil
}

// AuthorizeAccountOwner checks that caller owns the token account whose owner
// the transfer collaborator reported.
func AuthorizeAccountOwner(owner, caller id.PrincipalID) error {
	if caller.IsNil() || owner != caller {
		return ErrInvalidTokenAccountOwner
	}
	return nil
}

// AuthorizeEntryOwner checks that caller is the depositor of a ledger entry.
func AuthorizeEntryOwner(depositor, caller id.PrincipalID) error {
	if caller.IsNil() || depositor != caller {
		return ErrNotDepositOwner
	}
	return nil
}
