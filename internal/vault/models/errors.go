package models

import dErrors "custody/pkg/domain-errors"

// Each precondition failure has its own value so callers can match with
// errors.Is; the code carries the taxonomy category.
var (
	ErrRegistryAlreadyInitialized = dErrors.New(dErrors.CodeLifecycleConflict, "program state already initialized")
	ErrRegistryNotInitialized     = dErrors.New(dErrors.CodeLifecycleConflict, "program state is not initialized")

	ErrVaultNotFound      = dErrors.New(dErrors.CodeNotFound, "vault not found")
	ErrVaultFrozen        = dErrors.New(dErrors.CodeLifecycleConflict, "vault is frozen")
	ErrVaultAlreadyFrozen = dErrors.New(dErrors.CodeLifecycleConflict, "vault is already frozen")
	ErrVaultNotFrozen     = dErrors.New(dErrors.CodeLifecycleConflict, "vault is not frozen")
	ErrVaultClosed        = dErrors.New(dErrors.CodeLifecycleConflict, "vault is closed")
	ErrVaultAlreadyClosed = dErrors.New(dErrors.CodeLifecycleConflict, "vault is already closed")

	ErrAlreadyGuardian          = dErrors.New(dErrors.CodeConflict, "vault guardian already added")
	ErrGuardianListFull         = dErrors.New(dErrors.CodeCapacityExceeded, "vault guardian list is full")
	ErrGuardianNotFound         = dErrors.New(dErrors.CodeNotFound, "vault guardian does not exist")
	ErrGuardianAlreadySuspended = dErrors.New(dErrors.CodeLifecycleConflict, "vault guardian is already suspended")
	ErrGuardianNotSuspended     = dErrors.New(dErrors.CodeLifecycleConflict, "vault guardian is not suspended")
	ErrInvalidGuardian          = dErrors.New(dErrors.CodeInvalidInput, "guardian principal is required")

	ErrInvalidAmount         = dErrors.New(dErrors.CodeValidation, "amount must be greater than zero")
	ErrDepositLimitExceeded  = dErrors.New(dErrors.CodeCapacityExceeded, "deposit exceeds the vault deposit limit")
	ErrBalanceOverflow       = dErrors.New(dErrors.CodeInvariantViolation, "deposit would overflow the recorded balance")
	ErrDepositNotFound       = dErrors.New(dErrors.CodeNotFound, "deposit entry not found")
	ErrInvalidReceiptAccount = dErrors.New(dErrors.CodeOwnershipMismatch, "invalid receipt token account")
	ErrAssetMismatch         = dErrors.New(dErrors.CodeValidation, "token account holds a different asset than the vault")

	ErrWithdrawalRequestLimitReached = dErrors.New(dErrors.CodeCapacityExceeded, "max number of withdrawal requests reached")
	ErrInsufficientBalance           = dErrors.New(dErrors.CodeCapacityExceeded, "withdrawal exceeds the uncommitted balance")
	ErrInvalidSlot                   = dErrors.New(dErrors.CodeBadRequest, "withdrawal slot out of range")
	ErrWithdrawalRequestNotFound     = dErrors.New(dErrors.CodeNotFound, "no withdrawal request in slot")
	ErrInvalidWithdrawalTransition   = dErrors.New(dErrors.CodeLifecycleConflict, "withdrawal request cannot make this transition")
	ErrCooldownNotElapsed            = dErrors.New(dErrors.CodeLifecycleConflict, "withdrawal cooldown has not elapsed")
)
