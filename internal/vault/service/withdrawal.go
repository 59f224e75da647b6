package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"custody/internal/vault/models"
	"custody/internal/vault/policy"
	"custody/internal/vault/ports"
	id "custody/pkg/domain"
	"custody/pkg/platform/audit"
)

// withEntry loads the caller's deposit entry under its partition lock, checks
// the vault with vaultCheck, applies fn and saves the entry. When vaultCheck
// is set the vault lock is held as well, so the checked flags cannot change
// before fn commits.
func (s *Service) withEntry(
	ctx context.Context,
	caller id.PrincipalID,
	vaultID id.VaultID,
	vaultCheck func(v *models.Vault) error,
	fn func(v *models.Vault, e *models.DepositEntry) (models.SlotRequest, error),
) (models.SlotRequest, *models.Vault, error) {
	if err := requireCaller(caller); err != nil {
		return models.SlotRequest{}, nil, err
	}
	keys := []string{ledgerKey(vaultID, caller)}
	if vaultCheck != nil {
		keys = []string{vaultKey(vaultID), ledgerKey(vaultID, caller)}
	}
	unlock, err := s.lockAll(ctx, keys...)
	if err != nil {
		return models.SlotRequest{}, nil, err
	}
	defer unlock()

	vault, err := s.loadVault(ctx, vaultID)
	if err != nil {
		return models.SlotRequest{}, nil, err
	}
	if vaultCheck != nil {
		if err := vaultCheck(vault); err != nil {
			return models.SlotRequest{}, nil, err
		}
	}
	entry, err := s.loadEntry(ctx, vaultID, caller)
	if err != nil {
		return models.SlotRequest{}, nil, err
	}
	if err := policy.AuthorizeEntryOwner(entry.Depositor, caller); err != nil {
		return models.SlotRequest{}, nil, err
	}

	req, err := fn(vault, entry)
	if err != nil {
		return models.SlotRequest{}, nil, err
	}
	return req, vault, nil
}

func (s *Service) saveEntry(ctx context.Context, entry *models.DepositEntry) error {
	if err := s.ledger.Save(ctx, entry); err != nil {
		return storeWriteErr(err, "deposit entry")
	}
	return nil
}

func notClosed(v *models.Vault) error {
	if v.Closed {
		return models.ErrVaultClosed
	}
	return nil
}

// InitiateWithdrawal reserves amount of the caller's balance in the first free
// request slot. Live requests never reserve more than the recorded balance.
func (s *Service) InitiateWithdrawal(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID, amount uint64) (_ models.SlotRequest, err error) {
	ctx, span := s.startSpan(ctx, "InitiateWithdrawal",
		attribute.Int64("vault_id", int64(vaultID)),
		attribute.Int64("amount", int64(amount)),
	)
	defer func() { s.endSpan(span, "initiate_withdrawal", err) }()

	if amount == 0 {
		return models.SlotRequest{}, models.ErrInvalidAmount
	}
	now := s.now(ctx)
	req, _, err := s.withEntry(ctx, caller, vaultID, (*models.Vault).CanTransact,
		func(_ *models.Vault, e *models.DepositEntry) (models.SlotRequest, error) {
			req, err := e.Initiate(amount, now)
			if err != nil {
				return models.SlotRequest{}, err
			}
			return req, s.saveEntry(ctx, e)
		})
	if err != nil {
		return models.SlotRequest{}, err
	}

	s.logAudit(ctx, audit.EventWithdrawalInitiated, audit.Event{
		VaultID: vaultID,
		ActorID: caller,
		Subject: caller,
		Amount:  amount,
		Slot:    req.Slot,
	}, "slot", req.Slot)
	if s.metrics != nil {
		s.metrics.IncrementWithdrawalRequest(req.Status.String())
	}
	return req, nil
}

// AdvanceWithdrawal moves a request one step toward Ready when its timing allows.
// Frozen vaults still let requests age; closed vaults do not.
func (s *Service) AdvanceWithdrawal(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID, slot int) (_ models.SlotRequest, err error) {
	ctx, span := s.startSpan(ctx, "AdvanceWithdrawal",
		attribute.Int64("vault_id", int64(vaultID)),
		attribute.Int("slot", slot),
	)
	defer func() { s.endSpan(span, "advance_withdrawal", err) }()

	now := s.now(ctx)
	req, _, err := s.withEntry(ctx, caller, vaultID, notClosed,
		func(_ *models.Vault, e *models.DepositEntry) (models.SlotRequest, error) {
			req, err := e.Advance(slot, now, s.cooldown)
			if err != nil {
				return models.SlotRequest{}, err
			}
			return req, s.saveEntry(ctx, e)
		})
	if err != nil {
		return models.SlotRequest{}, err
	}

	s.logAudit(ctx, audit.EventWithdrawalAdvanced, audit.Event{
		VaultID: vaultID,
		ActorID: caller,
		Subject: caller,
		Amount:  req.Amount,
		Slot:    req.Slot,
		Reason:  req.Status.String(),
	}, "slot", req.Slot, "status", req.Status.String())
	if s.metrics != nil {
		s.metrics.IncrementWithdrawalRequest(req.Status.String())
	}
	return req, nil
}

// CompleteWithdrawal pays a Ready request out of custody into destination,
// burns the matching receipts and debits the balance. The caller must own
// destination.
func (s *Service) CompleteWithdrawal(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID, slot int, destination id.Address) (_ models.SlotRequest, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "CompleteWithdrawal",
		attribute.Int64("vault_id", int64(vaultID)),
		attribute.Int("slot", slot),
	)
	defer func() { s.endSpan(span, "complete_withdrawal", err) }()

	now := s.now(ctx)
	req, vault, err := s.withEntry(ctx, caller, vaultID, (*models.Vault).CanTransact,
		func(v *models.Vault, e *models.DepositEntry) (models.SlotRequest, error) {
			ready, err := e.CanComplete(slot)
			if err != nil {
				return models.SlotRequest{}, err
			}
			if err := s.checkAccount(ctx, destination, caller, v.Asset); err != nil {
				return models.SlotRequest{}, err
			}

			var done models.SlotRequest
			err = s.tokens.RunAtomic(ctx, func(ctx context.Context, tokens ports.TransferService) error {
				if err := tokens.Transfer(ctx, v.CustodyAccount, destination, ready.Amount); err != nil {
					return collaboratorErr(err, "asset transfer failed")
				}
				if err := tokens.Burn(ctx, e.ReceiptAccount, ready.Amount, v.Authority()); err != nil {
					return collaboratorErr(err, "receipt burn failed")
				}
				done = e.ApplyCompletion(slot, now)
				return s.saveEntry(ctx, e)
			})
			return done, err
		})
	if err != nil {
		return models.SlotRequest{}, err
	}

	s.logAudit(ctx, audit.EventVaultWithdrawal, audit.Event{
		VaultID: vaultID,
		ActorID: caller,
		Subject: caller,
		Asset:   vault.Asset,
		Amount:  req.Amount,
		Slot:    req.Slot,
	}, "slot", req.Slot)
	if s.metrics != nil {
		s.metrics.IncrementWithdrawalRequest(req.Status.String())
		s.metrics.ObserveWithdrawal(req.Amount, start)
	}
	return req, nil
}

// CancelWithdrawal drops a live request. No funds move, so it is allowed in
// every vault state.
func (s *Service) CancelWithdrawal(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID, slot int) (_ models.SlotRequest, err error) {
	ctx, span := s.startSpan(ctx, "CancelWithdrawal",
		attribute.Int64("vault_id", int64(vaultID)),
		attribute.Int("slot", slot),
	)
	defer func() { s.endSpan(span, "cancel_withdrawal", err) }()

	now := s.now(ctx)
	req, _, err := s.withEntry(ctx, caller, vaultID, nil,
		func(_ *models.Vault, e *models.DepositEntry) (models.SlotRequest, error) {
			req, err := e.Cancel(slot, now)
			if err != nil {
				return models.SlotRequest{}, err
			}
			return req, s.saveEntry(ctx, e)
		})
	if err != nil {
		return models.SlotRequest{}, err
	}

	s.logAudit(ctx, audit.EventWithdrawalCancelled, audit.Event{
		VaultID: vaultID,
		ActorID: caller,
		Subject: caller,
		Amount:  req.Amount,
		Slot:    req.Slot,
	}, "slot", req.Slot)
	if s.metrics != nil {
		s.metrics.IncrementWithdrawalRequest(req.Status.String())
	}
	return req, nil
}

// ListWithdrawalRequests returns the depositor's occupied slots.
func (s *Service) ListWithdrawalRequests(ctx context.Context, vaultID id.VaultID, depositor id.PrincipalID) ([]models.SlotRequest, error) {
	entry, err := s.GetDeposit(ctx, vaultID, depositor)
	if err != nil {
		return nil, err
	}
	return entry.ListRequests(), nil
}
