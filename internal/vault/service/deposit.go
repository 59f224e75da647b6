package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"custody/internal/vault/models"
	"custody/internal/vault/policy"
	"custody/internal/vault/ports"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
	"custody/pkg/platform/audit"
	"custody/pkg/platform/sentinel"
)

// DepositRequest moves Amount of the vault asset from SourceAccount into custody.
type DepositRequest struct {
	VaultID       id.VaultID
	Depositor     id.PrincipalID
	Amount        uint64
	SourceAccount id.Address
}

// Deposit validates the request, moves the asset into custody, mints the
// receipt and records the claim. The ledger entry is written inside the token
// batch, so a failed transfer, mint or ledger write leaves nothing behind.
func (s *Service) Deposit(ctx context.Context, req DepositRequest) (_ *models.DepositEntry, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "Deposit",
		attribute.Int64("vault_id", int64(req.VaultID)),
		attribute.Int64("amount", int64(req.Amount)),
	)
	defer func() { s.endSpan(span, "deposit", err) }()

	if err := requireCaller(req.Depositor); err != nil {
		return nil, err
	}
	if req.Amount == 0 {
		return nil, models.ErrInvalidAmount
	}
	if req.SourceAccount.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "source account is required")
	}

	unlock, err := s.lockAll(ctx, vaultKey(req.VaultID), ledgerKey(req.VaultID, req.Depositor))
	if err != nil {
		return nil, err
	}
	defer unlock()

	vault, err := s.loadVault(ctx, req.VaultID)
	if err != nil {
		return nil, err
	}
	if err := vault.CanTransact(); err != nil {
		return nil, err
	}

	now := s.now(ctx)
	entry, err := s.ledger.Find(ctx, req.VaultID, req.Depositor)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		entry, err = models.NewDepositEntry(req.VaultID, req.Depositor, "", now)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid deposit entry")
		}
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load deposit entry")
	}

	if err := entry.CanCredit(req.Amount); err != nil {
		return nil, err
	}
	if err := vault.CheckDepositLimit(entry.Amount, req.Amount); err != nil {
		return nil, err
	}
	if err := s.checkAccount(ctx, req.SourceAccount, req.Depositor, vault.Asset); err != nil {
		return nil, err
	}
	// created outside the token batch and kept if the transfer fails
	receipt, err := s.ensureReceiptAccount(ctx, vault, req.Depositor)
	if err != nil {
		return nil, err
	}
	entry.ReceiptAccount = receipt

	err = s.tokens.RunAtomic(ctx, func(ctx context.Context, tokens ports.TransferService) error {
		if err := tokens.Transfer(ctx, req.SourceAccount, vault.CustodyAccount, req.Amount); err != nil {
			return collaboratorErr(err, "asset transfer failed")
		}
		if err := tokens.Mint(ctx, receipt, req.Amount, vault.Authority()); err != nil {
			return collaboratorErr(err, "receipt mint failed")
		}
		// last step: a failed write rolls the token batch back
		entry.ApplyCredit(req.Amount, now)
		if err := s.ledger.Save(ctx, entry); err != nil {
			return storeWriteErr(err, "deposit entry")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.EventVaultDeposit, audit.Event{
		VaultID: req.VaultID,
		ActorID: req.Depositor,
		Subject: req.Depositor,
		Asset:   vault.Asset,
		Amount:  req.Amount,
	}, "balance", entry.Amount)
	if s.metrics != nil {
		s.metrics.ObserveDeposit(req.Amount, start)
	}
	return entry, nil
}

// checkAccount verifies caller owns addr and that it holds asset.
func (s *Service) checkAccount(ctx context.Context, addr id.Address, caller id.PrincipalID, asset id.AssetID) error {
	account, err := s.directory.Lookup(ctx, addr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeNotFound, "token account not found")
		}
		return collaboratorErr(err, "failed to look up token account")
	}
	if err := policy.AuthorizeAccountOwner(account.Owner, caller); err != nil {
		return err
	}
	if account.Asset != asset {
		return models.ErrAssetMismatch
	}
	return nil
}

// ensureReceiptAccount derives the depositor's receipt account and creates it
// on first use. An existing account must belong to the depositor.
func (s *Service) ensureReceiptAccount(ctx context.Context, vault *models.Vault, depositor id.PrincipalID) (id.Address, error) {
	addr := s.directory.DeriveAddress("receipt", vault.ID.String(), depositor.String())
	account, err := s.directory.Lookup(ctx, addr)
	if err == nil {
		if account.Owner != depositor || account.Asset != vault.ReceiptAsset() {
			return "", models.ErrInvalidReceiptAccount
		}
		return addr, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return "", collaboratorErr(err, "failed to look up receipt account")
	}

	err = s.directory.CreateAccount(ctx, ports.Account{
		Address: addr,
		Owner:   depositor,
		Asset:   vault.ReceiptAsset(),
	}, depositor)
	if err != nil && !errors.Is(err, sentinel.ErrAlreadyUsed) {
		return "", collaboratorErr(err, "failed to create receipt account")
	}
	return addr, nil
}

// BalanceOf returns the depositor's recorded claim, zero if they never deposited.
func (s *Service) BalanceOf(ctx context.Context, vaultID id.VaultID, depositor id.PrincipalID) (uint64, error) {
	if _, err := s.loadVault(ctx, vaultID); err != nil {
		return 0, err
	}
	entry, err := s.ledger.Find(ctx, vaultID, depositor)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, nil
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load deposit entry")
	}
	return entry.Amount, nil
}

func (s *Service) GetDeposit(ctx context.Context, vaultID id.VaultID, depositor id.PrincipalID) (*models.DepositEntry, error) {
	if _, err := s.loadVault(ctx, vaultID); err != nil {
		return nil, err
	}
	return s.loadEntry(ctx, vaultID, depositor)
}

func (s *Service) ListDeposits(ctx context.Context, vaultID id.VaultID) ([]*models.DepositEntry, error) {
	if _, err := s.loadVault(ctx, vaultID); err != nil {
		return nil, err
	}
	entries, err := s.ledger.ListByVault(ctx, vaultID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list deposits")
	}
	return entries, nil
}
