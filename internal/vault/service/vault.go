package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"custody/internal/vault/models"
	"custody/internal/vault/ports"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
	"custody/pkg/platform/audit"
	"custody/pkg/platform/sentinel"
)

// InitializeRegistry performs the one-time program initialization.
func (s *Service) InitializeRegistry(ctx context.Context, caller id.PrincipalID) (_ *models.Registry, err error) {
	ctx, span := s.startSpan(ctx, "InitializeRegistry")
	defer func() { s.endSpan(span, "initialize_registry", err) }()

	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	unlock, err := s.lock(ctx, registryKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now(ctx)
	reg, err := s.registry.Update(ctx, func(r *models.Registry) error {
		return r.Initialize(now)
	})
	if err != nil {
		return nil, registryErr(err, "failed to initialize registry")
	}

	s.logAudit(ctx, audit.EventRegistryInitialized, audit.Event{ActorID: caller})
	return reg, nil
}

// GetRegistry reads the registry; before initialization it reports Initialized=false.
func (s *Service) GetRegistry(ctx context.Context) (*models.Registry, error) {
	reg, err := s.registry.Get(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registry")
	}
	return reg, nil
}

// CreateVault allocates an id, creates the custody account and stores the vault.
// An allocated id is consumed even when a later step fails.
func (s *Service) CreateVault(ctx context.Context, creator id.PrincipalID, asset id.AssetID, maxDeposit uint64) (_ *models.Vault, err error) {
	ctx, span := s.startSpan(ctx, "CreateVault", attribute.String("asset", asset.String()))
	defer func() { s.endSpan(span, "create_vault", err) }()

	if err := requireCaller(creator); err != nil {
		return nil, err
	}
	if asset.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "asset is required")
	}

	vaultID, err := s.allocateVaultID(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("vault_id", int64(vaultID)))

	now := s.now(ctx)
	vault, err := models.NewVault(vaultID, creator, asset, maxDeposit, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid vault")
	}

	custody := s.directory.DeriveAddress("vault", vaultID.String())
	err = s.directory.CreateAccount(ctx, ports.Account{
		Address: custody,
		Owner:   vault.Authority(),
		Asset:   asset,
	}, creator)
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "vault custody account already exists")
		}
		return nil, collaboratorErr(err, "failed to create vault custody account")
	}
	vault.CustodyAccount = custody

	if err := s.vaults.Create(ctx, vault); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "vault id already in use")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create vault")
	}

	s.logAudit(ctx, audit.EventVaultCreated, audit.Event{
		VaultID: vaultID,
		ActorID: creator,
		Asset:   asset,
		Amount:  maxDeposit,
	})
	if s.metrics != nil {
		s.metrics.IncrementVaultsCreated()
	}
	return vault, nil
}

func (s *Service) allocateVaultID(ctx context.Context) (id.VaultID, error) {
	unlock, err := s.lock(ctx, registryKey)
	if err != nil {
		return 0, err
	}
	defer unlock()

	var allocated id.VaultID
	_, err = s.registry.Update(ctx, func(r *models.Registry) error {
		var err error
		allocated, err = r.AllocateVaultID()
		return err
	})
	if err != nil {
		return 0, registryErr(err, "failed to allocate vault id")
	}
	return allocated, nil
}

func registryErr(err error, message string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, message)
}

func (s *Service) GetVault(ctx context.Context, vaultID id.VaultID) (*models.Vault, error) {
	return s.loadVault(ctx, vaultID)
}

func (s *Service) ListVaults(ctx context.Context) ([]*models.Vault, error) {
	vaults, err := s.vaults.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list vaults")
	}
	return vaults, nil
}

// mutateVault runs one admin-gated transition under the vault's partition lock.
func (s *Service) mutateVault(ctx context.Context, vaultID id.VaultID, apply func(v *models.Vault) error) (*models.Vault, error) {
	unlock, err := s.lock(ctx, vaultKey(vaultID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	vault, err := s.loadVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	if err := apply(vault); err != nil {
		return nil, err
	}
	if err := s.vaults.Update(ctx, vault); err != nil {
		return nil, storeWriteErr(err, "vault")
	}
	return vault, nil
}

// FreezeVault blocks deposits and withdrawals until unfrozen.
func (s *Service) FreezeVault(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID) (_ *models.Vault, err error) {
	ctx, span := s.startSpan(ctx, "FreezeVault", attribute.Int64("vault_id", int64(vaultID)))
	defer func() { s.endSpan(span, "freeze", err) }()

	now := s.now(ctx)
	vault, err := s.mutateVault(ctx, vaultID, func(v *models.Vault) error {
		return v.Freeze(caller, now)
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventVaultFrozen, audit.Event{VaultID: vaultID, ActorID: caller})
	if s.metrics != nil {
		s.metrics.IncrementLifecycle("freeze")
	}
	return vault, nil
}

func (s *Service) UnfreezeVault(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID) (_ *models.Vault, err error) {
	ctx, span := s.startSpan(ctx, "UnfreezeVault", attribute.Int64("vault_id", int64(vaultID)))
	defer func() { s.endSpan(span, "unfreeze", err) }()

	now := s.now(ctx)
	vault, err := s.mutateVault(ctx, vaultID, func(v *models.Vault) error {
		return v.Unfreeze(caller, now)
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventVaultUnfrozen, audit.Event{VaultID: vaultID, ActorID: caller})
	if s.metrics != nil {
		s.metrics.IncrementLifecycle("unfreeze")
	}
	return vault, nil
}

// CloseVault permanently closes the vault. Recorded balances are kept and
// no funds are redistributed.
func (s *Service) CloseVault(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID) (_ *models.Vault, err error) {
	ctx, span := s.startSpan(ctx, "CloseVault", attribute.Int64("vault_id", int64(vaultID)))
	defer func() { s.endSpan(span, "close", err) }()

	now := s.now(ctx)
	vault, err := s.mutateVault(ctx, vaultID, func(v *models.Vault) error {
		return v.Close(caller, now)
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventVaultClosed, audit.Event{VaultID: vaultID, ActorID: caller})
	if s.metrics != nil {
		s.metrics.IncrementLifecycle("close")
	}
	return vault, nil
}

func (s *Service) AddGuardian(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID, guardian id.PrincipalID) (_ *models.Vault, err error) {
	ctx, span := s.startSpan(ctx, "AddGuardian", attribute.Int64("vault_id", int64(vaultID)))
	defer func() { s.endSpan(span, "add_guardian", err) }()

	now := s.now(ctx)
	vault, err := s.mutateVault(ctx, vaultID, func(v *models.Vault) error {
		return v.AddGuardian(caller, guardian, now)
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventGuardianAdded, audit.Event{VaultID: vaultID, ActorID: caller, Subject: guardian})
	if s.metrics != nil {
		s.metrics.IncrementGuardianChange("add")
	}
	return vault, nil
}

func (s *Service) RemoveGuardian(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID, guardian id.PrincipalID) (_ *models.Vault, err error) {
	ctx, span := s.startSpan(ctx, "RemoveGuardian", attribute.Int64("vault_id", int64(vaultID)))
	defer func() { s.endSpan(span, "remove_guardian", err) }()

	now := s.now(ctx)
	vault, err := s.mutateVault(ctx, vaultID, func(v *models.Vault) error {
		return v.RemoveGuardian(caller, guardian, now)
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventGuardianRemoved, audit.Event{VaultID: vaultID, ActorID: caller, Subject: guardian})
	if s.metrics != nil {
		s.metrics.IncrementGuardianChange("remove")
	}
	return vault, nil
}

func (s *Service) SuspendGuardian(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID, guardian id.PrincipalID) (_ *models.Vault, err error) {
	ctx, span := s.startSpan(ctx, "SuspendGuardian", attribute.Int64("vault_id", int64(vaultID)))
	defer func() { s.endSpan(span, "suspend_guardian", err) }()

	now := s.now(ctx)
	vault, err := s.mutateVault(ctx, vaultID, func(v *models.Vault) error {
		return v.SuspendGuardian(caller, guardian, now)
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventGuardianSuspended, audit.Event{VaultID: vaultID, ActorID: caller, Subject: guardian})
	if s.metrics != nil {
		s.metrics.IncrementGuardianChange("suspend")
	}
	return vault, nil
}

func (s *Service) ReinstateGuardian(ctx context.Context, caller id.PrincipalID, vaultID id.VaultID, guardian id.PrincipalID) (_ *models.Vault, err error) {
	ctx, span := s.startSpan(ctx, "ReinstateGuardian", attribute.Int64("vault_id", int64(vaultID)))
	defer func() { s.endSpan(span, "reinstate_guardian", err) }()

	now := s.now(ctx)
	vault, err := s.mutateVault(ctx, vaultID, func(v *models.Vault) error {
		return v.ReinstateGuardian(caller, guardian, now)
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventGuardianReinstated, audit.Event{VaultID: vaultID, ActorID: caller, Subject: guardian})
	if s.metrics != nil {
		s.metrics.IncrementGuardianChange("reinstate")
	}
	return vault, nil
}
