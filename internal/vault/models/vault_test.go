package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custody/internal/vault/models"
	"custody/internal/vault/policy"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
)

const (
	creator  id.PrincipalID = "creator"
	guardian id.PrincipalID = "guardian"
	stranger id.PrincipalID = "stranger"
)

type VaultSuite struct {
	suite.Suite
	now   time.Time
	vault *models.Vault
}

func TestVaultSuite(t *testing.T) {
	suite.Run(t, new(VaultSuite))
}

func (s *VaultSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	v, err := models.NewVault(1, creator, "usdc", 0, s.now)
	s.Require().NoError(err)
	s.vault = v
}

func (s *VaultSuite) TestConstructionInvariants() {
	s.Run("rejects zero id", func() {
		_, err := models.NewVault(0, creator, "usdc", 0, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("rejects empty creator", func() {
		_, err := models.NewVault(1, "", "usdc", 0, s.now)
		s.Require().Error(err)
	})

	s.Run("rejects empty asset", func() {
		_, err := models.NewVault(1, creator, "", 0, s.now)
		s.Require().Error(err)
	})

	s.Run("starts active with no guardians", func() {
		s.False(s.vault.Frozen)
		s.False(s.vault.Closed)
		s.Equal(0, s.vault.Guardians.Len())
		s.Equal("active", s.vault.Status())
	})
}

// =============================================================================
// Lifecycle transitions
// =============================================================================

func (s *VaultSuite) TestFreezeUnfreeze() {
	s.Run("non-admin cannot freeze", func() {
		err := s.vault.Freeze(stranger, s.now)
		s.ErrorIs(err, policy.ErrUnauthorized)
		s.False(s.vault.Frozen)
	})

	s.Run("creator freezes then unfreezes", func() {
		s.Require().NoError(s.vault.Freeze(creator, s.now))
		s.True(s.vault.Frozen)
		s.ErrorIs(s.vault.CanTransact(), models.ErrVaultFrozen)

		s.ErrorIs(s.vault.Freeze(creator, s.now), models.ErrVaultAlreadyFrozen)

		s.Require().NoError(s.vault.Unfreeze(creator, s.now))
		s.False(s.vault.Frozen)
		s.NoError(s.vault.CanTransact())
	})

	s.Run("unfreeze of an active vault fails", func() {
		err := s.vault.Unfreeze(creator, s.now)
		s.ErrorIs(err, models.ErrVaultNotFrozen)
		s.True(dErrors.HasCode(err, dErrors.CodeLifecycleConflict))
	})

	s.Run("round trip leaves admin set untouched", func() {
		s.Require().NoError(s.vault.AddGuardian(creator, guardian, s.now))
		before := s.vault.Guardians.List()

		s.Require().NoError(s.vault.Freeze(guardian, s.now))
		s.Require().NoError(s.vault.Unfreeze(guardian, s.now))

		s.Equal(before, s.vault.Guardians.List())
		s.Equal(creator, s.vault.Creator)
	})
}

func (s *VaultSuite) TestClose() {
	s.Run("non-admin cannot close", func() {
		s.ErrorIs(s.vault.Close(stranger, s.now), policy.ErrUnauthorized)
		s.False(s.vault.Closed)
	})

	s.Run("frozen vault can be closed", func() {
		s.Require().NoError(s.vault.Freeze(creator, s.now))
		s.Require().NoError(s.vault.Close(creator, s.now))
		s.True(s.vault.Closed)
		s.Equal("closed", s.vault.Status())
	})

	s.Run("closed is terminal", func() {
		s.ErrorIs(s.vault.Close(creator, s.now), models.ErrVaultAlreadyClosed)
		s.ErrorIs(s.vault.Freeze(creator, s.now), models.ErrVaultClosed)
		s.ErrorIs(s.vault.Unfreeze(creator, s.now), models.ErrVaultClosed)
		s.ErrorIs(s.vault.AddGuardian(creator, guardian, s.now), models.ErrVaultClosed)
		s.ErrorIs(s.vault.CanTransact(), models.ErrVaultClosed)
		s.True(s.vault.Closed)
	})

	s.Run("authorization is checked before lifecycle", func() {
		s.ErrorIs(s.vault.Freeze(stranger, s.now), policy.ErrUnauthorized)
	})
}

// =============================================================================
// Guardians
// =============================================================================

func (s *VaultSuite) TestGuardians() {
	s.Run("creator cannot be added as guardian", func() {
		s.ErrorIs(s.vault.AddGuardian(creator, creator, s.now), models.ErrAlreadyGuardian)
	})

	s.Run("guardian becomes admin", func() {
		s.Require().NoError(s.vault.AddGuardian(creator, guardian, s.now))
		s.True(s.vault.IsAdmin(guardian))
		s.ErrorIs(s.vault.AddGuardian(guardian, guardian, s.now), models.ErrAlreadyGuardian)
	})

	s.Run("capacity is three", func() {
		s.Require().NoError(s.vault.AddGuardian(guardian, "g2", s.now))
		s.Require().NoError(s.vault.AddGuardian(guardian, "g3", s.now))
		err := s.vault.AddGuardian(creator, "g4", s.now)
		s.ErrorIs(err, models.ErrGuardianListFull)
		s.True(dErrors.HasCode(err, dErrors.CodeCapacityExceeded))
		s.Equal(models.MaxGuardians, s.vault.Guardians.Len())
	})

	s.Run("suspended guardian loses admin rights but keeps its slot", func() {
		s.Require().NoError(s.vault.SuspendGuardian(creator, "g3", s.now))
		s.False(s.vault.IsAdmin("g3"))
		s.ErrorIs(s.vault.Freeze("g3", s.now), policy.ErrUnauthorized)
		s.ErrorIs(s.vault.SuspendGuardian(creator, "g3", s.now), models.ErrGuardianAlreadySuspended)
		s.Equal(models.MaxGuardians, s.vault.Guardians.Len())

		s.Require().NoError(s.vault.ReinstateGuardian(creator, "g3", s.now))
		s.True(s.vault.IsAdmin("g3"))
		s.ErrorIs(s.vault.ReinstateGuardian(creator, "g3", s.now), models.ErrGuardianNotSuspended)
	})

	s.Run("remove frees a slot", func() {
		s.Require().NoError(s.vault.RemoveGuardian(creator, "g2", s.now))
		s.False(s.vault.IsAdmin("g2"))
		s.ErrorIs(s.vault.RemoveGuardian(creator, "g2", s.now), models.ErrGuardianNotFound)
		s.NoError(s.vault.AddGuardian(creator, "g4", s.now))
	})

	s.Run("stranger cannot manage guardians", func() {
		s.ErrorIs(s.vault.AddGuardian(stranger, "g5", s.now), policy.ErrUnauthorized)
		s.ErrorIs(s.vault.RemoveGuardian(stranger, guardian, s.now), policy.ErrUnauthorized)
		s.ErrorIs(s.vault.SuspendGuardian(stranger, guardian, s.now), policy.ErrUnauthorized)
	})
}

func (s *VaultSuite) TestDepositLimit() {
	v, err := models.NewVault(2, creator, "usdc", 100, s.now)
	s.Require().NoError(err)

	s.NoError(v.CheckDepositLimit(0, 100))
	s.NoError(v.CheckDepositLimit(60, 40))
	s.ErrorIs(v.CheckDepositLimit(60, 41), models.ErrDepositLimitExceeded)
	s.ErrorIs(v.CheckDepositLimit(0, 101), models.ErrDepositLimitExceeded)

	s.NoError(s.vault.CheckDepositLimit(1<<62, 1<<62), "zero cap means unlimited")
}

func (s *VaultSuite) TestCloneAndJSON() {
	s.Require().NoError(s.vault.AddGuardian(creator, guardian, s.now))

	clone := s.vault.Clone()
	s.Require().NoError(clone.RemoveGuardian(creator, guardian, s.now))
	s.True(s.vault.IsAdmin(guardian), "clone must not share guardian storage")

	raw, err := json.Marshal(s.vault)
	s.Require().NoError(err)
	var decoded models.Vault
	s.Require().NoError(json.Unmarshal(raw, &decoded))
	s.Equal(s.vault.Guardians.List(), decoded.Guardians.List())
}

func TestGuardianSetRejectsOversizedInput(t *testing.T) {
	_, err := models.NewGuardianSet(
		models.Guardian{Principal: "a"},
		models.Guardian{Principal: "b"},
		models.Guardian{Principal: "c"},
		models.Guardian{Principal: "d"},
	)
	if err == nil {
		t.Fatal("expected guardian list full")
	}

	var set models.GuardianSet
	if err := json.Unmarshal([]byte(`[{"principal":"a"},{"principal":"a"}]`), &set); err == nil {
		t.Fatal("expected duplicate guardian to be rejected")
	}
}
