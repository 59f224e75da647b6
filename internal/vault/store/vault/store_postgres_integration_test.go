//go:build integration

package vault_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custody/internal/vault/models"
	"custody/internal/vault/store/vault"
	id "custody/pkg/domain"
	"custody/pkg/platform/sentinel"
	"custody/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *vault.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = vault.NewPostgres(s.postgres.DB)
	s.now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "deposits", "vaults"))
}

func (s *PostgresStoreSuite) newVault(vaultID id.VaultID, maxDeposit uint64) *models.Vault {
	v, err := models.NewVault(vaultID, "alice", "usdc", maxDeposit, s.now)
	s.Require().NoError(err)
	v.CustodyAccount = "custody-1"
	return v
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	v := s.newVault(1, math.MaxUint64)
	s.Require().NoError(v.AddGuardian("alice", "gina", s.now))
	s.Require().NoError(v.SuspendGuardian("alice", "gina", s.now))
	s.Require().NoError(s.store.Create(ctx, v))
	s.Equal(int64(1), v.Version)

	found, err := s.store.FindByID(ctx, 1)
	s.Require().NoError(err)
	s.Equal(uint64(math.MaxUint64), found.MaxDeposit)
	s.Equal(id.Address("custody-1"), found.CustodyAccount)
	s.True(found.Guardians.Contains("gina"))
	s.False(found.Guardians.IsActive("gina"))
	s.True(found.CreatedAt.Equal(s.now))
}

func (s *PostgresStoreSuite) TestUncappedVaultStoresNull() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newVault(1, 0)))

	var isNull bool
	err := s.postgres.DB.QueryRowContext(ctx, `SELECT max_deposit IS NULL FROM vaults WHERE id = 1`).Scan(&isNull)
	s.Require().NoError(err)
	s.True(isNull)

	found, err := s.store.FindByID(ctx, 1)
	s.Require().NoError(err)
	s.Zero(found.MaxDeposit)
}

func (s *PostgresStoreSuite) TestCreateDuplicate() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newVault(1, 0)))
	err := s.store.Create(ctx, s.newVault(1, 0))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *PostgresStoreSuite) TestFindNotFound() {
	_, err := s.store.FindByID(context.Background(), 99)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestStaleUpdateConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newVault(1, 0)))

	first, err := s.store.FindByID(ctx, 1)
	s.Require().NoError(err)
	second, err := s.store.FindByID(ctx, 1)
	s.Require().NoError(err)

	s.Require().NoError(first.Freeze("alice", s.now))
	s.Require().NoError(s.store.Update(ctx, first))
	s.Equal(int64(2), first.Version)

	s.Require().NoError(second.Close("alice", s.now))
	s.ErrorIs(s.store.Update(ctx, second), sentinel.ErrConflict)

	found, err := s.store.FindByID(ctx, 1)
	s.Require().NoError(err)
	s.True(found.Frozen)
	s.False(found.Closed)
}

func (s *PostgresStoreSuite) TestUpdateMissing() {
	err := s.store.Update(context.Background(), s.newVault(7, 0))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListOrdersByID() {
	ctx := context.Background()
	for _, vaultID := range []id.VaultID{3, 1, 2} {
		s.Require().NoError(s.store.Create(ctx, s.newVault(vaultID, 0)))
	}
	vaults, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(vaults, 3)
	for i, v := range vaults {
		s.Equal(id.VaultID(i+1), v.ID)
	}
}
