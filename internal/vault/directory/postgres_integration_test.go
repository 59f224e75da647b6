//go:build integration

package directory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"custody/internal/vault/directory"
	"custody/internal/vault/ports"
	dErrors "custody/pkg/domain-errors"
	"custody/pkg/platform/sentinel"
	"custody/pkg/testutil/containers"
)

type PostgresDirectorySuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	dir      *directory.PostgresDirectory
}

func TestPostgresDirectorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresDirectorySuite))
}

func (s *PostgresDirectorySuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.dir = directory.NewPostgres(s.postgres.DB)
}

func (s *PostgresDirectorySuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "token_accounts"))
}

func (s *PostgresDirectorySuite) TestCreateAndLookup() {
	ctx := context.Background()
	account := ports.Account{Address: s.dir.DeriveAddress("vault", "1"), Owner: "vault:1", Asset: "usdc"}

	s.Require().NoError(s.dir.CreateAccount(ctx, account, "alice"))

	got, err := s.dir.Lookup(ctx, account.Address)
	s.Require().NoError(err)
	s.Equal(account, got)

	s.ErrorIs(s.dir.CreateAccount(ctx, account, "alice"), sentinel.ErrAlreadyUsed)

	_, err = s.dir.Lookup(ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresDirectorySuite) TestSurvivesANewInstance() {
	ctx := context.Background()
	opened, err := s.dir.OpenWallet(ctx, "alice", "usdc")
	s.Require().NoError(err)

	restarted := directory.NewPostgres(s.postgres.DB)
	got, err := restarted.Lookup(ctx, opened.Address)
	s.Require().NoError(err)
	s.Equal(opened, got)

	again, err := restarted.OpenWallet(ctx, "alice", "usdc")
	s.Require().NoError(err)
	s.Equal(opened, again)
}

func (s *PostgresDirectorySuite) TestRejectsIncompleteAccounts() {
	err := s.dir.CreateAccount(context.Background(), ports.Account{Address: "a", Asset: "usdc"}, "alice")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}
