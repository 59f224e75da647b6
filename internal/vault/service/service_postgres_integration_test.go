//go:build integration

package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custody/internal/vault/directory"
	"custody/internal/vault/models"
	"custody/internal/vault/service"
	ledgerStore "custody/internal/vault/store/ledger"
	registryStore "custody/internal/vault/store/registry"
	vaultStore "custody/internal/vault/store/vault"
	"custody/internal/vault/tokens"
	id "custody/pkg/domain"
	"custody/pkg/testutil/containers"
)

// PostgresServiceSuite runs the service with every store and collaborator
// in postgres, the way serve wires the postgres backend.
type PostgresServiceSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	now      time.Time
}

func TestPostgresServiceSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresServiceSuite))
}

func (s *PostgresServiceSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
}

func (s *PostgresServiceSuite) SetupTest() {
	ctx := context.Background()
	s.now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(s.postgres.TruncateTables(ctx, "deposits", "vaults", "token_accounts", "mint_authorities"))
	_, err := s.postgres.DB.ExecContext(ctx,
		`UPDATE vault_registry SET next_vault_id = 0, initialized = FALSE, initialized_at = NULL`)
	s.Require().NoError(err)
}

// newService builds a fresh instance over the shared database, as a restart
// or a second replica would.
func (s *PostgresServiceSuite) newService(override service.Stores) *service.Service {
	db := s.postgres.DB
	stores := service.Stores{
		Registry: registryStore.NewPostgres(db),
		Vaults:   vaultStore.NewPostgres(db),
		Ledger:   ledgerStore.NewPostgres(db),
	}
	if override.Ledger != nil {
		stores.Ledger = override.Ledger
	}
	svc, err := service.New(stores,
		service.Collaborators{
			Directory: directory.NewPostgres(db),
			Tokens:    tokens.NewPostgresBank(db),
		},
		service.WithClock(func() time.Time { return s.now }),
		service.WithCooldownPolicy(models.CooldownPolicy{CooldownPeriod: time.Hour}),
	)
	s.Require().NoError(err)
	return svc
}

// fundedWallet opens dave's usdc wallet and credits it.
func (s *PostgresServiceSuite) fundedWallet(amount uint64) id.Address {
	ctx := context.Background()
	wallet, err := directory.NewPostgres(s.postgres.DB).OpenWallet(ctx, "dave", "usdc")
	s.Require().NoError(err)
	s.Require().NoError(tokens.NewPostgresBank(s.postgres.DB).Fund(ctx, wallet.Address, amount))
	return wallet.Address
}

func (s *PostgresServiceSuite) tokenBalance(addr id.Address) uint64 {
	b, err := tokens.NewPostgresBank(s.postgres.DB).Balance(context.Background(), addr)
	s.Require().NoError(err)
	return b
}

func (s *PostgresServiceSuite) TestCustodySurvivesRestart() {
	ctx := context.Background()
	svc := s.newService(service.Stores{})
	_, err := svc.InitializeRegistry(ctx, "operator")
	s.Require().NoError(err)
	v, err := svc.CreateVault(ctx, "alice", "usdc", 0)
	s.Require().NoError(err)
	wallet := s.fundedWallet(100)

	_, err = svc.Deposit(ctx, service.DepositRequest{VaultID: v.ID, Depositor: "dave", Amount: 60, SourceAccount: wallet})
	s.Require().NoError(err)
	req, err := svc.InitiateWithdrawal(ctx, "dave", v.ID, 40)
	s.Require().NoError(err)
	_, err = svc.AdvanceWithdrawal(ctx, "dave", v.ID, req.Slot)
	s.Require().NoError(err)
	s.now = s.now.Add(time.Hour)
	_, err = svc.AdvanceWithdrawal(ctx, "dave", v.ID, req.Slot)
	s.Require().NoError(err)

	restarted := s.newService(service.Stores{})
	_, err = restarted.Deposit(ctx, service.DepositRequest{VaultID: v.ID, Depositor: "dave", Amount: 10, SourceAccount: wallet})
	s.Require().NoError(err)
	done, err := restarted.CompleteWithdrawal(ctx, "dave", v.ID, req.Slot, wallet)
	s.Require().NoError(err)
	s.Equal(models.WithdrawalStatusCompleted, done.Status)

	balance, err := restarted.BalanceOf(ctx, v.ID, "dave")
	s.Require().NoError(err)
	s.Equal(uint64(30), balance)
	s.Equal(uint64(30), s.tokenBalance(v.CustodyAccount))
	s.Equal(uint64(70), s.tokenBalance(wallet))
}

// failingLedger writes the entry and then reports a failure, so only the
// surrounding transaction can undo the write.
type failingLedger struct {
	*ledgerStore.PostgresStore
}

var errLedgerDown = errors.New("ledger unavailable")

func (l failingLedger) Save(ctx context.Context, entry *models.DepositEntry) error {
	if err := l.PostgresStore.Save(ctx, entry); err != nil {
		return err
	}
	return errLedgerDown
}

func (s *PostgresServiceSuite) TestLedgerFailureRollsBackTokens() {
	ctx := context.Background()
	svc := s.newService(service.Stores{})
	_, err := svc.InitializeRegistry(ctx, "operator")
	s.Require().NoError(err)
	v, err := svc.CreateVault(ctx, "alice", "usdc", 0)
	s.Require().NoError(err)
	wallet := s.fundedWallet(100)

	broken := s.newService(service.Stores{Ledger: failingLedger{ledgerStore.NewPostgres(s.postgres.DB)}})
	_, err = broken.Deposit(ctx, service.DepositRequest{VaultID: v.ID, Depositor: "dave", Amount: 60, SourceAccount: wallet})
	s.ErrorIs(err, errLedgerDown)

	_, err = svc.GetDeposit(ctx, v.ID, "dave")
	s.ErrorIs(err, models.ErrDepositNotFound)
	s.Equal(uint64(100), s.tokenBalance(wallet))
	s.Equal(uint64(0), s.tokenBalance(v.CustodyAccount))
}
