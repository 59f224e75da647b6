//go:build integration

package tokens_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"custody/internal/vault/directory"
	"custody/internal/vault/ports"
	"custody/internal/vault/tokens"
	id "custody/pkg/domain"
	"custody/pkg/platform/sentinel"
	"custody/pkg/testutil/containers"
)

type PostgresBankSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	dir      *directory.PostgresDirectory
	bank     *tokens.PostgresBank
	alice    id.Address
	bob      id.Address
	custody  id.Address
	receipt  id.Address
}

func TestPostgresBankSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresBankSuite))
}

func (s *PostgresBankSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.dir = directory.NewPostgres(s.postgres.DB)
	s.bank = tokens.NewPostgresBank(s.postgres.DB)
}

func (s *PostgresBankSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "token_accounts", "mint_authorities"))

	s.alice = s.open("alice", "usdc")
	s.bob = s.open("bob", "usdc")
	s.custody = s.open("vault:1", "usdc")
	s.receipt = s.open("alice", "receipt:1")
	s.Require().NoError(s.bank.Fund(ctx, s.alice, 100))
}

func (s *PostgresBankSuite) open(owner id.PrincipalID, asset id.AssetID) id.Address {
	account, err := s.dir.OpenWallet(context.Background(), owner, asset)
	s.Require().NoError(err)
	return account.Address
}

func (s *PostgresBankSuite) balance(addr id.Address) uint64 {
	b, err := s.bank.Balance(context.Background(), addr)
	s.Require().NoError(err)
	return b
}

func (s *PostgresBankSuite) TestTransferAndMint() {
	err := s.bank.RunAtomic(context.Background(), func(ctx context.Context, t ports.TransferService) error {
		if err := t.Transfer(ctx, s.alice, s.custody, 60); err != nil {
			return err
		}
		return t.Mint(ctx, s.receipt, 60, "vault:1")
	})
	s.Require().NoError(err)

	s.Equal(uint64(40), s.balance(s.alice))
	s.Equal(uint64(60), s.balance(s.custody))
	s.Equal(uint64(60), s.balance(s.receipt))
}

func (s *PostgresBankSuite) TestFailedBatchRollsBack() {
	boom := errors.New("ledger write failed")
	err := s.bank.RunAtomic(context.Background(), func(ctx context.Context, t ports.TransferService) error {
		s.Require().NoError(t.Transfer(ctx, s.alice, s.custody, 60))
		s.Require().NoError(t.Mint(ctx, s.receipt, 60, "vault:1"))
		return boom
	})
	s.ErrorIs(err, boom)

	s.Equal(uint64(100), s.balance(s.alice))
	s.Equal(uint64(0), s.balance(s.custody))
	s.Equal(uint64(0), s.balance(s.receipt))

	// the binding went with the rollback
	err = s.bank.RunAtomic(context.Background(), func(ctx context.Context, t ports.TransferService) error {
		return t.Mint(ctx, s.receipt, 1, "vault:9")
	})
	s.NoError(err)
}

func (s *PostgresBankSuite) TestTransferErrors() {
	run := func(fn func(ctx context.Context, t ports.TransferService) error) error {
		return s.bank.RunAtomic(context.Background(), fn)
	}

	s.ErrorIs(run(func(ctx context.Context, t ports.TransferService) error {
		return t.Transfer(ctx, s.alice, s.bob, 101)
	}), tokens.ErrInsufficientFunds)

	s.ErrorIs(run(func(ctx context.Context, t ports.TransferService) error {
		return t.Transfer(ctx, s.alice, s.receipt, 1)
	}), tokens.ErrAssetMismatch)

	s.ErrorIs(run(func(ctx context.Context, t ports.TransferService) error {
		return t.Transfer(ctx, s.alice, "nowhere", 1)
	}), sentinel.ErrNotFound)

	s.ErrorIs(run(func(ctx context.Context, t ports.TransferService) error {
		return t.Transfer(ctx, s.alice, s.bob, 0)
	}), tokens.ErrInvalidAmount)

	s.Equal(uint64(100), s.balance(s.alice))
	s.Equal(uint64(0), s.balance(s.bob))
}

func (s *PostgresBankSuite) TestMintAuthorityIsBound() {
	run := func(fn func(ctx context.Context, t ports.TransferService) error) error {
		return s.bank.RunAtomic(context.Background(), fn)
	}
	s.Require().NoError(run(func(ctx context.Context, t ports.TransferService) error {
		return t.Mint(ctx, s.receipt, 10, "vault:1")
	}))

	s.ErrorIs(run(func(ctx context.Context, t ports.TransferService) error {
		return t.Mint(ctx, s.receipt, 10, "mallory")
	}), tokens.ErrMintAuthority)
	s.ErrorIs(run(func(ctx context.Context, t ports.TransferService) error {
		return t.Burn(ctx, s.receipt, 10, "mallory")
	}), tokens.ErrMintAuthority)
	s.ErrorIs(run(func(ctx context.Context, t ports.TransferService) error {
		return t.Burn(ctx, s.alice, 1, "vault:1")
	}), tokens.ErrMintAuthority)

	s.Require().NoError(run(func(ctx context.Context, t ports.TransferService) error {
		return t.Burn(ctx, s.receipt, 4, "vault:1")
	}))
	s.Equal(uint64(6), s.balance(s.receipt))
}

func (s *PostgresBankSuite) TestFundOverflow() {
	ctx := context.Background()
	s.Require().NoError(s.bank.Fund(ctx, s.bob, math.MaxUint64))
	s.Equal(uint64(math.MaxUint64), s.balance(s.bob))
	s.ErrorIs(s.bank.Fund(ctx, s.bob, 1), tokens.ErrSupplyOverflow)
	s.ErrorIs(s.bank.Fund(ctx, s.bob, 0), tokens.ErrInvalidAmount)
}

func (s *PostgresBankSuite) TestOppositeTransfersDoNotDeadlock() {
	s.Require().NoError(s.bank.Fund(context.Background(), s.bob, 100))

	const rounds = 20
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.NoError(s.bank.RunAtomic(context.Background(), func(ctx context.Context, t ports.TransferService) error {
				return t.Transfer(ctx, s.alice, s.bob, 1)
			}))
		}()
		go func() {
			defer wg.Done()
			s.NoError(s.bank.RunAtomic(context.Background(), func(ctx context.Context, t ports.TransferService) error {
				return t.Transfer(ctx, s.bob, s.alice, 1)
			}))
		}()
	}
	wg.Wait()

	s.Equal(uint64(100), s.balance(s.alice))
	s.Equal(uint64(100), s.balance(s.bob))
}
