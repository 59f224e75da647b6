package tokens

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"custody/internal/vault/directory"
	"custody/internal/vault/ports"
	id "custody/pkg/domain"
)

type BankSuite struct {
	suite.Suite
	ctx     context.Context
	dir     *directory.Directory
	bank    *Bank
	alice   id.Address
	bob     id.Address
	custody id.Address
	receipt id.Address
}

func TestBankSuite(t *testing.T) {
	suite.Run(t, new(BankSuite))
}

func (s *BankSuite) SetupTest() {
	s.ctx = context.Background()
	s.dir = directory.New()
	s.bank = NewBank(s.dir)

	s.alice = s.open("alice", "usdc")
	s.bob = s.open("bob", "usdc")
	s.custody = s.open("vault:1", "usdc")
	s.receipt = s.open("alice", "receipt:1")
	require.NoError(s.T(), s.bank.Fund(s.ctx, s.alice, 100))
}

func (s *BankSuite) open(owner id.PrincipalID, asset id.AssetID) id.Address {
	account, err := s.dir.OpenWallet(s.ctx, owner, asset)
	require.NoError(s.T(), err)
	return account.Address
}

func (s *BankSuite) TestTransferAndMint() {
	err := s.bank.RunAtomic(s.ctx, func(ctx context.Context, tokens ports.TransferService) error {
		if err := tokens.Transfer(ctx, s.alice, s.custody, 60); err != nil {
			return err
		}
		return tokens.Mint(ctx, s.receipt, 60, "vault:1")
	})
	require.NoError(s.T(), err)

	assert.Equal(s.T(), uint64(40), s.bank.BalanceOf(s.alice))
	assert.Equal(s.T(), uint64(60), s.bank.BalanceOf(s.custody))
	assert.Equal(s.T(), uint64(60), s.bank.BalanceOf(s.receipt))
}

func (s *BankSuite) TestFailedBatchRollsBack() {
	boom := errors.New("ledger write failed")
	err := s.bank.RunAtomic(s.ctx, func(ctx context.Context, tokens ports.TransferService) error {
		require.NoError(s.T(), tokens.Transfer(ctx, s.alice, s.custody, 60))
		require.NoError(s.T(), tokens.Mint(ctx, s.receipt, 60, "vault:1"))
		return boom
	})
	assert.ErrorIs(s.T(), err, boom)

	assert.Equal(s.T(), uint64(100), s.bank.BalanceOf(s.alice))
	assert.Equal(s.T(), uint64(0), s.bank.BalanceOf(s.custody))
	assert.Equal(s.T(), uint64(0), s.bank.BalanceOf(s.receipt))

	// the authority binding was rolled back too, so another authority may claim it
	err = s.bank.RunAtomic(s.ctx, func(ctx context.Context, tokens ports.TransferService) error {
		return tokens.Mint(ctx, s.receipt, 1, "vault:9")
	})
	assert.NoError(s.T(), err)
}

func (s *BankSuite) TestTransferErrors() {
	s.Run("insufficient funds", func() {
		err := s.bank.RunAtomic(s.ctx, func(ctx context.Context, tokens ports.TransferService) error {
			return tokens.Transfer(ctx, s.alice, s.bob, 101)
		})
		assert.ErrorIs(s.T(), err, ErrInsufficientFunds)
	})

	s.Run("asset mismatch", func() {
		err := s.bank.RunAtomic(s.ctx, func(ctx context.Context, tokens ports.TransferService) error {
			return tokens.Transfer(ctx, s.alice, s.receipt, 1)
		})
		assert.ErrorIs(s.T(), err, ErrAssetMismatch)
	})

	s.Run("unknown account", func() {
		err := s.bank.RunAtomic(s.ctx, func(ctx context.Context, tokens ports.TransferService) error {
			return tokens.Transfer(ctx, s.alice, "nowhere", 1)
		})
		assert.Error(s.T(), err)
		assert.Equal(s.T(), uint64(100), s.bank.BalanceOf(s.alice))
	})

	s.Run("zero amount", func() {
		err := s.bank.RunAtomic(s.ctx, func(ctx context.Context, tokens ports.TransferService) error {
			return tokens.Transfer(ctx, s.alice, s.bob, 0)
		})
		assert.ErrorIs(s.T(), err, ErrInvalidAmount)
	})
}

func (s *BankSuite) TestMintAuthorityIsBound() {
	require.NoError(s.T(), s.bank.RunAtomic(s.ctx, func(ctx context.Context, tokens ports.TransferService) error {
		return tokens.Mint(ctx, s.receipt, 10, "vault:1")
	}))

	err := s.bank.RunAtomic(s.ctx, func(ctx context.Context, tokens ports.TransferService) error {
		return tokens.Mint(ctx, s.receipt, 10, "mallory")
	})
	assert.ErrorIs(s.T(), err, ErrMintAuthority)

	err = s.bank.RunAtomic(s.ctx, func(ctx context.Context, tokens ports.TransferService) error {
		return tokens.Burn(ctx, s.receipt, 10, "mallory")
	})
	assert.ErrorIs(s.T(), err, ErrMintAuthority)

	require.NoError(s.T(), s.bank.RunAtomic(s.ctx, func(ctx context.Context, tokens ports.TransferService) error {
		return tokens.Burn(ctx, s.receipt, 4, "vault:1")
	}))
	assert.Equal(s.T(), uint64(6), s.bank.BalanceOf(s.receipt))
}

func (s *BankSuite) TestBurnOfUnboundAssetFails() {
	err := s.bank.RunAtomic(s.ctx, func(ctx context.Context, tokens ports.TransferService) error {
		return tokens.Burn(ctx, s.alice, 1, "vault:1")
	})
	assert.ErrorIs(s.T(), err, ErrMintAuthority)
}
