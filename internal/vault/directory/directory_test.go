package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custody/internal/vault/ports"
	dErrors "custody/pkg/domain-errors"
	"custody/pkg/platform/sentinel"
)

func TestDeriveAddress(t *testing.T) {
	t.Run("same seeds give the same address", func(t *testing.T) {
		assert.Equal(t, DeriveAddress("vault", "1"), DeriveAddress("vault", "1"))
	})

	t.Run("seed boundaries matter", func(t *testing.T) {
		assert.NotEqual(t, DeriveAddress("receipt", "1", "2"), DeriveAddress("receipt", "12"))
		assert.NotEqual(t, DeriveAddress("vault", "1"), DeriveAddress("vault", "2"))
	})
}

func TestCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	d := New()
	account := ports.Account{Address: d.DeriveAddress("vault", "1"), Owner: "vault:1", Asset: "usdc"}

	require.NoError(t, d.CreateAccount(ctx, account, "alice"))

	got, err := d.Lookup(ctx, account.Address)
	require.NoError(t, err)
	assert.Equal(t, account, got)

	err = d.CreateAccount(ctx, account, "alice")
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)

	_, err = d.Lookup(ctx, "missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestCreateAccountValidation(t *testing.T) {
	d := New()
	err := d.CreateAccount(context.Background(), ports.Account{Address: "a", Owner: "alice"}, "alice")
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))

	err = d.CreateAccount(context.Background(), ports.Account{Address: "a", Owner: "alice", Asset: "usdc"}, "")
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
}

func TestOpenWalletIsIdempotent(t *testing.T) {
	ctx := context.Background()
	d := New()

	first, err := d.OpenWallet(ctx, "alice", "usdc")
	require.NoError(t, err)
	second, err := d.OpenWallet(ctx, "alice", "usdc")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = d.OpenWallet(ctx, "alice", "eurc")
	require.NoError(t, err)
	assert.Len(t, d.ListByOwner(ctx, "alice"), 2)
	assert.Empty(t, d.ListByOwner(ctx, "bob"))
}
