// Package tokens is the token ledger standing in for the external transfer
// service. It moves the custodied asset between accounts and mints or burns
// claim receipts, grouping calls into all-or-nothing batches. Bank keeps
// balances in process memory; PostgresBank keeps them in the database.
package tokens

import (
	"context"
	"fmt"
	"math"
	"sync"

	"custody/internal/vault/ports"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
)

var (
	ErrInsufficientFunds = dErrors.New(dErrors.CodeCapacityExceeded, "insufficient token balance")
	ErrAssetMismatch     = dErrors.New(dErrors.CodeValidation, "accounts hold different assets")
	ErrMintAuthority     = dErrors.New(dErrors.CodeForbidden, "authority cannot mint or burn this asset")
	ErrSupplyOverflow    = dErrors.New(dErrors.CodeCapacityExceeded, "token balance would overflow")
	ErrInvalidAmount     = dErrors.New(dErrors.CodeValidation, "token amount must be positive")
)

// AccountLookup resolves an address to its account metadata.
type AccountLookup interface {
	Lookup(ctx context.Context, addr id.Address) (ports.Account, error)
}

// Bank holds balances per address. The first mint of an asset binds its mint
// authority; later mints and burns of that asset must present the same one.
//
// Batches run one at a time under the bank lock, so a batch observes and
// commits a consistent view.
type Bank struct {
	mu          sync.Mutex
	accounts    AccountLookup
	balances    map[id.Address]uint64
	authorities map[id.AssetID]id.PrincipalID
}

func NewBank(accounts AccountLookup) *Bank {
	return &Bank{
		accounts:    accounts,
		balances:    make(map[id.Address]uint64),
		authorities: make(map[id.AssetID]id.PrincipalID),
	}
}

// RunAtomic implements ports.TokenTx. When fn fails every balance and
// authority it touched is restored.
func (b *Bank) RunAtomic(ctx context.Context, fn func(ctx context.Context, tokens ports.TransferService) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	batch := &batch{
		bank:        b,
		balances:    make(map[id.Address]uint64),
		authorities: make(map[id.AssetID]bool),
	}
	if err := fn(ctx, batch); err != nil {
		batch.rollback()
		return err
	}
	return nil
}

// Fund credits amount of the account's asset out of thin air. It stands in for
// assets arriving from outside the system and is only exposed in dev setups.
func (b *Bank) Fund(ctx context.Context, addr id.Address, amount uint64) error {
	return b.RunAtomic(ctx, func(ctx context.Context, _ ports.TransferService) error {
		if amount == 0 {
			return ErrInvalidAmount
		}
		if _, err := b.lookup(ctx, addr); err != nil {
			return err
		}
		if b.balances[addr] > math.MaxUint64-amount {
			return ErrSupplyOverflow
		}
		b.balances[addr] += amount
		return nil
	})
}

// BalanceOf returns the token balance held at addr.
func (b *Bank) BalanceOf(addr id.Address) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[addr]
}

// Balance is BalanceOf behind the signature shared with PostgresBank.
func (b *Bank) Balance(_ context.Context, addr id.Address) (uint64, error) {
	return b.BalanceOf(addr), nil
}

func (b *Bank) lookup(ctx context.Context, addr id.Address) (ports.Account, error) {
	account, err := b.accounts.Lookup(ctx, addr)
	if err != nil {
		return ports.Account{}, fmt.Errorf("token account %s: %w", addr, err)
	}
	return account, nil
}

// batch journals the prior value of everything it changes.
type batch struct {
	bank        *Bank
	balances    map[id.Address]uint64
	authorities map[id.AssetID]bool
}

func (t *batch) remember(addr id.Address) {
	if _, ok := t.balances[addr]; !ok {
		t.balances[addr] = t.bank.balances[addr]
	}
}

func (t *batch) rollback() {
	for addr, prior := range t.balances {
		if prior == 0 {
			delete(t.bank.balances, addr)
			continue
		}
		t.bank.balances[addr] = prior
	}
	for asset := range t.authorities {
		delete(t.bank.authorities, asset)
	}
}

func (t *batch) Transfer(ctx context.Context, from, to id.Address, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	src, err := t.bank.lookup(ctx, from)
	if err != nil {
		return err
	}
	dst, err := t.bank.lookup(ctx, to)
	if err != nil {
		return err
	}
	if src.Asset != dst.Asset {
		return ErrAssetMismatch
	}
	if t.bank.balances[from] < amount {
		return ErrInsufficientFunds
	}
	if from != to && t.bank.balances[to] > math.MaxUint64-amount {
		return ErrSupplyOverflow
	}
	t.remember(from)
	t.remember(to)
	t.bank.balances[from] -= amount
	t.bank.balances[to] += amount
	return nil
}

func (t *batch) Mint(ctx context.Context, to id.Address, amount uint64, authority id.PrincipalID) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	account, err := t.bank.lookup(ctx, to)
	if err != nil {
		return err
	}
	if err := t.authorize(account.Asset, authority, true); err != nil {
		return err
	}
	if t.bank.balances[to] > math.MaxUint64-amount {
		return ErrSupplyOverflow
	}
	t.remember(to)
	t.bank.balances[to] += amount
	return nil
}

func (t *batch) Burn(ctx context.Context, from id.Address, amount uint64, authority id.PrincipalID) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	account, err := t.bank.lookup(ctx, from)
	if err != nil {
		return err
	}
	if err := t.authorize(account.Asset, authority, false); err != nil {
		return err
	}
	if t.bank.balances[from] < amount {
		return ErrInsufficientFunds
	}
	t.remember(from)
	t.bank.balances[from] -= amount
	return nil
}

// authorize checks authority against the asset's bound mint authority. A mint
// of an unbound asset binds it.
func (t *batch) authorize(asset id.AssetID, authority id.PrincipalID, bind bool) error {
	if authority.IsNil() {
		return ErrMintAuthority
	}
	bound, ok := t.bank.authorities[asset]
	if !ok {
		if !bind {
			return ErrMintAuthority
		}
		t.bank.authorities[asset] = authority
		t.authorities[asset] = true
		return nil
	}
	if bound != authority {
		return ErrMintAuthority
	}
	return nil
}
