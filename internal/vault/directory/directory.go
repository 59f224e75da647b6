// Package directory derives content-addressed account locations and records
// who owns them, in process memory or in postgres.
package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"custody/internal/vault/ports"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
	"custody/pkg/platform/sentinel"
)

// namespace scopes derived addresses so they never collide with uuids minted
// for other purposes.
var namespace = uuid.MustParse("6f1d3a52-1c1e-4b8e-9a57-0f6a3c9d2e10")

// Directory implements ports.AccountDirectory in memory.
type Directory struct {
	mu       sync.RWMutex
	accounts map[id.Address]record
}

type record struct {
	account ports.Account
	payer   id.PrincipalID
}

func New() *Directory {
	return &Directory{accounts: make(map[id.Address]record)}
}

// DeriveAddress hashes the seed tuple into a uuid v5. The same seeds always
// yield the same address.
func DeriveAddress(seeds ...string) id.Address {
	return id.Address(uuid.NewSHA1(namespace, []byte(strings.Join(seeds, "\x00"))).String())
}

func (d *Directory) DeriveAddress(seeds ...string) id.Address {
	return DeriveAddress(seeds...)
}

func (d *Directory) CreateAccount(_ context.Context, account ports.Account, payer id.PrincipalID) error {
	if err := validateAccount(account, payer); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.accounts[account.Address]; ok {
		return fmt.Errorf("account %s: %w", account.Address, sentinel.ErrAlreadyUsed)
	}
	d.accounts[account.Address] = record{account: account, payer: payer}
	return nil
}

func validateAccount(account ports.Account, payer id.PrincipalID) error {
	if account.Address.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "account address is required")
	}
	if account.Owner.IsNil() || account.Asset.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "account owner and asset are required")
	}
	if payer.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "account payer is required")
	}
	return nil
}

func (d *Directory) Lookup(_ context.Context, addr id.Address) (ports.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.accounts[addr]
	if !ok {
		return ports.Account{}, fmt.Errorf("account %s: %w", addr, sentinel.ErrNotFound)
	}
	return rec.account, nil
}

// OpenWallet creates owner's personal account for asset at the address
// derived from ("wallet", owner, asset). Opening twice returns the same account.
func (d *Directory) OpenWallet(ctx context.Context, owner id.PrincipalID, asset id.AssetID) (ports.Account, error) {
	return openWallet(ctx, d, owner, asset)
}

func openWallet(ctx context.Context, dir ports.AccountDirectory, owner id.PrincipalID, asset id.AssetID) (ports.Account, error) {
	account := ports.Account{
		Address: DeriveAddress("wallet", owner.String(), asset.String()),
		Owner:   owner,
		Asset:   asset,
	}
	err := dir.CreateAccount(ctx, account, owner)
	if errors.Is(err, sentinel.ErrAlreadyUsed) {
		return dir.Lookup(ctx, account.Address)
	}
	if err != nil {
		return ports.Account{}, err
	}
	return account, nil
}

// ListByOwner returns owner's accounts ordered by address.
func (d *Directory) ListByOwner(_ context.Context, owner id.PrincipalID) []ports.Account {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []ports.Account
	for _, rec := range d.accounts {
		if rec.account.Owner == owner {
			out = append(out, rec.account)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}
