package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"

	"custody/internal/vault/ports"
	id "custody/pkg/domain"
	"custody/pkg/platform/sentinel"
	txcontext "custody/pkg/platform/tx"
)

// PostgresBank keeps balances and mint authorities next to the vault tables.
// A batch is one database transaction, and postgres stores called with the
// batch context join it, so the ledger write and the token movements commit
// together.
type PostgresBank struct {
	db *sql.DB
}

func NewPostgresBank(db *sql.DB) *PostgresBank {
	return &PostgresBank{db: db}
}

// RunAtomic implements ports.TokenTx.
func (b *PostgresBank) RunAtomic(ctx context.Context, fn func(ctx context.Context, tokens ports.TransferService) error) error {
	return txcontext.Run(ctx, b.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, &pgBatch{tx: tx})
	})
}

func (b *PostgresBank) Fund(ctx context.Context, addr id.Address, amount uint64) error {
	return txcontext.Run(ctx, b.db, func(ctx context.Context, tx *sql.Tx) error {
		if amount == 0 {
			return ErrInvalidAmount
		}
		t := &pgBatch{tx: tx}
		acct, err := t.lockAccount(ctx, addr)
		if err != nil {
			return err
		}
		if acct.balance > math.MaxUint64-amount {
			return ErrSupplyOverflow
		}
		return t.setBalance(ctx, addr, acct.balance+amount)
	})
}

// Balance returns the token balance held at addr, zero for unknown accounts.
func (b *PostgresBank) Balance(ctx context.Context, addr id.Address) (uint64, error) {
	var balance string
	err := b.db.QueryRowContext(ctx,
		`SELECT balance FROM token_accounts WHERE address = $1`, addr.String(),
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read token balance: %w", err)
	}
	return strconv.ParseUint(balance, 10, 64)
}

// pgBatch takes row locks on every account it touches, so concurrent batches
// over the same accounts serialize in the database.
type pgBatch struct {
	tx *sql.Tx
}

type lockedAccount struct {
	asset   id.AssetID
	balance uint64
}

func (t *pgBatch) lockAccount(ctx context.Context, addr id.Address) (lockedAccount, error) {
	var asset, balance string
	err := t.tx.QueryRowContext(ctx,
		`SELECT asset, balance FROM token_accounts WHERE address = $1 FOR UPDATE`, addr.String(),
	).Scan(&asset, &balance)
	if errors.Is(err, sql.ErrNoRows) {
		return lockedAccount{}, fmt.Errorf("token account %s: %w", addr, sentinel.ErrNotFound)
	}
	if err != nil {
		return lockedAccount{}, fmt.Errorf("lock token account %s: %w", addr, err)
	}
	n, err := strconv.ParseUint(balance, 10, 64)
	if err != nil {
		return lockedAccount{}, fmt.Errorf("decode token balance: %w", err)
	}
	return lockedAccount{asset: id.AssetID(asset), balance: n}, nil
}

func (t *pgBatch) setBalance(ctx context.Context, addr id.Address, balance uint64) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE token_accounts SET balance = $2 WHERE address = $1`,
		addr.String(), strconv.FormatUint(balance, 10))
	if err != nil {
		return fmt.Errorf("update token balance: %w", err)
	}
	return nil
}

func (t *pgBatch) Transfer(ctx context.Context, from, to id.Address, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	// lock in address order so two opposite transfers cannot deadlock
	first, second := from, to
	if second < first {
		first, second = second, first
	}
	locked := make(map[id.Address]lockedAccount, 2)
	for _, addr := range []id.Address{first, second} {
		if _, ok := locked[addr]; ok {
			continue
		}
		acct, err := t.lockAccount(ctx, addr)
		if err != nil {
			return err
		}
		locked[addr] = acct
	}
	src, dst := locked[from], locked[to]
	if src.asset != dst.asset {
		return ErrAssetMismatch
	}
	if src.balance < amount {
		return ErrInsufficientFunds
	}
	if from == to {
		return nil
	}
	if dst.balance > math.MaxUint64-amount {
		return ErrSupplyOverflow
	}
	if err := t.setBalance(ctx, from, src.balance-amount); err != nil {
		return err
	}
	return t.setBalance(ctx, to, dst.balance+amount)
}

func (t *pgBatch) Mint(ctx context.Context, to id.Address, amount uint64, authority id.PrincipalID) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	acct, err := t.lockAccount(ctx, to)
	if err != nil {
		return err
	}
	if err := t.authorize(ctx, acct.asset, authority, true); err != nil {
		return err
	}
	if acct.balance > math.MaxUint64-amount {
		return ErrSupplyOverflow
	}
	return t.setBalance(ctx, to, acct.balance+amount)
}

func (t *pgBatch) Burn(ctx context.Context, from id.Address, amount uint64, authority id.PrincipalID) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	acct, err := t.lockAccount(ctx, from)
	if err != nil {
		return err
	}
	if err := t.authorize(ctx, acct.asset, authority, false); err != nil {
		return err
	}
	if acct.balance < amount {
		return ErrInsufficientFunds
	}
	return t.setBalance(ctx, from, acct.balance-amount)
}

// authorize mirrors the in-memory rule: the first mint of an asset binds its
// authority and every later mint or burn must present it.
func (t *pgBatch) authorize(ctx context.Context, asset id.AssetID, authority id.PrincipalID, bind bool) error {
	if authority.IsNil() {
		return ErrMintAuthority
	}
	if bind {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO mint_authorities (asset, authority) VALUES ($1, $2)
			ON CONFLICT (asset) DO NOTHING
		`, asset.String(), authority.String())
		if err != nil {
			return fmt.Errorf("bind mint authority: %w", err)
		}
	}
	var bound string
	err := t.tx.QueryRowContext(ctx,
		`SELECT authority FROM mint_authorities WHERE asset = $1`, asset.String(),
	).Scan(&bound)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMintAuthority
	}
	if err != nil {
		return fmt.Errorf("read mint authority: %w", err)
	}
	if id.PrincipalID(bound) != authority {
		return ErrMintAuthority
	}
	return nil
}
