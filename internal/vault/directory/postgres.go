package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"custody/internal/vault/ports"
	id "custody/pkg/domain"
	"custody/pkg/platform/sentinel"
	txcontext "custody/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresDirectory keeps accounts in token_accounts so custody and receipt
// accounts outlive the process and are shared by every instance.
type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (d *PostgresDirectory) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return d.db
}

func (d *PostgresDirectory) DeriveAddress(seeds ...string) id.Address {
	return DeriveAddress(seeds...)
}

func (d *PostgresDirectory) CreateAccount(ctx context.Context, account ports.Account, payer id.PrincipalID) error {
	if err := validateAccount(account, payer); err != nil {
		return err
	}
	_, err := d.execer(ctx).ExecContext(ctx, `
		INSERT INTO token_accounts (address, owner, asset, payer)
		VALUES ($1, $2, $3, $4)
	`, account.Address.String(), account.Owner.String(), account.Asset.String(), payer.String())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("account %s: %w", account.Address, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert token account: %w", err)
	}
	return nil
}

func (d *PostgresDirectory) Lookup(ctx context.Context, addr id.Address) (ports.Account, error) {
	var owner, asset string
	err := d.execer(ctx).QueryRowContext(ctx,
		`SELECT owner, asset FROM token_accounts WHERE address = $1`, addr.String(),
	).Scan(&owner, &asset)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Account{}, fmt.Errorf("account %s: %w", addr, sentinel.ErrNotFound)
	}
	if err != nil {
		return ports.Account{}, fmt.Errorf("find token account: %w", err)
	}
	return ports.Account{
		Address: addr,
		Owner:   id.PrincipalID(owner),
		Asset:   id.AssetID(asset),
	}, nil
}

func (d *PostgresDirectory) OpenWallet(ctx context.Context, owner id.PrincipalID, asset id.AssetID) (ports.Account, error) {
	return openWallet(ctx, d, owner, asset)
}
