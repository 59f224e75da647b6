package vault

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/lib/pq"

	"custody/internal/vault/models"
	id "custody/pkg/domain"
	"custody/pkg/platform/sentinel"
	txcontext "custody/pkg/platform/tx"
)

// uniqueViolation is the PostgreSQL SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// PostgresStore persists vaults in PostgreSQL. Guardians are stored as jsonb.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const vaultColumns = `id, creator, asset, max_deposit, frozen, closed, guardians, custody_account, created_at, updated_at, version`

func (s *PostgresStore) Create(ctx context.Context, vault *models.Vault) error {
	if vault == nil {
		return fmt.Errorf("vault is required")
	}
	guardians, err := json.Marshal(vault.Guardians)
	if err != nil {
		return fmt.Errorf("marshal guardians: %w", err)
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO vaults (`+vaultColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)
	`, int64(vault.ID), vault.Creator.String(), vault.Asset.String(), maxDeposit(vault.MaxDeposit),
		vault.Frozen, vault.Closed, guardians, vault.CustodyAccount.String(), vault.CreatedAt, vault.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("vault %d: %w", vault.ID, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create vault: %w", err)
	}
	vault.Version = 1
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, vaultID id.VaultID) (*models.Vault, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `SELECT `+vaultColumns+` FROM vaults WHERE id = $1`, int64(vaultID))
	v, err := scanVault(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("vault %d: %w", vaultID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find vault: %w", err)
	}
	return v, nil
}

// Update writes the mutable columns when the stored version still matches.
func (s *PostgresStore) Update(ctx context.Context, vault *models.Vault) error {
	if vault == nil {
		return fmt.Errorf("vault is required")
	}
	guardians, err := json.Marshal(vault.Guardians)
	if err != nil {
		return fmt.Errorf("marshal guardians: %w", err)
	}
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE vaults
		SET frozen = $2, closed = $3, guardians = $4, updated_at = $5, version = version + 1
		WHERE id = $1 AND version = $6
	`, int64(vault.ID), vault.Frozen, vault.Closed, guardians, vault.UpdatedAt, vault.Version)
	if err != nil {
		return fmt.Errorf("update vault: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update vault: %w", err)
	}
	if n == 0 {
		if _, findErr := s.FindByID(ctx, vault.ID); findErr != nil {
			return findErr
		}
		return fmt.Errorf("vault %d version %d: %w", vault.ID, vault.Version, sentinel.ErrConflict)
	}
	vault.Version++
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Vault, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `SELECT `+vaultColumns+` FROM vaults ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list vaults: %w", err)
	}
	defer rows.Close()

	var out []*models.Vault
	for rows.Next() {
		v, err := scanVault(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vault: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list vaults: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVault(row scanner) (*models.Vault, error) {
	var (
		v         models.Vault
		vaultID   int64
		max       sql.NullString
		guardians []byte
		creator   string
		asset     string
		custody   string
	)
	err := row.Scan(&vaultID, &creator, &asset, &max, &v.Frozen, &v.Closed, &guardians,
		&custody, &v.CreatedAt, &v.UpdatedAt, &v.Version)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(guardians, &v.Guardians); err != nil {
		return nil, fmt.Errorf("decode guardians: %w", err)
	}
	v.ID = id.VaultID(vaultID)
	v.Creator = id.PrincipalID(creator)
	v.Asset = id.AssetID(asset)
	v.CustodyAccount = id.Address(custody)
	if max.Valid {
		v.MaxDeposit, err = strconv.ParseUint(max.String, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode max_deposit: %w", err)
		}
	}
	return &v, nil
}

// maxDeposit stores the "no cap" zero as NULL. Amounts are NUMERIC(20,0) so
// the full uint64 range survives the round trip.
func maxDeposit(v uint64) sql.NullString {
	if v == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: strconv.FormatUint(v, 10), Valid: true}
}
