package ledger

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

const uniqueViolation = "23505"

// PostgresStore persists deposit entries. Amount is NUMERIC(20,0) and the
// request slots are stored inline as a jsonb array.
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

const entryColumns = `vault_id, depositor, amount, receipt_account, requests, created_at, updated_at, version`

func (s *PostgresStore) Find(ctx context.Context, vaultID id.VaultID, depositor id.PrincipalID) (*models.DepositEntry, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM deposits WHERE vault_id = $1 AND depositor = $2`,
		int64(vaultID), depositor.String())
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("deposit entry %d/%s: %w", vaultID, depositor, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find deposit entry: %w", err)
	}
	return e, nil
}

// Save inserts a new entry at version 0 and otherwise performs a
// compare-and-swap on version.
func (s *PostgresStore) Save(ctx context.Context, entry *models.DepositEntry) error {
	if entry == nil {
		return fmt.Errorf("deposit entry is required")
	}
	requests, err := json.Marshal(entry.Requests)
	if err != nil {
		return fmt.Errorf("marshal withdrawal requests: %w", err)
	}
	amount := strconv.FormatUint(entry.Amount, 10)

	if entry.Version == 0 {
		_, err = s.execer(ctx).ExecContext(ctx, `
			INSERT INTO deposits (`+entryColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
		`, int64(entry.VaultID), entry.Depositor.String(), amount, entry.ReceiptAccount.String(),
			requests, entry.CreatedAt, entry.UpdatedAt)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return fmt.Errorf("deposit entry %d/%s: %w", entry.VaultID, entry.Depositor, sentinel.ErrConflict)
			}
			return fmt.Errorf("insert deposit entry: %w", err)
		}
		entry.Version = 1
		return nil
	}

	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE deposits
		SET amount = $3, receipt_account = $4, requests = $5, updated_at = $6, version = version + 1
		WHERE vault_id = $1 AND depositor = $2 AND version = $7
	`, int64(entry.VaultID), entry.Depositor.String(), amount, entry.ReceiptAccount.String(),
		requests, entry.UpdatedAt, entry.Version)
	if err != nil {
		return fmt.Errorf("update deposit entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update deposit entry: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("deposit entry %d/%s version %d: %w", entry.VaultID, entry.Depositor, entry.Version, sentinel.ErrConflict)
	}
	entry.Version++
	return nil
}

func (s *PostgresStore) ListByVault(ctx context.Context, vaultID id.VaultID) ([]*models.DepositEntry, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+entryColumns+` FROM deposits WHERE vault_id = $1 ORDER BY depositor`, int64(vaultID))
	if err != nil {
		return nil, fmt.Errorf("list deposit entries: %w", err)
	}
	defer rows.Close()

	var out []*models.DepositEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deposit entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list deposit entries: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*models.DepositEntry, error) {
	var (
		e         models.DepositEntry
		vaultID   int64
		depositor string
		amount    string
		receipt   string
		requests  []byte
	)
	if err := row.Scan(&vaultID, &depositor, &amount, &receipt, &requests, &e.CreatedAt, &e.UpdatedAt, &e.Version); err != nil {
		return nil, err
	}
	var err error
	if e.Amount, err = strconv.ParseUint(amount, 10, 64); err != nil {
		return nil, fmt.Errorf("decode amount: %w", err)
	}
	if err := json.Unmarshal(requests, &e.Requests); err != nil {
		return nil, fmt.Errorf("decode withdrawal requests: %w", err)
	}
	e.VaultID = id.VaultID(vaultID)
	e.Depositor = id.PrincipalID(depositor)
	e.ReceiptAccount = id.Address(receipt)
	return &e, nil
}
