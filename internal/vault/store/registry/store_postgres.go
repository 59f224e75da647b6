package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"custody/internal/vault/models"
	id "custody/pkg/domain"
	txcontext "custody/pkg/platform/tx"
)

// PostgresStore keeps the registry as a single row with id 1.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const selectRegistry = `SELECT next_vault_id, initialized, initialized_at FROM vault_registry WHERE id = 1`

func (s *PostgresStore) Get(ctx context.Context) (*models.Registry, error) {
	var q queryer = s.db
	if tx, ok := txcontext.From(ctx); ok {
		q = tx
	}
	return scanRegistry(q.QueryRowContext(ctx, selectRegistry))
}

// Update locks the registry row for the duration of fn. Allocation is
// serialized across instances sharing the database.
func (s *PostgresStore) Update(ctx context.Context, fn func(*models.Registry) error) (*models.Registry, error) {
	var reg *models.Registry
	err := txcontext.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		reg, err = s.update(ctx, tx, fn)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *PostgresStore) update(ctx context.Context, tx *sql.Tx, fn func(*models.Registry) error) (*models.Registry, error) {
	reg, err := scanRegistry(tx.QueryRowContext(ctx, selectRegistry+` FOR UPDATE`))
	if err != nil {
		return nil, err
	}
	if err := fn(reg); err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO vault_registry (id, next_vault_id, initialized, initialized_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			next_vault_id = EXCLUDED.next_vault_id,
			initialized = EXCLUDED.initialized,
			initialized_at = EXCLUDED.initialized_at
	`, int64(reg.NextVaultID), reg.Initialized, nullTime(reg))
	if err != nil {
		return nil, fmt.Errorf("save registry: %w", err)
	}
	return reg, nil
}

func scanRegistry(row *sql.Row) (*models.Registry, error) {
	var (
		next          int64
		initialized   bool
		initializedAt sql.NullTime
	)
	err := row.Scan(&next, &initialized, &initializedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.Registry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	reg := &models.Registry{
		NextVaultID: id.VaultID(next),
		Initialized: initialized,
	}
	if initializedAt.Valid {
		reg.InitializedAt = initializedAt.Time
	}
	return reg, nil
}

func nullTime(reg *models.Registry) sql.NullTime {
	if reg.InitializedAt.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: reg.InitializedAt, Valid: true}
}
