package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	audit "custody/pkg/platform/audit"
)

// ArchiveStore keeps events consumed back from Kafka. Inserts are keyed by
// event id so redelivered messages are absorbed.
type ArchiveStore struct {
	db *sql.DB
}

func NewArchive(db *sql.DB) *ArchiveStore {
	return &ArchiveStore{db: db}
}

func (s *ArchiveStore) Archive(ctx context.Context, eventID uuid.UUID, event audit.Event) error {
	payload, err := json.Marshal(audit.NewPayload(eventID.String(), event))
	if err != nil {
		return fmt.Errorf("marshal archive payload: %w", err)
	}
	var vaultID sql.NullInt64
	if !event.VaultID.IsNil() {
		vaultID = sql.NullInt64{Int64: int64(event.VaultID), Valid: true}
	}
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_archive (event_id, category, action, vault_id, actor_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING
	`, eventID, string(category), event.Action, vaultID, event.ActorID.String(), payload, event.Timestamp)
	if err != nil {
		return fmt.Errorf("insert archive entry: %w", err)
	}
	return nil
}

// CountByCategory reports how many archived events each category holds.
func (s *ArchiveStore) CountByCategory(ctx context.Context) (map[audit.EventCategory]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM audit_archive GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("count archive entries: %w", err)
	}
	defer rows.Close()

	counts := make(map[audit.EventCategory]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scan archive count: %w", err)
		}
		counts[audit.EventCategory(category)] = n
	}
	return counts, rows.Err()
}
