package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"custody/internal/platform/kafka/consumer"
	audit "custody/pkg/platform/audit"
)

// ComplianceHandler archives fund movements. These require long retention, so
// archive failures are returned and the message is redelivered.
type ComplianceHandler struct {
	archive Archive
	logger  *slog.Logger
	metrics *Metrics
}

func NewComplianceHandler(archive Archive, logger *slog.Logger, m *Metrics) *ComplianceHandler {
	return &ComplianceHandler{
		archive: archive,
		logger:  logger,
		metrics: m,
	}
}

func (h *ComplianceHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	eventID, event, err := decode(msg)
	if err != nil {
		h.logger.Error("CRITICAL: failed to decode compliance event",
			"key", string(msg.Key),
			"offset", msg.Offset,
			"error", err,
		)
		h.metrics.skipped(string(audit.CategoryCompliance), "malformed")
		// Return nil to commit - malformed messages should not block
		return nil
	}

	// Strict validation for compliance events
	if event.VaultID.IsNil() || event.ActorID.IsNil() {
		h.logger.Error("CRITICAL: compliance event missing vault or actor",
			"event_id", eventID,
			"action", event.Action,
		)
		h.metrics.skipped(string(audit.CategoryCompliance), "malformed")
		return nil
	}
	if event.Amount == 0 && audit.AuditEvent(event.Action) != audit.EventVaultClosed &&
		audit.AuditEvent(event.Action) != audit.EventVaultCreated {
		h.logger.Error("CRITICAL: compliance event without amount",
			"event_id", eventID,
			"action", event.Action,
		)
		h.metrics.skipped(string(audit.CategoryCompliance), "malformed")
		return nil
	}

	event.Category = audit.CategoryCompliance
	if err := h.archive.Archive(ctx, eventID, event); err != nil {
		h.logger.Error("failed to archive compliance event",
			"event_id", eventID,
			"action", event.Action,
			"error", err,
		)
		h.metrics.failed(string(audit.CategoryCompliance))
		return fmt.Errorf("archive compliance event: %w", err)
	}
	h.metrics.archived(string(audit.CategoryCompliance))

	h.logger.Debug("archived compliance event",
		"event_id", eventID,
		"action", event.Action,
		"vault_id", event.VaultID,
	)
	return nil
}
