package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"custody/internal/platform/kafka/consumer"
	audit "custody/pkg/platform/audit"
)

// SecurityHandler archives changes to vault flags and guardians.
type SecurityHandler struct {
	archive Archive
	logger  *slog.Logger
	metrics *Metrics
}

func NewSecurityHandler(archive Archive, logger *slog.Logger, m *Metrics) *SecurityHandler {
	return &SecurityHandler{
		archive: archive,
		logger:  logger,
		metrics: m,
	}
}

func (h *SecurityHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	eventID, event, err := decode(msg)
	if err != nil {
		h.logger.Warn("failed to decode security event",
			"key", string(msg.Key),
			"error", err,
		)
		h.metrics.skipped(string(audit.CategorySecurity), "malformed")
		return nil
	}

	event.Category = audit.CategorySecurity
	if err := h.archive.Archive(ctx, eventID, event); err != nil {
		h.logger.Error("failed to archive security event",
			"event_id", eventID,
			"action", event.Action,
			"error", err,
		)
		h.metrics.failed(string(audit.CategorySecurity))
		return fmt.Errorf("archive security event: %w", err)
	}
	h.metrics.archived(string(audit.CategorySecurity))

	h.logger.Debug("archived security event",
		"event_id", eventID,
		"action", event.Action,
		"actor", event.ActorID,
	)
	return nil
}
