package consumer

import (
	"context"
	"log/slog"

	"custody/internal/platform/kafka/consumer"
	audit "custody/pkg/platform/audit"
)

// OpsHandler archives withdrawal request bookkeeping on a best-effort basis.
// While the breaker is open events are dropped without touching the archive.
type OpsHandler struct {
	archive Archive
	breaker *Breaker
	logger  *slog.Logger
	metrics *Metrics
}

func NewOpsHandler(archive Archive, breaker *Breaker, logger *slog.Logger, m *Metrics) *OpsHandler {
	if breaker == nil {
		breaker = NewBreaker(0, 0)
	}
	return &OpsHandler{
		archive: archive,
		breaker: breaker,
		logger:  logger,
		metrics: m,
	}
}

func (h *OpsHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	category := string(audit.CategoryOperations)
	eventID, event, err := decode(msg)
	if err != nil {
		h.logger.Debug("failed to decode ops event",
			"key", string(msg.Key),
			"error", err,
		)
		h.metrics.skipped(category, "malformed")
		return nil
	}

	if !h.breaker.Allow() {
		h.metrics.skipped(category, "breaker_open")
		return nil
	}

	event.Category = audit.CategoryOperations
	if err := h.archive.Archive(ctx, eventID, event); err != nil {
		h.breaker.RecordFailure()
		h.metrics.failed(category)
		h.metrics.breaker(h.breaker.IsOpen())
		h.logger.Debug("failed to archive ops event",
			"event_id", eventID,
			"action", event.Action,
			"error", err,
		)
		// Return nil to commit - ops events are best-effort
		return nil
	}
	h.breaker.RecordSuccess()
	h.metrics.breaker(false)
	h.metrics.archived(category)
	return nil
}
