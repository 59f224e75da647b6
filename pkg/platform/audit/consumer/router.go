// Package consumer reads published vault events back from Kafka and files
// them into the audit archive, with handling strictness set per category.
package consumer

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"custody/internal/platform/kafka/consumer"
	audit "custody/pkg/platform/audit"
)

// Archive stores consumed events. Implementations must ignore an eventID they
// already hold, since the relay delivers at least once.
type Archive interface {
	Archive(ctx context.Context, eventID uuid.UUID, event audit.Event) error
}

// CategoryHandler handles messages of one event category.
type CategoryHandler interface {
	Handle(ctx context.Context, msg *consumer.Message) error
}

// Router dispatches messages by the category of their event_type header.
type Router struct {
	handlers map[audit.EventCategory]CategoryHandler
	fallback CategoryHandler
	logger   *slog.Logger
}

// NewRouter creates a category router with an optional fallback handler.
func NewRouter(logger *slog.Logger, fallback CategoryHandler) *Router {
	return &Router{
		handlers: make(map[audit.EventCategory]CategoryHandler),
		fallback: fallback,
		logger:   logger,
	}
}

type defaultOptions struct {
	metrics *Metrics
	breaker *Breaker
}

type Option func(*defaultOptions)

func WithMetrics(m *Metrics) Option {
	return func(o *defaultOptions) {
		o.metrics = m
	}
}

// WithOpsBreaker replaces the breaker guarding best-effort archiving.
func WithOpsBreaker(b *Breaker) Option {
	return func(o *defaultOptions) {
		o.breaker = b
	}
}

// NewDefaultRouter wires the compliance, security and operations handlers to
// one archive.
func NewDefaultRouter(archive Archive, logger *slog.Logger, opts ...Option) *Router {
	var o defaultOptions
	for _, opt := range opts {
		opt(&o)
	}
	r := NewRouter(logger, nil)
	r.Register(audit.CategoryCompliance, NewComplianceHandler(archive, logger, o.metrics))
	r.Register(audit.CategorySecurity, NewSecurityHandler(archive, logger, o.metrics))
	r.Register(audit.CategoryOperations, NewOpsHandler(archive, o.breaker, logger, o.metrics))
	return r
}

func (r *Router) Register(category audit.EventCategory, handler CategoryHandler) {
	r.handlers[category] = handler
}

// Handle routes the message to the handler for its category.
func (r *Router) Handle(ctx context.Context, msg *consumer.Message) error {
	category := audit.AuditEvent(msg.Header("event_type")).Category()
	handler, ok := r.handlers[category]
	if !ok {
		if r.fallback != nil {
			return r.fallback.Handle(ctx, msg)
		}
		r.logger.Warn("no handler for category, skipping message",
			"category", category,
			"key", string(msg.Key),
		)
		return nil // Commit to avoid redelivery
	}
	return handler.Handle(ctx, msg)
}

// decode extracts the event id and event from a relayed message.
func decode(msg *consumer.Message) (uuid.UUID, audit.Event, error) {
	payload, err := audit.DecodePayload(msg.Value)
	if err != nil {
		return uuid.Nil, audit.Event{}, err
	}
	eventID, err := uuid.Parse(payload.ID)
	if err != nil {
		return uuid.Nil, audit.Event{}, err
	}
	return eventID, payload.Event(), nil
}
