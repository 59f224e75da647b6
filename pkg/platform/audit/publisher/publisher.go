// Package publisher is the event sink handed to domain services.
//
// In sync mode Emit appends straight to the store, so with the outbox store
// and a transaction in context the event commits with the state change. In
// async mode events go through a bounded buffer drained by one goroutine;
// a full buffer drops the event and reports ErrBufferFull.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	id "custody/pkg/domain"
	audit "custody/pkg/platform/audit"
)

var ErrBufferFull = errors.New("audit buffer full")

type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	buffer chan pending
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

type pending struct {
	ctx   context.Context
	event audit.Event
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to async mode with the given capacity.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.buffer = make(chan pending, size)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if p.buffer == nil {
		return p.store.Append(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return p.store.Append(ctx, event)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.buffer <- pending{ctx: context.WithoutCancel(ctx), event: event}:
		return nil
	default:
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit buffer full, dropping event", "action", event.Action)
		}
		return ErrBufferFull
	}
}

func (p *Publisher) List(ctx context.Context, vaultID id.VaultID) ([]audit.Event, error) {
	return p.store.ListByVault(ctx, vaultID)
}

// Close stops accepting buffered events and waits until the buffer is drained.
func (p *Publisher) Close() {
	if p.buffer == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.buffer)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for item := range p.buffer {
		if err := p.store.Append(item.ctx, item.event); err != nil && p.logger != nil {
			p.logger.ErrorContext(item.ctx, "failed to persist audit event", "action", item.event.Action, "error", err)
		}
	}
}
