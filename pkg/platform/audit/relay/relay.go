// Package relay moves outbox rows to Kafka.
//
// Each pass claims a batch of unpublished rows inside a transaction, produces
// them synchronously and marks them published before committing. A produce
// failure rolls the batch back so it is retried on the next pass; consumers
// must tolerate duplicates keyed by the payload id.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "custody/pkg/platform/audit"
)

const (
	defaultInterval  = time.Second
	defaultBatchSize = 100
)

// Producer is the subset of *kgo.Client the relay needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Relay struct {
	outbox    audit.Outbox
	producer  Producer
	topic     string
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func New(outbox audit.Outbox, producer Producer, topic string, opts ...Option) (*Relay, error) {
	if outbox == nil {
		return nil, fmt.Errorf("outbox is required")
	}
	if producer == nil {
		return nil, fmt.Errorf("producer is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	r := &Relay{
		outbox:    outbox,
		producer:  producer,
		topic:     topic,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run relays until ctx is cancelled. Pass errors are logged, not returned.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for {
				n, err := r.RelayOnce(ctx)
				if err != nil {
					if ctx.Err() == nil && r.logger != nil {
						r.logger.ErrorContext(ctx, "outbox relay pass failed", "error", err)
					}
					break
				}
				// keep draining while batches come back full
				if n < r.batchSize {
					break
				}
			}
		}
	}
}

// RelayOnce publishes at most one batch and returns how many rows it relayed.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	var relayed int
	err := r.outbox.RunInTx(ctx, func(ctx context.Context) error {
		entries, err := r.outbox.FetchUnpublished(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		records := make([]*kgo.Record, 0, len(entries))
		ids := make([]string, 0, len(entries))
		for _, e := range entries {
			records = append(records, &kgo.Record{
				Topic: r.topic,
				Key:   []byte(e.AggregateID),
				Value: e.Payload,
				Headers: []kgo.RecordHeader{
					{Key: "event_type", Value: []byte(e.EventType)},
					{Key: "outbox_id", Value: []byte(e.ID)},
				},
				Timestamp: e.CreatedAt,
			})
			ids = append(ids, e.ID)
		}

		if err := r.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
			return fmt.Errorf("produce outbox batch: %w", err)
		}
		if err := r.outbox.MarkPublished(ctx, ids); err != nil {
			return err
		}
		relayed = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if relayed > 0 && r.logger != nil {
		r.logger.DebugContext(ctx, "relayed outbox batch", "count", relayed, "topic", r.topic)
	}
	return relayed, nil
}
