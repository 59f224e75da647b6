package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"custody/internal/platform/kafka/consumer"
	audit "custody/pkg/platform/audit"
	"custody/pkg/platform/audit/store/memory"
)

type failingArchive struct{}

func (failingArchive) Archive(context.Context, uuid.UUID, audit.Event) error {
	return errors.New("archive offline")
}

type RouterSuite struct {
	suite.Suite
	archive *memory.InMemoryStore
	router  *Router
	now     time.Time
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.archive = memory.NewInMemoryStore()
	s.router = NewDefaultRouter(s.archive, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *RouterSuite) message(eventID uuid.UUID, event audit.Event) *consumer.Message {
	event.Timestamp = s.now
	raw, err := json.Marshal(audit.NewPayload(eventID.String(), event))
	require.NoError(s.T(), err)
	return &consumer.Message{
		Topic:   "custody.events",
		Key:     []byte(event.VaultID.String()),
		Value:   raw,
		Headers: map[string]string{"event_type": event.Action},
	}
}

func (s *RouterSuite) archived() []audit.Event {
	events, err := s.archive.ListByVault(context.Background(), 4)
	require.NoError(s.T(), err)
	return events
}

func (s *RouterSuite) TestRoutesByCategoryAndDeduplicates() {
	ctx := context.Background()
	deposit := s.message(uuid.New(), audit.Event{
		Action: string(audit.EventVaultDeposit), VaultID: 4, ActorID: "dave", Amount: 25,
	})
	frozen := s.message(uuid.New(), audit.Event{
		Action: string(audit.EventVaultFrozen), VaultID: 4, ActorID: "alice",
	})
	initiated := s.message(uuid.New(), audit.Event{
		Action: string(audit.EventWithdrawalInitiated), VaultID: 4, ActorID: "dave", Amount: 5, Slot: 1,
	})

	for _, msg := range []*consumer.Message{deposit, frozen, initiated, deposit} {
		require.NoError(s.T(), s.router.Handle(ctx, msg))
	}

	events := s.archived()
	require.Len(s.T(), events, 3)
	assert.Equal(s.T(), audit.CategoryCompliance, events[0].Category)
	assert.Equal(s.T(), audit.CategorySecurity, events[1].Category)
	assert.Equal(s.T(), audit.CategoryOperations, events[2].Category)
	assert.Equal(s.T(), 1, events[2].Slot)
}

func (s *RouterSuite) TestMalformedMessagesAreSkipped() {
	ctx := context.Background()
	bad := &consumer.Message{
		Value:   []byte(`not json`),
		Headers: map[string]string{"event_type": string(audit.EventVaultDeposit)},
	}
	require.NoError(s.T(), s.router.Handle(ctx, bad))

	noAmount := s.message(uuid.New(), audit.Event{
		Action: string(audit.EventVaultDeposit), VaultID: 4, ActorID: "dave",
	})
	require.NoError(s.T(), s.router.Handle(ctx, noAmount))
	assert.Empty(s.T(), s.archived())
}

func (s *RouterSuite) TestArchiveFailurePolicyByCategory() {
	ctx := context.Background()
	router := NewDefaultRouter(failingArchive{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := router.Handle(ctx, s.message(uuid.New(), audit.Event{
		Action: string(audit.EventVaultWithdrawal), VaultID: 4, ActorID: "dave", Amount: 5,
	}))
	assert.Error(s.T(), err, "compliance events are redelivered")

	err = router.Handle(ctx, s.message(uuid.New(), audit.Event{
		Action: string(audit.EventGuardianAdded), VaultID: 4, ActorID: "alice", Subject: "gina",
	}))
	assert.Error(s.T(), err, "security events are redelivered")

	err = router.Handle(ctx, s.message(uuid.New(), audit.Event{
		Action: string(audit.EventWithdrawalCancelled), VaultID: 4, ActorID: "dave", Amount: 5,
	}))
	assert.NoError(s.T(), err, "ops events are best effort")
}

func (s *RouterSuite) TestFallback() {
	var hit bool
	router := NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)), consumer.HandlerFunc(func(context.Context, *consumer.Message) error {
		hit = true
		return nil
	}))
	require.NoError(s.T(), router.Handle(context.Background(), &consumer.Message{
		Headers: map[string]string{"event_type": "unknown"},
	}))
	assert.True(s.T(), hit)
}

type countingArchive struct {
	calls int
	err   error
}

func (a *countingArchive) Archive(context.Context, uuid.UUID, audit.Event) error {
	a.calls++
	return a.err
}

func (s *RouterSuite) TestOpsBreakerPausesArchiving() {
	ctx := context.Background()
	clock := s.now
	breaker := NewBreaker(2, time.Minute)
	breaker.now = func() time.Time { return clock }
	archive := &countingArchive{err: errors.New("archive offline")}
	m := NewMetrics(prometheus.NewRegistry())
	router := NewDefaultRouter(archive, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithMetrics(m), WithOpsBreaker(breaker))

	cancelled := func() *consumer.Message {
		return s.message(uuid.New(), audit.Event{
			Action: string(audit.EventWithdrawalCancelled), VaultID: 4, ActorID: "dave", Amount: 5,
		})
	}
	for range 4 {
		require.NoError(s.T(), router.Handle(ctx, cancelled()))
	}
	assert.Equal(s.T(), 2, archive.calls, "breaker opens after two failures")
	assert.Equal(s.T(), float64(2), testutil.ToFloat64(m.Skipped.WithLabelValues(string(audit.CategoryOperations), "breaker_open")))
	assert.Equal(s.T(), float64(1), testutil.ToFloat64(m.BreakerState))

	clock = clock.Add(time.Minute)
	archive.err = nil
	require.NoError(s.T(), router.Handle(ctx, cancelled()))
	assert.Equal(s.T(), 3, archive.calls)
	assert.Equal(s.T(), float64(0), testutil.ToFloat64(m.BreakerState))
	assert.Equal(s.T(), float64(1), testutil.ToFloat64(m.Archived.WithLabelValues(string(audit.CategoryOperations))))
}

func TestBreaker(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	b := NewBreaker(3, 10*time.Second)
	b.now = func() time.Time { return now }

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	assert.True(t, b.Allow(), "success resets the failure count")

	b.RecordFailure()
	assert.True(t, b.IsOpen())
	assert.False(t, b.Allow())

	now = now.Add(10 * time.Second)
	assert.True(t, b.Allow())
	assert.False(t, b.IsOpen())
}
