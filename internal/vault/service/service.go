// Package service orchestrates the custody core: registry, vault lifecycle,
// deposit ledger and withdrawal queue.
//
// Every mutation runs under a partition lock (one vault's flags, or one
// depositor's ledger entry) and commits its own state only after the
// transfer collaborator has succeeded. A failure at any step leaves no
// partial state behind.
//
// Ledger operations that depend on the vault's flags also hold the vault
// lock, taken before the ledger lock, so a freeze or close never returns
// while such an operation is still committing.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"custody/internal/vault/metrics"
	"custody/internal/vault/models"
	"custody/internal/vault/ports"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
	"custody/pkg/platform/audit"
	"custody/pkg/platform/sentinel"
	"custody/pkg/requestcontext"
)

const tracerName = "custody/internal/vault/service"

// Service orchestrates vault custody operations.
type Service struct {
	registry  ports.RegistryStore
	vaults    ports.VaultStore
	ledger    ports.LedgerStore
	directory ports.AccountDirectory
	tokens    ports.TokenTx
	locker    ports.PartitionLocker

	cooldown       models.CooldownPolicy
	logger         *slog.Logger
	auditPublisher ports.AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	clock          func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPartitionLocker replaces the in-process sharded locker, e.g. with the
// Redis lock when several instances share one database.
func WithPartitionLocker(locker ports.PartitionLocker) Option {
	return func(s *Service) {
		if locker != nil {
			s.locker = locker
		}
	}
}

// WithLocalLocks sizes the in-process sharded locker.
func WithLocalLocks(shards int, timeout time.Duration) Option {
	return func(s *Service) {
		s.locker = newShardedLocker(shards, timeout)
	}
}

func WithCooldownPolicy(p models.CooldownPolicy) Option {
	return func(s *Service) {
		s.cooldown = p
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithClock overrides the time source. Without it the request-scoped time
// from requestcontext is used.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// Stores is the persistence bundle the service needs.
type Stores struct {
	Registry ports.RegistryStore
	Vaults   ports.VaultStore
	Ledger   ports.LedgerStore
}

// Collaborators are the external systems that own accounts and assets.
type Collaborators struct {
	Directory ports.AccountDirectory
	Tokens    ports.TokenTx
}

func New(stores Stores, collab Collaborators, opts ...Option) (*Service, error) {
	if stores.Registry == nil {
		return nil, errors.New("registry store is required")
	}
	if stores.Vaults == nil {
		return nil, errors.New("vault store is required")
	}
	if stores.Ledger == nil {
		return nil, errors.New("ledger store is required")
	}
	if collab.Directory == nil {
		return nil, errors.New("account directory is required")
	}
	if collab.Tokens == nil {
		return nil, errors.New("token transfer service is required")
	}
	s := &Service{
		registry:  stores.Registry,
		vaults:    stores.Vaults,
		ledger:    stores.Ledger,
		directory: collab.Directory,
		tokens:    collab.Tokens,
		locker:    newShardedLocker(defaultLockShards, defaultLockTimeout),
		cooldown:  models.DefaultCooldownPolicy(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CooldownPolicy exposes the timing constants, e.g. for ready-at hints in responses.
func (s *Service) CooldownPolicy() models.CooldownPolicy {
	return s.cooldown
}

func (s *Service) now(ctx context.Context) time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return requestcontext.Now(ctx)
}

func (s *Service) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "vault."+op, trace.WithAttributes(attrs...))
}

// endSpan closes span, recording err and counting the failure by code.
func (s *Service) endSpan(span trace.Span, op string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		if s.metrics != nil {
			s.metrics.IncrementFailure(op, string(dErrors.CodeOf(err)))
		}
	}
	span.End()
}

func (s *Service) lock(ctx context.Context, key string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return nil, lockErr(err)
	}
	return unlock, nil
}

func lockErr(err error) error {
	if dErrors.CodeOf(err) == dErrors.CodeTimeout {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to acquire partition lock")
}

// multiLocker takes several partitions at once. The in-process locker
// implements it because two keys can share a shard.
type multiLocker interface {
	LockAll(ctx context.Context, keys ...string) (func(), error)
}

// lockAll holds every key until the returned unlock runs. Callers pass keys
// in vault then ledger order; lockers without LockAll take them in that
// order and release what they hold when a later key fails.
func (s *Service) lockAll(ctx context.Context, keys ...string) (func(), error) {
	if ml, ok := s.locker.(multiLocker); ok {
		unlock, err := ml.LockAll(ctx, keys...)
		if err != nil {
			return nil, lockErr(err)
		}
		return unlock, nil
	}
	unlocks := make([]func(), 0, len(keys))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, key := range keys {
		unlock, err := s.lock(ctx, key)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

// logAudit stamps action onto e, logs it and emits it to the event sink.
func (s *Service) logAudit(ctx context.Context, action audit.AuditEvent, e audit.Event, attrs ...any) {
	e.Action = string(action)
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now(ctx)
	}
	attrs = append(attrs, "vault_id", e.VaultID, "actor", e.ActorID)
	if !e.Subject.IsNil() {
		attrs = append(attrs, "subject", e.Subject)
	}
	if e.Amount > 0 {
		attrs = append(attrs, "amount", e.Amount)
	}
	ports.LogAudit(ctx, s.logger, s.auditPublisher, e, attrs...)
}

func (s *Service) loadVault(ctx context.Context, vaultID id.VaultID) (*models.Vault, error) {
	v, err := s.vaults.FindByID(ctx, vaultID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.ErrVaultNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load vault")
	}
	return v, nil
}

func (s *Service) loadEntry(ctx context.Context, vaultID id.VaultID, depositor id.PrincipalID) (*models.DepositEntry, error) {
	entry, err := s.ledger.Find(ctx, vaultID, depositor)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.ErrDepositNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load deposit entry")
	}
	return entry, nil
}

// storeWriteErr maps a failed optimistic write onto the domain taxonomy.
func storeWriteErr(err error, what string) error {
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.Wrap(err, dErrors.CodeConflict, fmt.Sprintf("%s was modified concurrently, retry", what))
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("failed to save %s", what))
}

// collaboratorErr keeps coded collaborator errors and wraps the rest.
func collaboratorErr(err error, message string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, message)
}

func requireCaller(caller id.PrincipalID) error {
	if caller.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller principal is required")
	}
	return nil
}
