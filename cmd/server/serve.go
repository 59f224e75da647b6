package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	jwttoken "custody/internal/jwt_token"
	"custody/internal/platform/config"
	"custody/internal/platform/httpserver"
	"custody/internal/platform/kafka"
	"custody/internal/platform/logger"
	platformmetrics "custody/internal/platform/metrics"
	"custody/internal/platform/middleware"
	"custody/internal/platform/postgres"
	redisclient "custody/internal/platform/redis"
	"custody/internal/vault/directory"
	"custody/internal/vault/handler"
	vaultmetrics "custody/internal/vault/metrics"
	"custody/internal/vault/models"
	"custody/internal/vault/ports"
	"custody/internal/vault/service"
	ledgerStore "custody/internal/vault/store/ledger"
	"custody/internal/vault/store/lock"
	registryStore "custody/internal/vault/store/registry"
	vaultStore "custody/internal/vault/store/vault"
	"custody/internal/vault/tokens"
	audit "custody/pkg/platform/audit"
	"custody/pkg/platform/audit/publisher"
	"custody/pkg/platform/audit/relay"
	auditmemory "custody/pkg/platform/audit/store/memory"
	auditpostgres "custody/pkg/platform/audit/store/postgres"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the outbox relay",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	srv := httpserver.New(cfg.Server.Addr, a.router())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout, log)
	})
	if a.relay != nil {
		g.Go(func() error {
			log.Info("outbox relay started", "topic", cfg.Kafka.Topic)
			return a.relay.Run(gctx)
		})
	}
	return g.Wait()
}

// accountDirectory and tokenBank are satisfied by both the in-memory and the
// postgres implementations; the storage backend picks one pair.
type accountDirectory interface {
	ports.AccountDirectory
	handler.Wallets
}

type tokenBank interface {
	ports.TokenTx
	handler.Funds
}

// app holds everything serve wires together.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	registry  *prometheus.Registry
	db        *sql.DB
	redis     *redisclient.Client
	producer  *kgo.Client
	publisher *publisher.Publisher
	relay     *relay.Relay

	directory accountDirectory
	bank      tokenBank
	service   *service.Service
	checks    map[string]httpserver.Check
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (_ *app, err error) {
	a := &app{
		cfg:      cfg,
		logger:   log,
		registry: platformmetrics.NewRegistry(),
		checks:   map[string]httpserver.Check{},
	}
	defer func() {
		if err != nil {
			a.close()
		}
	}()
	stores, auditStore, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}
	a.publisher = publisher.NewPublisher(auditStore, publisher.WithLogger(log))

	opts := []service.Option{
		service.WithLogger(log),
		service.WithAuditPublisher(a.publisher),
		service.WithMetrics(vaultmetrics.New(a.registry)),
		service.WithLocalLocks(cfg.Vault.LockShards, cfg.Vault.LockTimeout),
		service.WithCooldownPolicy(models.CooldownPolicy{
			InitiateDelay:  cfg.Vault.WithdrawalInitiateDelay,
			CooldownPeriod: cfg.Vault.WithdrawalCooldown,
		}),
	}

	a.redis, err = redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if a.redis != nil {
		opts = append(opts, service.WithPartitionLocker(lock.NewRedis(a.redis.Client,
			lock.WithTTL(cfg.Vault.LockTTL),
			lock.WithWait(cfg.Vault.LockTimeout),
		)))
		a.checks["redis"] = a.redis.Health
		log.Info("using redis partition locks")
	}

	if err := a.startRelay(ctx, auditStore); err != nil {
		return nil, err
	}

	a.service, err = service.New(stores,
		service.Collaborators{Directory: a.directory, Tokens: a.bank},
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("build vault service: %w", err)
	}
	return a, nil
}

func (a *app) openStores(ctx context.Context) (service.Stores, audit.Store, error) {
	if a.cfg.Storage.Backend == config.BackendMemory {
		a.logger.Warn("using in-memory storage; state is lost on restart")
		dir := directory.New()
		a.directory, a.bank = dir, tokens.NewBank(dir)
		return service.Stores{
			Registry: registryStore.NewInMemory(),
			Vaults:   vaultStore.NewInMemory(),
			Ledger:   ledgerStore.NewInMemory(),
		}, auditmemory.NewInMemoryStore(), nil
	}

	db, err := postgres.Open(ctx, a.cfg.Storage)
	if err != nil {
		return service.Stores{}, nil, err
	}
	a.db = db
	if a.cfg.Storage.MigrateOnStart {
		if err := postgres.Migrate(db, a.logger); err != nil {
			return service.Stores{}, nil, err
		}
	}
	a.checks["postgres"] = func(ctx context.Context) error { return postgres.Health(ctx, db) }
	a.directory, a.bank = directory.NewPostgres(db), tokens.NewPostgresBank(db)
	return service.Stores{
		Registry: registryStore.NewPostgres(db),
		Vaults:   vaultStore.NewPostgres(db),
		Ledger:   ledgerStore.NewPostgres(db),
	}, auditpostgres.New(db), nil
}

// startRelay connects the outbox to Kafka. Only the postgres audit store
// keeps an outbox, so the relay is skipped for in-memory storage.
func (a *app) startRelay(ctx context.Context, auditStore audit.Store) error {
	if !a.cfg.Kafka.Enabled() {
		return nil
	}
	outbox, ok := auditStore.(audit.Outbox)
	if !ok {
		a.logger.Warn("kafka brokers configured but storage has no outbox; relay disabled")
		return nil
	}
	producer, err := kafka.NewProducer(a.cfg.Kafka)
	if err != nil {
		return err
	}
	a.producer = producer
	if err := kafka.EnsureTopic(ctx, producer, a.cfg.Kafka); err != nil {
		return err
	}
	a.relay, err = relay.New(outbox, producer, a.cfg.Kafka.Topic,
		relay.WithInterval(a.cfg.Kafka.RelayInterval),
		relay.WithBatchSize(a.cfg.Kafka.RelayBatch),
		relay.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	a.checks["kafka"] = func(ctx context.Context) error { return kafka.Health(ctx, producer) }
	return nil
}

func (a *app) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.AccessLog(a.logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", httpserver.Health(a.checks))
	r.Handle("/metrics", platformmetrics.Handler(a.registry))

	jwtService := jwttoken.NewJWTService(a.cfg.Server.JWTSigningKey, a.cfg.Server.JWTIssuer, a.cfg.Server.JWTAudience)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(jwttoken.NewMiddlewareAdapter(jwtService), a.logger))
		handler.New(a.service, a.logger).Register(r)

		if a.cfg.Server.DevEndpoints {
			a.logger.Warn("dev wallet endpoints enabled")
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdminToken(a.cfg.Server.AdminToken, a.logger))
				handler.NewDev(a.directory, a.bank, a.logger).Register(r)
			})
		}
	})
	return r
}

func (a *app) close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.producer != nil {
		a.producer.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis client", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close database", "error", err)
		}
	}
}
