package main

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"custody/internal/platform/config"
	"custody/internal/platform/httpserver"
	"custody/internal/platform/kafka/consumer"
	"custody/internal/platform/logger"
	platformmetrics "custody/internal/platform/metrics"
	"custody/internal/platform/postgres"
	auditconsumer "custody/pkg/platform/audit/consumer"
	auditpostgres "custody/pkg/platform/audit/store/postgres"
)

var (
	consumerGroup string
	metricsAddr   string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Work with published vault events",
}

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Archive published vault events into PostgreSQL",
	RunE:  runConsume,
}

func init() {
	consumeCmd.Flags().StringVar(&consumerGroup, "group", "custody-audit-archive", "Kafka consumer group")
	consumeCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9091", "address serving /metrics; empty disables it")
	eventsCmd.AddCommand(consumeCmd)
}

func runConsume(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if !cfg.Kafka.Enabled() {
		return errors.New("events consume requires kafka.brokers")
	}
	if cfg.Storage.Backend != config.BackendPostgres {
		return errors.New("events consume requires storage.backend=postgres")
	}
	log := logger.New(cfg.Log)
	ctx := cmd.Context()

	db, err := postgres.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.Storage.MigrateOnStart {
		if err := postgres.Migrate(db, log); err != nil {
			return err
		}
	}

	client, err := consumer.NewGroupClient(cfg.Kafka.Brokers, consumerGroup, cfg.Kafka.Topic)
	if err != nil {
		return err
	}
	defer client.Close()

	reg := platformmetrics.NewRegistry()
	router := auditconsumer.NewDefaultRouter(auditpostgres.NewArchive(db), log,
		auditconsumer.WithMetrics(auditconsumer.NewMetrics(reg)),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("archiving vault events", "topic", cfg.Kafka.Topic, "group", consumerGroup)
		return consumer.New(client, router, log).Run(gctx)
	})
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", platformmetrics.Handler(reg))
		srv := httpserver.New(metricsAddr, mux)
		g.Go(func() error {
			return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout, log)
		})
	}
	return g.Wait()
}
