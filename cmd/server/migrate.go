package main

import (
	"errors"

	"github.com/spf13/cobra"

	"custody/internal/platform/config"
	"custody/internal/platform/logger"
	"custody/internal/platform/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down]",
	Short: "Apply or roll back the PostgreSQL schema",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if cfg.Storage.Backend != config.BackendPostgres {
		return errors.New("migrate requires storage.backend=postgres")
	}
	log := logger.New(cfg.Log)

	db, err := postgres.Open(cmd.Context(), cfg.Storage)
	if err != nil {
		return err
	}
	defer db.Close()

	direction := "up"
	if len(args) == 1 {
		direction = args[0]
	}
	switch direction {
	case "up":
		return postgres.Migrate(db, log)
	case "down":
		return postgres.MigrateDown(db, log)
	default:
		return errors.New(`direction must be "up" or "down"`)
	}
}
