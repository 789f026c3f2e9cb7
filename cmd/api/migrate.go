package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/spec-kit/streamhub/internal/config"
	"github.com/spec-kit/streamhub/internal/observability"
	"github.com/spec-kit/streamhub/internal/persistence"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(func(dsn string, cfg *config.Config) error {
			logger, err := observability.NewLogger(cfg.Logger, cfg.App)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			return persistence.MigrateUp(dsn, logger)
		})
	},
}

var migrateDownSteps int

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(func(dsn string, cfg *config.Config) error {
			logger, err := observability.NewLogger(cfg.Logger, cfg.App)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			return persistence.MigrateDown(dsn, migrateDownSteps, logger)
		})
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateDownSteps, "steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(migrateCmd)
}

func withMigrator(run func(dsn string, cfg *config.Config) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("POSTGRES_DSN is required for migrations")
	}
	return run(cfg.Postgres.DSN, cfg)
}
