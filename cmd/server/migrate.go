package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"arty-web/internal/config"
	"arty-web/internal/observability"
	"arty-web/internal/platform/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres session store schema",
		Long: `Applies pending migrations to DATABASE_URL.

The server applies them on start too when SESSION_STORE=postgres; this
command is for running them ahead of a deploy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			obsConfig := observability.LoadConfig()
			logger := observability.NewLogger(obsConfig).Component("migrate")
			ctx := cmd.Context()

			db, err := database.NewConnection(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			applied, err := database.RunMigrations(ctx, db)
			if err != nil {
				return err
			}

			for _, name := range applied {
				logger.Info(ctx).Str("migration", name).Msg("Applied migration")
			}
			logger.Info(ctx).Int("count", len(applied)).Msg("Migrations complete")
			return nil
		},
	}
}
