package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authapi/auth-service/internal/infrastructure/config"
	"github.com/authapi/auth-service/internal/infrastructure/db/postgres"
)

// NewMigrateCmd creates the migrate subcommand with up and down children.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres schema",
		Long:  `Apply or roll back the embedded migrations against DATABASE_URL.`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, (*postgres.Migrator).Up)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (drops the users table)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, (*postgres.Migrator).Down)
		},
	})
	return cmd
}

func runMigrate(cmd *cobra.Command, step func(*postgres.Migrator) error) error {
	pg, err := config.LoadPostgres(cmd.Context())
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	cmd.Println("Connecting to database...")
	m, err := postgres.NewMigrator(pg.URL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "open migrator").Wrap(err)
	}
	defer func() { _ = m.Close() }()

	cmd.Printf("Running migrate %s...\n", cmd.Name())
	if err := step(m); err != nil {
		return oops.Code("MIGRATION_FAILED").With("direction", cmd.Name()).Wrap(err)
	}

	cmd.Println("Migrations completed successfully")
	return nil
}
