package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authapi/auth-service/internal/infrastructure/config"
	"github.com/authapi/auth-service/pkg/logger"
)

const serviceName = "authapi"

// NewRootCmd creates the root command for the auth service CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authapi",
		Short: "Authentication service",
		Long: `authapi registers users, verifies credentials and issues signed
session tokens. Configuration comes from the environment and an optional
.env file in the working directory.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewCreateAdminCmd())

	return cmd
}

// loadRuntime reads the full configuration and initialises the logger.
func loadRuntime(ctx context.Context) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, zerolog.Logger{}, oops.Code("CONFIG_INVALID").With("operation", "load configuration").Wrap(err)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
	})
	return cfg, log, nil
}
