package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authapi/auth-service/internal/api"
	"github.com/authapi/auth-service/internal/api/metrics"
	"github.com/authapi/auth-service/internal/infrastructure/config"
	"github.com/authapi/auth-service/internal/infrastructure/db/postgres"
)

const shutdownTimeout = 15 * time.Second

type serveOptions struct {
	migrate bool
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API. The process stops gracefully on SIGINT or SIGTERM,
letting in-flight requests finish before closing the stores.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "apply pending postgres migrations before serving")
	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := loadRuntime(ctx)
	if err != nil {
		return err
	}

	if opts.migrate && cfg.Store.Kind == config.StorePostgres {
		if err := migrateUp(cfg.Postgres.URL); err != nil {
			return err
		}
		log.Info().Msg("migrations applied")
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if err := a.bootstrapAdmin(ctx); err != nil {
		return err
	}
	if err := metrics.RegisterHashPool(prometheus.DefaultRegisterer, a.pool.Pending); err != nil {
		return oops.Code("METRICS_REGISTER_FAILED").Wrap(err)
	}

	e := api.NewRouter(api.Deps{
		AuthService:      a.service,
		Tokens:           a.codec,
		Logger:           log,
		Checkers:         a.checkers,
		Metrics:          prometheus.DefaultRegisterer,
		Gatherer:         prometheus.DefaultGatherer,
		CORSAllowOrigins: cfg.HTTP.CORSAllowOrigins,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			return oops.Code("HTTP_SERVER_FAILED").With("port", cfg.Port).Wrap(err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return oops.Code("HTTP_SHUTDOWN_FAILED").Wrap(err)
	}

	log.Info().Msg("server stopped")
	return nil
}

func migrateUp(databaseURL string) error {
	m, err := postgres.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}
