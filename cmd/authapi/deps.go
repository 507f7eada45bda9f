package main

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/oops"

	"github.com/authapi/auth-service/internal/api/handler"
	"github.com/authapi/auth-service/internal/core/domain"
	"github.com/authapi/auth-service/internal/core/ports"
	"github.com/authapi/auth-service/internal/core/security"
	"github.com/authapi/auth-service/internal/core/service"
	"github.com/authapi/auth-service/internal/infrastructure/config"
	"github.com/authapi/auth-service/internal/infrastructure/db/memory"
	mongodb "github.com/authapi/auth-service/internal/infrastructure/db/mongo"
	"github.com/authapi/auth-service/internal/infrastructure/db/postgres"
	redisdb "github.com/authapi/auth-service/internal/infrastructure/db/redis"
	"github.com/authapi/auth-service/internal/infrastructure/queue"
)

// app is the wired object graph shared by serve and create-admin.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	repo     ports.UserRepository
	pool     *queue.HashPool
	codec    *security.TokenCodec
	service  *service.AuthService
	checkers map[string]handler.Checker
	closers  []func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (a *app, err error) {
	a = &app{
		cfg:      cfg,
		log:      log,
		checkers: make(map[string]handler.Checker),
	}
	defer func() {
		if err != nil {
			a.Close(context.Background())
			a = nil
		}
	}()

	if err := a.openStore(ctx); err != nil {
		return a, err
	}
	if cfg.Redis.Addr != "" {
		if err := a.openCache(ctx); err != nil {
			return a, err
		}
	}

	hasher, err := security.NewBcryptHasher(cfg.Auth.BcryptCost, cfg.Auth.PasswordPepper, log)
	if err != nil {
		return a, oops.Code("HASHER_INIT_FAILED").Wrap(err)
	}
	a.codec, err = security.NewTokenCodec(cfg.Auth.JWTSecret)
	if err != nil {
		return a, oops.Code("TOKEN_CODEC_INIT_FAILED").Wrap(err)
	}

	// The pool outlives request contexts; it is stopped explicitly on Close.
	a.pool = queue.NewHashPool(cfg.Auth.HashWorkers, hasher, log)
	a.pool.Start(context.WithoutCancel(ctx))
	a.closers = append(a.closers, func(context.Context) error {
		a.pool.Stop()
		return nil
	})

	a.service = service.NewAuthService(a.repo, a.pool, a.codec, cfg.Auth.TokenTTL, log)
	if err := a.service.Warm(ctx); err != nil {
		return a, oops.Code("HASHER_INIT_FAILED").Wrap(err)
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.Store.Kind {
	case config.StoreMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: a.cfg.Mongo.URI, Database: a.cfg.Mongo.Database})
		if err != nil {
			return oops.Code("DB_CONNECT_FAILED").With("store", "mongo").Wrap(err)
		}
		a.closers = append(a.closers, client.Disconnect)

		repo := mongodb.NewUserRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return oops.Code("DB_INDEX_FAILED").With("store", "mongo").Wrap(err)
		}
		a.repo = repo
		a.checkers["mongodb"] = func(ctx context.Context) error { return mongodb.Ping(ctx, db) }

	case config.StorePostgres:
		pool, err := postgres.Connect(ctx, a.cfg.Postgres.URL)
		if err != nil {
			return oops.Code("DB_CONNECT_FAILED").With("store", "postgres").Wrap(err)
		}
		a.closers = append(a.closers, func(context.Context) error {
			pool.Close()
			return nil
		})
		a.repo = postgres.NewUserRepository(pool)
		a.checkers["postgres"] = pool.Ping

	default:
		a.log.Warn().Msg("using in-memory user store; users are lost on restart")
		a.repo = memory.NewUserRepository()
	}

	a.log.Info().Str("store", a.cfg.Store.Kind).Msg("user store ready")
	return nil
}

func (a *app) openCache(ctx context.Context) error {
	client, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err != nil {
		return oops.Code("CACHE_CONNECT_FAILED").Wrap(err)
	}
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })

	a.repo = redisdb.NewCachedUserRepository(a.repo, client, a.cfg.Redis.CacheTTL, a.log)
	a.checkers["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }

	a.log.Info().Dur("ttl", a.cfg.Redis.CacheTTL).Msg("user cache enabled")
	return nil
}

// bootstrapAdmin creates the configured admin account unless it exists.
func (a *app) bootstrapAdmin(ctx context.Context) error {
	id := a.cfg.Bootstrap.AdminIdentifier
	if id == "" {
		return nil
	}

	_, err := a.service.CreateAdmin(ctx, ports.RegisterInput{
		Identifier: id,
		Password:   a.cfg.Bootstrap.AdminPassword,
	})
	switch {
	case err == nil:
		a.log.Info().Str("identifier", id).Msg("bootstrap admin created")
		return nil
	case errors.Is(err, domain.ErrUserExists):
		a.log.Debug().Str("identifier", id).Msg("bootstrap admin already present")
		return nil
	default:
		return oops.Code("BOOTSTRAP_ADMIN_FAILED").With("identifier", id).Wrap(err)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Warn().Err(err).Msg("failed to release resource")
		}
	}
	a.closers = nil
}
