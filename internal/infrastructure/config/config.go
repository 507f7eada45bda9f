// Package config loads process configuration from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Supported USER_STORE values.
const (
	StoreMemory   = "memory"
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
)

type Config struct {
	Port     string `env:"PORT,      default=3000"`
	Env      string `env:"ENV,       default=production"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Auth      AuthConfig
	Store     StoreConfig
	Mongo     MongoConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	HTTP      HTTPConfig
	Bootstrap BootstrapConfig
}

type AuthConfig struct {
	JWTSecret      string        `env:"JWT_SECRET, required"`
	PasswordPepper string        `env:"PASSWORD_PEPPER, required"`
	BcryptCost     int           `env:"BCRYPT_COST, default=10"`
	TokenTTL       time.Duration `env:"TOKEN_TTL, default=24h"`
	HashWorkers    int           `env:"HASH_WORKERS, default=0"`
}

type StoreConfig struct {
	Kind string `env:"USER_STORE, default=memory"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=auth_service"`
}

type PostgresConfig struct {
	URL string `env:"DATABASE_URL"`
}

// RedisConfig configures the optional user cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,       default=0"`
	CacheTTL time.Duration `env:"USER_CACHE_TTL, default=5m"`
}

type HTTPConfig struct {
	CORSAllowOrigins []string `env:"CORS_ALLOW_ORIGINS, default=*"`
}

// BootstrapConfig names an admin account created at startup when absent.
type BootstrapConfig struct {
	AdminIdentifier string `env:"BOOTSTRAP_ADMIN_IDENTIFIER"`
	AdminPassword   string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
}

// Load reads a .env file when present and then the process environment.
// Variables already set in the environment win over the file.
func Load(ctx context.Context) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	return load(ctx, envconfig.OsLookuper())
}

// LoadPostgres reads only what schema migrations need, so they can run
// without the service secrets.
func LoadPostgres(ctx context.Context) (*PostgresConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	return loadPostgres(ctx, envconfig.OsLookuper())
}

func loadPostgres(ctx context.Context, lookuper envconfig.Lookuper) (*PostgresConfig, error) {
	var pg PostgresConfig
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &pg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if pg.URL == "" {
		return nil, errors.New("config: DATABASE_URL is required")
	}
	return &pg, nil
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config: read .env: %w", err)
	}
	return nil
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	switch c.Store.Kind {
	case StoreMemory:
	case StoreMongo:
		if c.Mongo.URI == "" {
			return errors.New("config: MONGO_URI is required when USER_STORE=mongo")
		}
	case StorePostgres:
		if c.Postgres.URL == "" {
			return errors.New("config: DATABASE_URL is required when USER_STORE=postgres")
		}
	default:
		return fmt.Errorf("config: unknown USER_STORE %q", c.Store.Kind)
	}

	if c.Auth.TokenTTL <= 0 {
		return errors.New("config: TOKEN_TTL must be positive")
	}
	if c.Auth.HashWorkers < 0 {
		return errors.New("config: HASH_WORKERS must not be negative")
	}
	if c.Redis.Addr != "" && c.Redis.CacheTTL <= 0 {
		return errors.New("config: USER_CACHE_TTL must be positive")
	}
	if (c.Bootstrap.AdminIdentifier == "") != (c.Bootstrap.AdminPassword == "") {
		return errors.New("config: BOOTSTRAP_ADMIN_IDENTIFIER and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}
	return nil
}

// IsDevelopment reports whether ENV selects developer-friendly output.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
