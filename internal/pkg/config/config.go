package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	NotifierRedis = "redis"
	NotifierLog   = "log"
)

type Config struct {
	Port            string        `env:"PORT,             default=8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`
	Env             string        `env:"ENV,              default=development"`
	JWTSecret       string        `env:"JWT_SECRET,       required"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`

	Store    string `env:"STORE,    default=mongo"`
	Notifier string `env:"NOTIFIER, default=redis"`

	Accounts AccountsConfig
	Tokens   TokensConfig
	Mongo    MongoConfig
	Postgres PostgresConfig
	Redis    RedisConfig
}

// UsesRedis reports whether a Redis connection is needed.
func (c *Config) UsesRedis() bool {
	return c.Notifier == NotifierRedis
}

type AccountsConfig struct {
	PageSizeDefault      int  `env:"PAGE_SIZE_DEFAULT,      default=20"`
	PageSizeMax          int  `env:"PAGE_SIZE_MAX,          default=100"`
	EmailCaseInsensitive bool `env:"EMAIL_CASE_INSENSITIVE, default=false"`
	BcryptCost           int  `env:"BCRYPT_COST,            default=10"`
}

type TokensConfig struct {
	Issuer        string        `env:"TOKEN_ISSUER,         default=identity-service"`
	AccessTTL     time.Duration `env:"ACCESS_TOKEN_TTL,     default=24h"`
	ActivationTTL time.Duration `env:"ACTIVATION_TOKEN_TTL, default=48h"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=identity"`
}

type PostgresConfig struct {
	DSN      string `env:"POSTGRES_DSN,       default=postgres://localhost:5432/identity?sslmode=disable"`
	MaxConns int    `env:"POSTGRES_MAX_CONNS, default=10"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,         default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,           default=0"`
	Queue    string `env:"NOTIFICATION_QUEUE, default=notifications:outbox"`
}

// Validate rejects settings that envconfig accepts syntactically but the
// service cannot run with.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMongo, StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("STORE must be one of %s, %s, %s; got %q", StoreMongo, StorePostgres, StoreMemory, c.Store)
	}
	switch c.Notifier {
	case NotifierRedis, NotifierLog:
	default:
		return fmt.Errorf("NOTIFIER must be one of %s, %s; got %q", NotifierRedis, NotifierLog, c.Notifier)
	}
	if c.Accounts.PageSizeDefault <= 0 || c.Accounts.PageSizeMax <= 0 {
		return fmt.Errorf("page sizes must be positive")
	}
	if c.Accounts.PageSizeDefault > c.Accounts.PageSizeMax {
		return fmt.Errorf("PAGE_SIZE_DEFAULT (%d) exceeds PAGE_SIZE_MAX (%d)", c.Accounts.PageSizeDefault, c.Accounts.PageSizeMax)
	}
	if c.Tokens.ActivationTTL <= 0 || c.Tokens.AccessTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), nil)
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration from lookuper, or the process environment
// when lookuper is nil.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
