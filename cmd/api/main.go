package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/api"
	"github.com/99minutos/identity-service/internal/api/handler"
	"github.com/99minutos/identity-service/internal/core/ports"
	"github.com/99minutos/identity-service/internal/core/service"
	"github.com/99minutos/identity-service/internal/infrastructure/db/memory"
	mongostore "github.com/99minutos/identity-service/internal/infrastructure/db/mongo"
	"github.com/99minutos/identity-service/internal/infrastructure/db/postgres"
	redisstore "github.com/99minutos/identity-service/internal/infrastructure/db/redis"
	"github.com/99minutos/identity-service/internal/infrastructure/notify"
	"github.com/99minutos/identity-service/internal/infrastructure/security"
	"github.com/99minutos/identity-service/internal/pkg/config"
	"github.com/99minutos/identity-service/pkg/logger"
)

const serviceName = "identity-service"

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
		Service: serviceName,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]handler.Check{}
	var closers []func(context.Context) error

	repo, err := openStore(ctx, cfg, checks, &closers)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Store).Msg("failed to open account store")
	}
	log.Info().Str("store", cfg.Store).Bool("email_case_insensitive", cfg.Accounts.EmailCaseInsensitive).Msg("account store ready")

	var rdb *goredis.Client
	if cfg.UsesRedis() {
		rdb, err = redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		closers = append(closers, func(context.Context) error { return rdb.Close() })
	}

	var (
		notifier ports.Notifier
		ledger   ports.TokenLedger
	)
	// Ledger entries must outlive the tokens they record.
	ledgerTTL := cfg.Tokens.ActivationTTL + time.Hour
	if rdb != nil {
		notifier = notify.NewQueueNotifier(rdb, cfg.Redis.Queue)
		ledger = redisstore.NewTokenLedger(rdb, ledgerTTL)
	} else {
		notifier = notify.NewLogNotifier(log)
		ledger = memory.NewTokenLedger(ledgerTTL)
	}

	hasher := security.NewBcryptHasher(cfg.Accounts.BcryptCost)
	tokens := security.NewActivationTokens(cfg.JWTSecret, cfg.Tokens.ActivationTTL, cfg.Tokens.Issuer)

	accounts := service.NewAccountService(repo, hasher, tokens, notifier, ledger, logger.For("accounts"))
	queries := service.NewQueryEngine(repo, cfg.Accounts.PageSizeDefault, cfg.Accounts.PageSizeMax, logger.For("query"))
	auth := service.NewAuthService(repo, hasher, cfg.JWTSecret, cfg.Tokens.AccessTTL, logger.For("auth"))

	e := api.NewRouter(api.Dependencies{
		Accounts:   accounts,
		Queries:    queries,
		Auth:       auth,
		JWTSecret:  cfg.JWTSecret,
		Checks:     checks,
		Log:        logger.For("http"),
		Registerer: prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultGatherer,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown")
	}
	closeAll(shutdownCtx, log, closers)
}

// openStore builds the configured account store and registers its readiness
// check and shutdown hook.
func openStore(ctx context.Context, cfg *config.Config, checks map[string]handler.Check, closers *[]func(context.Context) error) (ports.AccountRepository, error) {
	insensitive := cfg.Accounts.EmailCaseInsensitive

	switch cfg.Store {
	case config.StoreMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  serviceName,
		})
		if err != nil {
			return nil, err
		}
		checks["mongodb"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		*closers = append(*closers, client.Disconnect)

		repo := mongostore.NewAccountRepository(db, insensitive)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return repo, nil

	case config.StorePostgres:
		db, err := postgres.Open(ctx, postgres.Config{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.MaxConns,
		})
		if err != nil {
			return nil, err
		}
		checks["postgres"] = db.PingContext
		*closers = append(*closers, closeDB(db))

		if err := postgres.RunMigrations(ctx, db); err != nil {
			return nil, err
		}
		repo := postgres.NewAccountRepository(db, insensitive)
		if err := repo.EnsureEmailIndex(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	}

	var opts []memory.Option
	if insensitive {
		opts = append(opts, memory.WithCaseInsensitiveEmail())
	}
	return memory.NewAccountRepository(opts...), nil
}

func closeDB(db *sql.DB) func(context.Context) error {
	return func(context.Context) error { return db.Close() }
}

func closeAll(ctx context.Context, log zerolog.Logger, closers []func(context.Context) error) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			log.Warn().Err(err).Msg("close dependency")
		}
	}
}
