package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	postgresadapter "github.com/ericfisherdev/infraconfig/internal/adapter/driven/postgres"
	processadapter "github.com/ericfisherdev/infraconfig/internal/adapter/driven/process"
	redisadapter "github.com/ericfisherdev/infraconfig/internal/adapter/driven/redis"
	sqliteadapter "github.com/ericfisherdev/infraconfig/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/infraconfig/internal/adapter/driving/http"
	"github.com/ericfisherdev/infraconfig/internal/application"
	"github.com/ericfisherdev/infraconfig/internal/config"
	"github.com/ericfisherdev/infraconfig/internal/crypto"
	"github.com/ericfisherdev/infraconfig/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on a missing or malformed encryption key).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"postgres", postgresadapter.IsPostgresURL(cfg.DatabaseURL),
		"redis", cfg.HasRedis(),
		"restart_delay", cfg.RestartDelay,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the store and run migrations.
	store, users, closeStore, err := openStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer closeStore()

	// 4. Change notifications: Redis when configured, log otherwise.
	var notifier driven.ConfigNotifier = redisadapter.NewLogNotifier(slog.Default())
	if cfg.HasRedis() {
		rdb, err := redisadapter.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := rdb.Close(); closeErr != nil {
				slog.Error("error closing redis", "error", closeErr)
			}
		}()
		notifier = redisadapter.NewNotifier(rdb, slog.Default())

		sub := redisadapter.NewSubscriber(rdb, func(_ context.Context, topic string, u driven.ConfigUpdate) {
			slog.Info("infra config changed", "topic", topic, "name", u.Name, "encrypted", u.Encrypted)
		}, slog.Default())
		go sub.Start(ctx)
		slog.Info("redis notifications enabled")
	}

	// 5. Wire the service.
	cipher, err := crypto.New(cfg.EncryptionKey)
	if err != nil {
		return err
	}
	restarter := processadapter.NewRestarter(cfg.RestartDelay, slog.Default())
	defer restarter.Cancel()

	svc := application.NewInfraConfigService(
		store,
		users,
		notifier,
		restarter,
		cipher,
		config.NewDefaults(),
		slog.Default(),
	)

	// 6. Validate environment-supplied defaults, then seed and repair rows.
	if err := svc.ValidateEnvValues(); err != nil {
		return err
	}
	if err := svc.Initialize(ctx); err != nil {
		return err
	}

	// 7. HTTP API.
	handler := httphandler.NewServeMux(httphandler.NewHandler(svc, slog.Default()), slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	slog.Info("infraconfig started", "listen_addr", cfg.ListenAddr)

	// 8. Wait for shutdown signal. A scheduled restart arrives here as SIGTERM.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// openStore connects to PostgreSQL for postgres:// URLs and to a SQLite file
// otherwise, migrating the schema before returning. A Postgres server that
// cannot be reached yet is not fatal: migrations are skipped and the store
// is returned so Initialize can decide, and requests fail until it is up.
func openStore(ctx context.Context, databaseURL string) (driven.InfraConfigStore, driven.UserStore, func(), error) {
	if postgresadapter.IsPostgresURL(databaseURL) {
		pool, err := postgresadapter.NewPool(ctx, databaseURL)
		if err != nil {
			return nil, nil, nil, err
		}

		err = postgresadapter.Ping(ctx, pool)
		switch {
		case errors.Is(err, driven.ErrDatabaseUnreachable):
			slog.Warn("postgres unreachable, skipping migrations", "error", err)
		case err != nil:
			pool.Close()
			return nil, nil, nil, err
		default:
			version, err := postgresadapter.RunMigrations(pool)
			if err != nil {
				pool.Close()
				return nil, nil, nil, err
			}
			slog.Info("postgres ready", "schema_version", version)
		}
		return postgresadapter.NewInfraConfigRepo(pool), postgresadapter.NewUserRepo(pool), pool.Close, nil
	}

	db, err := sqliteadapter.NewDB(ctx, databaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	version, err := sqliteadapter.RunMigrations(db.Writer)
	if err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	slog.Info("sqlite ready", "path", databaseURL, "schema_version", version)

	closeDB := func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}
	return sqliteadapter.NewInfraConfigRepo(db), sqliteadapter.NewUserRepo(db), closeDB, nil
}
