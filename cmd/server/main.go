package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Eshwar187/twin-clone-01/internal/adapter/filestore"
	"github.com/Eshwar187/twin-clone-01/internal/adapter/httpserver"
	"github.com/Eshwar187/twin-clone-01/internal/adapter/memory"
	"github.com/Eshwar187/twin-clone-01/internal/adapter/metrics"
	"github.com/Eshwar187/twin-clone-01/internal/adapter/postgres"
	"github.com/Eshwar187/twin-clone-01/internal/adapter/redis"
	"github.com/Eshwar187/twin-clone-01/internal/app"
	"github.com/Eshwar187/twin-clone-01/internal/domain"
	"github.com/Eshwar187/twin-clone-01/internal/platform/config"
	"github.com/Eshwar187/twin-clone-01/internal/platform/logging"
	"github.com/Eshwar187/twin-clone-01/internal/platform/retry"
	"github.com/Eshwar187/twin-clone-01/internal/platform/version"
)

// backend is the store wiring chosen by STORE_BACKEND.
type backend struct {
	store   domain.SyncStore
	history domain.MoodHistory
	checks  []httpserver.HealthCheck
	close   func()
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

var redisConnectPolicy = retry.Policy{
	MaxAttempts:    5,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
	OnRetry: func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Redis not reachable, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	},
}

func setupRedis(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, storeMetrics *metrics.StoreMetrics) (backend, error) {
	redisMetrics := metrics.NewRedisMetrics(reg)
	hooks := []goredis.Hook{redis.NewMetricsHook(redisMetrics), redis.NewCircuitBreakerHook(redisMetrics)}

	retryable := func(err error) bool { return !errors.Is(err, redis.ErrInvalidURL) }
	client, err := retry.Do(ctx, redisConnectPolicy, retryable, func() (*goredis.Client, error) {
		return redis.NewClient(ctx, cfg.RedisURL, hooks...)
	})
	if err != nil {
		return backend{}, fmt.Errorf("connect to redis: %w", err)
	}

	return backend{
		store:   redis.NewStateStore(client, storeMetrics),
		history: redis.NewHistory(client),
		checks: []httpserver.HealthCheck{{
			Name:  "redis",
			Check: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		}},
		close: func() { _ = client.Close() },
	}, nil
}

func setupFile(cfg *config.Config, storeMetrics *metrics.StoreMetrics) (backend, error) {
	store, err := filestore.New(cfg.StateDir, storeMetrics)
	if err != nil {
		return backend{}, err
	}
	return backend{
		store:   store,
		history: memory.NewHistory(),
		checks: []httpserver.HealthCheck{{
			Name: "state_dir",
			Check: func(context.Context) error {
				_, err := os.Stat(cfg.StateDir)
				return err
			},
		}},
		close: func() {},
	}, nil
}

var databaseConnectPolicy = retry.Policy{
	MaxAttempts:    5,
	InitialBackoff: time.Second,
	MaxBackoff:     10 * time.Second,
	OnRetry: func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Database not reachable, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	},
}

// setupDatabaseHistory replaces the backend's history with the Postgres one.
func setupDatabaseHistory(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, be *backend) error {
	tracer := postgres.NewMetricsTracer(metrics.NewDBMetrics(reg))
	pool, err := retry.Do(ctx, databaseConnectPolicy, retry.Always, func() (*pgxpool.Pool, error) {
		return postgres.Connect(ctx, cfg.DatabaseURL, tracer)
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		pool.Close()
		return err
	}

	be.history = postgres.NewHistory(pool)
	be.checks = append(be.checks, httpserver.HealthCheck{Name: "database", Check: pool.Ping})
	closeStore := be.close
	be.close = func() {
		closeStore()
		pool.Close()
	}
	return nil
}

func setupBackend(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (backend, error) {
	storeMetrics := metrics.NewStoreMetrics(reg)

	switch cfg.StoreBackend {
	case config.BackendRedis:
		return setupRedis(ctx, cfg, reg, storeMetrics)
	case config.BackendFile:
		return setupFile(cfg, storeMetrics)
	default:
		return backend{
			store:   memory.NewBackend(memory.WithStoreMetrics(storeMetrics)).NewStore(),
			history: memory.NewHistory(),
			close:   func() {},
		}, nil
	}
}

func runGracefulShutdown(srv *httpserver.Server, sessions *app.Sessions, stopEviction func()) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopEviction()
		sessions.Close()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "backend", cfg.StoreBackend, "version", version.Get().String())

	reg := metrics.NewRegistry()

	setupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	be, err := setupBackend(setupCtx, cfg, reg)
	if err != nil {
		cancel()
		slog.Error("Failed to set up state store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL != "" {
		if err := setupDatabaseHistory(setupCtx, cfg, reg, &be); err != nil {
			cancel()
			be.close()
			slog.Error("Failed to set up mood history database", "error", err)
			os.Exit(1)
		}
	}
	cancel()
	defer be.close()

	sessions := app.NewSessions(be.store,
		app.WithSessionHistory(be.history),
		app.WithSessionMetrics(metrics.NewMoodMetrics(reg)),
		app.WithSessionClock(clock),
	)
	stopEviction := sessions.StartEviction(cfg.SessionEvictionInterval, cfg.SessionIdleTimeout)

	appSvc := app.NewService(sessions, be.history, clock, cfg.HistoryDays)

	httpMetrics := metrics.NewHTTPMetrics(reg)
	srv := httpserver.NewServer(cfg, appSvc,
		httpserver.WithMetrics(metrics.Handler(reg), httpMetrics.Middleware()),
		httpserver.WithHealthChecks(be.checks...),
	)

	done := runGracefulShutdown(srv, sessions, stopEviction)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
