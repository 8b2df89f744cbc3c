// Copyright (c) 2026 Finscope. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Finscope web gateway.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to Redis (sessions and OAuth state).
//  4. Optionally connect to PostgreSQL and run migrations (durable sessions).
//  5. Build the backend client, identity providers and auth service.
//  6. Wire HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
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

	"github.com/taibuivan/finscope/internal/api"
	"github.com/taibuivan/finscope/internal/auth"
	"github.com/taibuivan/finscope/internal/backend"
	"github.com/taibuivan/finscope/internal/platform/config"
	"github.com/taibuivan/finscope/internal/platform/constants"
	"github.com/taibuivan/finscope/internal/platform/metrics"
	"github.com/taibuivan/finscope/internal/platform/migration"
	pgstore "github.com/taibuivan/finscope/internal/platform/postgres"
	redisstore "github.com/taibuivan/finscope/internal/platform/redis"
	"github.com/taibuivan/finscope/internal/platform/sec"
	"github.com/taibuivan/finscope/internal/profile"
)

// sessionJanitorInterval is how often expired PostgreSQL sessions are purged.
const sessionJanitorInterval = 15 * time.Minute

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("session_store", cfg.SessionStore),
	)

	// Root context for background work (rate limiter cleanup, janitor, OIDC keys).
	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	// Startup deadline so misconfiguration is caught quickly.
	startupCtx, startupCancel := context.WithTimeout(serverCtx, 30*time.Second)
	defer startupCancel()

	registry := metrics.New()

	// ── 3. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing_redis_client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_failed", slog.Any("error", cerr))
		}
	}()

	healthChecks := []api.HealthCheck{
		{Name: "redis", Check: func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) }},
	}

	// ── 4. Session Store ──────────────────────────────────────────────────
	var sessions auth.SessionRepository = auth.NewRedisSessionRepository(rdb)

	if cfg.SessionStore == config.SessionStorePostgres {
		must(log, migration.RunUp(cfg.DatabaseURL, log), "run migrations")

		pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
		must(log, err, "connect to postgres")
		defer func() {
			log.Info("closing_postgres_pool")
			pool.Close()
		}()

		postgresSessions := auth.NewPostgresSessionRepository(pool)
		go postgresSessions.RunJanitor(serverCtx, sessionJanitorInterval, log)

		sessions = postgresSessions
		healthChecks = append(healthChecks, api.HealthCheck{
			Name:  "postgres",
			Check: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) },
		})
	}

	pending := auth.NewRedisPendingStateRepository(rdb)

	// ── 5. Backend Client ─────────────────────────────────────────────────
	// The 401 hook only needs the store, so it exists before the auth service.
	backendClient, err := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout,
		backend.WithUnauthorizedHook(auth.InvalidateOnUnauthorized(sessions, registry)),
		backend.WithRecorder(registry),
	)
	must(log, err, "configure backend client")

	healthChecks = append(healthChecks, api.HealthCheck{Name: "backend", Check: backendClient.Ping})

	// ── 6. Identity Providers ─────────────────────────────────────────────
	var providers []auth.OAuthProvider

	if cfg.GoogleEnabled() {
		google, err := auth.NewGoogleProvider(serverCtx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		must(log, err, "configure google sign-in")
		providers = append(providers, google)
	}

	if cfg.TwitterEnabled() {
		twitter, err := auth.NewTwitterProvider(cfg.TwitterClientID, cfg.TwitterClientSecret, cfg.TwitterRedirectURL, auth.DefaultTwitterEndpoints)
		must(log, err, "configure twitter sign-in")
		providers = append(providers, twitter)
	}

	providerRegistry := auth.NewRegistry(providers...)
	log.Info("identity_providers_ready", slog.Any("providers", providerRegistry.Names()))

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	signer, err := sec.NewSessionSigner(cfg.SessionSecret, constants.SessionIssuer)
	must(log, err, "initialize session signer")
	cookies := auth.NewCookieManager(signer, !cfg.IsDevelopment())

	authService := auth.NewService(backendClient, sessions, pending, providerRegistry, registry, auth.ServiceConfig{
		SessionTTL:      cfg.SessionTTL,
		ExchangeTimeout: cfg.AuthExchangeTimeout,
	})
	authHandler := auth.NewHandler(authService, cookies)

	profileHandler := profile.NewHandler(profile.NewService(backendClient), authHandler)

	guard, err := auth.NewRouteGuard(cfg.ProtectedPaths, constants.LoginPath)
	must(log, err, "configure route guard")

	liveness, readiness := api.NewHealthHandlers(healthChecks, log)

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	server := api.NewServer(serverCtx, cfg, log, registry, api.Handlers{
		Liveness:     liveness,
		Readiness:    readiness,
		Metrics:      registry.Handler(),
		Authenticate: auth.Authenticate(authService, cookies),
		Guard:        guard,
		Auth:         authHandler,
		Profile:      profileHandler,
	})

	// ── 9. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("server_shutting_down", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_failed", slog.Any("error", err))
		os.Exit(1)
	}

	serverCancel()
	log.Info("server_stopped_cleanly")
}

// newLogger builds the JSON logger with the app name on every entry.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned and
// handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
