package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/palmerclinic/clinic-platform/internal/api/router"
	"github.com/palmerclinic/clinic-platform/internal/appointments"
	appconfig "github.com/palmerclinic/clinic-platform/internal/config"
	"github.com/palmerclinic/clinic-platform/internal/csrf"
	"github.com/palmerclinic/clinic-platform/internal/http/handlers"
	"github.com/palmerclinic/clinic-platform/internal/observability/metrics"
	"github.com/palmerclinic/clinic-platform/internal/session"
	"github.com/palmerclinic/clinic-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	sessions := session.NewStore(redisClient, cfg.SessionTTL)
	tokens, err := csrf.NewService(cfg.SessionSecret, cfg.CSRFTokenTTL)
	if err != nil {
		logger.Error("csrf service init failed", "error", err)
		os.Exit(1)
	}

	store := appointments.NewStore(pool)
	statusMetrics := metrics.NewStatusSyncMetrics(prometheus.DefaultRegisterer)

	// Initialize handlers
	pageHandler := handlers.NewPageHandler(store, sessions, tokens, logger,
		handlers.WithSeedWindow(cfg.SeedPastDays, cfg.SeedFutureDays),
		handlers.WithPatientCap(cfg.SeedPatientMax),
		handlers.WithSecureCookies(cfg.Env == "production"),
	)
	statusHandler := handlers.NewStatusHandler(store, tokens, statusMetrics, logger)

	// Setup router
	routerCfg := &router.Config{
		Logger:         logger,
		PageHandler:    pageHandler,
		StatusHandler:  statusHandler,
		Sessions:       sessions,
		MetricsHandler: promhttp.Handler(),
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
