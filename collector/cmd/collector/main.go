package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/ghostlink/bridge-stack/collector/internal/config"
	"github.com/ghostlink/bridge-stack/collector/internal/dlq"
	"github.com/ghostlink/bridge-stack/collector/internal/handlers"
	"github.com/ghostlink/bridge-stack/collector/internal/qualitygate"
	"github.com/ghostlink/bridge-stack/collector/internal/ratelimit"
	"github.com/ghostlink/bridge-stack/collector/internal/repository"
	"github.com/ghostlink/bridge-stack/collector/internal/server"
	"github.com/ghostlink/bridge-stack/collector/internal/service"
	"github.com/ghostlink/bridge-stack/collector/internal/token"
	"github.com/ghostlink/bridge-stack/collector/internal/worker"
	"github.com/ghostlink/bridge-stack/common/logging"

	natsclient "github.com/ghostlink/bridge-stack/common/messaging/nats"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("collector"))
	logging.SetDefault(logger)

	slog.Info("Starting Collector service",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("log_format", cfg.Logging.Format),
	)
	if *configPath != "" {
		slog.Info("Loaded configuration", slog.String("config_path", *configPath))
	}

	connString := cfg.Database.ConnString()

	// Run database migrations
	slog.Info("Running database migrations")
	m, err := migrate.New("file://"+cfg.Database.MigrationsPath, connString)
	if err != nil {
		slog.Error("Failed to initialize migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		slog.Error("Failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("Database migrations completed")

	// Connect to PostgreSQL
	repo, err := repository.NewPostgresRepository(context.Background(), connString)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("Connected to PostgreSQL")

	// Initialize rate limiter
	var rateLimiter ratelimit.RateLimiter
	if cfg.Redis.Enabled && cfg.Intake.RateLimitEnabled {
		limiter, err := ratelimit.NewRedisRateLimiter(
			cfg.Redis.URL,
			cfg.Intake.RateLimitRequests,
			cfg.Intake.RateLimitWindow,
			false,
		)
		if err != nil {
			slog.Warn("Failed to initialize Redis rate limiter, continuing without rate limiting",
				slog.String("error", err.Error()))
			rateLimiter = &ratelimit.NoOpRateLimiter{}
		} else {
			rateLimiter = limiter
			slog.Info("Rate limiting enabled",
				slog.Int("requests", cfg.Intake.RateLimitRequests),
				slog.Duration("window", cfg.Intake.RateLimitWindow))
		}
	} else {
		rateLimiter = &ratelimit.NoOpRateLimiter{}
		slog.Info("Rate limiting disabled")
	}
	defer rateLimiter.Close()

	// Initialize Dead Letter Queue. jsDLQ stays nil when disabled; its
	// inspection methods answer "not enabled" on a nil receiver.
	var jsDLQ *dlq.JetStreamQueue
	var dlqWriter dlq.Writer = dlq.NoOpWriter{}
	if cfg.DLQ.Enabled {
		jsClient, err := natsclient.NewJetStreamClient(natsclient.Config{
			URL: cfg.DLQ.NatsURL,
		})
		if err != nil {
			slog.Error("Failed to connect to NATS for DLQ", slog.String("error", err.Error()))
			os.Exit(1)
		}
		jsDLQ, err = dlq.NewJetStreamQueue(context.Background(), jsClient, logger)
		if err != nil {
			slog.Error("Failed to initialize JetStream DLQ", slog.String("error", err.Error()))
			os.Exit(1)
		}
		dlqWriter = jsDLQ
		slog.Info("Dead Letter Queue enabled", slog.String("nats_url", cfg.DLQ.NatsURL))
	} else {
		slog.Info("Dead Letter Queue disabled")
	}
	defer dlqWriter.Close()

	// Intake pipeline
	intakeService := service.NewIntakeService(repo, cfg.Intake.MaxBatchEvents, cfg.Intake.SiteCacheTTL, logger)
	signer := token.NewSigner(cfg.Intake.SigningSecret, cfg.Intake.TokenTTL)

	// Normalization worker and batch runner
	w := worker.New(repo, dlqWriter, logger)
	runner := worker.NewRunner(repo, w, dlqWriter, logger, cfg.Worker.DefaultLimit, cfg.Worker.DefaultRounds)

	thresholds := qualitygate.Thresholds{
		MaxDropped:       cfg.QualityGate.MaxDropped,
		MaxRetryRatioPct: cfg.QualityGate.MaxRetryRatioPct,
	}

	// Initialize HTTP handlers
	router := server.NewRouter(
		handlers.NewBridgeHandler(intakeService, signer, rateLimiter, logger),
		handlers.NewWorkerHandler(runner, thresholds, logger),
		handlers.NewEventsHandler(repo, logger),
		handlers.NewDLQHandler(jsDLQ, logger),
		handlers.NewHealthHandler(repo),
	)

	// Create server with config values
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		slog.Info("Collector service listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	slog.Info("Server stopped")
}
