package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opendispatch/triage-gateway/internal/api"
	"github.com/opendispatch/triage-gateway/internal/config"
	"github.com/opendispatch/triage-gateway/internal/observability"
	"github.com/opendispatch/triage-gateway/internal/reasoning"
	"github.com/opendispatch/triage-gateway/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("agent_url", cfg.AgentURL).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Triage Gateway starting")

	// Reasoning model client (classification, criticality, summaries, greetings)
	reasoner := reasoning.NewClient(cfg, logger)

	// Call record store is optional: without DATABASE_URL triage still works,
	// records are just not persisted.
	var records *store.Store
	if cfg.DatabaseURL != "" {
		if err := store.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("Failed to apply database migrations")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		records, err = store.Open(ctx, cfg.DatabaseURL, logger)
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer records.Close()
		logger.Info().Msg("Call record store connected")
	} else {
		logger.Warn().Msg("DATABASE_URL not set, call records will not be persisted")
	}

	var callStore api.CallStore
	if records != nil {
		callStore = records
	}
	handler := api.NewHandler(cfg, logger, reasoner, reasoner, callStore)

	mux := api.NewRouter(handler)

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	// Readiness endpoint
	checks := []observability.Check{
		{Name: "config", Probe: func(ctx context.Context) error {
			if cfg.DeepgramAPIKey == "" || cfg.GroqAPIKey == "" {
				return fmt.Errorf("missing required API credentials")
			}
			return nil
		}},
	}
	if records != nil {
		checks = append(checks, observability.Check{Name: "database", Probe: records.Ping})
	}
	mux.HandleFunc("/ready", observability.ReadinessHandler(checks...))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// No blanket read/write timeouts: media stream websockets stay open for
	// the length of a phone call.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("webhook", fmt.Sprintf("http://localhost:%s/webhook/voice", cfg.Port)).
			Str("stream", fmt.Sprintf("ws://localhost:%s/streams/twilio", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
