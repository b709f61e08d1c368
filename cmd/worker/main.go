package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vurc_dashboard/ingestion/internal/config"
	"vurc_dashboard/ingestion/internal/metrics"
	"vurc_dashboard/ingestion/internal/pipeline"
	"vurc_dashboard/ingestion/internal/scheduler"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code. Deferred cleanup has completed by the
// time it returns, so main can exit without skipping it.
func run() int {
	// Setup logger
	setupLogger()

	log.Info().Msg("Starting VURC Rating Worker")

	// Load configuration
	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Int("program_id", cfg.ProgramID).
		Int("season_year", cfg.SeasonYear).
		Int("season_id", cfg.SeasonID).
		Msg("Configuration loaded")

	// Create context that listens for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	p, closeAll, err := pipeline.FromConfig(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize pipeline")
		return 1
	}

	// Start metrics HTTP server
	if cfg.EnableMetrics {
		go startMetricsServer(cfg.MetricsPort)
	}

	// Update system uptime metric
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
			case <-ctx.Done():
				return
			}
		}
	}()

	return serve(ctx, cfg, p, closeAll)
}

// serve runs the pipeline once or on the schedule and releases the pipeline's
// connections before returning the exit code
func serve(ctx context.Context, cfg *config.Config, p scheduler.Runner, cleanup func()) int {
	defer cleanup()

	if !cfg.EnableScheduler {
		log.Info().Msg("Scheduler disabled, running once")
		if _, err := p.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Rating run failed")
			return 1
		}
		return 0
	}

	// Create and start scheduler
	sched := scheduler.NewScheduler(cfg.RefreshCron, cfg.RunOnStart, p)
	if err := sched.Start(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to start scheduler")
		return 1
	}

	// Keep running until context is cancelled
	<-ctx.Done()

	// Graceful shutdown
	log.Info().Msg("Shutting down scheduler...")
	sched.Stop()

	log.Info().Msg("Worker shutdown complete")
	return 0
}

// setupLogger configures the zerolog logger
func setupLogger() {
	// Pretty console logging in development
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	// Set log level
	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	addr := fmt.Sprintf(":%d", port)
	log.Info().Int("port", port).Msg("Starting metrics server")

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
