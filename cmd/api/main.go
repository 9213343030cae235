// Command api is the Baseball Analytics API server.
//
// Usage:
//
//	batting-api
//	API_PORT=8080 SCAN_SCHEDULE="0 5 * * *" batting-api

// @title Baseball Analytics API
// @version 1.0.0
// @description Batting analytics over stored season lines: role classification, regression detection with optional Statcast signals, career trends, league baselines, next-season projections and league-wide scans.
// @host localhost:8000
// @BasePath /
// @schemes http https
// @contact.name Baseball Analytics
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/thatsmyboye/baseball-analytics/internal/analytics"
	"github.com/thatsmyboye/baseball-analytics/internal/api"
	"github.com/thatsmyboye/baseball-analytics/internal/cache"
	"github.com/thatsmyboye/baseball-analytics/internal/config"
	"github.com/thatsmyboye/baseball-analytics/internal/db"
	"github.com/thatsmyboye/baseball-analytics/internal/listener"
	"github.com/thatsmyboye/baseball-analytics/internal/maintenance"
	"github.com/thatsmyboye/baseball-analytics/internal/metrics"
	"github.com/thatsmyboye/baseball-analytics/internal/store/postgres"

	_ "github.com/thatsmyboye/baseball-analytics/docs" // swagger docs
)

func main() {
	level := slog.LevelInfo
	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Analytics engine over the breaker-guarded store
	store := postgres.New(pool.Pool, cfg, logger)
	engine := analytics.NewEngine(store, logger)

	// Initialize cache and metrics
	appCache := cache.New(cfg.CacheEnabled)
	defer appCache.Close()
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)
	m := metrics.New()

	// Start LISTEN/NOTIFY consumer for stats loads
	inv := listener.NewInvalidator(engine.Detector, appCache, m, logger)
	go listener.Start(ctx, cfg.DatabaseURL, cfg.StatsChannel, inv, logger)

	// Start the scheduled regression scan
	if cfg.ScanEnabled {
		runner := maintenance.New(engine, appCache, m, cfg, logger)
		go func() {
			if err := maintenance.Start(ctx, runner, cfg.ScanSchedule, logger); err != nil {
				logger.Error("Maintenance scheduler failed", "error", err)
			}
		}()
	} else {
		logger.Info("Scheduled scan disabled (SCAN_ENABLED=false)")
	}

	// Create router
	router := api.NewRouter(engine, pool, appCache, m, cfg, logger)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second, // league scans run inside the request
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Baseball Analytics API",
			"addr", addr,
			"environment", cfg.Environment,
			"season", cfg.CurrentSeason,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
