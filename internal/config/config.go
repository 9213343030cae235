// Package config provides centralized configuration loaded from environment
// variables. Shared by cmd/api and cmd/analyze.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Config is populated from environment variables.
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration
	DBQueryTimeout time.Duration

	// Store circuit breaker
	BreakerMaxRequests  int
	BreakerInterval     time.Duration
	BreakerTimeout      time.Duration
	BreakerFailureRatio float64
	BreakerMinRequests  int

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Cache
	CacheEnabled bool

	// Analytics
	CurrentSeason int
	ScanMinPA     int
	ScanWorkers   int
	ScanSchedule  string // cron spec for the daily regression scan
	ScanEnabled   bool
	StatsChannel  string // NOTIFY channel fired after a stats load
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg, err := LoadOffline()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or POSTGRES_URL must be set")
	}
	return cfg, nil
}

// LoadOffline is Load without the database requirement, for runs over
// fixture data.
func LoadOffline() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    envOr("DATABASE_URL", envOr("POSTGRES_URL", "")),
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,
		DBQueryTimeout: time.Duration(envInt("DB_QUERY_TIMEOUT_SECONDS", 10)) * time.Second,

		BreakerMaxRequests:  envInt("BREAKER_MAX_REQUESTS", 3),
		BreakerInterval:     time.Duration(envInt("BREAKER_INTERVAL_SECONDS", 60)) * time.Second,
		BreakerTimeout:      time.Duration(envInt("BREAKER_TIMEOUT_SECONDS", 30)) * time.Second,
		BreakerFailureRatio: envFloat("BREAKER_FAILURE_RATIO", 0.6),
		BreakerMinRequests:  envInt("BREAKER_MIN_REQUESTS", 5),

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:8501",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		CacheEnabled: envBool("CACHE_ENABLED", true),

		CurrentSeason: envInt("CURRENT_SEASON", 2025),
		ScanMinPA:     envInt("SCAN_MIN_PA", 100),
		ScanWorkers:   envInt("SCAN_WORKERS", 4),
		ScanSchedule:  envOr("SCAN_SCHEDULE", "0 6 * * *"),
		ScanEnabled:   envBool("SCAN_ENABLED", true),
		StatsChannel:  envOr("STATS_CHANNEL", "batting_stats_loaded"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.ScanWorkers < 1 {
		return fmt.Errorf("SCAN_WORKERS must be at least 1, got %d", c.ScanWorkers)
	}
	if c.CurrentSeason < 1871 || c.CurrentSeason > time.Now().Year()+1 {
		return fmt.Errorf("CURRENT_SEASON %d out of range", c.CurrentSeason)
	}
	if c.ScanMinPA < 0 {
		return fmt.Errorf("SCAN_MIN_PA must not be negative, got %d", c.ScanMinPA)
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		return fmt.Errorf("BREAKER_FAILURE_RATIO must be in (0, 1], got %g", c.BreakerFailureRatio)
	}
	return nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
