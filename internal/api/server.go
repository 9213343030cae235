package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/thatsmyboye/baseball-analytics/internal/analytics"
	"github.com/thatsmyboye/baseball-analytics/internal/api/handler"
	"github.com/thatsmyboye/baseball-analytics/internal/cache"
	"github.com/thatsmyboye/baseball-analytics/internal/config"
	"github.com/thatsmyboye/baseball-analytics/internal/metrics"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
// db may be nil when the engine is not backed by Postgres.
func NewRouter(engine *analytics.Engine, db handler.HealthChecker, appCache *cache.Cache, m *metrics.Metrics, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(MetricsMiddleware(m))
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "ETag", "Retry-After"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(engine, db, appCache, cfg, m, logger)

	// --- Routes ---

	r.Get("/", h.Root)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	r.Handle("/metrics", m.Handler())

	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/definitions", h.GetStatDefinitions)

		r.Route("/players/{playerID}", func(r chi.Router) {
			r.Get("/regression", h.GetRegression)
			r.Get("/projection", h.GetProjection)
			r.Get("/trajectory", h.GetTrajectory)
			r.Get("/breakout", h.GetBreakout)
			r.Get("/decline", h.GetDecline)
			r.Get("/peak", h.GetPeak)
			r.Get("/aging", h.GetAging)
			r.Get("/role", h.GetRole)
			r.Get("/report", h.GetReport)
		})

		r.Route("/league/{season}", func(r chi.Router) {
			r.Get("/percentiles", h.GetLeaguePercentiles)
			r.Get("/percentile", h.GetPlayerPercentile)
			r.Get("/cohorts", h.GetRoleCohorts)
			r.Get("/top", h.GetTopPerformers)
		})

		r.Get("/scan/{season}", h.GetScan)
		r.Get("/digest/{season}", h.GetDigest)
	})

	return r
}
