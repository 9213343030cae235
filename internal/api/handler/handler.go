// Package handler provides HTTP handlers for all API endpoints.
// Handlers call the analytics engine directly; results are marshalled once,
// cached with an ETag and served from the cache until they expire or a
// stats load purges them.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/thatsmyboye/baseball-analytics/internal/analytics"
	"github.com/thatsmyboye/baseball-analytics/internal/api/respond"
	"github.com/thatsmyboye/baseball-analytics/internal/batting"
	"github.com/thatsmyboye/baseball-analytics/internal/cache"
	"github.com/thatsmyboye/baseball-analytics/internal/config"
	"github.com/thatsmyboye/baseball-analytics/internal/metrics"
)

// HealthChecker verifies the backing database is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// breakerReporter is implemented by stores guarded by a circuit breaker.
type breakerReporter interface {
	BreakerState() string
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	engine  *analytics.Engine
	db      HealthChecker
	cache   *cache.Cache
	cfg     *config.Config
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Handler with shared dependencies. db may be nil when the
// engine runs over a non-database store.
func New(engine *analytics.Engine, db HealthChecker, c *cache.Cache, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		engine:  engine,
		db:      db,
		cache:   c,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
	}
}

// serve runs the shared cache → 304 → compute → cache → write flow.
// compute reports found=false when the data is insufficient.
func serve[T any](h *Handler, w http.ResponseWriter, r *http.Request, kind, key string, ttl time.Duration,
	compute func(ctx context.Context) (T, bool, error)) {

	if data, etag, ok := h.cache.Get(key); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	v, found, err := compute(r.Context())
	if err != nil {
		h.metrics.ObserveAnalysis(kind, "error")
		h.writeFailure(w, r, kind, err)
		return
	}
	if !found {
		h.metrics.ObserveAnalysis(kind, "insufficient")
		respond.WriteError(w, http.StatusNotFound, respond.CodeInsufficientData,
			"Not enough data to compute "+kind)
		return
	}
	h.metrics.ObserveAnalysis(kind, "ok")

	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("Marshal response failed", "kind", kind, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, respond.CodeInternal, "Failed to encode response")
		return
	}

	etag := h.cache.Set(key, data, ttl)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, data, etag, ttl, false)
}

// writeFailure maps engine errors onto HTTP statuses: caller mistakes are
// 400, everything else is a store fault and 503.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, kind string, err error) {
	if errors.Is(err, batting.ErrInvalidInput) {
		respond.WriteError(w, http.StatusBadRequest, respond.CodeInvalidInput, err.Error())
		return
	}
	h.logger.Error("Analytics request failed",
		"kind", kind, "path", r.URL.Path, "error", err)
	respond.WriteErrorDetail(w, http.StatusServiceUnavailable, respond.CodeUpstreamFailure,
		"Stats store unavailable", kind)
}

// seasonTTL keeps the in-progress season short-lived.
func (h *Handler) seasonTTL(season int) time.Duration {
	if season >= h.cfg.CurrentSeason {
		return cache.TTLCurrentSeason
	}
	return cache.TTLHistorical
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, status, and the docs location.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":           "Baseball Analytics API",
		"version":        "1.0.0",
		"status":         "running",
		"docs":           "/docs",
		"current_season": h.cfg.CurrentSeason,
		"features": []string{
			"role_classification",
			"regression_detection",
			"statcast_regression",
			"trend_tracking",
			"league_baselines",
			"next_season_projection",
			"etag_support",
		},
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity and reports the store breaker.
// @Summary Database health check
// @Description Verifies Postgres connectivity and reports the circuit breaker state.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if br, ok := h.engine.Store.(breakerReporter); ok {
		body["breaker"] = br.BreakerState()
	}
	if h.db == nil {
		body["status"] = "healthy"
		body["database"] = "not configured"
		respond.WriteJSONObject(w, http.StatusOK, body)
		return
	}
	if err := h.db.HealthCheck(r.Context()); err != nil {
		h.logger.Warn("Database health check failed", "error", err)
		body["status"] = "unhealthy"
		body["database"] = "disconnected"
		body["error"] = "Database connection check failed"
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, body)
		return
	}
	body["status"] = "healthy"
	body["database"] = "connected"
	respond.WriteJSONObject(w, http.StatusOK, body)
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns in-memory cache statistics (keys, hits, misses, purges).
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
