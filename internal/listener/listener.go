// Package listener provides a Postgres LISTEN/NOTIFY consumer that keeps
// analytics caches in step with stats loads. It holds a dedicated pgx
// connection (not from the pool) listening on the configured channel.
//
// The loader fires pg_notify with {"season": N} after writing a season's
// lines, or {"season": 0} after a full reload. The league-average memo
// and the affected cached responses are dropped for that season, or
// entirely.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/thatsmyboye/baseball-analytics/internal/analytics"
	"github.com/thatsmyboye/baseball-analytics/internal/cache"
	"github.com/thatsmyboye/baseball-analytics/internal/metrics"
)

const (
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// Invalidation scopes.
const (
	ScopeSeason = "season"
	ScopeAll    = "all"
)

// StatsLoaded is the JSON payload from pg_notify(<channel>, ...).
type StatsLoaded struct {
	Season int `json:"season"`
}

// Invalidator drops derived state after a stats load.
type Invalidator struct {
	detector *analytics.RegressionDetector
	cache    *cache.Cache
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewInvalidator(detector *analytics.RegressionDetector, c *cache.Cache, m *metrics.Metrics, logger *slog.Logger) *Invalidator {
	return &Invalidator{detector: detector, cache: c, metrics: m, logger: logger}
}

// Handle applies one notification payload and returns the scope it used.
// An empty or malformed payload is treated as a full reload.
func (inv *Invalidator) Handle(payload string) string {
	var event StatsLoaded
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			inv.logger.Warn("Malformed stats-loaded payload, invalidating everything",
				"payload", payload, "error", err)
			event.Season = 0
		}
	}

	scope := ScopeAll
	var purged int
	if event.Season > 0 {
		scope = ScopeSeason
		inv.detector.ForgetSeason(event.Season)
		purged = inv.purgeSeason(event.Season)
	} else {
		inv.detector.ForgetAll()
		purged = inv.cache.Purge()
	}
	inv.metrics.ObserveInvalidation(scope)

	inv.logger.Info("Stats load handled",
		"scope", scope, "season", event.Season, "purged_keys", purged)
	return scope
}

// purgeSeason drops every player response (careers span seasons) plus the
// league, scan and digest responses for season. Other seasons' league
// responses stay warm.
func (inv *Invalidator) purgeSeason(season int) int {
	n := inv.cache.PurgePrefix("player:")
	n += inv.cache.PurgePrefix(fmt.Sprintf("league:%d:", season))
	n += inv.cache.PurgePrefix(fmt.Sprintf("scan:%d:", season))
	n += inv.cache.PurgePrefix(cache.DigestKey(season))
	return n
}

// Start opens a dedicated connection and listens on channel. It reconnects
// automatically on connection loss. Blocks until ctx is cancelled.
// Intended to be called with `go`.
func Start(ctx context.Context, dbURL, channel string, inv *Invalidator, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, channel, inv, logger)
		if ctx.Err() != nil {
			logger.Info("Stats listener stopped (context cancelled)")
			return
		}

		logger.Error("Stats listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL, channel string, inv *Invalidator, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize())
	if err != nil {
		return fmt.Errorf("LISTEN %s: %w", channel, err)
	}
	logger.Info("Stats listener connected", "channel", channel)

	// Loads that landed while disconnected were missed; assume the worst.
	inv.Handle("")

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		inv.Handle(notification.Payload)
	}
}
