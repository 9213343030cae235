// Package maintenance runs the scheduled league-wide regression scan.
// Each run scans the current season with Statcast signals, caches the
// resulting digest where the digest endpoint serves it, and records the
// candidate counts.
package maintenance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/thatsmyboye/baseball-analytics/internal/analytics"
	"github.com/thatsmyboye/baseball-analytics/internal/cache"
	"github.com/thatsmyboye/baseball-analytics/internal/config"
	"github.com/thatsmyboye/baseball-analytics/internal/metrics"
)

// Runner owns one scan configuration and its collaborators.
type Runner struct {
	engine  *analytics.Engine
	cache   *cache.Cache
	metrics *metrics.Metrics
	logger  *slog.Logger

	season  int
	minPA   int
	workers int

	mu sync.Mutex // one scan at a time
}

func New(engine *analytics.Engine, c *cache.Cache, m *metrics.Metrics, cfg *config.Config, logger *slog.Logger) *Runner {
	return &Runner{
		engine:  engine,
		cache:   c,
		metrics: m,
		logger:  logger,
		season:  cfg.CurrentSeason,
		minPA:   cfg.ScanMinPA,
		workers: cfg.ScanWorkers,
	}
}

// RunOnce scans the configured season and caches its digest. A scan
// already in flight makes this call wait for it.
func (r *Runner) RunOnce(ctx context.Context) (*analytics.Digest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.engine.Scanner.Scan(ctx, analytics.ScanOptions{
		Season:       r.season,
		MinPA:        r.minPA,
		Workers:      r.workers,
		WithStatcast: true,
	})
	if err != nil {
		r.metrics.ScanFailed()
		return nil, fmt.Errorf("scan season %d: %w", r.season, err)
	}

	digest := analytics.BuildDigest(res.Analyses)
	buys, sells := analytics.SplitCandidates(res.Analyses, analytics.DefaultCandidateThreshold)

	data, err := json.Marshal(digest)
	if err != nil {
		return nil, fmt.Errorf("marshal digest: %w", err)
	}
	r.cache.Set(cache.DigestKey(r.season), data, cache.TTLDigest)
	r.metrics.ObserveScan(res.Duration, len(buys), len(sells))

	r.logger.Info("Scheduled scan complete",
		"scan", res.Summary(),
		"digest", digest.Summary(),
		"strong_buys", len(buys),
		"strong_sells", len(sells))
	return digest, nil
}

// Start schedules RunOnce on the cron spec and blocks until ctx is
// cancelled. An invalid spec is returned immediately. Intended to be
// called with `go`.
func Start(ctx context.Context, r *Runner, schedule string, logger *slog.Logger) error {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn))),
	))
	if _, err := c.AddFunc(schedule, func() {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Scheduled scan failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule scan %q: %w", schedule, err)
	}

	c.Start()
	logger.Info("Maintenance scheduler started", "schedule", schedule, "season", r.season)

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("Maintenance scheduler stopped")
	return nil
}
