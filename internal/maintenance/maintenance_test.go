package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsmyboye/baseball-analytics/internal/analytics"
	"github.com/thatsmyboye/baseball-analytics/internal/batting"
	"github.com/thatsmyboye/baseball-analytics/internal/cache"
	"github.com/thatsmyboye/baseball-analytics/internal/config"
	"github.com/thatsmyboye/baseball-analytics/internal/metrics"
	"github.com/thatsmyboye/baseball-analytics/internal/store/memstore"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seasonLine(id, season int, babip float64) batting.SeasonStat {
	return batting.SeasonStat{
		PlayerID: id,
		Name:     "Scan Subject",
		Season:   season,
		Games:    150,
		PA:       600,
		WRCPlus:  batting.Float(110),
		BABIP:    batting.Float(babip),
		KPct:     batting.Float(20),
		BBPct:    batting.Float(9),
		ISO:      batting.Float(0.180),
		HRFBPct:  batting.Float(12),
	}
}

func gathered(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			}
		}
	}
	return total
}

func newRunner(t *testing.T) (*Runner, *memstore.Store, *cache.Cache, *metrics.Metrics) {
	t.Helper()
	s := memstore.New()
	for season := 2020; season <= 2023; season++ {
		s.AddSeason(seasonLine(7, season, 0.290))
	}
	// A 90-point BABIP spike is a tier-1 sell on its own.
	s.AddSeason(seasonLine(7, 2024, 0.380))

	c := cache.New(true)
	t.Cleanup(c.Close)
	m := metrics.New()
	cfg := &config.Config{CurrentSeason: 2024, ScanMinPA: 100, ScanWorkers: 2}
	return New(analytics.NewEngine(s, discardLogger()), c, m, cfg, discardLogger()), s, c, m
}

func TestRunOnceCachesDigest(t *testing.T) {
	r, _, c, _ := newRunner(t)

	digest, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, digest.Players)

	data, etag, ok := c.Get(cache.DigestKey(2024))
	require.True(t, ok)
	assert.NotEmpty(t, etag)

	var cached analytics.Digest
	require.NoError(t, json.Unmarshal(data, &cached))
	assert.Equal(t, digest.Players, cached.Players)
}

func TestRunOnceStoreFault(t *testing.T) {
	r, s, c, m := newRunner(t)
	s.FailWith(errors.New("connection reset"))

	_, err := r.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan season 2024")

	_, _, ok := c.Get(cache.DigestKey(2024))
	assert.False(t, ok)
	assert.Equal(t, 1.0, gathered(t, m.Registry(), "batting_scan_failures_total"))
}

func TestStartRejectsBadSchedule(t *testing.T) {
	r, _, _, _ := newRunner(t)
	err := Start(context.Background(), r, "every tuesday", discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule scan")
}

func TestStartStopsOnCancel(t *testing.T) {
	r, _, _, _ := newRunner(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Start(ctx, r, "0 6 * * *", discardLogger()) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
