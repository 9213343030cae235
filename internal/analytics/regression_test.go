package analytics

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsmyboye/baseball-analytics/internal/batting"
	"github.com/thatsmyboye/baseball-analytics/internal/store/memstore"
)

func TestDetermineTier(t *testing.T) {
	babip := [3]float64{0.050, 0.030, 0.015}
	current, career := 0.36, 0.31
	tests := []struct {
		name  string
		delta float64
		want  int
	}{
		{"exact tier 1", 0.050, 1},
		{"float noise at tier 1", current - career, 1},
		{"just under tier 1", 0.049, 2},
		{"exact tier 2", 0.030, 2},
		{"exact tier 3", 0.015, 3},
		{"below tier 3", 0.0149, 0},
		{"just below tier 1 boundary", 0.0499999, 2},
		{"just below tier 3 boundary", 0.0149999, 0},
		{"zero", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, determineTier(tt.delta, babip))
		})
	}
}

func TestAnalyzePlayerSeasonBABIPSpike(t *testing.T) {
	s := memstore.New()
	withCareer(s, 1, 2021, 2023, func(l *batting.SeasonStat) { l.BABIP = batting.Float(0.310) })
	cur := seasonLine(1, 2024, 550)
	cur.BABIP = batting.Float(0.370)
	s.AddSeason(cur)

	a, err := NewRegressionDetector(s).AnalyzePlayerSeason(context.Background(), 1, 2024)
	require.NoError(t, err)
	require.NotNil(t, a)

	require.Len(t, a.Alerts, 1)
	al := a.Alerts[0]
	assert.Equal(t, MetricBABIP, al.Metric)
	assert.Equal(t, 1, al.Tier)
	assert.Equal(t, SignalSell, al.Signal)
	assert.Equal(t, DirectionNegative, al.Direction)
	assert.InDelta(t, 0.060, al.Delta, 1e-9)
	assert.Equal(t, SourceTraditional, al.Source)

	assert.Equal(t, 1, a.SellSignals)
	assert.Equal(t, 0, a.BuySignals)
	assert.Equal(t, -1, a.NetSignal)
	assert.Equal(t, 1, a.MaxTier)
	assert.Equal(t, -1.0, a.NetScore)
	require.NotNil(t, a.Career)
	assert.Equal(t, 1500, a.Career.TotalPA)
	require.NotNil(t, a.League)
	assert.Equal(t, 1, a.League.Players)
}

func TestAnalyzePlayerSeasonSignals(t *testing.T) {
	s := memstore.New()
	withCareer(s, 1, 2021, 2023, nil)
	cur := seasonLine(1, 2024, 600)
	cur.BBPct = batting.Float(12)     // +4.0pp, tier 1 buy
	cur.KPct = batting.Float(17)      // -3.0pp, tier 2 buy
	cur.ISO = batting.Float(0.145)    // -0.025, tier 3 sell
	cur.HRFBPct = batting.Float(12.5) // below tier 3
	s.AddSeason(cur)

	a, err := NewRegressionDetector(s).AnalyzePlayerSeason(context.Background(), 1, 2024)
	require.NoError(t, err)
	require.NotNil(t, a)

	byMetric := make(map[Metric]Alert)
	for _, al := range a.Alerts {
		byMetric[al.Metric] = al
	}
	require.Len(t, byMetric, 3)

	assert.Equal(t, 1, byMetric[MetricBBPct].Tier)
	assert.Equal(t, SignalBuy, byMetric[MetricBBPct].Signal)
	assert.Equal(t, 2, byMetric[MetricKPct].Tier)
	assert.Equal(t, SignalBuy, byMetric[MetricKPct].Signal)
	assert.Equal(t, DirectionPositive, byMetric[MetricKPct].Direction)
	assert.Equal(t, DirectionNegative, byMetric[MetricISO].Direction)
	assert.Equal(t, 3, byMetric[MetricISO].Tier)
	assert.Equal(t, SignalSell, byMetric[MetricISO].Signal)

	assert.Equal(t, 1, a.NetSignal)
	assert.Equal(t, 1.5, a.NetScore)
	assert.Equal(t, 1, a.MaxTier)
}

func TestAnalyzePlayerSeasonInsufficient(t *testing.T) {
	s := memstore.New()
	s.AddSeason(seasonLine(1, 2023, 150))
	s.AddSeason(seasonLine(1, 2024, 600))
	d := NewRegressionDetector(s)

	a, err := d.AnalyzePlayerSeason(context.Background(), 1, 2024)
	require.NoError(t, err)
	assert.Nil(t, a, "150 prior PA is below the career minimum")

	a, err = d.AnalyzePlayerSeason(context.Background(), 1, 2019)
	require.NoError(t, err)
	assert.Nil(t, a, "no season row")
}

func TestAnalyzePlayerSeasonNoAlerts(t *testing.T) {
	s := memstore.New()
	withCareer(s, 1, 2021, 2024, nil)

	a, err := NewRegressionDetector(s).AnalyzePlayerSeason(context.Background(), 1, 2024)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.NotNil(t, a.Alerts)
	assert.Empty(t, a.Alerts)
	assert.False(t, a.HasAlerts())
	assert.Equal(t, 0, a.MaxTier)
}

func TestAnalyzePlayerSeasonStoreFailure(t *testing.T) {
	s := memstore.New()
	withCareer(s, 1, 2021, 2024, nil)
	boom := errors.New("connection reset")
	s.FailWith(boom)

	_, err := NewRegressionDetector(s).AnalyzePlayerSeason(context.Background(), 1, 2024)
	assert.ErrorIs(t, err, boom)
}

func TestLeagueAveragesMemoized(t *testing.T) {
	s := memstore.New()
	withCareer(s, 1, 2021, 2024, nil)
	withCareer(s, 2, 2021, 2024, func(l *batting.SeasonStat) { l.BABIP = batting.Float(0.320) })
	d := NewRegressionDetector(s)
	ctx := context.Background()

	_, err := d.AnalyzePlayerSeason(ctx, 1, 2024)
	require.NoError(t, err)
	a, err := d.AnalyzePlayerSeason(ctx, 2, 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.LeagueQueries())

	require.NotNil(t, a.League)
	assert.Equal(t, 2, a.League.Players)
	assert.InDelta(t, 0.310, *a.League.BABIP, 1e-9)

	d.ForgetSeason(2024)
	_, err = d.AnalyzePlayerSeason(ctx, 1, 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.LeagueQueries())

	empty, err := d.LeagueAverages(ctx, 1950)
	require.NoError(t, err)
	assert.Nil(t, empty)
	_, err = d.LeagueAverages(ctx, 1950)
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.LeagueQueries(), "empty seasons are memoized too")

	d.ForgetAll()
	_, err = d.LeagueAverages(ctx, 1950)
	require.NoError(t, err)
	assert.Equal(t, int64(4), s.LeagueQueries())
}

// heldStore blocks LeagueRows until release is closed, honouring ctx.
type heldStore struct {
	batting.Store
	started chan struct{}
	release chan struct{}
	queries atomic.Int64
}

func newHeldStore(s batting.Store) *heldStore {
	return &heldStore{Store: s, started: make(chan struct{}, 8), release: make(chan struct{})}
}

func (h *heldStore) LeagueRows(ctx context.Context, season, minPA int) ([]batting.SeasonStat, error) {
	h.queries.Add(1)
	h.started <- struct{}{}
	select {
	case <-h.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return h.Store.LeagueRows(ctx, season, minPA)
}

func memoized(d *RegressionDetector, season int) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.league[season]
	return ok
}

func TestLeagueAveragesForgetDuringQuery(t *testing.T) {
	s := memstore.New()
	withCareer(s, 1, 2021, 2024, nil)
	held := newHeldStore(s)
	d := NewRegressionDetector(held)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := d.LeagueAverages(ctx, 2024)
		done <- err
	}()
	<-held.started
	d.ForgetSeason(2024)
	close(held.release)
	require.NoError(t, <-done)

	assert.False(t, memoized(d, 2024), "averages read before the reload must not be kept")

	la, err := d.LeagueAverages(ctx, 2024)
	require.NoError(t, err)
	require.NotNil(t, la)
	assert.Equal(t, int64(2), held.queries.Load())
	assert.True(t, memoized(d, 2024))
}

func TestLeagueAveragesCallerCancelDoesNotFailQuery(t *testing.T) {
	s := memstore.New()
	withCareer(s, 1, 2021, 2024, nil)
	held := newHeldStore(s)
	d := NewRegressionDetector(held)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := d.LeagueAverages(ctx, 2024)
		done <- err
	}()
	<-held.started
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(held.release)
	assert.Eventually(t, func() bool { return memoized(d, 2024) }, time.Second, 5*time.Millisecond)

	la, err := d.LeagueAverages(context.Background(), 2024)
	require.NoError(t, err)
	require.NotNil(t, la)
	assert.Equal(t, int64(1), held.queries.Load())
}

func TestLeagueAveragesSkipsUnknownBABIP(t *testing.T) {
	rows := []batting.SeasonStat{seasonLine(1, 2024, 500), seasonLine(2, 2024, 500)}
	rows[1].BABIP = nil
	la := computeLeagueAverages(2024, rows)
	require.NotNil(t, la)
	assert.Equal(t, 1, la.Players)

	rows[0].BABIP = nil
	assert.Nil(t, computeLeagueAverages(2024, rows))
}
