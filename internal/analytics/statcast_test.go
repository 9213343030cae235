package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsmyboye/baseball-analytics/internal/batting"
	"github.com/thatsmyboye/baseball-analytics/internal/store/memstore"
)

func statcastSeason(id, season int, ev, hardHit, barrel float64) batting.StatcastRecord {
	return batting.StatcastRecord{
		PlayerID:     id,
		Season:       season,
		ExitVelo:     batting.Float(ev),
		HardHitPct:   batting.Float(hardHit),
		BarrelPct:    batting.Float(barrel),
		SweetSpotPct: batting.Float(34),
		XWOBA:        batting.Float(0.320),
		BattedBalls:  300,
	}
}

func newStatcastAnalyzer(s batting.Store) *StatcastAnalyzer {
	return NewStatcastAnalyzer(NewRegressionDetector(s), s)
}

func alertsByMetric(alerts []Alert) map[Metric]Alert {
	out := make(map[Metric]Alert, len(alerts))
	for _, a := range alerts {
		out[a.Metric] = a
	}
	return out
}

func TestStatcastUnluckyContact(t *testing.T) {
	s := memstore.New()
	withCareer(s, 1, 2021, 2023, func(l *batting.SeasonStat) { l.BABIP = batting.Float(0.310) })
	for season := 2021; season <= 2023; season++ {
		s.AddStatcast(statcastSeason(1, season, 90, 40, 8))
	}
	cur := seasonLine(1, 2024, 600)
	cur.BABIP = batting.Float(0.260)
	s.AddSeason(cur)
	s.AddStatcast(statcastSeason(1, 2024, 90.5, 43, 8.5))

	a, err := newStatcastAnalyzer(s).AnalyzePlayerSeason(context.Background(), 1, 2024)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.True(t, a.HasStatcast)
	require.NotNil(t, a.StatcastCareer)
	assert.Equal(t, 3, a.StatcastCareer.Seasons)

	byMetric := alertsByMetric(a.Alerts)
	require.Len(t, byMetric, 2)
	unlucky := byMetric[MetricStatcastUnlucky]
	assert.Equal(t, 1, unlucky.Tier)
	assert.Equal(t, SignalBuy, unlucky.Signal)
	assert.Equal(t, SourceStatcast, unlucky.Source)
	assert.Equal(t, ConfidenceHigh, unlucky.Confidence)
	assert.Equal(t, SignalBuy, byMetric[MetricBABIP].Signal)

	assert.Equal(t, 2, a.Tier1Buys)
	assert.Equal(t, 2.0, a.NetScore)
}

func TestStatcastPowerAndExitVelo(t *testing.T) {
	s := memstore.New()
	withCareer(s, 1, 2021, 2023, nil)
	for season := 2021; season <= 2023; season++ {
		s.AddStatcast(statcastSeason(1, season, 90, 40, 8))
	}
	cur := seasonLine(1, 2024, 600)
	cur.ISO = batting.Float(0.240)
	s.AddSeason(cur)
	s.AddStatcast(statcastSeason(1, 2024, 87.5, 39, 7))

	a, err := newStatcastAnalyzer(s).AnalyzePlayerSeason(context.Background(), 1, 2024)
	require.NoError(t, err)
	require.NotNil(t, a)

	byMetric := alertsByMetric(a.Alerts)
	power := byMetric[MetricUnsustainablePower]
	assert.Equal(t, 1, power.Tier)
	assert.Equal(t, SignalSell, power.Signal)

	ev := byMetric[MetricEVDecline]
	assert.Equal(t, 2, ev.Tier)
	assert.Equal(t, SignalSell, ev.Signal)
	assert.Equal(t, ConfidenceMedium, ev.Confidence)
	assert.InDelta(t, -2.5, ev.Delta, 1e-9)

	// The traditional ISO read disagrees with the batted-ball read.
	assert.Equal(t, SignalBuy, byMetric[MetricISO].Signal)
}

func TestStatcastExpectedStatsWithoutBaseline(t *testing.T) {
	s := memstore.New()
	withCareer(s, 2, 2021, 2023, nil)
	cur := seasonLine(2, 2024, 600)
	cur.WOBA = batting.Float(0.360)
	s.AddSeason(cur)
	s.AddStatcast(statcastSeason(2, 2024, 90, 40, 8))

	a, err := newStatcastAnalyzer(s).AnalyzePlayerSeason(context.Background(), 2, 2024)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.True(t, a.HasStatcast)
	assert.Nil(t, a.StatcastCareer)

	require.Len(t, a.Alerts, 1)
	al := a.Alerts[0]
	assert.Equal(t, MetricXWOBALucky, al.Metric)
	assert.Equal(t, 2, al.Tier)
	assert.Equal(t, SignalSell, al.Signal)
	assert.InDelta(t, 0.040, al.Delta, 1e-9)
	assert.Equal(t, -0.5, a.NetScore)
}

func TestStatcastWithoutRecord(t *testing.T) {
	s := memstore.New()
	withCareer(s, 1, 2021, 2024, nil)

	a, err := newStatcastAnalyzer(s).AnalyzePlayerSeason(context.Background(), 1, 2024)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.False(t, a.HasStatcast)
	assert.Nil(t, a.Statcast)
	assert.Empty(t, a.Alerts)

	a, err = newStatcastAnalyzer(s).AnalyzePlayerSeason(context.Background(), 99, 2024)
	require.NoError(t, err)
	assert.Nil(t, a)
}
