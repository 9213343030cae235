package analytics

import (
	"context"
	"fmt"

	"github.com/thatsmyboye/baseball-analytics/internal/batting"
)

// Statcast thresholds. Deltas are current minus career.
const (
	luckBABIPDelta     = 0.040
	luckHardHitDelta   = 2.0
	powerSpikeISO      = 0.060
	powerDropISO       = 0.050
	powerBarrelGain    = 1.0
	evDeclineThreshold = 2.0
	xwobaGap           = 0.020
)

// StatcastAnalyzer layers batted-ball quality checks on top of the
// traditional regression read.
type StatcastAnalyzer struct {
	detector *RegressionDetector
	store    batting.Store
}

func NewStatcastAnalyzer(detector *RegressionDetector, store batting.Store) *StatcastAnalyzer {
	return &StatcastAnalyzer{detector: detector, store: store}
}

// Detector exposes the wrapped traditional detector.
func (a *StatcastAnalyzer) Detector() *RegressionDetector {
	return a.detector
}

// AnalyzePlayerSeason returns the traditional analysis, extended with
// Statcast alerts when the season has a Statcast record. Nil when the
// traditional analysis is nil.
func (a *StatcastAnalyzer) AnalyzePlayerSeason(ctx context.Context, playerID, season int) (*SeasonAnalysis, error) {
	analysis, err := a.detector.AnalyzePlayerSeason(ctx, playerID, season)
	if err != nil || analysis == nil {
		return nil, err
	}

	rec, err := a.store.StatcastRecord(ctx, playerID, season)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return analysis, nil
	}
	baseline, err := a.store.CareerStatcastAggregate(ctx, playerID, season, batting.MinBattedBalls)
	if err != nil {
		return nil, err
	}

	analysis.HasStatcast = true
	analysis.Statcast = rec
	analysis.StatcastCareer = baseline
	analysis.Alerts = append(analysis.Alerts, statcastAlerts(analysis.Current, analysis.Career, rec, baseline)...)
	analysis.summarize()
	return analysis, nil
}

func statcastAlert(metric Metric, tier int, signal Signal, cur, exp, delta float64, msg string) Alert {
	conf := ConfidenceHigh
	if tier > 1 {
		conf = ConfidenceMedium
	}
	return Alert{
		Metric:     metric,
		Source:     SourceStatcast,
		Tier:       tier,
		Signal:     signal,
		Direction:  directionOf(signal),
		Current:    cur,
		Expected:   exp,
		Delta:      delta,
		Message:    msg,
		Confidence: conf,
	}
}

func statcastAlerts(cur *batting.SeasonStat, career *batting.CareerBaseline, rec *batting.StatcastRecord, base *batting.StatcastBaseline) []Alert {
	var alerts []Alert
	var hardHitDelta, evDelta, brlDelta float64
	var hasHardHit, hasEV, hasBarrel bool
	if base != nil {
		hardHitDelta, hasHardHit = diff(rec.HardHitPct, base.HardHitPct)
		evDelta, hasEV = diff(rec.ExitVelo, base.ExitVelo)
		brlDelta, hasBarrel = diff(rec.BarrelPct, base.BarrelPct)
	}

	// Outcome luck: BABIP moved against the quality of contact.
	if babipDelta, ok := diff(cur.BABIP, career.BABIP); ok && hasHardHit {
		switch {
		case babipDelta < -luckBABIPDelta && hardHitDelta > luckHardHitDelta:
			alerts = append(alerts, statcastAlert(MetricStatcastUnlucky, 1, SignalBuy,
				*cur.BABIP, *career.BABIP, babipDelta,
				fmt.Sprintf("BABIP %+.3f below career while hard-hit%% is %+.1fpp", babipDelta, hardHitDelta)))
		case babipDelta > luckBABIPDelta && hardHitDelta < -luckHardHitDelta:
			alerts = append(alerts, statcastAlert(MetricStatcastLucky, 1, SignalSell,
				*cur.BABIP, *career.BABIP, babipDelta,
				fmt.Sprintf("BABIP %+.3f above career while hard-hit%% is %+.1fpp", babipDelta, hardHitDelta)))
		}
	}

	// Power: ISO moved against exit velocity and barrels.
	if isoDelta, ok := diff(cur.ISO, career.ISO); ok && hasEV && hasBarrel {
		switch {
		case isoDelta > powerSpikeISO && evDelta < 0 && brlDelta < 0:
			alerts = append(alerts, statcastAlert(MetricUnsustainablePower, 1, SignalSell,
				*cur.ISO, *career.ISO, isoDelta,
				fmt.Sprintf("ISO %+.3f above career with exit velo %+.1f mph and barrel%% %+.1fpp", isoDelta, evDelta, brlDelta)))
		case isoDelta < -powerDropISO && evDelta > 0 && brlDelta > powerBarrelGain:
			alerts = append(alerts, statcastAlert(MetricUnluckyPower, 1, SignalBuy,
				*cur.ISO, *career.ISO, isoDelta,
				fmt.Sprintf("ISO %+.3f below career with exit velo %+.1f mph and barrel%% %+.1fpp", isoDelta, evDelta, brlDelta)))
		}
	}

	if hasEV && evDelta < -evDeclineThreshold {
		alerts = append(alerts, statcastAlert(MetricEVDecline, 2, SignalSell,
			*rec.ExitVelo, *base.ExitVelo, evDelta,
			fmt.Sprintf("Exit velo %.1f mph is %+.1f from career %.1f", *rec.ExitVelo, evDelta, *base.ExitVelo)))
	}

	// Expected stats need only the current season.
	if gap, ok := diff(cur.WOBA, rec.XWOBA); ok {
		switch {
		case gap < -xwobaGap:
			alerts = append(alerts, statcastAlert(MetricXWOBAUnlucky, 2, SignalBuy,
				*cur.WOBA, *rec.XWOBA, gap,
				fmt.Sprintf("wOBA %.3f trails xwOBA %.3f by %.3f", *cur.WOBA, *rec.XWOBA, -gap)))
		case gap > xwobaGap:
			alerts = append(alerts, statcastAlert(MetricXWOBALucky, 2, SignalSell,
				*cur.WOBA, *rec.XWOBA, gap,
				fmt.Sprintf("wOBA %.3f exceeds xwOBA %.3f by %.3f", *cur.WOBA, *rec.XWOBA, gap)))
		}
	}

	return alerts
}
