package analytics

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/thatsmyboye/baseball-analytics/internal/batting"
)

// Signal is the recommended action implied by an alert.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
)

func (s Signal) opposite() Signal {
	if s == SignalBuy {
		return SignalSell
	}
	return SignalBuy
}

// Direction reads an alert as good (positive) or bad (negative) news for
// the hitter going forward. It always agrees with the signal.
type Direction string

const (
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
)

func directionOf(s Signal) Direction {
	if s == SignalBuy {
		return DirectionPositive
	}
	return DirectionNegative
}

// Metric names what an alert measured.
type Metric string

const (
	MetricBABIP   Metric = "BABIP"
	MetricKPct    Metric = "K%"
	MetricBBPct   Metric = "BB%"
	MetricISO     Metric = "ISO"
	MetricHRFBPct Metric = "HR/FB%"

	MetricStatcastUnlucky    Metric = "STATCAST_UNLUCKY"
	MetricStatcastLucky      Metric = "STATCAST_LUCKY"
	MetricUnsustainablePower Metric = "UNSUSTAINABLE_POWER"
	MetricUnluckyPower       Metric = "UNLUCKY_POWER"
	MetricEVDecline          Metric = "EV_DECLINE"
	MetricXWOBAUnlucky       Metric = "XWOBA_UNLUCKY"
	MetricXWOBALucky         Metric = "XWOBA_LUCKY"
)

// AlertSource tags which detector produced an alert.
type AlertSource string

const (
	SourceTraditional AlertSource = "traditional"
	SourceStatcast    AlertSource = "statcast"
)

// Alert is one tiered regression signal for a player-season.
type Alert struct {
	Metric     Metric      `json:"metric"`
	Source     AlertSource `json:"source"`
	Tier       int         `json:"tier"`
	Signal     Signal      `json:"signal"`
	Direction  Direction   `json:"direction"`
	Current    float64     `json:"current"`
	Expected   float64     `json:"expected"`
	Delta      float64     `json:"delta"`
	Message    string      `json:"message"`
	Confidence string      `json:"confidence,omitempty"`
}

// metricRule describes one traditional regression metric.
type metricRule struct {
	metric   Metric
	tiers    [3]float64
	positive Signal // signal for a positive delta
	current  func(*batting.SeasonStat) *float64
	career   func(*batting.CareerBaseline) *float64
	format   func(cur, exp, delta float64) string
}

func rateMessage(label string) func(cur, exp, delta float64) string {
	return func(cur, exp, delta float64) string {
		return fmt.Sprintf("%s %.3f is %+.3f from career %.3f", label, cur, delta, exp)
	}
}

func pctMessage(label string) func(cur, exp, delta float64) string {
	return func(cur, exp, delta float64) string {
		return fmt.Sprintf("%s %.1f%% is %+.1fpp from career %.1f%%", label, cur, delta, exp)
	}
}

var regressionRules = []metricRule{
	{
		metric:   MetricBABIP,
		tiers:    [3]float64{0.050, 0.030, 0.015},
		positive: SignalSell,
		current:  func(s *batting.SeasonStat) *float64 { return s.BABIP },
		career:   func(b *batting.CareerBaseline) *float64 { return b.BABIP },
		format:   rateMessage("BABIP"),
	},
	{
		metric:   MetricKPct,
		tiers:    [3]float64{5.0, 3.0, 1.5},
		positive: SignalSell,
		current:  func(s *batting.SeasonStat) *float64 { return s.KPct },
		career:   func(b *batting.CareerBaseline) *float64 { return b.KPct },
		format:   pctMessage("K%"),
	},
	{
		metric:   MetricBBPct,
		tiers:    [3]float64{4.0, 2.5, 1.5},
		positive: SignalBuy,
		current:  func(s *batting.SeasonStat) *float64 { return s.BBPct },
		career:   func(b *batting.CareerBaseline) *float64 { return b.BBPct },
		format:   pctMessage("BB%"),
	},
	{
		metric:   MetricISO,
		tiers:    [3]float64{0.060, 0.040, 0.025},
		positive: SignalBuy,
		current:  func(s *batting.SeasonStat) *float64 { return s.ISO },
		career:   func(b *batting.CareerBaseline) *float64 { return b.ISO },
		format:   rateMessage("ISO"),
	},
	{
		metric:   MetricHRFBPct,
		tiers:    [3]float64{8.0, 5.0, 3.0},
		positive: SignalSell,
		current:  func(s *batting.SeasonStat) *float64 { return s.HRFBPct },
		career:   func(b *batting.CareerBaseline) *float64 { return b.HRFBPct },
		format:   pctMessage("HR/FB"),
	},
}

// determineTier maps |delta| onto 1..3, or 0 below the weakest threshold.
func determineTier(absDelta float64, tiers [3]float64) int {
	for i, threshold := range tiers {
		if absDelta+tierEpsilon >= threshold {
			return i + 1
		}
	}
	return 0
}

func traditionalAlerts(stat *batting.SeasonStat, career *batting.CareerBaseline) []Alert {
	var alerts []Alert
	for _, rule := range regressionRules {
		cur, exp := rule.current(stat), rule.career(career)
		delta, ok := diff(cur, exp)
		if !ok {
			continue
		}
		abs := delta
		if abs < 0 {
			abs = -abs
		}
		tier := determineTier(abs, rule.tiers)
		if tier == 0 {
			continue
		}
		signal := rule.positive
		if delta < 0 {
			signal = signal.opposite()
		}
		alerts = append(alerts, Alert{
			Metric:    rule.metric,
			Source:    SourceTraditional,
			Tier:      tier,
			Signal:    signal,
			Direction: directionOf(signal),
			Current:   *cur,
			Expected:  *exp,
			Delta:     delta,
			Message:   rule.format(*cur, *exp, delta),
		})
	}
	return alerts
}

// SeasonAnalysis is the regression read on one player-season.
type SeasonAnalysis struct {
	PlayerID int    `json:"player_id"`
	Name     string `json:"name,omitempty"`
	Season   int    `json:"season"`
	PA       int    `json:"pa"`

	Alerts      []Alert `json:"alerts"`
	AlertCount  int     `json:"alert_count"`
	BuySignals  int     `json:"buy_signals"`
	SellSignals int     `json:"sell_signals"`
	NetSignal   int     `json:"net_signal"`
	MaxTier     int     `json:"max_tier"` // strongest tier present, 0 when no alerts
	Tier1Buys   int     `json:"tier1_buys"`
	Tier1Sells  int     `json:"tier1_sells"`
	Tier2Buys   int     `json:"tier2_buys"`
	Tier2Sells  int     `json:"tier2_sells"`
	NetScore    float64 `json:"net_score"`

	Current *batting.SeasonStat     `json:"current"`
	Career  *batting.CareerBaseline `json:"career"`
	League  *LeagueAverages         `json:"league,omitempty"`

	HasStatcast    bool                      `json:"has_statcast"`
	Statcast       *batting.StatcastRecord   `json:"statcast,omitempty"`
	StatcastCareer *batting.StatcastBaseline `json:"statcast_career,omitempty"`
}

// summarize recomputes the aggregate counts from Alerts.
// NetScore weights tier-1 alerts fully and tier-2 alerts by half.
func (a *SeasonAnalysis) summarize() {
	a.AlertCount = len(a.Alerts)
	a.BuySignals, a.SellSignals, a.MaxTier = 0, 0, 0
	a.Tier1Buys, a.Tier1Sells, a.Tier2Buys, a.Tier2Sells = 0, 0, 0, 0
	for _, al := range a.Alerts {
		buy := al.Signal == SignalBuy
		if buy {
			a.BuySignals++
		} else {
			a.SellSignals++
		}
		switch {
		case al.Tier == 1 && buy:
			a.Tier1Buys++
		case al.Tier == 1:
			a.Tier1Sells++
		case al.Tier == 2 && buy:
			a.Tier2Buys++
		case al.Tier == 2:
			a.Tier2Sells++
		}
		if a.MaxTier == 0 || al.Tier < a.MaxTier {
			a.MaxTier = al.Tier
		}
	}
	a.NetSignal = a.BuySignals - a.SellSignals
	a.NetScore = float64(a.Tier1Buys-a.Tier1Sells) + 0.5*float64(a.Tier2Buys-a.Tier2Sells)
}

// HasAlerts reports whether any alert fired.
func (a *SeasonAnalysis) HasAlerts() bool {
	return len(a.Alerts) > 0
}

// LeagueAverages are season-wide means over PA >= 100 rows with a known BABIP.
type LeagueAverages struct {
	Season  int      `json:"season"`
	Players int      `json:"players"`
	BABIP   *float64 `json:"babip"`
	BBPct   *float64 `json:"bb_pct"`
	KPct    *float64 `json:"k_pct"`
	ISO     *float64 `json:"iso"`
	HRFBPct *float64 `json:"hr_fb_pct"`
}

// RegressionDetector compares a season against the player's own career.
// League averages are memoized per season on the instance.
type RegressionDetector struct {
	store batting.Store

	mu     sync.RWMutex
	league map[int]*LeagueAverages
	gen    uint64 // bumped by every Forget
	sf     singleflight.Group
}

func NewRegressionDetector(store batting.Store) *RegressionDetector {
	return &RegressionDetector{
		store:  store,
		league: make(map[int]*LeagueAverages),
	}
}

// AnalyzePlayerSeason returns nil when the season row is missing or the
// career baseline before season is insufficient.
func (d *RegressionDetector) AnalyzePlayerSeason(ctx context.Context, playerID, season int) (*SeasonAnalysis, error) {
	stat, err := d.store.SeasonStat(ctx, playerID, season)
	if err != nil || stat == nil {
		return nil, err
	}
	career, err := d.store.CareerAggregate(ctx, playerID, season, batting.MinBaselineSeasonPA)
	if err != nil {
		return nil, err
	}
	if !career.Sufficient() {
		return nil, nil
	}

	league, err := d.LeagueAverages(ctx, season)
	if err != nil {
		return nil, err
	}

	a := &SeasonAnalysis{
		PlayerID: playerID,
		Name:     stat.Name,
		Season:   season,
		PA:       stat.PA,
		Alerts:   traditionalAlerts(stat, career),
		Current:  stat,
		Career:   career,
		League:   league,
	}
	if a.Alerts == nil {
		a.Alerts = []Alert{}
	}
	a.summarize()
	return a, nil
}

// LeagueAverages returns the memoized league means for a season, computing
// them once on first use. Nil when no row qualifies. Concurrent callers share
// one store query, which outlives any single caller's cancellation.
func (d *RegressionDetector) LeagueAverages(ctx context.Context, season int) (*LeagueAverages, error) {
	d.mu.RLock()
	la, ok := d.league[season]
	gen := d.gen
	d.mu.RUnlock()
	if ok {
		return la, nil
	}

	key := strconv.Itoa(season) + "@" + strconv.FormatUint(gen, 10)
	shared := context.WithoutCancel(ctx)
	ch := d.sf.DoChan(key, func() (interface{}, error) {
		d.mu.RLock()
		la, ok := d.league[season]
		d.mu.RUnlock()
		if ok {
			return la, nil
		}

		rows, err := d.store.LeagueRows(shared, season, batting.LeagueAverageMinPA)
		if err != nil {
			return nil, err
		}
		la = computeLeagueAverages(season, rows)

		// A Forget during the query means the rows may predate the reload.
		d.mu.Lock()
		if d.gen == gen {
			d.league[season] = la
		}
		d.mu.Unlock()
		return la, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*LeagueAverages), nil
	}
}

// ForgetSeason drops the memoized averages for a season.
func (d *RegressionDetector) ForgetSeason(season int) {
	d.mu.Lock()
	delete(d.league, season)
	d.gen++
	d.mu.Unlock()
}

// ForgetAll drops every memoized season.
func (d *RegressionDetector) ForgetAll() {
	d.mu.Lock()
	d.league = make(map[int]*LeagueAverages)
	d.gen++
	d.mu.Unlock()
}

func computeLeagueAverages(season int, rows []batting.SeasonStat) *LeagueAverages {
	qualified := make([]batting.SeasonStat, 0, len(rows))
	for _, r := range dedupePlayers(rows) {
		if r.BABIP != nil {
			qualified = append(qualified, r)
		}
	}
	if len(qualified) == 0 {
		return nil
	}
	return &LeagueAverages{
		Season:  season,
		Players: len(qualified),
		BABIP:   meanOf(values(qualified, batting.StatBABIP)),
		BBPct:   meanOf(values(qualified, batting.StatBBPct)),
		KPct:    meanOf(values(qualified, batting.StatKPct)),
		ISO:     meanOf(values(qualified, batting.StatISO)),
		HRFBPct: meanOf(values(qualified, batting.StatHRFBPct)),
	}
}
