package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/thatsmyboye/baseball-analytics/internal/batting"
)

// MinCohortSize is the smallest role cohort considered reliable.
const MinCohortSize = 3

// Percentile tier labels.
const (
	TierElite        = "Elite"
	TierAboveAverage = "Above Average"
	TierAverage      = "Average"
	TierBelowAverage = "Below Average"
	TierPoor         = "Poor"
)

// Distribution summarizes one metric across a qualified population.
// Quantiles interpolate linearly at (n-1)p.
type Distribution struct {
	P10   float64 `json:"p10"`
	P25   float64 `json:"p25"`
	P50   float64 `json:"p50"`
	P75   float64 `json:"p75"`
	P90   float64 `json:"p90"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Count int     `json:"count"`
}

// LeaguePercentiles holds per-metric distributions for a season.
type LeaguePercentiles struct {
	Season  int                              `json:"season"`
	MinPA   int                              `json:"min_pa"`
	Players int                              `json:"players"`
	Metrics map[batting.StatKey]Distribution `json:"metrics"`
}

// PercentileRank places one value inside the league distribution.
type PercentileRank struct {
	Metric     batting.StatKey `json:"metric"`
	Value      float64         `json:"value"`
	Percentile int             `json:"percentile"`
	Tier       string          `json:"tier"`
}

// CohortStats are mean rate stats for players sharing a usage role.
type CohortStats struct {
	Role        Role     `json:"role"`
	PlayerCount int      `json:"player_count"`
	WRCPlus     *float64 `json:"avg_wrc_plus"`
	BABIP       *float64 `json:"avg_babip"`
	BBPct       *float64 `json:"avg_bb_pct"`
	KPct        *float64 `json:"avg_k_pct"`
	ISO         *float64 `json:"avg_iso"`
}

// Reliable reports whether the cohort is large enough to lean on.
func (c CohortStats) Reliable() bool {
	return c.PlayerCount >= MinCohortSize
}

// comparisonStats are the metrics CompareToLeague ranks.
var comparisonStats = []batting.StatKey{
	batting.StatWRCPlus, batting.StatBABIP, batting.StatBBPct, batting.StatKPct,
	batting.StatISO, batting.StatAVG, batting.StatOBP, batting.StatSLG,
}

// LeagueBaselines computes league distributions and player standing.
type LeagueBaselines struct {
	store batting.Store
}

func NewLeagueBaselines(store batting.Store) *LeagueBaselines {
	return &LeagueBaselines{store: store}
}

func (l *LeagueBaselines) population(ctx context.Context, season, minPA int) ([]batting.SeasonStat, error) {
	rows, err := l.store.LeagueRows(ctx, season, minPA)
	if err != nil {
		return nil, err
	}
	return dedupePlayers(rows), nil
}

// LeaguePercentiles returns per-metric distributions over PA >= minPA rows.
// Nil when no row qualifies.
func (l *LeagueBaselines) LeaguePercentiles(ctx context.Context, season, minPA int) (*LeaguePercentiles, error) {
	rows, err := l.population(ctx, season, minPA)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	out := &LeaguePercentiles{
		Season:  season,
		MinPA:   minPA,
		Players: len(rows),
		Metrics: make(map[batting.StatKey]Distribution, len(batting.PercentileStats)),
	}
	for _, key := range batting.PercentileStats {
		xs := values(rows, key)
		if len(xs) == 0 {
			continue
		}
		out.Metrics[key] = distribution(xs)
	}
	return out, nil
}

func distribution(xs []float64) Distribution {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	q := func(p float64) float64 {
		return quantile(p, sorted)
	}
	return Distribution{
		P10:   q(0.10),
		P25:   q(0.25),
		P50:   q(0.50),
		P75:   q(0.75),
		P90:   q(0.90),
		Mean:  stat.Mean(sorted, nil),
		Std:   stdDev(sorted),
		Count: len(sorted),
	}
}

// percentileIn is the share of population strictly below v, as 0..100.
func percentileIn(population []float64, v float64) int {
	below := 0
	for _, x := range population {
		if x < v {
			below++
		}
	}
	return round(100 * float64(below) / float64(len(population)))
}

// PlayerPercentile ranks value against the season's qualified population.
// Nil when value is nil or nobody qualifies.
func (l *LeagueBaselines) PlayerPercentile(ctx context.Context, value *float64, metric batting.StatKey, season, minPA int) (*int, error) {
	if _, err := batting.ParseStatKey(string(metric)); err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}
	if math.IsNaN(*value) || math.IsInf(*value, 0) {
		return nil, fmt.Errorf("%w: value must be finite", batting.ErrInvalidInput)
	}
	rows, err := l.population(ctx, season, minPA)
	if err != nil {
		return nil, err
	}
	pop := values(rows, metric)
	if len(pop) == 0 {
		return nil, nil
	}
	p := percentileIn(pop, *value)
	return &p, nil
}

// PercentileTier labels a percentile.
func PercentileTier(p int) string {
	switch {
	case p >= 90:
		return TierElite
	case p >= 75:
		return TierAboveAverage
	case p >= 50:
		return TierAverage
	case p >= 25:
		return TierBelowAverage
	default:
		return TierPoor
	}
}

// CompareToLeague ranks a season line against its season's population.
// Metrics the line lacks are left out.
func (l *LeagueBaselines) CompareToLeague(ctx context.Context, line *batting.SeasonStat, minPA int) ([]PercentileRank, error) {
	if line == nil {
		return nil, fmt.Errorf("%w: nil season line", batting.ErrInvalidInput)
	}
	rows, err := l.population(ctx, line.Season, minPA)
	if err != nil {
		return nil, err
	}
	ranks := make([]PercentileRank, 0, len(comparisonStats))
	for _, key := range comparisonStats {
		v := line.Value(key)
		pop := values(rows, key)
		if v == nil || len(pop) == 0 {
			continue
		}
		p := percentileIn(pop, *v)
		ranks = append(ranks, PercentileRank{Metric: key, Value: *v, Percentile: p, Tier: PercentileTier(p)})
	}
	return ranks, nil
}

// RoleCohortStats groups qualified players by usage role. Small cohorts
// are returned as-is; callers check Reliable.
func (l *LeagueBaselines) RoleCohortStats(ctx context.Context, season, minPA int) ([]CohortStats, error) {
	rows, err := l.population(ctx, season, minPA)
	if err != nil {
		return nil, err
	}

	groups := make(map[Role][]batting.SeasonStat)
	for _, r := range rows {
		pred, err := classifyRow(r)
		if err != nil {
			return nil, err
		}
		groups[pred.Role] = append(groups[pred.Role], r)
	}

	out := make([]CohortStats, 0, len(groups))
	for _, role := range Roles {
		members := groups[role]
		if len(members) == 0 {
			continue
		}
		out = append(out, CohortStats{
			Role:        role,
			PlayerCount: len(members),
			WRCPlus:     meanOf(values(members, batting.StatWRCPlus)),
			BABIP:       meanOf(values(members, batting.StatBABIP)),
			BBPct:       meanOf(values(members, batting.StatBBPct)),
			KPct:        meanOf(values(members, batting.StatKPct)),
			ISO:         meanOf(values(members, batting.StatISO)),
		})
	}
	return out, nil
}

// TopPerformers returns up to limit qualified players by wRC+, best first.
func (l *LeagueBaselines) TopPerformers(ctx context.Context, season, minPA, limit int) ([]batting.SeasonStat, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", batting.ErrInvalidInput, limit)
	}
	rows, err := l.population(ctx, season, minPA)
	if err != nil {
		return nil, err
	}
	ranked := make([]batting.SeasonStat, 0, len(rows))
	for _, r := range rows {
		if r.WRCPlus != nil {
			ranked = append(ranked, r)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if *ranked[i].WRCPlus != *ranked[j].WRCPlus {
			return *ranked[i].WRCPlus > *ranked[j].WRCPlus
		}
		return ranked[i].PlayerID < ranked[j].PlayerID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
