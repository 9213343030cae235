package analytics

import (
	"context"
	"sort"

	"github.com/thatsmyboye/baseball-analytics/internal/batting"
)

const reportPercentileMinPA = 100

// CareerContext summarizes every season through the report season.
type CareerContext struct {
	Seasons     int      `json:"seasons"`
	CareerPA    int      `json:"career_pa"`
	MeanWRCPlus *float64 `json:"avg_wrc_plus"`
	Debut       int      `json:"debut"`
	Through     int      `json:"through"`
}

// PlayerReport is the combined read on one player-season.
type PlayerReport struct {
	PlayerID    int                `json:"player_id"`
	Name        string             `json:"name,omitempty"`
	Season      int                `json:"season"`
	Line        batting.SeasonStat `json:"season_line"`
	Role        *RolePrediction    `json:"role"`
	Percentiles []PercentileRank   `json:"percentiles"`
	Regression  *SeasonAnalysis    `json:"regression"`
	Career      CareerContext      `json:"career"`
}

// Reporter assembles player reports from the other components.
type Reporter struct {
	store     batting.Store
	statcast  *StatcastAnalyzer
	baselines *LeagueBaselines
}

func NewReporter(store batting.Store, statcast *StatcastAnalyzer, baselines *LeagueBaselines) *Reporter {
	return &Reporter{store: store, statcast: statcast, baselines: baselines}
}

// Build returns nil when the player has no row for season. Regression is
// nil when the career baseline is insufficient.
func (r *Reporter) Build(ctx context.Context, playerID, season int) (*PlayerReport, error) {
	line, err := r.store.SeasonStat(ctx, playerID, season)
	if err != nil || line == nil {
		return nil, err
	}

	role, err := classifyRow(*line)
	if err != nil {
		return nil, err
	}

	ranks, err := r.baselines.CompareToLeague(ctx, line, reportPercentileMinPA)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].Percentile > ranks[j].Percentile })

	analysis, err := r.statcast.AnalyzePlayerSeason(ctx, playerID, season)
	if err != nil {
		return nil, err
	}

	history, err := r.store.SeasonStats(ctx, playerID, batting.SeasonRange{To: season}, 0)
	if err != nil {
		return nil, err
	}

	return &PlayerReport{
		PlayerID:    playerID,
		Name:        line.Name,
		Season:      season,
		Line:        *line,
		Role:        role,
		Percentiles: ranks,
		Regression:  analysis,
		Career:      careerContext(dedupeSeasons(history)),
	}, nil
}

func careerContext(rows []batting.SeasonStat) CareerContext {
	c := CareerContext{Seasons: len(rows)}
	if len(rows) == 0 {
		return c
	}
	for _, r := range rows {
		c.CareerPA += r.PA
	}
	c.MeanWRCPlus = meanOf(values(rows, batting.StatWRCPlus))
	c.Debut = rows[0].Season
	c.Through = rows[len(rows)-1].Season
	return c
}
