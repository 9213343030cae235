package analytics

import (
	"context"
	"fmt"

	"github.com/thatsmyboye/baseball-analytics/internal/batting"
)

const (
	trajectoryMinPA   = batting.MinBaselineSeasonPA
	rollingWindow     = 3
	breakoutLookback  = 3
	breakoutWRCGain   = 20.0
	breakoutMinPA     = 400
	breakoutMaxBABIP  = 0.040
	breakoutHighBABIP = 0.020
	declineMinSeasons = 3
	declineSlope      = -5.0
	peakMinPA         = 200
	atPeakShare       = 0.95
	agingMinPA        = 100
)

// TrajectoryPoint is one season of a career with year-over-year changes
// and trailing three-season means.
type TrajectoryPoint struct {
	batting.SeasonStat

	WRCPlusChange *float64 `json:"wrc_plus_change"`
	BABIPChange   *float64 `json:"babip_change"`
	KPctChange    *float64 `json:"k_pct_change"`
	BBPctChange   *float64 `json:"bb_pct_change"`
	ISOChange     *float64 `json:"iso_change"`

	WRCPlusRolling3 *float64 `json:"wrc_plus_3yr"`
	BABIPRolling3   *float64 `json:"babip_3yr"`
}

// BreakoutResult describes whether a season broke from the prior baseline.
type BreakoutResult struct {
	PlayerID        int     `json:"player_id"`
	Season          int     `json:"season"`
	IsBreakout      bool    `json:"is_breakout"`
	Confidence      string  `json:"confidence"`
	CurrentWRCPlus  float64 `json:"current_wrc_plus"`
	BaselineWRCPlus float64 `json:"baseline_wrc_plus"`
	WRCImprovement  float64 `json:"wrc_improvement"`
	CurrentBABIP    float64 `json:"current_babip"`
	BaselineBABIP   float64 `json:"baseline_babip"`
	BABIPChange     float64 `json:"babip_change"`
	PA              int     `json:"pa"`
	PriorSeasons    int     `json:"prior_seasons"`
}

// DeclineTrend is a least-squares read on the most recent seasons.
type DeclineTrend struct {
	PlayerID      int      `json:"player_id"`
	Seasons       []int    `json:"seasons"`
	YearsAnalyzed int      `json:"years_analyzed"`
	WRCPlusSlope  *float64 `json:"wrc_plus_slope"`
	ISOSlope      *float64 `json:"iso_slope"`
	KPctSlope     *float64 `json:"k_pct_slope"`
	RecentWRCPlus *float64 `json:"recent_avg_wrc_plus"`
	IsDeclining   bool     `json:"is_declining"`
}

// CareerPeak is the best wRC+ season among full-time seasons.
type CareerPeak struct {
	PlayerID       int     `json:"player_id"`
	PeakSeason     int     `json:"peak_season"`
	PeakWRCPlus    float64 `json:"peak_wrc_plus"`
	PeakPA         int     `json:"peak_pa"`
	LatestSeason   int     `json:"latest_season"`
	LatestWRCPlus  float64 `json:"latest_wrc_plus"`
	AtPeak         bool    `json:"at_peak"`
	YearsSincePeak int     `json:"years_since_peak"`
	CareerSeasons  int     `json:"career_seasons"`
}

// AgingPoint is one season of a player's age-indexed performance.
type AgingPoint struct {
	Season  int      `json:"season"`
	Age     int      `json:"age"`
	PA      int      `json:"pa"`
	WRCPlus *float64 `json:"wrc_plus"`
	BABIP   *float64 `json:"babip"`
	ISO     *float64 `json:"iso"`
}

// TrendTracker reads a player's career shape from stored seasons.
type TrendTracker struct {
	store batting.Store
}

func NewTrendTracker(store batting.Store) *TrendTracker {
	return &TrendTracker{store: store}
}

// CareerTrajectory returns seasons with PA >= 50, oldest first.
func (t *TrendTracker) CareerTrajectory(ctx context.Context, playerID int) ([]TrajectoryPoint, error) {
	rows, err := t.store.SeasonStats(ctx, playerID, batting.SeasonRange{}, trajectoryMinPA)
	if err != nil {
		return nil, err
	}
	return buildTrajectory(dedupeSeasons(rows)), nil
}

func buildTrajectory(rows []batting.SeasonStat) []TrajectoryPoint {
	out := make([]TrajectoryPoint, len(rows))
	for i := range rows {
		p := TrajectoryPoint{SeasonStat: rows[i]}
		if i > 0 {
			prev := &rows[i-1]
			p.WRCPlusChange = change(rows[i].WRCPlus, prev.WRCPlus)
			p.BABIPChange = change(rows[i].BABIP, prev.BABIP)
			p.KPctChange = change(rows[i].KPct, prev.KPct)
			p.BBPctChange = change(rows[i].BBPct, prev.BBPct)
			p.ISOChange = change(rows[i].ISO, prev.ISO)
		}
		window := rows[max(0, i-rollingWindow+1) : i+1]
		p.WRCPlusRolling3 = meanOf(values(window, batting.StatWRCPlus))
		p.BABIPRolling3 = meanOf(values(window, batting.StatBABIP))
		out[i] = p
	}
	return out
}

func change(cur, prev *float64) *float64 {
	d, ok := diff(cur, prev)
	if !ok {
		return nil
	}
	return &d
}

// DetectBreakoutSeason compares a season with the mean of up to three
// prior trajectory seasons. Nil when the season is absent, there is no
// prior season, or wRC+/BABIP are unknown.
func (t *TrendTracker) DetectBreakoutSeason(ctx context.Context, playerID, season int) (*BreakoutResult, error) {
	traj, err := t.CareerTrajectory(ctx, playerID)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i := range traj {
		if traj[i].Season == season {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return nil, nil
	}
	cur := traj[idx].SeasonStat
	if cur.WRCPlus == nil || cur.BABIP == nil {
		return nil, nil
	}

	prior := make([]batting.SeasonStat, 0, breakoutLookback)
	for _, p := range traj[max(0, idx-breakoutLookback):idx] {
		prior = append(prior, p.SeasonStat)
	}
	baseWRC := meanOf(values(prior, batting.StatWRCPlus))
	baseBABIP := meanOf(values(prior, batting.StatBABIP))
	if baseWRC == nil || baseBABIP == nil {
		return nil, nil
	}

	r := &BreakoutResult{
		PlayerID:        playerID,
		Season:          season,
		CurrentWRCPlus:  *cur.WRCPlus,
		BaselineWRCPlus: *baseWRC,
		WRCImprovement:  *cur.WRCPlus - *baseWRC,
		CurrentBABIP:    *cur.BABIP,
		BaselineBABIP:   *baseBABIP,
		BABIPChange:     *cur.BABIP - *baseBABIP,
		PA:              cur.PA,
		PriorSeasons:    len(prior),
	}
	r.IsBreakout = r.WRCImprovement >= breakoutWRCGain &&
		cur.PA >= breakoutMinPA &&
		r.BABIPChange < breakoutMaxBABIP
	r.Confidence = ConfidenceMedium
	if r.IsBreakout && r.BABIPChange < breakoutHighBABIP {
		r.Confidence = ConfidenceHigh
	}
	return r, nil
}

// DetectDeclineTrend fits slopes over the last lookbackYears trajectory
// seasons. Nil when the career has fewer than three seasons.
func (t *TrendTracker) DetectDeclineTrend(ctx context.Context, playerID, lookbackYears int) (*DeclineTrend, error) {
	if lookbackYears < 2 {
		return nil, fmt.Errorf("%w: lookback must be at least 2 seasons, got %d", batting.ErrInvalidInput, lookbackYears)
	}
	traj, err := t.CareerTrajectory(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if len(traj) < declineMinSeasons {
		return nil, nil
	}
	recent := traj[max(0, len(traj)-lookbackYears):]

	var (
		seasons        []int
		wrc, iso, kpct []*float64
		rows           []batting.SeasonStat
	)
	for _, p := range recent {
		seasons = append(seasons, p.Season)
		wrc = append(wrc, p.WRCPlus)
		iso = append(iso, p.ISO)
		kpct = append(kpct, p.KPct)
		rows = append(rows, p.SeasonStat)
	}

	d := &DeclineTrend{
		PlayerID:      playerID,
		Seasons:       seasons,
		YearsAnalyzed: len(recent),
		WRCPlusSlope:  slope(wrc),
		ISOSlope:      slope(iso),
		KPctSlope:     slope(kpct),
		RecentWRCPlus: meanOf(values(rows, batting.StatWRCPlus)),
	}
	d.IsDeclining = d.WRCPlusSlope != nil && *d.WRCPlusSlope < declineSlope
	return d, nil
}

// IdentifyCareerPeak finds the highest wRC+ season with PA >= 200. The
// earliest season wins ties.
func (t *TrendTracker) IdentifyCareerPeak(ctx context.Context, playerID int) (*CareerPeak, error) {
	traj, err := t.CareerTrajectory(ctx, playerID)
	if err != nil {
		return nil, err
	}
	var full []batting.SeasonStat
	for _, p := range traj {
		if p.PA >= peakMinPA && p.WRCPlus != nil {
			full = append(full, p.SeasonStat)
		}
	}
	if len(full) == 0 {
		return nil, nil
	}

	peak := full[0]
	for _, s := range full[1:] {
		if *s.WRCPlus > *peak.WRCPlus {
			peak = s
		}
	}
	latest := full[len(full)-1]

	return &CareerPeak{
		PlayerID:       playerID,
		PeakSeason:     peak.Season,
		PeakWRCPlus:    *peak.WRCPlus,
		PeakPA:         peak.PA,
		LatestSeason:   latest.Season,
		LatestWRCPlus:  *latest.WRCPlus,
		AtPeak:         *latest.WRCPlus >= *peak.WRCPlus*atPeakShare,
		YearsSincePeak: latest.Season - peak.Season,
		CareerSeasons:  len(full),
	}, nil
}

// AgingCurve lists PA >= 100 seasons by age. Empty when the birth date is
// unknown or the player does not exist.
func (t *TrendTracker) AgingCurve(ctx context.Context, playerID int) ([]AgingPoint, error) {
	player, err := t.store.Player(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if player == nil || player.BirthDate == nil {
		return []AgingPoint{}, nil
	}
	rows, err := t.store.SeasonStats(ctx, playerID, batting.SeasonRange{}, agingMinPA)
	if err != nil {
		return nil, err
	}

	out := make([]AgingPoint, 0, len(rows))
	for _, r := range dedupeSeasons(rows) {
		age, _ := player.AgeIn(r.Season)
		out = append(out, AgingPoint{
			Season:  r.Season,
			Age:     age,
			PA:      r.PA,
			WRCPlus: r.WRCPlus,
			BABIP:   r.BABIP,
			ISO:     r.ISO,
		})
	}
	return out, nil
}
