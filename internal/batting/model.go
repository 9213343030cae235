// Package batting holds the store-facing batting records shared by the
// analytics engine, the Postgres store and the HTTP layer.
package batting

import (
	"fmt"
	"time"
)

// Career and sample-size thresholds used across the engine.
const (
	MinCareerPA          = 200 // cumulative prior PA for a valid career baseline
	MinBaselineSeasonPA  = 50  // per-season PA to count toward a career baseline
	MinBattedBalls       = 50  // per-season batted balls for a Statcast baseline
	MinStatcastSeasons   = 2
	LeagueAverageMinPA   = 100
	RegularSeasonGames   = 162
	ShortenedSeasonGames = 60
	ShortenedSeason      = 2020
)

// TeamGames returns the schedule length for a season. 2020 was cut to 60 games.
func TeamGames(season int) int {
	if season == ShortenedSeason {
		return ShortenedSeasonGames
	}
	return RegularSeasonGames
}

// Player is a batter with an optional birth date.
type Player struct {
	ID        int        `json:"player_id"`
	Name      string     `json:"name"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
}

// AgeIn returns the player's age for a season as season minus birth year.
// ok is false when the birth date is unknown.
func (p *Player) AgeIn(season int) (age int, ok bool) {
	if p == nil || p.BirthDate == nil {
		return 0, false
	}
	return season - p.BirthDate.Year(), true
}

// SeasonStat is one (player, season, team) batting line. Rate stats are nil
// when undefined. Percent stats are percentage points (22.5 means 22.5%).
type SeasonStat struct {
	PlayerID int    `json:"player_id"`
	Name     string `json:"name,omitempty"`
	Season   int    `json:"season"`
	Team     string `json:"team,omitempty"`

	Games int `json:"games"`
	PA    int `json:"pa"`
	AB    int `json:"ab"`
	Hits  int `json:"hits"`
	HR    int `json:"hr"`
	RBI   int `json:"rbi"`
	BB    int `json:"bb"`
	SO    int `json:"so"`

	AVG     *float64 `json:"avg"`
	OBP     *float64 `json:"obp"`
	SLG     *float64 `json:"slg"`
	WOBA    *float64 `json:"woba"`
	WRCPlus *float64 `json:"wrc_plus"`
	BABIP   *float64 `json:"babip"`
	KPct    *float64 `json:"k_pct"`
	BBPct   *float64 `json:"bb_pct"`
	ISO     *float64 `json:"iso"`
	GBPct   *float64 `json:"gb_pct"`
	FBPct   *float64 `json:"fb_pct"`
	LDPct   *float64 `json:"ld_pct"`
	HRFBPct *float64 `json:"hr_fb_pct"`
}

// Validate checks the counting-stat invariant PA >= AB >= hits >= 0.
func (s *SeasonStat) Validate() error {
	if s.Hits < 0 || s.AB < s.Hits || s.PA < s.AB {
		return fmt.Errorf("%w: player %d season %d: pa=%d ab=%d hits=%d",
			ErrInvalidInput, s.PlayerID, s.Season, s.PA, s.AB, s.Hits)
	}
	if s.Games < 0 {
		return fmt.Errorf("%w: player %d season %d: negative games", ErrInvalidInput, s.PlayerID, s.Season)
	}
	return nil
}

// StatKey names a rate stat on SeasonStat.
type StatKey string

const (
	StatAVG     StatKey = "avg"
	StatOBP     StatKey = "obp"
	StatSLG     StatKey = "slg"
	StatWOBA    StatKey = "woba"
	StatWRCPlus StatKey = "wrc_plus"
	StatBABIP   StatKey = "babip"
	StatBBPct   StatKey = "bb_pct"
	StatKPct    StatKey = "k_pct"
	StatISO     StatKey = "iso"
	StatHRFBPct StatKey = "hr_fb_pct"
)

// PercentileStats are the metrics league distributions are built for.
var PercentileStats = []StatKey{
	StatAVG, StatOBP, StatSLG, StatWOBA, StatWRCPlus,
	StatBABIP, StatBBPct, StatKPct, StatISO, StatHRFBPct,
}

// ParseStatKey validates a metric name.
func ParseStatKey(s string) (StatKey, error) {
	for _, k := range PercentileStats {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown metric %q", ErrInvalidInput, s)
}

// Value returns the rate stat for key, or nil when unset or unknown.
func (s *SeasonStat) Value(key StatKey) *float64 {
	switch key {
	case StatAVG:
		return s.AVG
	case StatOBP:
		return s.OBP
	case StatSLG:
		return s.SLG
	case StatWOBA:
		return s.WOBA
	case StatWRCPlus:
		return s.WRCPlus
	case StatBABIP:
		return s.BABIP
	case StatBBPct:
		return s.BBPct
	case StatKPct:
		return s.KPct
	case StatISO:
		return s.ISO
	case StatHRFBPct:
		return s.HRFBPct
	}
	return nil
}

// StatcastRecord is one player-season of batted-ball quality data (2015+).
type StatcastRecord struct {
	PlayerID     int      `json:"player_id"`
	Season       int      `json:"season"`
	ExitVelo     *float64 `json:"exit_velo"`
	HardHitPct   *float64 `json:"hard_hit_pct"`
	BarrelPct    *float64 `json:"barrel_pct"`
	SweetSpotPct *float64 `json:"sweet_spot_pct"`
	XBA          *float64 `json:"xba"`
	XSLG         *float64 `json:"xslg"`
	XWOBA        *float64 `json:"xwoba"`
	BattedBalls  int      `json:"batted_balls"`
}

// CareerBaseline is the mean of a player's prior qualifying seasons.
type CareerBaseline struct {
	BABIP   *float64 `json:"babip"`
	BBPct   *float64 `json:"bb_pct"`
	KPct    *float64 `json:"k_pct"`
	ISO     *float64 `json:"iso"`
	HRFBPct *float64 `json:"hr_fb_pct"`
	WRCPlus *float64 `json:"wrc_plus"`
	TotalPA int      `json:"total_pa"`
	Seasons int      `json:"seasons"`
}

// Sufficient reports whether the baseline carries enough career PA.
func (b *CareerBaseline) Sufficient() bool {
	return b != nil && b.TotalPA >= MinCareerPA
}

// StatcastBaseline is the mean of a player's prior qualifying Statcast seasons.
type StatcastBaseline struct {
	ExitVelo     *float64 `json:"exit_velo"`
	HardHitPct   *float64 `json:"hard_hit_pct"`
	BarrelPct    *float64 `json:"barrel_pct"`
	SweetSpotPct *float64 `json:"sweet_spot_pct"`
	Seasons      int      `json:"seasons"`
}

// SeasonRange bounds a season query. Zero means unbounded on that side.
type SeasonRange struct {
	From int
	To   int
}

// Contains reports whether season falls inside the range.
func (r SeasonRange) Contains(season int) bool {
	if r.From != 0 && season < r.From {
		return false
	}
	if r.To != 0 && season > r.To {
		return false
	}
	return true
}

// Float returns a pointer to v. Handy for fixtures.
func Float(v float64) *float64 { return &v }
