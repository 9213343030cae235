package analytics

import (
	"context"
	"fmt"

	"github.com/thatsmyboye/baseball-analytics/internal/batting"
)

// Role is a playing-time usage category.
type Role string

const (
	RoleEverydayRegular        Role = "EVERYDAY_REGULAR"
	RoleEverydayPlatoonLeaning Role = "EVERYDAY_PLATOON_LEANING"
	RoleStrongSidePlatoon      Role = "STRONG_SIDE_PLATOON"
	RoleHighLeverageRolePlayer Role = "HIGH_LEVERAGE_ROLE_PLAYER"
	RoleRotationalRegular      Role = "ROTATIONAL_REGULAR"
	RoleDefensiveReplacement   Role = "DEFENSIVE_REPLACEMENT"
	RoleBenchBat               Role = "BENCH_BAT"
	RoleUtilityDepth           Role = "UTILITY_DEPTH"
	RoleFringeRoster           Role = "FRINGE_ROSTER"
)

// Roles lists every role in descending usage order.
var Roles = []Role{
	RoleEverydayRegular,
	RoleEverydayPlatoonLeaning,
	RoleStrongSidePlatoon,
	RoleHighLeverageRolePlayer,
	RoleRotationalRegular,
	RoleDefensiveReplacement,
	RoleBenchBat,
	RoleUtilityDepth,
	RoleFringeRoster,
}

var roleInfo = map[Role]struct {
	description string
	rank        int
}{
	RoleEverydayRegular:        {"Regular starter playing full time", 3},
	RoleEverydayPlatoonLeaning: {"Everyday player with platoon tendencies", 3},
	RoleStrongSidePlatoon:      {"Platoon player getting most PAs vs one handedness", 2},
	RoleHighLeverageRolePlayer: {"Regular playing time in high-leverage situations", 1},
	RoleRotationalRegular:      {"Regular rotation, not quite everyday", 2},
	RoleDefensiveReplacement:   {"Primarily used for defensive purposes", 1},
	RoleBenchBat:               {"Primarily pinch-hitting role", 1},
	RoleUtilityDepth:           {"Sporadic playing time, multiple positions", 1},
	RoleFringeRoster:           {"Minimal playing time", 0},
}

// Description returns a short human-readable summary of the role.
func (r Role) Description() string {
	return roleInfo[r].description
}

// UsageRank orders roles by playing time: fringe 0, depth 1, rotational 2,
// everyday 3.
func (r Role) UsageRank() int {
	return roleInfo[r].rank
}

// RolePrediction is the role assigned to one player-season.
type RolePrediction struct {
	PlayerID       int     `json:"player_id"`
	Name           string  `json:"name,omitempty"`
	Season         int     `json:"season"`
	Role           Role    `json:"role"`
	Description    string  `json:"description"`
	Confidence     float64 `json:"confidence"`
	PAPerTeamGame  float64 `json:"pa_per_team_game"`
	GamesPlayedPct float64 `json:"games_played_pct"`
	AvgPAPerGame   float64 `json:"avg_pa_per_game"`
	GamesPlayed    int     `json:"games_played"`
	PA             int     `json:"pa"`
	TeamGames      int     `json:"team_games"`
}

// ClassifySeason applies the usage decision list; the first matching rule wins.
func ClassifySeason(playerID, season, gamesPlayed, pa, teamGames int) (*RolePrediction, error) {
	if teamGames <= 0 {
		return nil, fmt.Errorf("%w: team games must be positive, got %d", batting.ErrInvalidInput, teamGames)
	}
	if gamesPlayed < 0 || pa < 0 {
		return nil, fmt.Errorf("%w: games (%d) and PA (%d) must not be negative",
			batting.ErrInvalidInput, gamesPlayed, pa)
	}

	paRate := float64(pa) / float64(teamGames)
	gpRate := float64(gamesPlayed) / float64(teamGames)

	var (
		role Role
		conf float64
	)
	switch {
	case paRate >= 3.5 && gpRate >= 0.75:
		role, conf = RoleEverydayRegular, 0.95
	case paRate >= 3.0 && gpRate >= 0.65:
		role, conf = RoleEverydayRegular, 0.90
	case paRate >= 2.0:
		role, conf = RoleRotationalRegular, 0.85
	case paRate >= 1.0 && gpRate < 0.25:
		role, conf = RoleDefensiveReplacement, 0.75
	case paRate >= 1.0:
		role, conf = RoleUtilityDepth, 0.75
	default:
		role, conf = RoleFringeRoster, 0.90
	}

	p := &RolePrediction{
		PlayerID:       playerID,
		Season:         season,
		Role:           role,
		Description:    role.Description(),
		Confidence:     conf,
		PAPerTeamGame:  roundTo(paRate, 3),
		GamesPlayedPct: roundTo(gpRate, 3),
		GamesPlayed:    gamesPlayed,
		PA:             pa,
		TeamGames:      teamGames,
	}
	if gamesPlayed > 0 {
		p.AvgPAPerGame = roundTo(float64(pa)/float64(gamesPlayed), 2)
	}
	return p, nil
}

// RoleClassifier classifies stored seasons.
type RoleClassifier struct {
	store batting.Store
}

func NewRoleClassifier(store batting.Store) *RoleClassifier {
	return &RoleClassifier{store: store}
}

func classifyRow(row batting.SeasonStat) (*RolePrediction, error) {
	p, err := ClassifySeason(row.PlayerID, row.Season, row.Games, row.PA, batting.TeamGames(row.Season))
	if err != nil {
		return nil, err
	}
	p.Name = row.Name
	return p, nil
}

// ClassifyPlayerSeason classifies one stored season. Nil when the row is missing.
func (c *RoleClassifier) ClassifyPlayerSeason(ctx context.Context, playerID, season int) (*RolePrediction, error) {
	row, err := c.store.SeasonStat(ctx, playerID, season)
	if err != nil || row == nil {
		return nil, err
	}
	return classifyRow(*row)
}

// ClassifyPlayer classifies every stored season of a player, oldest first.
func (c *RoleClassifier) ClassifyPlayer(ctx context.Context, playerID int) ([]RolePrediction, error) {
	rows, err := c.store.SeasonStats(ctx, playerID, batting.SeasonRange{}, 0)
	if err != nil {
		return nil, err
	}
	return classifyRows(dedupeSeasons(rows))
}

// ClassifyLeague classifies every player with at least minPA in the season.
func (c *RoleClassifier) ClassifyLeague(ctx context.Context, season, minPA int) ([]RolePrediction, error) {
	rows, err := c.store.LeagueRows(ctx, season, minPA)
	if err != nil {
		return nil, err
	}
	return classifyRows(dedupePlayers(rows))
}

func classifyRows(rows []batting.SeasonStat) ([]RolePrediction, error) {
	out := make([]RolePrediction, 0, len(rows))
	for _, row := range rows {
		p, err := classifyRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}
