package batting

import (
	"context"
	"errors"
)

// ErrInvalidInput marks a caller precondition violation.
var ErrInvalidInput = errors.New("invalid input")

// Store is the read side of the stats database. Missing data is reported
// as a nil record with a nil error; errors are reserved for faults.
type Store interface {
	Player(ctx context.Context, playerID int) (*Player, error)

	// SeasonStat returns the player's line for a season. Multi-team seasons
	// resolve to the row with the most PA.
	SeasonStat(ctx context.Context, playerID, season int) (*SeasonStat, error)

	// SeasonStats returns the player's rows within r with PA >= minPA,
	// ordered by season ascending.
	SeasonStats(ctx context.Context, playerID int, r SeasonRange, minPA int) ([]SeasonStat, error)

	// CareerAggregate averages seasons before beforeSeason with PA >=
	// minPAPerSeason. Nil when the qualifying seasons total fewer than
	// MinCareerPA plate appearances.
	CareerAggregate(ctx context.Context, playerID, beforeSeason, minPAPerSeason int) (*CareerBaseline, error)

	StatcastRecord(ctx context.Context, playerID, season int) (*StatcastRecord, error)

	// CareerStatcastAggregate averages Statcast seasons before beforeSeason
	// with at least minBattedBalls. Nil when fewer than two seasons qualify.
	CareerStatcastAggregate(ctx context.Context, playerID, beforeSeason, minBattedBalls int) (*StatcastBaseline, error)

	// LeagueRows returns every row for the season with PA >= minPA.
	LeagueRows(ctx context.Context, season, minPA int) ([]SeasonStat, error)
}
