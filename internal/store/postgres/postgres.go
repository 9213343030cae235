// Package postgres implements batting.Store on top of the pgx pool. Every
// query runs through a circuit breaker and a per-query timeout so a sick
// database fails fast instead of stalling a batch scan.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sony/gobreaker"

	"github.com/thatsmyboye/baseball-analytics/internal/batting"
	"github.com/thatsmyboye/baseball-analytics/internal/config"
	"github.com/thatsmyboye/baseball-analytics/internal/db"
)

// maxSeason stands in for an open upper bound on season ranges.
const maxSeason = 9999

// Store reads batting data through prepared statements.
type Store struct {
	pool    *pgxpool.Pool
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

var _ batting.Store = (*Store)(nil)

// New builds a Store over pool using the breaker and timeout settings in cfg.
func New(pool *pgxpool.Pool, cfg *config.Config, logger *slog.Logger) *Store {
	return &Store{
		pool:    pool,
		breaker: newBreaker(cfg, logger),
		timeout: cfg.DBQueryTimeout,
	}
}

func newBreaker(cfg *config.Config, logger *slog.Logger) *gobreaker.CircuitBreaker {
	minRequests := uint32(cfg.BreakerMinRequests)
	ratio := cfg.BreakerFailureRatio
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "stats-store",
		MaxRequests: uint32(cfg.BreakerMaxRequests),
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// BreakerState reports the current breaker state for health checks.
func (s *Store) BreakerState() string {
	return s.breaker.State().String()
}

// guard runs fn behind the breaker with the store's query timeout.
// pgx.ErrNoRows is translated to a zero value and never counts as a failure.
func guard[T any](ctx context.Context, s *Store, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	out, err := s.breaker.Execute(func() (interface{}, error) {
		qctx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			qctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		v, err := fn(qctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, nil
		}
		return v, err
	})
	if err != nil {
		return zero, fmt.Errorf("%s: %w", op, err)
	}
	return out.(T), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeason(row rowScanner) (batting.SeasonStat, error) {
	var s batting.SeasonStat
	err := row.Scan(
		&s.PlayerID, &s.Name, &s.Season, &s.Team, &s.Games, &s.PA, &s.AB, &s.Hits,
		&s.HR, &s.RBI, &s.BB, &s.SO,
		&s.AVG, &s.OBP, &s.SLG, &s.WOBA, &s.WRCPlus, &s.BABIP, &s.KPct, &s.BBPct,
		&s.ISO, &s.GBPct, &s.FBPct, &s.LDPct, &s.HRFBPct,
	)
	return s, err
}

func (s *Store) Player(ctx context.Context, playerID int) (*batting.Player, error) {
	return guard(ctx, s, "query player", func(ctx context.Context) (*batting.Player, error) {
		var (
			p     batting.Player
			birth pgtype.Date
		)
		if err := s.pool.QueryRow(ctx, db.StmtPlayer, playerID).Scan(&p.ID, &p.Name, &birth); err != nil {
			return nil, err
		}
		if birth.Valid {
			t := birth.Time
			p.BirthDate = &t
		}
		return &p, nil
	})
}

func (s *Store) SeasonStat(ctx context.Context, playerID, season int) (*batting.SeasonStat, error) {
	return guard(ctx, s, "query season stat", func(ctx context.Context) (*batting.SeasonStat, error) {
		stat, err := scanSeason(s.pool.QueryRow(ctx, db.StmtSeasonStat, playerID, season))
		if err != nil {
			return nil, err
		}
		return &stat, nil
	})
}

func (s *Store) SeasonStats(ctx context.Context, playerID int, r batting.SeasonRange, minPA int) ([]batting.SeasonStat, error) {
	to := r.To
	if to == 0 {
		to = maxSeason
	}
	return guard(ctx, s, "query season stats", func(ctx context.Context) ([]batting.SeasonStat, error) {
		return s.querySeasons(ctx, db.StmtSeasonStats, playerID, r.From, to, minPA)
	})
}

func (s *Store) LeagueRows(ctx context.Context, season, minPA int) ([]batting.SeasonStat, error) {
	return guard(ctx, s, "query league rows", func(ctx context.Context) ([]batting.SeasonStat, error) {
		return s.querySeasons(ctx, db.StmtLeagueRows, season, minPA)
	})
}

func (s *Store) querySeasons(ctx context.Context, stmt string, args ...any) ([]batting.SeasonStat, error) {
	rows, err := s.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []batting.SeasonStat
	for rows.Next() {
		stat, err := scanSeason(rows)
		if err != nil {
			return nil, fmt.Errorf("scan season row: %w", err)
		}
		out = append(out, stat)
	}
	return out, rows.Err()
}

func (s *Store) CareerAggregate(ctx context.Context, playerID, beforeSeason, minPAPerSeason int) (*batting.CareerBaseline, error) {
	return guard(ctx, s, "query career aggregate", func(ctx context.Context) (*batting.CareerBaseline, error) {
		var b batting.CareerBaseline
		err := s.pool.QueryRow(ctx, db.StmtCareerAggregate,
			playerID, beforeSeason, minPAPerSeason, batting.MinCareerPA).
			Scan(&b.BABIP, &b.BBPct, &b.KPct, &b.ISO, &b.HRFBPct, &b.WRCPlus, &b.TotalPA, &b.Seasons)
		if err != nil {
			return nil, err
		}
		return &b, nil
	})
}

func (s *Store) StatcastRecord(ctx context.Context, playerID, season int) (*batting.StatcastRecord, error) {
	return guard(ctx, s, "query statcast record", func(ctx context.Context) (*batting.StatcastRecord, error) {
		var r batting.StatcastRecord
		err := s.pool.QueryRow(ctx, db.StmtStatcastRecord, playerID, season).Scan(
			&r.PlayerID, &r.Season, &r.ExitVelo, &r.HardHitPct, &r.BarrelPct,
			&r.SweetSpotPct, &r.XBA, &r.XSLG, &r.XWOBA, &r.BattedBalls)
		if err != nil {
			return nil, err
		}
		return &r, nil
	})
}

func (s *Store) CareerStatcastAggregate(ctx context.Context, playerID, beforeSeason, minBattedBalls int) (*batting.StatcastBaseline, error) {
	return guard(ctx, s, "query career statcast", func(ctx context.Context) (*batting.StatcastBaseline, error) {
		var b batting.StatcastBaseline
		err := s.pool.QueryRow(ctx, db.StmtCareerStatcast,
			playerID, beforeSeason, minBattedBalls, batting.MinStatcastSeasons).
			Scan(&b.ExitVelo, &b.HardHitPct, &b.BarrelPct, &b.SweetSpotPct, &b.Seasons)
		if err != nil {
			return nil, err
		}
		return &b, nil
	})
}
