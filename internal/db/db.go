// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thatsmyboye/baseball-analytics/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, StmtHealthCheck).Scan(&n)
}

// Prepared statement names.
const (
	StmtHealthCheck     = "health_check"
	StmtPlayer          = "player_by_id"
	StmtSeasonStat      = "season_stat"
	StmtSeasonStats     = "season_stats_range"
	StmtCareerAggregate = "career_aggregate"
	StmtStatcastRecord  = "statcast_record"
	StmtCareerStatcast  = "career_statcast_aggregate"
	StmtLeagueRows      = "league_rows"
)

// Rate columns are cast to float8 so NUMERIC and REAL schemas scan alike.
const (
	seasonColumns   = `s.player_id, p.name, s.season, COALESCE(s.team, ''), s.games, s.pa, s.ab, s.hits, s.hr, s.rbi, s.bb, s.so, s.avg::float8, s.obp::float8, s.slg::float8, s.woba::float8, s.wrc_plus::float8, s.babip::float8, s.k_pct::float8, s.bb_pct::float8, s.iso::float8, s.gb_pct::float8, s.fb_pct::float8, s.ld_pct::float8, s.hr_fb_pct::float8`
	seasonFrom      = ` FROM season_stats s JOIN players p ON p.player_id = s.player_id`
	statcastColumns = `player_id, season, exit_velo::float8, hard_hit_pct::float8, barrel_pct::float8, sweet_spot_pct::float8, xba::float8, xslg::float8, xwoba::float8, COALESCE(batted_balls, 0)`
)

// Statements returns the SQL registered on every connection, keyed by name.
func Statements() map[string]string {
	return map[string]string{
		StmtHealthCheck: "SELECT 1",

		StmtPlayer: "SELECT player_id, name, birth_date FROM players WHERE player_id = $1",

		// Highest-PA row wins so multi-team seasons resolve to the combined line.
		StmtSeasonStat: "SELECT " + seasonColumns + seasonFrom +
			" WHERE s.player_id = $1 AND s.season = $2 ORDER BY s.pa DESC LIMIT 1",

		StmtSeasonStats: "SELECT " + seasonColumns + seasonFrom +
			" WHERE s.player_id = $1 AND s.season BETWEEN $2 AND $3 AND s.pa >= $4 ORDER BY s.season, s.pa DESC",

		StmtCareerAggregate: `SELECT AVG(babip)::float8, AVG(bb_pct)::float8, AVG(k_pct)::float8,
			AVG(iso)::float8, AVG(hr_fb_pct)::float8, AVG(wrc_plus)::float8,
			SUM(pa)::int, COUNT(*)::int
			FROM season_stats
			WHERE player_id = $1 AND season < $2 AND pa >= $3
			HAVING SUM(pa) >= $4`,

		StmtStatcastRecord: "SELECT " + statcastColumns +
			" FROM statcast_data WHERE player_id = $1 AND season = $2",

		StmtCareerStatcast: `SELECT AVG(exit_velo)::float8, AVG(hard_hit_pct)::float8,
			AVG(barrel_pct)::float8, AVG(sweet_spot_pct)::float8, COUNT(*)::int
			FROM statcast_data
			WHERE player_id = $1 AND season < $2 AND batted_balls >= $3
			HAVING COUNT(*) >= $4`,

		StmtLeagueRows: "SELECT " + seasonColumns + seasonFrom +
			" WHERE s.season = $1 AND s.pa >= $2 ORDER BY s.player_id, s.pa DESC",
	}
}

// registerPreparedStatements registers every statement the store uses.
// Prepared statements eliminate parse overhead on every request.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	for name, sql := range Statements() {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
