package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsmyboye/baseball-analytics/internal/batting"
	"github.com/thatsmyboye/baseball-analytics/internal/config"
	"github.com/thatsmyboye/baseball-analytics/internal/db"
)

func testConfig() *config.Config {
	return &config.Config{
		DBQueryTimeout:      time.Second,
		BreakerMaxRequests:  1,
		BreakerInterval:     time.Minute,
		BreakerTimeout:      time.Minute,
		BreakerFailureRatio: 0.5,
		BreakerMinRequests:  2,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGuardTreatsNoRowsAsMissing(t *testing.T) {
	s := New(nil, testConfig(), quietLogger())

	for i := 0; i < 5; i++ {
		p, err := guard(context.Background(), s, "query player", func(ctx context.Context) (*batting.Player, error) {
			return nil, pgx.ErrNoRows
		})
		require.NoError(t, err)
		assert.Nil(t, p)
	}
	assert.Equal(t, gobreaker.StateClosed.String(), s.BreakerState())
}

func TestGuardOpensAfterFailures(t *testing.T) {
	s := New(nil, testConfig(), quietLogger())
	boom := errors.New("connection refused")

	for i := 0; i < 2; i++ {
		_, err := guard(context.Background(), s, "query league rows", func(ctx context.Context) ([]batting.SeasonStat, error) {
			return nil, boom
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "query league rows")
	}

	_, err := guard(context.Background(), s, "query league rows", func(ctx context.Context) ([]batting.SeasonStat, error) {
		t.Fatal("query must not run while the breaker is open")
		return nil, nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestGuardAppliesTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.DBQueryTimeout = 10 * time.Millisecond
	s := New(nil, cfg, quietLogger())

	_, err := guard(context.Background(), s, "query player", func(ctx context.Context) (*batting.Player, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStatementsCoverStore(t *testing.T) {
	stmts := db.Statements()
	for _, name := range []string{
		db.StmtPlayer, db.StmtSeasonStat, db.StmtSeasonStats, db.StmtCareerAggregate,
		db.StmtStatcastRecord, db.StmtCareerStatcast, db.StmtLeagueRows, db.StmtHealthCheck,
	} {
		assert.Contains(t, stmts, name)
	}
}

func TestStoreIntegration(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Integration test - requires PostgreSQL (set TEST_DATABASE_URL)")
	}

	cfg := testConfig()
	cfg.DatabaseURL = url
	cfg.DBPoolMinConns = 1
	cfg.DBPoolMaxConns = 2
	cfg.DBPoolMaxLife = time.Minute

	ctx := context.Background()
	pool, err := db.New(ctx, cfg)
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, pool.HealthCheck(ctx))

	s := New(pool.Pool, cfg, quietLogger())

	missing, err := s.Player(ctx, -1)
	require.NoError(t, err)
	assert.Nil(t, missing)

	baseline, err := s.CareerAggregate(ctx, -1, 2024, batting.MinBaselineSeasonPA)
	require.NoError(t, err)
	assert.Nil(t, baseline)

	rows, err := s.LeagueRows(ctx, 2024, 100)
	require.NoError(t, err)
	for _, r := range rows {
		assert.GreaterOrEqual(t, r.PA, 100)
		assert.Equal(t, 2024, r.Season)
	}
}
