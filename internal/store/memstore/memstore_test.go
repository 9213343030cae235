package memstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsmyboye/baseball-analytics/internal/batting"
)

const fixture = `{
  "players": [{"player_id": 1, "name": "Ada Fielder", "birth_date": "1995-04-02T00:00:00Z"}],
  "seasons": [
    {"player_id": 1, "season": 2023, "games": 140, "pa": 560, "ab": 500, "hits": 140, "babip": 0.31},
    {"player_id": 1, "season": 2024, "games": 150, "pa": 600, "ab": 540, "hits": 160, "babip": 0.35},
    {"player_id": 2, "season": 2024, "games": 40, "pa": 90, "ab": 80, "hits": 20}
  ],
  "statcast": [{"player_id": 1, "season": 2024, "exit_velo": 91.2, "batted_balls": 400}]
}`

func TestLoad(t *testing.T) {
	s, err := Load(strings.NewReader(fixture))
	require.NoError(t, err)
	ctx := context.Background()

	p, err := s.Player(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, p)
	age, ok := p.AgeIn(2024)
	require.True(t, ok)
	assert.Equal(t, 29, age)

	line, err := s.SeasonStat(ctx, 1, 2024)
	require.NoError(t, err)
	require.NotNil(t, line)
	assert.Equal(t, 600, line.PA)

	rows, err := s.LeagueRows(ctx, 2024, 100)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rec, err := s.StatcastRecord(ctx, 1, 2024)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 400, rec.BattedBalls)
}

func TestLoadRejectsInvalidLine(t *testing.T) {
	_, err := Load(strings.NewReader(`{"seasons":[{"player_id":1,"season":2024,"pa":10,"ab":20,"hits":5}]}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, batting.ErrInvalidInput))
}

func TestCareerAggregateExcludesSeasonAndThinYears(t *testing.T) {
	s := New()
	s.AddSeason(batting.SeasonStat{PlayerID: 1, Season: 2021, PA: 300, BABIP: batting.Float(0.280)})
	s.AddSeason(batting.SeasonStat{PlayerID: 1, Season: 2022, PA: 30, BABIP: batting.Float(0.500)})
	s.AddSeason(batting.SeasonStat{PlayerID: 1, Season: 2023, PA: 300, BABIP: batting.Float(0.320)})
	s.AddSeason(batting.SeasonStat{PlayerID: 1, Season: 2024, PA: 300, BABIP: batting.Float(0.400)})

	b, err := s.CareerAggregate(context.Background(), 1, 2024, batting.MinBaselineSeasonPA)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, 600, b.TotalPA)
	assert.Equal(t, 2, b.Seasons)
	assert.InDelta(t, 0.300, *b.BABIP, 1e-9)
}

func TestFailWith(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.FailWith(boom)

	_, err := s.LeagueRows(context.Background(), 2024, 0)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), s.LeagueQueries())

	s.FailWith(nil)
	_, err = s.LeagueRows(context.Background(), 2024, 0)
	assert.NoError(t, err)
}
