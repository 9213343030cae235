package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsmyboye/baseball-analytics/internal/batting"
	"github.com/thatsmyboye/baseball-analytics/internal/store/memstore"
)

func TestClassifySeason(t *testing.T) {
	tests := []struct {
		name      string
		games, pa int
		teamGames int
		wantRole  Role
		wantConf  float64
	}{
		{"full-time regular", 150, 620, 162, RoleEverydayRegular, 0.95},
		{"lighter regular", 140, 500, 162, RoleEverydayRegular, 0.90},
		{"rotational", 100, 400, 162, RoleRotationalRegular, 0.85},
		{"late-inning defense", 30, 200, 162, RoleDefensiveReplacement, 0.75},
		{"utility", 80, 200, 162, RoleUtilityDepth, 0.75},
		{"fringe", 20, 50, 162, RoleFringeRoster, 0.90},
		{"shortened season regular", 55, 220, 60, RoleEverydayRegular, 0.95},
		{"no playing time", 0, 0, 162, RoleFringeRoster, 0.90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ClassifySeason(1, 2024, tt.games, tt.pa, tt.teamGames)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, p.Role)
			assert.Equal(t, tt.wantConf, p.Confidence)
			assert.NotEmpty(t, p.Description)
		})
	}
}

func TestClassifySeasonRates(t *testing.T) {
	p, err := ClassifySeason(7, 2024, 150, 620, 162)
	require.NoError(t, err)
	assert.Equal(t, 3.827, p.PAPerTeamGame)
	assert.Equal(t, 0.926, p.GamesPlayedPct)
	assert.Equal(t, 4.13, p.AvgPAPerGame)
	assert.Equal(t, 162, p.TeamGames)

	p, err = ClassifySeason(7, 2024, 0, 0, 162)
	require.NoError(t, err)
	assert.Zero(t, p.AvgPAPerGame)
}

func TestClassifySeasonInvalid(t *testing.T) {
	_, err := ClassifySeason(1, 2024, 10, 40, 0)
	assert.ErrorIs(t, err, batting.ErrInvalidInput)

	_, err = ClassifySeason(1, 2024, -1, 40, 162)
	assert.ErrorIs(t, err, batting.ErrInvalidInput)
}

func TestClassifySeasonUsageMonotonic(t *testing.T) {
	for _, games := range []int{10, 40, 80, 120, 160} {
		prev := -1
		for pa := 0; pa <= 750; pa += 10 {
			p, err := ClassifySeason(1, 2024, games, pa, 162)
			require.NoError(t, err)
			rank := p.Role.UsageRank()
			assert.GreaterOrEqual(t, rank, prev, "games=%d pa=%d role=%s", games, pa, p.Role)
			prev = rank
		}
	}
}

func TestRoleDescriptions(t *testing.T) {
	assert.Equal(t, "Regular starter playing full time", RoleEverydayRegular.Description())
	assert.Equal(t, "Primarily pinch-hitting role", RoleBenchBat.Description())
	assert.Equal(t, "Minimal playing time", RoleFringeRoster.Description())
	for _, role := range Roles {
		assert.NotEmpty(t, role.Description(), role)
	}
}

func TestRoleClassifierFromStore(t *testing.T) {
	s := memstore.New()
	short := seasonLine(1, 2020, 220)
	short.Games = 55
	s.AddSeason(short)
	s.AddSeason(seasonLine(1, 2021, 620))
	bench := seasonLine(2, 2021, 120)
	bench.Games = 60
	s.AddSeason(bench)

	c := NewRoleClassifier(s)
	ctx := context.Background()

	p, err := c.ClassifyPlayerSeason(ctx, 1, 2020)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 60, p.TeamGames)
	assert.Equal(t, RoleEverydayRegular, p.Role)
	assert.Equal(t, "Player 1", p.Name)

	p, err = c.ClassifyPlayerSeason(ctx, 1, 2019)
	require.NoError(t, err)
	assert.Nil(t, p)

	career, err := c.ClassifyPlayer(ctx, 1)
	require.NoError(t, err)
	require.Len(t, career, 2)
	assert.Equal(t, 2020, career[0].Season)
	assert.Equal(t, 2021, career[1].Season)

	league, err := c.ClassifyLeague(ctx, 2021, 100)
	require.NoError(t, err)
	require.Len(t, league, 2)
	assert.Equal(t, RoleEverydayRegular, league[0].Role)
	assert.Equal(t, RoleFringeRoster, league[1].Role)
}
