package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsmyboye/baseball-analytics/internal/analytics"
	"github.com/thatsmyboye/baseball-analytics/internal/api/respond"
	"github.com/thatsmyboye/baseball-analytics/internal/batting"
	"github.com/thatsmyboye/baseball-analytics/internal/cache"
	"github.com/thatsmyboye/baseball-analytics/internal/config"
	"github.com/thatsmyboye/baseball-analytics/internal/metrics"
	"github.com/thatsmyboye/baseball-analytics/internal/store/memstore"
)

func line(id, season int, babip float64) batting.SeasonStat {
	return batting.SeasonStat{
		PlayerID: id,
		Name:     "Test Hitter",
		Season:   season,
		Team:     "SEA",
		Games:    150,
		PA:       600,
		AB:       540,
		Hits:     150,
		HR:       22,
		AVG:      batting.Float(0.270),
		OBP:      batting.Float(0.340),
		SLG:      batting.Float(0.450),
		WOBA:     batting.Float(0.330),
		WRCPlus:  batting.Float(105),
		BABIP:    batting.Float(babip),
		KPct:     batting.Float(21),
		BBPct:    batting.Float(9),
		ISO:      batting.Float(0.180),
		HRFBPct:  batting.Float(13),
	}
}

type testServer struct {
	store *memstore.Store
	cfg   *config.Config
	mux   http.Handler
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()

	s := memstore.New()
	s.AddPlayer(batting.Player{ID: 1, Name: "Test Hitter"})
	for season := 2019; season <= 2023; season++ {
		s.AddSeason(line(1, season, 0.300))
	}
	s.AddSeason(line(1, 2024, 0.380))

	cfg := &config.Config{
		CurrentSeason:     2024,
		ScanMinPA:         100,
		ScanWorkers:       2,
		CORSAllowOrigins:  []string{"*"},
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
	}
	if mutate != nil {
		mutate(cfg)
	}

	c := cache.New(true)
	t.Cleanup(c.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := analytics.NewEngine(s, logger)

	return &testServer{
		store: s,
		cfg:   cfg,
		mux:   NewRouter(engine, nil, c, metrics.New(), cfg, logger),
	}
}

func (ts *testServer) get(t *testing.T, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) respond.ErrorBody {
	t.Helper()
	var body respond.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.get(t, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Process-Time"))

	rec = ts.get(t, "/health/db", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "not configured")

	rec = ts.get(t, "/health/cache", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegressionCachesAndRevalidates(t *testing.T) {
	ts := newTestServer(t, nil)
	path := "/api/v1/players/1/regression?season=2024"

	first := ts.get(t, path, nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	var a analytics.SeasonAnalysis
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &a))
	assert.Equal(t, 1, a.PlayerID)
	assert.Equal(t, 2024, a.Season)
	assert.True(t, a.HasAlerts())

	second := ts.get(t, path, nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))

	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)
	notModified := ts.get(t, path, http.Header{"If-None-Match": {etag}})
	assert.Equal(t, http.StatusNotModified, notModified.Code)
}

func TestParameterValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		path string
		code string
	}{
		{"/api/v1/players/abc/regression", respond.CodeInvalidID},
		{"/api/v1/players/0/projection", respond.CodeInvalidID},
		{"/api/v1/players/1/regression?season=1700", respond.CodeInvalidSeason},
		{"/api/v1/players/1/regression?statcast=maybe", respond.CodeInvalidParam},
		{"/api/v1/players/1/decline?lookback=1", respond.CodeInvalidParam},
		{"/api/v1/league/2024/percentile?metric=ops&value=1", respond.CodeInvalidParam},
		{"/api/v1/league/2024/percentile?metric=iso", respond.CodeInvalidParam},
		{"/api/v1/league/2024/percentile?metric=wrc_plus&value=NaN", respond.CodeInvalidParam},
		{"/api/v1/league/2024/percentile?metric=wrc_plus&value=Inf", respond.CodeInvalidParam},
		{"/api/v1/league/2024/percentile?metric=wrc_plus&value=-Inf", respond.CodeInvalidParam},
		{"/api/v1/league/2024/top?limit=0", respond.CodeInvalidParam},
		{"/api/v1/league/nope/percentiles", respond.CodeInvalidSeason},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := ts.get(t, tt.path, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestInsufficientDataIs404(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, path := range []string{
		"/api/v1/players/99/regression?season=2024",
		"/api/v1/players/99/projection?season=2024",
		"/api/v1/players/99/report?season=2024",
		"/api/v1/league/1990/percentiles",
	} {
		rec := ts.get(t, path, nil)
		require.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, respond.CodeInsufficientData, decodeError(t, rec).Code)
	}
}

func TestEmptyListsForUnknownPlayer(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.get(t, "/api/v1/players/99/trajectory", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"player_id":99,"seasons":[]}`, rec.Body.String())

	rec = ts.get(t, "/api/v1/players/99/role", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"player_id":99,"seasons":[]}`, rec.Body.String())
}

func TestStoreFailureIs503(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.store.FailWith(errors.New("connection refused"))

	rec := ts.get(t, "/api/v1/players/1/regression?season=2024", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, respond.CodeUpstreamFailure, decodeError(t, rec).Code)

	rec = ts.get(t, "/api/v1/scan/2024", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPlayerPercentile(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.get(t, "/api/v1/league/2024/percentile?metric=wrc_plus&value=120", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rank analytics.PercentileRank
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rank))
	assert.Equal(t, batting.StatWRCPlus, rank.Metric)
	assert.Equal(t, 100, rank.Percentile)
	assert.Equal(t, analytics.TierElite, rank.Tier)
}

func TestScanAndDigest(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.get(t, "/api/v1/scan/2024?min_pa=100", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		PlayersFound int     `json:"players_found"`
		Analyzed     int     `json:"analyzed"`
		Threshold    float64 `json:"threshold"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.PlayersFound)
	assert.Equal(t, 1, body.Analyzed)
	assert.Equal(t, analytics.DefaultCandidateThreshold, body.Threshold)

	rec = ts.get(t, "/api/v1/digest/2024", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var d analytics.Digest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, 1, d.Players)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.RateLimitEnabled = true
		c.RateLimitRequests = 2
	})

	assert.Equal(t, http.StatusOK, ts.get(t, "/health", nil).Code)
	rec := ts.get(t, "/health", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, respond.CodeRateLimited, decodeError(t, rec).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.get(t, "/api/v1/players/1/regression?season=2024", nil)

	rec := ts.get(t, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `batting_analyses_total{kind="regression",outcome="ok"} 1`)
	assert.Contains(t, rec.Body.String(), `route="/api/v1/players/{playerID}/regression"`)
}
