package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/thatsmyboye/baseball-analytics/internal/analytics"
	"github.com/thatsmyboye/baseball-analytics/internal/cache"
)

// GetRegression returns regression alerts for a player-season.
// @Summary Regression analysis
// @Description Compares a season against the player's prior career and flags luck-driven rates. With statcast=true the expected-stat signals are added.
// @Tags players
// @Produce json
// @Param playerID path int true "Player ID"
// @Param season query int false "Season (defaults to current)"
// @Param statcast query bool false "Include Statcast signals"
// @Success 200 {object} analytics.SeasonAnalysis
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/players/{playerID}/regression [get]
func (h *Handler) GetRegression(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePlayerID(w, r)
	if !ok {
		return
	}
	season, ok := h.querySeason(w, r)
	if !ok {
		return
	}
	withStatcast, ok := queryBool(w, r, "statcast", false)
	if !ok {
		return
	}

	kind := "regression"
	if withStatcast {
		kind = "statcast_regression"
	}
	key := fmt.Sprintf("player:%d:%s:%d", id, kind, season)
	serve(h, w, r, kind, key, h.seasonTTL(season),
		func(ctx context.Context) (*analytics.SeasonAnalysis, bool, error) {
			var (
				a   *analytics.SeasonAnalysis
				err error
			)
			if withStatcast {
				a, err = h.engine.Statcast.AnalyzePlayerSeason(ctx, id, season)
			} else {
				a, err = h.engine.Detector.AnalyzePlayerSeason(ctx, id, season)
			}
			return a, a != nil, err
		})
}

// GetProjection returns the next-season wRC+ projection.
// @Summary Next-season projection
// @Description Projects next season's wRC+ from recent weighted seasons plus age, discipline, power, contact, skill-change and regression adjustments.
// @Tags players
// @Produce json
// @Param playerID path int true "Player ID"
// @Param season query int false "Season projected from (defaults to current)"
// @Success 200 {object} analytics.Projection
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/players/{playerID}/projection [get]
func (h *Handler) GetProjection(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePlayerID(w, r)
	if !ok {
		return
	}
	season, ok := h.querySeason(w, r)
	if !ok {
		return
	}
	key := fmt.Sprintf("player:%d:projection:%d", id, season)
	serve(h, w, r, "projection", key, h.seasonTTL(season),
		func(ctx context.Context) (*analytics.Projection, bool, error) {
			p, err := h.engine.Predictor.PredictNextSeason(ctx, id, season)
			return p, p != nil, err
		})
}

type trajectoryResponse struct {
	PlayerID int                         `json:"player_id"`
	Seasons  []analytics.TrajectoryPoint `json:"seasons"`
}

// GetTrajectory returns the player's career trajectory.
// @Summary Career trajectory
// @Description Seasons with at least 50 PA, oldest first, with year-over-year changes and trailing three-season means. Unknown players yield an empty list.
// @Tags players
// @Produce json
// @Param playerID path int true "Player ID"
// @Success 200 {object} trajectoryResponse
// @Failure 400 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/players/{playerID}/trajectory [get]
func (h *Handler) GetTrajectory(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePlayerID(w, r)
	if !ok {
		return
	}
	key := fmt.Sprintf("player:%d:trajectory", id)
	serve(h, w, r, "trajectory", key, cache.TTLPlayer,
		func(ctx context.Context) (trajectoryResponse, bool, error) {
			traj, err := h.engine.Trends.CareerTrajectory(ctx, id)
			if traj == nil {
				traj = []analytics.TrajectoryPoint{}
			}
			return trajectoryResponse{PlayerID: id, Seasons: traj}, true, err
		})
}

// GetBreakout reports whether a season broke out from the prior baseline.
// @Summary Breakout detection
// @Tags players
// @Produce json
// @Param playerID path int true "Player ID"
// @Param season query int false "Season (defaults to current)"
// @Success 200 {object} analytics.BreakoutResult
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/players/{playerID}/breakout [get]
func (h *Handler) GetBreakout(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePlayerID(w, r)
	if !ok {
		return
	}
	season, ok := h.querySeason(w, r)
	if !ok {
		return
	}
	key := fmt.Sprintf("player:%d:breakout:%d", id, season)
	serve(h, w, r, "breakout", key, h.seasonTTL(season),
		func(ctx context.Context) (*analytics.BreakoutResult, bool, error) {
			b, err := h.engine.Trends.DetectBreakoutSeason(ctx, id, season)
			return b, b != nil, err
		})
}

// GetDecline fits slopes over the player's most recent seasons.
// @Summary Decline trend
// @Tags players
// @Produce json
// @Param playerID path int true "Player ID"
// @Param lookback query int false "Seasons to fit (default 3)"
// @Success 200 {object} analytics.DeclineTrend
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/players/{playerID}/decline [get]
func (h *Handler) GetDecline(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePlayerID(w, r)
	if !ok {
		return
	}
	lookback, ok := queryInt(w, r, "lookback", 3, 2, 30)
	if !ok {
		return
	}
	key := fmt.Sprintf("player:%d:decline:%d", id, lookback)
	serve(h, w, r, "decline", key, cache.TTLPlayer,
		func(ctx context.Context) (*analytics.DeclineTrend, bool, error) {
			d, err := h.engine.Trends.DetectDeclineTrend(ctx, id, lookback)
			return d, d != nil, err
		})
}

// GetPeak returns the player's career peak season.
// @Summary Career peak
// @Tags players
// @Produce json
// @Param playerID path int true "Player ID"
// @Success 200 {object} analytics.CareerPeak
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/players/{playerID}/peak [get]
func (h *Handler) GetPeak(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePlayerID(w, r)
	if !ok {
		return
	}
	key := fmt.Sprintf("player:%d:peak", id)
	serve(h, w, r, "peak", key, cache.TTLPlayer,
		func(ctx context.Context) (*analytics.CareerPeak, bool, error) {
			p, err := h.engine.Trends.IdentifyCareerPeak(ctx, id)
			return p, p != nil, err
		})
}

type agingResponse struct {
	PlayerID int                    `json:"player_id"`
	Seasons  []analytics.AgingPoint `json:"seasons"`
}

// GetAging returns the player's age-indexed performance.
// @Summary Aging curve
// @Tags players
// @Produce json
// @Param playerID path int true "Player ID"
// @Success 200 {object} agingResponse
// @Failure 400 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/players/{playerID}/aging [get]
func (h *Handler) GetAging(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePlayerID(w, r)
	if !ok {
		return
	}
	key := fmt.Sprintf("player:%d:aging", id)
	serve(h, w, r, "aging", key, cache.TTLPlayer,
		func(ctx context.Context) (agingResponse, bool, error) {
			pts, err := h.engine.Trends.AgingCurve(ctx, id)
			if pts == nil {
				pts = []analytics.AgingPoint{}
			}
			return agingResponse{PlayerID: id, Seasons: pts}, true, err
		})
}

type rolesResponse struct {
	PlayerID int                        `json:"player_id"`
	Seasons  []analytics.RolePrediction `json:"seasons"`
}

// GetRole classifies a player's playing-time role. Without ?season= every
// stored season is classified.
// @Summary Role classification
// @Tags players
// @Produce json
// @Param playerID path int true "Player ID"
// @Param season query int false "Single season to classify"
// @Success 200 {object} analytics.RolePrediction
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/players/{playerID}/role [get]
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePlayerID(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("season") == "" {
		key := fmt.Sprintf("player:%d:roles", id)
		serve(h, w, r, "role", key, cache.TTLPlayer,
			func(ctx context.Context) (rolesResponse, bool, error) {
				preds, err := h.engine.Roles.ClassifyPlayer(ctx, id)
				if preds == nil {
					preds = []analytics.RolePrediction{}
				}
				return rolesResponse{PlayerID: id, Seasons: preds}, true, err
			})
		return
	}

	season, ok := h.querySeason(w, r)
	if !ok {
		return
	}
	key := fmt.Sprintf("player:%d:role:%d", id, season)
	serve(h, w, r, "role", key, h.seasonTTL(season),
		func(ctx context.Context) (*analytics.RolePrediction, bool, error) {
			p, err := h.engine.Roles.ClassifyPlayerSeason(ctx, id, season)
			return p, p != nil, err
		})
}

// GetReport returns the combined single-player report.
// @Summary Player report
// @Description Stat line, role, league percentiles, regression signals and career context for one season.
// @Tags players
// @Produce json
// @Param playerID path int true "Player ID"
// @Param season query int false "Season (defaults to current)"
// @Success 200 {object} analytics.PlayerReport
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/players/{playerID}/report [get]
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePlayerID(w, r)
	if !ok {
		return
	}
	season, ok := h.querySeason(w, r)
	if !ok {
		return
	}
	key := fmt.Sprintf("player:%d:report:%d", id, season)
	serve(h, w, r, "report", key, h.seasonTTL(season),
		func(ctx context.Context) (*analytics.PlayerReport, bool, error) {
			rep, err := h.engine.Reporter.Build(ctx, id, season)
			return rep, rep != nil, err
		})
}
