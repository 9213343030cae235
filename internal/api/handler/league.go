package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/thatsmyboye/baseball-analytics/internal/analytics"
	"github.com/thatsmyboye/baseball-analytics/internal/api/respond"
	"github.com/thatsmyboye/baseball-analytics/internal/batting"
)

const maxMinPA = 800

// GetLeaguePercentiles returns per-metric distributions for a season.
// @Summary League percentiles
// @Tags league
// @Produce json
// @Param season path int true "Season"
// @Param min_pa query int false "Minimum PA (default 100)"
// @Success 200 {object} analytics.LeaguePercentiles
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/league/{season}/percentiles [get]
func (h *Handler) GetLeaguePercentiles(w http.ResponseWriter, r *http.Request) {
	season, ok := pathSeason(w, r)
	if !ok {
		return
	}
	minPA, ok := queryInt(w, r, "min_pa", batting.LeagueAverageMinPA, 0, maxMinPA)
	if !ok {
		return
	}
	key := fmt.Sprintf("league:%d:percentiles:%d", season, minPA)
	serve(h, w, r, "percentiles", key, h.seasonTTL(season),
		func(ctx context.Context) (*analytics.LeaguePercentiles, bool, error) {
			lp, err := h.engine.Baselines.LeaguePercentiles(ctx, season, minPA)
			return lp, lp != nil, err
		})
}

// GetPlayerPercentile ranks one value against the season's population.
// @Summary Percentile of a value
// @Tags league
// @Produce json
// @Param season path int true "Season"
// @Param metric query string true "Metric" Enums(avg, obp, slg, woba, wrc_plus, babip, bb_pct, k_pct, iso, hr_fb_pct)
// @Param value query number true "Value to rank"
// @Param min_pa query int false "Minimum PA (default 100)"
// @Success 200 {object} analytics.PercentileRank
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/league/{season}/percentile [get]
func (h *Handler) GetPlayerPercentile(w http.ResponseWriter, r *http.Request) {
	season, ok := pathSeason(w, r)
	if !ok {
		return
	}
	metric, err := batting.ParseStatKey(r.URL.Query().Get("metric"))
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, respond.CodeInvalidParam, err.Error())
		return
	}
	if r.URL.Query().Get("value") == "" {
		respond.WriteError(w, http.StatusBadRequest, respond.CodeInvalidParam, "value query parameter is required")
		return
	}
	value, ok := queryFloat(w, r, "value", 0)
	if !ok {
		return
	}
	minPA, ok := queryInt(w, r, "min_pa", batting.LeagueAverageMinPA, 0, maxMinPA)
	if !ok {
		return
	}

	key := fmt.Sprintf("league:%d:percentile:%s:%g:%d", season, metric, value, minPA)
	serve(h, w, r, "percentile", key, h.seasonTTL(season),
		func(ctx context.Context) (*analytics.PercentileRank, bool, error) {
			p, err := h.engine.Baselines.PlayerPercentile(ctx, &value, metric, season, minPA)
			if err != nil || p == nil {
				return nil, false, err
			}
			return &analytics.PercentileRank{
				Metric:     metric,
				Value:      value,
				Percentile: *p,
				Tier:       analytics.PercentileTier(*p),
			}, true, nil
		})
}

type cohortView struct {
	analytics.CohortStats
	Reliable bool `json:"reliable"`
}

type cohortsResponse struct {
	Season  int          `json:"season"`
	MinPA   int          `json:"min_pa"`
	Cohorts []cohortView `json:"cohorts"`
}

// GetRoleCohorts groups the season's qualified players by usage role.
// @Summary Role cohort stats
// @Tags league
// @Produce json
// @Param season path int true "Season"
// @Param min_pa query int false "Minimum PA (default 100)"
// @Success 200 {object} cohortsResponse
// @Failure 400 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/league/{season}/cohorts [get]
func (h *Handler) GetRoleCohorts(w http.ResponseWriter, r *http.Request) {
	season, ok := pathSeason(w, r)
	if !ok {
		return
	}
	minPA, ok := queryInt(w, r, "min_pa", batting.LeagueAverageMinPA, 0, maxMinPA)
	if !ok {
		return
	}
	key := fmt.Sprintf("league:%d:cohorts:%d", season, minPA)
	serve(h, w, r, "cohorts", key, h.seasonTTL(season),
		func(ctx context.Context) (cohortsResponse, bool, error) {
			stats, err := h.engine.Baselines.RoleCohortStats(ctx, season, minPA)
			resp := cohortsResponse{Season: season, MinPA: minPA, Cohorts: make([]cohortView, 0, len(stats))}
			for _, c := range stats {
				resp.Cohorts = append(resp.Cohorts, cohortView{CohortStats: c, Reliable: c.Reliable()})
			}
			return resp, true, err
		})
}

type topResponse struct {
	Season  int                  `json:"season"`
	MinPA   int                  `json:"min_pa"`
	Players []batting.SeasonStat `json:"players"`
}

// GetTopPerformers lists the season's best hitters by wRC+.
// @Summary Top performers
// @Tags league
// @Produce json
// @Param season path int true "Season"
// @Param min_pa query int false "Minimum PA (default 200)"
// @Param limit query int false "Maximum players (default 10, max 100)"
// @Success 200 {object} topResponse
// @Failure 400 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/league/{season}/top [get]
func (h *Handler) GetTopPerformers(w http.ResponseWriter, r *http.Request) {
	season, ok := pathSeason(w, r)
	if !ok {
		return
	}
	minPA, ok := queryInt(w, r, "min_pa", batting.MinCareerPA, 0, maxMinPA)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit", 10, 1, 100)
	if !ok {
		return
	}
	key := fmt.Sprintf("league:%d:top:%d:%d", season, minPA, limit)
	serve(h, w, r, "top", key, h.seasonTTL(season),
		func(ctx context.Context) (topResponse, bool, error) {
			rows, err := h.engine.Baselines.TopPerformers(ctx, season, minPA, limit)
			if rows == nil {
				rows = []batting.SeasonStat{}
			}
			return topResponse{Season: season, MinPA: minPA, Players: rows}, true, err
		})
}
