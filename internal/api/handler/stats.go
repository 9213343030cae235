package handler

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/thatsmyboye/baseball-analytics/internal/analytics"
	"github.com/thatsmyboye/baseball-analytics/internal/api/respond"
	"github.com/thatsmyboye/baseball-analytics/internal/batting"
	"github.com/thatsmyboye/baseball-analytics/internal/cache"
)

// firstSeason is the first major league season with batting records.
const firstSeason = 1871

type roleDefinition struct {
	Role        analytics.Role `json:"role"`
	Description string         `json:"description"`
	UsageRank   int            `json:"usage_rank"`
}

// GetStatDefinitions returns the metric names and roles the API understands.
// @Summary Get stat definitions
// @Description Returns the metrics accepted by percentile endpoints and every playing-time role.
// @Tags stats
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/definitions [get]
func (h *Handler) GetStatDefinitions(w http.ResponseWriter, r *http.Request) {
	serve(h, w, r, "definitions", "definitions", cache.TTLHistorical,
		func(_ context.Context) (map[string]interface{}, bool, error) {
			roles := make([]roleDefinition, 0, len(analytics.Roles))
			for _, role := range analytics.Roles {
				roles = append(roles, roleDefinition{
					Role:        role,
					Description: role.Description(),
					UsageRank:   role.UsageRank(),
				})
			}
			return map[string]interface{}{
				"metrics":        batting.PercentileStats,
				"roles":          roles,
				"min_career_pa":  batting.MinCareerPA,
				"league_min_pa":  batting.LeagueAverageMinPA,
				"current_season": h.cfg.CurrentSeason,
			}, true, nil
		})
}

// --------------------------------------------------------------------------
// Parameter helpers. Each writes the 400 itself and reports ok=false.
// --------------------------------------------------------------------------

func parsePlayerID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "playerID"))
	if err != nil || id <= 0 {
		respond.WriteError(w, http.StatusBadRequest, respond.CodeInvalidID, "Player ID must be a positive integer")
		return 0, false
	}
	return id, true
}

func validSeason(w http.ResponseWriter, raw string) (int, bool) {
	season, err := strconv.Atoi(raw)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, respond.CodeInvalidSeason, "season must be an integer")
		return 0, false
	}
	if last := time.Now().Year() + 1; season < firstSeason || season > last {
		respond.WriteError(w, http.StatusBadRequest, respond.CodeInvalidSeason,
			fmt.Sprintf("Season must be between %d and %d", firstSeason, last))
		return 0, false
	}
	return season, true
}

// querySeason reads ?season=, defaulting to the configured current season.
func (h *Handler) querySeason(w http.ResponseWriter, r *http.Request) (int, bool) {
	s := r.URL.Query().Get("season")
	if s == "" {
		return h.cfg.CurrentSeason, true
	}
	return validSeason(w, s)
}

func pathSeason(w http.ResponseWriter, r *http.Request) (int, bool) {
	return validSeason(w, chi.URLParam(r, "season"))
}

func queryInt(w http.ResponseWriter, r *http.Request, name string, fallback, lo, hi int) (int, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		respond.WriteError(w, http.StatusBadRequest, respond.CodeInvalidParam,
			fmt.Sprintf("%s must be an integer between %d and %d", name, lo, hi))
		return 0, false
	}
	return n, true
}

func queryFloat(w http.ResponseWriter, r *http.Request, name string, fallback float64) (float64, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return fallback, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		respond.WriteError(w, http.StatusBadRequest, respond.CodeInvalidParam, name+" must be a finite number")
		return 0, false
	}
	return f, true
}

func queryBool(w http.ResponseWriter, r *http.Request, name string, fallback bool) (bool, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return fallback, true
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, respond.CodeInvalidParam, name+" must be true or false")
		return false, false
	}
	return b, true
}
