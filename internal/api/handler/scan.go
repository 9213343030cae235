package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/thatsmyboye/baseball-analytics/internal/analytics"
	"github.com/thatsmyboye/baseball-analytics/internal/cache"
)

// candidate is the short form of a strong buy or sell.
type candidate struct {
	PlayerID   int     `json:"player_id"`
	Name       string  `json:"name,omitempty"`
	NetScore   float64 `json:"net_score"`
	Tier1Buys  int     `json:"tier1_buys"`
	Tier1Sells int     `json:"tier1_sells"`
}

func candidates(analyses []*analytics.SeasonAnalysis) []candidate {
	out := make([]candidate, 0, len(analyses))
	for _, a := range analyses {
		out = append(out, candidate{
			PlayerID:   a.PlayerID,
			Name:       a.Name,
			NetScore:   a.NetScore,
			Tier1Buys:  a.Tier1Buys,
			Tier1Sells: a.Tier1Sells,
		})
	}
	return out
}

type scanResponse struct {
	*analytics.ScanResult
	Threshold float64     `json:"threshold"`
	Buys      []candidate `json:"buy_candidates"`
	Sells     []candidate `json:"sell_candidates"`
}

// GetScan runs a league-wide regression scan for a season.
// @Summary League regression scan
// @Description Analyzes every qualified player and returns those with alerts, strongest net score first, plus the strong buy and sell candidates.
// @Tags scan
// @Produce json
// @Param season path int true "Season"
// @Param min_pa query int false "Minimum PA (default from config)"
// @Param statcast query bool false "Include Statcast signals"
// @Param threshold query number false "Net score marking a strong candidate (default 2)"
// @Success 200 {object} scanResponse
// @Failure 400 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/scan/{season} [get]
func (h *Handler) GetScan(w http.ResponseWriter, r *http.Request) {
	season, ok := pathSeason(w, r)
	if !ok {
		return
	}
	minPA, ok := queryInt(w, r, "min_pa", h.cfg.ScanMinPA, 0, maxMinPA)
	if !ok {
		return
	}
	withStatcast, ok := queryBool(w, r, "statcast", false)
	if !ok {
		return
	}
	threshold, ok := queryFloat(w, r, "threshold", analytics.DefaultCandidateThreshold)
	if !ok {
		return
	}

	key := fmt.Sprintf("scan:%d:%d:%t:%g", season, minPA, withStatcast, threshold)
	serve(h, w, r, "scan", key, cache.TTLScan,
		func(ctx context.Context) (*scanResponse, bool, error) {
			res, err := h.engine.Scanner.Scan(ctx, analytics.ScanOptions{
				Season:       season,
				MinPA:        minPA,
				Workers:      h.cfg.ScanWorkers,
				WithStatcast: withStatcast,
			})
			if err != nil {
				return nil, false, err
			}
			buys, sells := analytics.SplitCandidates(res.Analyses, threshold)
			return &scanResponse{
				ScanResult: res,
				Threshold:  threshold,
				Buys:       candidates(buys),
				Sells:      candidates(sells),
			}, true, nil
		})
}

// GetDigest returns the buy/sell digest for a season. The scheduled scan
// keeps the current season's digest warm; other seasons are built on demand.
// @Summary Season digest
// @Tags scan
// @Produce json
// @Param season path int true "Season"
// @Success 200 {object} analytics.Digest
// @Failure 400 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/digest/{season} [get]
func (h *Handler) GetDigest(w http.ResponseWriter, r *http.Request) {
	season, ok := pathSeason(w, r)
	if !ok {
		return
	}
	serve(h, w, r, "digest", cache.DigestKey(season), cache.TTLDigest,
		func(ctx context.Context) (*analytics.Digest, bool, error) {
			res, err := h.engine.Scanner.Scan(ctx, analytics.ScanOptions{
				Season:       season,
				MinPA:        h.cfg.ScanMinPA,
				Workers:      h.cfg.ScanWorkers,
				WithStatcast: true,
			})
			if err != nil {
				return nil, false, err
			}
			return analytics.BuildDigest(res.Analyses), true, nil
		})
}
