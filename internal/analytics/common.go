// Package analytics turns stored batting lines into role labels,
// regression alerts, trend reads, league context and next-season
// projections.
//
// Every entry point returns a nil result with a nil error when the data is
// insufficient to say anything. Errors are reserved for store faults, which
// are passed through untouched, and for caller mistakes, which wrap
// batting.ErrInvalidInput.
package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/thatsmyboye/baseball-analytics/internal/batting"
)

// tierEpsilon absorbs float subtraction noise (0.36 - 0.31 = 0.04999...).
const tierEpsilon = 1e-9

// Confidence labels shared by several components.
const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
	ConfidenceLow    = "LOW"
	ConfidenceNone   = "NONE"
)

// dedupeSeasons keeps the highest-PA row per season so split rows of a
// multi-team season do not count twice. Output is ordered by season.
func dedupeSeasons(rows []batting.SeasonStat) []batting.SeasonStat {
	best := make(map[int]int, len(rows))
	out := make([]batting.SeasonStat, 0, len(rows))
	for _, r := range rows {
		if i, ok := best[r.Season]; ok {
			if r.PA > out[i].PA {
				out[i] = r
			}
			continue
		}
		best[r.Season] = len(out)
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Season < out[j].Season })
	return out
}

// dedupePlayers keeps the highest-PA row per player for league-wide work.
func dedupePlayers(rows []batting.SeasonStat) []batting.SeasonStat {
	best := make(map[int]int, len(rows))
	out := make([]batting.SeasonStat, 0, len(rows))
	for _, r := range rows {
		if i, ok := best[r.PlayerID]; ok {
			if r.PA > out[i].PA {
				out[i] = r
			}
			continue
		}
		best[r.PlayerID] = len(out)
		out = append(out, r)
	}
	return out
}

func diff(cur, base *float64) (float64, bool) {
	if cur == nil || base == nil {
		return 0, false
	}
	return *cur - *base, true
}

// values collects the non-nil values of key across rows.
func values(rows []batting.SeasonStat, key batting.StatKey) []float64 {
	out := make([]float64, 0, len(rows))
	for i := range rows {
		if v := rows[i].Value(key); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func meanOf(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	m := stat.Mean(xs, nil)
	return &m
}

// stdDev is the sample standard deviation, 0 for fewer than two values.
func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}

// quantile interpolates linearly between the order statistics around
// h = (n-1)p of an ascending slice (Hyndman-Fan type 7). stat.Quantile only
// offers the empirical and type 4 estimators.
func quantile(p float64, sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if hi >= n {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

// slope fits y = a + b*x by least squares over the non-nil points, with x
// the position in ys. Nil when fewer than two points remain.
func slope(ys []*float64) *float64 {
	var xs, vs []float64
	for i, y := range ys {
		if y == nil {
			continue
		}
		xs = append(xs, float64(i))
		vs = append(vs, *y)
	}
	if len(vs) < 2 {
		return nil
	}
	_, b := stat.LinearRegression(xs, vs, nil, false)
	return &b
}

func round(v float64) int {
	return int(math.Round(v))
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
