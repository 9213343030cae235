package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/thatsmyboye/baseball-analytics/internal/batting"
)

// DefaultCandidateThreshold is the NetScore that marks a strong candidate.
const DefaultCandidateThreshold = 2.0

// ScanOptions controls a league-wide regression scan.
type ScanOptions struct {
	Season       int
	MinPA        int
	Workers      int
	WithStatcast bool
}

// ScanResult tracks the outcome of one scan run.
type ScanResult struct {
	RunID        string            `json:"run_id"`
	Season       int               `json:"season"`
	MinPA        int               `json:"min_pa"`
	Statcast     bool              `json:"statcast"`
	PlayersFound int               `json:"players_found"`
	Analyzed     int               `json:"analyzed"`
	Skipped      int               `json:"skipped"`
	WithAlerts   int               `json:"with_alerts"`
	Duration     time.Duration     `json:"duration_ns"`
	Analyses     []*SeasonAnalysis `json:"analyses"`
}

// Summary returns a human-readable summary.
func (r *ScanResult) Summary() string {
	return fmt.Sprintf(
		"run=%s season=%d found=%d analyzed=%d skipped=%d alerts=%d dur=%s",
		r.RunID, r.Season, r.PlayersFound, r.Analyzed, r.Skipped,
		r.WithAlerts, r.Duration.Round(time.Millisecond),
	)
}

// Scanner runs regression analysis across every qualified player in a season.
type Scanner struct {
	store    batting.Store
	statcast *StatcastAnalyzer
	logger   *slog.Logger
}

func NewScanner(store batting.Store, statcast *StatcastAnalyzer, logger *slog.Logger) *Scanner {
	return &Scanner{store: store, statcast: statcast, logger: logger}
}

// Scan analyzes every player with a PA >= MinPA row in the season. Players
// with insufficient history or no alerts are left out. The first store
// fault cancels the remaining work and is returned.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	if opts.MinPA < 0 {
		return nil, fmt.Errorf("%w: min PA must be non-negative, got %d", batting.ErrInvalidInput, opts.MinPA)
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	start := time.Now()
	result := &ScanResult{
		RunID:    uuid.NewString(),
		Season:   opts.Season,
		MinPA:    opts.MinPA,
		Statcast: opts.WithStatcast,
		Analyses: []*SeasonAnalysis{},
	}

	rows, err := s.store.LeagueRows(ctx, opts.Season, opts.MinPA)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	ids := playerIDs(rows)
	result.PlayersFound = len(ids)

	analyze := s.statcast.Detector().AnalyzePlayerSeason
	if opts.WithStatcast {
		analyze = s.statcast.AnalyzePlayerSeason
	}

	found := make([]*SeasonAnalysis, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, id := range ids {
		i, id := i, id // per-iteration copy (go 1.21 loop semantics)
		g.Go(func() error {
			a, err := analyze(gctx, id, opts.Season)
			if err != nil {
				return fmt.Errorf("analyze player %d: %w", id, err)
			}
			found[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("Scan aborted", "run", result.RunID, "season", opts.Season, "error", err)
		return nil, err
	}

	for _, a := range found {
		if a == nil {
			result.Skipped++
			continue
		}
		result.Analyzed++
		if a.HasAlerts() {
			result.Analyses = append(result.Analyses, a)
		}
	}
	result.WithAlerts = len(result.Analyses)
	sortByNetScore(result.Analyses)
	result.Duration = time.Since(start)

	s.logger.Info("Scan complete", "summary", result.Summary())
	return result, nil
}

func playerIDs(rows []batting.SeasonStat) []int {
	seen := make(map[int]bool, len(rows))
	ids := make([]int, 0, len(rows))
	for _, r := range rows {
		if !seen[r.PlayerID] {
			seen[r.PlayerID] = true
			ids = append(ids, r.PlayerID)
		}
	}
	sort.Ints(ids)
	return ids
}

func sortByNetScore(analyses []*SeasonAnalysis) {
	sort.SliceStable(analyses, func(i, j int) bool {
		if analyses[i].NetScore != analyses[j].NetScore {
			return analyses[i].NetScore > analyses[j].NetScore
		}
		return analyses[i].PlayerID < analyses[j].PlayerID
	})
}

// SplitCandidates returns analyses with NetScore >= threshold as buys and
// <= -threshold as sells. Buys are strongest first, sells most negative
// first.
func SplitCandidates(analyses []*SeasonAnalysis, threshold float64) (buys, sells []*SeasonAnalysis) {
	buys, sells = []*SeasonAnalysis{}, []*SeasonAnalysis{}
	for _, a := range analyses {
		switch {
		case a.NetScore >= threshold:
			buys = append(buys, a)
		case a.NetScore <= -threshold:
			sells = append(sells, a)
		}
	}
	sortByNetScore(buys)
	sort.SliceStable(sells, func(i, j int) bool {
		if sells[i].NetScore != sells[j].NetScore {
			return sells[i].NetScore < sells[j].NetScore
		}
		return sells[i].PlayerID < sells[j].PlayerID
	})
	return buys, sells
}
