package analytics

import (
	"log/slog"

	"github.com/thatsmyboye/baseball-analytics/internal/batting"
)

// Engine wires every analytics component over a single store. The
// detector, and with it the league-average memo, is shared.
type Engine struct {
	Store     batting.Store
	Roles     *RoleClassifier
	Detector  *RegressionDetector
	Statcast  *StatcastAnalyzer
	Trends    *TrendTracker
	Baselines *LeagueBaselines
	Predictor *Predictor
	Scanner   *Scanner
	Reporter  *Reporter
}

func NewEngine(store batting.Store, logger *slog.Logger) *Engine {
	detector := NewRegressionDetector(store)
	statcast := NewStatcastAnalyzer(detector, store)
	baselines := NewLeagueBaselines(store)
	return &Engine{
		Store:     store,
		Roles:     NewRoleClassifier(store),
		Detector:  detector,
		Statcast:  statcast,
		Trends:    NewTrendTracker(store),
		Baselines: baselines,
		Predictor: NewPredictor(store, detector),
		Scanner:   NewScanner(store, statcast, logger),
		Reporter:  NewReporter(store, statcast, baselines),
	}
}
