package analytics

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/thatsmyboye/baseball-analytics/internal/batting"
	"github.com/thatsmyboye/baseball-analytics/internal/store/memstore"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seasonLine is a league-average 150-game line.
func seasonLine(id, season, pa int) batting.SeasonStat {
	return batting.SeasonStat{
		PlayerID: id,
		Name:     fmt.Sprintf("Player %d", id),
		Season:   season,
		Team:     "NYY",
		Games:    150,
		PA:       pa,
		AB:       pa * 9 / 10,
		Hits:     pa / 4,
		HR:       20,
		AVG:      batting.Float(0.260),
		OBP:      batting.Float(0.330),
		SLG:      batting.Float(0.430),
		WOBA:     batting.Float(0.320),
		WRCPlus:  batting.Float(100),
		BABIP:    batting.Float(0.300),
		KPct:     batting.Float(20),
		BBPct:    batting.Float(8),
		ISO:      batting.Float(0.170),
		HRFBPct:  batting.Float(12),
	}
}

// withCareer adds identical 500-PA seasons for every year in [from, to].
func withCareer(s *memstore.Store, id, from, to int, mutate func(*batting.SeasonStat)) {
	for season := from; season <= to; season++ {
		line := seasonLine(id, season, 500)
		if mutate != nil {
			mutate(&line)
		}
		s.AddSeason(line)
	}
}

func bornIn(year int) *time.Time {
	t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return &t
}
