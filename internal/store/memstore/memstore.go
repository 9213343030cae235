// Package memstore is an in-memory batting.Store. It backs tests and local
// fixture runs of the analytics engine.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/thatsmyboye/baseball-analytics/internal/batting"
)

// Store holds players, season lines and Statcast records in maps.
type Store struct {
	mu       sync.RWMutex
	players  map[int]batting.Player
	seasons  map[int][]batting.SeasonStat
	statcast map[int]map[int]batting.StatcastRecord
	fail     error

	leagueQueries atomic.Int64
}

var _ batting.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		players:  make(map[int]batting.Player),
		seasons:  make(map[int][]batting.SeasonStat),
		statcast: make(map[int]map[int]batting.StatcastRecord),
	}
}

// Fixture is the JSON layout accepted by Load.
type Fixture struct {
	Players  []batting.Player         `json:"players"`
	Seasons  []batting.SeasonStat     `json:"seasons"`
	Statcast []batting.StatcastRecord `json:"statcast"`
}

// Load decodes a JSON fixture into a new store. Season lines that fail
// validation reject the whole fixture.
func Load(r io.Reader) (*Store, error) {
	var f Fixture
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	s := New()
	for _, p := range f.Players {
		s.AddPlayer(p)
	}
	for i := range f.Seasons {
		if err := f.Seasons[i].Validate(); err != nil {
			return nil, fmt.Errorf("fixture season %d: %w", i, err)
		}
		s.AddSeason(f.Seasons[i])
	}
	for _, rec := range f.Statcast {
		s.AddStatcast(rec)
	}
	return s, nil
}

// AddPlayer inserts or replaces a player.
func (s *Store) AddPlayer(p batting.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[p.ID] = p
}

// AddSeason appends a season line. Multi-team seasons may be added as
// several rows.
func (s *Store) AddSeason(stat batting.SeasonStat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seasons[stat.PlayerID] = append(s.seasons[stat.PlayerID], stat)
}

// AddStatcast inserts or replaces a Statcast record.
func (s *Store) AddStatcast(rec batting.StatcastRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statcast[rec.PlayerID] == nil {
		s.statcast[rec.PlayerID] = make(map[int]batting.StatcastRecord)
	}
	s.statcast[rec.PlayerID][rec.Season] = rec
}

// FailWith makes every query return err until called again with nil.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// LeagueQueries reports how many times LeagueRows has been called.
func (s *Store) LeagueQueries() int64 {
	return s.leagueQueries.Load()
}

func (s *Store) Player(ctx context.Context, playerID int) (*batting.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return nil, s.fail
	}
	p, ok := s.players[playerID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Store) SeasonStat(ctx context.Context, playerID, season int) (*batting.SeasonStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return nil, s.fail
	}
	var best *batting.SeasonStat
	for i := range s.seasons[playerID] {
		row := s.seasons[playerID][i]
		if row.Season != season {
			continue
		}
		if best == nil || row.PA > best.PA {
			best = &row
		}
	}
	return best, nil
}

func (s *Store) SeasonStats(ctx context.Context, playerID int, r batting.SeasonRange, minPA int) ([]batting.SeasonStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return nil, s.fail
	}
	var out []batting.SeasonStat
	for _, row := range s.seasons[playerID] {
		if row.PA >= minPA && r.Contains(row.Season) {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Season < out[j].Season })
	return out, nil
}

func (s *Store) CareerAggregate(ctx context.Context, playerID, beforeSeason, minPAPerSeason int) (*batting.CareerBaseline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return nil, s.fail
	}

	var babip, bb, k, iso, hrfb, wrc mean
	b := &batting.CareerBaseline{}
	for _, row := range s.seasons[playerID] {
		if row.Season >= beforeSeason || row.PA < minPAPerSeason {
			continue
		}
		b.TotalPA += row.PA
		b.Seasons++
		babip.add(row.BABIP)
		bb.add(row.BBPct)
		k.add(row.KPct)
		iso.add(row.ISO)
		hrfb.add(row.HRFBPct)
		wrc.add(row.WRCPlus)
	}
	if b.TotalPA < batting.MinCareerPA {
		return nil, nil
	}
	b.BABIP, b.BBPct, b.KPct = babip.value(), bb.value(), k.value()
	b.ISO, b.HRFBPct, b.WRCPlus = iso.value(), hrfb.value(), wrc.value()
	return b, nil
}

func (s *Store) StatcastRecord(ctx context.Context, playerID, season int) (*batting.StatcastRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return nil, s.fail
	}
	rec, ok := s.statcast[playerID][season]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *Store) CareerStatcastAggregate(ctx context.Context, playerID, beforeSeason, minBattedBalls int) (*batting.StatcastBaseline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return nil, s.fail
	}

	var ev, hh, barrel, sweet mean
	b := &batting.StatcastBaseline{}
	for season, rec := range s.statcast[playerID] {
		if season >= beforeSeason || rec.BattedBalls < minBattedBalls {
			continue
		}
		b.Seasons++
		ev.add(rec.ExitVelo)
		hh.add(rec.HardHitPct)
		barrel.add(rec.BarrelPct)
		sweet.add(rec.SweetSpotPct)
	}
	if b.Seasons < batting.MinStatcastSeasons {
		return nil, nil
	}
	b.ExitVelo, b.HardHitPct, b.BarrelPct, b.SweetSpotPct = ev.value(), hh.value(), barrel.value(), sweet.value()
	return b, nil
}

func (s *Store) LeagueRows(ctx context.Context, season, minPA int) ([]batting.SeasonStat, error) {
	s.leagueQueries.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return nil, s.fail
	}

	ids := make([]int, 0, len(s.seasons))
	for id := range s.seasons {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var out []batting.SeasonStat
	for _, id := range ids {
		for _, row := range s.seasons[id] {
			if row.Season == season && row.PA >= minPA {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

// mean averages non-nil values the way SQL AVG skips NULLs.
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v *float64) {
	if v == nil {
		return
	}
	m.sum += *v
	m.n++
}

func (m *mean) value() *float64 {
	if m.n == 0 {
		return nil
	}
	v := m.sum / float64(m.n)
	return &v
}
