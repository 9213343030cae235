package analytics

import (
	"fmt"
	"sort"
	"time"
)

// DigestCategory buckets a player by the mix of tier-1 and tier-2 signals.
type DigestCategory string

const (
	CategoryStrongBuy  DigestCategory = "STRONG_BUY"
	CategoryBuy        DigestCategory = "BUY"
	CategoryStrongSell DigestCategory = "STRONG_SELL"
	CategorySell       DigestCategory = "SELL"
	CategoryMixed      DigestCategory = "MIXED"
)

// DigestEntry is one player's line in a digest.
type DigestEntry struct {
	PlayerID   int            `json:"player_id"`
	Name       string         `json:"name,omitempty"`
	Season     int            `json:"season"`
	Category   DigestCategory `json:"category"`
	Tier1Buys  int            `json:"tier1_buys"`
	Tier1Sells int            `json:"tier1_sells"`
	NetSignal  int            `json:"net_signal"` // tier-1 and tier-2 buys minus sells
	Alerts     []Alert        `json:"alerts"`
}

// Digest groups a batch of analyses into actionable buckets.
type Digest struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Players     int           `json:"players"`
	StrongBuys  []DigestEntry `json:"strong_buys"`
	Buys        []DigestEntry `json:"buys"`
	StrongSells []DigestEntry `json:"strong_sells"`
	Sells       []DigestEntry `json:"sells"`
	Mixed       []DigestEntry `json:"mixed"`
}

// BuildDigest categorizes analyses, keeping the first analysis seen for
// each player. Players with only tier-3 alerts land in no bucket.
func BuildDigest(analyses []*SeasonAnalysis) *Digest {
	d := &Digest{
		GeneratedAt: time.Now().UTC(),
		StrongBuys:  []DigestEntry{},
		Buys:        []DigestEntry{},
		StrongSells: []DigestEntry{},
		Sells:       []DigestEntry{},
		Mixed:       []DigestEntry{},
	}
	seen := make(map[int]bool, len(analyses))
	for _, a := range analyses {
		if a == nil || seen[a.PlayerID] {
			continue
		}
		seen[a.PlayerID] = true
		d.Players++

		cat, ok := categorize(a)
		if !ok {
			continue
		}
		e := DigestEntry{
			PlayerID:   a.PlayerID,
			Name:       a.Name,
			Season:     a.Season,
			Category:   cat,
			Tier1Buys:  a.Tier1Buys,
			Tier1Sells: a.Tier1Sells,
			NetSignal:  (a.Tier1Buys + a.Tier2Buys) - (a.Tier1Sells + a.Tier2Sells),
			Alerts:     a.Alerts,
		}
		switch cat {
		case CategoryStrongBuy:
			d.StrongBuys = append(d.StrongBuys, e)
		case CategoryBuy:
			d.Buys = append(d.Buys, e)
		case CategoryStrongSell:
			d.StrongSells = append(d.StrongSells, e)
		case CategorySell:
			d.Sells = append(d.Sells, e)
		case CategoryMixed:
			d.Mixed = append(d.Mixed, e)
		}
	}

	sort.SliceStable(d.StrongBuys, func(i, j int) bool {
		return d.StrongBuys[i].NetSignal > d.StrongBuys[j].NetSignal
	})
	sort.SliceStable(d.StrongSells, func(i, j int) bool {
		return d.StrongSells[i].NetSignal < d.StrongSells[j].NetSignal
	})
	return d
}

func categorize(a *SeasonAnalysis) (DigestCategory, bool) {
	buys := a.Tier1Buys + a.Tier2Buys
	sells := a.Tier1Sells + a.Tier2Sells
	switch {
	case buys > 0 && sells > 0:
		return CategoryMixed, true
	case a.Tier1Buys >= 2 || (a.Tier1Buys >= 1 && a.Tier2Buys >= 1):
		return CategoryStrongBuy, true
	case buys > 0:
		return CategoryBuy, true
	case a.Tier1Sells >= 2 || (a.Tier1Sells >= 1 && a.Tier2Sells >= 1):
		return CategoryStrongSell, true
	case sells > 0:
		return CategorySell, true
	}
	return "", false
}

// Summary returns a human-readable summary.
func (d *Digest) Summary() string {
	return fmt.Sprintf(
		"players=%d strong_buy=%d buy=%d strong_sell=%d sell=%d mixed=%d",
		d.Players, len(d.StrongBuys), len(d.Buys),
		len(d.StrongSells), len(d.Sells), len(d.Mixed),
	)
}
