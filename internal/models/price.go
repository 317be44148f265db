package models

import (
	"time"
)

// NeverFetched is the sentinel timestamp assigned to a competitor entry that has
// been attempted at least once but never successfully observed. It is fixed and
// far in the past so stale placeholders sort before any real observation.
var NeverFetched = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// CompetitorPrice is one marketplace's observation of a product's price.
// Price 0 together with IsLive false means "never successfully observed",
// not "free".
type CompetitorPrice struct {
	Competitor  string    `json:"competitor"`
	Price       float64   `json:"price"`
	SourceURL   string    `json:"source_url"`
	LastUpdated time.Time `json:"last_updated"`
	IsLive      bool      `json:"is_live"`
}

// PriceSnapshot is the full per-product mapping of competitor name to price
// observation. It is mutated per competitor on every fetch cycle and never
// shrinks except on an explicit cache clear.
type PriceSnapshot map[string]CompetitorPrice

// Clone returns a deep copy so callers can mutate without aliasing the cache.
func (s PriceSnapshot) Clone() PriceSnapshot {
	out := make(PriceSnapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// LiveCount returns how many entries were observed in the current cycle.
func (s PriceSnapshot) LiveCount() int {
	n := 0
	for _, cp := range s {
		if cp.IsLive {
			n++
		}
	}
	return n
}

// AllLive reports whether every entry in the snapshot is live. An empty
// snapshot is not considered live.
func (s PriceSnapshot) AllLive() bool {
	if len(s) == 0 {
		return false
	}
	return s.LiveCount() == len(s)
}

// NewLivePrice builds an observation for a fetch that succeeded in the current
// cycle.
func NewLivePrice(competitor string, price float64, sourceURL string, now time.Time) CompetitorPrice {
	return CompetitorPrice{
		Competitor:  competitor,
		Price:       price,
		SourceURL:   sourceURL,
		LastUpdated: now,
		IsLive:      true,
	}
}

// NewUnobservedPrice builds the fallback entry synthesized when a fetch fails
// and no prior cached value exists.
func NewUnobservedPrice(competitor, sourceURL string) CompetitorPrice {
	return CompetitorPrice{
		Competitor:  competitor,
		Price:       0,
		SourceURL:   sourceURL,
		LastUpdated: NeverFetched,
		IsLive:      false,
	}
}

// Observed reports whether this entry ever carried a real price.
func (p CompetitorPrice) Observed() bool {
	return p.IsLive || p.Price > 0
}

// Product is the catalog view the orchestrator needs: name and brand feed the
// URL repository, the rest is passed through to the UI.
type Product struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Brand string  `json:"brand"`
	Price float64 `json:"price"`
	Type  string  `json:"type"`
}
