// Package domain defines the core types shared across the arbitrage bot:
// quotes, snapshots, opportunities, trade records, and the interfaces through
// which the core loop talks to venues, stores, and caches.
package domain

import (
	"sort"
	"time"
)

// Quote is a single venue's top-of-book view of one instrument. It is
// produced fresh on every poll and never mutated afterwards.
type Quote struct {
	Venue      string    `json:"venue"`
	Instrument string    `json:"instrument"`
	Bid        float64   `json:"bid"`
	Ask        float64   `json:"ask"`
	Last       float64   `json:"last"`
	Timestamp  time.Time `json:"timestamp"`
}

// Tradeable reports whether the quote carries a usable two-sided market.
// Quotes without a positive bid and ask are excluded from snapshots.
func (q Quote) Tradeable() bool {
	return q.Bid > 0 && q.Ask > 0
}

// PriceSnapshot is a point-in-time view of quotes, keyed by instrument and
// then venue. A snapshot is immutable after construction: each poll builds a
// new one and atomically replaces the previous.
type PriceSnapshot struct {
	TakenAt time.Time                   `json:"taken_at"`
	Prices  map[string]map[string]Quote `json:"prices"`
}

// Quote returns the quote for an instrument on a venue, if present.
func (s PriceSnapshot) Quote(instrument, venue string) (Quote, bool) {
	q, ok := s.Prices[instrument][venue]
	return q, ok
}

// Instruments returns the instruments present in the snapshot in sorted
// order, so iteration over a snapshot is deterministic.
func (s PriceSnapshot) Instruments() []string {
	out := make([]string, 0, len(s.Prices))
	for inst := range s.Prices {
		out = append(out, inst)
	}
	sort.Strings(out)
	return out
}

// Venues returns the venues quoting an instrument in sorted order.
func (s PriceSnapshot) Venues(instrument string) []string {
	venues := s.Prices[instrument]
	out := make([]string, 0, len(venues))
	for v := range venues {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
