package engine

import (
	"log/slog"
	"sort"

	"github.com/lucky2025-star/filon/internal/domain"
)

// maxOpportunities bounds the number of candidates returned per detection.
const maxOpportunities = 10

// DetectorConfig configures the opportunity detector.
type DetectorConfig struct {
	// FeePct maps venue name to taker fee in percentage points (0.1 = 0.1%).
	FeePct map[string]float64
	// DefaultFeePct is used for venues missing from FeePct.
	DefaultFeePct float64
	Logger        *slog.Logger
}

// Detector scans price snapshots for executable cross-venue spreads. It is
// stateless: identical snapshot and threshold always produce identical
// output, in the same order.
type Detector struct {
	feePct        map[string]float64
	defaultFeePct float64
	logger        *slog.Logger
}

// NewDetector creates a Detector with the given per-venue fee schedule.
func NewDetector(cfg DetectorConfig) *Detector {
	return &Detector{
		feePct:        cfg.FeePct,
		defaultFeePct: cfg.DefaultFeePct,
		logger:        cfg.Logger.With(slog.String("component", "detector")),
	}
}

// FeePct returns the configured taker fee for a venue in percentage points.
func (d *Detector) FeePct(venue string) float64 {
	if pct, ok := d.feePct[venue]; ok {
		return pct
	}
	return d.defaultFeePct
}

// Detect computes the net spread for every ordered (buy, sell) venue pair of
// every instrument in the snapshot and returns the candidates at or above
// minSpreadPct, sorted descending by spread with discovery order breaking
// ties, truncated to the top 10. The buy side uses the ask and the sell side
// the bid, so every returned opportunity is executable against the books the
// snapshot observed.
func (d *Detector) Detect(snap domain.PriceSnapshot, minSpreadPct float64) []domain.Opportunity {
	var opps []domain.Opportunity

	for _, instrument := range snap.Instruments() {
		venues := snap.Venues(instrument)
		for _, buyVenue := range venues {
			for _, sellVenue := range venues {
				if buyVenue == sellVenue {
					continue
				}
				buyQuote, _ := snap.Quote(instrument, buyVenue)
				sellQuote, _ := snap.Quote(instrument, sellVenue)

				buyAsk := buyQuote.Ask
				sellBid := sellQuote.Bid
				if buyAsk <= 0 || sellBid <= 0 {
					continue
				}

				spread := NetSpreadPct(buyAsk, sellBid, d.FeePct(buyVenue), d.FeePct(sellVenue))
				if spread < minSpreadPct {
					continue
				}

				opps = append(opps, domain.Opportunity{
					Instrument: instrument,
					BuyVenue:   buyVenue,
					SellVenue:  sellVenue,
					BuyPrice:   buyAsk,
					SellPrice:  sellBid,
					SpreadPct:  spread,
					DetectedAt: snap.TakenAt,
				})
			}
		}
	}

	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].SpreadPct > opps[j].SpreadPct
	})
	if len(opps) > maxOpportunities {
		opps = opps[:maxOpportunities]
	}

	if len(opps) > 0 {
		d.logger.Debug("opportunities detected",
			slog.Int("count", len(opps)),
			slog.Float64("top_spread_pct", opps[0].SpreadPct),
		)
	}
	return opps
}
