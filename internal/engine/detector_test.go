package engine

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucky2025-star/filon/internal/domain"
)

func testDetector(fees map[string]float64) *Detector {
	return NewDetector(DetectorConfig{
		FeePct:        fees,
		DefaultFeePct: 0.1,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func snapshotOf(quotes ...domain.Quote) domain.PriceSnapshot {
	snap := domain.PriceSnapshot{
		TakenAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Prices:  map[string]map[string]domain.Quote{},
	}
	for _, q := range quotes {
		if snap.Prices[q.Instrument] == nil {
			snap.Prices[q.Instrument] = map[string]domain.Quote{}
		}
		snap.Prices[q.Instrument][q.Venue] = q
	}
	return snap
}

func TestDetectFindsCrossVenueSpread(t *testing.T) {
	snap := snapshotOf(
		domain.Quote{Venue: "binance", Instrument: "BTC/USDT", Bid: 99.5, Ask: 100},
		domain.Quote{Venue: "kucoin", Instrument: "BTC/USDT", Bid: 101, Ask: 101.5},
	)

	opps := testDetector(nil).Detect(snap, 0.3)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, "BTC/USDT", opp.Instrument)
	assert.Equal(t, "binance", opp.BuyVenue)
	assert.Equal(t, "kucoin", opp.SellVenue)
	assert.Equal(t, 100.0, opp.BuyPrice)
	assert.Equal(t, 101.0, opp.SellPrice)
	// 1% gross minus 0.1% default fee per leg.
	assert.InDelta(t, 0.8, opp.SpreadPct, 1e-9)
}

func TestDetectNeverPairsVenueWithItself(t *testing.T) {
	snap := snapshotOf(
		domain.Quote{Venue: "binance", Instrument: "BTC/USDT", Bid: 200, Ask: 100},
		domain.Quote{Venue: "kucoin", Instrument: "BTC/USDT", Bid: 200, Ask: 100},
	)
	for _, opp := range testDetector(nil).Detect(snap, 0) {
		assert.NotEqual(t, opp.BuyVenue, opp.SellVenue)
	}
}

func TestDetectExcludesBelowThreshold(t *testing.T) {
	// Gross spread 0.45%, net 0.25% after two 0.1% legs: below the 0.3% floor.
	snap := snapshotOf(
		domain.Quote{Venue: "binance", Instrument: "ETH/USDT", Bid: 99, Ask: 100},
		domain.Quote{Venue: "okx", Instrument: "ETH/USDT", Bid: 100.45, Ask: 101},
	)
	opps := testDetector(nil).Detect(snap, 0.3)
	assert.Empty(t, opps)

	// The same pair passes once the threshold drops below its net spread.
	opps = testDetector(nil).Detect(snap, 0.2)
	require.Len(t, opps, 1)
	assert.InDelta(t, 0.25, opps[0].SpreadPct, 1e-9)
}

func TestDetectThresholdIsInclusive(t *testing.T) {
	// Net spread of exactly the threshold is kept.
	snap := snapshotOf(
		domain.Quote{Venue: "binance", Instrument: "ETH/USDT", Bid: 99, Ask: 100},
		domain.Quote{Venue: "okx", Instrument: "ETH/USDT", Bid: 100.5, Ask: 101},
	)
	opps := testDetector(nil).Detect(snap, 0.3)
	require.Len(t, opps, 1)
	assert.InDelta(t, 0.3, opps[0].SpreadPct, 1e-9)
}

func TestDetectUsesPerVenueFees(t *testing.T) {
	fees := map[string]float64{"binance": 0.2, "okx": 0.3}
	snap := snapshotOf(
		domain.Quote{Venue: "binance", Instrument: "ETH/USDT", Bid: 99, Ask: 100},
		domain.Quote{Venue: "okx", Instrument: "ETH/USDT", Bid: 101, Ask: 102},
	)
	opps := testDetector(fees).Detect(snap, 0)
	require.Len(t, opps, 1)
	assert.InDelta(t, 1.0-0.2-0.3, opps[0].SpreadPct, 1e-9)
}

func TestDetectSortedAndDeterministic(t *testing.T) {
	snap := snapshotOf(
		domain.Quote{Venue: "binance", Instrument: "BTC/USDT", Bid: 99, Ask: 100},
		domain.Quote{Venue: "kucoin", Instrument: "BTC/USDT", Bid: 102, Ask: 103},
		domain.Quote{Venue: "okx", Instrument: "BTC/USDT", Bid: 101, Ask: 101.5},
		domain.Quote{Venue: "binance", Instrument: "ETH/USDT", Bid: 9.9, Ask: 10},
		domain.Quote{Venue: "okx", Instrument: "ETH/USDT", Bid: 10.2, Ask: 10.3},
	)
	d := testDetector(nil)

	first := d.Detect(snap, 0.1)
	require.NotEmpty(t, first)
	for i := 1; i < len(first); i++ {
		assert.GreaterOrEqual(t, first[i-1].SpreadPct, first[i].SpreadPct,
			"output must be non-increasing by spread")
	}

	// Re-running on the same snapshot is idempotent.
	for range 5 {
		assert.Equal(t, first, d.Detect(snap, 0.1))
	}
}

func TestDetectTruncatesToTopTen(t *testing.T) {
	// Six venues quoting one instrument yield 30 ordered pairs; make them all
	// profitable by stacking bids above asks.
	quotes := []domain.Quote{
		{Venue: "binance", Instrument: "BTC/USDT", Bid: 105, Ask: 100},
		{Venue: "bybit", Instrument: "BTC/USDT", Bid: 106, Ask: 100.5},
		{Venue: "gateio", Instrument: "BTC/USDT", Bid: 107, Ask: 101},
		{Venue: "kucoin", Instrument: "BTC/USDT", Bid: 108, Ask: 101.5},
		{Venue: "mexc", Instrument: "BTC/USDT", Bid: 109, Ask: 102},
		{Venue: "okx", Instrument: "BTC/USDT", Bid: 110, Ask: 102.5},
	}
	opps := testDetector(nil).Detect(snapshotOf(quotes...), 0)
	assert.Len(t, opps, 10)
}

func TestDetectSkipsNonPositivePrices(t *testing.T) {
	snap := snapshotOf(
		domain.Quote{Venue: "binance", Instrument: "BTC/USDT", Bid: 100, Ask: 0},
		domain.Quote{Venue: "kucoin", Instrument: "BTC/USDT", Bid: 0, Ask: 100},
	)
	assert.Empty(t, testDetector(nil).Detect(snap, 0))
}
