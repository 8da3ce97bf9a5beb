package domain

import "time"

// Opportunity is a profitable cross-venue price discrepancy derived from a
// single snapshot. BuyPrice is the best ask on BuyVenue and SellPrice the
// best bid on SellVenue, so the opportunity is executable at detection time.
// SpreadPct is net of both legs' fees. BuyVenue and SellVenue always differ.
type Opportunity struct {
	Instrument string    `json:"instrument"`
	BuyVenue   string    `json:"buy_venue"`
	SellVenue  string    `json:"sell_venue"`
	BuyPrice   float64   `json:"buy_price"`
	SellPrice  float64   `json:"sell_price"`
	SpreadPct  float64   `json:"spread_pct"`
	DetectedAt time.Time `json:"detected_at"`
}
