package domain

import "time"

// TradeStatus tracks the lifecycle of a two-leg arbitrage trade. Transitions
// are one-way: pending -> completed | partial | failed. A record is never
// reopened once it reaches a terminal status.
type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "pending"
	TradeStatusCompleted TradeStatus = "completed"
	// TradeStatusPartial means the buy leg filled but the sell leg did not.
	// The base asset bought on BuyVenue is unhedged inventory; resolution is
	// an external concern.
	TradeStatusPartial TradeStatus = "partial"
	TradeStatusFailed  TradeStatus = "failed"
)

// LegResult captures the gateway's report for one executed leg.
type LegResult struct {
	OrderID   string  `json:"order_id"`
	AvgPrice  float64 `json:"avg_price"`
	FilledQty float64 `json:"filled_qty"`
}

// TradeRecord is the full account of one two-leg arbitrage trade. BuyLeg and
// SellLeg are nil when the corresponding leg was never attempted or failed.
// PnL is realized profit in quote currency; it is zero unless the trade
// completed (a partial trade is open exposure, not a booked loss).
type TradeRecord struct {
	ID         string      `json:"id"`
	CreatedAt  time.Time   `json:"created_at"`
	Instrument string      `json:"instrument"`
	Quantity   float64     `json:"quantity"`
	BuyVenue   string      `json:"buy_venue"`
	SellVenue  string      `json:"sell_venue"`
	BuyLeg     *LegResult  `json:"buy_leg,omitempty"`
	SellLeg    *LegResult  `json:"sell_leg,omitempty"`
	Status     TradeStatus `json:"status"`
	PnL        float64     `json:"pnl"`
	Error      string      `json:"error,omitempty"`
}
