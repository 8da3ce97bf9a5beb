// Package engine computes spreads and profits and detects cross-venue
// arbitrage opportunities from price snapshots. Everything here is pure and
// synchronous; the package performs no I/O.
package engine

import (
	"fmt"

	"github.com/lucky2025-star/filon/internal/domain"
)

// ProfitBreakdown itemizes the economics of one two-leg trade. Fees are
// charged on the notional of each leg.
type ProfitBreakdown struct {
	BuyCost      float64 `json:"buy_cost"`
	BuyFee       float64 `json:"buy_fee"`
	TotalBuyCost float64 `json:"total_buy_cost"`
	SellRevenue  float64 `json:"sell_revenue"`
	SellFee      float64 `json:"sell_fee"`
	NetRevenue   float64 `json:"net_revenue"`
	ProfitUSD    float64 `json:"profit_usd"`
	ProfitPct    float64 `json:"profit_pct"`
}

// ComputeProfit calculates the realized economics of buying quantity at
// buyPrice and selling it at sellPrice, with per-leg fee rates given as
// fractions (0.001 = 0.1%). It rejects non-positive quantity or buy price
// before doing any arithmetic.
func ComputeProfit(buyPrice, sellPrice, quantity, buyFeeRate, sellFeeRate float64) (ProfitBreakdown, error) {
	if quantity <= 0 {
		return ProfitBreakdown{}, fmt.Errorf("engine: quantity %v: %w", quantity, domain.ErrInvalidInput)
	}
	if buyPrice <= 0 {
		return ProfitBreakdown{}, fmt.Errorf("engine: buy price %v: %w", buyPrice, domain.ErrInvalidInput)
	}

	b := ProfitBreakdown{}
	b.BuyCost = buyPrice * quantity
	b.BuyFee = b.BuyCost * buyFeeRate
	b.TotalBuyCost = b.BuyCost + b.BuyFee

	b.SellRevenue = sellPrice * quantity
	b.SellFee = b.SellRevenue * sellFeeRate
	b.NetRevenue = b.SellRevenue - b.SellFee

	b.ProfitUSD = b.NetRevenue - b.TotalBuyCost
	b.ProfitPct = (b.ProfitUSD / b.TotalBuyCost) * 100
	return b, nil
}

// NetSpreadPct computes the spread between a sell-side bid and a buy-side ask
// as a percentage of the buy ask, net of both legs' fees expressed in
// percentage points.
func NetSpreadPct(buyAsk, sellBid, buyFeePct, sellFeePct float64) float64 {
	if buyAsk <= 0 {
		return 0
	}
	return ((sellBid-buyAsk)/buyAsk)*100 - buyFeePct - sellFeePct
}
