// Package executor places the two legs of an arbitrage trade against venue
// gateways and produces a trade record with a well-defined terminal status.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lucky2025-star/filon/internal/domain"
)

// GatewayResolver maps a venue name to its Gateway. It is implemented by
// gateway.Manager.
type GatewayResolver interface {
	Gateway(venue string) (domain.Gateway, error)
}

// Executor executes two-leg arbitrage trades. It holds no risk state: the
// resulting TradeRecord is handed to the risk gate by the caller, and the
// executor never reads or branches on risk decisions itself.
type Executor struct {
	gateways GatewayResolver
	logger   *slog.Logger
}

// NewExecutor creates an Executor that resolves venues through gateways.
func NewExecutor(gateways GatewayResolver, logger *slog.Logger) *Executor {
	return &Executor{
		gateways: gateways,
		logger:   logger.With(slog.String("component", "executor")),
	}
}

// Execute places a market buy on opp.BuyVenue and, only if the buy succeeds,
// a market sell on opp.SellVenue, strictly in that order and never in
// parallel. A failed buy terminates the trade as "failed" with the sell leg
// untouched; a failed sell after a successful buy terminates it as "partial",
// leaving unhedged inventory of quantity base asset on the buy venue. When
// both legs fill the record is "completed" with realized P&L computed from
// the venues' average fill prices.
//
// Execute returns a non-nil error only for input problems detected before
// any order is placed (bad quantity, unknown venue); gateway failures are
// absorbed into the record's status, never returned as errors.
func (e *Executor) Execute(ctx context.Context, opp domain.Opportunity, quantity float64) (domain.TradeRecord, error) {
	if quantity <= 0 {
		return domain.TradeRecord{}, fmt.Errorf("executor: quantity %v: %w", quantity, domain.ErrInvalidInput)
	}
	if opp.BuyVenue == opp.SellVenue {
		return domain.TradeRecord{}, fmt.Errorf("executor: buy and sell venue both %q: %w", opp.BuyVenue, domain.ErrInvalidInput)
	}

	// Resolve both gateways up front so a misconfigured sell venue is caught
	// before the buy order is placed, not after.
	buyGW, err := e.gateways.Gateway(opp.BuyVenue)
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("executor: resolve buy venue: %w", err)
	}
	sellGW, err := e.gateways.Gateway(opp.SellVenue)
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("executor: resolve sell venue: %w", err)
	}

	rec := domain.TradeRecord{
		ID:         uuid.New().String(),
		CreatedAt:  time.Now().UTC(),
		Instrument: opp.Instrument,
		Quantity:   quantity,
		BuyVenue:   opp.BuyVenue,
		SellVenue:  opp.SellVenue,
		Status:     domain.TradeStatusPending,
	}

	log := e.logger.With(
		slog.String("trade_id", rec.ID),
		slog.String("instrument", rec.Instrument),
		slog.String("buy_venue", rec.BuyVenue),
		slog.String("sell_venue", rec.SellVenue),
		slog.Float64("quantity", quantity),
	)

	buyRes, err := buyGW.PlaceMarketOrder(ctx, opp.Instrument, domain.OrderSideBuy, quantity)
	if err != nil {
		// The sell leg must never run after a failed buy.
		rec.Status = domain.TradeStatusFailed
		rec.Error = fmt.Sprintf("buy failed: %v", err)
		log.Error("buy leg failed", slog.String("error", err.Error()))
		return rec, nil
	}
	rec.BuyLeg = &domain.LegResult{
		OrderID:   buyRes.OrderID,
		AvgPrice:  buyRes.AvgPrice,
		FilledQty: buyRes.FilledQty,
	}

	sellRes, err := sellGW.PlaceMarketOrder(ctx, opp.Instrument, domain.OrderSideSell, quantity)
	if err != nil {
		rec.Status = domain.TradeStatusPartial
		rec.Error = fmt.Sprintf("sell failed: %v", err)
		log.Error("sell leg failed after successful buy, position unhedged",
			slog.String("error", err.Error()),
			slog.Float64("exposed_qty", quantity),
		)
		return rec, nil
	}
	rec.SellLeg = &domain.LegResult{
		OrderID:   sellRes.OrderID,
		AvgPrice:  sellRes.AvgPrice,
		FilledQty: sellRes.FilledQty,
	}

	rec.Status = domain.TradeStatusCompleted
	rec.PnL = sellRes.AvgPrice*quantity - buyRes.AvgPrice*quantity
	log.Info("trade completed",
		slog.Float64("buy_avg", buyRes.AvgPrice),
		slog.Float64("sell_avg", sellRes.AvgPrice),
		slog.Float64("pnl", rec.PnL),
	)
	return rec, nil
}
