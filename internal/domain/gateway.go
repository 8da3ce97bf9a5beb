package domain

import "context"

// OrderSide indicates whether an order buys or sells the base asset.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderStatus is the venue-reported state of an order.
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// OrderResult is the venue's report for a placed market order.
type OrderResult struct {
	OrderID   string  `json:"order_id"`
	AvgPrice  float64 `json:"avg_price"`
	FilledQty float64 `json:"filled_qty"`
}

// OrderState is the venue's current view of a previously placed order.
type OrderState struct {
	OrderID   string      `json:"order_id"`
	Status    OrderStatus `json:"status"`
	AvgPrice  float64     `json:"avg_price"`
	FilledQty float64     `json:"filled_qty"`
}

// Gateway is the uniform per-venue trading capability the core consumes.
// Implementations absorb venue API differences (authentication shape,
// endpoint layout, symbol format) behind an identical method set. All errors
// are ordinary return values; a Gateway never panics into the core.
type Gateway interface {
	// Venue returns the venue identifier, e.g. "binance".
	Venue() string
	// GetQuote fetches the current top-of-book quote for an instrument.
	GetQuote(ctx context.Context, instrument string) (Quote, error)
	// GetBalances fetches per-asset balances for the account.
	GetBalances(ctx context.Context) (map[string]Balance, error)
	// PlaceMarketOrder submits a market order and returns the fill report.
	PlaceMarketOrder(ctx context.Context, instrument string, side OrderSide, quantity float64) (OrderResult, error)
	// GetOrderStatus looks up a previously placed order.
	GetOrderStatus(ctx context.Context, orderID, instrument string) (OrderState, error)
	// CancelOrder cancels an open order.
	CancelOrder(ctx context.Context, orderID, instrument string) error
}
