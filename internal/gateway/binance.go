package gateway

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lucky2025-star/filon/internal/domain"
)

const binanceDefaultBaseURL = "https://api.binance.com"

// binance talks to the Binance spot REST API. Private endpoints are signed by
// appending an HMAC-SHA256 hex signature over the query string.
type binance struct {
	rest  *restClient
	creds Credentials
}

func newBinance(baseURL string, creds Credentials) *binance {
	if baseURL == "" {
		baseURL = binanceDefaultBaseURL
	}
	return &binance{rest: newRESTClient(baseURL), creds: creds}
}

func (b *binance) Venue() string { return "binance" }

// binanceSymbol maps "BTC/USDT" to "BTCUSDT".
func binanceSymbol(instrument string) string {
	return strings.ReplaceAll(instrument, "/", "")
}

func (b *binance) GetQuote(ctx context.Context, instrument string) (domain.Quote, error) {
	var resp struct {
		BidPrice  string `json:"bidPrice"`
		AskPrice  string `json:"askPrice"`
		LastPrice string `json:"lastPrice"`
	}
	q := url.Values{"symbol": {binanceSymbol(instrument)}}
	if err := b.rest.doJSON(ctx, "GET", "/api/v3/ticker/24hr", q, nil, nil, &resp); err != nil {
		return domain.Quote{}, fmt.Errorf("binance: quote %s: %w", instrument, err)
	}
	return domain.Quote{
		Venue:      "binance",
		Instrument: instrument,
		Bid:        parseFloat(resp.BidPrice),
		Ask:        parseFloat(resp.AskPrice),
		Last:       parseFloat(resp.LastPrice),
		Timestamp:  time.Now().UTC(),
	}, nil
}

func (b *binance) GetBalances(ctx context.Context) (map[string]domain.Balance, error) {
	if !b.creds.HasAuth() {
		return nil, fmt.Errorf("binance: balances: %w", domain.ErrNoCredentials)
	}
	var resp struct {
		Balances []struct {
			Asset  string `json:"asset"`
			Free   string `json:"free"`
			Locked string `json:"locked"`
		} `json:"balances"`
	}
	if err := b.signedJSON(ctx, "GET", "/api/v3/account", url.Values{}, &resp); err != nil {
		return nil, fmt.Errorf("binance: balances: %w", err)
	}

	out := make(map[string]domain.Balance)
	for _, bal := range resp.Balances {
		free, locked := parseFloat(bal.Free), parseFloat(bal.Locked)
		if free == 0 && locked == 0 {
			continue
		}
		out[bal.Asset] = domain.Balance{Free: free, Locked: locked, Total: free + locked}
	}
	return out, nil
}

func (b *binance) PlaceMarketOrder(ctx context.Context, instrument string, side domain.OrderSide, quantity float64) (domain.OrderResult, error) {
	if !b.creds.HasAuth() {
		return domain.OrderResult{}, fmt.Errorf("binance: order: %w", domain.ErrNoCredentials)
	}
	q := url.Values{
		"symbol":   {binanceSymbol(instrument)},
		"side":     {strings.ToUpper(string(side))},
		"type":     {"MARKET"},
		"quantity": {formatQty(quantity)},
	}
	var resp struct {
		OrderID         int64  `json:"orderId"`
		ExecutedQty     string `json:"executedQty"`
		CumulativeQuote string `json:"cummulativeQuoteQty"`
	}
	if err := b.signedJSON(ctx, "POST", "/api/v3/order", q, &resp); err != nil {
		return domain.OrderResult{}, fmt.Errorf("binance: order %s %s: %w", side, instrument, err)
	}

	filled := parseFloat(resp.ExecutedQty)
	var avg float64
	if filled > 0 {
		avg = parseFloat(resp.CumulativeQuote) / filled
	}
	return domain.OrderResult{
		OrderID:   strconv.FormatInt(resp.OrderID, 10),
		AvgPrice:  avg,
		FilledQty: filled,
	}, nil
}

func (b *binance) GetOrderStatus(ctx context.Context, orderID, instrument string) (domain.OrderState, error) {
	if !b.creds.HasAuth() {
		return domain.OrderState{}, fmt.Errorf("binance: order status: %w", domain.ErrNoCredentials)
	}
	q := url.Values{
		"symbol":  {binanceSymbol(instrument)},
		"orderId": {orderID},
	}
	var resp struct {
		OrderID         int64  `json:"orderId"`
		Status          string `json:"status"`
		ExecutedQty     string `json:"executedQty"`
		CumulativeQuote string `json:"cummulativeQuoteQty"`
	}
	if err := b.signedJSON(ctx, "GET", "/api/v3/order", q, &resp); err != nil {
		return domain.OrderState{}, fmt.Errorf("binance: order status %s: %w", orderID, err)
	}

	filled := parseFloat(resp.ExecutedQty)
	var avg float64
	if filled > 0 {
		avg = parseFloat(resp.CumulativeQuote) / filled
	}
	return domain.OrderState{
		OrderID:   strconv.FormatInt(resp.OrderID, 10),
		Status:    binanceOrderStatus(resp.Status),
		AvgPrice:  avg,
		FilledQty: filled,
	}, nil
}

func (b *binance) CancelOrder(ctx context.Context, orderID, instrument string) error {
	if !b.creds.HasAuth() {
		return fmt.Errorf("binance: cancel: %w", domain.ErrNoCredentials)
	}
	q := url.Values{
		"symbol":  {binanceSymbol(instrument)},
		"orderId": {orderID},
	}
	if err := b.signedJSON(ctx, "DELETE", "/api/v3/order", q, nil); err != nil {
		return fmt.Errorf("binance: cancel %s: %w", orderID, err)
	}
	return nil
}

// signedJSON adds the timestamp and signature parameters and the API key
// header required by Binance private endpoints.
func (b *binance) signedJSON(ctx context.Context, method, path string, q url.Values, out any) error {
	q.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	q.Set("signature", signHMACSHA256Hex(b.creds.Secret, q.Encode()))
	headers := map[string]string{"X-MBX-APIKEY": b.creds.Key}
	return b.rest.doJSON(ctx, method, path, q, nil, headers, out)
}

func binanceOrderStatus(s string) domain.OrderStatus {
	switch s {
	case "FILLED":
		return domain.OrderStatusFilled
	case "CANCELED", "EXPIRED":
		return domain.OrderStatusCancelled
	case "REJECTED":
		return domain.OrderStatusRejected
	default:
		return domain.OrderStatusOpen
	}
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
