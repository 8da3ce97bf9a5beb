package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lucky2025-star/filon/internal/domain"
)

const gateioDefaultBaseURL = "https://api.gateio.ws"

// gateio talks to the Gate.io v4 spot REST API. Private requests are signed
// with HMAC-SHA512 over method, path, query, body hash, and timestamp.
type gateio struct {
	rest  *restClient
	creds Credentials
}

func newGateio(baseURL string, creds Credentials) *gateio {
	if baseURL == "" {
		baseURL = gateioDefaultBaseURL
	}
	return &gateio{rest: newRESTClient(baseURL), creds: creds}
}

func (g *gateio) Venue() string { return "gateio" }

// gateioPair maps "BTC/USDT" to "BTC_USDT".
func gateioPair(instrument string) string {
	return strings.ReplaceAll(instrument, "/", "_")
}

func (g *gateio) GetQuote(ctx context.Context, instrument string) (domain.Quote, error) {
	var resp []struct {
		HighestBid string `json:"highest_bid"`
		LowestAsk  string `json:"lowest_ask"`
		Last       string `json:"last"`
	}
	q := url.Values{"currency_pair": {gateioPair(instrument)}}
	if err := g.rest.doJSON(ctx, "GET", "/api/v4/spot/tickers", q, nil, nil, &resp); err != nil {
		return domain.Quote{}, fmt.Errorf("gateio: quote %s: %w", instrument, err)
	}
	if len(resp) == 0 {
		return domain.Quote{}, fmt.Errorf("gateio: quote %s: %w", instrument, domain.ErrNotFound)
	}
	return domain.Quote{
		Venue:      "gateio",
		Instrument: instrument,
		Bid:        parseFloat(resp[0].HighestBid),
		Ask:        parseFloat(resp[0].LowestAsk),
		Last:       parseFloat(resp[0].Last),
		Timestamp:  time.Now().UTC(),
	}, nil
}

func (g *gateio) GetBalances(ctx context.Context) (map[string]domain.Balance, error) {
	if !g.creds.HasAuth() {
		return nil, fmt.Errorf("gateio: balances: %w", domain.ErrNoCredentials)
	}
	var resp []struct {
		Currency  string `json:"currency"`
		Available string `json:"available"`
		Locked    string `json:"locked"`
	}
	if err := g.signedJSON(ctx, "GET", "/api/v4/spot/accounts", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("gateio: balances: %w", err)
	}

	out := make(map[string]domain.Balance)
	for _, acc := range resp {
		free, locked := parseFloat(acc.Available), parseFloat(acc.Locked)
		if free == 0 && locked == 0 {
			continue
		}
		out[acc.Currency] = domain.Balance{Free: free, Locked: locked, Total: free + locked}
	}
	return out, nil
}

func (g *gateio) PlaceMarketOrder(ctx context.Context, instrument string, side domain.OrderSide, quantity float64) (domain.OrderResult, error) {
	if !g.creds.HasAuth() {
		return domain.OrderResult{}, fmt.Errorf("gateio: order: %w", domain.ErrNoCredentials)
	}

	// Market buys are denominated in quote currency. Size the order from the
	// current ask so the requested base quantity is what gets bought.
	amount := formatQty(quantity)
	if side == domain.OrderSideBuy {
		quote, err := g.GetQuote(ctx, instrument)
		if err != nil {
			return domain.OrderResult{}, fmt.Errorf("gateio: size buy order: %w", err)
		}
		if quote.Ask <= 0 {
			return domain.OrderResult{}, fmt.Errorf("gateio: size buy order: no ask for %s", instrument)
		}
		amount = formatQty(quantity * quote.Ask)
	}

	body, err := json.Marshal(map[string]string{
		"currency_pair": gateioPair(instrument),
		"type":          "market",
		"side":          string(side),
		"amount":        amount,
		"time_in_force": "ioc",
	})
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("gateio: encode order: %w", err)
	}

	var resp struct {
		ID           string `json:"id"`
		FilledAmount string `json:"filled_amount"`
		AvgDealPrice string `json:"avg_deal_price"`
	}
	if err := g.signedJSON(ctx, "POST", "/api/v4/spot/orders", nil, body, &resp); err != nil {
		return domain.OrderResult{}, fmt.Errorf("gateio: order %s %s: %w", side, instrument, err)
	}
	return domain.OrderResult{
		OrderID:   resp.ID,
		AvgPrice:  parseFloat(resp.AvgDealPrice),
		FilledQty: parseFloat(resp.FilledAmount),
	}, nil
}

func (g *gateio) GetOrderStatus(ctx context.Context, orderID, instrument string) (domain.OrderState, error) {
	if !g.creds.HasAuth() {
		return domain.OrderState{}, fmt.Errorf("gateio: order status: %w", domain.ErrNoCredentials)
	}
	q := url.Values{"currency_pair": {gateioPair(instrument)}}
	var resp struct {
		ID           string `json:"id"`
		Status       string `json:"status"`
		FilledAmount string `json:"filled_amount"`
		AvgDealPrice string `json:"avg_deal_price"`
	}
	if err := g.signedJSON(ctx, "GET", "/api/v4/spot/orders/"+orderID, q, nil, &resp); err != nil {
		return domain.OrderState{}, fmt.Errorf("gateio: order status %s: %w", orderID, err)
	}
	return domain.OrderState{
		OrderID:   resp.ID,
		Status:    gateioOrderStatus(resp.Status),
		AvgPrice:  parseFloat(resp.AvgDealPrice),
		FilledQty: parseFloat(resp.FilledAmount),
	}, nil
}

func (g *gateio) CancelOrder(ctx context.Context, orderID, instrument string) error {
	if !g.creds.HasAuth() {
		return fmt.Errorf("gateio: cancel: %w", domain.ErrNoCredentials)
	}
	q := url.Values{"currency_pair": {gateioPair(instrument)}}
	if err := g.signedJSON(ctx, "DELETE", "/api/v4/spot/orders/"+orderID, q, nil, nil); err != nil {
		return fmt.Errorf("gateio: cancel %s: %w", orderID, err)
	}
	return nil
}

func (g *gateio) signedJSON(ctx context.Context, method, path string, q url.Values, body []byte, out any) error {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	payload := strings.Join([]string{
		method,
		path,
		q.Encode(),
		sha512Hex(body),
		ts,
	}, "\n")
	headers := map[string]string{
		"KEY":       g.creds.Key,
		"Timestamp": ts,
		"SIGN":      signHMACSHA512Hex(g.creds.Secret, payload),
	}
	return g.rest.doJSON(ctx, method, path, q, body, headers, out)
}

func gateioOrderStatus(s string) domain.OrderStatus {
	switch s {
	case "closed":
		return domain.OrderStatusFilled
	case "cancelled":
		return domain.OrderStatusCancelled
	default:
		return domain.OrderStatusOpen
	}
}
