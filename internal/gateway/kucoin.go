package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lucky2025-star/filon/internal/domain"
)

const kucoinDefaultBaseURL = "https://api.kucoin.com"

// kucoin talks to the KuCoin spot REST API. Every response is wrapped in a
// {code, data} envelope; private requests carry four headers including a
// passphrase signed separately from the request itself (API key version 2).
type kucoin struct {
	rest  *restClient
	creds Credentials
}

func newKuCoin(baseURL string, creds Credentials) *kucoin {
	if baseURL == "" {
		baseURL = kucoinDefaultBaseURL
	}
	return &kucoin{rest: newRESTClient(baseURL), creds: creds}
}

func (k *kucoin) Venue() string { return "kucoin" }

// kucoinSymbol maps "BTC/USDT" to "BTC-USDT".
func kucoinSymbol(instrument string) string {
	return strings.ReplaceAll(instrument, "/", "-")
}

type kucoinEnvelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (k *kucoin) unwrap(env kucoinEnvelope, out any) error {
	if env.Code != "200000" {
		return fmt.Errorf("kucoin: api error %s: %s", env.Code, env.Msg)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("kucoin: decode data: %w", err)
	}
	return nil
}

func (k *kucoin) GetQuote(ctx context.Context, instrument string) (domain.Quote, error) {
	var env kucoinEnvelope
	q := url.Values{"symbol": {kucoinSymbol(instrument)}}
	if err := k.rest.doJSON(ctx, "GET", "/api/v1/market/orderbook/level1", q, nil, nil, &env); err != nil {
		return domain.Quote{}, fmt.Errorf("kucoin: quote %s: %w", instrument, err)
	}
	var data struct {
		Price   string `json:"price"`
		BestBid string `json:"bestBid"`
		BestAsk string `json:"bestAsk"`
	}
	if err := k.unwrap(env, &data); err != nil {
		return domain.Quote{}, err
	}
	return domain.Quote{
		Venue:      "kucoin",
		Instrument: instrument,
		Bid:        parseFloat(data.BestBid),
		Ask:        parseFloat(data.BestAsk),
		Last:       parseFloat(data.Price),
		Timestamp:  time.Now().UTC(),
	}, nil
}

func (k *kucoin) GetBalances(ctx context.Context) (map[string]domain.Balance, error) {
	if !k.creds.HasAuth() {
		return nil, fmt.Errorf("kucoin: balances: %w", domain.ErrNoCredentials)
	}
	var env kucoinEnvelope
	q := url.Values{"type": {"trade"}}
	if err := k.signedJSON(ctx, "GET", "/api/v1/accounts", q, nil, &env); err != nil {
		return nil, fmt.Errorf("kucoin: balances: %w", err)
	}
	var accounts []struct {
		Currency  string `json:"currency"`
		Balance   string `json:"balance"`
		Available string `json:"available"`
		Holds     string `json:"holds"`
	}
	if err := k.unwrap(env, &accounts); err != nil {
		return nil, err
	}

	out := make(map[string]domain.Balance)
	for _, acc := range accounts {
		total := parseFloat(acc.Balance)
		if total == 0 {
			continue
		}
		out[acc.Currency] = domain.Balance{
			Free:   parseFloat(acc.Available),
			Locked: parseFloat(acc.Holds),
			Total:  total,
		}
	}
	return out, nil
}

func (k *kucoin) PlaceMarketOrder(ctx context.Context, instrument string, side domain.OrderSide, quantity float64) (domain.OrderResult, error) {
	if !k.creds.HasAuth() {
		return domain.OrderResult{}, fmt.Errorf("kucoin: order: %w", domain.ErrNoCredentials)
	}
	body, err := json.Marshal(map[string]string{
		"clientOid": uuid.New().String(),
		"symbol":    kucoinSymbol(instrument),
		"side":      string(side),
		"type":      "market",
		"size":      formatQty(quantity),
	})
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("kucoin: encode order: %w", err)
	}

	var env kucoinEnvelope
	if err := k.signedJSON(ctx, "POST", "/api/v1/orders", nil, body, &env); err != nil {
		return domain.OrderResult{}, fmt.Errorf("kucoin: order %s %s: %w", side, instrument, err)
	}
	var data struct {
		OrderID string `json:"orderId"`
	}
	if err := k.unwrap(env, &data); err != nil {
		return domain.OrderResult{}, err
	}

	// The order response carries only the ID. Fetch the order back for the
	// executed size and funds.
	state, err := k.GetOrderStatus(ctx, data.OrderID, instrument)
	if err != nil {
		return domain.OrderResult{OrderID: data.OrderID}, nil
	}
	return domain.OrderResult{
		OrderID:   data.OrderID,
		AvgPrice:  state.AvgPrice,
		FilledQty: state.FilledQty,
	}, nil
}

func (k *kucoin) GetOrderStatus(ctx context.Context, orderID, instrument string) (domain.OrderState, error) {
	if !k.creds.HasAuth() {
		return domain.OrderState{}, fmt.Errorf("kucoin: order status: %w", domain.ErrNoCredentials)
	}
	var env kucoinEnvelope
	if err := k.signedJSON(ctx, "GET", "/api/v1/orders/"+orderID, nil, nil, &env); err != nil {
		return domain.OrderState{}, fmt.Errorf("kucoin: order status %s: %w", orderID, err)
	}
	var data struct {
		ID          string `json:"id"`
		IsActive    bool   `json:"isActive"`
		CancelExist bool   `json:"cancelExist"`
		DealSize    string `json:"dealSize"`
		DealFunds   string `json:"dealFunds"`
	}
	if err := k.unwrap(env, &data); err != nil {
		return domain.OrderState{}, err
	}

	filled := parseFloat(data.DealSize)
	var avg float64
	if filled > 0 {
		avg = parseFloat(data.DealFunds) / filled
	}
	status := domain.OrderStatusFilled
	switch {
	case data.IsActive:
		status = domain.OrderStatusOpen
	case data.CancelExist:
		status = domain.OrderStatusCancelled
	}
	return domain.OrderState{
		OrderID:   data.ID,
		Status:    status,
		AvgPrice:  avg,
		FilledQty: filled,
	}, nil
}

func (k *kucoin) CancelOrder(ctx context.Context, orderID, instrument string) error {
	if !k.creds.HasAuth() {
		return fmt.Errorf("kucoin: cancel: %w", domain.ErrNoCredentials)
	}
	var env kucoinEnvelope
	if err := k.signedJSON(ctx, "DELETE", "/api/v1/orders/"+orderID, nil, nil, &env); err != nil {
		return fmt.Errorf("kucoin: cancel %s: %w", orderID, err)
	}
	return k.unwrap(env, nil)
}

// signedJSON adds the KC-API-* headers. The signature covers
// timestamp+method+path(+query)+body; the passphrase is itself HMAC-signed
// under key version 2.
func (k *kucoin) signedJSON(ctx context.Context, method, path string, q url.Values, body []byte, out any) error {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	signPath := path
	if len(q) > 0 {
		signPath += "?" + q.Encode()
	}
	payload := ts + method + signPath + string(body)
	headers := map[string]string{
		"KC-API-KEY":         k.creds.Key,
		"KC-API-SIGN":        signHMACSHA256Base64(k.creds.Secret, payload),
		"KC-API-TIMESTAMP":   ts,
		"KC-API-PASSPHRASE":  signHMACSHA256Base64(k.creds.Secret, k.creds.Passphrase),
		"KC-API-KEY-VERSION": "2",
	}
	return k.rest.doJSON(ctx, method, path, q, body, headers, out)
}
