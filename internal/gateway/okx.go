package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lucky2025-star/filon/internal/domain"
)

const okxDefaultBaseURL = "https://www.okx.com"

// okx talks to the OKX v5 REST API. Responses wrap payloads in a
// {code, msg, data} envelope with data always an array; private requests are
// signed over timestamp+method+path+body with a base64 HMAC-SHA256 and carry
// the account passphrase in clear.
type okx struct {
	rest  *restClient
	creds Credentials
}

func newOKX(baseURL string, creds Credentials) *okx {
	if baseURL == "" {
		baseURL = okxDefaultBaseURL
	}
	return &okx{rest: newRESTClient(baseURL), creds: creds}
}

func (o *okx) Venue() string { return "okx" }

// okxInstID maps "BTC/USDT" to "BTC-USDT".
func okxInstID(instrument string) string {
	return strings.ReplaceAll(instrument, "/", "-")
}

type okxEnvelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (o *okx) unwrap(env okxEnvelope, out any) error {
	if env.Code != "0" {
		return fmt.Errorf("okx: api error %s: %s", env.Code, env.Msg)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("okx: decode data: %w", err)
	}
	return nil
}

func (o *okx) GetQuote(ctx context.Context, instrument string) (domain.Quote, error) {
	var env okxEnvelope
	q := url.Values{"instId": {okxInstID(instrument)}}
	if err := o.rest.doJSON(ctx, "GET", "/api/v5/market/ticker", q, nil, nil, &env); err != nil {
		return domain.Quote{}, fmt.Errorf("okx: quote %s: %w", instrument, err)
	}
	var data []struct {
		BidPx string `json:"bidPx"`
		AskPx string `json:"askPx"`
		Last  string `json:"last"`
	}
	if err := o.unwrap(env, &data); err != nil {
		return domain.Quote{}, err
	}
	if len(data) == 0 {
		return domain.Quote{}, fmt.Errorf("okx: quote %s: %w", instrument, domain.ErrNotFound)
	}
	return domain.Quote{
		Venue:      "okx",
		Instrument: instrument,
		Bid:        parseFloat(data[0].BidPx),
		Ask:        parseFloat(data[0].AskPx),
		Last:       parseFloat(data[0].Last),
		Timestamp:  time.Now().UTC(),
	}, nil
}

func (o *okx) GetBalances(ctx context.Context) (map[string]domain.Balance, error) {
	if !o.creds.HasAuth() {
		return nil, fmt.Errorf("okx: balances: %w", domain.ErrNoCredentials)
	}
	var env okxEnvelope
	if err := o.signedJSON(ctx, "GET", "/api/v5/account/balance", nil, nil, &env); err != nil {
		return nil, fmt.Errorf("okx: balances: %w", err)
	}
	var data []struct {
		Details []struct {
			Ccy       string `json:"ccy"`
			AvailBal  string `json:"availBal"`
			FrozenBal string `json:"frozenBal"`
		} `json:"details"`
	}
	if err := o.unwrap(env, &data); err != nil {
		return nil, err
	}

	out := make(map[string]domain.Balance)
	for _, acct := range data {
		for _, d := range acct.Details {
			free, locked := parseFloat(d.AvailBal), parseFloat(d.FrozenBal)
			if free == 0 && locked == 0 {
				continue
			}
			out[d.Ccy] = domain.Balance{Free: free, Locked: locked, Total: free + locked}
		}
	}
	return out, nil
}

func (o *okx) PlaceMarketOrder(ctx context.Context, instrument string, side domain.OrderSide, quantity float64) (domain.OrderResult, error) {
	if !o.creds.HasAuth() {
		return domain.OrderResult{}, fmt.Errorf("okx: order: %w", domain.ErrNoCredentials)
	}
	body, err := json.Marshal(map[string]string{
		"instId":  okxInstID(instrument),
		"tdMode":  "cash",
		"side":    string(side),
		"ordType": "market",
		"sz":      formatQty(quantity),
		// Size market buys in base units to match the requested quantity.
		"tgtCcy": "base_ccy",
	})
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("okx: encode order: %w", err)
	}

	var env okxEnvelope
	if err := o.signedJSON(ctx, "POST", "/api/v5/trade/order", nil, body, &env); err != nil {
		return domain.OrderResult{}, fmt.Errorf("okx: order %s %s: %w", side, instrument, err)
	}
	var data []struct {
		OrdID string `json:"ordId"`
	}
	if err := o.unwrap(env, &data); err != nil {
		return domain.OrderResult{}, err
	}
	if len(data) == 0 {
		return domain.OrderResult{}, fmt.Errorf("okx: order %s %s: empty response", side, instrument)
	}

	state, err := o.GetOrderStatus(ctx, data[0].OrdID, instrument)
	if err != nil {
		return domain.OrderResult{OrderID: data[0].OrdID}, nil
	}
	return domain.OrderResult{
		OrderID:   data[0].OrdID,
		AvgPrice:  state.AvgPrice,
		FilledQty: state.FilledQty,
	}, nil
}

func (o *okx) GetOrderStatus(ctx context.Context, orderID, instrument string) (domain.OrderState, error) {
	if !o.creds.HasAuth() {
		return domain.OrderState{}, fmt.Errorf("okx: order status: %w", domain.ErrNoCredentials)
	}
	q := url.Values{
		"instId": {okxInstID(instrument)},
		"ordId":  {orderID},
	}
	var env okxEnvelope
	if err := o.signedJSON(ctx, "GET", "/api/v5/trade/order", q, nil, &env); err != nil {
		return domain.OrderState{}, fmt.Errorf("okx: order status %s: %w", orderID, err)
	}
	var data []struct {
		OrdID     string `json:"ordId"`
		State     string `json:"state"`
		AvgPx     string `json:"avgPx"`
		AccFillSz string `json:"accFillSz"`
	}
	if err := o.unwrap(env, &data); err != nil {
		return domain.OrderState{}, err
	}
	if len(data) == 0 {
		return domain.OrderState{}, fmt.Errorf("okx: order status %s: %w", orderID, domain.ErrNotFound)
	}
	return domain.OrderState{
		OrderID:   data[0].OrdID,
		Status:    okxOrderStatus(data[0].State),
		AvgPrice:  parseFloat(data[0].AvgPx),
		FilledQty: parseFloat(data[0].AccFillSz),
	}, nil
}

func (o *okx) CancelOrder(ctx context.Context, orderID, instrument string) error {
	if !o.creds.HasAuth() {
		return fmt.Errorf("okx: cancel: %w", domain.ErrNoCredentials)
	}
	body, err := json.Marshal(map[string]string{
		"instId": okxInstID(instrument),
		"ordId":  orderID,
	})
	if err != nil {
		return fmt.Errorf("okx: encode cancel: %w", err)
	}
	var env okxEnvelope
	if err := o.signedJSON(ctx, "POST", "/api/v5/trade/cancel-order", nil, body, &env); err != nil {
		return fmt.Errorf("okx: cancel %s: %w", orderID, err)
	}
	return o.unwrap(env, nil)
}

func (o *okx) signedJSON(ctx context.Context, method, path string, q url.Values, body []byte, out any) error {
	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	signPath := path
	if len(q) > 0 {
		signPath += "?" + q.Encode()
	}
	payload := ts + method + signPath + string(body)
	headers := map[string]string{
		"OK-ACCESS-KEY":        o.creds.Key,
		"OK-ACCESS-SIGN":       signHMACSHA256Base64(o.creds.Secret, payload),
		"OK-ACCESS-TIMESTAMP":  ts,
		"OK-ACCESS-PASSPHRASE": o.creds.Passphrase,
	}
	return o.rest.doJSON(ctx, method, path, q, body, headers, out)
}

func okxOrderStatus(s string) domain.OrderStatus {
	switch s {
	case "filled":
		return domain.OrderStatusFilled
	case "canceled", "mmp_canceled":
		return domain.OrderStatusCancelled
	default:
		return domain.OrderStatusOpen
	}
}
