package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucky2025-star/filon/internal/domain"
)

// quoteGateway serves canned quotes per instrument, or a fixed error.
type quoteGateway struct {
	venue  string
	quotes map[string]domain.Quote
	err    error
	delay  time.Duration
}

func (g *quoteGateway) Venue() string { return g.venue }

func (g *quoteGateway) GetQuote(ctx context.Context, instrument string) (domain.Quote, error) {
	if g.delay > 0 {
		select {
		case <-ctx.Done():
			return domain.Quote{}, ctx.Err()
		case <-time.After(g.delay):
		}
	}
	if g.err != nil {
		return domain.Quote{}, g.err
	}
	q, ok := g.quotes[instrument]
	if !ok {
		return domain.Quote{}, domain.ErrNotFound
	}
	return q, nil
}

func (g *quoteGateway) GetBalances(ctx context.Context) (map[string]domain.Balance, error) {
	return nil, errors.New("not implemented")
}

func (g *quoteGateway) PlaceMarketOrder(ctx context.Context, instrument string, side domain.OrderSide, quantity float64) (domain.OrderResult, error) {
	return domain.OrderResult{}, errors.New("not implemented")
}

func (g *quoteGateway) GetOrderStatus(ctx context.Context, orderID, instrument string) (domain.OrderState, error) {
	return domain.OrderState{}, errors.New("not implemented")
}

func (g *quoteGateway) CancelOrder(ctx context.Context, orderID, instrument string) error {
	return errors.New("not implemented")
}

type gatewayList []domain.Gateway

func (l gatewayList) All() []domain.Gateway { return l }

func testAggregator(gws ...domain.Gateway) *Aggregator {
	return NewAggregator(gatewayList(gws), AggregatorConfig{
		QuoteTimeout: 200 * time.Millisecond,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func q(venue, instrument string, bid, ask float64) domain.Quote {
	return domain.Quote{
		Venue: venue, Instrument: instrument,
		Bid: bid, Ask: ask, Last: (bid + ask) / 2,
		Timestamp: time.Now().UTC(),
	}
}

func TestPollCollectsAllVenues(t *testing.T) {
	a := testAggregator(
		&quoteGateway{venue: "binance", quotes: map[string]domain.Quote{
			"BTC/USDT": q("binance", "BTC/USDT", 99, 100),
			"ETH/USDT": q("binance", "ETH/USDT", 9.9, 10),
		}},
		&quoteGateway{venue: "kucoin", quotes: map[string]domain.Quote{
			"BTC/USDT": q("kucoin", "BTC/USDT", 101, 102),
		}},
	)

	snap := a.Poll(context.Background(), []string{"BTC/USDT", "ETH/USDT"})

	assert.Equal(t, []string{"binance", "kucoin"}, snap.Venues("BTC/USDT"))
	assert.Equal(t, []string{"binance"}, snap.Venues("ETH/USDT"))

	got, ok := snap.Quote("BTC/USDT", "kucoin")
	require.True(t, ok)
	assert.Equal(t, 101.0, got.Bid)
}

func TestPollVenueFailureIsNotFatal(t *testing.T) {
	a := testAggregator(
		&quoteGateway{venue: "binance", quotes: map[string]domain.Quote{
			"BTC/USDT": q("binance", "BTC/USDT", 99, 100),
		}},
		&quoteGateway{venue: "okx", err: errors.New("connection refused")},
	)

	snap := a.Poll(context.Background(), []string{"BTC/USDT"})
	assert.Equal(t, []string{"binance"}, snap.Venues("BTC/USDT"),
		"failed venue is simply absent from the snapshot")
}

func TestPollDropsOneSidedQuotes(t *testing.T) {
	a := testAggregator(
		&quoteGateway{venue: "binance", quotes: map[string]domain.Quote{
			"BTC/USDT": q("binance", "BTC/USDT", 0, 100),
		}},
		&quoteGateway{venue: "kucoin", quotes: map[string]domain.Quote{
			"BTC/USDT": q("kucoin", "BTC/USDT", 99, 0),
		}},
	)

	snap := a.Poll(context.Background(), []string{"BTC/USDT"})
	assert.Empty(t, snap.Venues("BTC/USDT"),
		"quotes without positive bid and ask never enter a snapshot")
}

func TestPollSlowVenueTimesOutIndependently(t *testing.T) {
	a := testAggregator(
		&quoteGateway{venue: "binance", quotes: map[string]domain.Quote{
			"BTC/USDT": q("binance", "BTC/USDT", 99, 100),
		}},
		&quoteGateway{venue: "gateio", delay: time.Second, quotes: map[string]domain.Quote{
			"BTC/USDT": q("gateio", "BTC/USDT", 101, 102),
		}},
	)

	start := time.Now()
	snap := a.Poll(context.Background(), []string{"BTC/USDT"})
	assert.Less(t, time.Since(start), 800*time.Millisecond,
		"poll must not wait for the slow venue beyond its timeout")
	assert.Equal(t, []string{"binance"}, snap.Venues("BTC/USDT"))
}

func TestLatestIsReplacedAtomically(t *testing.T) {
	gw := &quoteGateway{venue: "binance", quotes: map[string]domain.Quote{
		"BTC/USDT": q("binance", "BTC/USDT", 99, 100),
	}}
	a := testAggregator(gw)

	_, ok := a.Latest()
	assert.False(t, ok, "no snapshot before the first poll")

	first := a.Poll(context.Background(), []string{"BTC/USDT"})
	got, ok := a.Latest()
	require.True(t, ok)
	assert.Equal(t, first, got)

	gw.quotes["BTC/USDT"] = q("binance", "BTC/USDT", 199, 200)
	second := a.Poll(context.Background(), []string{"BTC/USDT"})
	got, ok = a.Latest()
	require.True(t, ok)
	assert.Equal(t, second, got)
	assert.NotEqual(t, first.Prices, second.Prices)
}
