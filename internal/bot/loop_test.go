package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucky2025-star/filon/internal/domain"
	"github.com/lucky2025-star/filon/internal/engine"
	"github.com/lucky2025-star/filon/internal/executor"
	"github.com/lucky2025-star/filon/internal/monitor"
	"github.com/lucky2025-star/filon/internal/risk"
)

// loopGateway serves a fixed quote and fills every market order at it.
type loopGateway struct {
	venue    string
	bid, ask float64
	orderErr error

	mu     sync.Mutex
	orders int
}

func (g *loopGateway) Venue() string { return g.venue }

func (g *loopGateway) GetQuote(ctx context.Context, instrument string) (domain.Quote, error) {
	return domain.Quote{
		Venue: g.venue, Instrument: instrument,
		Bid: g.bid, Ask: g.ask, Last: (g.bid + g.ask) / 2,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (g *loopGateway) GetBalances(ctx context.Context) (map[string]domain.Balance, error) {
	return nil, errors.New("not implemented")
}

func (g *loopGateway) PlaceMarketOrder(ctx context.Context, instrument string, side domain.OrderSide, quantity float64) (domain.OrderResult, error) {
	g.mu.Lock()
	g.orders++
	g.mu.Unlock()
	if g.orderErr != nil {
		return domain.OrderResult{}, g.orderErr
	}
	price := g.ask
	if side == domain.OrderSideSell {
		price = g.bid
	}
	return domain.OrderResult{OrderID: "ord-1", AvgPrice: price, FilledQty: quantity}, nil
}

func (g *loopGateway) GetOrderStatus(ctx context.Context, orderID, instrument string) (domain.OrderState, error) {
	return domain.OrderState{}, errors.New("not implemented")
}

func (g *loopGateway) CancelOrder(ctx context.Context, orderID, instrument string) error {
	return errors.New("not implemented")
}

func (g *loopGateway) orderCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.orders
}

// gatewaySet backs both the resolver and lister sides.
type gatewaySet map[string]*loopGateway

func (s gatewaySet) All() []domain.Gateway {
	out := make([]domain.Gateway, 0, len(s))
	for _, name := range []string{"binance", "kucoin", "okx", "gateio"} {
		if gw, ok := s[name]; ok {
			out = append(out, gw)
		}
	}
	return out
}

func (s gatewaySet) Gateway(venue string) (domain.Gateway, error) {
	gw, ok := s[venue]
	if !ok {
		return nil, domain.ErrUnknownVenue
	}
	return gw, nil
}

type recordingStore struct {
	mu      sync.Mutex
	records []domain.TradeRecord
}

func (s *recordingStore) Append(ctx context.Context, rec domain.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *recordingStore) ListRecent(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	return nil, nil
}

func (s *recordingStore) ListBefore(ctx context.Context, cutoff time.Time) ([]domain.TradeRecord, error) {
	return nil, nil
}

func (s *recordingStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (s *recordingStore) all() []domain.TradeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.TradeRecord(nil), s.records...)
}

type recordingNotifier struct {
	mu      sync.Mutex
	trades  int
	tripped int
}

func (n *recordingNotifier) NotifyTrade(ctx context.Context, rec domain.TradeRecord) {
	n.mu.Lock()
	n.trades++
	n.mu.Unlock()
}

func (n *recordingNotifier) NotifyRiskTripped(ctx context.Context, status domain.RiskStatus) {
	n.mu.Lock()
	n.tripped++
	n.mu.Unlock()
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testLoop wires a full loop over the gateway set with a profitable spread
// between binance (cheap) and kucoin (expensive).
func testLoop(t *testing.T, gws gatewaySet, autoTrade bool, store *recordingStore, notifier *recordingNotifier) (*Loop, *risk.Gate) {
	t.Helper()
	logger := discard()
	gate := risk.NewGate(risk.GateConfig{DailyLossLimit: -1000, MaxExposure: 1e9}, logger)

	loop, err := New(Config{
		Instruments:   []string{"BTC/USDT"},
		PollInterval:  10 * time.Millisecond,
		MinSpreadPct:  0.1,
		TradeQuantity: 1,
		AutoTrade:     autoTrade,
		Logger:        logger,
	}, Deps{
		Aggregator: monitor.NewAggregator(gws, monitor.AggregatorConfig{Logger: logger}),
		Detector:   engine.NewDetector(engine.DetectorConfig{DefaultFeePct: 0.1, Logger: logger}),
		Gate:       gate,
		Executor:   executor.NewExecutor(gws, logger),
		Store:      store,
		Notifier:   notifier,
	})
	require.NoError(t, err)
	return loop, gate
}

func spreadGateways() gatewaySet {
	return gatewaySet{
		"binance": {venue: "binance", bid: 99.5, ask: 100},
		"kucoin":  {venue: "kucoin", bid: 102, ask: 102.5},
	}
}

func runFor(loop *Loop, d time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	_ = loop.Run(ctx)
}

func TestLoopExecutesAndRecordsTrade(t *testing.T) {
	gws := spreadGateways()
	store := &recordingStore{}
	notifier := &recordingNotifier{}
	loop, gate := testLoop(t, gws, true, store, notifier)

	runFor(loop, 50*time.Millisecond)

	records := store.all()
	require.NotEmpty(t, records, "at least one cycle should have traded")
	rec := records[0]
	assert.Equal(t, domain.TradeStatusCompleted, rec.Status)
	assert.Equal(t, "binance", rec.BuyVenue, "buys on the cheap venue")
	assert.Equal(t, "kucoin", rec.SellVenue, "sells on the expensive venue")
	assert.InDelta(t, 2.0, rec.PnL, 1e-9, "pnl from average fills: 102 - 100")

	assert.Equal(t, len(records), gate.Status().TradesRecorded,
		"every stored record passed through the gate exactly once")
	assert.NotZero(t, notifier.trades)
}

func TestLoopMonitorModeNeverTrades(t *testing.T) {
	gws := spreadGateways()
	store := &recordingStore{}
	loop, _ := testLoop(t, gws, false, store, &recordingNotifier{})

	runFor(loop, 50*time.Millisecond)

	assert.Empty(t, store.all())
	assert.Zero(t, gws["binance"].orderCount())
	assert.NotEmpty(t, loop.Opportunities(), "detection still runs with auto-trade off")
}

func TestLoopStopsTradingWhenGateTrips(t *testing.T) {
	gws := spreadGateways()
	// Every buy fails, so each cycle produces a failed trade until the
	// breaker trips on the fourth.
	gws["binance"].orderErr = errors.New("insufficient balance")
	store := &recordingStore{}
	notifier := &recordingNotifier{}
	loop, gate := testLoop(t, gws, true, store, notifier)

	runFor(loop, 200*time.Millisecond)

	status := gate.Status()
	assert.True(t, status.CircuitBreakerActive)
	assert.Equal(t, 4, status.TradesRecorded,
		"no further trades are attempted once the breaker is active")
	assert.Equal(t, 1, notifier.tripped, "trip notification fires once")
}

func TestLoopAtMostOneTradePerCycle(t *testing.T) {
	gws := gatewaySet{
		"binance": {venue: "binance", bid: 99.5, ask: 100},
		"kucoin":  {venue: "kucoin", bid: 102, ask: 102.5},
		"okx":     {venue: "okx", bid: 103, ask: 103.5},
	}
	store := &recordingStore{}
	loop, _ := testLoop(t, gws, true, store, &recordingNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = loop.Run(ctx)
		close(done)
	}()
	time.Sleep(15 * time.Millisecond)
	cancel()
	<-done

	// Multiple venue pairs qualified, yet each cycle executed only the top
	// opportunity: two legs per stored record.
	total := gws["binance"].orderCount() + gws["kucoin"].orderCount() + gws["okx"].orderCount()
	assert.Equal(t, 2*len(store.all()), total)
}

func TestSetAutoTradeRequiresExecutor(t *testing.T) {
	logger := discard()
	gws := spreadGateways()
	loop, err := New(Config{
		Instruments:  []string{"BTC/USDT"},
		PollInterval: time.Second,
		Logger:       logger,
	}, Deps{
		Aggregator: monitor.NewAggregator(gws, monitor.AggregatorConfig{Logger: logger}),
		Detector:   engine.NewDetector(engine.DetectorConfig{Logger: logger}),
		Gate:       risk.NewGate(risk.GateConfig{DailyLossLimit: -100}, logger),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, loop.SetAutoTrade(true), domain.ErrInvalidInput)
	assert.False(t, loop.AutoTradeEnabled())

	assert.NoError(t, loop.SetAutoTrade(false))
}
