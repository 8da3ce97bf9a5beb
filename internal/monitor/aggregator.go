// Package monitor polls venue gateways for quotes and maintains the cached
// point-in-time price snapshot the rest of the loop reads from.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lucky2025-star/filon/internal/domain"
)

// GatewayLister exposes the configured venue gateways. It is implemented by
// gateway.Manager.
type GatewayLister interface {
	All() []domain.Gateway
}

// AggregatorConfig configures the price aggregator.
type AggregatorConfig struct {
	// QuoteTimeout bounds each individual venue quote fetch. It should be
	// comfortably below the polling interval so one slow venue cannot stall
	// a cycle.
	QuoteTimeout time.Duration
	Logger       *slog.Logger
}

// Aggregator fans quote fetches out to every venue concurrently and joins
// them into an immutable PriceSnapshot. A per-venue failure only leaves that
// venue's entry absent; the poll itself never fails. The latest snapshot is
// swapped in atomically, so readers observe either the previous snapshot or
// the new one in full, never a mix.
type Aggregator struct {
	gateways GatewayLister
	timeout  time.Duration
	latest   atomic.Pointer[domain.PriceSnapshot]
	logger   *slog.Logger
}

// NewAggregator creates an Aggregator polling the given gateways.
func NewAggregator(gateways GatewayLister, cfg AggregatorConfig) *Aggregator {
	timeout := cfg.QuoteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Aggregator{
		gateways: gateways,
		timeout:  timeout,
		logger:   cfg.Logger.With(slog.String("component", "aggregator")),
	}
}

// Poll fetches quotes for every instrument from every venue and publishes the
// resulting snapshot. Quotes without a positive bid and ask are dropped, so a
// venue appears in the snapshot only when it had a usable two-sided market at
// fetch time.
func (a *Aggregator) Poll(ctx context.Context, instruments []string) domain.PriceSnapshot {
	snap := domain.PriceSnapshot{
		TakenAt: time.Now().UTC(),
		Prices:  make(map[string]map[string]domain.Quote, len(instruments)),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, gw := range a.gateways.All() {
		for _, instrument := range instruments {
			g.Go(func() error {
				qctx, cancel := context.WithTimeout(gctx, a.timeout)
				defer cancel()

				quote, err := gw.GetQuote(qctx, instrument)
				if err != nil {
					a.logger.Warn("quote fetch failed",
						slog.String("venue", gw.Venue()),
						slog.String("instrument", instrument),
						slog.String("error", err.Error()),
					)
					return nil
				}
				if !quote.Tradeable() {
					return nil
				}

				mu.Lock()
				if snap.Prices[instrument] == nil {
					snap.Prices[instrument] = make(map[string]domain.Quote)
				}
				snap.Prices[instrument][quote.Venue] = quote
				mu.Unlock()
				return nil
			})
		}
	}

	// Fetch goroutines always return nil; Wait is only a join point.
	_ = g.Wait()

	a.latest.Store(&snap)
	return snap
}

// Latest returns the most recently published snapshot, if any poll has
// completed yet.
func (a *Aggregator) Latest() (domain.PriceSnapshot, bool) {
	p := a.latest.Load()
	if p == nil {
		return domain.PriceSnapshot{}, false
	}
	return *p, true
}
