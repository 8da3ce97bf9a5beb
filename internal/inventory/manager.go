// Package inventory tracks asset balances across venues: periodic collection
// into balance snapshots, drift analysis against an equal split, and
// rebalancing suggestions when a venue runs too far ahead or behind.
package inventory

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lucky2025-star/filon/internal/domain"
)

// GatewayLister exposes the configured venue gateways.
type GatewayLister interface {
	All() []domain.Gateway
}

// PriceSource supplies the latest price snapshot for portfolio valuation.
// The monitor's aggregator satisfies it.
type PriceSource interface {
	Latest() (domain.PriceSnapshot, bool)
}

// stableAssets are valued at parity with USD.
var stableAssets = map[string]bool{
	"USDT": true,
	"USDC": true,
	"DAI":  true,
	"BUSD": true,
}

// VenueDrift describes one venue's share of an asset relative to an equal
// split across all venues holding it.
type VenueDrift struct {
	Venue string `json:"venue"`
	// Share is the venue's fraction of the asset's cross-venue total.
	Share float64 `json:"share"`
	// DriftPct is (share - equal share) in percentage points. Positive
	// means the venue holds more than its equal allocation.
	DriftPct float64 `json:"drift_pct"`
}

// Transfer is a suggested balance movement between two venues.
type Transfer struct {
	Asset     string  `json:"asset"`
	FromVenue string  `json:"from_venue"`
	ToVenue   string  `json:"to_venue"`
	Amount    float64 `json:"amount"`
}

// ManagerConfig configures the inventory manager.
type ManagerConfig struct {
	// Interval between balance snapshots in RunLoop.
	Interval time.Duration
	// CallTimeout bounds each venue balance fetch.
	CallTimeout time.Duration
	// DriftThresholdPct is the absolute drift beyond which a rebalancing
	// transfer is suggested. Defaults to 10.
	DriftThresholdPct float64
	Logger            *slog.Logger
}

// Manager collects and analyzes cross-venue balances.
type Manager struct {
	gateways  GatewayLister
	store     domain.BalanceStore
	prices    PriceSource
	interval  time.Duration
	timeout   time.Duration
	threshold float64
	logger    *slog.Logger
}

// NewManager creates a Manager. store may be nil; RunLoop then only logs.
func NewManager(gateways GatewayLister, store domain.BalanceStore, cfg ManagerConfig) *Manager {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	threshold := cfg.DriftThresholdPct
	if threshold <= 0 {
		threshold = 10
	}
	return &Manager{
		gateways:  gateways,
		store:     store,
		interval:  interval,
		timeout:   timeout,
		threshold: threshold,
		logger:    cfg.Logger.With(slog.String("component", "inventory")),
	}
}

// WithPrices attaches a price source so RunLoop can value each collected
// snapshot. Without one, valuation is skipped.
func (m *Manager) WithPrices(prices PriceSource) *Manager {
	m.prices = prices
	return m
}

// CollectBalances fetches balances from every venue concurrently. A venue
// whose fetch fails (including quote-only venues without credentials) is
// absent from the snapshot; collection itself never fails.
func (m *Manager) CollectBalances(ctx context.Context) domain.BalanceSnapshot {
	snap := domain.BalanceSnapshot{
		TakenAt: time.Now().UTC(),
		Venues:  make(map[string]map[string]domain.Balance),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, gw := range m.gateways.All() {
		g.Go(func() error {
			bctx, cancel := context.WithTimeout(gctx, m.timeout)
			defer cancel()

			balances, err := gw.GetBalances(bctx)
			if err != nil {
				m.logger.Warn("balance fetch failed",
					slog.String("venue", gw.Venue()),
					slog.String("error", err.Error()),
				)
				return nil
			}

			mu.Lock()
			snap.Venues[gw.Venue()] = balances
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return snap
}

// Drift computes each venue's deviation from an equal allocation of the given
// asset. Venues not holding the asset count as holding zero, so a venue that
// drained completely still shows up as a deficit. Results are sorted by venue
// name. A zero cross-venue total yields no drift.
func (m *Manager) Drift(snap domain.BalanceSnapshot, asset string) []VenueDrift {
	venues := make([]string, 0, len(snap.Venues))
	var total float64
	for venue, balances := range snap.Venues {
		venues = append(venues, venue)
		total += balances[asset].Total
	}
	if len(venues) == 0 || total <= 0 {
		return nil
	}
	sort.Strings(venues)

	equal := 1.0 / float64(len(venues))
	out := make([]VenueDrift, 0, len(venues))
	for _, venue := range venues {
		share := snap.Venues[venue][asset].Total / total
		out = append(out, VenueDrift{
			Venue:    venue,
			Share:    share,
			DriftPct: (share - equal) * 100,
		})
	}
	return out
}

// SuggestRebalancing proposes transfers that bring each asset back toward an
// equal split, pairing the largest surplus with the largest deficit until all
// remaining drifts are inside the threshold. Suggestions are advisory; no
// transfer is ever executed.
func (m *Manager) SuggestRebalancing(snap domain.BalanceSnapshot) []Transfer {
	assets := make(map[string]bool)
	for _, balances := range snap.Venues {
		for asset := range balances {
			assets[asset] = true
		}
	}
	names := make([]string, 0, len(assets))
	for a := range assets {
		names = append(names, a)
	}
	sort.Strings(names)

	var transfers []Transfer
	for _, asset := range names {
		transfers = append(transfers, m.rebalanceAsset(snap, asset)...)
	}
	return transfers
}

func (m *Manager) rebalanceAsset(snap domain.BalanceSnapshot, asset string) []Transfer {
	drifts := m.Drift(snap, asset)
	if len(drifts) < 2 {
		return nil
	}

	var total float64
	for _, balances := range snap.Venues {
		total += balances[asset].Total
	}
	target := total / float64(len(drifts))

	type gap struct {
		venue  string
		amount float64
	}
	var over, under []gap
	for _, d := range drifts {
		if d.DriftPct > m.threshold {
			over = append(over, gap{d.Venue, snap.Venues[d.Venue][asset].Total - target})
		} else if d.DriftPct < -m.threshold {
			under = append(under, gap{d.Venue, target - snap.Venues[d.Venue][asset].Total})
		}
	}
	sort.Slice(over, func(i, j int) bool { return over[i].amount > over[j].amount })
	sort.Slice(under, func(i, j int) bool { return under[i].amount > under[j].amount })

	var transfers []Transfer
	for i, j := 0, 0; i < len(over) && j < len(under); {
		amount := over[i].amount
		if under[j].amount < amount {
			amount = under[j].amount
		}
		transfers = append(transfers, Transfer{
			Asset:     asset,
			FromVenue: over[i].venue,
			ToVenue:   under[j].venue,
			Amount:    amount,
		})
		over[i].amount -= amount
		under[j].amount -= amount
		if over[i].amount <= 1e-12 {
			i++
		}
		if under[j].amount <= 1e-12 {
			j++
		}
	}
	return transfers
}

// PortfolioValue values the whole snapshot in USD. Stablecoins count at par;
// every other asset is valued at the best available last price for
// "<asset>/USDT" across venues in the price snapshot. Assets with no price
// are skipped and logged.
func (m *Manager) PortfolioValue(balances domain.BalanceSnapshot, prices domain.PriceSnapshot) float64 {
	totals := make(map[string]float64)
	for _, venueBalances := range balances.Venues {
		for asset, b := range venueBalances {
			totals[asset] += b.Total
		}
	}

	var value float64
	for asset, amount := range totals {
		if amount == 0 {
			continue
		}
		if stableAssets[asset] {
			value += amount
			continue
		}
		price, ok := m.lastPrice(prices, asset+"/USDT")
		if !ok {
			m.logger.Debug("no price for asset, skipping valuation",
				slog.String("asset", asset))
			continue
		}
		value += amount * price
	}
	return value
}

func (m *Manager) lastPrice(prices domain.PriceSnapshot, instrument string) (float64, bool) {
	for _, venue := range prices.Venues(instrument) {
		q, ok := prices.Quote(instrument, venue)
		if ok && q.Last > 0 {
			return q.Last, true
		}
	}
	return 0, false
}

// RunLoop collects a balance snapshot on every tick and appends it to the
// balance store. It returns when ctx is cancelled.
func (m *Manager) RunLoop(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("inventory loop started", slog.Duration("interval", m.interval))
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("inventory loop stopped")
			return ctx.Err()
		case <-ticker.C:
			snap := m.CollectBalances(ctx)
			if len(snap.Venues) == 0 {
				continue
			}

			for _, t := range m.SuggestRebalancing(snap) {
				m.logger.Warn("rebalancing suggested",
					slog.String("asset", t.Asset),
					slog.String("from", t.FromVenue),
					slog.String("to", t.ToVenue),
					slog.Float64("amount", t.Amount),
				)
			}
			if m.prices != nil {
				if ps, ok := m.prices.Latest(); ok {
					m.logger.Info("portfolio valued",
						slog.Float64("usd", m.PortfolioValue(snap, ps)))
				}
			}

			if m.store == nil {
				continue
			}
			if err := m.store.Append(ctx, snap); err != nil {
				m.logger.Error("balance snapshot append failed",
					slog.String("error", err.Error()))
			}
		}
	}
}
