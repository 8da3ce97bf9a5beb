// Package bot runs the top-level trading loop: poll prices, detect
// opportunities, consult the risk gate, execute at most one trade, record the
// outcome, publish state, sleep.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lucky2025-star/filon/internal/domain"
	"github.com/lucky2025-star/filon/internal/engine"
	"github.com/lucky2025-star/filon/internal/executor"
	"github.com/lucky2025-star/filon/internal/monitor"
	"github.com/lucky2025-star/filon/internal/risk"
)

const maxBackoff = time.Minute

// Notifier receives trade and risk events. Implementations are best-effort;
// the loop ignores their failures.
type Notifier interface {
	NotifyTrade(ctx context.Context, rec domain.TradeRecord)
	NotifyRiskTripped(ctx context.Context, status domain.RiskStatus)
}

// Broadcaster pushes loop events to connected API clients.
type Broadcaster interface {
	Broadcast(event Event)
}

// Event is one loop occurrence pushed over the event stream.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Config configures the trading loop.
type Config struct {
	Instruments  []string
	PollInterval time.Duration
	MinSpreadPct float64
	// TradeQuantity is the base-asset quantity for every executed trade.
	TradeQuantity float64
	// AutoTrade is the initial state of the execution toggle. Monitor mode
	// runs with it off and no executor.
	AutoTrade bool
	Logger    *slog.Logger
}

// Deps are the loop's collaborators. Executor may be nil (monitor mode);
// Store, Cache, Notifier, and Broadcaster may each be nil and are then
// skipped.
type Deps struct {
	Aggregator  *monitor.Aggregator
	Detector    *engine.Detector
	Gate        *risk.Gate
	Executor    *executor.Executor
	Store       domain.TradeStore
	Cache       domain.StateCache
	Notifier    Notifier
	Broadcaster Broadcaster
}

// Loop is the orchestrator. One goroutine runs Run; other goroutines (the
// API) read the published state through the accessor methods.
type Loop struct {
	cfg  Config
	deps Deps

	autoTrade     atomic.Bool
	opportunities atomic.Pointer[[]domain.Opportunity]
	logger        *slog.Logger
}

// New creates the loop.
func New(cfg Config, deps Deps) (*Loop, error) {
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("bot: poll interval must be positive")
	}
	if len(cfg.Instruments) == 0 {
		return nil, fmt.Errorf("bot: at least one instrument is required")
	}
	if cfg.AutoTrade && deps.Executor == nil {
		return nil, fmt.Errorf("bot: auto-trade requires an executor")
	}
	l := &Loop{
		cfg:    cfg,
		deps:   deps,
		logger: cfg.Logger.With(slog.String("component", "bot")),
	}
	l.autoTrade.Store(cfg.AutoTrade)
	return l, nil
}

// Run executes cycles until ctx is cancelled. Cancellation is honored at the
// cycle boundary: a trade already in flight runs to a terminal status and is
// recorded before Run returns. A panicking cycle is contained and retried
// after a growing backoff.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("trading loop started",
		slog.Duration("interval", l.cfg.PollInterval),
		slog.Float64("min_spread_pct", l.cfg.MinSpreadPct),
		slog.Bool("auto_trade", l.autoTrade.Load()),
	)

	backoff := l.cfg.PollInterval
	for {
		if err := ctx.Err(); err != nil {
			l.logger.Info("trading loop stopped")
			return err
		}

		if l.safeCycle(ctx) {
			backoff = l.cfg.PollInterval
		} else {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			l.logger.Warn("cycle failed, backing off", slog.Duration("backoff", backoff))
		}

		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
	}
}

// safeCycle runs one cycle and reports whether it completed without panicking.
func (l *Loop) safeCycle(ctx context.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("cycle panicked", slog.Any("panic", r))
			ok = false
		}
	}()
	l.cycle(ctx)
	return true
}

func (l *Loop) cycle(ctx context.Context) {
	snap := l.deps.Aggregator.Poll(ctx, l.cfg.Instruments)
	opps := l.deps.Detector.Detect(snap, l.cfg.MinSpreadPct)
	l.opportunities.Store(&opps)

	l.publishState(ctx, snap, opps)

	if len(opps) == 0 || !l.autoTrade.Load() || l.deps.Executor == nil {
		return
	}
	if !l.deps.Gate.CanTrade() {
		l.logger.Debug("skipping execution, risk gate closed")
		return
	}

	// The in-flight trade must reach a terminal status and be recorded even
	// when shutdown starts mid-execution.
	tctx := context.WithoutCancel(ctx)
	best := opps[0]
	if est, err := engine.ComputeProfit(
		best.BuyPrice, best.SellPrice, l.cfg.TradeQuantity,
		l.deps.Detector.FeePct(best.BuyVenue)/100, l.deps.Detector.FeePct(best.SellVenue)/100,
	); err == nil {
		l.logger.Info("executing opportunity",
			slog.String("instrument", best.Instrument),
			slog.String("buy_venue", best.BuyVenue),
			slog.String("sell_venue", best.SellVenue),
			slog.Float64("spread_pct", best.SpreadPct),
			slog.Float64("est_profit_usd", est.ProfitUSD),
		)
	}
	rec, err := l.deps.Executor.Execute(tctx, best, l.cfg.TradeQuantity)
	if err != nil {
		l.logger.Error("execution rejected",
			slog.String("instrument", best.Instrument),
			slog.String("error", err.Error()),
		)
		return
	}

	l.recordTrade(tctx, rec)
}

// recordTrade hands the record to the risk gate exactly once, then to the
// audit sinks and notifier best-effort.
func (l *Loop) recordTrade(ctx context.Context, rec domain.TradeRecord) {
	allowed := l.deps.Gate.RecordTrade(rec)

	l.logger.Info("trade recorded",
		slog.String("trade_id", rec.ID),
		slog.String("instrument", rec.Instrument),
		slog.String("status", string(rec.Status)),
		slog.Float64("pnl", rec.PnL),
	)

	if l.deps.Store != nil {
		if err := l.deps.Store.Append(ctx, rec); err != nil {
			l.logger.Error("trade append failed",
				slog.String("trade_id", rec.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if l.deps.Notifier != nil {
		l.deps.Notifier.NotifyTrade(ctx, rec)
	}
	if l.deps.Broadcaster != nil {
		l.deps.Broadcaster.Broadcast(Event{Type: "trade", Payload: rec})
	}

	if !allowed {
		status := l.deps.Gate.Status()
		l.logger.Warn("risk gate tripped, trading halted",
			slog.Float64("daily_pnl", status.DailyPnL),
			slog.Int("consecutive_failed", status.ConsecutiveFailed),
		)
		if l.deps.Notifier != nil {
			l.deps.Notifier.NotifyRiskTripped(ctx, status)
		}
		if l.deps.Broadcaster != nil {
			l.deps.Broadcaster.Broadcast(Event{Type: "risk", Payload: status})
		}
	}
}

func (l *Loop) publishState(ctx context.Context, snap domain.PriceSnapshot, opps []domain.Opportunity) {
	if l.deps.Broadcaster != nil {
		l.deps.Broadcaster.Broadcast(Event{Type: "cycle", Payload: map[string]any{
			"taken_at":      snap.TakenAt,
			"opportunities": opps,
		}})
	}
	if l.deps.Cache == nil {
		return
	}
	if err := l.deps.Cache.SetSnapshot(ctx, snap); err != nil {
		l.logger.Debug("snapshot cache publish failed", slog.String("error", err.Error()))
	}
	if err := l.deps.Cache.SetOpportunities(ctx, opps); err != nil {
		l.logger.Debug("opportunity cache publish failed", slog.String("error", err.Error()))
	}
	if err := l.deps.Cache.SetRiskStatus(ctx, l.deps.Gate.Status()); err != nil {
		l.logger.Debug("risk cache publish failed", slog.String("error", err.Error()))
	}
}

// Opportunities returns the opportunity list from the most recent cycle.
func (l *Loop) Opportunities() []domain.Opportunity {
	p := l.opportunities.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Snapshot returns the most recent price snapshot.
func (l *Loop) Snapshot() (domain.PriceSnapshot, bool) {
	return l.deps.Aggregator.Latest()
}

// SetAutoTrade flips the execution toggle. Enabling fails in monitor mode.
func (l *Loop) SetAutoTrade(enabled bool) error {
	if enabled && l.deps.Executor == nil {
		return fmt.Errorf("bot: auto-trade unavailable without an executor: %w", domain.ErrInvalidInput)
	}
	l.autoTrade.Store(enabled)
	l.logger.Info("auto-trade toggled", slog.Bool("enabled", enabled))
	return nil
}

// AutoTradeEnabled reports the current state of the execution toggle.
func (l *Loop) AutoTradeEnabled() bool {
	return l.autoTrade.Load()
}
