// Package risk implements the circuit breaker that gates trade initiation.
// The gate is the sole owner of risk state; executors and the orchestrator
// only hand it terminal trade records and ask whether trading is allowed.
package risk

import (
	"log/slog"
	"sync"

	"github.com/lucky2025-star/filon/internal/domain"
)

// defaultMaxConsecutiveFailures is the failure-streak length beyond which the
// circuit breaker trips.
const defaultMaxConsecutiveFailures = 3

// GateConfig holds the risk limits.
type GateConfig struct {
	// DailyLossLimit is the daily P&L floor and must be negative
	// (e.g. -100 means stop after losing $100 on the day).
	DailyLossLimit float64
	// MaxExposure is the cap on total open exposure.
	MaxExposure float64
	// MaxConsecutiveFailures is the allowed failure streak; a streak strictly
	// greater than this trips the breaker. Zero means the default of 3.
	MaxConsecutiveFailures int
}

// Gate is a two-state machine: Normal, where trading is allowed, and Tripped,
// where it is not. Tripping is sticky: once the breaker fires it stays active
// until ResetDailyStats is called explicitly, even if the underlying
// condition clears. All state mutation is serialized behind a mutex so
// concurrent recorders cannot interleave updates.
type Gate struct {
	mu  sync.Mutex
	cfg GateConfig

	dailyPnL          float64
	totalExposure     float64
	consecutiveFailed int
	tripped           bool
	tradeLog          []domain.TradeRecord

	logger *slog.Logger
}

// NewGate creates a Gate in the Normal state.
func NewGate(cfg GateConfig, logger *slog.Logger) *Gate {
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = defaultMaxConsecutiveFailures
	}
	return &Gate{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "risk_gate")),
	}
}

// RecordTrade folds a terminal trade record into the risk state: realized
// P&L is added to the daily total (zero for partial and failed trades), the
// failure streak is advanced or reset, the record is appended to the trade
// log, and the trip conditions are re-evaluated. It returns whether trading
// remains allowed. Each record must be handed in exactly once.
func (g *Gate) RecordTrade(rec domain.TradeRecord) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.dailyPnL += rec.PnL
	g.tradeLog = append(g.tradeLog, rec)

	switch rec.Status {
	case domain.TradeStatusCompleted:
		g.consecutiveFailed = 0
	case domain.TradeStatusFailed, domain.TradeStatusPartial:
		g.consecutiveFailed++
	}

	g.evaluateLocked()
	return !g.tripped
}

// evaluateLocked checks the trip conditions and moves Normal -> Tripped when
// any fires. It never moves Tripped -> Normal; only ResetDailyStats does.
func (g *Gate) evaluateLocked() {
	if g.tripped {
		return
	}
	switch {
	case g.dailyPnL <= g.cfg.DailyLossLimit:
		g.logger.Warn("circuit breaker tripped: daily loss limit reached",
			slog.Float64("daily_pnl", g.dailyPnL),
			slog.Float64("limit", g.cfg.DailyLossLimit),
		)
		g.tripped = true
	case g.totalExposure > g.cfg.MaxExposure:
		g.logger.Warn("circuit breaker tripped: max exposure exceeded",
			slog.Float64("total_exposure", g.totalExposure),
			slog.Float64("max", g.cfg.MaxExposure),
		)
		g.tripped = true
	case g.consecutiveFailed > g.cfg.MaxConsecutiveFailures:
		g.logger.Warn("circuit breaker tripped: consecutive trade failures",
			slog.Int("failures", g.consecutiveFailed),
			slog.Int("max", g.cfg.MaxConsecutiveFailures),
		)
		g.tripped = true
	}
}

// CanTrade reports whether new trades may be initiated. It is a pure read.
func (g *Gate) CanTrade() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.tripped
}

// ResetDailyStats zeroes the daily P&L and failure streak, clears the trade
// log, and forces the gate back to Normal. It is intended to run once per
// trading day; scheduling is the caller's concern.
func (g *Gate) ResetDailyStats() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.dailyPnL = 0
	g.consecutiveFailed = 0
	g.tradeLog = nil
	g.tripped = false
	g.logger.Info("daily risk stats reset")
}

// Status returns a copy of the current risk state for read-only consumers.
func (g *Gate) Status() domain.RiskStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return domain.RiskStatus{
		DailyPnL:             g.dailyPnL,
		TotalExposure:        g.totalExposure,
		ConsecutiveFailed:    g.consecutiveFailed,
		CircuitBreakerActive: g.tripped,
		CanTrade:             !g.tripped,
		TradesRecorded:       len(g.tradeLog),
	}
}

// TradeLog returns up to limit of the most recent recorded trades, newest
// last. A non-positive limit returns the whole log.
func (g *Gate) TradeLog(limit int) []domain.TradeRecord {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := len(g.tradeLog)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.TradeRecord, n)
	copy(out, g.tradeLog[len(g.tradeLog)-n:])
	return out
}
