package risk

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lucky2025-star/filon/internal/domain"
)

func testGate(cfg GateConfig) *Gate {
	return NewGate(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func completed(pnl float64) domain.TradeRecord {
	return domain.TradeRecord{Status: domain.TradeStatusCompleted, PnL: pnl}
}

func TestGateStartsNormal(t *testing.T) {
	g := testGate(GateConfig{DailyLossLimit: -100, MaxExposure: 10})
	assert.True(t, g.CanTrade())

	st := g.Status()
	assert.False(t, st.CircuitBreakerActive)
	assert.Zero(t, st.DailyPnL)
	assert.Zero(t, st.TradesRecorded)
}

func TestGateTripsOnDailyLossLimit(t *testing.T) {
	g := testGate(GateConfig{DailyLossLimit: -100, MaxExposure: 10})

	assert.True(t, g.RecordTrade(completed(-60)))
	assert.True(t, g.CanTrade())

	assert.False(t, g.RecordTrade(completed(-40)))
	assert.False(t, g.CanTrade())

	// The breaker stays tripped for every subsequent call, even for trades
	// that would bring P&L back above the limit.
	assert.False(t, g.RecordTrade(completed(500)))
	assert.False(t, g.CanTrade())

	g.ResetDailyStats()
	assert.True(t, g.CanTrade())
	assert.Zero(t, g.Status().DailyPnL)
}

func TestGateTripsOnConsecutiveFailures(t *testing.T) {
	g := testGate(GateConfig{DailyLossLimit: -100, MaxExposure: 10})

	failed := domain.TradeRecord{Status: domain.TradeStatusFailed}
	for range 3 {
		assert.True(t, g.RecordTrade(failed), "three failures stay within the limit")
	}
	assert.False(t, g.RecordTrade(failed), "fourth consecutive failure trips the breaker")
	assert.False(t, g.CanTrade())
}

func TestGateCompletedTradeResetsFailureStreak(t *testing.T) {
	g := testGate(GateConfig{DailyLossLimit: -100, MaxExposure: 10})

	failed := domain.TradeRecord{Status: domain.TradeStatusFailed}
	g.RecordTrade(failed)
	g.RecordTrade(failed)
	g.RecordTrade(failed)
	g.RecordTrade(completed(1))
	assert.Zero(t, g.Status().ConsecutiveFailed)

	// The streak starts over, so three more failures do not trip.
	g.RecordTrade(failed)
	g.RecordTrade(failed)
	assert.True(t, g.RecordTrade(failed))
}

func TestGatePartialTradeCountsAsFailureWithZeroPnL(t *testing.T) {
	g := testGate(GateConfig{DailyLossLimit: -100, MaxExposure: 10})

	// Partial trades carry zero realized P&L by construction; recording one
	// must not move the daily total but must advance the failure streak.
	partial := domain.TradeRecord{Status: domain.TradeStatusPartial, PnL: 0}
	assert.True(t, g.RecordTrade(partial))

	st := g.Status()
	assert.Zero(t, st.DailyPnL)
	assert.Equal(t, 1, st.ConsecutiveFailed)
}

func TestGateResetClearsTradeLog(t *testing.T) {
	g := testGate(GateConfig{DailyLossLimit: -100, MaxExposure: 10})
	g.RecordTrade(completed(5))
	g.RecordTrade(completed(-2))
	assert.Len(t, g.TradeLog(0), 2)

	g.ResetDailyStats()
	assert.Empty(t, g.TradeLog(0))
	assert.Zero(t, g.Status().TradesRecorded)
}

func TestGateTradeLogLimit(t *testing.T) {
	g := testGate(GateConfig{DailyLossLimit: -100, MaxExposure: 10})
	for i := range 5 {
		g.RecordTrade(completed(float64(i)))
	}
	log := g.TradeLog(2)
	assert.Len(t, log, 2)
	assert.Equal(t, 3.0, log[0].PnL)
	assert.Equal(t, 4.0, log[1].PnL)
}

func TestGateZeroFailureLimitDefaultsToThree(t *testing.T) {
	g := testGate(GateConfig{DailyLossLimit: -100, MaxExposure: 10, MaxConsecutiveFailures: 0})
	failed := domain.TradeRecord{Status: domain.TradeStatusFailed}
	g.RecordTrade(failed)
	g.RecordTrade(failed)
	assert.True(t, g.RecordTrade(failed))
	assert.False(t, g.RecordTrade(failed))
}
