package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucky2025-star/filon/internal/domain"
)

func TestComputeProfit(t *testing.T) {
	b, err := ComputeProfit(100, 101, 1, 0.001, 0.001)
	require.NoError(t, err)

	assert.InDelta(t, 100.0, b.BuyCost, 1e-9)
	assert.InDelta(t, 0.1, b.BuyFee, 1e-9)
	assert.InDelta(t, 100.1, b.TotalBuyCost, 1e-9)
	assert.InDelta(t, 101.0, b.SellRevenue, 1e-9)
	assert.InDelta(t, 0.101, b.SellFee, 1e-9)
	assert.InDelta(t, 100.899, b.NetRevenue, 1e-9)
	assert.InDelta(t, 0.799, b.ProfitUSD, 1e-9)
	assert.InDelta(t, 0.79820, b.ProfitPct, 1e-4)
}

func TestComputeProfitIdentity(t *testing.T) {
	// profit_usd must equal net_revenue - total_buy_cost exactly for a range
	// of inputs, with no drift beyond floating-point epsilon.
	cases := []struct {
		buy, sell, qty float64
	}{
		{100, 101, 1},
		{0.0001, 0.00011, 50000},
		{65000, 65123.45, 0.0025},
		{1, 1, 1},
		{42, 41, 3}, // losing trade
	}
	for _, c := range cases {
		b, err := ComputeProfit(c.buy, c.sell, c.qty, 0.001, 0.002)
		require.NoError(t, err)
		assert.InEpsilon(t, b.NetRevenue-b.TotalBuyCost, b.ProfitUSD, 1e-12)
	}
}

func TestComputeProfitRejectsInvalidInput(t *testing.T) {
	_, err := ComputeProfit(100, 101, 0, 0.001, 0.001)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = ComputeProfit(100, 101, -1, 0.001, 0.001)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = ComputeProfit(0, 101, 1, 0.001, 0.001)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = ComputeProfit(-5, 101, 1, 0.001, 0.001)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestNetSpreadPct(t *testing.T) {
	// 1% gross spread minus 0.1% per leg.
	assert.InDelta(t, 0.8, NetSpreadPct(100, 101, 0.1, 0.1), 1e-9)
	// Non-positive ask yields zero rather than a division blow-up.
	assert.Zero(t, NetSpreadPct(0, 101, 0.1, 0.1))
}
