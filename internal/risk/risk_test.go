package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/bitkub-trader/internal/types"
)

func limits() types.RiskLimits {
	return types.RiskLimits{
		MaxTHBPerTrade:        10000,
		MaxExposureTHBPerPair: 50000,
		MaxOpenOrders:         5,
		MaxDailyLossTHB:       -20000,
	}
}

func balances() types.Balances {
	return types.Balances{THB: 20000, BTC: 0.01, ETH: 0.5}
}

func openBuys(n int) []types.Order {
	orders := make([]types.Order, n)
	for i := range orders {
		orders[i] = types.Order{
			Pair:   types.PairBTCTHB,
			Side:   types.SideBuy,
			Status: types.StatusOpen,
			Price:  1200000,
		}
	}
	return orders
}

func TestCheckAllowsCleanBuy(t *testing.T) {
	result := Check(types.SideBuy, types.PairBTCTHB, 0.004, 1250000, balances(), nil, limits(), false, 0)
	assert.True(t, result.Allowed)
	assert.Empty(t, result.Reason)
}

func TestCheckKillSwitch(t *testing.T) {
	result := Check(types.SideBuy, types.PairBTCTHB, 0.004, 1250000, balances(), nil, limits(), true, 0)
	require.False(t, result.Allowed)
	assert.Equal(t, "kill switch enabled", result.Reason)
}

func TestCheckDailyLossLimit(t *testing.T) {
	result := Check(types.SideBuy, types.PairBTCTHB, 0.004, 1250000, balances(), nil, limits(), false, -20000)
	require.False(t, result.Allowed)
	assert.Contains(t, result.Reason, "daily loss")
	assert.Contains(t, result.Reason, "-20000.00")
}

func TestCheckMaxOpenOrders(t *testing.T) {
	result := Check(types.SideBuy, types.PairBTCTHB, 0.004, 1250000, balances(), openBuys(5), limits(), false, 0)
	require.False(t, result.Allowed)
	assert.Contains(t, result.Reason, "open orders 5 >= limit 5")
}

func TestCheckMaxOpenOrdersIgnoresFilled(t *testing.T) {
	orders := openBuys(5)
	orders[0].Status = types.StatusFilled
	orders[1].Status = types.StatusCancelled

	result := Check(types.SideBuy, types.PairBTCTHB, 0.004, 1250000, balances(), orders, limits(), false, 0)
	assert.True(t, result.Allowed)
}

func TestCheckTradeValueLimit(t *testing.T) {
	// 0.01 * 1250000 = 12500 THB, over the 10000 per-trade cap.
	result := Check(types.SideBuy, types.PairBTCTHB, 0.01, 1250000, balances(), nil, limits(), false, 0)
	require.False(t, result.Allowed)
	assert.Contains(t, result.Reason, "Trade value")
	assert.Contains(t, result.Reason, "12500.00")
	assert.Contains(t, result.Reason, "10000.00")
}

func TestCheckInsufficientTHB(t *testing.T) {
	poor := types.Balances{THB: 1000}
	result := Check(types.SideBuy, types.PairBTCTHB, 0.004, 1250000, poor, nil, limits(), false, 0)
	require.False(t, result.Allowed)
	assert.Contains(t, result.Reason, "insufficient THB")
}

func TestCheckPairExposure(t *testing.T) {
	wide := limits()
	wide.MaxTHBPerTrade = 100000
	wide.MaxExposureTHBPerPair = 12000
	rich := types.Balances{THB: 500000}

	// Resting buy already carries 0.008 * 1200000 = 9600 THB of exposure.
	orders := []types.Order{{
		Pair:           types.PairBTCTHB,
		Side:           types.SideBuy,
		Status:         types.StatusPartial,
		Price:          1200000,
		FilledQuantity: 0.008,
	}}

	result := Check(types.SideBuy, types.PairBTCTHB, 0.004, 1250000, rich, orders, wide, false, 0)
	require.False(t, result.Allowed)
	assert.Contains(t, result.Reason, "pair exposure")
	assert.Contains(t, result.Reason, "14600.00")
	assert.Contains(t, result.Reason, "12000.00")
}

func TestCheckExposureUsesFilledPriceWhenKnown(t *testing.T) {
	wide := limits()
	wide.MaxTHBPerTrade = 100000
	wide.MaxExposureTHBPerPair = 10000
	rich := types.Balances{THB: 500000}

	orders := []types.Order{{
		Pair:           types.PairBTCTHB,
		Side:           types.SideBuy,
		Status:         types.StatusPartial,
		Price:          1200000,
		FilledQuantity: 0.004,
		FilledPrice:    1100000,
	}}

	// 0.004*1100000 + 0.004*1250000 = 4400 + 5000 = 9400, inside the cap.
	result := Check(types.SideBuy, types.PairBTCTHB, 0.004, 1250000, rich, orders, wide, false, 0)
	assert.True(t, result.Allowed)
}

func TestCheckInsufficientAsset(t *testing.T) {
	result := Check(types.SideSell, types.PairBTCTHB, 0.02, 400000, balances(), nil, limits(), false, 0)
	require.False(t, result.Allowed)
	assert.Contains(t, result.Reason, "insufficient BTC")

	result = Check(types.SideSell, types.PairETHTHB, 1.0, 9000, balances(), nil, limits(), false, 0)
	require.False(t, result.Allowed)
	assert.Contains(t, result.Reason, "insufficient ETH")
}

func TestCheckSellWithinHoldings(t *testing.T) {
	result := Check(types.SideSell, types.PairETHTHB, 0.5, 9000, balances(), nil, limits(), false, 0)
	assert.True(t, result.Allowed)
}

// Denial order is part of the contract: a scenario violating several limits
// at once must report the first in the fixed sequence.
func TestCheckOrderOfDenials(t *testing.T) {
	poor := types.Balances{THB: 1000}
	crowded := openBuys(5)

	result := Check(types.SideBuy, types.PairBTCTHB, 0.01, 1250000, poor, crowded, limits(), true, -25000)
	assert.Equal(t, "kill switch enabled", result.Reason)

	result = Check(types.SideBuy, types.PairBTCTHB, 0.01, 1250000, poor, crowded, limits(), false, -25000)
	assert.Contains(t, result.Reason, "daily loss")

	result = Check(types.SideBuy, types.PairBTCTHB, 0.01, 1250000, poor, crowded, limits(), false, 0)
	assert.Contains(t, result.Reason, "open orders")

	result = Check(types.SideBuy, types.PairBTCTHB, 0.01, 1250000, poor, nil, limits(), false, 0)
	assert.Contains(t, result.Reason, "Trade value")

	result = Check(types.SideBuy, types.PairBTCTHB, 0.004, 1250000, poor, nil, limits(), false, 0)
	assert.Contains(t, result.Reason, "insufficient THB")
}

func TestCheckDeterministic(t *testing.T) {
	orders := openBuys(2)
	first := Check(types.SideBuy, types.PairBTCTHB, 0.004, 1250000, balances(), orders, limits(), false, -100)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Check(types.SideBuy, types.PairBTCTHB, 0.004, 1250000, balances(), orders, limits(), false, -100))
	}
}

func TestPnL(t *testing.T) {
	assert.InDelta(t, 175.0, PnL(1200000, 1250000, 0.004, 25), 1e-9)
}
