package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/bitkub-trader/internal/types"
)

func TestStrategySettingsDefaults(t *testing.T) {
	d := newTestDB(t)

	btc, err := d.StrategySettings(types.PairBTCTHB)
	require.NoError(t, err)
	assert.True(t, btc.Enabled)
	assert.Equal(t, 1200000.0, btc.BuyTrigger)
	assert.Equal(t, 1300000.0, btc.SellTrigger)
	assert.Equal(t, 5000.0, btc.OrderSizeTHB)

	eth, err := d.StrategySettings(types.PairETHTHB)
	require.NoError(t, err)
	assert.Equal(t, 30000.0, eth.BuyTrigger)
	assert.Equal(t, 35000.0, eth.SellTrigger)
	assert.Equal(t, 3000.0, eth.OrderSizeTHB)
}

func TestSetSettingRoundTrip(t *testing.T) {
	d := newTestDB(t)

	want := types.StrategySettings{Enabled: false, BuyTrigger: 1000000, SellTrigger: 1400000, OrderSizeTHB: 2500}
	require.NoError(t, d.SetSetting(KeyStrategyBTC, want))

	got, err := d.StrategySettings(types.PairBTCTHB)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Writing the same key again updates in place.
	want.BuyTrigger = 1100000
	require.NoError(t, d.SetSetting(KeyStrategyBTC, want))

	got, err = d.StrategySettings(types.PairBTCTHB)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	var count int64
	require.NoError(t, d.db.Model(&Setting{}).Where("key = ?", KeyStrategyBTC).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestScalarSettingDefaults(t *testing.T) {
	d := newTestDB(t)

	mode, err := d.TradingMode()
	require.NoError(t, err)
	assert.Equal(t, types.ModePaper, mode)

	fee, err := d.FeeRate()
	require.NoError(t, err)
	assert.Equal(t, 0.0025, fee)

	slip, err := d.Slippage()
	require.NoError(t, err)
	assert.Equal(t, 0.0, slip)

	limits, err := d.RiskLimits()
	require.NoError(t, err)
	assert.Equal(t, types.RiskLimits{
		MaxTHBPerTrade:        10000,
		MaxExposureTHBPerPair: 50000,
		MaxOpenOrders:         5,
		MaxDailyLossTHB:       -20000,
	}, limits)
}

func TestEnsureDefaultsSeedsOnce(t *testing.T) {
	d := newTestDB(t)

	require.NoError(t, d.EnsureDefaults())

	balances, err := d.Balances(types.ModePaper)
	require.NoError(t, err)
	assert.Equal(t, types.Balances{THB: 20000}, balances)

	state, err := d.BotState()
	require.NoError(t, err)
	assert.False(t, state.IsPaused)
	assert.False(t, state.KillSwitch)

	// Operator edits survive a second seeding pass on restart.
	custom := types.StrategySettings{Enabled: true, BuyTrigger: 900000, SellTrigger: 1500000, OrderSizeTHB: 100}
	require.NoError(t, d.SetSetting(KeyStrategyBTC, custom))
	require.NoError(t, d.UpdateBalances(types.ModePaper, types.Balances{THB: 123}))

	require.NoError(t, d.EnsureDefaults())

	got, err := d.StrategySettings(types.PairBTCTHB)
	require.NoError(t, err)
	assert.Equal(t, custom, got)

	balances, err = d.Balances(types.ModePaper)
	require.NoError(t, err)
	assert.Equal(t, 123.0, balances.THB)
}
