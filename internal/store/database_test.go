package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/bitkub-trader/internal/types"
)

func TestBalancesCreatesDefaultBook(t *testing.T) {
	d := newTestDB(t)

	balances, err := d.Balances(types.ModePaper)
	require.NoError(t, err)
	assert.Equal(t, types.Balances{THB: 20000}, balances)

	require.NoError(t, d.UpdateBalances(types.ModePaper, types.Balances{THB: 14987.5, BTC: 0.004}))

	balances, err = d.Balances(types.ModePaper)
	require.NoError(t, err)
	assert.Equal(t, types.Balances{THB: 14987.5, BTC: 0.004}, balances)
}

func TestUpdateBalancesMissingMode(t *testing.T) {
	d := newTestDB(t)

	err := d.UpdateBalances(types.ModeLive, types.Balances{THB: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no balance row")
}

func TestOrderLifecycle(t *testing.T) {
	d := newTestDB(t)

	order := types.Order{
		Mode:     types.ModePaper,
		Pair:     types.PairBTCTHB,
		Side:     types.SideBuy,
		Price:    1190000,
		Quantity: 0.004,
	}
	require.NoError(t, d.CreateOrder(&order))
	assert.NotEmpty(t, order.OrderID)
	assert.Equal(t, types.StatusOpen, order.Status)

	open, err := d.OpenOrders(types.ModePaper)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, order.OrderID, open[0].OrderID)

	require.NoError(t, d.MarkOrderFilled(order.OrderID, 0.004, 1190000, 11.9))

	open, err = d.OpenOrders(types.ModePaper)
	require.NoError(t, err)
	assert.Empty(t, open)

	recent, err := d.RecentOrders(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, types.StatusFilled, recent[0].Status)
	assert.Equal(t, 0.004, recent[0].FilledQuantity)
	assert.Equal(t, 1190000.0, recent[0].FilledPrice)
	assert.Equal(t, 11.9, recent[0].Fee)
}

func TestOpenOrdersFiltersByMode(t *testing.T) {
	d := newTestDB(t)

	paper := types.Order{Mode: types.ModePaper, Pair: types.PairBTCTHB, Side: types.SideBuy, Price: 1, Quantity: 1}
	live := types.Order{Mode: types.ModeLive, Pair: types.PairBTCTHB, Side: types.SideBuy, Price: 1, Quantity: 1}
	require.NoError(t, d.CreateOrder(&paper))
	require.NoError(t, d.CreateOrder(&live))

	open, err := d.OpenOrders(types.ModePaper)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, paper.OrderID, open[0].OrderID)
}

func TestMarkOrderFilledUnknownOrder(t *testing.T) {
	d := newTestDB(t)

	err := d.MarkOrderFilled("no-such-order", 1, 1, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRecordFill(t *testing.T) {
	d := newTestDB(t)

	fill, err := d.RecordFill("order-1", 0.004, 1190000, 11.9)
	require.NoError(t, err)
	assert.NotEmpty(t, fill.FillID)

	fills, err := d.RecentFills(10)
	require.NoError(t, err)
	require.Len(t, fills, 1)
	assert.Equal(t, "order-1", fills[0].OrderID)
	assert.Equal(t, 0.004, fills[0].Quantity)
}

func TestDailyPnL(t *testing.T) {
	d := newTestDB(t)
	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	pnl, err := d.DailyPnL(types.ModePaper, day)
	require.NoError(t, err)
	assert.Equal(t, 0.0, pnl)

	seed := []EquitySnapshot{
		// Previous day, must not count.
		{Mode: types.ModePaper, Timestamp: day.Add(-20 * time.Hour), TotalValueTHB: 50000},
		{Mode: types.ModePaper, Timestamp: day.Add(-8 * time.Hour), TotalValueTHB: 20300},
		{Mode: types.ModePaper, Timestamp: day.Add(-2 * time.Hour), TotalValueTHB: 20100},
		{Mode: types.ModePaper, Timestamp: day.Add(3 * time.Hour), TotalValueTHB: 19850},
		// Other mode, must not count.
		{Mode: types.ModeLive, Timestamp: day, TotalValueTHB: 1},
	}
	for i := range seed {
		require.NoError(t, d.db.Create(&seed[i]).Error)
	}

	pnl, err = d.DailyPnL(types.ModePaper, day)
	require.NoError(t, err)
	assert.InDelta(t, 19850-20300, pnl, 1e-9)
}

func TestDailyPnLSingleSnapshot(t *testing.T) {
	d := newTestDB(t)
	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, d.db.Create(&EquitySnapshot{
		Mode: types.ModePaper, Timestamp: day, TotalValueTHB: 20000,
	}).Error)

	pnl, err := d.DailyPnL(types.ModePaper, day)
	require.NoError(t, err)
	assert.Equal(t, 0.0, pnl)
}

func TestEquitySnapshots(t *testing.T) {
	d := newTestDB(t)

	latest, err := d.LatestEquity(types.ModePaper)
	require.NoError(t, err)
	assert.Nil(t, latest)

	b := types.Balances{THB: 14987.5, BTC: 0.004}
	require.NoError(t, d.RecordEquitySnapshot(types.ModePaper, 19987.5, b, 1250000, 32000))

	latest, err = d.LatestEquity(types.ModePaper)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 19987.5, latest.TotalValueTHB)
	assert.Equal(t, 0.004, latest.BTC)
	assert.Equal(t, 1250000.0, latest.BTCPriceTHB)

	history, err := d.EquityHistory(types.ModePaper, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestEventsLevelFilter(t *testing.T) {
	d := newTestDB(t)

	require.NoError(t, d.LogEvent(types.LevelInfo, "order placed", map[string]interface{}{"pair": "BTC/THB"}))
	require.NoError(t, d.LogEvent(types.LevelWarn, "order blocked", nil))

	all, err := d.RecentEvents(10, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	warns, err := d.RecentEvents(10, types.LevelWarn)
	require.NoError(t, err)
	require.Len(t, warns, 1)
	assert.Equal(t, "order blocked", warns[0].Message)

	infos, err := d.RecentEvents(10, types.LevelInfo)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Contains(t, string(infos[0].Meta), "BTC/THB")
}

func TestBotStateFlags(t *testing.T) {
	d := newTestDB(t)

	state, err := d.BotState()
	require.NoError(t, err)
	assert.False(t, state.IsRunning)
	assert.Nil(t, state.LastPulseAt)

	require.NoError(t, d.SetRunning(true))
	require.NoError(t, d.SetPaused(true))
	require.NoError(t, d.SetKillSwitch(true))
	require.NoError(t, d.UpdatePulse())

	state, err = d.BotState()
	require.NoError(t, err)
	assert.True(t, state.IsRunning)
	assert.True(t, state.IsPaused)
	assert.True(t, state.KillSwitch)
	require.NotNil(t, state.LastPulseAt)
	assert.WithinDuration(t, time.Now(), *state.LastPulseAt, time.Minute)

	require.NoError(t, d.SetPaused(false))
	require.NoError(t, d.SetKillSwitch(false))

	state, err = d.BotState()
	require.NoError(t, err)
	assert.False(t, state.IsPaused)
	assert.False(t, state.KillSwitch)
}
