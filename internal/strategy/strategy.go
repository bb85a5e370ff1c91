// Package strategy generates trading intents from market snapshots. It is
// pure: identical inputs always produce identical signals, which is what lets
// a restarted worker re-derive the same decision it would have made before a
// crash.
package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ksred/bitkub-trader/internal/types"
)

// quantityScale is the number of fractional digits quantities and fees are
// rounded to, matching the exchange's precision.
const quantityScale = 8

// Evaluate maps a snapshot plus the pair's settings and order set to a
// signal. It returns nil when the pair is disabled. BUY is checked before
// SELL and short-circuits, so a single call never emits both.
//
// The open-buy and open-sell gates only consider OPEN or PARTIAL orders; the
// filled-buy check that arms the sell rule counts any non-cancelled BUY with
// executed quantity, so a position bought earlier in the order set still
// triggers an exit.
func Evaluate(snapshot types.MarketSnapshot, settings types.StrategySettings, orders []types.Order) *types.Signal {
	if !settings.Enabled {
		return nil
	}

	var hasOpenBuy, hasOpenSell, hasFilledBuy bool
	for _, o := range orders {
		if o.Pair != snapshot.Pair || o.Status == types.StatusCancelled {
			continue
		}
		switch o.Side {
		case types.SideBuy:
			if o.Status.Active() {
				hasOpenBuy = true
			}
			if o.FilledQuantity > 0 {
				hasFilledBuy = true
			}
		case types.SideSell:
			if o.Status.Active() {
				hasOpenSell = true
			}
		}
	}

	if !hasOpenBuy && snapshot.LastPrice <= settings.BuyTrigger {
		return &types.Signal{
			Pair:   snapshot.Pair,
			Action: types.ActionBuy,
			Price:  snapshot.LastPrice,
			Reason: fmt.Sprintf("price %v <= buy trigger %v", snapshot.LastPrice, settings.BuyTrigger),
		}
	}

	if (hasOpenSell || hasFilledBuy) && snapshot.LastPrice >= settings.SellTrigger {
		return &types.Signal{
			Pair:   snapshot.Pair,
			Action: types.ActionSell,
			Price:  snapshot.LastPrice,
			Reason: fmt.Sprintf("price %v >= sell trigger %v", snapshot.LastPrice, settings.SellTrigger),
		}
	}

	return &types.Signal{
		Pair:   snapshot.Pair,
		Action: types.ActionHold,
		Price:  snapshot.LastPrice,
		Reason: "no trigger crossed",
	}
}

// CalculateQuantity converts a THB notional into an asset quantity at the
// given price, rounded half-up at the 8th fractional digit.
func CalculateQuantity(notionalTHB, price float64) float64 {
	q := decimal.NewFromFloat(notionalTHB).Div(decimal.NewFromFloat(price))
	return q.Round(quantityScale).InexactFloat64()
}

// CalculateFee returns the fee on a trade of quantity at price, rounded the
// same way as quantities.
func CalculateFee(quantity, price, feeRate float64) float64 {
	f := decimal.NewFromFloat(quantity).
		Mul(decimal.NewFromFloat(price)).
		Mul(decimal.NewFromFloat(feeRate))
	return f.Round(quantityScale).InexactFloat64()
}
