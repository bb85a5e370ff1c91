// Package risk validates proposed orders against balances, exposure and
// operator limits. Checks run in a fixed order and short-circuit on the first
// failure; downstream audit logging depends on that ordering and on the
// reason strings naming both the observed and the limiting value.
package risk

import (
	"fmt"

	"github.com/ksred/bitkub-trader/internal/types"
)

// Result is the outcome of a gate check. Reason is empty when allowed.
type Result struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func deny(format string, args ...interface{}) Result {
	return Result{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// Check decides whether a proposed order may be placed. Check order:
// kill switch, daily loss, open order count, per-trade notional, then
// balance/exposure for the relevant side.
func Check(
	side types.OrderSide,
	pair types.Pair,
	quantity, price float64,
	balances types.Balances,
	openOrders []types.Order,
	limits types.RiskLimits,
	killSwitch bool,
	dailyLoss float64,
) Result {
	if killSwitch {
		return deny("kill switch enabled")
	}

	if dailyLoss <= limits.MaxDailyLossTHB {
		return deny("daily loss %.2f has reached limit %.2f", dailyLoss, limits.MaxDailyLossTHB)
	}

	openCount := 0
	for _, o := range openOrders {
		if o.Status.Active() {
			openCount++
		}
	}
	if openCount >= limits.MaxOpenOrders {
		return deny("open orders %d >= limit %d", openCount, limits.MaxOpenOrders)
	}

	tradeValue := quantity * price
	if tradeValue > limits.MaxTHBPerTrade {
		return deny("Trade value %.2f > limit %.2f", tradeValue, limits.MaxTHBPerTrade)
	}

	switch side {
	case types.SideBuy:
		if balances.THB < tradeValue {
			return deny("insufficient THB: have %.2f, need %.2f", balances.THB, tradeValue)
		}
		exposure := pairExposure(pair, openOrders) + tradeValue
		if exposure > limits.MaxExposureTHBPerPair {
			return deny("pair exposure %.2f > limit %.2f", exposure, limits.MaxExposureTHBPerPair)
		}

	case types.SideSell:
		held := balances.Asset(pair)
		if held < quantity {
			return deny("insufficient %s: have %.8f, need %.8f", pair.Asset(), held, quantity)
		}
	}

	return Result{Allowed: true}
}

// pairExposure sums the THB value committed to the pair's resting BUY orders.
// Filled quantity is valued at the fill price when known, otherwise at the
// limit price.
func pairExposure(pair types.Pair, openOrders []types.Order) float64 {
	exposure := 0.0
	for _, o := range openOrders {
		if o.Pair != pair || !o.Status.Active() || o.Side != types.SideBuy {
			continue
		}
		px := o.FilledPrice
		if px == 0 {
			px = o.Price
		}
		exposure += o.FilledQuantity * px
	}
	return exposure
}

// PnL returns the net profit of a closed round trip after fees.
func PnL(buyPrice, sellPrice, quantity, fees float64) float64 {
	return (sellPrice-buyPrice)*quantity - fees
}
