// Package paper simulates order execution against a single fresh quote and
// settles the resulting balance deltas. There is no resting order book:
// every check is immediate-or-never, and fills are all-or-nothing.
package paper

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ksred/bitkub-trader/internal/types"
)

// FillResult describes the outcome of one fill check.
type FillResult struct {
	Filled   bool    `json:"filled"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Fee      float64 `json:"fee"`
	Reason   string  `json:"reason"`
}

// Wallet holds one cycle's working copy of the balances plus the fee and
// slippage configuration. The engine settles fills into it and persists the
// result; the wallet itself never touches storage.
type Wallet struct {
	balances types.Balances
	feeRate  float64
	slippage float64
}

func NewWallet(balances types.Balances, feeRate, slippage float64) *Wallet {
	return &Wallet{
		balances: balances,
		feeRate:  feeRate,
		slippage: slippage,
	}
}

// Balances returns a copy of the current balances.
func (w *Wallet) Balances() types.Balances {
	return w.balances
}

// SimulateFill models whether a resting limit order would execute against the
// quote. A BUY pays the ask plus slippage and fills iff that stays at or
// below the limit; a SELL receives the bid minus slippage and fills iff that
// stays at or above the limit.
func (w *Wallet) SimulateFill(order types.Order, bestBid, bestAsk float64) FillResult {
	if order.Side == types.SideBuy {
		fillPrice := bestAsk * (1 + w.slippage)
		if fillPrice <= order.Price {
			return FillResult{
				Filled:   true,
				Quantity: order.Quantity,
				Price:    fillPrice,
				Fee:      w.fee(order.Quantity, fillPrice),
				Reason:   fmt.Sprintf("buy filled: ask %v within limit %v", bestAsk, order.Price),
			}
		}
		return FillResult{Reason: fmt.Sprintf("buy not filled: ask %v above limit %v", bestAsk, order.Price)}
	}

	fillPrice := bestBid * (1 - w.slippage)
	if fillPrice >= order.Price {
		return FillResult{
			Filled:   true,
			Quantity: order.Quantity,
			Price:    fillPrice,
			Fee:      w.fee(order.Quantity, fillPrice),
			Reason:   fmt.Sprintf("sell filled: bid %v within limit %v", bestBid, order.Price),
		}
	}
	return FillResult{Reason: fmt.Sprintf("sell not filled: bid %v below limit %v", bestBid, order.Price)}
}

// ApplyFill settles a fill into the balances. A BUY debits THB by
// quantity*price+fee and credits the asset; a SELL credits THB by
// quantity*price-fee and debits the asset. Any component that would go
// negative is clamped to zero and returned so the caller can surface it: the
// risk gate should have made this impossible, so a clamp means the gate and
// the settlement arithmetic disagree.
func (w *Wallet) ApplyFill(order types.Order, quantity, price, fee float64) []string {
	if order.Side == types.SideBuy {
		w.balances.THB -= quantity*price + fee
		w.balances.AddAsset(order.Pair, quantity)
	} else {
		w.balances.THB += quantity*price - fee
		w.balances.AddAsset(order.Pair, -quantity)
	}

	var clamped []string
	clamp := func(name string, v *float64) {
		if *v < 0 {
			log.Warn().Str("component", name).Float64("value", *v).Msg("negative balance clamped to zero")
			clamped = append(clamped, name)
			*v = 0
		}
	}
	clamp("THB", &w.balances.THB)
	clamp("BTC", &w.balances.BTC)
	clamp("ETH", &w.balances.ETH)
	return clamped
}

// PortfolioValue returns the THB value of the balances at the given asset
// prices.
func (w *Wallet) PortfolioValue(btcPrice, ethPrice float64) float64 {
	return PortfolioValue(w.balances, btcPrice, ethPrice)
}

// PortfolioValue values a balance set in THB.
func PortfolioValue(b types.Balances, btcPrice, ethPrice float64) float64 {
	return b.THB + b.BTC*btcPrice + b.ETH*ethPrice
}

func (w *Wallet) fee(quantity, price float64) float64 {
	f := decimal.NewFromFloat(quantity).
		Mul(decimal.NewFromFloat(price)).
		Mul(decimal.NewFromFloat(w.feeRate))
	return f.Round(8).InexactFloat64()
}
