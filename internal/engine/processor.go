// Package engine runs the trading cycle: a single ticker loop that, under an
// advisory lease, evaluates each pair's strategy, gates the resulting intent
// through risk checks, places paper orders and settles simulated fills. Any
// number of worker processes may run; the lease guarantees at most one
// executes a cycle at a time.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ksred/bitkub-trader/internal/market"
	"github.com/ksred/bitkub-trader/internal/paper"
	"github.com/ksred/bitkub-trader/internal/risk"
	"github.com/ksred/bitkub-trader/internal/store"
	"github.com/ksred/bitkub-trader/internal/strategy"
	"github.com/ksred/bitkub-trader/internal/types"
)

const (
	// DefaultInterval is the cycle cadence when none is configured.
	DefaultInterval = 2 * time.Second

	// lockTTL bounds how long a crashed worker can wedge the lease. Cycles
	// complete in well under this, so a live holder renews every tick.
	lockTTL = 30 * time.Second
)

type Processor struct {
	store    *store.Database
	market   market.Source
	interval time.Duration
	pairs    []types.Pair
	owner    string
}

func NewProcessor(db *store.Database, src market.Source, interval time.Duration) *Processor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Processor{
		store:    db,
		market:   src,
		interval: interval,
		pairs:    types.AllPairs(),
		owner:    uuid.New().String(),
	}
}

// Start runs the cycle loop until ctx is cancelled. Each tick is synchronous,
// so cancellation waits for an in-flight cycle to finish and release its
// lease before Start returns.
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "engine").Logger()
	logger.Info().Dur("interval", p.interval).Msg("starting trading cycle engine")

	if err := p.store.SetRunning(true); err != nil {
		logger.Error().Err(err).Msg("failed to flag worker as running")
	}
	defer func() {
		if err := p.store.SetRunning(false); err != nil {
			logger.Error().Err(err).Msg("failed to clear running flag")
		}
		if err := p.store.ReleaseLock(store.WorkerLockName, p.owner); err != nil {
			logger.Error().Err(err).Msg("failed to release worker lease")
		}
		logger.Info().Msg("trading cycle engine stopped")
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick attempts one cycle. Losing the lease race is a normal skip, not an
// error: another worker ran the cycle for this window.
func (p *Processor) Tick(ctx context.Context) {
	logger := log.With().Str("component", "engine").Logger()

	acquired, err := p.store.AcquireLock(store.WorkerLockName, p.owner, lockTTL)
	if err != nil {
		logger.Error().Err(err).Msg("lease acquisition failed")
		return
	}
	if !acquired {
		logger.Debug().Msg("lease held elsewhere, skipping cycle")
		return
	}
	defer func() {
		if err := p.store.ReleaseLock(store.WorkerLockName, p.owner); err != nil {
			logger.Error().Err(err).Msg("failed to release worker lease")
		}
	}()

	state, err := p.store.BotState()
	if err != nil {
		logger.Error().Err(err).Msg("failed to read bot state")
		return
	}
	if state.IsPaused || state.KillSwitch {
		logger.Debug().
			Bool("paused", state.IsPaused).
			Bool("kill_switch", state.KillSwitch).
			Msg("bot suspended, skipping cycle")
		return
	}

	if err := p.runCycle(ctx, state); err != nil {
		logger.Error().Err(err).Msg("cycle failed")
		if logErr := p.store.LogEvent(types.LevelError, fmt.Sprintf("cycle failed: %v", err), nil); logErr != nil {
			logger.Error().Err(logErr).Msg("failed to persist cycle failure event")
		}
		return
	}

	if err := p.store.UpdatePulse(); err != nil {
		logger.Error().Err(err).Msg("failed to update heartbeat")
	}
}

// runCycle executes one full evaluation pass. Every write it makes is durable
// immediately, so a crash mid-cycle leaves at worst an OPEN order whose fill
// check simply happens on the next successful cycle.
func (p *Processor) runCycle(ctx context.Context, state *store.BotState) error {
	logger := log.With().Str("component", "engine").Logger()

	mode, err := p.store.TradingMode()
	if err != nil {
		return fmt.Errorf("reading trading mode: %w", err)
	}
	limits, err := p.store.RiskLimits()
	if err != nil {
		return fmt.Errorf("reading risk limits: %w", err)
	}
	feeRate, err := p.store.FeeRate()
	if err != nil {
		return fmt.Errorf("reading fee rate: %w", err)
	}
	slippage, err := p.store.Slippage()
	if err != nil {
		return fmt.Errorf("reading slippage: %w", err)
	}
	balances, err := p.store.Balances(mode)
	if err != nil {
		return fmt.Errorf("reading balances: %w", err)
	}
	openOrders, err := p.store.OpenOrders(mode)
	if err != nil {
		return fmt.Errorf("reading open orders: %w", err)
	}

	wallet := paper.NewWallet(balances, feeRate, slippage)

	// A pair whose quote fails is skipped this cycle without touching the
	// others.
	snapshots := make(map[types.Pair]types.MarketSnapshot, len(p.pairs))
	for _, pair := range p.pairs {
		snap, err := p.market.Quote(ctx, pair)
		if err != nil {
			logger.Warn().Err(err).Str("pair", string(pair)).Msg("quote fetch failed")
			if logErr := p.store.LogEvent(types.LevelWarn, fmt.Sprintf("could not fetch ticker for %s", pair), map[string]interface{}{
				"pair":  pair,
				"error": err.Error(),
			}); logErr != nil {
				return fmt.Errorf("persisting quote failure event: %w", logErr)
			}
			continue
		}
		snapshots[pair] = snap
	}

	dailyPnL, err := p.store.DailyPnL(mode, time.Now())
	if err != nil {
		return fmt.Errorf("deriving daily pnl: %w", err)
	}

	for _, pair := range p.pairs {
		snap, ok := snapshots[pair]
		if !ok {
			continue
		}
		if err := p.processPair(mode, snap, wallet, &openOrders, limits, state.KillSwitch, dailyPnL); err != nil {
			return fmt.Errorf("processing %s: %w", pair, err)
		}
	}

	// One equity point per cycle, but only when every pair quoted: a partial
	// valuation would distort the daily PnL series the risk gate reads.
	if len(snapshots) == len(p.pairs) {
		total := wallet.PortfolioValue(snapshots[types.PairBTCTHB].LastPrice, snapshots[types.PairETHTHB].LastPrice)
		if err := p.store.RecordEquitySnapshot(mode, total, wallet.Balances(),
			snapshots[types.PairBTCTHB].LastPrice, snapshots[types.PairETHTHB].LastPrice); err != nil {
			return fmt.Errorf("recording equity snapshot: %w", err)
		}
	}

	return nil
}

// processPair evaluates the strategy for one pair, places an order on an
// allowed signal and then sweeps every resting order for the pair against the
// same snapshot. openOrders is mutated in place so later pairs see orders
// placed or filled earlier in the cycle.
func (p *Processor) processPair(
	mode types.TradingMode,
	snap types.MarketSnapshot,
	wallet *paper.Wallet,
	openOrders *[]types.Order,
	limits types.RiskLimits,
	killSwitch bool,
	dailyPnL float64,
) error {
	logger := log.With().Str("component", "engine").Str("pair", string(snap.Pair)).Logger()

	settings, err := p.store.StrategySettings(snap.Pair)
	if err != nil {
		return fmt.Errorf("reading strategy settings: %w", err)
	}

	signal := strategy.Evaluate(snap, settings, *openOrders)
	if signal != nil && signal.Action != types.ActionHold {
		if mode != types.ModePaper {
			logger.Error().Str("mode", string(mode)).Msg("live order routing not implemented")
			if err := p.store.LogEvent(types.LevelError, fmt.Sprintf("order skipped: %s %s - live trading not implemented", snap.Pair, signal.Action), map[string]interface{}{
				"pair": snap.Pair,
				"side": signal.Action,
			}); err != nil {
				return err
			}
		} else if err := p.placeOrder(mode, snap, *signal, settings, wallet.Balances(), openOrders, limits, killSwitch, dailyPnL); err != nil {
			return err
		}
	}

	return p.sweepOpenOrders(mode, snap, wallet, openOrders)
}

// placeOrder runs the risk gate over the signal and persists the order when
// allowed. A denial is a business decision, not an error: it is logged and
// the same signal gets re-evaluated fresh next cycle.
func (p *Processor) placeOrder(
	mode types.TradingMode,
	snap types.MarketSnapshot,
	signal types.Signal,
	settings types.StrategySettings,
	balances types.Balances,
	openOrders *[]types.Order,
	limits types.RiskLimits,
	killSwitch bool,
	dailyPnL float64,
) error {
	logger := log.With().Str("component", "engine").Str("pair", string(snap.Pair)).Logger()

	side := types.OrderSide(signal.Action)
	quantity := strategy.CalculateQuantity(settings.OrderSizeTHB, snap.LastPrice)

	check := risk.Check(side, snap.Pair, quantity, snap.LastPrice, balances, *openOrders, limits, killSwitch, dailyPnL)
	if !check.Allowed {
		logger.Warn().Str("side", string(side)).Str("reason", check.Reason).Msg("order blocked by risk gate")
		return p.store.LogEvent(types.LevelWarn, fmt.Sprintf("order blocked: %s %s - %s", snap.Pair, side, check.Reason), map[string]interface{}{
			"pair":   snap.Pair,
			"side":   side,
			"reason": check.Reason,
		})
	}

	order := types.Order{
		Mode:     mode,
		Pair:     snap.Pair,
		Side:     side,
		Price:    snap.LastPrice,
		Quantity: quantity,
	}
	if err := p.store.CreateOrder(&order); err != nil {
		return fmt.Errorf("creating order: %w", err)
	}
	*openOrders = append(*openOrders, order)

	logger.Info().
		Str("order_id", order.OrderID).
		Str("side", string(side)).
		Float64("price", order.Price).
		Float64("quantity", order.Quantity).
		Str("signal_reason", signal.Reason).
		Msg("order placed")

	return p.store.LogEvent(types.LevelInfo, fmt.Sprintf("order placed: %s %s @ %v", snap.Pair, side, order.Price), map[string]interface{}{
		"order_id": order.OrderID,
		"pair":     snap.Pair,
		"side":     side,
		"price":    order.Price,
		"quantity": order.Quantity,
		"reason":   signal.Reason,
	})
}

// sweepOpenOrders fill-checks every resting order for the pair against the
// fresh quote, including any order placed moments ago in this same cycle.
func (p *Processor) sweepOpenOrders(
	mode types.TradingMode,
	snap types.MarketSnapshot,
	wallet *paper.Wallet,
	openOrders *[]types.Order,
) error {
	logger := log.With().Str("component", "engine").Str("pair", string(snap.Pair)).Logger()

	for i := range *openOrders {
		order := &(*openOrders)[i]
		if order.Pair != snap.Pair || !order.Status.Active() {
			continue
		}

		result := wallet.SimulateFill(*order, snap.BestBid, snap.BestAsk)
		if !result.Filled {
			logger.Debug().Str("order_id", order.OrderID).Str("reason", result.Reason).Msg("order not filled")
			if err := p.store.LogEvent(types.LevelDebug, result.Reason, map[string]interface{}{
				"order_id": order.OrderID,
			}); err != nil {
				return err
			}
			continue
		}

		clamped := wallet.ApplyFill(*order, result.Quantity, result.Price, result.Fee)
		if _, err := p.store.RecordFill(order.OrderID, result.Quantity, result.Price, result.Fee); err != nil {
			return fmt.Errorf("recording fill for %s: %w", order.OrderID, err)
		}
		if err := p.store.MarkOrderFilled(order.OrderID, result.Quantity, result.Price, result.Fee); err != nil {
			return fmt.Errorf("updating order %s: %w", order.OrderID, err)
		}
		if err := p.store.UpdateBalances(mode, wallet.Balances()); err != nil {
			return fmt.Errorf("updating balances: %w", err)
		}

		order.Status = types.StatusFilled
		order.FilledQuantity = result.Quantity
		order.FilledPrice = result.Price
		order.Fee = result.Fee

		logger.Info().
			Str("order_id", order.OrderID).
			Float64("price", result.Price).
			Float64("quantity", result.Quantity).
			Float64("fee", result.Fee).
			Msg("order filled")

		if err := p.store.LogEvent(types.LevelInfo, fmt.Sprintf("order filled: %s %s @ %v", snap.Pair, order.Side, result.Price), map[string]interface{}{
			"order_id": order.OrderID,
			"pair":     snap.Pair,
			"side":     order.Side,
			"price":    result.Price,
			"quantity": result.Quantity,
			"fee":      result.Fee,
		}); err != nil {
			return err
		}

		// A clamp means the risk gate let through more than the balances
		// could settle; surface it rather than hide it.
		for _, component := range clamped {
			if err := p.store.LogEvent(types.LevelWarn, fmt.Sprintf("negative %s balance clamped to zero after fill", component), map[string]interface{}{
				"order_id":  order.OrderID,
				"component": component,
			}); err != nil {
				return err
			}
		}
	}

	return nil
}
