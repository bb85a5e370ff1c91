// Package api exposes the control surface: status, settings, history queries
// and the pause/kill switches. Every effect is mediated through the store;
// the API never calls the engine, which observes flag and settings changes at
// the top of its next cycle.
package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ksred/bitkub-trader/internal/store"
	"github.com/ksred/bitkub-trader/internal/types"
	"github.com/ksred/bitkub-trader/pkg/response"
)

const defaultQueryLimit = 100

// GinHandlers contains the HTTP handlers for the control API.
type GinHandlers struct {
	db *store.Database
}

func NewGinHandlers(db *store.Database) *GinHandlers {
	return &GinHandlers{db: db}
}

// StatusResponse aggregates what the dashboard needs in one call.
type StatusResponse struct {
	State    *store.BotState       `json:"state"`
	Mode     types.TradingMode     `json:"mode"`
	Balances types.Balances        `json:"balances"`
	Equity   *store.EquitySnapshot `json:"equity,omitempty"`
	DailyPnL float64               `json:"daily_pnl"`
}

func (h *GinHandlers) StatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		state, err := h.db.BotState()
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		mode, err := h.db.TradingMode()
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		balances, err := h.db.Balances(mode)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		equity, err := h.db.LatestEquity(mode)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		pnl, err := h.db.DailyPnL(mode, time.Now())
		if err != nil {
			response.Handle(c, nil, err)
			return
		}

		response.Success(c, StatusResponse{
			State:    state,
			Mode:     mode,
			Balances: balances,
			Equity:   equity,
			DailyPnL: pnl,
		})
	}
}

// SettingsResponse is the full configuration view.
type SettingsResponse struct {
	BTC         types.StrategySettings `json:"btc"`
	ETH         types.StrategySettings `json:"eth"`
	RiskLimits  types.RiskLimits       `json:"risk_limits"`
	TradingMode types.TradingMode      `json:"trading_mode"`
	FeeRate     float64                `json:"fee_rate"`
	Slippage    float64                `json:"slippage"`
}

func (h *GinHandlers) GetSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		btc, err := h.db.StrategySettings(types.PairBTCTHB)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		eth, err := h.db.StrategySettings(types.PairETHTHB)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		limits, err := h.db.RiskLimits()
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		mode, err := h.db.TradingMode()
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		feeRate, err := h.db.FeeRate()
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		slippage, err := h.db.Slippage()
		if err != nil {
			response.Handle(c, nil, err)
			return
		}

		response.Success(c, SettingsResponse{
			BTC:         btc,
			ETH:         eth,
			RiskLimits:  limits,
			TradingMode: mode,
			FeeRate:     feeRate,
			Slippage:    slippage,
		})
	}
}

// UpdateStrategyHandler updates the trigger settings for one pair, addressed
// by its base asset (btc or eth).
func (h *GinHandlers) UpdateStrategyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		pair, ok := pairFromAsset(c.Param("asset"))
		if !ok {
			response.BadRequest(c, "unknown asset")
			return
		}

		var settings types.StrategySettings
		if err := c.ShouldBindJSON(&settings); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		if settings.OrderSizeTHB < 0 || settings.BuyTrigger < 0 || settings.SellTrigger < 0 {
			response.BadRequest(c, "settings values must not be negative")
			return
		}

		if err := h.db.SetSetting(store.SettingKeyForPair(pair), settings); err != nil {
			response.Handle(c, nil, err)
			return
		}

		log.Info().Str("pair", string(pair)).Interface("settings", settings).Msg("strategy settings updated")
		response.Success(c, settings)
	}
}

// UpdateRiskLimitsHandler replaces the account-wide risk limits.
func (h *GinHandlers) UpdateRiskLimitsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var limits types.RiskLimits
		if err := c.ShouldBindJSON(&limits); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		if limits.MaxDailyLossTHB > 0 {
			response.BadRequest(c, "max daily loss must be zero or negative")
			return
		}

		if err := h.db.SetSetting(store.KeyRiskLimits, limits); err != nil {
			response.Handle(c, nil, err)
			return
		}

		log.Info().Interface("limits", limits).Msg("risk limits updated")
		response.Success(c, limits)
	}
}

func (h *GinHandlers) OrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := h.db.RecentOrders(queryLimit(c))
		response.Handle(c, orders, err)
	}
}

func (h *GinHandlers) FillsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fills, err := h.db.RecentFills(queryLimit(c))
		response.Handle(c, fills, err)
	}
}

func (h *GinHandlers) EquityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		mode, err := h.db.TradingMode()
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		snaps, err := h.db.EquityHistory(mode, queryLimit(c))
		response.Handle(c, snaps, err)
	}
}

func (h *GinHandlers) EventsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		level := types.EventLevel(c.Query("level"))
		events, err := h.db.RecentEvents(queryLimit(c), level)
		response.Handle(c, events, err)
	}
}

// PauseHandler suspends cycle evaluation; the engine observes the flag on its
// next tick.
func (h *GinHandlers) PauseHandler() gin.HandlerFunc {
	return h.flagHandler("bot paused", func() error { return h.db.SetPaused(true) })
}

func (h *GinHandlers) ResumeHandler() gin.HandlerFunc {
	return h.flagHandler("bot resumed", func() error { return h.db.SetPaused(false) })
}

// KillHandler sets the kill switch, blocking all new order placement until
// explicitly cleared.
func (h *GinHandlers) KillHandler() gin.HandlerFunc {
	return h.flagHandler("kill switch enabled", func() error { return h.db.SetKillSwitch(true) })
}

func (h *GinHandlers) ClearKillHandler() gin.HandlerFunc {
	return h.flagHandler("kill switch cleared", func() error { return h.db.SetKillSwitch(false) })
}

func (h *GinHandlers) flagHandler(message string, apply func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := apply(); err != nil {
			response.Handle(c, nil, err)
			return
		}
		if err := h.db.LogEvent(types.LevelWarn, message, map[string]interface{}{
			"client_id": c.GetString("clientID"),
		}); err != nil {
			log.Error().Err(err).Msg("failed to persist control event")
		}
		response.Success(c, gin.H{"message": message})
	}
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultQueryLimit)))
	if err != nil || limit <= 0 || limit > 1000 {
		return defaultQueryLimit
	}
	return limit
}

func pairFromAsset(asset string) (types.Pair, bool) {
	switch asset {
	case "btc":
		return types.PairBTCTHB, true
	case "eth":
		return types.PairETHTHB, true
	}
	return "", false
}
