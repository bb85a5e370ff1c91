package types

import (
	"time"

	"gorm.io/gorm"
)

// TradingMode selects which balance book the engine trades against.
// LIVE is reserved: order routing to a real exchange is not implemented.
type TradingMode string

const (
	ModePaper TradingMode = "PAPER"
	ModeLive  TradingMode = "LIVE"
)

// Pair is a tradable symbol on the exchange.
type Pair string

const (
	PairBTCTHB Pair = "BTC/THB"
	PairETHTHB Pair = "ETH/THB"
)

// AllPairs returns every pair the engine evaluates, in processing order.
func AllPairs() []Pair {
	return []Pair{PairBTCTHB, PairETHTHB}
}

// Asset returns the base asset of the pair, e.g. "BTC" for BTC/THB.
func (p Pair) Asset() string {
	switch p {
	case PairBTCTHB:
		return "BTC"
	case PairETHTHB:
		return "ETH"
	}
	return string(p)
}

type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

type OrderStatus string

const (
	StatusOpen      OrderStatus = "OPEN"
	StatusPartial   OrderStatus = "PARTIAL"
	StatusFilled    OrderStatus = "FILLED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// Active reports whether an order in this status still rests on the book.
func (s OrderStatus) Active() bool {
	return s == StatusOpen || s == StatusPartial
}

type EventLevel string

const (
	LevelDebug EventLevel = "DEBUG"
	LevelInfo  EventLevel = "INFO"
	LevelWarn  EventLevel = "WARN"
	LevelError EventLevel = "ERROR"
)

// MarketSnapshot is a point-in-time quote for a pair. It is produced fresh
// each cycle and never persisted; only values derived from it are stored.
type MarketSnapshot struct {
	Pair      Pair      `json:"pair"`
	LastPrice float64   `json:"last_price"`
	BestBid   float64   `json:"best_bid"`
	BestAsk   float64   `json:"best_ask"`
	High24h   float64   `json:"high_24h,omitempty"`
	Low24h    float64   `json:"low_24h,omitempty"`
	Volume24h float64   `json:"volume_24h,omitempty"`
	Change24h float64   `json:"change_24h,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type SignalAction string

const (
	ActionBuy  SignalAction = "BUY"
	ActionSell SignalAction = "SELL"
	ActionHold SignalAction = "HOLD"
)

// Signal is a trading intent emitted by the strategy for one pair.
type Signal struct {
	Pair   Pair         `json:"pair"`
	Action SignalAction `json:"action"`
	Price  float64      `json:"price"`
	Reason string       `json:"reason"`
}

// StrategySettings holds the per-pair trigger configuration. The control API
// mutates these; the engine only reads them.
type StrategySettings struct {
	Enabled      bool    `json:"enabled"`
	BuyTrigger   float64 `json:"buy_trigger"`
	SellTrigger  float64 `json:"sell_trigger"`
	OrderSizeTHB float64 `json:"order_size_thb"`
}

// RiskLimits bound what the risk gate lets through. MaxDailyLossTHB is
// negative: trading stops once the day's PnL reaches it.
type RiskLimits struct {
	MaxTHBPerTrade        float64 `json:"max_thb_per_trade"`
	MaxExposureTHBPerPair float64 `json:"max_exposure_thb_per_pair"`
	MaxOpenOrders         int     `json:"max_open_orders"`
	MaxDailyLossTHB       float64 `json:"max_daily_loss_thb"`
}

// Balances is the in-memory view of one balance book. Components are never
// negative after settlement; a negative intermediate is clamped and flagged.
type Balances struct {
	THB float64 `json:"thb"`
	BTC float64 `json:"btc"`
	ETH float64 `json:"eth"`
}

// Asset returns the balance component for the pair's base asset.
func (b Balances) Asset(pair Pair) float64 {
	switch pair {
	case PairBTCTHB:
		return b.BTC
	case PairETHTHB:
		return b.ETH
	}
	return 0
}

// AddAsset adjusts the balance component for the pair's base asset.
func (b *Balances) AddAsset(pair Pair, delta float64) {
	switch pair {
	case PairBTCTHB:
		b.BTC += delta
	case PairETHTHB:
		b.ETH += delta
	}
}

// Order is a limit order created by the engine. It is born OPEN and moves to
// FILLED when the simulator executes it; fills are all-or-nothing here, so
// PARTIAL never occurs in practice but remains a valid resting status.
type Order struct {
	gorm.Model     `json:"-"`
	OrderID        string      `gorm:"uniqueIndex" json:"order_id"`
	Mode           TradingMode `json:"mode"`
	Pair           Pair        `gorm:"index" json:"pair"`
	Side           OrderSide   `json:"side"`
	Price          float64     `json:"price"`
	Quantity       float64     `json:"quantity"`
	Status         OrderStatus `gorm:"index" json:"status"`
	FilledQuantity float64     `json:"filled_quantity"`
	FilledPrice    float64     `json:"filled_price,omitempty"`
	Fee            float64     `json:"fee"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}
