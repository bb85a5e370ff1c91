package store

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/ksred/bitkub-trader/internal/types"
)

// Setting is a keyed configuration row. Value holds JSON so the control API
// and the engine share one representation for strategy settings, risk limits
// and scalar knobs.
type Setting struct {
	gorm.Model `json:"-"`
	Key        string    `gorm:"uniqueIndex" json:"key"`
	Value      string    `json:"value"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Balance is the authoritative balance book for one trading mode. Exactly one
// row per mode is current at any time.
type Balance struct {
	gorm.Model `json:"-"`
	Mode       types.TradingMode `gorm:"uniqueIndex" json:"mode"`
	THB        float64           `json:"thb"`
	BTC        float64           `json:"btc"`
	ETH        float64           `json:"eth"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Fill is one settlement event against an order. Append-only.
type Fill struct {
	gorm.Model `json:"-"`
	FillID     string    `gorm:"uniqueIndex" json:"fill_id"`
	OrderID    string    `gorm:"index" json:"order_id"`
	Price      float64   `json:"price"`
	Quantity   float64   `json:"quantity"`
	Fee        float64   `json:"fee"`
	CreatedAt  time.Time `json:"created_at"`
}

// EquitySnapshot records the portfolio's THB value at one point in time.
// Append-only; daily PnL is the last minus the first snapshot of a day.
type EquitySnapshot struct {
	gorm.Model    `json:"-"`
	Mode          types.TradingMode `gorm:"index" json:"mode"`
	Timestamp     time.Time         `gorm:"index" json:"timestamp"`
	TotalValueTHB float64           `json:"total_value_thb"`
	THB           float64           `json:"thb"`
	BTC           float64           `json:"btc"`
	ETH           float64           `json:"eth"`
	BTCPriceTHB   float64           `json:"btc_price_thb"`
	ETHPriceTHB   float64           `json:"eth_price_thb"`
}

// BotEvent is the operator-visible audit log: decisions, denials, failures.
type BotEvent struct {
	gorm.Model `json:"-"`
	Timestamp  time.Time        `gorm:"index" json:"timestamp"`
	Level      types.EventLevel `gorm:"index" json:"level"`
	Message    string           `json:"message"`
	Meta       json.RawMessage  `gorm:"type:text" json:"meta,omitempty"`
}

// BotState is the singleton control row. The API toggles the flags; the
// engine reads them at the top of each cycle and writes the heartbeat.
type BotState struct {
	gorm.Model  `json:"-"`
	IsRunning   bool       `json:"is_running"`
	IsPaused    bool       `json:"is_paused"`
	KillSwitch  bool       `json:"kill_switch"`
	LastPulseAt *time.Time `json:"last_pulse_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// WorkerLock is a lease row backing the advisory lock. A holder owns the
// named lock until ExpiresAt; a crashed holder's lease lapses on its own, so
// no operator intervention is needed to recover the lock.
type WorkerLock struct {
	gorm.Model `json:"-"`
	Name       string    `gorm:"uniqueIndex" json:"name"`
	Owner      string    `json:"owner"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// AllModels lists every model for AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&Setting{},
		&Balance{},
		&types.Order{},
		&Fill{},
		&EquitySnapshot{},
		&BotEvent{},
		&BotState{},
		&WorkerLock{},
	}
}
