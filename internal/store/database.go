// Package store owns all persistent state: settings, balances, orders,
// fills, equity history, bot events and the bot control row. The engine
// re-reads everything it needs at the top of each cycle and never caches
// entities across cycles, so a process restart loses nothing.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ksred/bitkub-trader/internal/types"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// Balances returns the balance book for a mode, creating the default book on
// first use.
func (d *Database) Balances(mode types.TradingMode) (types.Balances, error) {
	var row Balance
	err := d.db.Where("mode = ?", mode).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = Balance{Mode: mode, THB: defaultStartingTHB}
		if err := d.db.Create(&row).Error; err != nil {
			return types.Balances{}, fmt.Errorf("seeding balances for mode %s: %w", mode, err)
		}
	} else if err != nil {
		return types.Balances{}, err
	}
	return types.Balances{THB: row.THB, BTC: row.BTC, ETH: row.ETH}, nil
}

// UpdateBalances overwrites the balance book for a mode.
func (d *Database) UpdateBalances(mode types.TradingMode, b types.Balances) error {
	result := d.db.Model(&Balance{}).
		Where("mode = ?", mode).
		Updates(map[string]interface{}{
			"thb":        b.THB,
			"btc":        b.BTC,
			"eth":        b.ETH,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no balance row for mode %s", mode)
	}
	return nil
}

// CreateOrder persists a new order. The order ID and OPEN status are assigned
// here so callers only describe the trade.
func (d *Database) CreateOrder(order *types.Order) error {
	if order.OrderID == "" {
		order.OrderID = uuid.New().String()
	}
	order.Status = types.StatusOpen
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	return d.db.Create(order).Error
}

// OpenOrders returns every OPEN or PARTIAL order for a mode, oldest first.
func (d *Database) OpenOrders(mode types.TradingMode) ([]types.Order, error) {
	var orders []types.Order
	err := d.db.
		Where("mode = ? AND status IN ?", mode, []types.OrderStatus{types.StatusOpen, types.StatusPartial}).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

// RecentOrders returns the newest orders up to limit.
func (d *Database) RecentOrders(limit int) ([]types.Order, error) {
	var orders []types.Order
	err := d.db.Order("created_at DESC").Limit(limit).Find(&orders).Error
	return orders, err
}

// MarkOrderFilled moves an order to FILLED and records its execution details.
// Orders are immutable once filled apart from these bookkeeping fields.
func (d *Database) MarkOrderFilled(orderID string, quantity, price, fee float64) error {
	result := d.db.Model(&types.Order{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{
			"status":          types.StatusFilled,
			"filled_quantity": quantity,
			"filled_price":    price,
			"fee":             fee,
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("order %s not found", orderID)
	}
	return nil
}

// RecordFill appends a fill row for an order.
func (d *Database) RecordFill(orderID string, quantity, price, fee float64) (*Fill, error) {
	fill := &Fill{
		FillID:    uuid.New().String(),
		OrderID:   orderID,
		Price:     price,
		Quantity:  quantity,
		Fee:       fee,
		CreatedAt: time.Now(),
	}
	if err := d.db.Create(fill).Error; err != nil {
		return nil, err
	}
	return fill, nil
}

// RecentFills returns the newest fills up to limit.
func (d *Database) RecentFills(limit int) ([]Fill, error) {
	var fills []Fill
	err := d.db.Order("created_at DESC").Limit(limit).Find(&fills).Error
	return fills, err
}

// RecordEquitySnapshot appends one point to the equity time series.
func (d *Database) RecordEquitySnapshot(mode types.TradingMode, totalValueTHB float64, b types.Balances, btcPrice, ethPrice float64) error {
	return d.db.Create(&EquitySnapshot{
		Mode:          mode,
		Timestamp:     time.Now(),
		TotalValueTHB: totalValueTHB,
		THB:           b.THB,
		BTC:           b.BTC,
		ETH:           b.ETH,
		BTCPriceTHB:   btcPrice,
		ETHPriceTHB:   ethPrice,
	}).Error
}

// EquityHistory returns the newest snapshots up to limit.
func (d *Database) EquityHistory(mode types.TradingMode, limit int) ([]EquitySnapshot, error) {
	var snaps []EquitySnapshot
	err := d.db.Where("mode = ?", mode).Order("timestamp DESC").Limit(limit).Find(&snaps).Error
	return snaps, err
}

// LatestEquity returns the most recent snapshot, or nil when none exists.
func (d *Database) LatestEquity(mode types.TradingMode) (*EquitySnapshot, error) {
	var snap EquitySnapshot
	err := d.db.Where("mode = ?", mode).Order("timestamp DESC").First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// DailyPnL derives the day's profit as the difference between the last and
// first equity snapshot within the calendar day containing at. Fewer than two
// snapshots means no measurable PnL yet.
func (d *Database) DailyPnL(mode types.TradingMode, at time.Time) (float64, error) {
	dayStart := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	var snaps []EquitySnapshot
	err := d.db.
		Where("mode = ? AND timestamp >= ? AND timestamp < ?", mode, dayStart, dayEnd).
		Order("timestamp ASC").
		Find(&snaps).Error
	if err != nil {
		return 0, err
	}
	if len(snaps) < 2 {
		return 0, nil
	}
	return snaps[len(snaps)-1].TotalValueTHB - snaps[0].TotalValueTHB, nil
}

// LogEvent appends one row to the operator audit log. Meta must be
// JSON-marshalable; a marshal failure drops the metadata, not the event.
func (d *Database) LogEvent(level types.EventLevel, message string, meta map[string]interface{}) error {
	event := &BotEvent{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
	}
	if meta != nil {
		if raw, err := json.Marshal(meta); err == nil {
			event.Meta = raw
		}
	}
	return d.db.Create(event).Error
}

// RecentEvents returns the newest events up to limit, optionally filtered by
// level.
func (d *Database) RecentEvents(limit int, level types.EventLevel) ([]BotEvent, error) {
	query := d.db.Order("timestamp DESC").Limit(limit)
	if level != "" {
		query = query.Where("level = ?", level)
	}
	var events []BotEvent
	err := query.Find(&events).Error
	return events, err
}

// BotState returns the singleton control row, creating it on first use.
func (d *Database) BotState() (*BotState, error) {
	var state BotState
	err := d.db.First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		state = BotState{}
		if err := d.db.Create(&state).Error; err != nil {
			return nil, err
		}
		return &state, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// SetRunning flags whether a worker process is up.
func (d *Database) SetRunning(running bool) error {
	return d.updateBotState(map[string]interface{}{"is_running": running})
}

// SetPaused suspends or resumes cycle evaluation.
func (d *Database) SetPaused(paused bool) error {
	return d.updateBotState(map[string]interface{}{"is_paused": paused})
}

// SetKillSwitch blocks all new order placement until cleared.
func (d *Database) SetKillSwitch(enabled bool) error {
	return d.updateBotState(map[string]interface{}{"kill_switch": enabled})
}

// UpdatePulse writes the heartbeat external monitors watch for liveness.
func (d *Database) UpdatePulse() error {
	now := time.Now()
	return d.updateBotState(map[string]interface{}{"last_pulse_at": &now})
}

func (d *Database) updateBotState(fields map[string]interface{}) error {
	state, err := d.BotState()
	if err != nil {
		return err
	}
	fields["updated_at"] = time.Now()
	return d.db.Model(&BotState{}).Where("id = ?", state.ID).Updates(fields).Error
}
