package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ksred/bitkub-trader/internal/types"
)

// Setting keys read by the engine and written by the control API.
const (
	KeyStrategyBTC = "strategy_btc"
	KeyStrategyETH = "strategy_eth"
	KeyRiskLimits  = "risk_limits"
	KeyTradingMode = "trading_mode"
	KeyFeeRate     = "fee_rate"
	KeySlippage    = "slippage"
)

const defaultStartingTHB = 20000

func defaultStrategySettings(pair types.Pair) types.StrategySettings {
	if pair == types.PairETHTHB {
		return types.StrategySettings{Enabled: true, BuyTrigger: 30000, SellTrigger: 35000, OrderSizeTHB: 3000}
	}
	return types.StrategySettings{Enabled: true, BuyTrigger: 1200000, SellTrigger: 1300000, OrderSizeTHB: 5000}
}

func defaultRiskLimits() types.RiskLimits {
	return types.RiskLimits{
		MaxTHBPerTrade:        10000,
		MaxExposureTHBPerPair: 50000,
		MaxOpenOrders:         5,
		MaxDailyLossTHB:       -20000,
	}
}

// SettingKeyForPair maps a pair to its strategy settings key.
func SettingKeyForPair(pair types.Pair) string {
	if pair == types.PairETHTHB {
		return KeyStrategyETH
	}
	return KeyStrategyBTC
}

// GetSetting unmarshals the JSON value for key into out. Returns
// gorm.ErrRecordNotFound when the key is absent.
func (d *Database) GetSetting(key string, out interface{}) error {
	var row Setting
	if err := d.db.Where("key = ?", key).First(&row).Error; err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(row.Value), out); err != nil {
		return fmt.Errorf("decoding setting %s: %w", key, err)
	}
	return nil
}

// SetSetting upserts the JSON value for key.
func (d *Database) SetSetting(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding setting %s: %w", key, err)
	}

	result := d.db.Model(&Setting{}).
		Where("key = ?", key).
		Updates(map[string]interface{}{"value": string(raw), "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return d.db.Create(&Setting{Key: key, Value: string(raw)}).Error
	}
	return nil
}

// StrategySettings returns the trigger configuration for a pair, falling back
// to the defaults when the row is missing.
func (d *Database) StrategySettings(pair types.Pair) (types.StrategySettings, error) {
	var settings types.StrategySettings
	err := d.GetSetting(SettingKeyForPair(pair), &settings)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return defaultStrategySettings(pair), nil
	}
	if err != nil {
		return types.StrategySettings{}, err
	}
	return settings, nil
}

// RiskLimits returns the account-wide limits, falling back to defaults.
func (d *Database) RiskLimits() (types.RiskLimits, error) {
	var limits types.RiskLimits
	err := d.GetSetting(KeyRiskLimits, &limits)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return defaultRiskLimits(), nil
	}
	if err != nil {
		return types.RiskLimits{}, err
	}
	return limits, nil
}

// TradingMode returns the configured mode, defaulting to PAPER.
func (d *Database) TradingMode() (types.TradingMode, error) {
	var mode types.TradingMode
	err := d.GetSetting(KeyTradingMode, &mode)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.ModePaper, nil
	}
	if err != nil {
		return "", err
	}
	return mode, nil
}

// FeeRate returns the simulated taker fee as a fraction.
func (d *Database) FeeRate() (float64, error) {
	return d.floatSetting(KeyFeeRate, 0.0025)
}

// Slippage returns the simulated slippage as a fraction.
func (d *Database) Slippage() (float64, error) {
	return d.floatSetting(KeySlippage, 0)
}

func (d *Database) floatSetting(key string, fallback float64) (float64, error) {
	var v float64
	err := d.GetSetting(key, &v)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fallback, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

// EnsureDefaults seeds the settings rows, the bot state singleton and the
// paper balance book so a fresh database is immediately runnable. Existing
// rows are left untouched.
func (d *Database) EnsureDefaults() error {
	defaults := map[string]interface{}{
		KeyStrategyBTC: defaultStrategySettings(types.PairBTCTHB),
		KeyStrategyETH: defaultStrategySettings(types.PairETHTHB),
		KeyRiskLimits:  defaultRiskLimits(),
		KeyTradingMode: types.ModePaper,
		KeyFeeRate:     0.0025,
		KeySlippage:    0.0,
	}
	for key, value := range defaults {
		var row Setting
		err := d.db.Where("key = ?", key).First(&row).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := d.SetSetting(key, value); err != nil {
			return fmt.Errorf("seeding setting %s: %w", key, err)
		}
	}

	if _, err := d.BotState(); err != nil {
		return fmt.Errorf("seeding bot state: %w", err)
	}
	if _, err := d.Balances(types.ModePaper); err != nil {
		return fmt.Errorf("seeding balances: %w", err)
	}
	return nil
}
