package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ksred/bitkub-trader/internal/store"
)

// NewDatabase opens the sqlite store at path, migrates the schema and seeds
// the default settings, bot state and paper balance book.
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database at %s: %w", path, err)
	}

	if err := db.AutoMigrate(store.AllModels()...); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	if err := store.NewDatabase(db).EnsureDefaults(); err != nil {
		return nil, fmt.Errorf("seeding defaults: %w", err)
	}

	return db, nil
}
