package database

import (
	"fmt"

	"github.com/templeobijnr/payjaro-backend/internal/database/migrations"
	"github.com/templeobijnr/payjaro-backend/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "payjaro.db"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate schemas
	err = db.AutoMigrate(
		&types.EntrepreneurProfile{},
		&types.Product{},
		&types.ProductVariation{},
		&types.Order{},
		&types.OrderItem{},
		&types.OrderStatusHistory{},
		&types.Earning{},
		&types.Wallet{},
		&types.WithdrawalRequest{},
		&types.Transaction{},
	)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := migrations.AddLedgerIndexes(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
