package payments

import (
	"errors"

	"github.com/templeobijnr/payjaro-backend/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) DB() *gorm.DB {
	return d.db
}

func (d *Database) CreateTransaction(transaction *types.Transaction) error {
	return d.db.Create(transaction).Error
}

func (d *Database) GetTransaction(transactionID string) (*types.Transaction, error) {
	var transaction types.Transaction
	if err := d.db.Where("transaction_id = ?", transactionID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transaction, nil
}

func (d *Database) ListTransactionsByOrder(orderRef string) ([]types.Transaction, error) {
	var transactions []types.Transaction
	if err := d.db.Where("order_ref = ?", orderRef).
		Order("created_at DESC").Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

func (d *Database) GetOrder(orderRef string) (*types.Order, error) {
	var order types.Order
	if err := d.db.Where("order_id = ?", orderRef).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}
