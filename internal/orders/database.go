package orders

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

func (d *Database) GetOrder(orderRef string) (*types.Order, error) {
	var order types.Order
	if err := d.db.Preload("Items").Where("order_id = ?", orderRef).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (d *Database) GetOrderByRefAndCustomer(orderRef string, customerID uint) (*types.Order, error) {
	var order types.Order
	if err := d.db.Preload("Items").
		Where("order_id = ? AND customer_id = ?", orderRef, customerID).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (d *Database) ListByCustomer(customerID uint) ([]types.Order, error) {
	var orders []types.Order
	if err := d.db.Where("customer_id = ?", customerID).
		Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (d *Database) ListByEntrepreneur(entrepreneurID uint) ([]types.Order, error) {
	var orders []types.Order
	if err := d.db.Where("entrepreneur_id = ?", entrepreneurID).
		Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (d *Database) ListBySupplier(supplierID uint) ([]types.Order, error) {
	var orders []types.Order
	if err := d.db.Where("supplier_id = ?", supplierID).
		Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// GetHistory returns the append-only transition log, oldest first, so
// the full lifecycle reads top to bottom.
func (d *Database) GetHistory(orderRef string) ([]types.OrderStatusHistory, error) {
	var history []types.OrderStatusHistory
	if err := d.db.Where("order_ref = ?", orderRef).
		Order("created_at ASC").Find(&history).Error; err != nil {
		return nil, err
	}
	return history, nil
}

func (d *Database) GetEntrepreneurBySlug(customURL string) (*types.EntrepreneurProfile, error) {
	var profile types.EntrepreneurProfile
	if err := d.db.Where("custom_url = ?", customURL).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func appendHistory(tx *gorm.DB, orderRef, status, notes, actor string) error {
	record := &types.OrderStatusHistory{
		OrderRef:  orderRef,
		Status:    status,
		Notes:     notes,
		CreatedBy: actor,
	}
	return tx.Create(record).Error
}
