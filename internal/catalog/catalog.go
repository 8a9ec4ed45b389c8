// Package catalog owns stock reservation for order lines. Reservation is
// all-or-nothing: either every line fits and all stock rows are
// decremented, or nothing moves and the caller gets the full list of
// violating lines.
package catalog

import (
	"errors"

	"github.com/templeobijnr/payjaro-backend/internal/types"
	"gorm.io/gorm"
)

// Line identifies one stock row and the quantity to reserve or release.
// A nil VariationID targets the product's own stock.
type Line struct {
	ProductID   uint
	VariationID *uint
	Quantity    int
}

// Reserve checks every line and decrements all stock rows only if each
// has sufficient quantity. Runs on the caller's transaction so the
// reservation commits or rolls back with the order itself.
//
// Decrements are guarded (stock_quantity >= requested in the UPDATE
// predicate); a guard miss after the check passed means another writer
// got in between, surfaced as ErrConcurrencyConflict so the whole
// transaction rolls back and the caller can retry.
func Reserve(tx *gorm.DB, lines []Line) error {
	var violations []types.StockViolation

	for _, line := range lines {
		available, err := availableStock(tx, line)
		if err != nil {
			return err
		}
		if available < line.Quantity {
			violations = append(violations, types.StockViolation{
				ProductID:   line.ProductID,
				VariationID: line.VariationID,
				Requested:   line.Quantity,
				Available:   available,
			})
		}
	}

	if len(violations) > 0 {
		return &types.InsufficientStockError{Violations: violations}
	}

	for _, line := range lines {
		result := decrementQuery(tx, line)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return types.ErrConcurrencyConflict
		}
	}

	return nil
}

// Release restores exactly the quantities originally reserved. The
// restore is additive, regardless of the current stock level.
func Release(tx *gorm.DB, lines []Line) error {
	for _, line := range lines {
		var result *gorm.DB
		if line.VariationID != nil {
			result = tx.Model(&types.ProductVariation{}).
				Where("id = ?", *line.VariationID).
				UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", line.Quantity))
		} else {
			result = tx.Model(&types.Product{}).
				Where("id = ?", line.ProductID).
				UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", line.Quantity))
		}
		if result.Error != nil {
			return result.Error
		}
	}
	return nil
}

func availableStock(tx *gorm.DB, line Line) (int, error) {
	if line.VariationID != nil {
		var variation types.ProductVariation
		if err := tx.Where("id = ?", *line.VariationID).First(&variation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, types.NewValidationError("variation %d not found", *line.VariationID)
			}
			return 0, err
		}
		return variation.StockQuantity, nil
	}

	var product types.Product
	if err := tx.Where("id = ?", line.ProductID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, types.NewValidationError("product %d not found", line.ProductID)
		}
		return 0, err
	}
	return product.StockQuantity, nil
}

func decrementQuery(tx *gorm.DB, line Line) *gorm.DB {
	if line.VariationID != nil {
		return tx.Model(&types.ProductVariation{}).
			Where("id = ? AND stock_quantity >= ?", *line.VariationID, line.Quantity).
			UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", line.Quantity))
	}
	return tx.Model(&types.Product{}).
		Where("id = ? AND stock_quantity >= ?", line.ProductID, line.Quantity).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", line.Quantity))
}

// Database provides read access to catalog rows at order-creation time.
// Base prices are snapshotted onto order items from these reads and never
// re-read afterwards.
type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) GetProduct(productID uint) (*types.Product, error) {
	var product types.Product
	if err := d.db.Where("id = ?", productID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewValidationError("product %d not found", productID)
		}
		return nil, err
	}
	return &product, nil
}

func (d *Database) GetVariation(variationID uint) (*types.ProductVariation, error) {
	var variation types.ProductVariation
	if err := d.db.Where("id = ?", variationID).First(&variation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewValidationError("variation %d not found", variationID)
		}
		return nil, err
	}
	return &variation, nil
}
