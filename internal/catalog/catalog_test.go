package catalog

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templeobijnr/payjaro-backend/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&types.Product{}, &types.ProductVariation{}))
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, stock int) *types.Product {
	t.Helper()
	product := &types.Product{
		Name:          "Test Product",
		SKU:           fmt.Sprintf("SKU-%s-%d", t.Name(), stock),
		SupplierID:    1,
		BasePrice:     decimal.NewFromInt(1000),
		StockQuantity: stock,
		IsActive:      true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func stockOf(t *testing.T, db *gorm.DB, productID uint) int {
	t.Helper()
	var product types.Product
	require.NoError(t, db.First(&product, productID).Error)
	return product.StockQuantity
}

func TestReserveDecrementsAllLines(t *testing.T) {
	db := newTestDB(t)
	a := seedProduct(t, db, 10)
	b := seedProduct(t, db, 5)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(tx, []Line{
			{ProductID: a.ID, Quantity: 4},
			{ProductID: b.ID, Quantity: 5},
		})
	})
	require.NoError(t, err)

	assert.Equal(t, 6, stockOf(t, db, a.ID))
	assert.Equal(t, 0, stockOf(t, db, b.ID))
}

func TestReserveAllOrNothing(t *testing.T) {
	db := newTestDB(t)
	a := seedProduct(t, db, 10)
	b := seedProduct(t, db, 2)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(tx, []Line{
			{ProductID: a.ID, Quantity: 4},
			{ProductID: b.ID, Quantity: 3},
		})
	})

	var stockErr *types.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Violations, 1)
	assert.Equal(t, b.ID, stockErr.Violations[0].ProductID)
	assert.Equal(t, 3, stockErr.Violations[0].Requested)
	assert.Equal(t, 2, stockErr.Violations[0].Available)

	// No partial reservation for any line.
	assert.Equal(t, 10, stockOf(t, db, a.ID))
	assert.Equal(t, 2, stockOf(t, db, b.ID))
}

func TestReserveReportsEveryViolation(t *testing.T) {
	db := newTestDB(t)
	a := seedProduct(t, db, 1)
	b := seedProduct(t, db, 0)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(tx, []Line{
			{ProductID: a.ID, Quantity: 2},
			{ProductID: b.ID, Quantity: 1},
		})
	})

	var stockErr *types.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Len(t, stockErr.Violations, 2)
}

func TestReserveVariationStock(t *testing.T) {
	db := newTestDB(t)
	product := seedProduct(t, db, 0)
	variation := &types.ProductVariation{
		ProductID:      product.ID,
		VariationType:  "size",
		VariationValue: "XL",
		PriceModifier:  decimal.NewFromInt(200),
		StockQuantity:  3,
	}
	require.NoError(t, db.Create(variation).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(tx, []Line{{ProductID: product.ID, VariationID: &variation.ID, Quantity: 2}})
	})
	require.NoError(t, err)

	var reloaded types.ProductVariation
	require.NoError(t, db.First(&reloaded, variation.ID).Error)
	assert.Equal(t, 1, reloaded.StockQuantity)
	// Product-level stock untouched when a variation is targeted.
	assert.Equal(t, 0, stockOf(t, db, product.ID))
}

func TestReserveUnknownProduct(t *testing.T) {
	db := newTestDB(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(tx, []Line{{ProductID: 9999, Quantity: 1}})
	})

	var validationErr *types.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestReleaseRestoresExactQuantities(t *testing.T) {
	db := newTestDB(t)
	product := seedProduct(t, db, 10)

	lines := []Line{{ProductID: product.ID, Quantity: 4}}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return Reserve(tx, lines)
	}))
	require.Equal(t, 6, stockOf(t, db, product.ID))

	// Stock moved in the meantime; release is additive, not an overwrite.
	require.NoError(t, db.Model(&types.Product{}).Where("id = ?", product.ID).
		UpdateColumn("stock_quantity", 2).Error)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return Release(tx, lines)
	}))
	assert.Equal(t, 6, stockOf(t, db, product.ID))
}
