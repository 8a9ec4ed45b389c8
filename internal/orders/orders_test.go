package orders

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
	require.NoError(t, db.AutoMigrate(
		&types.EntrepreneurProfile{},
		&types.Product{},
		&types.ProductVariation{},
		&types.Order{},
		&types.OrderItem{},
		&types.OrderStatusHistory{},
		&types.Earning{},
	))
	return db
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedEntrepreneur(t *testing.T, db *gorm.DB, slug string, rate decimal.Decimal) *types.EntrepreneurProfile {
	t.Helper()
	entrepreneur := &types.EntrepreneurProfile{
		UserID:         100,
		BusinessName:   "Test Store",
		CustomURL:      slug,
		CommissionRate: rate,
		IsActive:       true,
	}
	require.NoError(t, db.Create(entrepreneur).Error)
	return entrepreneur
}

func seedProduct(t *testing.T, db *gorm.DB, sku string, supplierID uint, basePrice decimal.Decimal, stock int) *types.Product {
	t.Helper()
	product := &types.Product{
		Name:          "Product " + sku,
		SKU:           sku,
		SupplierID:    supplierID,
		BasePrice:     basePrice,
		StockQuantity: stock,
		IsActive:      true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func testAddress() types.ShippingAddress {
	return types.ShippingAddress{
		FullName: "Ada Obi",
		Phone:    "+2348012345678",
		Street:   "1 Marina Road",
		City:     "Lagos",
		State:    "Lagos",
	}
}

func TestCreateOrderComputesTotalsAndSeedsLedger(t *testing.T) {
	db := newTestDB(t)
	seedEntrepreneur(t, db, "adas-store", d("2"))
	product := seedProduct(t, db, "SKU-001", 7, d("2000"), 10)

	service := NewService(db, d("500"))
	order, err := service.CreateOrder(CreateOrderInput{
		CustomerID:       1,
		EntrepreneurSlug: "adas-store",
		Items: []ItemInput{
			{ProductID: product.ID, Quantity: 2, UnitPrice: d("2500")},
		},
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)

	assert.Equal(t, types.OrderStatusPending, order.Status)
	assert.Equal(t, types.PaymentStatusPending, order.PaymentStatus)
	assert.True(t, order.Subtotal.Equal(d("4000")), "subtotal %s", order.Subtotal)
	assert.True(t, order.MarkupAmount.Equal(d("1000")), "markup %s", order.MarkupAmount)
	assert.True(t, order.CommissionAmount.Equal(d("100")), "commission %s", order.CommissionAmount)
	assert.True(t, order.TotalAmount.Equal(d("5500")), "total %s", order.TotalAmount)
	assert.Equal(t, uint(7), order.SupplierID)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].BasePrice.Equal(d("2000")))

	// Stock reserved
	var reloaded types.Product
	require.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.Equal(t, 8, reloaded.StockQuantity)

	// One ledger entry per earning type, both pending
	var entries []types.Earning
	require.NoError(t, db.Where("order_ref = ?", order.OrderID).Order("earning_type").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Equal(t, types.EarningTypeCommission, entries[0].EarningType)
	assert.True(t, entries[0].Amount.Equal(d("100")))
	assert.Equal(t, types.EarningTypeMarkup, entries[1].EarningType)
	assert.True(t, entries[1].Amount.Equal(d("1000")))
	for _, entry := range entries {
		assert.Equal(t, types.EarningStatusPending, entry.Status)
	}

	// Initial history record
	history, err := service.GetDB().GetHistory(order.OrderID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, types.OrderStatusPending, history[0].Status)
}

func TestCreateOrderInsufficientStockWritesNothing(t *testing.T) {
	db := newTestDB(t)
	seedEntrepreneur(t, db, "adas-store", d("2"))
	product := seedProduct(t, db, "SKU-001", 7, d("2000"), 3)

	service := NewService(db, d("500"))
	_, err := service.CreateOrder(CreateOrderInput{
		CustomerID:       1,
		EntrepreneurSlug: "adas-store",
		Items: []ItemInput{
			{ProductID: product.ID, Quantity: 5, UnitPrice: d("2500")},
		},
		ShippingAddress: testAddress(),
	})

	var stockErr *types.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Violations, 1)
	assert.Equal(t, 5, stockErr.Violations[0].Requested)
	assert.Equal(t, 3, stockErr.Violations[0].Available)

	// Nothing persisted, stock untouched
	var reloaded types.Product
	require.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.Equal(t, 3, reloaded.StockQuantity)

	var orderCount int64
	require.NoError(t, db.Model(&types.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)

	var earningCount int64
	require.NoError(t, db.Model(&types.Earning{}).Count(&earningCount).Error)
	assert.Zero(t, earningCount)
}

func TestCreateOrderRejectsMixedSuppliers(t *testing.T) {
	db := newTestDB(t)
	seedEntrepreneur(t, db, "adas-store", d("2"))
	first := seedProduct(t, db, "SKU-001", 7, d("2000"), 10)
	second := seedProduct(t, db, "SKU-002", 8, d("1000"), 10)

	service := NewService(db, d("500"))
	_, err := service.CreateOrder(CreateOrderInput{
		CustomerID:       1,
		EntrepreneurSlug: "adas-store",
		Items: []ItemInput{
			{ProductID: first.ID, Quantity: 1, UnitPrice: d("2500")},
			{ProductID: second.ID, Quantity: 1, UnitPrice: d("1200")},
		},
		ShippingAddress: testAddress(),
	})

	var validationErr *types.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, err.Error(), "single supplier")
}

func TestCreateOrderRejectsIncompleteAddress(t *testing.T) {
	db := newTestDB(t)
	seedEntrepreneur(t, db, "adas-store", d("2"))

	service := NewService(db, d("500"))
	addr := testAddress()
	addr.Phone = ""
	addr.City = ""
	_, err := service.CreateOrder(CreateOrderInput{
		CustomerID:       1,
		EntrepreneurSlug: "adas-store",
		Items:            []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: d("100")}},
		ShippingAddress:  addr,
	})

	var validationErr *types.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, err.Error(), "phone")
	assert.Contains(t, err.Error(), "city")
}

func TestCreateOrderRejectsInactiveEntrepreneur(t *testing.T) {
	db := newTestDB(t)
	entrepreneur := seedEntrepreneur(t, db, "adas-store", d("2"))
	require.NoError(t, db.Model(entrepreneur).Update("is_active", false).Error)

	service := NewService(db, d("500"))
	_, err := service.CreateOrder(CreateOrderInput{
		CustomerID:       1,
		EntrepreneurSlug: "adas-store",
		Items:            []ItemInput{{ProductID: 1, Quantity: 1, UnitPrice: d("100")}},
		ShippingAddress:  testAddress(),
	})

	var validationErr *types.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestCreateOrderUsesVariationModifierAndStock(t *testing.T) {
	db := newTestDB(t)
	seedEntrepreneur(t, db, "adas-store", d("0"))
	product := seedProduct(t, db, "SKU-001", 7, d("2000"), 10)
	variation := &types.ProductVariation{
		ProductID:      product.ID,
		VariationType:  "size",
		VariationValue: "XL",
		PriceModifier:  d("200"),
		StockQuantity:  2,
	}
	require.NoError(t, db.Create(variation).Error)

	service := NewService(db, d("0"))
	order, err := service.CreateOrder(CreateOrderInput{
		CustomerID:       1,
		EntrepreneurSlug: "adas-store",
		Items: []ItemInput{
			{ProductID: product.ID, VariationID: &variation.ID, Quantity: 2, UnitPrice: d("2500")},
		},
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)

	// Effective base 2200, markup 300 per unit
	assert.True(t, order.Subtotal.Equal(d("4400")), "subtotal %s", order.Subtotal)
	assert.True(t, order.MarkupAmount.Equal(d("600")), "markup %s", order.MarkupAmount)

	// Variation stock decremented, not product stock
	var reloadedVariation types.ProductVariation
	require.NoError(t, db.First(&reloadedVariation, variation.ID).Error)
	assert.Equal(t, 0, reloadedVariation.StockQuantity)
	var reloadedProduct types.Product
	require.NoError(t, db.First(&reloadedProduct, product.ID).Error)
	assert.Equal(t, 10, reloadedProduct.StockQuantity)
}

func createTestOrder(t *testing.T, db *gorm.DB, service *Service) (*types.Order, *types.Product) {
	t.Helper()
	seedEntrepreneur(t, db, "adas-store", d("2"))
	product := seedProduct(t, db, "SKU-001", 7, d("2000"), 10)
	order, err := service.CreateOrder(CreateOrderInput{
		CustomerID:       1,
		EntrepreneurSlug: "adas-store",
		Items: []ItemInput{
			{ProductID: product.ID, Quantity: 2, UnitPrice: d("2500")},
		},
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)
	return order, product
}

func TestCancelPendingRestoresStockAndVoidsEarnings(t *testing.T) {
	db := newTestDB(t)
	service := NewService(db, d("500"))
	order, product := createTestOrder(t, db, service)

	updated, err := service.UpdateStatus(order.OrderID, types.OrderStatusCancelled, "internal", "customer request")
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusCancelled, updated.Status)

	var reloaded types.Product
	require.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.Equal(t, 10, reloaded.StockQuantity)

	var entries []types.Earning
	require.NoError(t, db.Where("order_ref = ?", order.OrderID).Find(&entries).Error)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, types.EarningStatusCancelled, entry.Status)
	}

	history, err := service.GetDB().GetHistory(order.OrderID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, types.OrderStatusCancelled, history[1].Status)
}

func TestUpdateStatusRejectsPaidTarget(t *testing.T) {
	db := newTestDB(t)
	service := NewService(db, d("500"))
	order, _ := createTestOrder(t, db, service)

	_, err := service.UpdateStatus(order.OrderID, types.OrderStatusPaid, "internal", "")
	var validationErr *types.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	db := newTestDB(t)
	service := NewService(db, d("500"))
	order, _ := createTestOrder(t, db, service)

	_, err := service.UpdateStatus(order.OrderID, types.OrderStatusShipped, "internal", "")
	var transitionErr *types.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, types.OrderStatusPending, transitionErr.From)
	assert.Equal(t, types.OrderStatusShipped, transitionErr.To)

	// No history record for the rejected transition
	history, err := service.GetDB().GetHistory(order.OrderID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestMarkPaidAdvancesOrderOnce(t *testing.T) {
	db := newTestDB(t)
	service := NewService(db, d("500"))
	order, _ := createTestOrder(t, db, service)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		paid, err := MarkPaid(tx, order.OrderID, "paystack")
		if err != nil {
			return err
		}
		assert.Equal(t, types.OrderStatusPaid, paid.Status)
		assert.Equal(t, types.PaymentStatusPaid, paid.PaymentStatus)
		assert.Equal(t, "paystack", paid.PaymentMethod)
		return nil
	}))

	// A second confirmation cannot apply twice
	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := MarkPaid(tx, order.OrderID, "paystack")
		return err
	})
	var transitionErr *types.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
}

func TestPaidOrderFollowsFulfillmentPath(t *testing.T) {
	db := newTestDB(t)
	service := NewService(db, d("500"))
	order, _ := createTestOrder(t, db, service)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, err := MarkPaid(tx, order.OrderID, "paystack")
		return err
	}))

	for _, status := range []string{
		types.OrderStatusProcessing,
		types.OrderStatusShipped,
		types.OrderStatusDelivered,
		types.OrderStatusReturned,
	} {
		updated, err := service.UpdateStatus(order.OrderID, status, "internal", "")
		require.NoError(t, err, "transition to %s", status)
		assert.Equal(t, status, updated.Status)
	}

	history, err := service.GetDB().GetHistory(order.OrderID)
	require.NoError(t, err)
	assert.Len(t, history, 6) // pending, paid, processing, shipped, delivered, returned
}

func TestStateMachineTable(t *testing.T) {
	tests := []struct {
		from    string
		to      string
		allowed bool
	}{
		{types.OrderStatusPending, types.OrderStatusPaid, true},
		{types.OrderStatusPending, types.OrderStatusCancelled, true},
		{types.OrderStatusPending, types.OrderStatusShipped, false},
		{types.OrderStatusPaid, types.OrderStatusProcessing, true},
		{types.OrderStatusPaid, types.OrderStatusCancelled, true},
		{types.OrderStatusPaid, types.OrderStatusPending, false},
		{types.OrderStatusProcessing, types.OrderStatusShipped, true},
		{types.OrderStatusShipped, types.OrderStatusDelivered, true},
		{types.OrderStatusDelivered, types.OrderStatusReturned, true},
		{types.OrderStatusDelivered, types.OrderStatusShipped, false},
		{types.OrderStatusCancelled, types.OrderStatusPending, false},
		{types.OrderStatusReturned, types.OrderStatusDelivered, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"_to_"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}
