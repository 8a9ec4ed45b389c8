package payments

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templeobijnr/payjaro-backend/internal/orders"
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
		&types.Wallet{},
		&types.Transaction{},
	))
	return db
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fakeProvider stands in for a gateway; Initialize never leaves the
// process.
type fakeProvider struct {
	initErr error
}

func (f *fakeProvider) Name() string { return "testpay" }

func (f *fakeProvider) Initialize(order *types.Order, customerEmail, callbackURL string) (*InitResult, error) {
	if f.initErr != nil {
		return nil, f.initErr
	}
	return &InitResult{
		Reference:  "TST_" + order.OrderID,
		PaymentURL: "https://testpay.example/" + order.OrderID,
	}, nil
}

func (f *fakeProvider) Verify(reference string) (*VerifyResult, error) {
	return &VerifyResult{Reference: reference, Success: true}, nil
}

// newTestOrder places one order: subtotal 4000, markup 1000, commission
// 100 (2% of 5000), shipping 500, total 5500.
func newTestOrder(t *testing.T, db *gorm.DB) (*types.Order, *types.EntrepreneurProfile) {
	t.Helper()
	entrepreneur := &types.EntrepreneurProfile{
		UserID:         100,
		BusinessName:   "Test Store",
		CustomURL:      "test-store",
		CommissionRate: d("2"),
		IsActive:       true,
	}
	require.NoError(t, db.Create(entrepreneur).Error)
	product := &types.Product{
		Name:          "Widget",
		SKU:           "SKU-001",
		SupplierID:    7,
		BasePrice:     d("2000"),
		StockQuantity: 10,
		IsActive:      true,
	}
	require.NoError(t, db.Create(product).Error)

	order, err := orders.NewService(db, d("500")).CreateOrder(orders.CreateOrderInput{
		CustomerID:       1,
		EntrepreneurSlug: entrepreneur.CustomURL,
		Items: []orders.ItemInput{
			{ProductID: product.ID, Quantity: 2, UnitPrice: d("2500")},
		},
		ShippingAddress: types.ShippingAddress{
			FullName: "Ada Obi",
			Phone:    "+2348012345678",
			Street:   "1 Marina Road",
			City:     "Lagos",
			State:    "Lagos",
		},
	})
	require.NoError(t, err)
	return order, entrepreneur
}

func initiateTestPayment(t *testing.T, service *Service, orderRef string) string {
	t.Helper()
	result, err := service.InitiatePayment(orderRef, "testpay", "customer@example.com", "http://localhost/cb")
	require.NoError(t, err)
	require.NotEmpty(t, result.Reference)
	return result.Reference
}

func TestInitiatePaymentRecordsPendingTransaction(t *testing.T) {
	db := newTestDB(t)
	order, _ := newTestOrder(t, db)
	service := NewService(db, &fakeProvider{})

	result, err := service.InitiatePayment(order.OrderID, "testpay", "customer@example.com", "http://localhost/cb")
	require.NoError(t, err)
	assert.Equal(t, "TST_"+order.OrderID, result.Reference)
	assert.NotEmpty(t, result.PaymentURL)

	transaction, err := service.GetDB().GetTransaction(result.Reference)
	require.NoError(t, err)
	require.NotNil(t, transaction)
	assert.Equal(t, types.TransactionStatusPending, transaction.Status)
	assert.Equal(t, order.OrderID, transaction.OrderRef)
	assert.True(t, transaction.Amount.Equal(order.TotalAmount))
}

func TestInitiatePaymentRejectsUnknownProvider(t *testing.T) {
	db := newTestDB(t)
	order, _ := newTestOrder(t, db)
	service := NewService(db, &fakeProvider{})

	_, err := service.InitiatePayment(order.OrderID, "cashapp", "customer@example.com", "")
	var validationErr *types.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestSuccessfulConfirmationSettlesOrderLedgerAndWallet(t *testing.T) {
	db := newTestDB(t)
	order, entrepreneur := newTestOrder(t, db)
	service := NewService(db, &fakeProvider{})
	reference := initiateTestPayment(t, service, order.OrderID)

	require.NoError(t, service.HandleConfirmation(ConfirmationEvent{
		ExternalReference: reference,
		Success:           true,
		Amount:            order.TotalAmount,
		Currency:          "NGN",
	}))

	// Transaction completed
	transaction, err := service.GetDB().GetTransaction(reference)
	require.NoError(t, err)
	assert.Equal(t, types.TransactionStatusCompleted, transaction.Status)

	// Order advanced to paid
	var paidOrder types.Order
	require.NoError(t, db.Where("order_id = ?", order.OrderID).First(&paidOrder).Error)
	assert.Equal(t, types.OrderStatusPaid, paidOrder.Status)
	assert.Equal(t, types.PaymentStatusPaid, paidOrder.PaymentStatus)
	assert.Equal(t, "testpay", paidOrder.PaymentMethod)

	// Both ledger entries paid with a payout date
	var entries []types.Earning
	require.NoError(t, db.Where("order_ref = ?", order.OrderID).Find(&entries).Error)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, types.EarningStatusPaid, entry.Status)
		assert.NotNil(t, entry.PayoutDate)
	}

	// Wallet credited markup + commission = 1100
	var wallet types.Wallet
	require.NoError(t, db.Where("entrepreneur_id = ?", entrepreneur.ID).First(&wallet).Error)
	assert.True(t, wallet.Balance.Equal(d("1100")), "balance %s", wallet.Balance)
	assert.True(t, wallet.TotalEarned.Equal(d("1100")))

	// Lifetime counters on the profile
	var reloaded types.EntrepreneurProfile
	require.NoError(t, db.First(&reloaded, entrepreneur.ID).Error)
	assert.True(t, reloaded.TotalSales.Equal(order.TotalAmount), "total_sales %s", reloaded.TotalSales)
	assert.True(t, reloaded.TotalEarnings.Equal(d("1100")))
}

func TestDuplicateConfirmationCreditsWalletOnce(t *testing.T) {
	db := newTestDB(t)
	order, entrepreneur := newTestOrder(t, db)
	service := NewService(db, &fakeProvider{})
	reference := initiateTestPayment(t, service, order.OrderID)

	event := ConfirmationEvent{
		ExternalReference: reference,
		Success:           true,
		Amount:            order.TotalAmount,
		Currency:          "NGN",
	}
	require.NoError(t, service.HandleConfirmation(event))

	// Redelivery acknowledges without touching anything
	require.NoError(t, service.HandleConfirmation(event))
	require.NoError(t, service.HandleConfirmation(event))

	var wallet types.Wallet
	require.NoError(t, db.Where("entrepreneur_id = ?", entrepreneur.ID).First(&wallet).Error)
	assert.True(t, wallet.Balance.Equal(d("1100")), "balance %s after redelivery", wallet.Balance)

	var reloaded types.EntrepreneurProfile
	require.NoError(t, db.First(&reloaded, entrepreneur.ID).Error)
	assert.True(t, reloaded.TotalSales.Equal(order.TotalAmount))

	// Still exactly one paid history record
	var paidHistory int64
	require.NoError(t, db.Model(&types.OrderStatusHistory{}).
		Where("order_ref = ? AND status = ?", order.OrderID, types.OrderStatusPaid).
		Count(&paidHistory).Error)
	assert.EqualValues(t, 1, paidHistory)
}

func TestFailedConfirmationTouchesOnlyTransaction(t *testing.T) {
	db := newTestDB(t)
	order, entrepreneur := newTestOrder(t, db)
	service := NewService(db, &fakeProvider{})
	reference := initiateTestPayment(t, service, order.OrderID)

	require.NoError(t, service.HandleConfirmation(ConfirmationEvent{
		ExternalReference: reference,
		Success:           false,
		FailureReason:     "Declined by issuer",
	}))

	transaction, err := service.GetDB().GetTransaction(reference)
	require.NoError(t, err)
	assert.Equal(t, types.TransactionStatusFailed, transaction.Status)
	assert.Equal(t, "Declined by issuer", transaction.FailureReason)

	// Order stays pending and payable
	var reloaded types.Order
	require.NoError(t, db.Where("order_id = ?", order.OrderID).First(&reloaded).Error)
	assert.Equal(t, types.OrderStatusPending, reloaded.Status)
	assert.Equal(t, types.PaymentStatusPending, reloaded.PaymentStatus)

	// Ledger untouched, no wallet created
	var entries []types.Earning
	require.NoError(t, db.Where("order_ref = ?", order.OrderID).Find(&entries).Error)
	for _, entry := range entries {
		assert.Equal(t, types.EarningStatusPending, entry.Status)
	}
	var walletCount int64
	require.NoError(t, db.Model(&types.Wallet{}).
		Where("entrepreneur_id = ?", entrepreneur.ID).Count(&walletCount).Error)
	assert.Zero(t, walletCount)
}

func TestFailedAttemptAllowsRetryWithNewReference(t *testing.T) {
	db := newTestDB(t)
	order, _ := newTestOrder(t, db)
	service := NewService(db, &fakeProvider{})
	reference := initiateTestPayment(t, service, order.OrderID)

	require.NoError(t, service.HandleConfirmation(ConfirmationEvent{
		ExternalReference: reference,
		Success:           false,
		FailureReason:     "insufficient funds",
	}))

	// A late success on the failed reference is a no-op, not a payment
	require.NoError(t, service.HandleConfirmation(ConfirmationEvent{
		ExternalReference: reference,
		Success:           true,
		Amount:            order.TotalAmount,
	}))
	var reloaded types.Order
	require.NoError(t, db.Where("order_id = ?", order.OrderID).First(&reloaded).Error)
	assert.Equal(t, types.OrderStatusPending, reloaded.Status)
}

func TestConfirmationForUnknownReference(t *testing.T) {
	db := newTestDB(t)
	service := NewService(db, &fakeProvider{})

	err := service.HandleConfirmation(ConfirmationEvent{
		ExternalReference: "TST_DOES_NOT_EXIST",
		Success:           true,
	})
	require.ErrorIs(t, err, types.ErrUnknownTransaction)
}

func TestInitiatePaymentRejectsPaidOrder(t *testing.T) {
	db := newTestDB(t)
	order, _ := newTestOrder(t, db)
	service := NewService(db, &fakeProvider{})
	reference := initiateTestPayment(t, service, order.OrderID)

	require.NoError(t, service.HandleConfirmation(ConfirmationEvent{
		ExternalReference: reference,
		Success:           true,
		Amount:            order.TotalAmount,
	}))

	_, err := service.InitiatePayment(order.OrderID, "testpay", "customer@example.com", "")
	var validationErr *types.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, err.Error(), "already been paid")
}

func TestPaystackWebhookSignature(t *testing.T) {
	paystack := NewPaystack("sk_test_secret")
	payload := []byte(`{"event":"charge.success","data":{"reference":"PSK_PAY1"}}`)

	mac := hmac.New(sha512.New, []byte("sk_test_secret"))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, paystack.VerifyWebhookSignature(payload, signature))
	assert.False(t, paystack.VerifyWebhookSignature(payload, "deadbeef"))
	assert.False(t, paystack.VerifyWebhookSignature([]byte(`{"tampered":true}`), signature))
}

func TestFlutterwaveWebhookSignature(t *testing.T) {
	flutterwave := NewFlutterwave("sk_flw", "verify-hash-value")
	assert.True(t, flutterwave.VerifyWebhookSignature("verify-hash-value"))
	assert.False(t, flutterwave.VerifyWebhookSignature("wrong"))
	assert.False(t, flutterwave.VerifyWebhookSignature(""))
}
