package types

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order lifecycle statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusPaid       = "paid"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
	OrderStatusReturned   = "returned"
)

// Payment statuses on an order
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Earning types and statuses
const (
	EarningTypeMarkup     = "markup"
	EarningTypeCommission = "commission"

	EarningStatusPending   = "pending"
	EarningStatusPaid      = "paid"
	EarningStatusCancelled = "cancelled"
)

// Withdrawal request statuses
const (
	WithdrawalStatusPending    = "pending"
	WithdrawalStatusProcessing = "processing"
	WithdrawalStatusCompleted  = "completed"
	WithdrawalStatusRejected   = "rejected"
)

// Payment transaction statuses
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// ShippingAddress is embedded on orders. Every field is required at
// order creation.
type ShippingAddress struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Street   string `json:"street"`
	City     string `json:"city"`
	State    string `json:"state"`
}

type Order struct {
	gorm.Model       `json:"-"`
	OrderID          string          `gorm:"uniqueIndex" json:"order_id"`
	CustomerID       uint            `json:"customer_id"`
	EntrepreneurID   uint            `json:"entrepreneur_id"`
	SupplierID       uint            `json:"supplier_id"`
	Status           string          `json:"status"`
	PaymentStatus    string          `json:"payment_status"`
	PaymentMethod    string          `json:"payment_method"`
	Subtotal         decimal.Decimal `gorm:"type:decimal(12,2)" json:"subtotal"`
	MarkupAmount     decimal.Decimal `gorm:"type:decimal(12,2)" json:"markup_amount"`
	CommissionAmount decimal.Decimal `gorm:"type:decimal(12,2)" json:"commission_amount"`
	ShippingFee      decimal.Decimal `gorm:"type:decimal(12,2)" json:"shipping_fee"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_amount"`
	ShippingAddress  ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	TrackingNumber   string          `json:"tracking_number,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	Items            []OrderItem     `gorm:"foreignKey:OrderRef;references:OrderID" json:"items,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// OrderItem snapshots the supplier base price at order time. Historical
// orders stay correct when catalog prices move later.
type OrderItem struct {
	gorm.Model   `json:"-"`
	OrderRef     string          `gorm:"index" json:"order_ref"`
	ProductID    uint            `json:"product_id"`
	VariationID  *uint           `json:"variation_id,omitempty"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2)" json:"unit_price"`
	BasePrice    decimal.Decimal `gorm:"type:decimal(12,2)" json:"base_price"`
	MarkupAmount decimal.Decimal `gorm:"type:decimal(12,2)" json:"markup_amount"`
	TotalPrice   decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_price"`
}

// OrderStatusHistory is append-only. One record per transition, never
// mutated or deleted.
type OrderStatusHistory struct {
	gorm.Model `json:"-"`
	OrderRef   string    `gorm:"index" json:"order_ref"`
	Status     string    `json:"status"`
	Notes      string    `json:"notes,omitempty"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// Earning is one ledger entry per (order, earning type). The amount is
// fixed at order creation; only the status moves afterwards.
type Earning struct {
	gorm.Model     `json:"-"`
	EntrepreneurID uint            `gorm:"index" json:"entrepreneur_id"`
	OrderRef       string          `gorm:"index:idx_earnings_order_type,unique" json:"order_ref"`
	EarningType    string          `gorm:"index:idx_earnings_order_type,unique" json:"earning_type"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	Status         string          `json:"status"`
	PayoutDate     *time.Time      `json:"payout_date,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type Wallet struct {
	gorm.Model     `json:"-"`
	EntrepreneurID uint            `gorm:"uniqueIndex" json:"entrepreneur_id"`
	Balance        decimal.Decimal `gorm:"type:decimal(12,2)" json:"balance"`
	PendingBalance decimal.Decimal `gorm:"type:decimal(12,2)" json:"pending_balance"`
	TotalEarned    decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_earned"`
	TotalWithdrawn decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_withdrawn"`
	Currency       string          `gorm:"default:NGN" json:"currency"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type WithdrawalRequest struct {
	gorm.Model         `json:"-"`
	ReferenceID        string          `gorm:"uniqueIndex" json:"reference_id"`
	EntrepreneurID     uint            `gorm:"index" json:"entrepreneur_id"`
	Amount             decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	WithdrawalMethod   string          `json:"withdrawal_method"`
	DestinationDetails map[string]any  `gorm:"serializer:json" json:"destination_details"`
	Status             string          `json:"status"`
	ProcessingFee      decimal.Decimal `gorm:"type:decimal(12,2)" json:"processing_fee"`
	ProcessedAt        *time.Time      `json:"processed_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// Transaction records one payment attempt with a provider. TransactionID
// is the provider reference and doubles as the webhook idempotency key.
type Transaction struct {
	gorm.Model    `json:"-"`
	TransactionID string          `gorm:"uniqueIndex" json:"transaction_id"`
	OrderRef      string          `gorm:"index" json:"order_ref"`
	Provider      string          `json:"provider"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	Currency      string          `gorm:"default:NGN" json:"currency"`
	Status        string          `json:"status"`
	FailureReason string          `json:"failure_reason,omitempty"`
	Metadata      map[string]any  `gorm:"serializer:json" json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Product struct {
	gorm.Model    `json:"-"`
	Name          string          `json:"name"`
	SKU           string          `gorm:"uniqueIndex" json:"sku"`
	SupplierID    uint            `gorm:"index" json:"supplier_id"`
	BasePrice     decimal.Decimal `gorm:"type:decimal(12,2)" json:"base_price"`
	StockQuantity int             `json:"stock_quantity"`
	IsActive      bool            `gorm:"default:true" json:"is_active"`
}

type ProductVariation struct {
	gorm.Model     `json:"-"`
	ProductID      uint            `gorm:"index" json:"product_id"`
	VariationType  string          `json:"variation_type"`
	VariationValue string          `json:"variation_value"`
	PriceModifier  decimal.Decimal `gorm:"type:decimal(12,2)" json:"price_modifier"`
	StockQuantity  int             `json:"stock_quantity"`
	SKUSuffix      string          `json:"sku_suffix"`
}

type EntrepreneurProfile struct {
	gorm.Model     `json:"-"`
	UserID         uint            `gorm:"uniqueIndex" json:"user_id"`
	BusinessName   string          `json:"business_name"`
	CustomURL      string          `gorm:"uniqueIndex" json:"custom_url"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(5,2)" json:"commission_rate"`
	TotalSales     decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_sales"`
	TotalEarnings  decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_earnings"`
	IsActive       bool            `gorm:"default:true" json:"is_active"`
}
