package payments

import (
	"github.com/shopspring/decimal"
	"github.com/templeobijnr/payjaro-backend/internal/types"
)

// InitResult is what a provider hands back after a payment is opened
// with it.
type InitResult struct {
	Reference  string `json:"reference"`
	PaymentURL string `json:"payment_url"`
}

// VerifyResult is a provider's answer when asked about a reference.
type VerifyResult struct {
	Reference string          `json:"reference"`
	Success   bool            `json:"success"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Reason    string          `json:"reason,omitempty"`
}

// Provider abstracts one payment gateway. The reconciliation unit
// depends only on this interface; each gateway gets one implementation.
type Provider interface {
	Name() string
	Initialize(order *types.Order, customerEmail, callbackURL string) (*InitResult, error)
	Verify(reference string) (*VerifyResult, error)
}
