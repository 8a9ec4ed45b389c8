package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInsufficientBalance rejects a withdrawal larger than the spendable balance.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	// ErrBelowMinimum rejects a withdrawal under the platform floor.
	ErrBelowMinimum = errors.New("withdrawal amount below platform minimum")
	// ErrUnknownTransaction is returned when a provider event references no
	// known transaction. Logged for manual reconciliation, never retried.
	ErrUnknownTransaction = errors.New("no transaction matches provider reference")
	// ErrConcurrencyConflict is transient; callers may retry with backoff.
	ErrConcurrencyConflict = errors.New("concurrent modification conflict")
)

// ValidationError covers malformed input rejected before any mutation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// StockViolation describes one line item that could not be reserved.
type StockViolation struct {
	ProductID   uint  `json:"product_id"`
	VariationID *uint `json:"variation_id,omitempty"`
	Requested   int   `json:"requested"`
	Available   int   `json:"available"`
}

// InsufficientStockError carries every violating line. Reservation is
// all-or-nothing, so the caller sees the full list at once.
type InsufficientStockError struct {
	Violations []StockViolation
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("product %d: requested %d, available %d", v.ProductID, v.Requested, v.Available))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// InvalidTransitionError names both ends of an illegal status change.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}
