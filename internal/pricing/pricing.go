// Package pricing computes the money split for an order: supplier
// subtotal, entrepreneur markup, platform commission and the customer
// total. It is pure and touches no storage.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/templeobijnr/payjaro-backend/internal/types"
)

// InvalidPricingError rejects a line priced below the supplier base.
// Markup may never be negative.
type InvalidPricingError struct {
	Item          int
	UnitPrice     decimal.Decimal
	EffectiveBase decimal.Decimal
}

func (e *InvalidPricingError) Error() string {
	return fmt.Sprintf("item %d: unit price %s is below base price %s", e.Item, e.UnitPrice, e.EffectiveBase)
}

// ItemInput is one order line as priced at creation time.
type ItemInput struct {
	BasePrice         decimal.Decimal
	VariationModifier decimal.Decimal
	Quantity          int
	UnitPrice         decimal.Decimal
}

// ItemQuote carries the per-line amounts that get snapshotted onto the
// order item row.
type ItemQuote struct {
	EffectiveBase decimal.Decimal
	MarkupAmount  decimal.Decimal
	TotalPrice    decimal.Decimal
}

type Quote struct {
	Subtotal         decimal.Decimal
	MarkupAmount     decimal.Decimal
	CommissionAmount decimal.Decimal
	ShippingFee      decimal.Decimal
	TotalAmount      decimal.Decimal
	Items            []ItemQuote
}

var oneHundred = decimal.NewFromInt(100)

// Calculate aggregates all lines exactly in decimal arithmetic. The
// commission is the only value that can pick up fractional digits (rate
// division), so it is rounded half up to 2dp once at the end, never per
// item, to avoid cumulative rounding drift.
//
// Commission is computed on the entrepreneur-facing price, not the base
// price, so the platform earns its cut on the already-marked-up amount.
// That mirrors the production billing rules; do not "fix" it here.
func Calculate(items []ItemInput, commissionRate, shippingFee decimal.Decimal) (*Quote, error) {
	if len(items) == 0 {
		return nil, types.NewValidationError("order must contain at least one item")
	}
	if commissionRate.IsNegative() || commissionRate.GreaterThan(oneHundred) {
		return nil, types.NewValidationError("commission rate %s outside 0-100", commissionRate)
	}
	if shippingFee.IsNegative() {
		return nil, types.NewValidationError("shipping fee cannot be negative")
	}

	quote := &Quote{
		Subtotal:         decimal.Zero,
		MarkupAmount:     decimal.Zero,
		ShippingFee:      shippingFee,
		TotalAmount:      decimal.Zero,
		Items:            make([]ItemQuote, 0, len(items)),
	}
	commissionBase := decimal.Zero

	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, types.NewValidationError("item %d: quantity must be positive", i)
		}
		qty := decimal.NewFromInt(int64(item.Quantity))
		effectiveBase := item.BasePrice.Add(item.VariationModifier)
		if item.UnitPrice.LessThan(effectiveBase) {
			return nil, &InvalidPricingError{Item: i, UnitPrice: item.UnitPrice, EffectiveBase: effectiveBase}
		}

		lineTotal := item.UnitPrice.Mul(qty)
		lineMarkup := item.UnitPrice.Sub(effectiveBase).Mul(qty)

		quote.Subtotal = quote.Subtotal.Add(effectiveBase.Mul(qty))
		quote.MarkupAmount = quote.MarkupAmount.Add(lineMarkup)
		quote.TotalAmount = quote.TotalAmount.Add(lineTotal)
		commissionBase = commissionBase.Add(lineTotal)

		quote.Items = append(quote.Items, ItemQuote{
			EffectiveBase: effectiveBase,
			MarkupAmount:  lineMarkup,
			TotalPrice:    lineTotal,
		})
	}

	quote.CommissionAmount = commissionBase.Mul(commissionRate).Div(oneHundred).Round(2)
	quote.TotalAmount = quote.TotalAmount.Add(shippingFee)

	return quote, nil
}
