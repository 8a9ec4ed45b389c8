package pricing

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templeobijnr/payjaro-backend/internal/types"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateTwoItemOrder(t *testing.T) {
	// item A: base 1000, unit 1200, qty 2; item B: base 500, unit 600, qty 1
	// commission 10%, shipping 500
	items := []ItemInput{
		{BasePrice: d("1000"), Quantity: 2, UnitPrice: d("1200")},
		{BasePrice: d("500"), Quantity: 1, UnitPrice: d("600")},
	}

	quote, err := Calculate(items, d("10"), d("500"))
	require.NoError(t, err)

	assert.True(t, quote.Subtotal.Equal(d("2500")), "subtotal = %s", quote.Subtotal)
	assert.True(t, quote.MarkupAmount.Equal(d("500")), "markup = %s", quote.MarkupAmount)
	assert.True(t, quote.CommissionAmount.Equal(d("300")), "commission = %s", quote.CommissionAmount)
	assert.True(t, quote.TotalAmount.Equal(d("3500")), "total = %s", quote.TotalAmount)
}

func TestCalculateVariationModifier(t *testing.T) {
	items := []ItemInput{
		{BasePrice: d("1000"), VariationModifier: d("250"), Quantity: 1, UnitPrice: d("1500")},
	}

	quote, err := Calculate(items, d("8"), d("0"))
	require.NoError(t, err)

	assert.True(t, quote.Subtotal.Equal(d("1250")))
	assert.True(t, quote.MarkupAmount.Equal(d("250")))
	assert.True(t, quote.CommissionAmount.Equal(d("120")))
	assert.True(t, quote.TotalAmount.Equal(d("1500")))
}

func TestCalculateRejectsNegativeMarkup(t *testing.T) {
	items := []ItemInput{
		{BasePrice: d("1000"), Quantity: 1, UnitPrice: d("999.99")},
	}

	_, err := Calculate(items, d("10"), d("500"))
	var pricingErr *InvalidPricingError
	require.ErrorAs(t, err, &pricingErr)
	assert.Equal(t, 0, pricingErr.Item)
}

func TestCalculateRejectsVariationPushingBaseAboveUnit(t *testing.T) {
	items := []ItemInput{
		{BasePrice: d("1000"), VariationModifier: d("100"), Quantity: 1, UnitPrice: d("1050")},
	}

	_, err := Calculate(items, d("10"), d("0"))
	var pricingErr *InvalidPricingError
	require.ErrorAs(t, err, &pricingErr)
	assert.True(t, pricingErr.EffectiveBase.Equal(d("1100")))
}

func TestCalculateValidation(t *testing.T) {
	valid := []ItemInput{{BasePrice: d("100"), Quantity: 1, UnitPrice: d("120")}}

	tests := []struct {
		name     string
		items    []ItemInput
		rate     decimal.Decimal
		shipping decimal.Decimal
	}{
		{"empty items", nil, d("10"), d("500")},
		{"zero quantity", []ItemInput{{BasePrice: d("100"), Quantity: 0, UnitPrice: d("120")}}, d("10"), d("0")},
		{"negative quantity", []ItemInput{{BasePrice: d("100"), Quantity: -2, UnitPrice: d("120")}}, d("10"), d("0")},
		{"rate above 100", valid, d("101"), d("0")},
		{"negative rate", valid, d("-1"), d("0")},
		{"negative shipping", valid, d("10"), d("-1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Calculate(tt.items, tt.rate, tt.shipping)
			var validationErr *types.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestCalculateRoundsCommissionOnceAtAggregation(t *testing.T) {
	// Three lines of 10.20 at 1% contribute 0.102 each. Rounding per item
	// would accumulate 0.10 * 3 = 0.30; rounding once over the aggregate
	// gives 30.60 * 1% = 0.306 -> 0.31.
	items := []ItemInput{
		{BasePrice: d("10.20"), Quantity: 1, UnitPrice: d("10.20")},
		{BasePrice: d("10.20"), Quantity: 1, UnitPrice: d("10.20")},
		{BasePrice: d("10.20"), Quantity: 1, UnitPrice: d("10.20")},
	}

	quote, err := Calculate(items, d("1"), d("0"))
	require.NoError(t, err)

	assert.True(t, quote.CommissionAmount.Equal(d("0.31")), "commission = %s", quote.CommissionAmount)
}

func TestCalculateInvariantsHoldForRandomInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(5)
		items := make([]ItemInput, 0, n)
		for j := 0; j < n; j++ {
			base := decimal.NewFromInt(int64(1 + rng.Intn(100000))).Div(d("100"))
			markup := decimal.NewFromInt(int64(rng.Intn(50000))).Div(d("100"))
			items = append(items, ItemInput{
				BasePrice: base,
				Quantity:  1 + rng.Intn(9),
				UnitPrice: base.Add(markup),
			})
		}
		rate := decimal.NewFromInt(int64(rng.Intn(2001))).Div(d("100"))
		shipping := decimal.NewFromInt(int64(rng.Intn(100000))).Div(d("100"))

		quote, err := Calculate(items, rate, shipping)
		require.NoError(t, err)

		itemTotal := decimal.Zero
		facingTotal := decimal.Zero
		for k, item := range items {
			qty := decimal.NewFromInt(int64(item.Quantity))
			itemTotal = itemTotal.Add(quote.Items[k].TotalPrice)
			facingTotal = facingTotal.Add(item.UnitPrice.Mul(qty))
		}

		assert.True(t, quote.TotalAmount.Equal(itemTotal.Add(shipping)),
			"total %s != item sum %s + shipping %s", quote.TotalAmount, itemTotal, shipping)
		assert.True(t, quote.CommissionAmount.Equal(facingTotal.Mul(rate).Div(d("100")).Round(2)),
			"commission %s mismatch for facing total %s rate %s", quote.CommissionAmount, facingTotal, rate)
		assert.True(t, quote.MarkupAmount.Equal(quote.TotalAmount.Sub(shipping).Sub(quote.Subtotal)),
			"markup %s != total - shipping - subtotal", quote.MarkupAmount)
	}
}
