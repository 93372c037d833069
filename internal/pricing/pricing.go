package pricing

import (
	"github.com/shopspring/decimal"

	"stallpos/terminal/internal/domain"
)

type Totals struct {
	SubtotalCents int64
	DiscountCents int64
	TaxCents      int64
	TotalCents    int64
}

var hundred = decimal.NewFromInt(100)

// Compute prices a cart. Discount applies to the subtotal and is
// clamped to [0, subtotal]; tax applies to the discounted base. All
// rounding is half-up to whole cents.
func Compute(lines []domain.CartLine, taxRatePercent float64, disc *domain.Discount) Totals {
	var subtotal int64
	for _, line := range lines {
		subtotal += line.Item.PriceCents * int64(line.Qty)
	}

	var discount int64
	if disc != nil {
		switch disc.Type {
		case domain.DiscountPercent:
			discount = decimal.NewFromInt(subtotal).
				Mul(decimal.NewFromFloat(disc.PercentValue)).
				Div(hundred).
				Round(0).
				IntPart()
		case domain.DiscountFixed:
			discount = disc.AmountCents
		}
	}
	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}

	base := subtotal - discount
	tax := decimal.NewFromInt(base).
		Mul(decimal.NewFromFloat(taxRatePercent)).
		Div(hundred).
		Round(0).
		IntPart()
	if tax < 0 {
		tax = 0
	}

	return Totals{
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TaxCents:      tax,
		TotalCents:    base + tax,
	}
}

// Change returns the cash to hand back, never negative.
func Change(receivedCents, totalCents int64) int64 {
	change := receivedCents - totalCents
	if change < 0 {
		return 0
	}
	return change
}
