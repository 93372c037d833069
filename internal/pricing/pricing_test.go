package pricing

import (
	"testing"

	"stallpos/terminal/internal/domain"
)

func lines(pairs ...int64) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.CartLine{
			Item: domain.MenuItem{ID: "itm", PriceCents: pairs[i], Available: true},
			Qty:  int(pairs[i+1]),
		})
	}
	return out
}

func TestComputeTaxOnSubtotal(t *testing.T) {
	// 2x 85.00 => subtotal 170.00, 5% tax 8.50, total 178.50
	totals := Compute(lines(8500, 2), 5, nil)
	if totals.SubtotalCents != 17000 {
		t.Fatalf("expected subtotal 17000, got %d", totals.SubtotalCents)
	}
	if totals.TaxCents != 850 {
		t.Fatalf("expected tax 850, got %d", totals.TaxCents)
	}
	if totals.TotalCents != 17850 {
		t.Fatalf("expected total 17850, got %d", totals.TotalCents)
	}
}

func TestComputePercentDiscountBeforeTax(t *testing.T) {
	totals := Compute(lines(10000, 1), 5, &domain.Discount{Type: domain.DiscountPercent, PercentValue: 10})
	if totals.DiscountCents != 1000 {
		t.Fatalf("expected discount 1000, got %d", totals.DiscountCents)
	}
	// tax applies to the discounted base: 9000 * 5% = 450
	if totals.TaxCents != 450 {
		t.Fatalf("expected tax 450, got %d", totals.TaxCents)
	}
	if totals.TotalCents != 9450 {
		t.Fatalf("expected total 9450, got %d", totals.TotalCents)
	}
}

func TestComputeFixedDiscountClampedToSubtotal(t *testing.T) {
	totals := Compute(lines(4000, 1), 5, &domain.Discount{Type: domain.DiscountFixed, AmountCents: 9999})
	if totals.DiscountCents != 4000 {
		t.Fatalf("expected discount clamped to 4000, got %d", totals.DiscountCents)
	}
	if totals.TaxCents != 0 || totals.TotalCents != 0 {
		t.Fatalf("expected zero tax and total on fully discounted cart, got tax %d total %d", totals.TaxCents, totals.TotalCents)
	}
}

func TestComputePercentDiscountOverHundredClamped(t *testing.T) {
	totals := Compute(lines(4000, 1), 5, &domain.Discount{Type: domain.DiscountPercent, PercentValue: 150})
	if totals.DiscountCents != 4000 {
		t.Fatalf("expected discount clamped to subtotal, got %d", totals.DiscountCents)
	}
	if totals.TotalCents != 0 {
		t.Fatalf("expected zero total, got %d", totals.TotalCents)
	}
}

func TestComputeNegativeDiscountIgnored(t *testing.T) {
	totals := Compute(lines(4000, 1), 0, &domain.Discount{Type: domain.DiscountFixed, AmountCents: -500})
	if totals.DiscountCents != 0 {
		t.Fatalf("expected negative discount to clamp to 0, got %d", totals.DiscountCents)
	}
	if totals.TotalCents != 4000 {
		t.Fatalf("expected total 4000, got %d", totals.TotalCents)
	}
}

func TestComputeRoundsHalfUp(t *testing.T) {
	// 2.50% of 30.01 = 0.750250 => 75 cents after rounding
	totals := Compute(lines(3001, 1), 2.5, nil)
	if totals.TaxCents != 75 {
		t.Fatalf("expected tax 75, got %d", totals.TaxCents)
	}
}

func TestComputeEmptyCartIsZero(t *testing.T) {
	totals := Compute(nil, 5, &domain.Discount{Type: domain.DiscountPercent, PercentValue: 10})
	if totals.SubtotalCents != 0 || totals.DiscountCents != 0 || totals.TaxCents != 0 || totals.TotalCents != 0 {
		t.Fatalf("expected all-zero totals for empty cart, got %+v", totals)
	}
}

func TestChangeNeverNegative(t *testing.T) {
	if got := Change(20000, 17850); got != 2150 {
		t.Fatalf("expected change 2150, got %d", got)
	}
	if got := Change(17850, 17850); got != 0 {
		t.Fatalf("expected zero change for exact tender, got %d", got)
	}
	if got := Change(10000, 17850); got != 0 {
		t.Fatalf("expected clamped zero change, got %d", got)
	}
}
