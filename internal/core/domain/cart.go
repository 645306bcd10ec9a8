package domain

import (
	"math"
	"time"
)

// TaxPercent is the fixed VAT rate applied to the taxable base.
const TaxPercent = 19

type (
	// A CartLine is one cart row, keyed by (SessionID, ProductCode).
	// SessionID 0 denotes the guest cart, which is never persisted.
	// Product name and price are captured at add time.
	CartLine struct {
		ID           int64
		SessionID    int
		ProductCode  string
		ProductName  string
		ProductPrice int
		Quantity     int
		CreatedAt    time.Time
	}

	// A PriceBreakdown is the multi-stage pricing result:
	// subtotal -> discount -> tax -> total. All amounts are in the
	// smallest currency unit.
	PriceBreakdown struct {
		Subtotal        int
		DiscountPercent int
		DiscountAmount  int
		TaxableBase     int
		TaxPercent      int
		TaxAmount       int
		Total           int
	}
)

// Amount returns price multiplied by quantity.
func (l CartLine) Amount() int {
	return l.ProductPrice * l.Quantity
}

// Subtotal sums Amount over all lines.
func Subtotal(lines []CartLine) int {
	var total int
	for _, l := range lines {
		total += l.Amount()
	}
	return total
}

// Quantity sums the line quantities, 0 for an empty cart.
func Quantity(lines []CartLine) int {
	var n int
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

// ComputeBreakdown derives the pricing breakdown from the subtotal and
// the discount percentage. Pure: no store access, no side effects.
func ComputeBreakdown(subtotal, discountPercent int) PriceBreakdown {
	discountAmount := roundPercent(subtotal, discountPercent)
	taxableBase := max(subtotal-discountAmount, 0)
	taxAmount := roundPercent(taxableBase, TaxPercent)

	return PriceBreakdown{
		Subtotal:        subtotal,
		DiscountPercent: discountPercent,
		DiscountAmount:  discountAmount,
		TaxableBase:     taxableBase,
		TaxPercent:      TaxPercent,
		TaxAmount:       taxAmount,
		Total:           taxableBase + taxAmount,
	}
}

func roundPercent(amount, percent int) int {
	v := int(math.Round(float64(amount) * float64(percent) / 100))
	return max(v, 0)
}
