package pricing

import "fmt"

// Money represents a monetary value stored in minor units.
type Money = int64

// Line describes a cart line used for totals calculation.
type Line struct {
	Qty       int
	UnitPrice Money
}

// Summary aggregates computed order totals. Prices are tax inclusive:
// TaxIncluded is the portion of Total already covered by tax and is shown
// for display only, never added on top.
type Summary struct {
	Subtotal    Money
	Shipping    Money
	Total       Money
	TaxIncluded Money
}

// Compute calculates order totals from the provided lines, a flat shipping
// fee and a tax rate in basis points.
func Compute(lines []Line, shipping Money, taxBps int) Summary {
	var subtotal Money
	for _, l := range lines {
		if l.Qty <= 0 {
			continue
		}
		subtotal += Money(l.Qty) * l.UnitPrice
	}
	if shipping < 0 {
		shipping = 0
	}
	total := subtotal + shipping
	var tax Money
	if taxBps > 0 {
		tax = (total * Money(taxBps)) / Money(10000+taxBps)
	}
	return Summary{
		Subtotal:    subtotal,
		Shipping:    shipping,
		Total:       total,
		TaxIncluded: tax,
	}
}

// FormatMajor renders a minor-unit amount in major units. All arithmetic
// stays in minor units; this is the formatting boundary.
func FormatMajor(m Money) string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s%d.%02d", sign, m/100, m%100)
}
