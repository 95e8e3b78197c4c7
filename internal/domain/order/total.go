package order

import "github.com/shopspring/decimal"

// Subtotal sums quantity times unit price across all items. Decimal
// arithmetic is exact; rounding happens once, in FinalTotal, rather than per
// line, so multi-item orders do not accumulate rounding error.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

// FinalTotal is the payable amount: subtotal minus discount, floored at zero
// and rounded to cents.
func FinalTotal(subtotal, discount decimal.Decimal) decimal.Decimal {
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return total.Round(2)
}
