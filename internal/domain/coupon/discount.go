package coupon

import "github.com/shopspring/decimal"

// DiscountFor computes the discount the coupon grants against the given
// subtotal. Percentage discounts take precedence over fixed amounts when a
// record carries both. The result is clamped to [0, subtotal] so a coupon can
// never produce a negative payable total.
func DiscountFor(c *Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch {
	case c.DiscountPercentage.IsPositive():
		d = subtotal.Mul(c.DiscountPercentage)
	case c.DiscountAmount.IsPositive():
		d = c.DiscountAmount
	default:
		return decimal.Zero
	}

	if d.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(d, subtotal)
}
