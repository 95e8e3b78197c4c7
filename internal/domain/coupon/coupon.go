package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when no coupon matches the given code.
	ErrNotFound = errors.New("coupon not found")
	// ErrNotYetValid is returned when the coupon's validity window has not opened.
	ErrNotYetValid = errors.New("coupon is not yet valid")
	// ErrExpired is returned when the coupon's validity window has closed.
	ErrExpired = errors.New("coupon has expired")
	// ErrUsageLimitReached is returned when a coupon has exhausted its allowed uses.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
)

// BelowMinimumOrderError indicates the order subtotal does not reach the
// coupon's minimum order value.
type BelowMinimumOrderError struct {
	Min decimal.Decimal
}

func (e *BelowMinimumOrderError) Error() string {
	return fmt.Sprintf("minimum order value for this coupon is $%s", e.Min.StringFixed(2))
}

// Coupon is a named discount rule. Numeric fields use their zero value to
// mean "not set": a coupon with DiscountPercentage zero and DiscountAmount
// zero grants no discount, MinOrderValue zero means no minimum, MaxUses zero
// means unlimited.
type Coupon struct {
	ID          string
	Code        string
	Description string

	// DiscountPercentage is a fraction in (0, 1]. When both percentage and
	// amount are set, percentage wins.
	DiscountPercentage decimal.Decimal
	DiscountAmount     decimal.Decimal

	ValidFrom     *time.Time
	ValidTo       *time.Time
	MinOrderValue decimal.Decimal
	MaxUses       int
	UseCount      int
}

// Validate reports whether the coupon record itself is well formed. Intended
// for admin create/edit paths; redeem-time checks live in Applier.
func (c *Coupon) Validate() error {
	if c.Code == "" {
		return errors.New("coupon code required")
	}
	if c.DiscountPercentage.IsNegative() || c.DiscountPercentage.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New("discount percentage must be a fraction between 0 and 1")
	}
	if c.DiscountAmount.IsNegative() {
		return errors.New("discount amount must not be negative")
	}
	if c.DiscountPercentage.IsPositive() && c.DiscountAmount.IsPositive() {
		return errors.New("coupon must not set both percentage and amount discounts")
	}
	if c.ValidFrom != nil && c.ValidTo != nil && c.ValidTo.Before(*c.ValidFrom) {
		return errors.New("coupon validity window ends before it starts")
	}
	return nil
}

// Repository provides lookup and mutation of coupons. FindByCode matches
// case-insensitively. IncrementUses must refuse to push UseCount past MaxUses
// and return ErrUsageLimitReached in that case.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	IncrementUses(ctx context.Context, code string) error
}
