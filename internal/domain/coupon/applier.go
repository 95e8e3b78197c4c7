package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// UsagePolicy controls when a redeemed coupon's use counter is incremented.
type UsagePolicy string

const (
	// CountOnApply increments the use counter as soon as the coupon is
	// applied to a subtotal, before any payment completes. A coupon applied
	// to an abandoned cart stays counted.
	CountOnApply UsagePolicy = "count-on-apply"
	// CountOnConfirm defers the increment to payment confirmation, so only
	// paid orders consume a use.
	CountOnConfirm UsagePolicy = "count-on-confirm"
)

// Result holds the outcome of a successful coupon application.
type Result struct {
	Coupon   *Coupon
	Discount decimal.Decimal
}

// Validator is the coupon capability the checkout flow depends on.
type Validator interface {
	Apply(ctx context.Context, code string, subtotal decimal.Decimal) (*Result, error)
	Confirm(ctx context.Context, code string) error
}

// Applier validates coupon codes against a subtotal and computes discounts,
// counting usage according to its UsagePolicy.
type Applier struct {
	repo   Repository
	policy UsagePolicy
	now    func() time.Time
}

// NewApplier creates an Applier backed by the given Repository. An empty
// policy defaults to CountOnApply, matching historical behaviour.
func NewApplier(repo Repository, policy UsagePolicy) *Applier {
	if policy == "" {
		policy = CountOnApply
	}
	return &Applier{repo: repo, policy: policy, now: time.Now}
}

// Validate checks the code against the stored coupon without mutating
// anything. Checks run in a fixed order and short-circuit on the first
// failure: not found, not yet valid, expired, usage limit, minimum order.
func (a *Applier) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Coupon, error) {
	c, err := a.repo.FindByCode(ctx, normalizeCode(code))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	now := a.now()
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return nil, ErrNotYetValid
	}
	if c.ValidTo != nil && now.After(*c.ValidTo) {
		return nil, ErrExpired
	}
	if c.MaxUses > 0 && c.UseCount >= c.MaxUses {
		return nil, ErrUsageLimitReached
	}
	if c.MinOrderValue.IsPositive() && subtotal.LessThan(c.MinOrderValue) {
		return nil, &BelowMinimumOrderError{Min: c.MinOrderValue}
	}

	return c, nil
}

// Apply validates the code, computes the discount, and counts the use when
// the policy is CountOnApply.
func (a *Applier) Apply(ctx context.Context, code string, subtotal decimal.Decimal) (*Result, error) {
	c, err := a.Validate(ctx, code, subtotal)
	if err != nil {
		return nil, err
	}

	if a.policy == CountOnApply {
		if err := a.repo.IncrementUses(ctx, c.Code); err != nil {
			return nil, errors.Wrap(err, "increment coupon uses")
		}
		c.UseCount++
	}

	return &Result{
		Coupon:   c,
		Discount: DiscountFor(c, subtotal),
	}, nil
}

// Confirm counts a use at payment confirmation time. It is a no-op under
// CountOnApply, where the use was already counted.
func (a *Applier) Confirm(ctx context.Context, code string) error {
	if a.policy != CountOnConfirm || code == "" {
		return nil
	}
	if err := a.repo.IncrementUses(ctx, normalizeCode(code)); err != nil {
		return errors.Wrap(err, "increment coupon uses")
	}
	return nil
}

// normalizeCode trims surrounding whitespace and uppercases the code so
// lookups are case-insensitive.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
