package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/weeraset/conduit-store/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT id, code, description, discount_percentage, discount_amount,
		valid_from, valid_to, min_order_value, max_uses, use_count
		FROM coupons WHERE UPPER(code) = UPPER($1) AND active = TRUE`

	// Guarded increment: the WHERE clause keeps use_count from ever passing
	// max_uses under concurrent redemption.
	incrementCouponUsesSQL = `UPDATE coupons SET use_count = use_count + 1
		WHERE UPPER(code) = UPPER($1) AND active = TRUE
		AND (max_uses = 0 OR use_count < max_uses)`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up an active coupon by its code (case-insensitive).
// Returns coupon.ErrNotFound when no matching active coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// IncrementUses atomically increments the usage counter for the given coupon
// code. The update is conditional on the usage cap, so a concurrent burst of
// redemptions cannot overshoot max_uses; the loser gets ErrUsageLimitReached.
func (r *CouponRepository) IncrementUses(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, incrementCouponUsesSQL, code)
	if err != nil {
		return fmt.Errorf("incrementing uses for coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrUsageLimitReached
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c         coupon.Coupon
		validFrom *time.Time
		validTo   *time.Time
		maxUses   int32
		useCount  int32
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &c.DiscountPercentage, &c.DiscountAmount,
		&validFrom, &validTo, &c.MinOrderValue, &maxUses, &useCount,
	)
	c.ValidFrom = validFrom
	c.ValidTo = validTo
	c.MaxUses = int(maxUses)
	c.UseCount = int(useCount)
	return c, err
}
