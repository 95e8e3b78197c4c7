package memstore

import (
	"context"
	"strings"

	"github.com/weeraset/conduit-store/internal/domain/coupon"
)

type couponRepo struct {
	s *Store
}

// SeedCoupon inserts or replaces a coupon, keyed by its normalized code.
func (s *Store) SeedCoupon(c coupon.Coupon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coupons[couponKey(c.Code)] = c
}

// CouponUseCount reports the current use count for a code, or -1 if the
// coupon does not exist.
func (s *Store) CouponUseCount(code string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coupons[couponKey(code)]
	if !ok {
		return -1
	}
	return c.UseCount
}

func (r *couponRepo) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.coupons[couponKey(code)]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return &c, nil
}

func (r *couponRepo) IncrementUses(_ context.Context, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.coupons[couponKey(code)]
	if !ok {
		return coupon.ErrNotFound
	}
	if c.MaxUses > 0 && c.UseCount >= c.MaxUses {
		return coupon.ErrUsageLimitReached
	}
	c.UseCount++
	r.s.coupons[couponKey(code)] = c
	return nil
}

func couponKey(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
