package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/weeraset/conduit-store/internal/domain/coupon"
)

type applyCouponRequest struct {
	Code       string  `json:"code"`
	OrderTotal float64 `json:"orderTotal"`
}

// applyCoupon validates a coupon against the given order subtotal and
// returns the discount. Usage counting follows the configured policy, same
// as the checkout path.
func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		writeFailure(w, r, http.StatusBadRequest, "coupon code required")
		return
	}
	if req.OrderTotal < 0 {
		writeFailure(w, r, http.StatusBadRequest, "order total must not be negative")
		return
	}

	subtotal := decimal.NewFromFloat(req.OrderTotal)
	result, err := h.coupons.Apply(r.Context(), req.Code, subtotal)
	if err != nil {
		h.writeCouponError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("success", func(e *jx.Encoder) { e.Bool(true) })
			e.Field("discount", func(e *jx.Encoder) { e.Float64(result.Discount.Round(2).InexactFloat64()) })
			e.Field("coupon", func(e *jx.Encoder) { encodeCoupon(e, result.Coupon) })
		})
	})
}

func (h *Handler) writeCouponError(w http.ResponseWriter, r *http.Request, err error) {
	var minErr *coupon.BelowMinimumOrderError

	switch {
	case errors.Is(err, coupon.ErrNotFound):
		writeFailure(w, r, http.StatusNotFound, coupon.ErrNotFound.Error())
	case errors.As(err, &minErr):
		writeFailure(w, r, http.StatusUnprocessableEntity, minErr.Error())
	case errors.Is(err, coupon.ErrNotYetValid),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrUsageLimitReached):
		writeFailure(w, r, http.StatusUnprocessableEntity, couponMessage(err))
	default:
		writeInternal(w, r, err)
	}
}

func encodeCoupon(e *jx.Encoder, c *coupon.Coupon) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Str(c.Code) })
		if c.Description != "" {
			e.Field("description", func(e *jx.Encoder) { e.StrEscape(c.Description) })
		}
		if c.DiscountPercentage.IsPositive() {
			e.Field("discountPercentage", func(e *jx.Encoder) { e.Float64(c.DiscountPercentage.InexactFloat64()) })
		}
		if c.DiscountAmount.IsPositive() {
			e.Field("discountAmount", func(e *jx.Encoder) { e.Float64(c.DiscountAmount.InexactFloat64()) })
		}
		if c.MinOrderValue.IsPositive() {
			e.Field("minOrderValue", func(e *jx.Encoder) { e.Float64(c.MinOrderValue.InexactFloat64()) })
		}
	})
}
