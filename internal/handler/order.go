package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/weeraset/conduit-store/internal/domain/coupon"
	"github.com/weeraset/conduit-store/internal/domain/order"
	"github.com/weeraset/conduit-store/internal/domain/product"
)

type createOrderRequest struct {
	UserID          string             `json:"userId"`
	Items           []orderItemRequest `json:"items"`
	CouponCode      string             `json:"couponCode"`
	ShippingAddress *addressRequest    `json:"shippingAddress"`
	Notes           string             `json:"notes"`
}

type orderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type addressRequest struct {
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	District   string `json:"district"`
	Province   string `json:"province"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type updateOrderRequest struct {
	Status        *string `json:"status"`
	PaymentStatus *string `json:"paymentStatus"`
	Notes         *string `json:"notes"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]order.LineInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.LineInput{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	result, err := h.orderSvc.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		UserID:          req.UserID,
		Items:           items,
		CouponCode:      req.CouponCode,
		ShippingAddress: req.ShippingAddress.toDomain(),
		Notes:           req.Notes,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	h.ordersPlaced.Add(r.Context(), 1)
	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("success", func(e *jx.Encoder) { e.Bool(true) })
			e.Field("orderId", func(e *jx.Encoder) { e.Str(result.Order.ID) })
			e.Field("paymentId", func(e *jx.Encoder) { e.Str(result.Payment.ID) })
			e.Field("order", func(e *jx.Encoder) { encodeOrder(e, result.Order) })
		})
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeNotFound(w, r)
			return
		}
		writeInternal(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("order", func(e *jx.Encoder) { encodeOrder(e, o) })
		})
	})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)

	pageResult, err := h.orders.List(r.Context(), page, limit)
	if err != nil {
		writeInternal(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("orders", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for i := range pageResult.Orders {
						encodeOrder(e, &pageResult.Orders[i])
					}
				})
			})
			e.Field("totalCount", func(e *jx.Encoder) { e.Int(pageResult.TotalCount) })
		})
	})
}

// updateOrder applies a partial admin update. Status and payment-status
// changes go through the lifecycle state machine; there is no direct
// field-level status write.
func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		o   *order.Order
		err error
	)
	switch {
	case req.Status != nil:
		target := order.Status(*req.Status)
		if !order.ValidStatus(target) {
			writeFailure(w, r, http.StatusBadRequest, "unknown status: "+*req.Status)
			return
		}
		o, err = h.orderSvc.Transition(r.Context(), id, target)
	case req.PaymentStatus != nil:
		if order.PaymentStatus(*req.PaymentStatus) != order.PaymentRefunded {
			writeFailure(w, r, http.StatusBadRequest, "payment status can only be set to refunded")
			return
		}
		o, err = h.orderSvc.MarkRefunded(r.Context(), id)
	case req.Notes != nil:
		o, err = h.orders.Update(r.Context(), id, order.Update{Notes: req.Notes})
	default:
		writeFailure(w, r, http.StatusBadRequest, "no updatable fields provided")
		return
	}

	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeNotFound(w, r)
			return
		}
		var itErr *order.InvalidTransitionError
		if errors.As(err, &itErr) {
			writeFailure(w, r, http.StatusBadRequest, itErr.Error())
			return
		}
		writeInternal(w, r, err)
		return
	}

	// Notes-only updates may arrive together with a status change; apply
	// them after the transition so both land.
	if req.Notes != nil && (req.Status != nil || req.PaymentStatus != nil) {
		if o, err = h.orders.Update(r.Context(), id, order.Update{Notes: req.Notes}); err != nil {
			writeInternal(w, r, err)
			return
		}
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("success", func(e *jx.Encoder) { e.Bool(true) })
			e.Field("order", func(e *jx.Encoder) { encodeOrder(e, o) })
		})
	})
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.orders.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeInternal(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("success", func(e *jx.Encoder) { e.Bool(true) })
			e.Field("deleted", func(e *jx.Encoder) { e.Bool(deleted) })
		})
	})
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	url, err := h.orderSvc.CreateInvoice(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeNotFound(w, r)
			return
		}
		writeInternal(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("success", func(e *jx.Encoder) { e.Bool(true) })
			e.Field("invoiceUrl", func(e *jx.Encoder) { e.Str(url) })
		})
	})
}

// writeOrderError maps checkout errors onto status codes: malformed carts are
// 400, business rule violations are 422, anything else is internal.
func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		iqErr    *order.InvalidQuantityError
		pnfErr   *order.ProductNotFoundError
		stockErr *product.InsufficientStockError
		minErr   *coupon.BelowMinimumOrderError
	)

	switch {
	case errors.Is(err, order.ErrEmptyItems):
		writeFailure(w, r, http.StatusBadRequest, order.ErrEmptyItems.Error())
	case errors.As(err, &iqErr):
		writeFailure(w, r, http.StatusBadRequest, iqErr.Error())
	case errors.As(err, &pnfErr):
		writeFailure(w, r, http.StatusUnprocessableEntity, pnfErr.Error())
	case errors.As(err, &stockErr):
		writeFailure(w, r, http.StatusUnprocessableEntity, stockErr.Error())
	case errors.As(err, &minErr):
		writeFailure(w, r, http.StatusUnprocessableEntity, minErr.Error())
	case errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, coupon.ErrNotYetValid),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrUsageLimitReached):
		writeFailure(w, r, http.StatusUnprocessableEntity, couponMessage(err))
	default:
		writeInternal(w, r, err)
	}
}

// couponMessage unwraps the sentinel so envelopes carry the domain message
// without the "apply coupon:" prefix added by the service.
func couponMessage(err error) string {
	for _, sentinel := range []error{
		coupon.ErrNotFound, coupon.ErrNotYetValid, coupon.ErrExpired, coupon.ErrUsageLimitReached,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func (a *addressRequest) toDomain() *order.Address {
	if a == nil {
		return nil
	}
	return &order.Address{
		FullName:   a.FullName,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		District:   a.District,
		Province:   a.Province,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
