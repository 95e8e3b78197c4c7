package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/weeraset/conduit-store/internal/domain/order"
)

// confirmPayment reacts to an external "payment succeeded" callback. Safe to
// retry: confirming an already-paid payment is a no-op returning success.
func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	orderID, err := h.orderSvc.ConfirmPayment(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, order.ErrPaymentNotFound) {
			writeFailure(w, r, http.StatusNotFound, order.ErrPaymentNotFound.Error())
			return
		}
		writeInternal(w, r, err)
		return
	}

	h.paymentsConfirmed.Add(r.Context(), 1)
	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("success", func(e *jx.Encoder) { e.Bool(true) })
			e.Field("orderId", func(e *jx.Encoder) { e.Str(orderID) })
		})
	})
}
