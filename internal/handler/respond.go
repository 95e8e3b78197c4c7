package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/weeraset/conduit-store/internal/domain/order"
)

// writeJSON encodes a response body with jx and writes it with the given
// status code. Encoding failures cannot happen with a closure encoder, so
// only the write itself is best effort.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, encode func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(e.Bytes()); err != nil {
		zctx.From(r.Context()).Debug("write response", zap.Error(err))
	}
}

// writeFailure writes the {success:false, error} envelope used for every
// expected failure mode.
func writeFailure(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("success", func(e *jx.Encoder) { e.Bool(false) })
			e.Field("error", func(e *jx.Encoder) { e.StrEscape(msg) })
		})
	})
}

// writeNotFound is the 404 shape for plain entity reads.
func writeNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusNotFound, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("error", func(e *jx.Encoder) { e.Str("not found") })
		})
	})
}

// writeInternal logs the unexpected error and writes a generic failure
// without leaking backend internals.
func writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	writeFailure(w, r, http.StatusInternalServerError, "internal error")
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("userId", func(e *jx.Encoder) { e.Str(o.UserID) })
		e.Field("subtotal", func(e *jx.Encoder) { e.Float64(o.Subtotal.InexactFloat64()) })
		e.Field("discount", func(e *jx.Encoder) { e.Float64(o.Discount.InexactFloat64()) })
		e.Field("totalAmount", func(e *jx.Encoder) { e.Float64(o.Total.InexactFloat64()) })
		if o.CouponCode != "" {
			e.Field("couponCode", func(e *jx.Encoder) { e.Str(o.CouponCode) })
		}
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("paymentStatus", func(e *jx.Encoder) { e.Str(string(o.PaymentStatus)) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range o.Items {
					encodeOrderItem(e, &o.Items[i])
				}
			})
		})
		if o.ShippingAddress != nil {
			e.Field("shippingAddress", func(e *jx.Encoder) {
				encodeAddress(e, o.ShippingAddress)
			})
		}
		if o.InvoiceID != "" {
			e.Field("invoiceId", func(e *jx.Encoder) { e.Str(o.InvoiceID) })
		}
		if o.InvoiceURL != "" {
			e.Field("invoiceUrl", func(e *jx.Encoder) { e.Str(o.InvoiceURL) })
		}
		if o.Notes != "" {
			e.Field("notes", func(e *jx.Encoder) { e.StrEscape(o.Notes) })
		}
		e.Field("createdAt", func(e *jx.Encoder) { e.Str(o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")) })
	})
}

func encodeOrderItem(e *jx.Encoder, it *order.Item) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(it.ID) })
		e.Field("productId", func(e *jx.Encoder) { e.Str(it.ProductID) })
		e.Field("productName", func(e *jx.Encoder) { e.StrEscape(it.ProductName) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
		e.Field("priceAtPurchase", func(e *jx.Encoder) { e.Float64(it.UnitPrice.InexactFloat64()) })
	})
}

func encodeAddress(e *jx.Encoder, a *order.Address) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("fullName", func(e *jx.Encoder) { e.StrEscape(a.FullName) })
		e.Field("phone", func(e *jx.Encoder) { e.StrEscape(a.Phone) })
		e.Field("line1", func(e *jx.Encoder) { e.StrEscape(a.Line1) })
		if a.Line2 != "" {
			e.Field("line2", func(e *jx.Encoder) { e.StrEscape(a.Line2) })
		}
		e.Field("district", func(e *jx.Encoder) { e.StrEscape(a.District) })
		e.Field("province", func(e *jx.Encoder) { e.StrEscape(a.Province) })
		e.Field("postalCode", func(e *jx.Encoder) { e.StrEscape(a.PostalCode) })
		if a.Country != "" {
			e.Field("country", func(e *jx.Encoder) { e.StrEscape(a.Country) })
		}
	})
}
