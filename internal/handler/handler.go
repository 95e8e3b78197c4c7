// Package handler exposes the storefront core over an HTTP JSON API.
// Handlers are thin: they decode requests, delegate to domain services, and
// map domain errors onto {success:false, error} envelopes with transport
// status codes. Expected failures never surface as panics or bare 500s.
package handler

import (
	"net/http"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/weeraset/conduit-store/internal/domain/coupon"
	"github.com/weeraset/conduit-store/internal/domain/order"
	"github.com/weeraset/conduit-store/internal/domain/product"
)

// Handler serves the storefront API.
type Handler struct {
	products product.Repository
	coupons  *coupon.Applier
	orders   order.Repository
	orderSvc *order.Service

	ordersPlaced      metric.Int64Counter
	paymentsConfirmed metric.Int64Counter
}

// NewHandler constructs a Handler with the required domain dependencies.
// A nil MeterProvider disables metrics.
func NewHandler(
	products product.Repository,
	coupons *coupon.Applier,
	orders order.Repository,
	orderSvc *order.Service,
	mp metric.MeterProvider,
) (*Handler, error) {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter("conduit-store/handler")

	ordersPlaced, err := meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders successfully placed"))
	if err != nil {
		return nil, err
	}
	paymentsConfirmed, err := meter.Int64Counter("payments.confirmed",
		metric.WithDescription("Payment confirmations processed"))
	if err != nil {
		return nil, err
	}

	return &Handler{
		products:          products,
		coupons:           coupons,
		orders:            orders,
		orderSvc:          orderSvc,
		ordersPlaced:      ordersPlaced,
		paymentsConfirmed: paymentsConfirmed,
	}, nil
}

// Register mounts all API routes on mux. Routes wrapped with admin require a
// valid API key; pass NoAuth for an open deployment.
func (h *Handler) Register(mux *http.ServeMux, admin func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)

	mux.HandleFunc("POST /api/orders", h.createOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("POST /api/orders/{id}/invoice", h.createInvoice)

	mux.Handle("GET /api/orders", admin(http.HandlerFunc(h.listOrders)))
	mux.Handle("PATCH /api/orders/{id}", admin(http.HandlerFunc(h.updateOrder)))
	mux.Handle("DELETE /api/orders/{id}", admin(http.HandlerFunc(h.deleteOrder)))

	mux.HandleFunc("POST /api/coupons/apply", h.applyCoupon)
	mux.HandleFunc("POST /api/payments/{id}/confirm", h.confirmPayment)
}
