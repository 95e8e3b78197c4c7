// Package memstore provides in-memory implementations of every repository
// contract. It backs the service when no database URL is configured, and the
// unit tests. A single mutex serializes all read-modify-write sequences so
// stock decrement and coupon redemption behave exactly like the locked
// PostgreSQL paths.
package memstore

import (
	"sync"

	"github.com/weeraset/conduit-store/internal/domain/auth"
	"github.com/weeraset/conduit-store/internal/domain/coupon"
	"github.com/weeraset/conduit-store/internal/domain/order"
	"github.com/weeraset/conduit-store/internal/domain/product"
)

// Store is the shared in-memory state. Zero value is not usable; call New.
type Store struct {
	mu       sync.Mutex
	products map[string]product.Product
	coupons  map[string]coupon.Coupon // keyed by normalized code
	orders   map[string]orderRecord
	payments map[string]order.Payment
	apikeys  map[string]auth.APIKeyInfo // keyed by key hash

	orderSeq int // creation counter, tie-breaker for listing
}

type orderRecord struct {
	order.Order
	seq int
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		products: make(map[string]product.Product),
		coupons:  make(map[string]coupon.Coupon),
		orders:   make(map[string]orderRecord),
		payments: make(map[string]order.Payment),
		apikeys:  make(map[string]auth.APIKeyInfo),
	}
}

// Products returns the product repository view of the store.
func (s *Store) Products() product.Repository { return &productRepo{s: s} }

// Coupons returns the coupon repository view of the store.
func (s *Store) Coupons() coupon.Repository { return &couponRepo{s: s} }

// Orders returns the order repository view of the store.
func (s *Store) Orders() order.Repository { return &orderRepo{s: s} }

// Payments returns the payment repository view of the store.
func (s *Store) Payments() order.PaymentRepository { return &paymentRepo{s: s} }

// APIKeys returns the API key repository view of the store.
func (s *Store) APIKeys() auth.Repository { return &apiKeyRepo{s: s} }
