package memstore

import (
	"context"
	"time"

	"github.com/weeraset/conduit-store/internal/domain/order"
)

type paymentRepo struct {
	s *Store
}

func (r *paymentRepo) GetByID(_ context.Context, id string) (*order.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.payments[id]
	if !ok {
		return nil, order.ErrPaymentNotFound
	}
	return &p, nil
}

func (r *paymentRepo) GetByOrderID(_ context.Context, orderID string) (*order.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.payments {
		if p.OrderID == orderID {
			out := p
			return &out, nil
		}
	}
	return nil, order.ErrPaymentNotFound
}

func (r *paymentRepo) MarkPaid(_ context.Context, id string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.payments[id]
	if !ok {
		return false, order.ErrPaymentNotFound
	}
	if p.Status != order.PaymentUnpaid {
		return false, nil
	}
	p.Status = order.PaymentPaid
	p.UpdatedAt = at
	r.s.payments[id] = p
	return true, nil
}
