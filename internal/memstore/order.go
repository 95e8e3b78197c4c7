package memstore

import (
	"context"
	"sort"

	"github.com/weeraset/conduit-store/internal/domain/order"
	"github.com/weeraset/conduit-store/internal/domain/product"
)

type orderRepo struct {
	s *Store
}

// Create checks and decrements stock for every line, then stores the order
// and its unpaid payment, all under one lock. An insufficient line leaves no
// partial decrement behind.
func (r *orderRepo) Create(_ context.Context, o *order.Order, p *order.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	// Validate every line before touching anything.
	for _, it := range o.Items {
		prod, ok := r.s.products[it.ProductID]
		if !ok {
			return &order.ProductNotFoundError{ProductID: it.ProductID}
		}
		if prod.StockQuantity < it.Quantity {
			return &product.InsufficientStockError{
				ProductID: it.ProductID,
				Requested: it.Quantity,
				Available: prod.StockQuantity,
			}
		}
	}

	for _, it := range o.Items {
		prod := r.s.products[it.ProductID]
		prod.StockQuantity -= it.Quantity
		r.s.products[it.ProductID] = prod
	}

	r.s.orderSeq++
	r.s.orders[o.ID] = orderRecord{Order: cloneOrder(o), seq: r.s.orderSeq}
	r.s.payments[p.ID] = *p
	return nil
}

func (r *orderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o := cloneOrder(&rec.Order)
	return &o, nil
}

func (r *orderRepo) List(_ context.Context, page, limit int) (*order.Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	recs := make([]orderRecord, 0, len(r.s.orders))
	for _, rec := range r.s.orders {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.After(recs[j].CreatedAt)
		}
		return recs[i].seq > recs[j].seq
	})

	total := len(recs)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	out := make([]order.Order, 0, end-start)
	for _, rec := range recs[start:end] {
		out = append(out, cloneOrder(&rec.Order))
	}
	return &order.Page{Orders: out, TotalCount: total}, nil
}

func (r *orderRepo) Update(_ context.Context, id string, u order.Update) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}

	if u.Status != nil {
		rec.Status = *u.Status
	}
	if u.PaymentStatus != nil {
		rec.PaymentStatus = *u.PaymentStatus
	}
	if u.InvoiceID != nil {
		rec.InvoiceID = *u.InvoiceID
	}
	if u.InvoiceURL != nil {
		rec.InvoiceURL = *u.InvoiceURL
	}
	if u.Notes != nil {
		rec.Notes = *u.Notes
	}

	r.s.orders[id] = rec
	o := cloneOrder(&rec.Order)
	return &o, nil
}

func (r *orderRepo) Delete(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.orders[id]; !ok {
		return false, nil
	}
	delete(r.s.orders, id)
	for pid, p := range r.s.payments {
		if p.OrderID == id {
			delete(r.s.payments, pid)
		}
	}
	return true, nil
}

// cloneOrder copies the order including its item slice and address so callers
// never alias store-internal state.
func cloneOrder(o *order.Order) order.Order {
	out := *o
	out.Items = make([]order.Item, len(o.Items))
	copy(out.Items, o.Items)
	if o.ShippingAddress != nil {
		addr := *o.ShippingAddress
		out.ShippingAddress = &addr
	}
	return out
}
