package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/weeraset/conduit-store/internal/domain/order"
	"github.com/weeraset/conduit-store/internal/domain/product"
)

const (
	// Guarded decrement: refuses to drive stock below zero. Zero rows
	// affected means the line oversells and the transaction must roll back.
	decrementStockSQL = `UPDATE products SET stock_quantity = stock_quantity - $2
		WHERE id = $1 AND stock_quantity >= $2`

	getStockSQL = `SELECT stock_quantity FROM products WHERE id = $1`

	insertOrderSQL = `INSERT INTO orders (id, user_id, subtotal, discount, total, coupon_code,
		status, payment_status, shipping_address, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6)`

	insertPaymentSQL = `INSERT INTO payments (id, order_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	orderColumns = `id, user_id, subtotal, discount, total, coupon_code,
		status, payment_status, shipping_address, invoice_id, invoice_url, notes, created_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`

	countOrdersSQL = `SELECT count(*) FROM orders`

	getOrderItemsSQL = `SELECT id, order_id, product_id, product_name, quantity, unit_price
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`

	updateOrderSQL = `UPDATE orders SET
		status = COALESCE($2, status),
		payment_status = COALESCE($3, payment_status),
		invoice_id = COALESCE($4, invoice_id),
		invoice_url = COALESCE($5, invoice_url),
		notes = COALESCE($6, notes)
		WHERE id = $1
		RETURNING ` + orderColumns

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order header, its items, and the unpaid payment record
// in a single transaction, decrementing stock for every line. Any line that
// would drive stock negative aborts the whole transaction with a
// *product.InsufficientStockError.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, p *order.Payment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create order: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	for _, it := range o.Items {
		tag, err := tx.Exec(ctx, decrementStockSQL, it.ProductID, it.Quantity)
		if err != nil {
			return fmt.Errorf("decrementing stock for product %q: %w", it.ProductID, err)
		}
		if tag.RowsAffected() == 0 {
			available := 0
			if err := tx.QueryRow(ctx, getStockSQL, it.ProductID).Scan(&available); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return &order.ProductNotFoundError{ProductID: it.ProductID}
				}
				return fmt.Errorf("reading stock for product %q: %w", it.ProductID, err)
			}
			return &product.InsufficientStockError{
				ProductID: it.ProductID,
				Requested: it.Quantity,
				Available: available,
			}
		}
	}

	addr, err := marshalAddress(o.ShippingAddress)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.UserID, o.Subtotal, o.Discount, o.Total, o.CouponCode,
		string(o.Status), string(o.PaymentStatus), addr, o.Notes, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, insertOrderItemSQL,
			it.ID, o.ID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("creating item for order %q: %w", o.ID, err)
		}
	}

	_, err = tx.Exec(ctx, insertPaymentSQL,
		p.ID, p.OrderID, p.Amount, string(p.Status), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating payment for order %q: %w", o.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}
	return nil
}

// GetByID returns the order with its items, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	if err := r.attachItems(ctx, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// List returns one page of orders, newest first, along with the unpaginated
// total count. Page values below 1 are treated as 1.
func (r *OrderRepository) List(ctx context.Context, page, limit int) (*order.Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	var total int
	if err := r.pool.QueryRow(ctx, countOrdersSQL).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting orders: %w", err)
	}

	rows, err := r.pool.Query(ctx, listOrdersSQL, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	refs := make([]*order.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := r.attachItems(ctx, refs); err != nil {
		return nil, err
	}

	return &order.Page{Orders: orders, TotalCount: total}, nil
}

// Update applies the non-nil fields of u and returns the updated order.
// Returns order.ErrNotFound if no such order exists.
func (r *OrderRepository) Update(ctx context.Context, id string, u order.Update) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, updateOrderSQL,
		id,
		statusArg(u.Status), paymentStatusArg(u.PaymentStatus),
		u.InvoiceID, u.InvoiceURL, u.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("updating order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("updating order %q: %w", id, err)
	}

	if err := r.attachItems(ctx, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// Delete removes the order; items and payments go with it via ON DELETE
// CASCADE. Reports whether a row was actually removed.
func (r *OrderRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return false, fmt.Errorf("deleting order %q: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// attachItems loads and assigns items for the given orders in one query.
func (r *OrderRepository) attachItems(ctx context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[string]*order.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := r.pool.Query(ctx, getOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("loading order items: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return fmt.Errorf("loading order items: %w", err)
	}

	for _, it := range items {
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		status        string
		paymentStatus string
		addr          []byte
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.Subtotal, &o.Discount, &o.Total, &o.CouponCode,
		&status, &paymentStatus, &addr, &o.InvoiceID, &o.InvoiceURL, &o.Notes, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}
	o.Status = order.Status(status)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	if len(addr) > 0 {
		var a order.Address
		if err := json.Unmarshal(addr, &a); err != nil {
			return o, fmt.Errorf("unmarshaling shipping address for order %q: %w", o.ID, err)
		}
		o.ShippingAddress = &a
	}
	return o, nil
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice)
	return it, err
}

func marshalAddress(a *order.Address) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshaling shipping address: %w", err)
	}
	return b, nil
}

func statusArg(s *order.Status) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func paymentStatusArg(s *order.PaymentStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}
