package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/weeraset/conduit-store/internal/domain/order"
)

const (
	getPaymentByIDSQL = `SELECT id, order_id, amount, status, created_at, updated_at
		FROM payments WHERE id = $1`

	getPaymentByOrderIDSQL = `SELECT id, order_id, amount, status, created_at, updated_at
		FROM payments WHERE order_id = $1 ORDER BY created_at LIMIT 1`

	// Compare-and-set: only an unpaid payment flips to paid, so two
	// concurrent confirmations cannot both claim the flip.
	markPaymentPaidSQL = `UPDATE payments SET status = 'paid', updated_at = $2
		WHERE id = $1 AND status = 'unpaid'`
)

var _ order.PaymentRepository = (*PaymentRepository)(nil)

// PaymentRepository implements order.PaymentRepository backed by PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a PaymentRepository that uses the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// GetByID returns the payment or order.ErrPaymentNotFound.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*order.Payment, error) {
	rows, err := r.pool.Query(ctx, getPaymentByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting payment %q: %w", id, err)
	}
	return collectPayment(rows, id)
}

// GetByOrderID returns the payment for an order or order.ErrPaymentNotFound.
func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*order.Payment, error) {
	rows, err := r.pool.Query(ctx, getPaymentByOrderIDSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting payment for order %q: %w", orderID, err)
	}
	return collectPayment(rows, orderID)
}

// MarkPaid flips the payment to paid if it is still unpaid. Reports whether
// this call performed the flip; order.ErrPaymentNotFound when no such payment
// exists at all.
func (r *PaymentRepository) MarkPaid(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, markPaymentPaidSQL, id, at)
	if err != nil {
		return false, fmt.Errorf("marking payment %q paid: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// No row flipped: either the payment is already paid or it is missing.
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func collectPayment(rows pgx.Rows, key string) (*order.Payment, error) {
	p, err := pgx.CollectExactlyOneRow(rows, scanPayment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("scanning payment %q: %w", key, err)
	}
	return &p, nil
}

func scanPayment(row pgx.CollectableRow) (order.Payment, error) {
	var (
		p      order.Payment
		status string
	)
	err := row.Scan(&p.ID, &p.OrderID, &p.Amount, &status, &p.CreatedAt, &p.UpdatedAt)
	p.Status = order.PaymentStatus(status)
	return p, err
}
