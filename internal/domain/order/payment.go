package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrPaymentNotFound is returned when a payment record does not exist.
var ErrPaymentNotFound = errors.New("payment not found")

// Payment tracks whether the money for an order has been captured. Exactly
// one payment record is created per order, in unpaid state, when the order is
// placed.
type Payment struct {
	ID        string
	OrderID   string
	Amount    decimal.Decimal
	Status    PaymentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaymentRepository defines persistence for payment records.
type PaymentRepository interface {
	// GetByID returns the payment or ErrPaymentNotFound.
	GetByID(ctx context.Context, id string) (*Payment, error)

	// GetByOrderID returns the payment for an order or ErrPaymentNotFound.
	GetByOrderID(ctx context.Context, orderID string) (*Payment, error)

	// MarkPaid flips the payment to paid if and only if it is still unpaid,
	// updating its timestamp. It reports whether this call performed the
	// flip, so a concurrent double confirmation fires side effects once.
	MarkPaid(ctx context.Context, id string, at time.Time) (flipped bool, err error)
}
