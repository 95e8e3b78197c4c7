package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Order is the durable record of a customer's purchase and its line items.
// Monetary fields are fixed at creation time; later catalog price changes do
// not alter a placed order.
type Order struct {
	ID              string
	UserID          string
	Items           []Item
	ShippingAddress *Address

	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
	CouponCode string

	Status        Status
	PaymentStatus PaymentStatus

	InvoiceID  string
	InvoiceURL string
	Notes      string

	CreatedAt time.Time
}

// Item is a single order line. Immutable after creation: UnitPrice is the
// price at purchase time, not a reference into the catalog.
type Item struct {
	ID          string
	OrderID     string
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// Address is the shipping destination for an order.
type Address struct {
	FullName   string
	Phone      string
	Line1      string
	Line2      string
	District   string
	Province   string
	PostalCode string
	Country    string
}

// Update carries a partial order mutation. Nil fields are left unchanged.
// Status legality is the caller's job (see Service.Transition); repositories
// apply whatever they are given.
type Update struct {
	Status        *Status
	PaymentStatus *PaymentStatus
	InvoiceID     *string
	InvoiceURL    *string
	Notes         *string
}

// Page is one page of an order listing along with the unpaginated total.
type Page struct {
	Orders     []Order
	TotalCount int
}

// Repository defines persistence operations for orders. Both the PostgreSQL
// and the in-memory implementation must satisfy identical behaviour.
type Repository interface {
	// Create persists the order, its items, and the associated unpaid
	// payment record, decrementing stock for every line, all atomically.
	// Insufficient stock for any line fails the whole operation with a
	// *product.InsufficientStockError and leaves no partial state.
	Create(ctx context.Context, o *Order, p *Payment) error

	// GetByID returns the order or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Order, error)

	// List returns a page of orders, newest first. Pagination is 1-indexed;
	// page values below 1 are treated as 1.
	List(ctx context.Context, page, limit int) (*Page, error)

	// Update applies the non-nil fields of u and returns the updated order,
	// or ErrNotFound if the order does not exist.
	Update(ctx context.Context, id string, u Update) (*Order, error)

	// Delete removes the order, its items, and its payments, reporting
	// whether anything was actually removed.
	Delete(ctx context.Context, id string) (bool, error)
}
