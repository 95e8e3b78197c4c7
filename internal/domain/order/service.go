package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/weeraset/conduit-store/internal/domain/coupon"
	"github.com/weeraset/conduit-store/internal/domain/product"
)

// Sentinel errors for order validation.
var (
	ErrEmptyItems = fmt.Errorf("items required")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// LineInput is one requested cart line.
type LineInput struct {
	ProductID string
	Quantity  int
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	UserID          string
	Items           []LineInput
	CouponCode      string
	ShippingAddress *Address
	Notes           string
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order   *Order
	Payment *Payment
}

// Service owns every order mutation: checkout, payment confirmation,
// lifecycle transitions, refunds, and invoice generation. Status fields are
// never written outside this type, so transition legality is enforced in one
// place.
type Service struct {
	products product.Repository
	coupons  coupon.Validator
	orders   Repository
	payments PaymentRepository

	invoiceBaseURL string
	now            func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
// invoiceBaseURL is the public prefix under which generated invoices are
// served.
func NewService(
	products product.Repository,
	coupons coupon.Validator,
	orders Repository,
	payments PaymentRepository,
	invoiceBaseURL string,
) *Service {
	return &Service{
		products:       products,
		coupons:        coupons,
		orders:         orders,
		payments:       payments,
		invoiceBaseURL: strings.TrimRight(invoiceBaseURL, "/"),
		now:            time.Now,
	}
}

// PlaceOrder validates the cart, prices every line at the current catalog
// price, applies an optional coupon, and persists the order together with
// its unpaid payment record. Stock is decremented inside the same atomic
// create; any line exceeding available stock fails the whole order.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, len(req.Items))
	for i, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: line.ProductID}
		}
		ids[i] = line.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	orderID := uuid.New().String()
	items := make([]Item, len(req.Items))
	for i, line := range req.Items {
		p, ok := productMap[line.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: line.ProductID}
		}
		items[i] = Item{
			ID:          uuid.New().String(),
			OrderID:     orderID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    line.Quantity,
			UnitPrice:   p.Price,
		}
	}

	subtotal := Subtotal(items)

	discount := decimal.Zero
	couponCode := ""
	if req.CouponCode != "" {
		res, err := s.coupons.Apply(ctx, req.CouponCode, subtotal)
		if err != nil {
			return nil, fmt.Errorf("apply coupon: %w", err)
		}
		discount = res.Discount.Round(2)
		couponCode = res.Coupon.Code
	}

	now := s.now()
	o := &Order{
		ID:              orderID,
		UserID:          req.UserID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		Subtotal:        subtotal,
		Discount:        discount,
		Total:           FinalTotal(subtotal, discount),
		CouponCode:      couponCode,
		Status:          StatusPending,
		PaymentStatus:   PaymentUnpaid,
		Notes:           req.Notes,
		CreatedAt:       now,
	}
	p := &Payment{
		ID:        uuid.New().String(),
		OrderID:   orderID,
		Amount:    o.Total,
		Status:    PaymentUnpaid,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.orders.Create(ctx, o, p); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return &PlaceOrderResult{Order: o, Payment: p}, nil
}

// ConfirmPayment reacts to an external "payment succeeded" signal. It marks
// the payment paid and drives the order to processing exactly once; calling
// it again for an already-paid payment is a harmless no-op that still
// reports the order id.
func (s *Service) ConfirmPayment(ctx context.Context, paymentID string) (orderID string, err error) {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return "", err
	}
	if p.Status == PaymentPaid {
		return p.OrderID, nil
	}

	flipped, err := s.payments.MarkPaid(ctx, p.ID, s.now())
	if err != nil {
		return "", fmt.Errorf("mark payment paid: %w", err)
	}
	if !flipped {
		// Lost a race with a concurrent confirmation; the winner already
		// advanced the order.
		return p.OrderID, nil
	}

	o, err := s.orders.GetByID(ctx, p.OrderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return p.OrderID, nil
		}
		return "", fmt.Errorf("get order %s: %w", p.OrderID, err)
	}

	paid := PaymentPaid
	u := Update{PaymentStatus: &paid}
	if CanTransition(o.Status, StatusProcessing) {
		processing := StatusProcessing
		u.Status = &processing
	}
	if _, err := s.orders.Update(ctx, o.ID, u); err != nil {
		return "", fmt.Errorf("advance order %s: %w", o.ID, err)
	}

	if o.CouponCode != "" {
		if err := s.coupons.Confirm(ctx, o.CouponCode); err != nil {
			return "", fmt.Errorf("confirm coupon use: %w", err)
		}
	}

	return o.ID, nil
}

// Transition moves an order to the target fulfillment status, consulting the
// lifecycle table. Setting the current status again is a no-op. Illegal moves
// return *InvalidTransitionError.
func (s *Service) Transition(ctx context.Context, id string, target Status) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == target {
		return o, nil
	}
	if !CanTransition(o.Status, target) {
		return nil, &InvalidTransitionError{From: string(o.Status), To: string(target)}
	}
	return s.orders.Update(ctx, id, Update{Status: &target})
}

// MarkRefunded records an explicit admin-triggered refund for a paid order.
func (s *Service) MarkRefunded(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransitionPayment(o.PaymentStatus, PaymentRefunded) {
		return nil, &InvalidTransitionError{From: string(o.PaymentStatus), To: string(PaymentRefunded)}
	}
	refunded := PaymentRefunded
	return s.orders.Update(ctx, id, Update{PaymentStatus: &refunded})
}

// CreateInvoice generates an invoice for the order, persisting its id and
// URL. Idempotent: an order that already carries an invoice URL gets the same
// URL back without a new invoice being created.
func (s *Service) CreateInvoice(ctx context.Context, id string) (invoiceURL string, err error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if o.InvoiceURL != "" {
		return o.InvoiceURL, nil
	}

	invoiceID := uuid.New().String()
	url := fmt.Sprintf("%s/%s.pdf", s.invoiceBaseURL, invoiceID)
	if _, err := s.orders.Update(ctx, id, Update{InvoiceID: &invoiceID, InvoiceURL: &url}); err != nil {
		return "", err
	}
	return url, nil
}
