package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weeraset/conduit-store/internal/domain/coupon"
	"github.com/weeraset/conduit-store/internal/domain/order"
	"github.com/weeraset/conduit-store/internal/domain/product"
)

func seedStore(products ...product.Product) *Store {
	s := New()
	for _, p := range products {
		s.SeedProduct(p)
	}
	return s
}

func newOrder(lines ...order.Item) (*order.Order, *order.Payment) {
	orderID := uuid.New().String()
	for i := range lines {
		lines[i].ID = uuid.New().String()
		lines[i].OrderID = orderID
	}
	subtotal := order.Subtotal(lines)
	o := &order.Order{
		ID:            orderID,
		UserID:        "u1",
		Items:         lines,
		Subtotal:      subtotal,
		Total:         subtotal,
		Status:        order.StatusPending,
		PaymentStatus: order.PaymentUnpaid,
		CreatedAt:     time.Now(),
	}
	p := &order.Payment{
		ID:      uuid.New().String(),
		OrderID: orderID,
		Amount:  o.Total,
		Status:  order.PaymentUnpaid,
	}
	return o, p
}

func line(productID string, qty int, price string) order.Item {
	return order.Item{
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: decimal.RequireFromString(price),
	}
}

func TestCreate_DecrementsStock(t *testing.T) {
	s := seedStore(product.Product{ID: "lb-050", Name: "LB 1/2", Price: decimal.NewFromInt(95), StockQuantity: 10})

	o, p := newOrder(line("lb-050", 3, "95.00"))
	require.NoError(t, s.Orders().Create(context.Background(), o, p))

	assert.Equal(t, 7, s.StockQuantity("lb-050"))
}

func TestCreate_InsufficientStock(t *testing.T) {
	s := seedStore(product.Product{ID: "lb-050", StockQuantity: 2, Price: decimal.NewFromInt(95)})

	o, p := newOrder(line("lb-050", 3, "95.00"))
	err := s.Orders().Create(context.Background(), o, p)

	var stockErr *product.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)

	// Nothing was persisted.
	assert.Equal(t, 2, s.StockQuantity("lb-050"))
	_, err = s.Orders().GetByID(context.Background(), o.ID)
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestCreate_FailedLineLeavesNoPartialDecrement(t *testing.T) {
	s := seedStore(
		product.Product{ID: "a", StockQuantity: 10, Price: decimal.NewFromInt(10)},
		product.Product{ID: "b", StockQuantity: 1, Price: decimal.NewFromInt(10)},
	)

	o, p := newOrder(line("a", 5, "10.00"), line("b", 2, "10.00"))
	err := s.Orders().Create(context.Background(), o, p)
	require.Error(t, err)

	assert.Equal(t, 10, s.StockQuantity("a"), "first line must not be decremented when a later line fails")
	assert.Equal(t, 1, s.StockQuantity("b"))
}

func TestCreate_UnknownProduct(t *testing.T) {
	s := seedStore()

	o, p := newOrder(line("ghost", 1, "10.00"))
	err := s.Orders().Create(context.Background(), o, p)

	var pnfErr *order.ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, "ghost", pnfErr.ProductID)
}

func TestConcurrentCreate_StockNeverNegative(t *testing.T) {
	const stock = 50
	s := seedStore(product.Product{ID: "lb-050", StockQuantity: stock, Price: decimal.NewFromInt(95)})

	const workers = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, p := newOrder(line("lb-050", 1, "95.00"))
			if err := s.Orders().Create(context.Background(), o, p); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, stock, succeeded, "exactly the available stock may be sold")
	assert.Equal(t, 0, s.StockQuantity("lb-050"))
}

func TestConcurrentIncrementUses_NeverExceedsMax(t *testing.T) {
	const maxUses = 10
	s := New()
	s.SeedCoupon(coupon.Coupon{ID: "c1", Code: "LIMITED", MaxUses: maxUses})

	const workers = 80
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Coupons().IncrementUses(context.Background(), "LIMITED"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, maxUses, succeeded)
	assert.Equal(t, maxUses, s.CouponUseCount("LIMITED"))
}

func TestCouponLookup_CaseInsensitive(t *testing.T) {
	s := New()
	s.SeedCoupon(coupon.Coupon{ID: "c1", Code: "Save10", DiscountPercentage: decimal.RequireFromString("0.10")})

	c, err := s.Coupons().FindByCode(context.Background(), "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, "Save10", c.Code)

	_, err = s.Coupons().FindByCode(context.Background(), "NOPE")
	assert.ErrorIs(t, err, coupon.ErrNotFound)
}

func TestGetByID_ReturnsCopy(t *testing.T) {
	s := seedStore(product.Product{ID: "lb-050", StockQuantity: 10, Price: decimal.NewFromInt(95)})

	o, p := newOrder(line("lb-050", 1, "95.00"))
	require.NoError(t, s.Orders().Create(context.Background(), o, p))

	got, err := s.Orders().GetByID(context.Background(), o.ID)
	require.NoError(t, err)

	// Mutating the returned value must not leak into the store.
	got.Status = order.StatusCancelled
	got.Items[0].Quantity = 999

	again, err := s.Orders().GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, again.Status)
	assert.Equal(t, 1, again.Items[0].Quantity)
}

func TestList_NewestFirstAndPaginated(t *testing.T) {
	s := seedStore(product.Product{ID: "lb-050", StockQuantity: 100, Price: decimal.NewFromInt(95)})

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ids := make([]string, 5)
	for i := range 5 {
		o, p := newOrder(line("lb-050", 1, "95.00"))
		o.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.Orders().Create(context.Background(), o, p))
		ids[i] = o.ID
	}

	page1, err := s.Orders().List(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, page1.TotalCount)
	require.Len(t, page1.Orders, 2)
	assert.Equal(t, ids[4], page1.Orders[0].ID)
	assert.Equal(t, ids[3], page1.Orders[1].ID)

	page3, err := s.Orders().List(context.Background(), 3, 2)
	require.NoError(t, err)
	require.Len(t, page3.Orders, 1)
	assert.Equal(t, ids[0], page3.Orders[0].ID)

	// Out-of-range pages are empty, not errors.
	page9, err := s.Orders().List(context.Background(), 9, 2)
	require.NoError(t, err)
	assert.Empty(t, page9.Orders)
	assert.Equal(t, 5, page9.TotalCount)

	// Page below 1 is clamped to the first page.
	clamped, err := s.Orders().List(context.Background(), 0, 2)
	require.NoError(t, err)
	require.Len(t, clamped.Orders, 2)
	assert.Equal(t, ids[4], clamped.Orders[0].ID)
}

func TestUpdate_PartialFields(t *testing.T) {
	s := seedStore(product.Product{ID: "lb-050", StockQuantity: 10, Price: decimal.NewFromInt(95)})

	o, p := newOrder(line("lb-050", 1, "95.00"))
	require.NoError(t, s.Orders().Create(context.Background(), o, p))

	notes := "leave at the gate"
	got, err := s.Orders().Update(context.Background(), o.ID, order.Update{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, got.Notes)
	assert.Equal(t, order.StatusPending, got.Status, "unset fields stay unchanged")

	_, err = s.Orders().Update(context.Background(), "missing", order.Update{Notes: &notes})
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestDelete_RemovesOrderAndPayments(t *testing.T) {
	s := seedStore(product.Product{ID: "lb-050", StockQuantity: 10, Price: decimal.NewFromInt(95)})

	o, p := newOrder(line("lb-050", 1, "95.00"))
	require.NoError(t, s.Orders().Create(context.Background(), o, p))

	deleted, err := s.Orders().Delete(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = s.Orders().GetByID(context.Background(), o.ID)
	assert.ErrorIs(t, err, order.ErrNotFound)
	_, err = s.Payments().GetByOrderID(context.Background(), o.ID)
	assert.ErrorIs(t, err, order.ErrPaymentNotFound)

	deleted, err = s.Orders().Delete(context.Background(), o.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestMarkPaid_FlipsExactlyOnce(t *testing.T) {
	s := seedStore(product.Product{ID: "lb-050", StockQuantity: 10, Price: decimal.NewFromInt(95)})

	o, p := newOrder(line("lb-050", 1, "95.00"))
	require.NoError(t, s.Orders().Create(context.Background(), o, p))

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	flips := 0

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			flipped, err := s.Payments().MarkPaid(context.Background(), p.ID, time.Now())
			if err == nil && flipped {
				mu.Lock()
				flips++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, flips, "concurrent confirmations must flip the payment once")

	got, err := s.Payments().GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPaid, got.Status)
}

func TestProductList_SortedByID(t *testing.T) {
	s := seedStore(
		product.Product{ID: "z-999", Price: decimal.NewFromInt(1)},
		product.Product{ID: "a-001", Price: decimal.NewFromInt(1)},
		product.Product{ID: "m-500", Price: decimal.NewFromInt(1)},
	)

	products, err := s.Products().List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "a-001", products[0].ID)
	assert.Equal(t, "m-500", products[1].ID)
	assert.Equal(t, "z-999", products[2].ID)
}

func TestProductGetByIDs_SkipsMissing(t *testing.T) {
	s := seedStore(product.Product{ID: "lb-050", Price: decimal.NewFromInt(95)})

	products, err := s.Products().GetByIDs(context.Background(), []string{"lb-050", "ghost"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "lb-050", products[0].ID)
}
