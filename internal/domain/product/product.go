package product

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase. Display names are
// bilingual; NameTH may be empty for items without a Thai translation.
type Product struct {
	ID            string
	Name          string
	NameTH        string
	Category      string
	Price         decimal.Decimal
	StockQuantity int
}

// InsufficientStockError indicates an order line requested more units than
// the product has in stock.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Repository defines read operations for the product catalog. Stock decrement
// happens inside order creation and is not part of this contract.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
