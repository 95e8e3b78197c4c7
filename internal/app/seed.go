package app

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/weeraset/conduit-store/internal/domain/coupon"
	"github.com/weeraset/conduit-store/internal/domain/product"
	"github.com/weeraset/conduit-store/internal/memstore"
)

// seedDemoData loads a small conduit fitting catalog and a few coupons so the
// in-memory backend is usable out of the box.
func seedDemoData(store *memstore.Store) {
	products := []product.Product{
		{ID: "lb-050", Name: `Conduit Body Type LB 1/2"`, NameTH: "คอนดูทบอดี้ แบบ LB ขนาด 1/2 นิ้ว", Category: "conduit-body", Price: decimal.NewFromFloat(95), StockQuantity: 120},
		{ID: "lb-075", Name: `Conduit Body Type LB 3/4"`, NameTH: "คอนดูทบอดี้ แบบ LB ขนาด 3/4 นิ้ว", Category: "conduit-body", Price: decimal.NewFromFloat(120), StockQuantity: 80},
		{ID: "ll-050", Name: `Conduit Body Type LL 1/2"`, NameTH: "คอนดูทบอดี้ แบบ LL ขนาด 1/2 นิ้ว", Category: "conduit-body", Price: decimal.NewFromFloat(95), StockQuantity: 60},
		{ID: "lr-050", Name: `Conduit Body Type LR 1/2"`, NameTH: "คอนดูทบอดี้ แบบ LR ขนาด 1/2 นิ้ว", Category: "conduit-body", Price: decimal.NewFromFloat(95), StockQuantity: 60},
		{ID: "t-075", Name: `Conduit Body Type T 3/4"`, NameTH: "คอนดูทบอดี้ แบบ T ขนาด 3/4 นิ้ว", Category: "conduit-body", Price: decimal.NewFromFloat(140), StockQuantity: 45},
		{ID: "c-100", Name: `Conduit Body Type C 1"`, NameTH: "คอนดูทบอดี้ แบบ C ขนาด 1 นิ้ว", Category: "conduit-body", Price: decimal.NewFromFloat(165), StockQuantity: 30},
		{ID: "cover-050", Name: `Conduit Body Cover 1/2" with Gasket`, NameTH: "ฝาครอบคอนดูทบอดี้ 1/2 นิ้ว พร้อมปะเก็น", Category: "accessory", Price: decimal.NewFromFloat(35), StockQuantity: 200},
	}
	for _, p := range products {
		store.SeedProduct(p)
	}

	year := time.Now().AddDate(1, 0, 0)
	coupons := []coupon.Coupon{
		{
			ID:                 "c-save10",
			Code:               "SAVE10",
			Description:        "10% off your order",
			DiscountPercentage: decimal.NewFromFloat(0.10),
			ValidTo:            &year,
		},
		{
			ID:             "c-flat50",
			Code:           "FLAT50",
			Description:    "50 baht off orders of 500 or more",
			DiscountAmount: decimal.NewFromInt(50),
			MinOrderValue:  decimal.NewFromInt(500),
			MaxUses:        100,
		},
		{
			ID:                 "c-grand",
			Code:               "GRANDOPEN",
			Description:        "Grand opening, 25% off, limited redemptions",
			DiscountPercentage: decimal.NewFromFloat(0.25),
			MaxUses:            10,
		},
	}
	for _, c := range coupons {
		store.SeedCoupon(c)
	}
}
