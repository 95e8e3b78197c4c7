package handler

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weeraset/conduit-store/internal/domain/auth"
	"github.com/weeraset/conduit-store/internal/domain/coupon"
	"github.com/weeraset/conduit-store/internal/domain/order"
	"github.com/weeraset/conduit-store/internal/domain/product"
	"github.com/weeraset/conduit-store/internal/memstore"
)

// newTestServer wires the full stack (handler, services, in-memory store)
// behind an httptest server, open admin routes.
func newTestServer(t *testing.T, policy coupon.UsagePolicy) (*httptest.Server, *memstore.Store) {
	t.Helper()

	store := memstore.New()
	store.SeedProduct(product.Product{
		ID: "lb-050", Name: "Conduit Body Type LB 1/2\"", NameTH: "คอนดูทบอดี้ LB",
		Category: "conduit-body", Price: decimal.RequireFromString("95.00"), StockQuantity: 10,
	})
	store.SeedProduct(product.Product{
		ID: "cover-050", Name: "Conduit Body Cover 1/2\"",
		Category: "accessory", Price: decimal.RequireFromString("35.00"), StockQuantity: 20,
	})
	store.SeedCoupon(coupon.Coupon{
		ID: "c-save10", Code: "SAVE10",
		DiscountPercentage: decimal.RequireFromString("0.10"),
	})
	store.SeedCoupon(coupon.Coupon{
		ID: "c-flat50", Code: "FLAT50",
		DiscountAmount: decimal.NewFromInt(50),
		MinOrderValue:  decimal.NewFromInt(500),
	})

	applier := coupon.NewApplier(store.Coupons(), policy)
	svc := order.NewService(store.Products(), applier, store.Orders(), store.Payments(), "https://invoices.example.com")

	h, err := NewHandler(store.Products(), applier, store.Orders(), svc, nil)
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux, NoAuth)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, store
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func placeOrder(t *testing.T, srv *httptest.Server, body map[string]any) map[string]any {
	t.Helper()
	resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/api/orders", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", decoded)
	return decoded
}

func TestListProducts(t *testing.T) {
	srv, _ := newTestServer(t, coupon.CountOnApply)

	resp, err := http.Get(srv.URL + "/api/products")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var products []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
	require.Len(t, products, 2)
	assert.Equal(t, "cover-050", products[0]["id"])
	assert.Equal(t, "lb-050", products[1]["id"])
	assert.Equal(t, "คอนดูทบอดี้ LB", products[1]["nameTh"])
}

func TestGetProduct_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, coupon.CountOnApply)

	resp, err := http.Get(srv.URL + "/api/products/ghost")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateOrder(t *testing.T) {
	srv, store := newTestServer(t, coupon.CountOnApply)

	decoded := placeOrder(t, srv, map[string]any{
		"userId": "u1",
		"items": []map[string]any{
			{"productId": "lb-050", "quantity": 2},
			{"productId": "cover-050", "quantity": 1},
		},
		"shippingAddress": map[string]any{
			"fullName": "Somchai J.", "phone": "0812345678",
			"line1": "99/1 Moo 4", "district": "Mueang", "province": "Nonthaburi",
			"postalCode": "11000", "country": "TH",
		},
	})

	assert.Equal(t, true, decoded["success"])
	assert.NotEmpty(t, decoded["orderId"])
	assert.NotEmpty(t, decoded["paymentId"])

	o := decoded["order"].(map[string]any)
	assert.InDelta(t, 225.0, o["subtotal"], 0.001)
	assert.InDelta(t, 225.0, o["totalAmount"], 0.001)
	assert.Equal(t, "pending", o["status"])
	assert.Equal(t, "unpaid", o["paymentStatus"])
	addr := o["shippingAddress"].(map[string]any)
	assert.Equal(t, "Somchai J.", addr["fullName"])

	assert.Equal(t, 8, store.StockQuantity("lb-050"))
	assert.Equal(t, 19, store.StockQuantity("cover-050"))
}

func TestCreateOrder_WithCoupon(t *testing.T) {
	srv, store := newTestServer(t, coupon.CountOnApply)

	decoded := placeOrder(t, srv, map[string]any{
		"userId":     "u1",
		"items":      []map[string]any{{"productId": "lb-050", "quantity": 2}},
		"couponCode": "save10",
	})

	o := decoded["order"].(map[string]any)
	assert.InDelta(t, 190.0, o["subtotal"], 0.001)
	assert.InDelta(t, 19.0, o["discount"], 0.001)
	assert.InDelta(t, 171.0, o["totalAmount"], 0.001)
	assert.Equal(t, "SAVE10", o["couponCode"])

	assert.Equal(t, 1, store.CouponUseCount("SAVE10"))
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	srv, _ := newTestServer(t, coupon.CountOnApply)

	resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/api/orders", map[string]any{
		"userId": "u1",
		"items":  []map[string]any{},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, decoded["success"])
	assert.Equal(t, "items required", decoded["error"])
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	srv, store := newTestServer(t, coupon.CountOnApply)

	resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/api/orders", map[string]any{
		"userId": "u1",
		"items":  []map[string]any{{"productId": "lb-050", "quantity": 99}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, false, decoded["success"])
	assert.Contains(t, decoded["error"], "insufficient stock")

	assert.Equal(t, 10, store.StockQuantity("lb-050"))
}

func TestCreateOrder_UnknownCoupon(t *testing.T) {
	srv, _ := newTestServer(t, coupon.CountOnApply)

	resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/api/orders", map[string]any{
		"userId":     "u1",
		"items":      []map[string]any{{"productId": "lb-050", "quantity": 1}},
		"couponCode": "NOPE",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "coupon not found", decoded["error"])
}

func TestCreateOrder_BelowMinimumOrder(t *testing.T) {
	srv, _ := newTestServer(t, coupon.CountOnApply)

	resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/api/orders", map[string]any{
		"userId":     "u1",
		"items":      []map[string]any{{"productId": "cover-050", "quantity": 1}},
		"couponCode": "FLAT50",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, decoded["error"], "minimum order value")
}

func TestGetOrder(t *testing.T) {
	srv, _ := newTestServer(t, coupon.CountOnApply)

	created := placeOrder(t, srv, map[string]any{
		"userId": "u1",
		"items":  []map[string]any{{"productId": "lb-050", "quantity": 1}},
	})
	orderID := created["orderId"].(string)

	resp, decoded := doJSON(t, http.MethodGet, srv.URL+"/api/orders/"+orderID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	o := decoded["order"].(map[string]any)
	assert.Equal(t, orderID, o["id"])

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/orders/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListOrders_Paginated(t *testing.T) {
	srv, _ := newTestServer(t, coupon.CountOnApply)

	for range 3 {
		placeOrder(t, srv, map[string]any{
			"userId": "u1",
			"items":  []map[string]any{{"productId": "cover-050", "quantity": 1}},
		})
	}

	resp, decoded := doJSON(t, http.MethodGet, srv.URL+"/api/orders?page=1&limit=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 3, decoded["totalCount"])
	assert.Len(t, decoded["orders"].([]any), 2)
}

func TestUpdateOrder_Lifecycle(t *testing.T) {
	srv, _ := newTestServer(t, coupon.CountOnApply)

	created := placeOrder(t, srv, map[string]any{
		"userId": "u1",
		"items":  []map[string]any{{"productId": "lb-050", "quantity": 1}},
	})
	orderID := created["orderId"].(string)
	url := srv.URL + "/api/orders/" + orderID

	resp, decoded := doJSON(t, http.MethodPatch, url, map[string]any{"status": "processing"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "processing", decoded["order"].(map[string]any)["status"])

	// Skipping ahead is rejected by the state machine.
	resp, decoded = doJSON(t, http.MethodPatch, url, map[string]any{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decoded["error"], "invalid transition")

	resp, decoded = doJSON(t, http.MethodPatch, url, map[string]any{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decoded["error"], "unknown status")

	resp, decoded = doJSON(t, http.MethodPatch, url, map[string]any{"notes": "rush delivery"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "rush delivery", decoded["order"].(map[string]any)["notes"])
}

func TestDeleteOrder(t *testing.T) {
	srv, _ := newTestServer(t, coupon.CountOnApply)

	created := placeOrder(t, srv, map[string]any{
		"userId": "u1",
		"items":  []map[string]any{{"productId": "lb-050", "quantity": 1}},
	})
	orderID := created["orderId"].(string)

	resp, decoded := doJSON(t, http.MethodDelete, srv.URL+"/api/orders/"+orderID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decoded["deleted"])

	resp, decoded = doJSON(t, http.MethodDelete, srv.URL+"/api/orders/"+orderID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decoded["deleted"])
}

func TestApplyCoupon(t *testing.T) {
	srv, _ := newTestServer(t, coupon.CountOnApply)

	resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/api/coupons/apply", map[string]any{
		"code": "SAVE10", "orderTotal": 250.0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decoded["success"])
	assert.InDelta(t, 25.0, decoded["discount"], 0.001)
	c := decoded["coupon"].(map[string]any)
	assert.Equal(t, "SAVE10", c["code"])

	resp, decoded = doJSON(t, http.MethodPost, srv.URL+"/api/coupons/apply", map[string]any{
		"code": "NOPE", "orderTotal": 100.0,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, false, decoded["success"])

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/coupons/apply", map[string]any{
		"code": "", "orderTotal": 100.0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConfirmPayment_FullFlow(t *testing.T) {
	srv, _ := newTestServer(t, coupon.CountOnApply)

	created := placeOrder(t, srv, map[string]any{
		"userId": "u1",
		"items":  []map[string]any{{"productId": "lb-050", "quantity": 1}},
	})
	orderID := created["orderId"].(string)
	paymentID := created["paymentId"].(string)

	confirmURL := fmt.Sprintf("%s/api/payments/%s/confirm", srv.URL, paymentID)
	resp, decoded := doJSON(t, http.MethodPost, confirmURL, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decoded["success"])
	assert.Equal(t, orderID, decoded["orderId"])

	// Retrying is a no-op that still succeeds.
	resp, decoded = doJSON(t, http.MethodPost, confirmURL, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decoded["success"])

	_, decoded = doJSON(t, http.MethodGet, srv.URL+"/api/orders/"+orderID, nil)
	o := decoded["order"].(map[string]any)
	assert.Equal(t, "processing", o["status"])
	assert.Equal(t, "paid", o["paymentStatus"])
}

func TestConfirmPayment_CountOnConfirmPolicy(t *testing.T) {
	srv, store := newTestServer(t, coupon.CountOnConfirm)

	created := placeOrder(t, srv, map[string]any{
		"userId":     "u1",
		"items":      []map[string]any{{"productId": "lb-050", "quantity": 2}},
		"couponCode": "SAVE10",
	})
	assert.Equal(t, 0, store.CouponUseCount("SAVE10"), "no use counted before payment")

	paymentID := created["paymentId"].(string)
	confirmURL := fmt.Sprintf("%s/api/payments/%s/confirm", srv.URL, paymentID)

	for range 2 {
		resp, _ := doJSON(t, http.MethodPost, confirmURL, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.Equal(t, 1, store.CouponUseCount("SAVE10"), "confirmation counts the use exactly once")
}

func TestConfirmPayment_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, coupon.CountOnApply)

	resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/api/payments/ghost/confirm", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, false, decoded["success"])
}

func TestCreateInvoice_Idempotent(t *testing.T) {
	srv, _ := newTestServer(t, coupon.CountOnApply)

	created := placeOrder(t, srv, map[string]any{
		"userId": "u1",
		"items":  []map[string]any{{"productId": "lb-050", "quantity": 1}},
	})
	url := srv.URL + "/api/orders/" + created["orderId"].(string) + "/invoice"

	resp, first := doJSON(t, http.MethodPost, url, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	firstURL := first["invoiceUrl"].(string)
	assert.Contains(t, firstURL, "https://invoices.example.com/")

	resp, second := doJSON(t, http.MethodPost, url, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, firstURL, second["invoiceUrl"])
}

// authInfoForKey hashes a plaintext key the way seed-db stores it.
func authInfoForKey(key string, pepper []byte) auth.APIKeyInfo {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return auth.APIKeyInfo{
		ID:      "test",
		KeyHash: hex.EncodeToString(mac.Sum(nil)),
		Name:    "test key",
		Scopes:  []string{"orders:admin"},
	}
}

func TestAPIKeyAuth(t *testing.T) {
	store := memstore.New()
	pepper := []byte("test-pepper")
	store.SeedAPIKey(authInfoForKey("valid-key", pepper))

	protected := APIKeyAuth(store.APIKeys(), pepper)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	srv := httptest.NewServer(protected)
	t.Cleanup(srv.Close)

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "missing key")

	req.Header.Set("api_key", "wrong-key")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "wrong key")

	req.Header.Set("api_key", "valid-key")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "valid key")
}

func TestOrderTimestampsAreUTC(t *testing.T) {
	srv, _ := newTestServer(t, coupon.CountOnApply)

	created := placeOrder(t, srv, map[string]any{
		"userId": "u1",
		"items":  []map[string]any{{"productId": "lb-050", "quantity": 1}},
	})
	o := created["order"].(map[string]any)

	ts, err := time.Parse(time.RFC3339, o["createdAt"].(string))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, ts.Location())
}
