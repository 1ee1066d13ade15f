package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andriwidya/go-checkout-saga/internal/orders"
	"github.com/andriwidya/go-checkout-saga/internal/payment"
	"github.com/andriwidya/go-checkout-saga/internal/saga"
)

const testServerKey = "SB-Mid-server-test-key"

func testLogger() *zap.Logger { return zap.NewNop() }

func newTestServer(t *testing.T) (*chi.Mux, *orders.MemStore) {
	t.Helper()
	mem := orders.NewMemStore()
	mem.SeedProduct(orders.Product{ID: 1, Name: "Keyboard", Price: 500, Stock: 10})

	gateway := payment.NewMockGateway(0, 0, nil)
	orch := saga.New(mem, mem, gateway, nil, nil, nil)
	rec := saga.NewReconciler(mem, gateway, nil, nil, false, nil)

	r := NewRouter()
	(&OrdersHandler{Saga: orch, Log: testLogger()}).Register(r)
	(&PaymentHandler{Reconciler: rec, ServerKey: testServerKey, ClientKey: "client-key-123", Log: testLogger()}).Register(r)
	(&CatalogHandler{Store: mem, Log: testLogger()}).Register(r)
	return r, mem
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func placeOrder(t *testing.T, r http.Handler) saga.OrderProjection {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/orders", saga.CreateOrderInput{
		Items: []saga.ItemInput{{ProductID: 1, Quantity: 2}},
	}, map[string]string{"X-User-Id": "7"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out saga.OrderProjection
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateOrderEndpoint(t *testing.T) {
	r, mem := newTestServer(t)

	out := placeOrder(t, r)
	assert.Equal(t, int64(1110), out.TotalPrice) // 1000 + 11% VAT
	assert.Equal(t, orders.StatusAwaitingPayment, out.Status)
	require.NotNil(t, out.SnapToken)

	p, err := mem.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(8), p.Stock)
}

func TestCreateOrderRequiresUser(t *testing.T) {
	r, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodPost, "/orders", saga.CreateOrderInput{
		Items: []saga.ItemInput{{ProductID: 1, Quantity: 1}},
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	r, mem := newTestServer(t)
	w := doJSON(t, r, http.MethodPost, "/orders", saga.CreateOrderInput{
		Items: []saga.ItemInput{{ProductID: 1, Quantity: 50}},
	}, map[string]string{"X-User-Id": "7"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient stock")

	p, err := mem.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.Stock)
}

func TestGetOrderScopedToOwner(t *testing.T) {
	r, _ := newTestServer(t)
	out := placeOrder(t, r)

	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/orders/%d", out.ID), nil,
		map[string]string{"X-User-Id": "7"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/orders/%d", out.ID), nil,
		map[string]string{"X-User-Id": "8"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookRejectsTamperedSignature(t *testing.T) {
	r, mem := newTestServer(t)
	out := placeOrder(t, r)

	n := payment.Notification{
		OrderID:           fmt.Sprintf("ORDER-%d-1700000000000", out.ID),
		StatusCode:        "200",
		GrossAmount:       "1110.00",
		TransactionStatus: "settlement",
		TransactionID:     "txn-1",
		SignatureKey:      payment.Sign("forged", "200", "1110.00", testServerKey),
	}
	w := doJSON(t, r, http.MethodPost, "/payment/webhook", n, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	got, err := mem.GetOrder(context.Background(), out.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusAwaitingPayment, got.Status, "rejected webhook mutates nothing")
}

func TestWebhookSettlesOrder(t *testing.T) {
	r, mem := newTestServer(t)
	out := placeOrder(t, r)

	merchantRef := fmt.Sprintf("ORDER-%d-1700000000000", out.ID)
	n := payment.Notification{
		OrderID:           merchantRef,
		StatusCode:        "200",
		GrossAmount:       "1110.00",
		TransactionStatus: "settlement",
		TransactionID:     "txn-1",
		SignatureKey:      payment.Sign(merchantRef, "200", "1110.00", testServerKey),
	}
	w := doJSON(t, r, http.MethodPost, "/payment/webhook", n, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Webhook processed")

	got, err := mem.GetOrder(context.Background(), out.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPaid, got.Status)
}

func TestCheckStatusEndpoint(t *testing.T) {
	r, _ := newTestServer(t)
	out := placeOrder(t, r)

	// The mock provider reports settlement, so polling promotes to PAID.
	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/payment/check-status/%d", out.ID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res struct {
		Success       bool   `json:"success"`
		CurrentStatus string `json:"currentStatus"`
		Updated       bool   `json:"updated"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.True(t, res.Updated)
	assert.Equal(t, string(orders.StatusPaid), res.CurrentStatus)
}

func TestPaymentConfigEndpoint(t *testing.T) {
	r, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodGet, "/payment/config", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "client-key-123")
}

func TestListProducts(t *testing.T) {
	r, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodGet, "/products", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var ps []orders.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ps))
	require.Len(t, ps, 1)
	assert.Equal(t, "Keyboard", ps[0].Name)

	w = doJSON(t, r, http.MethodGet, "/products/999", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
