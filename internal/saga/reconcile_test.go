package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andriwidya/go-checkout-saga/internal/events"
	"github.com/andriwidya/go-checkout-saga/internal/orders"
	"github.com/andriwidya/go-checkout-saga/internal/payment"
)

func TestMapProviderStatus(t *testing.T) {
	tests := []struct {
		txStatus, fraud string
		want            orders.Status
	}{
		{"capture", "accept", orders.StatusPaid},
		{"capture", "challenge", orders.StatusFailed},
		{"capture", "", orders.StatusFailed},
		{"settlement", "", orders.StatusPaid},
		{"deny", "", orders.StatusFailed},
		{"expire", "", orders.StatusFailed},
		{"cancel", "", orders.StatusCancelled},
		{"pending", "", orders.StatusAwaitingPayment},
		{"refund", "", orders.StatusRefunded},
		{"partial_refund", "", orders.StatusPending}, // unknown -> inert
		{"", "", orders.StatusPending},
		{"Settlement", "", orders.StatusPending}, // case-sensitive
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapProviderStatus(tt.txStatus, tt.fraud),
			"status %q fraud %q", tt.txStatus, tt.fraud)
	}
}

func TestParseMerchantOrderID(t *testing.T) {
	id, err := ParseMerchantOrderID("ORDER-42-1700000000000")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	id, err = ParseMerchantOrderID("ORDER-7")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	for _, bad := range []string{"", "GARBAGE", "ORDER-", "ORDER-0"} {
		_, err := ParseMerchantOrderID(bad)
		assert.ErrorIs(t, err, orders.ErrValidation, "input %q", bad)
	}
}

// seedAwaiting creates an order parked in AWAITING_PAYMENT with a provider
// reference attached.
func seedAwaiting(t *testing.T, mem *orders.MemStore, userID int64) *orders.Order {
	t.Helper()
	ctx := context.Background()
	o := &orders.Order{UserID: userID, TotalPrice: 2775, Status: orders.StatusPending}
	require.NoError(t, mem.CreateOrder(ctx, o, nil))
	pid := "ORDER-1-1700000000000"
	updated, err := mem.UpdateStatus(ctx, o.ID, orders.StatusAwaitingPayment, &pid, nil)
	require.NoError(t, err)
	return updated
}

func TestHandleWebhookSettlement(t *testing.T) {
	ctx := context.Background()
	mem := orders.NewMemStore()
	rec := &recorder{}
	r := NewReconciler(mem, &fakeProcessor{}, rec, nil, false, nil)
	o := seedAwaiting(t, mem, 7)

	res, err := r.HandleWebhook(ctx, payment.Notification{
		OrderID:           "ORDER-1-1700000000000",
		TransactionStatus: "settlement",
		TransactionID:     "txn-1",
	})
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, orders.StatusAwaitingPayment, res.PreviousStatus)
	assert.Equal(t, orders.StatusPaid, res.CurrentStatus)

	got, err := mem.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPaid, got.Status)
	require.NotNil(t, got.PaymentID)
	assert.Equal(t, "txn-1", *got.PaymentID, "provider transaction id replaces the merchant ref")

	assert.Len(t, rec.byName(events.EventOrderSucceeded), 1)
}

func TestHandleWebhookReplayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mem := orders.NewMemStore()
	rec := &recorder{}
	r := NewReconciler(mem, &fakeProcessor{}, rec, nil, false, nil)
	seedAwaiting(t, mem, 7)

	n := payment.Notification{
		OrderID:           "ORDER-1-1700000000000",
		TransactionStatus: "settlement",
		TransactionID:     "txn-1",
	}
	res, err := r.HandleWebhook(ctx, n)
	require.NoError(t, err)
	require.True(t, res.Updated)

	res, err = r.HandleWebhook(ctx, n)
	require.NoError(t, err)
	assert.False(t, res.Updated, "replayed settlement is a no-op")
	assert.Equal(t, orders.StatusPaid, res.CurrentStatus)
	assert.Len(t, rec.byName(events.EventOrderSucceeded), 1, "side effects fire once per transition")
}

func TestHandleWebhookPendingKeepsAwaiting(t *testing.T) {
	ctx := context.Background()
	mem := orders.NewMemStore()
	r := NewReconciler(mem, &fakeProcessor{}, &recorder{}, nil, false, nil)
	seedAwaiting(t, mem, 7)

	res, err := r.HandleWebhook(ctx, payment.Notification{
		OrderID:           "ORDER-1-1700000000000",
		TransactionStatus: "pending",
		TransactionID:     "txn-1",
	})
	require.NoError(t, err)
	assert.False(t, res.Updated, "pending maps to the status already held")
	assert.Equal(t, orders.StatusAwaitingPayment, res.CurrentStatus)
}

func TestHandleWebhookUnknownStatusIsInert(t *testing.T) {
	ctx := context.Background()
	mem := orders.NewMemStore()
	r := NewReconciler(mem, &fakeProcessor{}, &recorder{}, nil, false, nil)
	seedAwaiting(t, mem, 7)

	res, err := r.HandleWebhook(ctx, payment.Notification{
		OrderID:           "ORDER-1-1700000000000",
		TransactionStatus: "partial_chargeback",
		TransactionID:     "txn-1",
	})
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Equal(t, orders.StatusAwaitingPayment, res.CurrentStatus)
}

func TestHandleWebhookBadOrderID(t *testing.T) {
	r := NewReconciler(orders.NewMemStore(), &fakeProcessor{}, &recorder{}, nil, false, nil)
	_, err := r.HandleWebhook(context.Background(), payment.Notification{
		OrderID:           "NOT-AN-ORDER",
		TransactionStatus: "settlement",
	})
	assert.ErrorIs(t, err, orders.ErrValidation)
}

func TestHandleWebhookUnknownOrder(t *testing.T) {
	r := NewReconciler(orders.NewMemStore(), &fakeProcessor{}, &recorder{}, nil, false, nil)
	_, err := r.HandleWebhook(context.Background(), payment.Notification{
		OrderID:           "ORDER-99-1700000000000",
		TransactionStatus: "settlement",
	})
	assert.ErrorIs(t, err, orders.ErrNotFound)
}

// dedupCache marks every delivery as already seen.
type dedupCache struct{ statuses map[int64]orders.Status }

func (c *dedupCache) SetStatus(ctx context.Context, orderID int64, status orders.Status) {
	if c.statuses == nil {
		c.statuses = map[int64]orders.Status{}
	}
	c.statuses[orderID] = status
}
func (c *dedupCache) SeenWebhook(ctx context.Context, transactionID, transactionStatus string) bool {
	return true
}

func TestHandleWebhookCacheDedupShortCircuits(t *testing.T) {
	ctx := context.Background()
	mem := orders.NewMemStore()
	rec := &recorder{}
	r := NewReconciler(mem, &fakeProcessor{}, rec, &dedupCache{}, false, nil)
	seedAwaiting(t, mem, 7)

	res, err := r.HandleWebhook(ctx, payment.Notification{
		OrderID:           "ORDER-1-1700000000000",
		TransactionStatus: "settlement",
		TransactionID:     "txn-1",
	})
	require.NoError(t, err)
	assert.False(t, res.Updated, "deduped delivery applies nothing")
	assert.Equal(t, orders.StatusAwaitingPayment, res.CurrentStatus)
	assert.Empty(t, rec.events)
}

func TestCheckStatusSettles(t *testing.T) {
	ctx := context.Background()
	mem := orders.NewMemStore()
	rec := &recorder{}
	proc := &fakeProcessor{queryRes: &payment.StatusResult{
		TransactionStatus: "settlement",
		TransactionID:     "txn-9",
	}}
	r := NewReconciler(mem, proc, rec, nil, false, nil)
	o := seedAwaiting(t, mem, 7)

	res, err := r.CheckStatus(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, orders.StatusPaid, res.CurrentStatus)
	assert.Len(t, rec.byName(events.EventOrderSucceeded), 1)
}

func TestCheckStatusQueryFailure(t *testing.T) {
	ctx := context.Background()
	mem := orders.NewMemStore()
	proc := &fakeProcessor{queryErr: errors.New("404 transaction doesn't exist")}
	r := NewReconciler(mem, proc, &recorder{}, nil, false, nil)
	o := seedAwaiting(t, mem, 7)

	_, err := r.CheckStatus(ctx, o.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query payment status")

	got, gerr := mem.GetOrder(ctx, o.ID)
	require.NoError(t, gerr)
	assert.Equal(t, orders.StatusAwaitingPayment, got.Status, "stored state untouched on query failure")
}

func TestCheckStatusSandboxAutoPaid(t *testing.T) {
	ctx := context.Background()
	mem := orders.NewMemStore()
	rec := &recorder{}
	proc := &fakeProcessor{queryErr: errors.New("404 transaction doesn't exist")}
	r := NewReconciler(mem, proc, rec, nil, true, nil)
	o := seedAwaiting(t, mem, 7)

	res, err := r.CheckStatus(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, orders.StatusPaid, res.CurrentStatus)

	got, gerr := mem.GetOrder(ctx, o.ID)
	require.NoError(t, gerr)
	require.NotNil(t, got.PaymentID)
	assert.Contains(t, *got.PaymentID, "FALLBACK-")
	assert.Len(t, rec.byName(events.EventOrderSucceeded), 1)
}

func TestCheckStatusUnknownOrder(t *testing.T) {
	r := NewReconciler(orders.NewMemStore(), &fakeProcessor{}, &recorder{}, nil, false, nil)
	_, err := r.CheckStatus(context.Background(), 404)
	assert.ErrorIs(t, err, orders.ErrNotFound)
}
