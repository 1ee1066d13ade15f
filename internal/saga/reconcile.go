package saga

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/andriwidya/go-checkout-saga/internal/events"
	"github.com/andriwidya/go-checkout-saga/internal/orders"
	"github.com/andriwidya/go-checkout-saga/internal/payment"
)

// Reconciler maps the provider's status vocabulary onto internal order
// status, idempotently, for both webhook delivery and manual polling. The
// stored status decides whether a transition (and its side effects) happens,
// so replayed notifications are harmless.
type Reconciler struct {
	store    OrderStore
	payments payment.Processor
	notifier events.Publisher
	cache    StatusCache // may be nil
	// sandboxAutoPaid optimistically marks an order PAID when the provider
	// query fails. Development convenience only; refused in production.
	sandboxAutoPaid bool
	log             *zap.Logger
}

func NewReconciler(store OrderStore, payments payment.Processor, notifier events.Publisher, cache StatusCache, sandboxAutoPaid bool, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		store:           store,
		payments:        payments,
		notifier:        notifier,
		cache:           cache,
		sandboxAutoPaid: sandboxAutoPaid,
		log:             log,
	}
}

// MapProviderStatus is the deterministic, case-sensitive mapping table.
// "pending" maps to AWAITING_PAYMENT on every path. Unknown statuses map to
// PENDING, which no transition can reach, so they never change stored state.
func MapProviderStatus(transactionStatus, fraudStatus string) orders.Status {
	switch transactionStatus {
	case "capture":
		if fraudStatus == "accept" {
			return orders.StatusPaid
		}
		return orders.StatusFailed
	case "settlement":
		return orders.StatusPaid
	case "deny", "expire":
		return orders.StatusFailed
	case "cancel":
		return orders.StatusCancelled
	case "pending":
		return orders.StatusAwaitingPayment
	case "refund":
		return orders.StatusRefunded
	default:
		return orders.StatusPending
	}
}

var merchantOrderIDPattern = regexp.MustCompile(`ORDER-(\d+)`)

// ParseMerchantOrderID recovers the numeric order id from the provider's
// merchant-order-id field ("ORDER-<id>-<unix-ms>").
func ParseMerchantOrderID(s string) (int64, error) {
	m := merchantOrderIDPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: invalid order id format %q", orders.ErrValidation, s)
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid order id format %q", orders.ErrValidation, s)
	}
	return id, nil
}

type ReconcileResult struct {
	OrderID        int64         `json:"orderId"`
	PreviousStatus orders.Status `json:"previousStatus"`
	CurrentStatus  orders.Status `json:"currentStatus"`
	Updated        bool          `json:"updated"`
}

// HandleWebhook reconciles one provider notification. The signature has
// already been verified by the transport layer; an unparseable order id is
// rejected before any reconciliation.
func (r *Reconciler) HandleWebhook(ctx context.Context, n payment.Notification) (*ReconcileResult, error) {
	orderID, err := ParseMerchantOrderID(n.OrderID)
	if err != nil {
		return nil, err
	}

	if r.cache != nil && r.cache.SeenWebhook(ctx, n.TransactionID, n.TransactionStatus) {
		r.log.Debug("webhook_duplicate_skipped",
			zap.Int64("order_id", orderID),
			zap.String("transaction_id", n.TransactionID),
		)
		o, err := r.store.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return &ReconcileResult{OrderID: orderID, PreviousStatus: o.Status, CurrentStatus: o.Status, Updated: false}, nil
	}

	next := MapProviderStatus(n.TransactionStatus, n.FraudStatus)
	r.log.Info("webhook_received",
		zap.Int64("order_id", orderID),
		zap.String("transaction_status", n.TransactionStatus),
		zap.String("mapped_status", string(next)),
	)
	return r.apply(ctx, orderID, next, &n.TransactionID)
}

// CheckStatus is the manual/polling path: query the provider by the stored
// reference (falling back to a derived one) and reconcile the answer.
func (r *Reconciler) CheckStatus(ctx context.Context, orderID int64) (*ReconcileResult, error) {
	o, err := r.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	ref := fmt.Sprintf("ORDER-%d", orderID)
	if o.PaymentID != nil && *o.PaymentID != "" {
		ref = *o.PaymentID
	}

	st, qerr := r.payments.QueryStatus(ctx, orderID, ref)
	if qerr != nil {
		if !r.sandboxAutoPaid {
			return nil, fmt.Errorf("query payment status for order %d: %w", orderID, qerr)
		}
		// Sandbox transactions can vanish after the payment popup closes;
		// with the flag set we settle the order optimistically.
		r.log.Warn("provider_query_failed_sandbox_autopaid",
			zap.Int64("order_id", orderID),
			zap.Error(qerr),
		)
		fallbackID := fmt.Sprintf("FALLBACK-%d", orderID)
		return r.apply(ctx, orderID, orders.StatusPaid, &fallbackID)
	}

	next := MapProviderStatus(st.TransactionStatus, st.FraudStatus)
	var paymentID *string
	if st.TransactionID != "" {
		paymentID = &st.TransactionID
	}
	return r.apply(ctx, orderID, next, paymentID)
}

// apply performs the transition when the state machine allows it. Same
// status or a disallowed move is tolerated as "no update": last write wins
// between concurrent webhook and poll, and side effects fire at most once
// per actual transition.
func (r *Reconciler) apply(ctx context.Context, orderID int64, next orders.Status, paymentID *string) (*ReconcileResult, error) {
	o, err := r.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	prev := o.Status

	if prev == next || !orders.CanTransition(prev, next) {
		if prev != next {
			r.log.Info("status_transition_skipped",
				zap.Int64("order_id", orderID),
				zap.String("from", string(prev)),
				zap.String("to", string(next)),
			)
		}
		return &ReconcileResult{OrderID: orderID, PreviousStatus: prev, CurrentStatus: prev, Updated: false}, nil
	}

	updated, err := r.store.UpdateStatus(ctx, orderID, next, paymentID, nil)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.SetStatus(ctx, orderID, next)
	}
	r.log.Info("order_status_reconciled",
		zap.Int64("order_id", orderID),
		zap.String("from", string(prev)),
		zap.String("to", string(next)),
	)

	if next == orders.StatusPaid && r.notifier != nil {
		if perr := r.notifier.Publish(ctx, events.NewOrderSucceeded(updated)); perr != nil {
			r.log.Warn("event_publish_failed",
				zap.String("event", events.EventOrderSucceeded),
				zap.Int64("order_id", orderID),
				zap.Error(perr),
			)
		}
	}

	return &ReconcileResult{OrderID: orderID, PreviousStatus: prev, CurrentStatus: next, Updated: true}, nil
}
