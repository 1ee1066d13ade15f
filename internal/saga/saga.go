package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/andriwidya/go-checkout-saga/internal/events"
	"github.com/andriwidya/go-checkout-saga/internal/orders"
	"github.com/andriwidya/go-checkout-saga/internal/payment"
)

// Orchestrator runs order creation as a saga: reserve stock per line item,
// persist the order, drive the payment call, and compensate on failure.
// Reservation comes first because stock is the scarcest resource under
// concurrency; persistence precedes payment because payment is the slowest,
// least reliable step and must not hold inventory.
type Orchestrator struct {
	store    OrderStore
	ledger   InventoryLedger
	payments payment.Processor
	notifier events.Publisher
	cache    StatusCache // may be nil
	log      *zap.Logger
}

func New(store OrderStore, ledger InventoryLedger, payments payment.Processor, notifier events.Publisher, cache StatusCache, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		store:    store,
		ledger:   ledger,
		payments: payments,
		notifier: notifier,
		cache:    cache,
		log:      log,
	}
}

type ItemInput struct {
	ProductID int64 `json:"productId"`
	Quantity  int64 `json:"quantity"`
}

type CreateOrderInput struct {
	Items              []ItemInput `json:"items"`
	ShippingAddress    string      `json:"shippingAddress,omitempty"`
	ShippingCity       string      `json:"shippingCity,omitempty"`
	ShippingPostalCode string      `json:"shippingPostalCode,omitempty"`
	ShippingPhone      string      `json:"shippingPhone,omitempty"`
}

type OrderProjection struct {
	ID         int64              `json:"id"`
	UserID     int64              `json:"userId"`
	TotalPrice int64              `json:"totalPrice"`
	Status     orders.Status      `json:"status"`
	PaymentID  *string            `json:"paymentId"`
	SnapToken  *string            `json:"snapToken"`
	Items      []orders.OrderItem `json:"items"`
	CreatedAt  time.Time          `json:"createdAt"`
}

// reservedItem is the ephemeral compensation accumulator: line items whose
// stock has been decremented in this attempt. It never outlives the call.
type reservedItem struct {
	productID int64
	qty       int64
}

// CreateOrder executes the saga. The caller's context is detached first: an
// abandoned connection must not stop a saga that has started reserving
// stock; it runs to a terminal outcome either way.
func (s *Orchestrator) CreateOrder(ctx context.Context, userID int64, in CreateOrderInput) (*OrderProjection, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one item", orders.ErrValidation)
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive for product %d", orders.ErrValidation, it.ProductID)
		}
	}

	ctx = context.WithoutCancel(ctx)
	log := s.log.With(zap.Int64("user_id", userID))

	// Step 1: reserve stock sequentially, in request order.
	var reserved []reservedItem
	items := make([]orders.OrderItem, 0, len(in.Items))
	var subtotal int64

	for _, it := range in.Items {
		product, err := s.ledger.GetProduct(ctx, it.ProductID)
		if err != nil {
			s.compensate(ctx, 0, reserved)
			if errors.Is(err, orders.ErrNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("look up product %d: %w", it.ProductID, err)
		}

		ok, err := s.ledger.TryDecrement(ctx, it.ProductID, it.Quantity)
		if err != nil {
			s.compensate(ctx, 0, reserved)
			return nil, fmt.Errorf("reserve stock for product %d: %w", it.ProductID, err)
		}
		if !ok {
			// Self-healing abort: restore what this loop already took,
			// before any order row exists.
			s.compensate(ctx, 0, reserved)
			return nil, fmt.Errorf("%w for product: %s", orders.ErrInsufficientStock, product.Name)
		}

		reserved = append(reserved, reservedItem{productID: it.ProductID, qty: it.Quantity})
		items = append(items, orders.OrderItem{
			ProductID:    it.ProductID,
			Quantity:     it.Quantity,
			PriceAtOrder: product.Price,
		})
		subtotal += product.Price * it.Quantity
	}

	// Step 2: 11% VAT on the combined sum, rounded half-up.
	total := orders.TotalWithTax(subtotal)

	// Step 3: persist order + line items as one logical unit.
	order := &orders.Order{
		UserID:             userID,
		TotalPrice:         total,
		Status:             orders.StatusPending,
		ShippingAddress:    in.ShippingAddress,
		ShippingCity:       in.ShippingCity,
		ShippingPostalCode: in.ShippingPostalCode,
		ShippingPhone:      in.ShippingPhone,
	}
	if err := s.store.CreateOrder(ctx, order, items); err != nil {
		s.compensate(ctx, 0, reserved)
		return nil, fmt.Errorf("persist order: %w", err)
	}
	log = log.With(zap.Int64("order_id", order.ID))
	log.Info("order_created", zap.Int64("total_price", total))

	// Step 4: payment, behind the timeout+retry wrapper.
	payRes, payErr := s.payments.ProcessPayment(ctx, payment.Request{
		OrderID: order.ID,
		Amount:  total,
		UserID:  userID,
	})
	if payErr != nil {
		// Step 5: compensate. Restore every reservation, mark FAILED,
		// emit the failure notification.
		log.Warn("payment_failed_compensating", zap.Error(payErr))
		s.compensate(ctx, order.ID, reserved)

		failed, uerr := s.store.UpdateStatus(ctx, order.ID, orders.StatusFailed, nil, nil)
		if uerr != nil {
			log.Error("order_mark_failed_error", zap.Error(uerr))
			failed = order
			failed.Status = orders.StatusFailed
		}
		s.cacheStatus(ctx, order.ID, orders.StatusFailed)
		s.publish(ctx, events.NewOrderFailed(failed, payErr.Error()))

		return nil, fmt.Errorf("%w after retries; stock has been restored", orders.ErrPaymentFailed)
	}

	updated, err := s.store.UpdateStatus(ctx, order.ID, orders.StatusAwaitingPayment, &payRes.PaymentID, &payRes.SnapToken)
	if err != nil {
		return nil, fmt.Errorf("record payment session for order %d: %w", order.ID, err)
	}
	s.cacheStatus(ctx, order.ID, updated.Status)
	s.publish(ctx, events.NewOrderSucceeded(updated))
	log.Info("order_awaiting_payment", zap.String("payment_id", payRes.PaymentID))

	return &OrderProjection{
		ID:         updated.ID,
		UserID:     updated.UserID,
		TotalPrice: updated.TotalPrice,
		Status:     updated.Status,
		PaymentID:  updated.PaymentID,
		SnapToken:  updated.SnapToken,
		Items:      items,
		CreatedAt:  updated.CreatedAt,
	}, nil
}

// compensate restores every reservation in the accumulator. Adding back
// exactly what was subtracted is idempotent per product and safe to repeat.
// A failed restore is an integrity fault: the ledger is inconsistent, so it
// is logged loudly and the remaining restores still run.
func (s *Orchestrator) compensate(ctx context.Context, orderID int64, reserved []reservedItem) {
	if len(reserved) == 0 {
		return
	}
	s.log.Warn("compensating_order",
		zap.Int64("order_id", orderID),
		zap.Int("items", len(reserved)),
	)
	for _, r := range reserved {
		if err := s.ledger.Increment(ctx, r.productID, r.qty); err != nil {
			s.log.Error("stock_restore_failed",
				zap.Int64("order_id", orderID),
				zap.Int64("product_id", r.productID),
				zap.Int64("quantity", r.qty),
				zap.Error(err),
			)
		}
	}
}

// publish is fire-and-forget: emission never blocks or fails the saga.
func (s *Orchestrator) publish(ctx context.Context, e events.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, e); err != nil {
		s.log.Warn("event_publish_failed",
			zap.String("event", e.EventName()),
			zap.Int64("order_id", e.Order()),
			zap.Error(err),
		)
	}
}

func (s *Orchestrator) cacheStatus(ctx context.Context, orderID int64, status orders.Status) {
	if s.cache != nil {
		s.cache.SetStatus(ctx, orderID, status)
	}
}

// GetOrder returns one of the caller's orders with its line items.
func (s *Orchestrator) GetOrder(ctx context.Context, userID, orderID int64) (*OrderProjection, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, fmt.Errorf("order %d: %w", orderID, orders.ErrNotFound)
	}
	items, err := s.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderProjection{
		ID:         o.ID,
		UserID:     o.UserID,
		TotalPrice: o.TotalPrice,
		Status:     o.Status,
		PaymentID:  o.PaymentID,
		SnapToken:  o.SnapToken,
		Items:      items,
		CreatedAt:  o.CreatedAt,
	}, nil
}

func (s *Orchestrator) ListUserOrders(ctx context.Context, userID int64) ([]orders.Order, error) {
	return s.store.ListUserOrders(ctx, userID)
}
