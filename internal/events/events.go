package events

import (
	"context"
	"time"

	"github.com/andriwidya/go-checkout-saga/internal/orders"
)

const (
	EventOrderSucceeded = "order.succeeded"
	EventOrderFailed    = "order.failed"
)

// Event is any order lifecycle event the bus can carry.
type Event interface {
	EventName() string
	Order() int64
}

// Publisher is the notification emitter port. Delivery is best-effort,
// at-least-once; publish errors never propagate into the saga.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Handler func(ctx context.Context, e Event)

type OrderSucceededEvent struct {
	OrderID    int64         `json:"order_id"`
	UserID     int64         `json:"user_id"`
	TotalPrice int64         `json:"total_price"`
	Status     orders.Status `json:"status"`
	OccurredAt time.Time     `json:"occurred_at"`
}

func (OrderSucceededEvent) EventName() string { return EventOrderSucceeded }
func (e OrderSucceededEvent) Order() int64    { return e.OrderID }

func NewOrderSucceeded(o *orders.Order) OrderSucceededEvent {
	return OrderSucceededEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		TotalPrice: o.TotalPrice,
		Status:     o.Status,
		OccurredAt: time.Now().UTC(),
	}
}

type OrderFailedEvent struct {
	OrderID    int64     `json:"order_id"`
	UserID     int64     `json:"user_id"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (OrderFailedEvent) EventName() string { return EventOrderFailed }
func (e OrderFailedEvent) Order() int64    { return e.OrderID }

func NewOrderFailed(o *orders.Order, reason string) OrderFailedEvent {
	return OrderFailedEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}
