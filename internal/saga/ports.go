package saga

import (
	"context"

	"github.com/andriwidya/go-checkout-saga/internal/orders"
)

// OrderStore is the durable order record. Rows are created once and then
// mutated only through status transitions.
type OrderStore interface {
	CreateOrder(ctx context.Context, o *orders.Order, items []orders.OrderItem) error
	GetOrder(ctx context.Context, id int64) (*orders.Order, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]orders.OrderItem, error)
	ListUserOrders(ctx context.Context, userID int64) ([]orders.Order, error)
	UpdateStatus(ctx context.Context, id int64, status orders.Status, paymentID, snapToken *string) (*orders.Order, error)
}

// InventoryLedger owns per-product stock. Both mutations are atomic at the
// storage layer; the saga never reads-then-writes stock.
type InventoryLedger interface {
	GetProduct(ctx context.Context, id int64) (*orders.Product, error)
	TryDecrement(ctx context.Context, productID, qty int64) (bool, error)
	Increment(ctx context.Context, productID, qty int64) error
}

// StatusCache is an optional read-side cache for order status plus webhook
// delivery dedup. Storage remains the source of truth; every method is
// best-effort.
type StatusCache interface {
	SetStatus(ctx context.Context, orderID int64, status orders.Status)
	SeenWebhook(ctx context.Context, transactionID, transactionStatus string) bool
}
