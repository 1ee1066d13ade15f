package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andriwidya/go-checkout-saga/internal/orders"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// StatusCache backs fast status reads and webhook dedup. Every operation is
// best-effort; Redis being down degrades to storage reads, never to errors.
type StatusCache struct{ RDB *redis.Client }

func (c *StatusCache) SetStatus(ctx context.Context, orderID int64, status orders.Status) {
	key := fmt.Sprintf(KeyOrderStatus, orderID)
	_ = c.RDB.Set(ctx, key, string(status), TTLStatusCache).Err()
}

func (c *StatusCache) GetStatus(ctx context.Context, orderID int64) (orders.Status, bool) {
	key := fmt.Sprintf(KeyOrderStatus, orderID)
	s, err := c.RDB.Get(ctx, key).Result()
	if err != nil || s == "" {
		return "", false
	}
	return orders.Status(s), true
}

// SeenWebhook marks a (transaction, status) delivery and reports whether it
// was already seen. First sight returns false.
func (c *StatusCache) SeenWebhook(ctx context.Context, transactionID, transactionStatus string) bool {
	key := fmt.Sprintf(KeyWebhookDedup, transactionID, transactionStatus)
	set, err := c.RDB.SetNX(ctx, key, "1", TTLWebhookDedup).Result()
	if err != nil {
		return false
	}
	return !set
}
