package redisx

import "time"

const (
	// Cache of order status: order_status:{order_id} -> status string
	KeyOrderStatus = "order_status:%d"

	// Webhook delivery dedup: dedup:webhook:{transaction_id}:{status}
	KeyWebhookDedup = "dedup:webhook:%s:%s"
)

var (
	TTLStatusCache  = 5 * time.Minute
	TTLWebhookDedup = 48 * time.Hour
)
