package orders

import "time"

type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Price       int64     `json:"price"` // smallest currency unit
	Stock       int64     `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Order struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	TotalPrice         int64     `json:"total_price"` // VAT-inclusive
	Status             Status    `json:"status"`
	PaymentID          *string   `json:"payment_id"`
	SnapToken          *string   `json:"snap_token"`
	ShippingAddress    string    `json:"shipping_address,omitempty"`
	ShippingCity       string    `json:"shipping_city,omitempty"`
	ShippingPostalCode string    `json:"shipping_postal_code,omitempty"`
	ShippingPhone      string    `json:"shipping_phone,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// OrderItem snapshots the unit price at order time so historical orders
// are decoupled from future price changes. PriceAtOrder is immutable.
type OrderItem struct {
	ID           int64 `json:"id"`
	OrderID      int64 `json:"order_id"`
	ProductID    int64 `json:"product_id"`
	Quantity     int64 `json:"quantity"`
	PriceAtOrder int64 `json:"price_at_order"`
}

const taxRatePercent = 11

// TotalWithTax adds 11% VAT to the subtotal, rounding half-up on the
// combined sum (not per line item). Integer-only so totals are reproducible.
func TotalWithTax(subtotal int64) int64 {
	return (subtotal*(100+taxRatePercent) + 50) / 100
}

func Subtotal(items []OrderItem) int64 {
	var sum int64
	for _, it := range items {
		sum += it.PriceAtOrder * it.Quantity
	}
	return sum
}
