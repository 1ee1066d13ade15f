package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// CreateOrder persists the order row and its line items in one transaction
// and fills in the generated ids.
func (r *Repo) CreateOrder(ctx context.Context, o *Order, items []OrderItem) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO orders(user_id, total_price, status,
		                   shipping_address, shipping_city, shipping_postal_code, shipping_phone)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at, updated_at`,
		o.UserID, o.TotalPrice, o.Status,
		o.ShippingAddress, o.ShippingCity, o.ShippingPostalCode, o.ShippingPhone,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return err
	}

	for i := range items {
		items[i].OrderID = o.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO order_items(order_id, product_id, quantity, price_at_order)
			VALUES ($1,$2,$3,$4)
			RETURNING id`,
			o.ID, items[i].ProductID, items[i].Quantity, items[i].PriceAtOrder,
		).Scan(&items[i].ID)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *Repo) GetOrder(ctx context.Context, id int64) (*Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, total_price, status, payment_id, snap_token,
		       COALESCE(shipping_address,''), COALESCE(shipping_city,''),
		       COALESCE(shipping_postal_code,''), COALESCE(shipping_phone,''),
		       created_at, updated_at
		FROM orders WHERE id=$1`, id,
	).Scan(&o.ID, &o.UserID, &o.TotalPrice, &o.Status, &o.PaymentID, &o.SnapToken,
		&o.ShippingAddress, &o.ShippingCity, &o.ShippingPostalCode, &o.ShippingPhone,
		&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repo) GetOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, quantity, price_at_order
		FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.PriceAtOrder); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) ListUserOrders(ctx context.Context, userID int64) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, total_price, status, payment_id, snap_token,
		       COALESCE(shipping_address,''), COALESCE(shipping_city,''),
		       COALESCE(shipping_postal_code,''), COALESCE(shipping_phone,''),
		       created_at, updated_at
		FROM orders WHERE user_id=$1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalPrice, &o.Status, &o.PaymentID, &o.SnapToken,
			&o.ShippingAddress, &o.ShippingCity, &o.ShippingPostalCode, &o.ShippingPhone,
			&o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateStatus transitions the order and optionally records the provider
// reference and snap token. It returns the updated row.
func (r *Repo) UpdateStatus(ctx context.Context, id int64, status Status, paymentID, snapToken *string) (*Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		UPDATE orders
		SET status=$2,
		    payment_id=COALESCE($3, payment_id),
		    snap_token=COALESCE($4, snap_token),
		    updated_at=now()
		WHERE id=$1
		RETURNING id, user_id, total_price, status, payment_id, snap_token,
		          COALESCE(shipping_address,''), COALESCE(shipping_city,''),
		          COALESCE(shipping_postal_code,''), COALESCE(shipping_phone,''),
		          created_at, updated_at`,
		id, status, paymentID, snapToken,
	).Scan(&o.ID, &o.UserID, &o.TotalPrice, &o.Status, &o.PaymentID, &o.SnapToken,
		&o.ShippingAddress, &o.ShippingCity, &o.ShippingPostalCode, &o.ShippingPhone,
		&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}
