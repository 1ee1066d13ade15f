package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 8
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// EnsureSchema creates the checkout tables when they do not exist yet. The
// stock CHECK backs the atomic conditional decrement: a negative balance can
// never be committed even if application logic regresses.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS products (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT,
	category    TEXT,
	image_url   TEXT,
	price       BIGINT NOT NULL CHECK (price >= 0),
	stock       BIGINT NOT NULL CHECK (stock >= 0),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS orders (
	id                   BIGSERIAL PRIMARY KEY,
	user_id              BIGINT NOT NULL,
	total_price          BIGINT NOT NULL CHECK (total_price >= 0),
	status               TEXT NOT NULL,
	payment_id           TEXT,
	snap_token           TEXT,
	shipping_address     TEXT NOT NULL DEFAULT '',
	shipping_city        TEXT NOT NULL DEFAULT '',
	shipping_postal_code TEXT NOT NULL DEFAULT '',
	shipping_phone       TEXT NOT NULL DEFAULT '',
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders (user_id);

CREATE TABLE IF NOT EXISTS order_items (
	id             BIGSERIAL PRIMARY KEY,
	order_id       BIGINT NOT NULL REFERENCES orders (id),
	product_id     BIGINT NOT NULL REFERENCES products (id),
	quantity       BIGINT NOT NULL CHECK (quantity > 0),
	price_at_order BIGINT NOT NULL CHECK (price_at_order >= 0)
);
CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items (order_id);
`
	_, err := pool.Exec(ctx, ddl)
	return err
}
