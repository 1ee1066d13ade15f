package orders

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemStore keeps orders, line items and stock in process memory. It backs
// the test suite and DSN-less development runs; the mutex gives it the same
// conditional-update atomicity the SQL ledger gets from the storage engine.
type MemStore struct {
	mu         sync.RWMutex
	products   map[int64]*Product
	orders     map[int64]*Order
	items      map[int64][]OrderItem // keyed by order id
	nextOrder  int64
	nextItem   int64
	failCreate error // test hook: forced CreateOrder failure
}

func NewMemStore() *MemStore {
	return &MemStore{
		products: make(map[int64]*Product),
		orders:   make(map[int64]*Order),
		items:    make(map[int64][]OrderItem),
	}
}

func (m *MemStore) SeedProduct(p Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.UpdatedAt = p.CreatedAt
	cp := p
	m.products[p.ID] = &cp
}

// FailNextCreate makes the following CreateOrder calls return err.
func (m *MemStore) FailNextCreate(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCreate = err
}

func (m *MemStore) GetProduct(ctx context.Context, id int64) (*Product, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *MemStore) ListProducts(ctx context.Context) ([]Product, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, nil
}

func (m *MemStore) TryDecrement(ctx context.Context, productID, qty int64) (bool, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	p.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *MemStore) Increment(ctx context.Context, productID, qty int64) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return fmt.Errorf("restore stock for product %d: %w", productID, ErrIntegrity)
	}
	p.Stock += qty
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemStore) CreateOrder(ctx context.Context, o *Order, items []OrderItem) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}

	m.nextOrder++
	o.ID = m.nextOrder
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	for i := range items {
		m.nextItem++
		items[i].ID = m.nextItem
		items[i].OrderID = o.ID
	}

	cp := *o
	m.orders[o.ID] = &cp
	m.items[o.ID] = append([]OrderItem(nil), items...)
	return nil
}

func (m *MemStore) GetOrder(ctx context.Context, id int64) (*Order, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (m *MemStore) GetOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]OrderItem(nil), m.items[orderID]...), nil
}

func (m *MemStore) ListUserOrders(ctx context.Context, userID int64) ([]Order, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *MemStore) UpdateStatus(ctx context.Context, id int64, status Status, paymentID, snapToken *string) (*Order, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	o.Status = status
	if paymentID != nil {
		o.PaymentID = paymentID
	}
	if snapToken != nil {
		o.SnapToken = snapToken
	}
	o.UpdatedAt = time.Now().UTC()
	cp := *o
	return &cp, nil
}
