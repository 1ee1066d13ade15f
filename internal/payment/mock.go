package payment

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultMockDelay = 2000 * time.Millisecond

// MockGateway stands in for the provider when no server key is configured.
// FailureRate is an explicit fault-injection hook for saga testing: a value
// in (0,1] makes that fraction of calls fail with a simulated decline.
type MockGateway struct {
	Delay       time.Duration
	FailureRate float64
	log         *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewMockGateway(delay time.Duration, failureRate float64, log *zap.Logger) *MockGateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &MockGateway{
		Delay:       delay,
		FailureRate: failureRate,
		log:         log,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *MockGateway) ProcessPayment(ctx context.Context, req Request) (*Result, error) {
	if g.Delay > 0 {
		select {
		case <-time.After(g.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if g.FailureRate > 0 && g.roll() < g.FailureRate {
		g.log.Warn("mock_payment_declined", zap.Int64("order_id", req.OrderID))
		return nil, fmt.Errorf("mock payment declined (injected)")
	}

	g.log.Info("mock_payment_success", zap.Int64("order_id", req.OrderID))
	return &Result{
		PaymentID: fmt.Sprintf("MOCK-%d-%d", time.Now().UnixMilli(), req.OrderID),
		SnapToken: fmt.Sprintf("mock_snap_token_%d", req.OrderID),
		Status:    StatusAwaitingPayment,
	}, nil
}

// QueryStatus reports a settled transaction, so manual status checks against
// the mock promote the order to PAID.
func (g *MockGateway) QueryStatus(ctx context.Context, orderID int64, providerRef string) (*StatusResult, error) {
	_ = ctx
	_ = providerRef
	return &StatusResult{
		TransactionStatus: "settlement",
		TransactionID:     fmt.Sprintf("MOCK-PAID-%d", orderID),
	}, nil
}

func (g *MockGateway) roll() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64()
}
