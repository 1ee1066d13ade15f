package events

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andriwidya/go-checkout-saga/internal/orders"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus(nil)
	var got atomic.Int64
	done := make(chan struct{})

	bus.Subscribe(EventOrderSucceeded, func(ctx context.Context, e Event) {
		got.Store(e.Order())
		close(done)
	})
	bus.Start(context.Background())
	defer bus.Stop()

	err := bus.Publish(context.Background(), OrderSucceededEvent{OrderID: 42, Status: orders.StatusPaid})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event never delivered")
	}
	assert.Equal(t, int64(42), got.Load())
}

func TestBusDropsWithoutSubscriber(t *testing.T) {
	bus := NewBus(nil)
	bus.Start(context.Background())
	defer bus.Stop()

	// No handler registered for the failed topic; publish must still succeed.
	err := bus.Publish(context.Background(), OrderFailedEvent{OrderID: 1, Reason: "x"})
	assert.NoError(t, err)
}

func TestBusQueueFull(t *testing.T) {
	bus := NewBus(nil)
	// Never started, so nothing drains the queue.
	var err error
	for i := 0; i < 2048; i++ {
		err = bus.Publish(context.Background(), OrderFailedEvent{OrderID: int64(i)})
		if err != nil {
			break
		}
	}
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestBusSurvivesHandlerPanic(t *testing.T) {
	bus := NewBus(nil)
	delivered := make(chan struct{})

	bus.Subscribe(EventOrderSucceeded, func(ctx context.Context, e Event) {
		panic("boom")
	})
	bus.Subscribe(EventOrderSucceeded, func(ctx context.Context, e Event) {
		close(delivered)
	})
	bus.Start(context.Background())
	defer bus.Stop()

	require.NoError(t, bus.Publish(context.Background(), OrderSucceededEvent{OrderID: 1}))

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("panic in one handler blocked the next")
	}
}
