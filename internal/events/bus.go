package events

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

// ErrQueueFull is returned when the bus cannot accept an event without
// blocking. Callers log it and move on; emission never stalls a saga.
var ErrQueueFull = errors.New("event bus: queue full")

// Bus is the in-process notification channel: a buffered queue with
// subscribe-by-name fanout. It is process-lifetime, started and stopped with
// the application, and offers no durability.
type Bus struct {
	mu        sync.RWMutex
	subs      map[string][]Handler
	queue     chan Event
	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
	log       *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		subs:  make(map[string][]Handler),
		queue: make(chan Event, 1024),
		done:  make(chan struct{}),
		log:   log,
	}
}

func (b *Bus) Subscribe(eventName string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
		b.cancel = cancel
		go b.dispatchLoop(bg)
		b.log.Info("event_bus_started")
	})
}

// Stop drains nothing; queued events still in flight are dropped, which is
// within the best-effort contract.
func (b *Bus) Stop() {
	b.stopOnce.Do(func() {
		if b.cancel != nil {
			b.cancel()
		}
		<-b.done
		b.log.Info("event_bus_stopped")
	})
}

// Publish enqueues without blocking.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	_ = ctx
	if e == nil {
		return nil
	}
	select {
	case b.queue <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-b.queue:
			b.fanout(ctx, e)
		}
	}
}

func (b *Bus) fanout(ctx context.Context, e Event) {
	name := e.EventName()

	b.mu.RLock()
	handlers := append([]Handler(nil), b.subs[name]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.log.Debug("event_dropped_no_subscriber", zap.String("event", name))
		return
	}

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("event_handler_panic",
						zap.String("event", name),
						zap.Any("panic", r),
						zap.String("stack", string(debug.Stack())),
					)
				}
			}()
			h(ctx, e)
		}()
	}
}
