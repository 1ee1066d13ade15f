package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/andriwidya/go-checkout-saga/internal/kafka"
)

const (
	TopicOrderSucceeded = "order.succeeded"
	TopicOrderFailed    = "order.failed"
)

// Envelope is the wire framing for events forwarded out of process.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id"` // order id
	Payload       json.RawMessage `json:"payload"`
}

// KafkaBridge subscribes to the in-process bus and forwards order lifecycle
// events to Kafka, partitioned by order id. It is wired only when brokers
// are configured; consumers are outside this service.
type KafkaBridge struct {
	succeeded *kafkax.Producer
	failed    *kafkax.Producer
	service   string
	log       *zap.Logger
}

func NewKafkaBridge(brokers []string, service string, log *zap.Logger) *KafkaBridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaBridge{
		succeeded: kafkax.NewProducer(brokers, TopicOrderSucceeded, 1024, log),
		failed:    kafkax.NewProducer(brokers, TopicOrderFailed, 1024, log),
		service:   service,
		log:       log,
	}
}

func (b *KafkaBridge) Start(ctx context.Context) {
	b.succeeded.Start(ctx)
	b.failed.Start(ctx)
}

func (b *KafkaBridge) Close() {
	b.succeeded.Close()
	b.failed.Close()
	b.succeeded.WaitClosed()
	b.failed.WaitClosed()
}

// Attach registers the bridge on the bus.
func (b *KafkaBridge) Attach(bus *Bus) {
	bus.Subscribe(EventOrderSucceeded, func(ctx context.Context, e Event) {
		b.forward(b.succeeded, e)
	})
	bus.Subscribe(EventOrderFailed, func(ctx context.Context, e Event) {
		b.forward(b.failed, e)
	})
}

func (b *KafkaBridge) forward(p *kafkax.Producer, e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		b.log.Warn("event_marshal_failed", zap.String("event", e.EventName()), zap.Error(err))
		return
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     e.EventName(),
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      b.service,
		CorrelationID: fmt.Sprintf("%d", e.Order()),
		Payload:       payload,
	}
	value, err := json.Marshal(env)
	if err != nil {
		b.log.Warn("envelope_marshal_failed", zap.String("event", e.EventName()), zap.Error(err))
		return
	}
	p.Publish([]byte(env.CorrelationID), value,
		kafkago.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
