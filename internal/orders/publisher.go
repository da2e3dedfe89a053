package orders

import (
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/mhardiyanto/go-stock-orders/internal/kafka"
)

// KafkaPublisher emits order events through the buffered async producers.
// Publication is fire-and-forget from the caller's view; delivery is
// at-least-once end to end, consumers dedupe by order id.
type KafkaPublisher struct {
	Created *kafkax.Producer // order.created
	Status  *kafkax.Producer // order.status
	Service string
}

func (p *KafkaPublisher) PublishOrderCreated(o Order) {
	p.publish(p.Created, EventOrderCreated, o.ID, kafkax.MustMarshal(NewOrderCreatedPayload(o)))
}

func (p *KafkaPublisher) PublishOrderStatusChanged(o Order) {
	p.publish(p.Status, EventOrderStatusChanged, o.ID,
		kafkax.MustMarshal(OrderStatusChangedPayload{OrderID: o.ID, Status: o.Status}))
}

func (p *KafkaPublisher) publish(prod *kafkax.Producer, eventType, orderID string, payload []byte) {
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      p.Service,
		CorrelationID: orderID,
		Payload:       payload,
	}
	prod.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

// NopPublisher drops events; used by tests.
type NopPublisher struct{}

func (NopPublisher) PublishOrderCreated(Order)       {}
func (NopPublisher) PublishOrderStatusChanged(Order) {}
