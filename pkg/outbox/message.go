package outbox

import (
	"context"
	"time"

	"github.com/agromarket/agromarket-backend/pkg/db/models"
)

// Message is the broker-neutral form of a resolved outbox row.
type Message struct {
	Topic      string
	Key        string
	Data       []byte
	Attributes map[string]string
}

// Publisher delivers messages to a broker and returns once the broker acknowledged them.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Ping(ctx context.Context) error
	Close() error
}

// NewMessage builds the broker message for an outbox row. The aggregate id is the
// partition/ordering key so events of one order stay in sequence.
func NewMessage(event models.OutboxEvent, resolved *ResolvedEvent) Message {
	return Message{
		Topic: resolved.Descriptor.Topic,
		Key:   event.AggregateID.String(),
		Data:  event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}
