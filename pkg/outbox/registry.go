package outbox

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/enums"
)

// EventDescriptor links an event type to its aggregate, topic and payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   PayloadEnvelope
	Payload    any
}

// NonRetryableError signals the publisher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

func NewNonRetryableError(err error) error {
	return NonRetryableError{Err: err}
}

// IsNonRetryable reports whether err carries a NonRetryableError.
func IsNonRetryable(err error) bool {
	var target NonRetryableError
	return errors.As(err, &target)
}

// Registry maps each supported event type to its descriptor.
type Registry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NewRegistry routes every domain event to topic.
func NewRegistry(topic string) (*Registry, error) {
	if topic == "" {
		return nil, fmt.Errorf("domain topic is required")
	}
	reg := &Registry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	for _, desc := range []EventDescriptor{
		{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, PayloadFactory: func() any { return &OrderCreatedEvent{} }},
		{EventType: enums.EventOrderClaimed, AggregateType: enums.AggregateOrder, PayloadFactory: func() any { return &OrderClaimedEvent{} }},
		{EventType: enums.EventOrderDelivered, AggregateType: enums.AggregateOrder, PayloadFactory: func() any { return &OrderDeliveredEvent{} }},
		{EventType: enums.EventPaymentSettled, AggregateType: enums.AggregatePayment, PayloadFactory: func() any { return &PaymentSettledEvent{} }},
		{EventType: enums.EventPaymentFailed, AggregateType: enums.AggregatePayment, PayloadFactory: func() any { return &PaymentFailedEvent{} }},
	} {
		desc.Topic = topic
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// Descriptor returns the descriptor for eventType.
func (r *Registry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	desc, ok := r.entries[eventType]
	return desc, ok
}

// Resolve decodes the envelope and typed payload of an outbox row. Decoding failures are non-retryable.
func (r *Registry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %q", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("event %s expects aggregate %s, got %s", event.EventType, desc.AggregateType, event.AggregateType))
	}

	envelope, err := open(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
