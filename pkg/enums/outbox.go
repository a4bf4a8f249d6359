package enums

import "slices"

// OutboxAggregateType names the entity an outbox event is about. Its id is the broker
// message key.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregatePayment OutboxAggregateType = "payment"
)

func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains([]OutboxAggregateType{AggregateOrder, AggregatePayment}, a)
}

// OutboxEventType names a domain event written to the outbox.
type OutboxEventType string

const (
	EventOrderCreated   OutboxEventType = "order_created"
	EventOrderClaimed   OutboxEventType = "order_claimed"
	EventOrderDelivered OutboxEventType = "order_delivered"
	EventPaymentSettled OutboxEventType = "payment_settled"
	EventPaymentFailed  OutboxEventType = "payment_failed"
)

// AllOutboxEventTypes lists every event the publisher knows how to route.
func AllOutboxEventTypes() []OutboxEventType {
	return []OutboxEventType{
		EventOrderCreated,
		EventOrderClaimed,
		EventOrderDelivered,
		EventPaymentSettled,
		EventPaymentFailed,
	}
}

func (e OutboxEventType) IsValid() bool {
	return slices.Contains(AllOutboxEventTypes(), e)
}

// OutboxDLQReason records why the publisher gave up on a row.
type OutboxDLQReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQReason = "non_retryable"
)
