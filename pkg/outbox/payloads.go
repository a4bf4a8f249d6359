package outbox

import (
	"time"

	"github.com/google/uuid"

	"github.com/agromarket/agromarket-backend/pkg/enums"
)

type OrderCreatedEvent struct {
	OrderID         uuid.UUID  `json:"orderId"`
	CustomerID      uuid.UUID  `json:"customerId"`
	FarmerID        *uuid.UUID `json:"farmerId,omitempty"`
	ProductID       *uuid.UUID `json:"productId,omitempty"`
	NegotiationID   *uuid.UUID `json:"negotiationId,omitempty"`
	Quantity        int        `json:"quantity"`
	TotalAmountKobo int64      `json:"totalAmountKobo"`
	Currency        string     `json:"currency"`
}

type OrderClaimedEvent struct {
	OrderID         uuid.UUID `json:"orderId"`
	DeliveryAgentID uuid.UUID `json:"deliveryAgentId"`
	ClaimedAt       time.Time `json:"claimedAt"`
}

type OrderDeliveredEvent struct {
	OrderID         uuid.UUID `json:"orderId"`
	DeliveryAgentID uuid.UUID `json:"deliveryAgentId"`
	DeliveredAt     time.Time `json:"deliveredAt"`
}

type PaymentSettledEvent struct {
	PaymentID   uuid.UUID           `json:"paymentId"`
	UserID      uuid.UUID           `json:"userId"`
	OrderID     *uuid.UUID          `json:"orderId,omitempty"`
	Reference   string              `json:"reference"`
	PaymentType enums.PaymentType   `json:"paymentType"`
	AmountKobo  int64               `json:"amountKobo"`
	Source      enums.PaymentSource `json:"source"`
}

type PaymentFailedEvent struct {
	PaymentID   uuid.UUID           `json:"paymentId"`
	UserID      uuid.UUID           `json:"userId"`
	OrderID     *uuid.UUID          `json:"orderId,omitempty"`
	Reference   string              `json:"reference"`
	PaymentType enums.PaymentType   `json:"paymentType"`
	Reason      string              `json:"reason,omitempty"`
	Source      enums.PaymentSource `json:"source"`
}
