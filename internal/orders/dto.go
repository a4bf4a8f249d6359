package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/enums"
	"github.com/agromarket/agromarket-backend/pkg/money"
)

// OrderDTO is the API representation of an order.
type OrderDTO struct {
	ID              uuid.UUID                `json:"id"`
	CustomerID      uuid.UUID                `json:"customer_id"`
	FarmerID        *uuid.UUID               `json:"farmer_id,omitempty"`
	ProductID       *uuid.UUID               `json:"product_id,omitempty"`
	NegotiationID   *uuid.UUID               `json:"negotiation_id,omitempty"`
	DeliveryAgentID *uuid.UUID               `json:"delivery_agent_id,omitempty"`
	Quantity        int                      `json:"quantity"`
	TotalAmount     decimal.Decimal          `json:"total_amount"`
	Currency        string                   `json:"currency"`
	Status          enums.OrderStatus        `json:"status"`
	PaymentStatus   enums.OrderPaymentStatus `json:"payment_status"`
	DeliveryAddress *string                  `json:"delivery_address,omitempty"`
	ClaimedAt       *time.Time               `json:"claimed_at,omitempty"`
	DeliveredAt     *time.Time               `json:"delivered_at,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

// CheckoutInput is a direct purchase at the listed price.
type CheckoutInput struct {
	ProductID       uuid.UUID `json:"product_id" validate:"required"`
	Quantity        int       `json:"quantity" validate:"required,gte=1"`
	DeliveryAddress *string   `json:"delivery_address,omitempty" validate:"omitempty,max=500"`
}

// OrderList is one page of orders.
type OrderList struct {
	Orders  []OrderDTO `json:"orders"`
	Count   int64      `json:"count"`
	HasMore bool       `json:"hasMore"`
}

// FarmerEarnings sums the farmer's paid orders.
type FarmerEarnings struct {
	TotalEarnings   decimal.Decimal `json:"total_earnings"`
	PaidOrders      int64           `json:"paid_orders"`
	TotalOrders     int64           `json:"total_orders"`
	DeliveredOrders int64           `json:"delivered_orders"`
	Currency        string          `json:"currency"`
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	return &OrderDTO{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		FarmerID:        o.FarmerID,
		ProductID:       o.ProductID,
		NegotiationID:   o.NegotiationID,
		DeliveryAgentID: o.DeliveryAgentID,
		Quantity:        o.Quantity,
		TotalAmount:     money.FromKobo(o.TotalAmountKobo),
		Currency:        o.Currency,
		Status:          o.Status,
		PaymentStatus:   o.PaymentStatus,
		DeliveryAddress: o.DeliveryAddress,
		ClaimedAt:       o.ClaimedAt,
		DeliveredAt:     o.DeliveredAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func FromModels(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
