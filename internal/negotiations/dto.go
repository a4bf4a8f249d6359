package negotiations

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agromarket/agromarket-backend/internal/orders"
	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/enums"
	"github.com/agromarket/agromarket-backend/pkg/money"
)

type NegotiationDTO struct {
	ID              uuid.UUID               `json:"id"`
	ProductID       uuid.UUID               `json:"product_id"`
	CustomerID      uuid.UUID               `json:"customer_id"`
	FarmerID        uuid.UUID               `json:"farmer_id"`
	InitialPrice    decimal.Decimal         `json:"initial_price"`
	NegotiatedPrice decimal.Decimal         `json:"negotiated_price"`
	Status          enums.NegotiationStatus `json:"status"`
	Message         *string                 `json:"message,omitempty"`
	OrderID         *uuid.UUID              `json:"order_id,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

type CreateNegotiationInput struct {
	ProductID    uuid.UUID       `json:"product_id" validate:"required"`
	OfferedPrice decimal.Decimal `json:"offered_price"`
	Message      *string         `json:"message,omitempty" validate:"omitempty,max=1000"`
}

type UpdateNegotiationInput struct {
	Status       string           `json:"status" validate:"required"`
	CounterPrice *decimal.Decimal `json:"counter_price,omitempty"`
}

// UpdateResult carries the order created (or previously created) by an accept.
type UpdateResult struct {
	Negotiation *NegotiationDTO  `json:"negotiation"`
	Order       *orders.OrderDTO `json:"order,omitempty"`
}

func FromModel(n *models.Negotiation) *NegotiationDTO {
	if n == nil {
		return nil
	}
	return &NegotiationDTO{
		ID:              n.ID,
		ProductID:       n.ProductID,
		CustomerID:      n.CustomerID,
		FarmerID:        n.FarmerID,
		InitialPrice:    money.FromKobo(n.InitialPriceKobo),
		NegotiatedPrice: money.FromKobo(n.NegotiatedPriceKobo),
		Status:          n.Status,
		Message:         n.Message,
		OrderID:         n.OrderID,
		CreatedAt:       n.CreatedAt,
		UpdatedAt:       n.UpdatedAt,
	}
}
