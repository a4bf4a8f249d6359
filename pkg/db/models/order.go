package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/agromarket/agromarket-backend/pkg/enums"
)

// Order is created by direct checkout or by accepting a negotiation.
type Order struct {
	ID              uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID      uuid.UUID                `gorm:"column:customer_id;type:uuid;not null"`
	FarmerID        *uuid.UUID               `gorm:"column:farmer_id;type:uuid"`
	ProductID       *uuid.UUID               `gorm:"column:product_id;type:uuid"`
	NegotiationID   *uuid.UUID               `gorm:"column:negotiation_id;type:uuid;uniqueIndex"`
	DeliveryAgentID *uuid.UUID               `gorm:"column:delivery_agent_id;type:uuid"`
	Quantity        int                      `gorm:"column:quantity;not null;default:1"`
	TotalAmountKobo int64                    `gorm:"column:total_amount_kobo;not null"`
	Currency        string                   `gorm:"column:currency;not null;default:'NGN'"`
	Status          enums.OrderStatus        `gorm:"column:status;type:order_status;not null"`
	PaymentStatus   enums.OrderPaymentStatus `gorm:"column:payment_status;type:order_payment_status;not null"`
	DeliveryAddress *string                  `gorm:"column:delivery_address"`
	ClaimedAt       *time.Time               `gorm:"column:claimed_at"`
	DeliveredAt     *time.Time               `gorm:"column:delivered_at"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
