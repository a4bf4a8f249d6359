package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/agromarket/agromarket-backend/pkg/enums"
)

// Negotiation is a customer's offer against a product's listed price.
type Negotiation struct {
	ID                  uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID           uuid.UUID               `gorm:"column:product_id;type:uuid;not null"`
	CustomerID          uuid.UUID               `gorm:"column:customer_id;type:uuid;not null"`
	FarmerID            uuid.UUID               `gorm:"column:farmer_id;type:uuid;not null"`
	InitialPriceKobo    int64                   `gorm:"column:initial_price_kobo;not null"`
	NegotiatedPriceKobo int64                   `gorm:"column:negotiated_price_kobo;not null"`
	Status              enums.NegotiationStatus `gorm:"column:status;type:negotiation_status;not null;default:'pending'"`
	Message             *string                 `gorm:"column:message"`
	OrderID             *uuid.UUID              `gorm:"column:order_id;type:uuid"`
	CreatedAt           time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
