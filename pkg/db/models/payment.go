package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/agromarket/agromarket-backend/pkg/enums"
)

// Payment records a gateway charge or an internal wallet debit.
type Payment struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	OrderID          *uuid.UUID          `gorm:"column:order_id;type:uuid"`
	AmountKobo       int64               `gorm:"column:amount_kobo;not null"`
	Currency         string              `gorm:"column:currency;not null;default:'NGN'"`
	PaymentType      enums.PaymentType   `gorm:"column:payment_type;type:payment_type;not null"`
	Reference        string              `gorm:"column:reference;not null;uniqueIndex"`
	AuthorizationURL *string             `gorm:"column:authorization_url"`
	AccessCode       *string             `gorm:"column:access_code"`
	Status           enums.PaymentStatus `gorm:"column:status;type:payment_status;not null"`
	GatewayResponse  *string             `gorm:"column:gateway_response"`
	PaidAt           *time.Time          `gorm:"column:paid_at"`
	Metadata         json.RawMessage     `gorm:"column:metadata;type:jsonb"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
