package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agromarket/agromarket-backend/internal/orders"
	"github.com/agromarket/agromarket-backend/internal/wallets"
	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/enums"
	"github.com/agromarket/agromarket-backend/pkg/money"
)

type PaymentDTO struct {
	ID               uuid.UUID           `json:"id"`
	UserID           uuid.UUID           `json:"user_id"`
	OrderID          *uuid.UUID          `json:"order_id,omitempty"`
	Amount           decimal.Decimal     `json:"amount"`
	Currency         string              `json:"currency"`
	PaymentType      enums.PaymentType   `json:"payment_type"`
	Reference        string              `json:"reference"`
	AuthorizationURL *string             `json:"authorization_url,omitempty"`
	Status           enums.PaymentStatus `json:"status"`
	GatewayResponse  *string             `json:"gateway_response,omitempty"`
	PaidAt           *time.Time          `json:"paid_at,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// InitializeInput starts a gateway payment. OrderID makes it a purchase; otherwise it is a top-up.
type InitializeInput struct {
	Amount  *decimal.Decimal `json:"amount,omitempty"`
	OrderID *uuid.UUID       `json:"order_id,omitempty"`
	Email   string           `json:"email,omitempty" validate:"omitempty,email"`
}

type CheckoutInitializeInput struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
}

type InitializeResult struct {
	AuthorizationURL string      `json:"authorization_url"`
	AccessCode       string      `json:"access_code"`
	Reference        string      `json:"reference"`
	Payment          *PaymentDTO `json:"payment"`
}

type WalletPaymentResult struct {
	Order   *orders.OrderDTO   `json:"order"`
	Payment *PaymentDTO        `json:"payment"`
	Wallet  *wallets.WalletDTO `json:"wallet"`
}

// ReconcileSummary counts what a reconcile pass did.
type ReconcileSummary struct {
	Scanned int
	Settled int
	Failed  int
	Pending int
}

func FromModel(p *models.Payment) *PaymentDTO {
	if p == nil {
		return nil
	}
	return &PaymentDTO{
		ID:               p.ID,
		UserID:           p.UserID,
		OrderID:          p.OrderID,
		Amount:           money.FromKobo(p.AmountKobo),
		Currency:         p.Currency,
		PaymentType:      p.PaymentType,
		Reference:        p.Reference,
		AuthorizationURL: p.AuthorizationURL,
		Status:           p.Status,
		GatewayResponse:  p.GatewayResponse,
		PaidAt:           p.PaidAt,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}
