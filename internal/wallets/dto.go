package wallets

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/money"
)

// WalletDTO exposes balances in naira.
type WalletDTO struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	Balance    decimal.Decimal `json:"balance"`
	TotalTopup decimal.Decimal `json:"total_topup"`
	TotalSpent decimal.Decimal `json:"total_spent"`
	Currency   string          `json:"currency"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func FromModel(w *models.Wallet) *WalletDTO {
	if w == nil {
		return nil
	}
	return &WalletDTO{
		ID:         w.ID,
		UserID:     w.UserID,
		Balance:    money.FromKobo(w.BalanceKobo),
		TotalTopup: money.FromKobo(w.TotalTopupKobo),
		TotalSpent: money.FromKobo(w.TotalSpentKobo),
		Currency:   money.Currency,
		UpdatedAt:  w.UpdatedAt,
	}
}
