package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a user's internal balance in kobo.
type Wallet struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	BalanceKobo    int64     `gorm:"column:balance_kobo;not null;default:0"`
	TotalTopupKobo int64     `gorm:"column:total_topup_kobo;not null;default:0"`
	TotalSpentKobo int64     `gorm:"column:total_spent_kobo;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
