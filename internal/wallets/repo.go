package wallets

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agromarket/agromarket-backend/pkg/db/models"
)

// Repository persists wallets. Balance mutations are single conditional UPDATEs so
// concurrent callers never lose an increment.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a zero wallet for userID.
func (r *Repository) Create(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	wallet := &models.Wallet{ID: uuid.New(), UserID: userID}
	if err := r.db.WithContext(ctx).Create(wallet).Error; err != nil {
		return nil, err
	}
	return wallet, nil
}

func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// GetOrCreate returns the user's wallet, inserting a zero wallet when missing.
func (r *Repository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	wallet, err := r.FindByUserID(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	insert := &models.Wallet{ID: uuid.New(), UserID: userID}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(insert).Error; err != nil {
		return nil, err
	}
	return r.FindByUserID(ctx, userID)
}

// Credit adds a settled top-up to the balance and the lifetime top-up total.
func (r *Repository) Credit(ctx context.Context, userID uuid.UUID, amountKobo int64) error {
	res := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"balance_kobo":     gorm.Expr("balance_kobo + ?", amountKobo),
			"total_topup_kobo": gorm.Expr("total_topup_kobo + ?", amountKobo),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Refund returns captured money to the balance without counting it as a top-up.
func (r *Repository) Refund(ctx context.Context, userID uuid.UUID, amountKobo int64) error {
	res := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("user_id = ?", userID).
		Update("balance_kobo", gorm.Expr("balance_kobo + ?", amountKobo))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Debit subtracts amountKobo when the balance covers it. It reports false when funds are insufficient.
func (r *Repository) Debit(ctx context.Context, userID uuid.UUID, amountKobo int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("user_id = ? AND balance_kobo >= ?", userID, amountKobo).
		Updates(map[string]any{
			"balance_kobo":     gorm.Expr("balance_kobo - ?", amountKobo),
			"total_spent_kobo": gorm.Expr("total_spent_kobo + ?", amountKobo),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
