package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/enums"
)

// Repository persists payment rows. State changes are conditional on the pending status.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *Repository) FindByReference(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "reference = ?", reference).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// AttachCheckout stores the gateway hand-off data on a pending payment.
func (r *Repository) AttachCheckout(ctx context.Context, id uuid.UUID, authorizationURL, accessCode string) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"authorization_url": authorizationURL,
			"access_code":       accessCode,
		}).Error
}

// MarkSuccess flips a pending payment to success. It reports false when the row was not pending.
func (r *Repository) MarkSuccess(ctx context.Context, reference string, paidAt time.Time, gatewayResponse string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("reference = ? AND status = ?", reference, enums.PaymentStatusPending).
		Updates(map[string]any{
			"status":           enums.PaymentStatusSuccess,
			"paid_at":          paidAt,
			"gateway_response": gatewayResponse,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkFailed flips a pending payment to failed. It reports false when the row was not pending.
func (r *Repository) MarkFailed(ctx context.Context, reference string, gatewayResponse string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("reference = ? AND status = ?", reference, enums.PaymentStatusPending).
		Updates(map[string]any{
			"status":           enums.PaymentStatusFailed,
			"gateway_response": gatewayResponse,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// ListStalePending returns the oldest pending gateway payments created before cutoff.
func (r *Repository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("status = ? AND payment_type <> ? AND created_at < ?", enums.PaymentStatusPending, enums.PaymentTypeWalletPayment, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// SumRevenue totals successful payments other than wallet payments.
func (r *Repository) SumRevenue(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("COALESCE(SUM(amount_kobo), 0)").
		Where("status = ? AND payment_type <> ?", enums.PaymentStatusSuccess, enums.PaymentTypeWalletPayment).
		Scan(&total).Error
	return total, err
}
