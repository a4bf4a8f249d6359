package negotiations

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/enums"
)

// Repository persists negotiations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, n *models.Negotiation) (*models.Negotiation, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Negotiation, error) {
	var n models.Negotiation
	if err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// ListForParty returns negotiations where userID is the customer or the farmer. A nil userID lists all.
func (r *Repository) ListForParty(ctx context.Context, userID *uuid.UUID) ([]models.Negotiation, error) {
	query := r.db.WithContext(ctx).Model(&models.Negotiation{})
	if userID != nil {
		query = query.Where("customer_id = ? OR farmer_id = ?", *userID, *userID)
	}
	var rows []models.Negotiation
	err := query.Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// Transition moves the row to `to` only while its status is one of `from`.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, from []enums.NegotiationStatus, to enums.NegotiationStatus, negotiatedPriceKobo *int64) (bool, error) {
	updates := map[string]any{"status": to}
	if negotiatedPriceKobo != nil {
		updates["negotiated_price_kobo"] = *negotiatedPriceKobo
	}
	res := r.db.WithContext(ctx).
		Model(&models.Negotiation{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) LinkOrder(ctx context.Context, id, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Negotiation{}).
		Where("id = ?", id).
		Update("order_id", orderID).Error
}
