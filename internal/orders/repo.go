package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/enums"
	"github.com/agromarket/agromarket-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByNegotiationID(ctx context.Context, negotiationID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "negotiation_id = ?", negotiationID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, scope ListScope, params pagination.Params) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if scope.CustomerID != nil {
		query = query.Where("customer_id = ?", *scope.CustomerID)
	}
	if scope.FarmerID != nil {
		query = query.Where("farmer_id = ?", *scope.FarmerID)
	}
	if scope.DeliveryAgentID != nil {
		query = query.Where("delivery_agent_id = ?", *scope.DeliveryAgentID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params = params.Normalize()
	var rows []models.Order
	err := query.
		Order("created_at DESC").
		Offset(params.Skip).
		Limit(params.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) ListRecent(ctx context.Context, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Count(&count).Error
	return count, err
}

// MarkPaid confirms an order that is still awaiting payment and whose payment status is one of from.
func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, from ...enums.OrderPaymentStatus) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND payment_status IN ?", id, enums.OrderStatusPendingPayment, from).
		Updates(map[string]any{
			"status":         enums.OrderStatusConfirmed,
			"payment_status": enums.OrderPaymentStatusPaid,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) TransitionPaymentStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderPaymentStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", id, from).
		Update("payment_status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) availableJobs(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ? AND delivery_agent_id IS NULL", enums.OrderStatusConfirmed)
}

func (r *repository) ListAvailableJobs(ctx context.Context) ([]models.Order, error) {
	var rows []models.Order
	err := r.availableJobs(ctx).Order("created_at DESC").Find(&rows).Error
	return rows, err
}

func (r *repository) CountAvailableJobs(ctx context.Context) (int64, error) {
	var count int64
	err := r.availableJobs(ctx).Count(&count).Error
	return count, err
}

func (r *repository) agentOrders(ctx context.Context, agentID uuid.UUID, status enums.OrderStatus) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("delivery_agent_id = ? AND status = ?", agentID, status)
}

func (r *repository) ListForAgent(ctx context.Context, agentID uuid.UUID, status enums.OrderStatus) ([]models.Order, error) {
	var rows []models.Order
	order := "claimed_at DESC"
	if status == enums.OrderStatusDelivered {
		order = "delivered_at DESC"
	}
	err := r.agentOrders(ctx, agentID, status).Order(order).Find(&rows).Error
	return rows, err
}

func (r *repository) CountForAgent(ctx context.Context, agentID uuid.UUID, status enums.OrderStatus) (int64, error) {
	var count int64
	err := r.agentOrders(ctx, agentID, status).Count(&count).Error
	return count, err
}

func (r *repository) SumDeliveredForAgent(ctx context.Context, agentID uuid.UUID) (int64, error) {
	var total int64
	err := r.agentOrders(ctx, agentID, enums.OrderStatusDelivered).
		Select("COALESCE(SUM(total_amount_kobo), 0)").
		Scan(&total).Error
	return total, err
}

// Claim assigns a confirmed, unassigned order. Only one concurrent caller can win.
func (r *repository) Claim(ctx context.Context, id, agentID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND delivery_agent_id IS NULL", id, enums.OrderStatusConfirmed).
		Updates(map[string]any{
			"delivery_agent_id": agentID,
			"status":            enums.OrderStatusInTransit,
			"claimed_at":        at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Complete marks the agent's in-transit order delivered.
func (r *repository) Complete(ctx context.Context, id, agentID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND delivery_agent_id = ? AND status = ?", id, agentID, enums.OrderStatusInTransit).
		Updates(map[string]any{
			"status":       enums.OrderStatusDelivered,
			"delivered_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) FarmerEarnings(ctx context.Context, farmerID uuid.UUID) (*FarmerEarningsRow, error) {
	var row FarmerEarningsRow
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select(`COALESCE(SUM(CASE WHEN payment_status = ? THEN total_amount_kobo ELSE 0 END), 0) AS paid_total_kobo,
			COALESCE(SUM(CASE WHEN payment_status = ? THEN 1 ELSE 0 END), 0) AS paid_orders,
			COUNT(*) AS total_orders,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS delivered`,
			enums.OrderPaymentStatusPaid, enums.OrderPaymentStatusPaid, enums.OrderStatusDelivered).
		Where("farmer_id = ?", farmerID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
