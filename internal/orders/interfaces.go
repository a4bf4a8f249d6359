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

// Repository defines persistence operations for the orders table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByNegotiationID(ctx context.Context, negotiationID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, scope ListScope, params pagination.Params) ([]models.Order, int64, error)
	ListRecent(ctx context.Context, limit int) ([]models.Order, error)
	Count(ctx context.Context) (int64, error)

	MarkPaid(ctx context.Context, id uuid.UUID, from ...enums.OrderPaymentStatus) (bool, error)
	TransitionPaymentStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderPaymentStatus) (bool, error)

	ListAvailableJobs(ctx context.Context) ([]models.Order, error)
	ListForAgent(ctx context.Context, agentID uuid.UUID, status enums.OrderStatus) ([]models.Order, error)
	CountAvailableJobs(ctx context.Context) (int64, error)
	CountForAgent(ctx context.Context, agentID uuid.UUID, status enums.OrderStatus) (int64, error)
	SumDeliveredForAgent(ctx context.Context, agentID uuid.UUID) (int64, error)
	Claim(ctx context.Context, id, agentID uuid.UUID, at time.Time) (bool, error)
	Complete(ctx context.Context, id, agentID uuid.UUID, at time.Time) (bool, error)

	FarmerEarnings(ctx context.Context, farmerID uuid.UUID) (*FarmerEarningsRow, error)
}

// ListScope narrows a list to the rows one role may see. A zero scope lists everything.
type ListScope struct {
	CustomerID      *uuid.UUID
	FarmerID        *uuid.UUID
	DeliveryAgentID *uuid.UUID
}

// FarmerEarningsRow aggregates a farmer's orders.
type FarmerEarningsRow struct {
	PaidTotalKobo int64
	PaidOrders    int64
	TotalOrders   int64
	Delivered     int64
}
