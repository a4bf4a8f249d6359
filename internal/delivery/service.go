package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agromarket/agromarket-backend/internal/orders"
	"github.com/agromarket/agromarket-backend/pkg/enums"
	pkgerrors "github.com/agromarket/agromarket-backend/pkg/errors"
	"github.com/agromarket/agromarket-backend/pkg/money"
	"github.com/agromarket/agromarket-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Earnings is the agent's commission over delivered orders.
type Earnings struct {
	TotalEarnings     decimal.Decimal `json:"total_earnings"`
	DeliveredValue    decimal.Decimal `json:"delivered_value"`
	CompletedCount    int64           `json:"completed_deliveries"`
	CommissionPercent int             `json:"commission_percent"`
	Currency          string          `json:"currency"`
}

type Dashboard struct {
	AvailableJobs       int64     `json:"available_jobs"`
	ActiveDeliveries    int64     `json:"active_deliveries"`
	CompletedDeliveries int64     `json:"completed_deliveries"`
	Earnings            *Earnings `json:"earnings"`
}

// Service exposes the delivery agent workflow.
type Service interface {
	ListJobs(ctx context.Context) ([]orders.OrderDTO, error)
	Claim(ctx context.Context, agentID, orderID uuid.UUID) (*orders.OrderDTO, error)
	ListActive(ctx context.Context, agentID uuid.UUID) ([]orders.OrderDTO, error)
	Complete(ctx context.Context, agentID, orderID uuid.UUID) (*orders.OrderDTO, error)
	ListCompleted(ctx context.Context, agentID uuid.UUID) ([]orders.OrderDTO, error)
	Earnings(ctx context.Context, agentID uuid.UUID) (*Earnings, error)
	Dashboard(ctx context.Context, agentID uuid.UUID) (*Dashboard, error)
}

type ServiceParams struct {
	Orders            orders.Repository
	DB                txRunner
	Outbox            outboxPublisher
	CommissionPercent int
	Now               func() time.Time
}

type service struct {
	orders     orders.Repository
	tx         txRunner
	outbox     outboxPublisher
	commission int
	now        func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.CommissionPercent < 0 || params.CommissionPercent > 100 {
		return nil, fmt.Errorf("commission percent must be within 0..100")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		orders:     params.Orders,
		tx:         params.DB,
		outbox:     params.Outbox,
		commission: params.CommissionPercent,
		now:        now,
	}, nil
}

func (s *service) ListJobs(ctx context.Context) ([]orders.OrderDTO, error) {
	rows, err := s.orders.ListAvailableJobs(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list delivery jobs")
	}
	return orders.FromModels(rows), nil
}

// Claim assigns the order to agentID. Concurrent claims produce exactly one assignee.
func (s *service) Claim(ctx context.Context, agentID, orderID uuid.UUID) (*orders.OrderDTO, error) {
	var result *orders.OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		at := s.now().UTC()
		claimed, err := repo.Claim(ctx, orderID, agentID, at)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim order")
		}
		if !claimed {
			if _, err := repo.FindByID(ctx, orderID); err != nil {
				return orders.MapLookupErr(err)
			}
			return pkgerrors.New(pkgerrors.CodeConflict, "order already claimed or not ready for delivery")
		}

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return orders.MapLookupErr(err)
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderClaimed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: agentID, Role: enums.RoleDeliveryAgent.String()},
			Data: outbox.OrderClaimedEvent{
				OrderID:         order.ID,
				DeliveryAgentID: agentID,
				ClaimedAt:       at,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order claimed")
		}
		result = orders.FromModel(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ListActive(ctx context.Context, agentID uuid.UUID) ([]orders.OrderDTO, error) {
	rows, err := s.orders.ListForAgent(ctx, agentID, enums.OrderStatusInTransit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active deliveries")
	}
	return orders.FromModels(rows), nil
}

// Complete marks the agent's order delivered. Repeating it is a no-op for the same agent.
func (s *service) Complete(ctx context.Context, agentID, orderID uuid.UUID) (*orders.OrderDTO, error) {
	var result *orders.OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		at := s.now().UTC()
		done, err := repo.Complete(ctx, orderID, agentID, at)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete delivery")
		}

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return orders.MapLookupErr(err)
		}
		if !done {
			if order.DeliveryAgentID == nil || *order.DeliveryAgentID != agentID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to caller")
			}
			if order.Status == enums.OrderStatusDelivered {
				result = orders.FromModel(order)
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not in transit")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: agentID, Role: enums.RoleDeliveryAgent.String()},
			Data: outbox.OrderDeliveredEvent{
				OrderID:         order.ID,
				DeliveryAgentID: agentID,
				DeliveredAt:     at,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order delivered")
		}
		result = orders.FromModel(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ListCompleted(ctx context.Context, agentID uuid.UUID) ([]orders.OrderDTO, error) {
	rows, err := s.orders.ListForAgent(ctx, agentID, enums.OrderStatusDelivered)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list completed deliveries")
	}
	return orders.FromModels(rows), nil
}

func (s *service) Earnings(ctx context.Context, agentID uuid.UUID) (*Earnings, error) {
	total, err := s.orders.SumDeliveredForAgent(ctx, agentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum deliveries")
	}
	completed, err := s.orders.CountForAgent(ctx, agentID, enums.OrderStatusDelivered)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count deliveries")
	}
	return &Earnings{
		TotalEarnings:     money.FromKobo(money.Percent(total, s.commission)),
		DeliveredValue:    money.FromKobo(total),
		CompletedCount:    completed,
		CommissionPercent: s.commission,
		Currency:          money.Currency,
	}, nil
}

func (s *service) Dashboard(ctx context.Context, agentID uuid.UUID) (*Dashboard, error) {
	available, err := s.orders.CountAvailableJobs(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count jobs")
	}
	active, err := s.orders.CountForAgent(ctx, agentID, enums.OrderStatusInTransit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active deliveries")
	}
	earnings, err := s.Earnings(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		AvailableJobs:       available,
		ActiveDeliveries:    active,
		CompletedDeliveries: earnings.CompletedCount,
		Earnings:            earnings,
	}, nil
}

