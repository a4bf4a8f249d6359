package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	product "github.com/agromarket/agromarket-backend/internal/products"
	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/enums"
	pkgerrors "github.com/agromarket/agromarket-backend/pkg/errors"
	"github.com/agromarket/agromarket-backend/pkg/money"
	"github.com/agromarket/agromarket-backend/pkg/outbox"
	"github.com/agromarket/agromarket-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines order operations for customers, farmers and admins.
type Service interface {
	Checkout(ctx context.Context, customerID uuid.UUID, input CheckoutInput) (*OrderDTO, error)
	List(ctx context.Context, userID uuid.UUID, role enums.Role, params pagination.Params) (*OrderList, error)
	Get(ctx context.Context, userID uuid.UUID, role enums.Role, orderID uuid.UUID) (*OrderDTO, error)
	FarmerEarnings(ctx context.Context, farmerID uuid.UUID) (*FarmerEarnings, error)
}

type service struct {
	repo     Repository
	products *product.Repository
	tx       txRunner
	outbox   outboxPublisher
}

func NewService(repo Repository, products *product.Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, products: products, tx: tx, outbox: outbox}, nil
}

// Checkout reserves inventory and opens a pending_payment order in one transaction.
func (s *service) Checkout(ctx context.Context, customerID uuid.UUID, input CheckoutInput) (*OrderDTO, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		products := s.products.WithTx(tx)
		listing, err := products.FindActiveByID(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if listing.FarmerID == customerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "cannot buy your own product")
		}

		reserved, err := products.ReserveInventory(ctx, listing.ID, input.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve inventory")
		}
		if !reserved {
			return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
				WithDetails(map[string]any{"available": listing.Inventory, "requested": input.Quantity})
		}

		farmerID := listing.FarmerID
		productID := listing.ID
		order, err := s.repo.WithTx(tx).Create(ctx, &models.Order{
			CustomerID:      customerID,
			FarmerID:        &farmerID,
			ProductID:       &productID,
			Quantity:        input.Quantity,
			TotalAmountKobo: listing.PriceKobo * int64(input.Quantity),
			Currency:        money.Currency,
			Status:          enums.OrderStatusPendingPayment,
			PaymentStatus:   enums.OrderPaymentStatusUnpaid,
			DeliveryAddress: input.DeliveryAddress,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		created = order
		return s.outbox.Emit(ctx, tx, OrderCreatedDomainEvent(order, customerID, enums.RoleCustomer))
	})
	if err != nil {
		return nil, err
	}
	return FromModel(created), nil
}

// OrderCreatedDomainEvent builds the order_created outbox event.
func OrderCreatedDomainEvent(order *models.Order, actorID uuid.UUID, role enums.Role) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: actorID, Role: role.String()},
		Data: outbox.OrderCreatedEvent{
			OrderID:         order.ID,
			CustomerID:      order.CustomerID,
			FarmerID:        order.FarmerID,
			ProductID:       order.ProductID,
			NegotiationID:   order.NegotiationID,
			Quantity:        order.Quantity,
			TotalAmountKobo: order.TotalAmountKobo,
			Currency:        order.Currency,
		},
	}
}

func (s *service) List(ctx context.Context, userID uuid.UUID, role enums.Role, params pagination.Params) (*OrderList, error) {
	scope, err := ScopeFor(userID, role)
	if err != nil {
		return nil, err
	}
	params = params.Normalize()
	rows, total, err := s.repo.List(ctx, scope, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return &OrderList{
		Orders:  FromModels(rows),
		Count:   total,
		HasMore: pagination.HasMore(params, len(rows), total),
	}, nil
}

// ScopeFor maps a role to the orders it may list.
func ScopeFor(userID uuid.UUID, role enums.Role) (ListScope, error) {
	switch role {
	case enums.RoleCustomer:
		return ListScope{CustomerID: &userID}, nil
	case enums.RoleFarmer:
		return ListScope{FarmerID: &userID}, nil
	case enums.RoleDeliveryAgent:
		return ListScope{DeliveryAgentID: &userID}, nil
	case enums.RoleAdmin:
		return ListScope{}, nil
	}
	return ListScope{}, pkgerrors.Newf(pkgerrors.CodeForbidden, "unknown role %q", role)
}

func (s *service) Get(ctx context.Context, userID uuid.UUID, role enums.Role, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, MapLookupErr(err)
	}
	if !CanView(order, userID, role) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order is not visible to caller")
	}
	return FromModel(order), nil
}

// CanView allows the customer, the farmer, the assigned agent and admins.
func CanView(order *models.Order, userID uuid.UUID, role enums.Role) bool {
	switch role {
	case enums.RoleAdmin:
		return true
	case enums.RoleCustomer:
		return order.CustomerID == userID
	case enums.RoleFarmer:
		return order.FarmerID != nil && *order.FarmerID == userID
	case enums.RoleDeliveryAgent:
		return order.DeliveryAgentID != nil && *order.DeliveryAgentID == userID
	}
	return false
}

func (s *service) FarmerEarnings(ctx context.Context, farmerID uuid.UUID) (*FarmerEarnings, error) {
	row, err := s.repo.FarmerEarnings(ctx, farmerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "farmer earnings")
	}
	return &FarmerEarnings{
		TotalEarnings:   money.FromKobo(row.PaidTotalKobo),
		PaidOrders:      row.PaidOrders,
		TotalOrders:     row.TotalOrders,
		DeliveredOrders: row.Delivered,
		Currency:        money.Currency,
	}, nil
}

// MapLookupErr maps a missing row to NOT_FOUND.
func MapLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
