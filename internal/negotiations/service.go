package negotiations

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agromarket/agromarket-backend/internal/orders"
	product "github.com/agromarket/agromarket-backend/internal/products"
	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/enums"
	pkgerrors "github.com/agromarket/agromarket-backend/pkg/errors"
	"github.com/agromarket/agromarket-backend/pkg/money"
	"github.com/agromarket/agromarket-backend/pkg/outbox"
)

var openStatuses = []enums.NegotiationStatus{enums.NegotiationStatusPending, enums.NegotiationStatusCounter}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service runs the offer / counter / accept workflow.
type Service interface {
	Create(ctx context.Context, customerID uuid.UUID, input CreateNegotiationInput) (*NegotiationDTO, error)
	List(ctx context.Context, userID uuid.UUID, role enums.Role) ([]NegotiationDTO, error)
	Get(ctx context.Context, userID uuid.UUID, role enums.Role, id uuid.UUID) (*NegotiationDTO, error)
	Update(ctx context.Context, userID uuid.UUID, id uuid.UUID, input UpdateNegotiationInput) (*UpdateResult, error)
}

type ServiceParams struct {
	Repo     *Repository
	Products *product.Repository
	Orders   orders.Repository
	DB       txRunner
	Outbox   outboxPublisher
}

type service struct {
	repo     *Repository
	products *product.Repository
	orders   orders.Repository
	tx       txRunner
	outbox   outboxPublisher
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("negotiation repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     params.Repo,
		products: params.Products,
		orders:   params.Orders,
		tx:       params.DB,
		outbox:   params.Outbox,
	}, nil
}

func (s *service) Create(ctx context.Context, customerID uuid.UUID, input CreateNegotiationInput) (*NegotiationDTO, error) {
	offered, err := positiveKobo(input.OfferedPrice, "offered_price")
	if err != nil {
		return nil, err
	}
	listing, err := s.products.FindActiveByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if listing.FarmerID == customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot negotiate on your own product")
	}

	created, err := s.repo.Create(ctx, &models.Negotiation{
		ProductID:           listing.ID,
		CustomerID:          customerID,
		FarmerID:            listing.FarmerID,
		InitialPriceKobo:    listing.PriceKobo,
		NegotiatedPriceKobo: offered,
		Status:              enums.NegotiationStatusPending,
		Message:             input.Message,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create negotiation")
	}
	return FromModel(created), nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, role enums.Role) ([]NegotiationDTO, error) {
	var party *uuid.UUID
	if role != enums.RoleAdmin {
		party = &userID
	}
	rows, err := s.repo.ListForParty(ctx, party)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list negotiations")
	}
	out := make([]NegotiationDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID, role enums.Role, id uuid.UUID) (*NegotiationDTO, error) {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	if role != enums.RoleAdmin && !isParty(n, userID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this negotiation")
	}
	return FromModel(n), nil
}

// Update applies a status change. Accepting creates exactly one order in the same transaction.
func (s *service) Update(ctx context.Context, userID uuid.UUID, id uuid.UUID, input UpdateNegotiationInput) (*UpdateResult, error) {
	target, err := enums.ParseNegotiationStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	var counterKobo *int64
	if target == enums.NegotiationStatusCounter && input.CounterPrice != nil {
		kobo, err := positiveKobo(*input.CounterPrice, "counter_price")
		if err != nil {
			return nil, err
		}
		counterKobo = &kobo
	}

	var result UpdateResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		n, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupErr(err)
		}
		if !isParty(n, userID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this negotiation")
		}

		act, err := decide(n.Status, target)
		if err != nil {
			return err
		}

		switch act {
		case actionNoop:
			if n.Status == enums.NegotiationStatusAccepted {
				existing, err := s.orders.WithTx(tx).FindByNegotiationID(ctx, n.ID)
				if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load negotiation order")
				}
				result.Order = orders.FromModel(existing)
			}
		case actionUpdate:
			ok, err := repo.Transition(ctx, n.ID, []enums.NegotiationStatus{n.Status}, target, counterKobo)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update negotiation")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "negotiation changed concurrently")
			}
		case actionAccept:
			order, err := s.accept(ctx, tx, n, userID)
			if err != nil {
				return err
			}
			result.Order = orders.FromModel(order)
		}

		updated, err := repo.FindByID(ctx, n.ID)
		if err != nil {
			return mapLookupErr(err)
		}
		result.Negotiation = FromModel(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) accept(ctx context.Context, tx *gorm.DB, n *models.Negotiation, actorID uuid.UUID) (*models.Order, error) {
	repo := s.repo.WithTx(tx)
	orderRepo := s.orders.WithTx(tx)

	ok, err := repo.Transition(ctx, n.ID, openStatuses, enums.NegotiationStatusAccepted, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept negotiation")
	}
	if !ok {
		// Lost a race: another accept already committed, so hand back its order.
		current, err := repo.FindByID(ctx, n.ID)
		if err != nil {
			return nil, mapLookupErr(err)
		}
		if current.Status != enums.NegotiationStatusAccepted {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "negotiation is no longer open")
		}
		existing, err := orderRepo.FindByNegotiationID(ctx, n.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load negotiation order")
		}
		return existing, nil
	}

	negotiationID := n.ID
	farmerID := n.FarmerID
	productID := n.ProductID
	order, err := orderRepo.Create(ctx, &models.Order{
		CustomerID:      n.CustomerID,
		FarmerID:        &farmerID,
		ProductID:       &productID,
		NegotiationID:   &negotiationID,
		Quantity:        1,
		TotalAmountKobo: n.NegotiatedPriceKobo,
		Currency:        money.Currency,
		Status:          enums.OrderStatusPendingPayment,
		PaymentStatus:   enums.OrderPaymentStatusUnpaid,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	if err := repo.LinkOrder(ctx, n.ID, order.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link order")
	}

	role := enums.RoleCustomer
	if actorID == n.FarmerID {
		role = enums.RoleFarmer
	}
	if err := s.outbox.Emit(ctx, tx, orders.OrderCreatedDomainEvent(order, actorID, role)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order created")
	}
	return order, nil
}

func isParty(n *models.Negotiation, userID uuid.UUID) bool {
	return n.CustomerID == userID || n.FarmerID == userID
}

func positiveKobo(amount decimal.Decimal, field string) (int64, error) {
	kobo, err := money.ToKobo(amount)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	if kobo <= 0 {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be greater than zero", field)
	}
	return kobo, nil
}

func mapLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "negotiation not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load negotiation")
}
