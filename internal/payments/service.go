package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/agromarket/agromarket-backend/internal/orders"
	"github.com/agromarket/agromarket-backend/internal/wallets"
	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/enums"
	pkgerrors "github.com/agromarket/agromarket-backend/pkg/errors"
	"github.com/agromarket/agromarket-backend/pkg/logger"
	"github.com/agromarket/agromarket-backend/pkg/money"
	"github.com/agromarket/agromarket-backend/pkg/outbox"
	"github.com/agromarket/agromarket-backend/pkg/paystack"
)

const referencePrefix = "AGRO-"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Gateway is the subset of the Paystack client the service calls.
type Gateway interface {
	Initialize(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResult, error)
	Verify(ctx context.Context, reference string) (*paystack.Transaction, error)
}

type profileLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// Service covers gateway payments, wallet payments and the payment history.
type Service interface {
	Initialize(ctx context.Context, userID uuid.UUID, input InitializeInput) (*InitializeResult, error)
	Verify(ctx context.Context, userID uuid.UUID, reference string) (*PaymentDTO, error)
	PayWithWallet(ctx context.Context, customerID, orderID uuid.UUID) (*WalletPaymentResult, error)
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]PaymentDTO, error)
	ReconcileStale(ctx context.Context, olderThan time.Duration, limit int) (ReconcileSummary, error)
}

type ServiceParams struct {
	DB       txRunner
	Payments *Repository
	Wallets  *wallets.Repository
	Orders   orders.Repository
	Profiles profileLoader
	Outbox   outboxPublisher
	Gateway  Gateway
	Settler  *Settler
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	tx       txRunner
	payments *Repository
	wallets  *wallets.Repository
	orders   orders.Repository
	profiles profileLoader
	outbox   outboxPublisher
	gateway  Gateway
	settler  *Settler
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Payments == nil:
		return nil, fmt.Errorf("payment repository required")
	case params.Wallets == nil:
		return nil, fmt.Errorf("wallet repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Profiles == nil:
		return nil, fmt.Errorf("profile repository required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case params.Gateway == nil:
		return nil, fmt.Errorf("payment gateway required")
	case params.Settler == nil:
		return nil, fmt.Errorf("settler required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:       params.DB,
		payments: params.Payments,
		wallets:  params.Wallets,
		orders:   params.Orders,
		profiles: params.Profiles,
		outbox:   params.Outbox,
		gateway:  params.Gateway,
		settler:  params.Settler,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// NewReference returns a unique payment reference.
func NewReference() string {
	return referencePrefix + uuid.NewString()
}

// Initialize records a pending payment and opens a Paystack checkout for it.
func (s *service) Initialize(ctx context.Context, userID uuid.UUID, input InitializeInput) (*InitializeResult, error) {
	profile, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}

	payment := &models.Payment{
		UserID:    userID,
		Currency:  money.Currency,
		Reference: NewReference(),
		Status:    enums.PaymentStatusPending,
	}
	if input.OrderID != nil {
		order, err := s.payableOrder(ctx, userID, *input.OrderID)
		if err != nil {
			return nil, err
		}
		orderID := order.ID
		payment.OrderID = &orderID
		payment.PaymentType = enums.PaymentTypeProductPurchase
		payment.AmountKobo = order.TotalAmountKobo
	} else {
		if input.Amount == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount is required")
		}
		kobo, err := money.ToKobo(*input.Amount)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount")
		}
		if kobo <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
		}
		payment.PaymentType = enums.PaymentTypeWalletTopup
		payment.AmountKobo = kobo
	}

	metadata := map[string]any{
		"payment_id":   "",
		"user_id":      userID.String(),
		"payment_type": payment.PaymentType.String(),
	}
	if payment.OrderID != nil {
		metadata["order_id"] = payment.OrderID.String()
	}
	payment.ID = uuid.New()
	metadata["payment_id"] = payment.ID.String()
	if raw, err := json.Marshal(metadata); err == nil {
		payment.Metadata = raw
	}

	if _, err := s.payments.Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record pending payment")
	}

	email := strings.TrimSpace(input.Email)
	if email == "" {
		email = profile.Email
	}
	checkout, err := s.gateway.Initialize(ctx, paystack.InitializeRequest{
		Email:      email,
		AmountKobo: payment.AmountKobo,
		Reference:  payment.Reference,
		Currency:   payment.Currency,
		Metadata:   metadata,
	})
	if err != nil {
		if _, markErr := s.payments.MarkFailed(ctx, payment.Reference, "initialize failed: "+err.Error()); markErr != nil && s.logg != nil {
			s.logg.Error(ctx, "mark payment failed after initialize error", markErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment provider unavailable")
	}

	if err := s.payments.AttachCheckout(ctx, payment.ID, checkout.AuthorizationURL, checkout.AccessCode); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store checkout")
	}
	if payment.OrderID != nil {
		if _, err := s.orders.TransitionPaymentStatus(ctx, *payment.OrderID, enums.OrderPaymentStatusUnpaid, enums.OrderPaymentStatusPending); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order payment pending")
		}
	}

	stored, err := s.payments.FindByReference(ctx, payment.Reference)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return &InitializeResult{
		AuthorizationURL: checkout.AuthorizationURL,
		AccessCode:       checkout.AccessCode,
		Reference:        payment.Reference,
		Payment:          FromModel(stored),
	}, nil
}

func (s *service) payableOrder(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, orders.MapLookupErr(err)
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}
	if order.Status != enums.OrderStatusPendingPayment || order.PaymentStatus == enums.OrderPaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
	}
	return order, nil
}

// Verify re-queries the gateway for a pending payment and applies the answer.
func (s *service) Verify(ctx context.Context, userID uuid.UUID, reference string) (*PaymentDTO, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}
	payment, err := s.payments.FindByReference(ctx, reference)
	if err != nil {
		return nil, mapLookupErr(err)
	}
	if payment.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment belongs to another user")
	}
	if payment.Status != enums.PaymentStatusPending {
		return FromModel(payment), nil
	}

	updated, _, err := s.applyGateway(ctx, payment, enums.PaymentSourceVerify)
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

// applyGateway routes the gateway's view of a payment to Settle or MarkFailed.
func (s *service) applyGateway(ctx context.Context, payment *models.Payment, source enums.PaymentSource) (*models.Payment, Outcome, error) {
	txn, err := s.gateway.Verify(ctx, payment.Reference)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify with payment provider")
	}
	switch txn.Status {
	case paystack.StatusSuccess:
		return s.settler.Settle(ctx, SettleInput{
			Reference:       payment.Reference,
			AmountKobo:      txn.AmountKobo,
			GatewayResponse: txn.GatewayResponse,
			PaidAt:          txn.PaidAt,
			Source:          source,
		})
	case paystack.StatusFailed, paystack.StatusAbandoned, paystack.StatusReversed:
		response := txn.GatewayResponse
		if response == "" {
			response = txn.Status
		}
		return s.settler.MarkFailed(ctx, FailInput{
			Reference:       payment.Reference,
			GatewayResponse: response,
			Source:          source,
		})
	}
	return payment, OutcomeNoop, nil
}

// PayWithWallet debits the customer's wallet and confirms the order in one transaction.
func (s *service) PayWithWallet(ctx context.Context, customerID, orderID uuid.UUID) (*WalletPaymentResult, error) {
	var result WalletPaymentResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		walletRepo := s.wallets.WithTx(tx)

		order, err := orderRepo.FindByID(ctx, orderID)
		if err != nil {
			return orders.MapLookupErr(err)
		}
		if order.CustomerID != customerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
		}
		if order.Status != enums.OrderStatusPendingPayment || order.PaymentStatus == enums.OrderPaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
		}
		if order.PaymentStatus != enums.OrderPaymentStatusUnpaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "a card checkout is open for this order")
		}

		if _, err := walletRepo.GetOrCreate(ctx, customerID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
		}
		debited, err := walletRepo.Debit(ctx, customerID, order.TotalAmountKobo)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit wallet")
		}
		if !debited {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient wallet balance")
		}

		paid, err := orderRepo.MarkPaid(ctx, order.ID, enums.OrderPaymentStatusUnpaid)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		if !paid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
		}

		paidAt := s.now().UTC()
		orderRef := order.ID
		payment, err := s.payments.WithTx(tx).Create(ctx, &models.Payment{
			UserID:      customerID,
			OrderID:     &orderRef,
			AmountKobo:  order.TotalAmountKobo,
			Currency:    order.Currency,
			PaymentType: enums.PaymentTypeWalletPayment,
			Reference:   NewReference(),
			Status:      enums.PaymentStatusSuccess,
			PaidAt:      &paidAt,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record wallet payment")
		}
		if err := s.outbox.Emit(ctx, tx, settledEvent(payment, enums.PaymentSourceWallet)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit payment settled")
		}

		updatedOrder, err := orderRepo.FindByID(ctx, order.ID)
		if err != nil {
			return orders.MapLookupErr(err)
		}
		wallet, err := walletRepo.FindByUserID(ctx, customerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload wallet")
		}
		result = WalletPaymentResult{
			Order:   orders.FromModel(updatedOrder),
			Payment: FromModel(payment),
			Wallet:  wallets.FromModel(wallet),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) ListTransactions(ctx context.Context, userID uuid.UUID) ([]PaymentDTO, error) {
	rows, err := s.payments.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	out := make([]PaymentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// ReconcileStale re-verifies pending gateway payments older than olderThan. A failing row does not
// stop the batch; all errors are combined.
func (s *service) ReconcileStale(ctx context.Context, olderThan time.Duration, limit int) (ReconcileSummary, error) {
	var summary ReconcileSummary
	if limit <= 0 {
		limit = 50
	}
	cutoff := s.now().UTC().Add(-olderThan)
	rows, err := s.payments.ListStalePending(ctx, cutoff, limit)
	if err != nil {
		return summary, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale payments")
	}

	var errs error
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return summary, multierr.Append(errs, err)
		}
		summary.Scanned++
		_, outcome, err := s.applyGateway(ctx, &rows[i], enums.PaymentSourceReconcile)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reconcile %s: %w", rows[i].Reference, err))
			continue
		}
		switch outcome {
		case OutcomeSettled:
			summary.Settled++
		case OutcomeFailed, OutcomeMismatch:
			summary.Failed++
		default:
			summary.Pending++
		}
	}
	return summary, errs
}
