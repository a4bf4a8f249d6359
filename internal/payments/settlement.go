package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agromarket/agromarket-backend/internal/orders"
	"github.com/agromarket/agromarket-backend/internal/wallets"
	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/enums"
	pkgerrors "github.com/agromarket/agromarket-backend/pkg/errors"
	"github.com/agromarket/agromarket-backend/pkg/logger"
	"github.com/agromarket/agromarket-backend/pkg/metrics"
	"github.com/agromarket/agromarket-backend/pkg/outbox"
)

// Outcome describes what a settle or fail attempt did.
type Outcome string

const (
	OutcomeSettled  Outcome = metrics.OutcomeSettled
	OutcomeFailed   Outcome = metrics.OutcomeFailed
	OutcomeNoop     Outcome = metrics.OutcomeNoop
	OutcomeMismatch Outcome = metrics.OutcomeMismatch
)

const amountMismatchReason = "amount mismatch"

// SettleInput is a gateway confirmation. AmountKobo zero means the gateway did not report one.
type SettleInput struct {
	Reference       string
	AmountKobo      int64
	GatewayResponse string
	PaidAt          *time.Time
	Source          enums.PaymentSource
}

// FailInput is a gateway failure.
type FailInput struct {
	Reference       string
	GatewayResponse string
	Source          enums.PaymentSource
}

// Settler applies gateway outcomes to payments, wallets and orders. Every path is guarded on the
// payment still being pending, so any number of verify, webhook and reconcile calls credit once.
type Settler struct {
	tx       txRunner
	payments *Repository
	wallets  *wallets.Repository
	orders   orders.Repository
	outbox   outboxPublisher
	metrics  *metrics.PaymentMetrics
	logg     *logger.Logger
	now      func() time.Time
}

type SettlerParams struct {
	DB       txRunner
	Payments *Repository
	Wallets  *wallets.Repository
	Orders   orders.Repository
	Outbox   outboxPublisher
	Metrics  *metrics.PaymentMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

func NewSettler(params SettlerParams) (*Settler, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Payments == nil || params.Wallets == nil || params.Orders == nil {
		return nil, fmt.Errorf("payment, wallet and order repositories required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Settler{
		tx:       params.DB,
		payments: params.Payments,
		wallets:  params.Wallets,
		orders:   params.Orders,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// Settle marks the payment successful and applies its effect exactly once.
func (s *Settler) Settle(ctx context.Context, in SettleInput) (*models.Payment, Outcome, error) {
	var (
		result  *models.Payment
		outcome Outcome
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.payments.WithTx(tx)
		payment, err := repo.FindByReference(ctx, in.Reference)
		if err != nil {
			return mapLookupErr(err)
		}

		if in.AmountKobo > 0 && in.AmountKobo != payment.AmountKobo {
			failed, err := s.fail(ctx, tx, payment, amountMismatchReason, in.Source)
			if err != nil {
				return err
			}
			outcome = OutcomeMismatch
			if !failed {
				outcome = OutcomeNoop
			}
			result, err = repo.FindByReference(ctx, in.Reference)
			return err
		}

		paidAt := s.now().UTC()
		if in.PaidAt != nil && !in.PaidAt.IsZero() {
			paidAt = in.PaidAt.UTC()
		}
		changed, err := repo.MarkSuccess(ctx, in.Reference, paidAt, in.GatewayResponse)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment success")
		}
		if !changed {
			outcome = OutcomeNoop
			result = payment
			return nil
		}

		if err := s.apply(ctx, tx, payment); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, settledEvent(payment, in.Source)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit payment settled")
		}

		outcome = OutcomeSettled
		result, err = repo.FindByReference(ctx, in.Reference)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	s.metrics.ObserveSettlement(in.Source.String(), string(outcome))
	return result, outcome, nil
}

// MarkFailed marks a pending payment failed. A purchase order becomes payable again.
func (s *Settler) MarkFailed(ctx context.Context, in FailInput) (*models.Payment, Outcome, error) {
	var (
		result  *models.Payment
		outcome Outcome
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.payments.WithTx(tx)
		payment, err := repo.FindByReference(ctx, in.Reference)
		if err != nil {
			return mapLookupErr(err)
		}
		failed, err := s.fail(ctx, tx, payment, in.GatewayResponse, in.Source)
		if err != nil {
			return err
		}
		outcome = OutcomeFailed
		if !failed {
			outcome = OutcomeNoop
		}
		result, err = repo.FindByReference(ctx, in.Reference)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	s.metrics.ObserveSettlement(in.Source.String(), string(outcome))
	return result, outcome, nil
}

func (s *Settler) apply(ctx context.Context, tx *gorm.DB, payment *models.Payment) error {
	walletRepo := s.wallets.WithTx(tx)
	switch payment.PaymentType {
	case enums.PaymentTypeWalletTopup:
		return s.credit(ctx, walletRepo, payment.UserID, payment.AmountKobo)
	case enums.PaymentTypeProductPurchase:
		if payment.OrderID == nil {
			return pkgerrors.New(pkgerrors.CodeInternal, "purchase payment has no order")
		}
		paid, err := s.orders.WithTx(tx).MarkPaid(ctx, *payment.OrderID, enums.OrderPaymentStatusUnpaid, enums.OrderPaymentStatusPending)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		if paid {
			return nil
		}
		// A second checkout for an already paid order captured money twice. Refund it to the
		// buyer's balance; it is not a top-up.
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"reference": payment.Reference,
				"order_id":  payment.OrderID.String(),
			})
			s.logg.Warn(logCtx, "purchase settled for an order that is no longer payable; refunding to wallet")
		}
		if _, err := walletRepo.GetOrCreate(ctx, payment.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
		}
		if err := walletRepo.Refund(ctx, payment.UserID, payment.AmountKobo); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund to wallet")
		}
		return nil
	case enums.PaymentTypeWalletPayment:
		return nil
	}
	return pkgerrors.Newf(pkgerrors.CodeInternal, "unknown payment type %q", payment.PaymentType)
}

func (s *Settler) credit(ctx context.Context, repo *wallets.Repository, userID uuid.UUID, amountKobo int64) error {
	if _, err := repo.GetOrCreate(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	if err := repo.Credit(ctx, userID, amountKobo); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit wallet")
	}
	return nil
}

// fail reports whether the payment moved from pending to failed.
func (s *Settler) fail(ctx context.Context, tx *gorm.DB, payment *models.Payment, reason string, source enums.PaymentSource) (bool, error) {
	changed, err := s.payments.WithTx(tx).MarkFailed(ctx, payment.Reference, reason)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
	}
	if !changed {
		return false, nil
	}
	if payment.PaymentType == enums.PaymentTypeProductPurchase && payment.OrderID != nil {
		if _, err := s.orders.WithTx(tx).TransitionPaymentStatus(ctx, *payment.OrderID, enums.OrderPaymentStatusPending, enums.OrderPaymentStatusUnpaid); err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset order payment status")
		}
	}
	if err := s.outbox.Emit(ctx, tx, failedEvent(payment, reason, source)); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit payment failed")
	}
	return true, nil
}

func settledEvent(p *models.Payment, source enums.PaymentSource) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventPaymentSettled,
		AggregateType: enums.AggregatePayment,
		AggregateID:   p.ID,
		Actor:         &outbox.ActorRef{UserID: p.UserID},
		Data: outbox.PaymentSettledEvent{
			PaymentID:   p.ID,
			UserID:      p.UserID,
			OrderID:     p.OrderID,
			Reference:   p.Reference,
			PaymentType: p.PaymentType,
			AmountKobo:  p.AmountKobo,
			Source:      source,
		},
	}
}

func failedEvent(p *models.Payment, reason string, source enums.PaymentSource) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventPaymentFailed,
		AggregateType: enums.AggregatePayment,
		AggregateID:   p.ID,
		Actor:         &outbox.ActorRef{UserID: p.UserID},
		Data: outbox.PaymentFailedEvent{
			PaymentID:   p.ID,
			UserID:      p.UserID,
			OrderID:     p.OrderID,
			Reference:   p.Reference,
			PaymentType: p.PaymentType,
			Reason:      reason,
			Source:      source,
		},
	}
}

func mapLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
}
