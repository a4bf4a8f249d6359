package paystackwebhook

import (
	"context"
	"fmt"
	"strings"

	"github.com/agromarket/agromarket-backend/internal/payments"
	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/enums"
	pkgerrors "github.com/agromarket/agromarket-backend/pkg/errors"
	"github.com/agromarket/agromarket-backend/pkg/logger"
	"github.com/agromarket/agromarket-backend/pkg/metrics"
	"github.com/agromarket/agromarket-backend/pkg/paystack"
)

const (
	rejectMissingSignature = "missing_signature"
	rejectBadSignature     = "bad_signature"
	rejectMalformed        = "malformed_body"
)

type settler interface {
	Settle(ctx context.Context, in payments.SettleInput) (*models.Payment, payments.Outcome, error)
	MarkFailed(ctx context.Context, in payments.FailInput) (*models.Payment, payments.Outcome, error)
}

type ServiceParams struct {
	Keys    paystack.KeyResolver
	Settler settler
	Guard   *EventGuard
	Metrics *metrics.PaymentMetrics
	Logger  *logger.Logger
}

type Service struct {
	keys    paystack.KeyResolver
	settler settler
	guard   *EventGuard
	metrics *metrics.PaymentMetrics
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Keys == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "paystack key resolver required")
	}
	if params.Settler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settler required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event guard required")
	}
	return &Service{
		keys:    params.Keys,
		settler: params.Settler,
		guard:   params.Guard,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

// Handle verifies and applies one webhook delivery. Signature failures return a validation error
// before anything is read from or written to storage.
func (s *Service) Handle(ctx context.Context, body []byte, signature string) error {
	if strings.TrimSpace(signature) == "" {
		s.metrics.IncWebhookRejection(provider, rejectMissingSignature)
		return pkgerrors.New(pkgerrors.CodeValidation, "missing webhook signature")
	}
	secret, err := s.keys.SecretKey(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve paystack secret key")
	}
	if !paystack.VerifySignature(secret, body, signature) {
		s.metrics.IncWebhookRejection(provider, rejectBadSignature)
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid webhook signature")
	}

	event, err := paystack.ParseEvent(body)
	if err != nil {
		s.metrics.IncWebhookRejection(provider, rejectMalformed)
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload")
	}
	if event.Event != paystack.EventChargeSuccess && event.Event != paystack.EventChargeFailed {
		s.logInfo(ctx, "paystack.webhook.ignored", event)
		return nil
	}
	if event.Data.Reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook reference is required")
	}

	eventID := fmt.Sprintf("%s:%s", event.Event, event.Data.Reference)
	seen, err := s.guard.CheckAndMark(ctx, eventID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook guard")
	}
	if seen {
		s.logInfo(ctx, "paystack.webhook.duplicate", event)
		return nil
	}

	if err := s.apply(ctx, event); err != nil {
		if delErr := s.guard.Delete(ctx, eventID); delErr != nil && s.logg != nil {
			s.logg.Error(ctx, "paystack.webhook.guard_release_failed", delErr)
		}
		return err
	}
	return nil
}

func (s *Service) apply(ctx context.Context, event *paystack.Event) error {
	switch event.Event {
	case paystack.EventChargeSuccess:
		_, outcome, err := s.settler.Settle(ctx, payments.SettleInput{
			Reference:       event.Data.Reference,
			AmountKobo:      event.Data.AmountKobo,
			GatewayResponse: event.Data.GatewayResponse,
			PaidAt:          event.Data.PaidAt,
			Source:          enums.PaymentSourceWebhook,
		})
		if err != nil {
			return err
		}
		s.logOutcome(ctx, event, outcome)
	case paystack.EventChargeFailed:
		reason := event.Data.GatewayResponse
		if reason == "" {
			reason = event.Event
		}
		_, outcome, err := s.settler.MarkFailed(ctx, payments.FailInput{
			Reference:       event.Data.Reference,
			GatewayResponse: reason,
			Source:          enums.PaymentSourceWebhook,
		})
		if err != nil {
			return err
		}
		s.logOutcome(ctx, event, outcome)
	}
	return nil
}

func (s *Service) logInfo(ctx context.Context, msg string, event *paystack.Event) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event":     event.Event,
		"reference": event.Data.Reference,
	})
	s.logg.Info(ctx, msg)
}

func (s *Service) logOutcome(ctx context.Context, event *paystack.Event, outcome payments.Outcome) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event":     event.Event,
		"reference": event.Data.Reference,
		"outcome":   string(outcome),
	})
	s.logg.Info(ctx, "paystack.webhook.applied")
}
