package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/agromarket/agromarket-backend/internal/payments"
	"github.com/agromarket/agromarket-backend/pkg/logger"
)

const (
	defaultReconcileStaleAfter = 15 * time.Minute
	defaultReconcileBatchSize  = 50
)

type paymentReconciler interface {
	ReconcileStale(ctx context.Context, olderThan time.Duration, limit int) (payments.ReconcileSummary, error)
}

type PaymentReconcileJobParams struct {
	Logger     *logger.Logger
	Payments   paymentReconciler
	StaleAfter time.Duration
	BatchSize  int
}

// NewPaymentReconcileJob re-verifies payments stuck in pending with the gateway.
func NewPaymentReconcileJob(params PaymentReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment reconciler required")
	}
	staleAfter := params.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultReconcileStaleAfter
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatchSize
	}
	return &paymentReconcileJob{
		logg:       params.Logger,
		payments:   params.Payments,
		staleAfter: staleAfter,
		batch:      batch,
	}, nil
}

type paymentReconcileJob struct {
	logg       *logger.Logger
	payments   paymentReconciler
	staleAfter time.Duration
	batch      int
}

func (j *paymentReconcileJob) Name() string { return "payment-reconcile" }

func (j *paymentReconcileJob) Run(ctx context.Context) error {
	summary, err := j.payments.ReconcileStale(ctx, j.staleAfter, j.batch)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned": summary.Scanned,
		"settled": summary.Settled,
		"failed":  summary.Failed,
		"pending": summary.Pending,
	})
	if err != nil {
		return fmt.Errorf("payment reconcile: %w", err)
	}
	j.logg.Info(logCtx, "payment reconcile complete")
	return nil
}
