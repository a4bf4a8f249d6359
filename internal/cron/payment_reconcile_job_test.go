package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agromarket/agromarket-backend/internal/payments"
	"github.com/agromarket/agromarket-backend/pkg/logger"
)

type fakeReconciler struct {
	olderThan time.Duration
	limit     int
	err       error
}

func (f *fakeReconciler) ReconcileStale(_ context.Context, olderThan time.Duration, limit int) (payments.ReconcileSummary, error) {
	f.olderThan = olderThan
	f.limit = limit
	return payments.ReconcileSummary{Scanned: 3, Settled: 1, Failed: 1, Pending: 1}, f.err
}

func TestPaymentReconcileJobDefaults(t *testing.T) {
	rec := &fakeReconciler{}
	job, err := NewPaymentReconcileJob(PaymentReconcileJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Payments: rec,
	})
	if err != nil {
		t.Fatalf("NewPaymentReconcileJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.olderThan != defaultReconcileStaleAfter || rec.limit != defaultReconcileBatchSize {
		t.Fatalf("unexpected window %s / %d", rec.olderThan, rec.limit)
	}
}

func TestPaymentReconcileJobReturnsCombinedErrors(t *testing.T) {
	rec := &fakeReconciler{err: errors.New("gateway timeout")}
	job, err := NewPaymentReconcileJob(PaymentReconcileJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Payments:   rec,
		StaleAfter: time.Hour,
		BatchSize:  5,
	})
	if err != nil {
		t.Fatalf("NewPaymentReconcileJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if rec.olderThan != time.Hour || rec.limit != 5 {
		t.Fatalf("unexpected window %s / %d", rec.olderThan, rec.limit)
	}
}
