package paystackwebhook

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromarket/agromarket-backend/internal/payments"
	"github.com/agromarket/agromarket-backend/pkg/db/models"
	pkgerrors "github.com/agromarket/agromarket-backend/pkg/errors"
	"github.com/agromarket/agromarket-backend/pkg/metrics"
	"github.com/agromarket/agromarket-backend/pkg/paystack"
	"github.com/agromarket/agromarket-backend/pkg/redis"
)

const testSecret = "sk_test_webhook"

type stubSettler struct {
	mu       sync.Mutex
	settled  []payments.SettleInput
	failed   []payments.FailInput
	settleFn func() error
}

func (s *stubSettler) Settle(_ context.Context, in payments.SettleInput) (*models.Payment, payments.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settleFn != nil {
		if err := s.settleFn(); err != nil {
			return nil, "", err
		}
	}
	s.settled = append(s.settled, in)
	return &models.Payment{Reference: in.Reference}, payments.OutcomeSettled, nil
}

func (s *stubSettler) MarkFailed(_ context.Context, in payments.FailInput) (*models.Payment, payments.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, in)
	return &models.Payment{Reference: in.Reference}, payments.OutcomeFailed, nil
}

type fixture struct {
	svc     *Service
	settler *stubSettler
	reg     *prometheus.Registry
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	srv, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	raw := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = raw.Close() })

	guard, err := NewEventGuard(redis.Wrap(raw), time.Hour)
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	settler := &stubSettler{}
	svc, err := NewService(ServiceParams{
		Keys:    paystack.StaticKey(testSecret),
		Settler: settler,
		Guard:   guard,
		Metrics: metrics.NewPaymentMetrics(reg),
	})
	require.NoError(t, err)
	return fixture{svc: svc, settler: settler, reg: reg}
}

func eventBody(t *testing.T, name, reference string, amountKobo int64) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"event": name,
		"data": map[string]any{
			"reference":        reference,
			"amount":           amountKobo,
			"status":           "success",
			"gateway_response": "Approved",
		},
	})
	require.NoError(t, err)
	return body
}

func TestHandleRejectsBadSignatures(t *testing.T) {
	f := newFixture(t)
	body := eventBody(t, paystack.EventChargeSuccess, "AGRO-1", 1000)

	err := f.svc.Handle(context.Background(), body, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = f.svc.Handle(context.Background(), body, paystack.Sign("other-secret", body))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	assert.Empty(t, f.settler.settled)
	count, err := testutil.GatherAndCount(f.reg, "agro_webhook_rejections_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestHandleChargeSuccessDeduplicates(t *testing.T) {
	f := newFixture(t)
	body := eventBody(t, paystack.EventChargeSuccess, "AGRO-2", 5000)
	sig := paystack.Sign(testSecret, body)

	require.NoError(t, f.svc.Handle(context.Background(), body, sig))
	require.NoError(t, f.svc.Handle(context.Background(), body, sig))

	require.Len(t, f.settler.settled, 1)
	assert.Equal(t, "AGRO-2", f.settler.settled[0].Reference)
	assert.Equal(t, int64(5000), f.settler.settled[0].AmountKobo)
}

func TestHandleReleasesGuardOnFailure(t *testing.T) {
	f := newFixture(t)
	body := eventBody(t, paystack.EventChargeSuccess, "AGRO-3", 5000)
	sig := paystack.Sign(testSecret, body)

	f.settler.settleFn = func() error { return errors.New("db down") }
	require.Error(t, f.svc.Handle(context.Background(), body, sig))

	f.settler.settleFn = nil
	require.NoError(t, f.svc.Handle(context.Background(), body, sig))
	assert.Len(t, f.settler.settled, 1)
}

func TestHandleChargeFailedAndIgnoredEvents(t *testing.T) {
	f := newFixture(t)
	failed := eventBody(t, paystack.EventChargeFailed, "AGRO-4", 5000)
	require.NoError(t, f.svc.Handle(context.Background(), failed, paystack.Sign(testSecret, failed)))
	require.Len(t, f.settler.failed, 1)
	assert.Equal(t, "Approved", f.settler.failed[0].GatewayResponse)

	other := eventBody(t, "transfer.success", "AGRO-5", 5000)
	require.NoError(t, f.svc.Handle(context.Background(), other, paystack.Sign(testSecret, other)))
	assert.Empty(t, f.settler.settled)
}
