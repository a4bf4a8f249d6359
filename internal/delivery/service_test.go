package delivery

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/agromarket/agromarket-backend/internal/orders"
	"github.com/agromarket/agromarket-backend/pkg/db/dbtest"
	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/enums"
	pkgerrors "github.com/agromarket/agromarket-backend/pkg/errors"
	"github.com/agromarket/agromarket-backend/pkg/outbox"
)

type fixture struct {
	svc      Service
	conn     *gorm.DB
	farmer   *models.Profile
	customer *models.Profile
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.New(t)
	conn := client.DB()
	svc, err := NewService(ServiceParams{
		Orders:            orders.NewRepository(conn),
		DB:                client,
		Outbox:            outbox.NewService(outbox.NewRepository(conn), nil),
		CommissionPercent: 10,
	})
	require.NoError(t, err)
	return fixture{
		svc:      svc,
		conn:     conn,
		farmer:   dbtest.Profile(t, conn, enums.RoleFarmer),
		customer: dbtest.Profile(t, conn, enums.RoleCustomer),
	}
}

func (f fixture) confirmedOrder(t *testing.T, totalKobo int64) *models.Order {
	return dbtest.Order(t, f.conn, f.customer.ID, f.farmer.ID, totalKobo, enums.OrderStatusConfirmed, enums.OrderPaymentStatusPaid)
}

func TestClaimAndComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := dbtest.Profile(t, f.conn, enums.RoleDeliveryAgent)
	order := f.confirmedOrder(t, 100000)
	f.confirmedOrder(t, 5000)

	jobs, err := f.svc.ListJobs(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	claimed, err := f.svc.Claim(ctx, agent.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusInTransit, claimed.Status)
	require.NotNil(t, claimed.DeliveryAgentID)
	assert.Equal(t, agent.ID, *claimed.DeliveryAgentID)
	assert.NotNil(t, claimed.ClaimedAt)

	jobs, err = f.svc.ListJobs(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	active, err := f.svc.ListActive(ctx, agent.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	done, err := f.svc.Complete(ctx, agent.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, done.Status)

	again, err := f.svc.Complete(ctx, agent.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, done.DeliveredAt, again.DeliveredAt)

	completed, err := f.svc.ListCompleted(ctx, agent.ID)
	require.NoError(t, err)
	assert.Len(t, completed, 1)

	var delivered int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventOrderDelivered).Count(&delivered).Error)
	assert.EqualValues(t, 1, delivered)
}

func TestClaimErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := dbtest.Profile(t, f.conn, enums.RoleDeliveryAgent)
	rival := dbtest.Profile(t, f.conn, enums.RoleDeliveryAgent)
	order := f.confirmedOrder(t, 1000)
	unpaid := dbtest.Order(t, f.conn, f.customer.ID, f.farmer.ID, 1000, enums.OrderStatusPendingPayment, enums.OrderPaymentStatusUnpaid)

	_, err := f.svc.Claim(ctx, agent.ID, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Claim(ctx, agent.ID, unpaid.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = f.svc.Claim(ctx, agent.ID, order.ID)
	require.NoError(t, err)
	_, err = f.svc.Claim(ctx, rival.ID, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = f.svc.Complete(ctx, rival.ID, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestConcurrentClaimsHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	order := f.confirmedOrder(t, 1000)

	agents := make([]*models.Profile, 6)
	for i := range agents {
		agents[i] = dbtest.Profile(t, f.conn, enums.RoleDeliveryAgent)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   int
		conflicts int
	)
	for _, agent := range agents {
		wg.Add(1)
		go func(agentID uuid.UUID) {
			defer wg.Done()
			_, err := f.svc.Claim(context.Background(), agentID, order.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case pkgerrors.IsCode(err, pkgerrors.CodeConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(agent.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, len(agents)-1, conflicts)

	var claims int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventOrderClaimed).Count(&claims).Error)
	assert.EqualValues(t, 1, claims)
}

func TestEarningsAndDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := dbtest.Profile(t, f.conn, enums.RoleDeliveryAgent)

	for _, total := range []int64{100000, 55555} {
		order := f.confirmedOrder(t, total)
		_, err := f.svc.Claim(ctx, agent.ID, order.ID)
		require.NoError(t, err)
		_, err = f.svc.Complete(ctx, agent.ID, order.ID)
		require.NoError(t, err)
	}
	inFlight := f.confirmedOrder(t, 7000)
	_, err := f.svc.Claim(ctx, agent.ID, inFlight.ID)
	require.NoError(t, err)
	f.confirmedOrder(t, 3000)

	earnings, err := f.svc.Earnings(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "1555.55", earnings.DeliveredValue.String())
	assert.Equal(t, "155.56", earnings.TotalEarnings.String())
	assert.EqualValues(t, 2, earnings.CompletedCount)

	dash, err := f.svc.Dashboard(ctx, agent.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, dash.AvailableJobs)
	assert.EqualValues(t, 1, dash.ActiveDeliveries)
	assert.EqualValues(t, 2, dash.CompletedDeliveries)
}
