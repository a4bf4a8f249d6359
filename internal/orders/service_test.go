package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	product "github.com/agromarket/agromarket-backend/internal/products"
	"github.com/agromarket/agromarket-backend/pkg/db/dbtest"
	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/enums"
	pkgerrors "github.com/agromarket/agromarket-backend/pkg/errors"
	"github.com/agromarket/agromarket-backend/pkg/outbox"
	"github.com/agromarket/agromarket-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client := dbtest.New(t)
	conn := client.DB()
	svc, err := NewService(
		NewRepository(conn),
		product.NewRepository(conn),
		client,
		outbox.NewService(outbox.NewRepository(conn), nil),
	)
	require.NoError(t, err)
	return svc, conn
}

func countEvents(t *testing.T, conn *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

func TestCheckoutReservesInventory(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	farmer := dbtest.Profile(t, conn, enums.RoleFarmer)
	customer := dbtest.Profile(t, conn, enums.RoleCustomer)
	listing := dbtest.Product(t, conn, farmer.ID, 250000, 5)

	order, err := svc.Checkout(ctx, customer.ID, CheckoutInput{ProductID: listing.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPendingPayment, order.Status)
	assert.Equal(t, enums.OrderPaymentStatusUnpaid, order.PaymentStatus)
	assert.Equal(t, "5000", order.TotalAmount.String())
	require.NotNil(t, order.FarmerID)
	assert.Equal(t, farmer.ID, *order.FarmerID)

	var stored models.Product
	require.NoError(t, conn.First(&stored, "id = ?", listing.ID).Error)
	assert.Equal(t, 3, stored.Inventory)
	assert.EqualValues(t, 1, countEvents(t, conn, enums.EventOrderCreated))
}

func TestCheckoutInsufficientStockLeavesNoOrder(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	farmer := dbtest.Profile(t, conn, enums.RoleFarmer)
	customer := dbtest.Profile(t, conn, enums.RoleCustomer)
	listing := dbtest.Product(t, conn, farmer.ID, 1000, 1)

	_, err := svc.Checkout(ctx, customer.ID, CheckoutInput{ProductID: listing.ID, Quantity: 2})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	var count int64
	require.NoError(t, conn.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Zero(t, countEvents(t, conn, enums.EventOrderCreated))

	_, err = svc.Checkout(ctx, farmer.ID, CheckoutInput{ProductID: listing.ID, Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Checkout(ctx, customer.ID, CheckoutInput{ProductID: uuid.New(), Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListIsScopedByRole(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	farmer := dbtest.Profile(t, conn, enums.RoleFarmer)
	otherFarmer := dbtest.Profile(t, conn, enums.RoleFarmer)
	customer := dbtest.Profile(t, conn, enums.RoleCustomer)
	agent := dbtest.Profile(t, conn, enums.RoleDeliveryAgent)
	admin := dbtest.Profile(t, conn, enums.RoleAdmin)

	mine := dbtest.Order(t, conn, customer.ID, farmer.ID, 1000, enums.OrderStatusConfirmed, enums.OrderPaymentStatusPaid)
	dbtest.Order(t, conn, customer.ID, otherFarmer.ID, 1000, enums.OrderStatusPendingPayment, enums.OrderPaymentStatusUnpaid)
	require.NoError(t, conn.Model(mine).Update("delivery_agent_id", agent.ID).Error)

	cases := []struct {
		user uuid.UUID
		role enums.Role
		want int64
	}{
		{customer.ID, enums.RoleCustomer, 2},
		{farmer.ID, enums.RoleFarmer, 1},
		{agent.ID, enums.RoleDeliveryAgent, 1},
		{admin.ID, enums.RoleAdmin, 2},
	}
	for _, tc := range cases {
		list, err := svc.List(ctx, tc.user, tc.role, pagination.Params{})
		require.NoError(t, err)
		assert.Equal(t, tc.want, list.Count, tc.role)
	}

	_, err := svc.List(ctx, customer.ID, enums.Role("guest"), pagination.Params{})
	assert.Error(t, err)
}

func TestGetChecksVisibility(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	farmer := dbtest.Profile(t, conn, enums.RoleFarmer)
	customer := dbtest.Profile(t, conn, enums.RoleCustomer)
	stranger := dbtest.Profile(t, conn, enums.RoleCustomer)
	order := dbtest.Order(t, conn, customer.ID, farmer.ID, 1000, enums.OrderStatusPendingPayment, enums.OrderPaymentStatusUnpaid)

	_, err := svc.Get(ctx, customer.ID, enums.RoleCustomer, order.ID)
	require.NoError(t, err)
	_, err = svc.Get(ctx, farmer.ID, enums.RoleFarmer, order.ID)
	require.NoError(t, err)
	_, err = svc.Get(ctx, stranger.ID, enums.RoleCustomer, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = svc.Get(ctx, customer.ID, enums.RoleCustomer, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestFarmerEarningsCountsPaidOrders(t *testing.T) {
	svc, conn := newTestService(t)
	farmer := dbtest.Profile(t, conn, enums.RoleFarmer)
	customer := dbtest.Profile(t, conn, enums.RoleCustomer)
	dbtest.Order(t, conn, customer.ID, farmer.ID, 150000, enums.OrderStatusConfirmed, enums.OrderPaymentStatusPaid)
	dbtest.Order(t, conn, customer.ID, farmer.ID, 50050, enums.OrderStatusDelivered, enums.OrderPaymentStatusPaid)
	dbtest.Order(t, conn, customer.ID, farmer.ID, 99900, enums.OrderStatusPendingPayment, enums.OrderPaymentStatusUnpaid)

	earnings, err := svc.FarmerEarnings(context.Background(), farmer.ID)
	require.NoError(t, err)
	assert.Equal(t, "2000.5", earnings.TotalEarnings.String())
	assert.EqualValues(t, 2, earnings.PaidOrders)
	assert.EqualValues(t, 3, earnings.TotalOrders)
	assert.EqualValues(t, 1, earnings.DeliveredOrders)
}

func TestMarkPaidIsGuarded(t *testing.T) {
	client := dbtest.New(t)
	repo := NewRepository(client.DB())
	farmer := dbtest.Profile(t, client.DB(), enums.RoleFarmer)
	customer := dbtest.Profile(t, client.DB(), enums.RoleCustomer)
	order := dbtest.Order(t, client.DB(), customer.ID, farmer.ID, 1000, enums.OrderStatusPendingPayment, enums.OrderPaymentStatusPending)
	ctx := context.Background()

	ok, err := repo.MarkPaid(ctx, order.ID, enums.OrderPaymentStatusUnpaid)
	require.NoError(t, err)
	assert.False(t, ok, "pending order must not be paid from unpaid")

	ok, err = repo.MarkPaid(ctx, order.ID, enums.OrderPaymentStatusUnpaid, enums.OrderPaymentStatusPending)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.MarkPaid(ctx, order.ID, enums.OrderPaymentStatusUnpaid, enums.OrderPaymentStatusPending)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, stored.Status)
	assert.Equal(t, enums.OrderPaymentStatusPaid, stored.PaymentStatus)
}
