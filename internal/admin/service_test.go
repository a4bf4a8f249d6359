package admin

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/agromarket/agromarket-backend/internal/orders"
	"github.com/agromarket/agromarket-backend/internal/payments"
	product "github.com/agromarket/agromarket-backend/internal/products"
	"github.com/agromarket/agromarket-backend/internal/profiles"
	"github.com/agromarket/agromarket-backend/pkg/config"
	"github.com/agromarket/agromarket-backend/pkg/db/dbtest"
	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/enums"
	pkgerrors "github.com/agromarket/agromarket-backend/pkg/errors"
	"github.com/agromarket/agromarket-backend/pkg/pagination"
)

func newService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client := dbtest.New(t)
	conn := client.DB()
	svc, err := NewService(ServiceParams{
		DB:             client,
		Profiles:       profiles.NewRepository(conn),
		Orders:         orders.NewRepository(conn),
		Products:       product.NewRepository(conn),
		Payments:       payments.NewRepository(conn),
		PasswordConfig: config.PasswordConfig{ArgonMemoryKB: 8 * 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32},
	})
	require.NoError(t, err)
	return svc, conn
}

func TestStats(t *testing.T) {
	svc, conn := newService(t)
	farmer := dbtest.Profile(t, conn, enums.RoleFarmer)
	customer := dbtest.Profile(t, conn, enums.RoleCustomer)
	dbtest.Product(t, conn, farmer.ID, 1000, 5)
	for i := 0; i < 6; i++ {
		dbtest.Order(t, conn, customer.ID, farmer.ID, 1000, enums.OrderStatusPendingPayment, enums.OrderPaymentStatusUnpaid)
	}
	require.NoError(t, conn.Create(&models.Payment{
		ID: uuid.New(), UserID: customer.ID, AmountKobo: 250050, Currency: "NGN", PaymentType: enums.PaymentTypeWalletTopup,
		Reference: "AGRO-a", Status: enums.PaymentStatusSuccess,
	}).Error)
	require.NoError(t, conn.Create(&models.Payment{
		ID: uuid.New(), UserID: customer.ID, AmountKobo: 9999, Currency: "NGN", PaymentType: enums.PaymentTypeWalletPayment,
		Reference: "AGRO-b", Status: enums.PaymentStatusSuccess,
	}).Error)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(6), stats.TotalOrders)
	assert.Equal(t, int64(1), stats.ActiveProducts)
	assert.Equal(t, "2500.5", stats.Revenue.String())
	assert.Len(t, stats.RecentOrders, recentOrdersLimit)
}

func TestCreateUserDefaults(t *testing.T) {
	svc, conn := newService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, CreateUserInput{Email: "Ada@Farm.ng", Password: "password123", Role: "farmer"})
	require.NoError(t, err)
	assert.Equal(t, "ada@farm.ng", user.Email)
	assert.Equal(t, "ada", user.FullName)
	assert.Equal(t, enums.RoleFarmer, user.Role)

	var wallets int64
	require.NoError(t, conn.Model(&models.Wallet{}).Where("user_id = ?", user.ID).Count(&wallets).Error)
	assert.Equal(t, int64(1), wallets)

	_, err = svc.CreateUser(ctx, CreateUserInput{Email: "ada@farm.ng", Password: "password123"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = svc.CreateUser(ctx, CreateUserInput{Email: "x@farm.ng", Password: "password123", Role: "superuser"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	list, err := svc.ListUsers(ctx, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Count)
}

func TestUpdateRole(t *testing.T) {
	svc, conn := newService(t)
	ctx := context.Background()
	admin := dbtest.Profile(t, conn, enums.RoleAdmin)
	user := dbtest.Profile(t, conn, enums.RoleCustomer)

	updated, err := svc.UpdateRole(ctx, admin.ID, user.ID, UpdateRoleInput{Role: "delivery_agent"})
	require.NoError(t, err)
	assert.Equal(t, enums.RoleDeliveryAgent, updated.Role)

	_, err = svc.UpdateRole(ctx, admin.ID, admin.ID, UpdateRoleInput{Role: "customer"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.UpdateRole(ctx, admin.ID, admin.ID, UpdateRoleInput{Role: "admin"})
	require.NoError(t, err)

	_, err = svc.UpdateRole(ctx, admin.ID, user.ID, UpdateRoleInput{Role: "root"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
