package negotiations

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/agromarket/agromarket-backend/internal/orders"
	product "github.com/agromarket/agromarket-backend/internal/products"
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
	listing  *models.Product
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.New(t)
	conn := client.DB()
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Products: product.NewRepository(conn),
		Orders:   orders.NewRepository(conn),
		DB:       client,
		Outbox:   outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)
	farmer := dbtest.Profile(t, conn, enums.RoleFarmer)
	return fixture{
		svc:      svc,
		conn:     conn,
		farmer:   farmer,
		customer: dbtest.Profile(t, conn, enums.RoleCustomer),
		listing:  dbtest.Product(t, conn, farmer.ID, 500000, 10),
	}
}

func (f fixture) offer(t *testing.T, price string) *NegotiationDTO {
	t.Helper()
	n, err := f.svc.Create(context.Background(), f.customer.ID, CreateNegotiationInput{
		ProductID:    f.listing.ID,
		OfferedPrice: decimal.RequireFromString(price),
	})
	require.NoError(t, err)
	return n
}

func (f fixture) orderCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&count).Error)
	return count
}

func TestDecideTransitionTable(t *testing.T) {
	const (
		pending  = enums.NegotiationStatusPending
		counter  = enums.NegotiationStatusCounter
		rejected = enums.NegotiationStatusRejected
		accepted = enums.NegotiationStatusAccepted
	)
	cases := []struct {
		from, to enums.NegotiationStatus
		want     action
		conflict bool
	}{
		{pending, pending, actionNoop, false},
		{pending, counter, actionUpdate, false},
		{pending, rejected, actionUpdate, false},
		{pending, accepted, actionAccept, false},
		{counter, pending, 0, true},
		{counter, counter, actionUpdate, false},
		{counter, rejected, actionUpdate, false},
		{counter, accepted, actionAccept, false},
		{rejected, pending, 0, true},
		{rejected, counter, 0, true},
		{rejected, rejected, actionNoop, false},
		{rejected, accepted, 0, true},
		{accepted, pending, 0, true},
		{accepted, counter, 0, true},
		{accepted, rejected, 0, true},
		{accepted, accepted, actionNoop, false},
	}
	for _, tc := range cases {
		got, err := decide(tc.from, tc.to)
		if tc.conflict {
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "%s -> %s", tc.from, tc.to)
			continue
		}
		require.NoError(t, err, "%s -> %s", tc.from, tc.to)
		assert.Equal(t, tc.want, got, "%s -> %s", tc.from, tc.to)
	}
}

func TestCreateNegotiation(t *testing.T) {
	f := newFixture(t)
	n := f.offer(t, "4000")
	assert.Equal(t, enums.NegotiationStatusPending, n.Status)
	assert.Equal(t, "5000", n.InitialPrice.String())
	assert.Equal(t, "4000", n.NegotiatedPrice.String())
	assert.Equal(t, f.farmer.ID, n.FarmerID)

	ctx := context.Background()
	_, err := f.svc.Create(ctx, f.farmer.ID, CreateNegotiationInput{ProductID: f.listing.ID, OfferedPrice: decimal.NewFromInt(1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Create(ctx, f.customer.ID, CreateNegotiationInput{ProductID: uuid.New(), OfferedPrice: decimal.NewFromInt(1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Create(ctx, f.customer.ID, CreateNegotiationInput{ProductID: f.listing.ID, OfferedPrice: decimal.Zero})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAcceptCreatesExactlyOneOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n := f.offer(t, "4500")

	first, err := f.svc.Update(ctx, f.farmer.ID, n.ID, UpdateNegotiationInput{Status: "accepted"})
	require.NoError(t, err)
	require.NotNil(t, first.Order)
	assert.Equal(t, enums.NegotiationStatusAccepted, first.Negotiation.Status)
	assert.Equal(t, "4500", first.Order.TotalAmount.String())
	assert.Equal(t, enums.OrderStatusPendingPayment, first.Order.Status)
	require.NotNil(t, first.Negotiation.OrderID)
	assert.Equal(t, first.Order.ID, *first.Negotiation.OrderID)

	again, err := f.svc.Update(ctx, f.customer.ID, n.ID, UpdateNegotiationInput{Status: "accepted"})
	require.NoError(t, err)
	require.NotNil(t, again.Order)
	assert.Equal(t, first.Order.ID, again.Order.ID)
	assert.EqualValues(t, 1, f.orderCount(t))

	var events int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventOrderCreated).Count(&events).Error)
	assert.EqualValues(t, 1, events)

	_, err = f.svc.Update(ctx, f.farmer.ID, n.ID, UpdateNegotiationInput{Status: "rejected"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestConcurrentAcceptYieldsOneOrder(t *testing.T) {
	f := newFixture(t)
	n := f.offer(t, "4500")

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.Update(context.Background(), f.farmer.ID, n.ID, UpdateNegotiationInput{Status: "accepted"})
			if assert.NoError(t, err) && assert.NotNil(t, res.Order) {
				ids[i] = res.Order.ID
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, f.orderCount(t))
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestCounterReplacesPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n := f.offer(t, "3000")

	price := decimal.RequireFromString("4200.50")
	res, err := f.svc.Update(ctx, f.farmer.ID, n.ID, UpdateNegotiationInput{Status: "counter", CounterPrice: &price})
	require.NoError(t, err)
	assert.Equal(t, enums.NegotiationStatusCounter, res.Negotiation.Status)
	assert.Equal(t, "4200.5", res.Negotiation.NegotiatedPrice.String())

	res, err = f.svc.Update(ctx, f.customer.ID, n.ID, UpdateNegotiationInput{Status: "counter"})
	require.NoError(t, err)
	assert.Equal(t, "4200.5", res.Negotiation.NegotiatedPrice.String())

	_, err = f.svc.Update(ctx, f.customer.ID, n.ID, UpdateNegotiationInput{Status: "pending"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	accepted, err := f.svc.Update(ctx, f.customer.ID, n.ID, UpdateNegotiationInput{Status: "accepted"})
	require.NoError(t, err)
	assert.Equal(t, "4200.5", accepted.Order.TotalAmount.String())
}

func TestUpdateValidatesStatusAndParty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n := f.offer(t, "3000")
	stranger := dbtest.Profile(t, f.conn, enums.RoleCustomer)

	_, err := f.svc.Update(ctx, f.farmer.ID, n.ID, UpdateNegotiationInput{Status: "maybe"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Update(ctx, stranger.ID, n.ID, UpdateNegotiationInput{Status: "rejected"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Update(ctx, f.farmer.ID, uuid.New(), UpdateNegotiationInput{Status: "rejected"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	res, err := f.svc.Update(ctx, f.farmer.ID, n.ID, UpdateNegotiationInput{Status: "rejected"})
	require.NoError(t, err)
	assert.Equal(t, enums.NegotiationStatusRejected, res.Negotiation.Status)
	assert.Zero(t, f.orderCount(t))
}

func TestListAndGetVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n := f.offer(t, "3000")
	stranger := dbtest.Profile(t, f.conn, enums.RoleCustomer)
	admin := dbtest.Profile(t, f.conn, enums.RoleAdmin)

	for _, who := range []uuid.UUID{f.customer.ID, f.farmer.ID} {
		list, err := f.svc.List(ctx, who, enums.RoleCustomer)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	}
	list, err := f.svc.List(ctx, stranger.ID, enums.RoleCustomer)
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = f.svc.List(ctx, admin.ID, enums.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.Get(ctx, stranger.ID, enums.RoleCustomer, n.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = f.svc.Get(ctx, admin.ID, enums.RoleAdmin, n.ID)
	require.NoError(t, err)
}
