package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/agromarket/agromarket-backend/pkg/db/dbtest"
	"github.com/agromarket/agromarket-backend/pkg/db/models"
	"github.com/agromarket/agromarket-backend/pkg/enums"
	"github.com/agromarket/agromarket-backend/pkg/outbox"
)

func TestEmitCommitsWithTransaction(t *testing.T) {
	client := dbtest.New(t)
	repo := outbox.NewRepository(client.DB())
	svc := outbox.NewService(repo, nil)
	ctx := context.Background()
	orderID := uuid.New()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &outbox.ActorRef{UserID: uuid.New(), Role: "customer"},
			Data:          outbox.OrderCreatedEvent{OrderID: orderID, Quantity: 1, TotalAmountKobo: 5000, Currency: "NGN"},
		})
	}))

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := svc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderClaimed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data:          outbox.OrderClaimedEvent{OrderID: orderID},
		}); err != nil {
			return err
		}
		return errors.New("rollback")
	})
	require.Error(t, err)

	rows, err := repo.ListForAggregate(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventOrderCreated, rows[0].EventType)

	var env outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &env))
	assert.Equal(t, 1, env.Version)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, "customer", env.Actor.Role)
}

func TestEmitRejectsUnknownEvent(t *testing.T) {
	client := dbtest.New(t)
	svc := outbox.NewService(outbox.NewRepository(client.DB()), nil)
	err := svc.Emit(context.Background(), client.DB(), outbox.DomainEvent{EventType: "bogus", AggregateType: enums.AggregateOrder})
	assert.Error(t, err)
	assert.Error(t, svc.Emit(context.Background(), nil, outbox.DomainEvent{}))

	err = svc.Emit(context.Background(), client.DB(), outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		Data:          outbox.OrderCreatedEvent{},
	})
	assert.ErrorContains(t, err, "aggregate id")
}

func TestPublishLifecycle(t *testing.T) {
	client := dbtest.New(t)
	repo := outbox.NewRepository(client.DB())
	svc := outbox.NewService(repo, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Emit(ctx, client.DB(), outbox.DomainEvent{
			EventType:     enums.EventPaymentSettled,
			AggregateType: enums.AggregatePayment,
			AggregateID:   uuid.New(),
			Data:          outbox.PaymentSettledEvent{Reference: "AGRO-x"},
		}))
	}

	var fetched []models.OutboxEvent
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		fetched, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
		return err
	}))
	require.Len(t, fetched, 3)

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := repo.MarkPublishedTx(tx, fetched[0].ID); err != nil {
			return err
		}
		if err := repo.MarkFailedTx(tx, fetched[1].ID, errors.New("broker down")); err != nil {
			return err
		}
		return repo.MarkTerminalTx(tx, fetched[2].ID, errors.New("bad payload"), 3)
	}))

	var remaining []models.OutboxEvent
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		remaining, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
		return err
	}))
	require.Len(t, remaining, 1)
	assert.Equal(t, fetched[1].ID, remaining[0].ID)
	assert.Equal(t, 1, remaining[0].AttemptCount)
	require.NotNil(t, remaining[0].LastError)
	assert.Equal(t, "broker down", *remaining[0].LastError)

	deleted, err := repo.DeletePublishedBefore(ctx, nil, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = repo.DeletePublishedBefore(ctx, nil, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestDLQInsert(t *testing.T) {
	client := dbtest.New(t)
	dlq := outbox.NewDLQRepository(client.DB())
	eventID := uuid.New()
	long := strings.Repeat("x", 5000)

	require.NoError(t, dlq.InsertTx(client.DB(), models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventOrderDelivered,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &long,
		FailedAt:      time.Now().UTC(),
	}))

	row, err := dlq.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Len(t, *row.ErrorMessage, 1024)

	missing, err := dlq.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	pruned, err := dlq.DeleteFailedBefore(context.Background(), nil, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, pruned)
	pruned, err = dlq.DeleteFailedBefore(context.Background(), nil, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)
}

func TestRegistryResolve(t *testing.T) {
	reg, err := outbox.NewRegistry("agro-domain-events")
	require.NoError(t, err)

	data, _ := json.Marshal(outbox.OrderClaimedEvent{OrderID: uuid.New(), DeliveryAgentID: uuid.New()})
	payload, _ := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: uuid.NewString(), Data: data})

	resolved, err := reg.Resolve(models.OutboxEvent{EventType: enums.EventOrderClaimed, AggregateType: enums.AggregateOrder, Payload: payload})
	require.NoError(t, err)
	assert.Equal(t, "agro-domain-events", resolved.Descriptor.Topic)
	_, ok := resolved.Payload.(*outbox.OrderClaimedEvent)
	assert.True(t, ok)

	_, err = reg.Resolve(models.OutboxEvent{EventType: enums.EventOrderClaimed, AggregateType: enums.AggregatePayment, Payload: payload})
	assert.True(t, outbox.IsNonRetryable(err))

	_, err = reg.Resolve(models.OutboxEvent{EventType: enums.EventOrderClaimed, AggregateType: enums.AggregateOrder, Payload: []byte("{")})
	assert.True(t, outbox.IsNonRetryable(err))

	future, _ := json.Marshal(outbox.PayloadEnvelope{Version: 2, EventID: uuid.NewString(), Data: data})
	_, err = reg.Resolve(models.OutboxEvent{EventType: enums.EventOrderClaimed, AggregateType: enums.AggregateOrder, Payload: future})
	assert.True(t, outbox.IsNonRetryable(err))

	_, err = reg.Resolve(models.OutboxEvent{EventType: "unknown", AggregateType: enums.AggregateOrder, Payload: payload})
	assert.True(t, outbox.IsNonRetryable(err))

	_, err = outbox.NewRegistry("")
	assert.Error(t, err)
}

func TestRegistryCoversEveryEventType(t *testing.T) {
	reg, err := outbox.NewRegistry("agro-domain-events")
	require.NoError(t, err)
	for _, eventType := range enums.AllOutboxEventTypes() {
		desc, ok := reg.Descriptor(eventType)
		require.True(t, ok, eventType)
		assert.True(t, desc.AggregateType.IsValid(), eventType)
	}
}
