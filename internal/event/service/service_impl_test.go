package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/ledger/internal/clock"
	"github.com/smallbiznis/ledger/internal/event/domain"
	"github.com/smallbiznis/ledger/internal/event/repository"
	"github.com/smallbiznis/ledger/internal/event/service"
	"github.com/smallbiznis/ledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*service.Service, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svc := service.NewService(service.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testutil.NewNode(t),
		Repo:  repository.Provide(),
		Clock: clock.NewFakeClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
	})
	return svc, db
}

func paymentEvent(eventType string, at time.Time, data string) *domain.Event {
	return &domain.Event{
		DeliveryID:         "delivery-1",
		ResourceType:       domain.ResourceTypePayment,
		ResourceExternalID: "pay_1",
		EventDate:          at,
		EventType:          eventType,
		EventData:          []byte(data),
	}
}

func TestInsertIfNotExistsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, db := newService(t)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	inserted, err := svc.InsertIfNotExists(ctx, paymentEvent("PAYMENT_CREATED", at, `{"amount":100,"reference":"r"}`))
	require.NoError(t, err)
	assert.True(t, inserted)

	redelivered := paymentEvent("PAYMENT_CREATED", at, `{"reference":"r", "amount":100}`)
	redelivered.DeliveryID = "delivery-2"
	inserted, err = svc.InsertIfNotExists(ctx, redelivered)
	require.NoError(t, err)
	assert.False(t, inserted)

	changed := paymentEvent("PAYMENT_CREATED", at, `{"amount":101,"reference":"r"}`)
	inserted, err = svc.InsertIfNotExists(ctx, changed)
	require.NoError(t, err)
	assert.True(t, inserted)

	testutil.AssertCount(t, db, "SELECT COUNT(*) FROM events WHERE resource_external_id = ?", 2, "pay_1")
}

func TestInsertIfNotExistsRejectsIncompleteEvent(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.InsertIfNotExists(context.Background(), &domain.Event{ResourceExternalID: "pay_1"})
	assert.ErrorIs(t, err, service.ErrInvalidEvent)

	_, err = svc.InsertIfNotExists(context.Background(), paymentEvent("PAYMENT_CREATED", time.Now(), `"text"`))
	assert.ErrorIs(t, err, domain.ErrInvalidEventData)
}

func TestGetEventDigest(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := svc.GetEventDigest(ctx, "pay_1")
	if !errors.Is(err, domain.ErrEmptyEventHistory) {
		t.Fatalf("expected ErrEmptyEventHistory, got %v", err)
	}

	live := true
	serviceID := "svc_1"
	started := paymentEvent("PAYMENT_STARTED", at.Add(time.Minute), `{"reference":"later"}`)
	started.Live = &live
	started.ServiceID = &serviceID
	_, err = svc.InsertIfNotExists(ctx, started)
	require.NoError(t, err)
	_, err = svc.InsertIfNotExists(ctx, paymentEvent("PAYMENT_CREATED", at, `{"amount":100,"reference":"first"}`))
	require.NoError(t, err)

	digest, err := svc.GetEventDigest(ctx, "pay_1")
	require.NoError(t, err)

	assert.Equal(t, 2, digest.EventCount)
	assert.Equal(t, "later", *digest.Aggregate.String("reference"))
	assert.Equal(t, int64(100), *digest.Aggregate.Int64("amount"))
	assert.Equal(t, domain.PaymentStarted, *digest.MostRecentSalientEventType)
	assert.True(t, *digest.Live)
	assert.Equal(t, "svc_1", *digest.ServiceID)
	assert.True(t, digest.CreatedDate.Equal(at))

	latest, err := svc.GetLatestEvent(ctx, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, "PAYMENT_STARTED", latest.EventType)
}
