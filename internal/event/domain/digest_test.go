package domain

import (
	"encoding/json"
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func newEvent(id int64, offset time.Duration, eventType string, data string) Event {
	return Event{
		ID:                 snowflake.ID(id),
		ResourceType:       ResourceTypePayment,
		ResourceExternalID: "pay_1",
		EventDate:          base.Add(offset),
		EventType:          eventType,
		EventData:          []byte(data),
	}
}

func TestBuildDigestEmpty(t *testing.T) {
	_, err := BuildDigest(nil)
	if !errors.Is(err, ErrEmptyEventHistory) {
		t.Fatalf("expected ErrEmptyEventHistory, got %v", err)
	}
}

func TestBuildDigestLaterWins(t *testing.T) {
	events := []Event{
		newEvent(2, time.Minute, "PAYMENT_DETAILS_ENTERED", `{"a":2}`),
		newEvent(1, 0, "PAYMENT_CREATED", `{"a":1,"b":1}`),
	}

	digest, err := BuildDigest(events)
	require.NoError(t, err)

	assert.Equal(t, json.Number("2"), digest.Aggregate["a"])
	assert.Equal(t, json.Number("1"), digest.Aggregate["b"])
	assert.Equal(t, 2, digest.EventCount)
	assert.Equal(t, base, digest.CreatedDate)
	assert.Equal(t, base.Add(time.Minute), digest.MostRecentEventTimestamp)
	require.NotNil(t, digest.MostRecentSalientEventType)
	assert.Equal(t, PaymentCreated, *digest.MostRecentSalientEventType)
}

func TestBuildDigestSalientIgnoresNonSalient(t *testing.T) {
	events := []Event{
		newEvent(1, 0, "PAYMENT_CREATED", `{}`),
		newEvent(2, time.Minute, "AUTHORISATION_SUCCEEDED", `{}`),
		newEvent(3, 2*time.Minute, "FEE_INCURRED", `{"fee":10}`),
	}

	digest, err := BuildDigest(events)
	require.NoError(t, err)
	require.NotNil(t, digest.MostRecentSalientEventType)
	assert.Equal(t, AuthorisationSucceeded, *digest.MostRecentSalientEventType)
	assert.Equal(t, base.Add(2*time.Minute), digest.MostRecentEventTimestamp)
}

func TestBuildDigestNoSalient(t *testing.T) {
	digest, err := BuildDigest([]Event{newEvent(1, 0, "PAYMENT_DETAILS_ENTERED", `{"email":"a@b.c"}`)})
	require.NoError(t, err)
	assert.Nil(t, digest.MostRecentSalientEventType)
}

func TestBuildDigestLiveTriState(t *testing.T) {
	tests := []struct {
		name  string
		lives []*bool
		want  *bool
	}{
		{name: "all null", lives: []*bool{nil, nil}, want: nil},
		{name: "false and null", lives: []*bool{boolPtr(false), nil}, want: boolPtr(false)},
		{name: "true wins over false", lives: []*bool{boolPtr(false), boolPtr(true), nil}, want: boolPtr(true)},
		{name: "true first", lives: []*bool{boolPtr(true), boolPtr(false)}, want: boolPtr(true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := make([]Event, 0, len(tt.lives))
			for i, live := range tt.lives {
				e := newEvent(int64(i+1), time.Duration(i)*time.Second, "PAYMENT_CREATED", `{}`)
				e.Live = live
				events = append(events, e)
			}
			digest, err := BuildDigest(events)
			require.NoError(t, err)
			assert.Equal(t, tt.want, digest.Live)
		})
	}
}

func TestBuildDigestFirstNonNullMetadata(t *testing.T) {
	late := newEvent(2, time.Minute, "REFUND_SUBMITTED", `{}`)
	late.ServiceID = strPtr("svc_1")
	late.ParentResourceExternalID = strPtr("pay_parent")
	early := newEvent(1, 0, "REFUND_CREATED_BY_SERVICE", `{}`)

	digest, err := BuildDigest([]Event{late, early})
	require.NoError(t, err)
	require.NotNil(t, digest.ServiceID)
	assert.Equal(t, "svc_1", *digest.ServiceID)
	require.NotNil(t, digest.ParentResourceExternalID)
	assert.Equal(t, "pay_parent", *digest.ParentResourceExternalID)
}

func TestBuildDigestIsOrderIndependent(t *testing.T) {
	events := []Event{
		newEvent(1, 0, "PAYMENT_CREATED", `{"amount":1000,"reference":"r1"}`),
		newEvent(2, time.Second, "PAYMENT_STARTED", `{}`),
		newEvent(3, 2*time.Second, "PAYMENT_DETAILS_ENTERED", `{"email":"x@y.z","card_brand":"visa"}`),
		newEvent(4, 3*time.Second, "AUTHORISATION_SUCCEEDED", `{"reference":"r2"}`),
		newEvent(5, 3*time.Second, "CAPTURE_CONFIRMED", `{"fee":12}`),
	}
	events[1].Live = boolPtr(false)
	events[3].Live = boolPtr(true)

	want, err := BuildDigest(events)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := make([]Event, len(events))
		copy(shuffled, events)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := BuildDigest(shuffled)
		require.NoError(t, err)
		if !reflect.DeepEqual(want, got) {
			t.Fatalf("digest differs for permutation %d", i)
		}
	}

	require.NotNil(t, want.MostRecentSalientEventType)
	assert.Equal(t, CaptureConfirmed, *want.MostRecentSalientEventType)
	assert.Equal(t, "r2", *want.Aggregate.String("reference"))
}

func TestBuildDigestRejectsMalformedPayload(t *testing.T) {
	_, err := BuildDigest([]Event{newEvent(1, 0, "PAYMENT_CREATED", `[1,2]`)})
	if !errors.Is(err, ErrInvalidEventData) {
		t.Fatalf("expected ErrInvalidEventData, got %v", err)
	}
}

func TestCanonicalEventData(t *testing.T) {
	a, hashA, err := CanonicalEventData([]byte(`{"b":1, "a":{"y":2,"x":1}}`))
	require.NoError(t, err)
	b, hashB, err := CanonicalEventData([]byte(`{"a":{"x":1,"y":2},"b":1}`))
	require.NoError(t, err)

	assert.Equal(t, string(a), string(b))
	assert.Equal(t, hashA, hashB)

	_, hashC, err := CanonicalEventData([]byte(`{"b":2}`))
	require.NoError(t, err)
	assert.NotEqual(t, hashA, hashC)
}

func TestParseResourceType(t *testing.T) {
	got, err := ParseResourceType("payment_instrument")
	require.NoError(t, err)
	assert.Equal(t, ResourceTypePaymentInstrument, got)

	got, err = ParseResourceType(" Refund ")
	require.NoError(t, err)
	assert.True(t, got.IsChildTransaction())

	_, err = ParseResourceType("invoice")
	assert.ErrorIs(t, err, ErrUnknownResourceType)
}

func TestAggregateAccessors(t *testing.T) {
	agg, err := DecodeEventData([]byte(`{"amount":1234,"moto":true,"live":"false","paid_out_date":"2024-03-02T09:00:00Z","expiry":"2024-05-01","meta":{"k":"v"}}`))
	require.NoError(t, err)

	assert.Equal(t, int64(1234), *agg.Int64("amount"))
	assert.True(t, *agg.Bool("moto"))
	assert.False(t, *agg.Bool("live"))
	assert.Equal(t, time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), *agg.Time("paid_out_date"))
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *agg.Time("expiry"))
	assert.Equal(t, "v", agg.Map("meta")["k"])
	assert.Nil(t, agg.Int64("missing"))
	assert.Nil(t, agg.String("meta"))
	assert.Equal(t, "1234", *agg.String("amount"))
}

func TestAggregateInt64RejectsFractionsAndOverflow(t *testing.T) {
	agg, err := DecodeEventData([]byte(`{"whole":1000.0,"exp":1e3,"fraction":10.5,"huge":1e19,"tiny":-1e19}`))
	require.NoError(t, err)

	assert.Equal(t, int64(1000), *agg.Int64("whole"))
	assert.Equal(t, int64(1000), *agg.Int64("exp"))
	assert.Nil(t, agg.Int64("fraction"))
	assert.Nil(t, agg.Int64("huge"))
	assert.Nil(t, agg.Int64("tiny"))

	assert.Equal(t, int64(7), *Aggregate{"f": 7.0}.Int64("f"))
	assert.Nil(t, Aggregate{"f": 7.25}.Int64("f"))
}
