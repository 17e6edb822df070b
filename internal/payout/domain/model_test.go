package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	eventdomain "github.com/smallbiznis/ledger/internal/event/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payoutEvent(id int64, at time.Time, eventType, data string) eventdomain.Event {
	return eventdomain.Event{
		ID:                 snowflake.ID(id),
		ResourceType:       eventdomain.ResourceTypePayout,
		ResourceExternalID: "po_1",
		EventDate:          at,
		EventType:          eventType,
		EventData:          []byte(data),
	}
}

func TestFromDigestPaidPayout(t *testing.T) {
	base := time.Date(2024, 4, 10, 8, 0, 0, 0, time.UTC)
	digest, err := eventdomain.BuildDigest([]eventdomain.Event{
		payoutEvent(2, base.Add(24*time.Hour), "PAYOUT_PAID", `{"paid_out_date":"2024-04-11T08:00:00Z"}`),
		payoutEvent(1, base, "PAYOUT_CREATED", `{"amount":1250,"gateway_account_id":"ga_1","statement_descriptor":"PAY"}`),
	})
	require.NoError(t, err)

	payout, err := FromDigest(digest)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, payout.Status)
	require.NotNil(t, payout.Amount)
	assert.Equal(t, int64(1250), *payout.Amount)
	require.NotNil(t, payout.PaidOutDate)
	assert.True(t, payout.PaidOutDate.Equal(base.Add(24*time.Hour)))
	assert.Equal(t, "ga_1", *payout.GatewayAccountID)
	assert.JSONEq(t,
		`{"amount":1250,"gateway_account_id":"ga_1","statement_descriptor":"PAY","paid_out_date":"2024-04-11T08:00:00Z"}`,
		string(payout.PayoutDetails))
}

func TestFromDigestPayoutStatuses(t *testing.T) {
	for eventType, want := range map[string]Status{
		"PAYOUT_CREATED": StatusInTransit,
		"PAYOUT_PAID":    StatusPaid,
		"PAYOUT_FAILED":  StatusFailed,
	} {
		digest, err := eventdomain.BuildDigest([]eventdomain.Event{payoutEvent(1, time.Now(), eventType, `{}`)})
		require.NoError(t, err)
		payout, err := FromDigest(digest)
		require.NoError(t, err)
		assert.Equal(t, want, payout.Status, eventType)
	}
}

func TestFromDigestPayoutWithoutStatus(t *testing.T) {
	digest, err := eventdomain.BuildDigest([]eventdomain.Event{payoutEvent(1, time.Now(), "PAYOUT_UPDATED", `{}`)})
	require.NoError(t, err)
	_, err = FromDigest(digest)
	assert.True(t, errors.Is(err, eventdomain.ErrNoSalientEvent))
}
