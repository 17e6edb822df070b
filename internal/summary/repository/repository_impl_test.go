package repository_test

import (
	"context"
	"testing"

	"github.com/smallbiznis/ledger/internal/summary/domain"
	"github.com/smallbiznis/ledger/internal/summary/repository"
	"github.com/smallbiznis/ledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bucket(state string) domain.BucketKey {
	return domain.BucketKey{
		GatewayAccountID: "ga_1",
		TransactionType:  "PAYMENT",
		TransactionDate:  "2024-03-01",
		State:            state,
		Live:             true,
	}
}

func TestAddAccumulatesDeltas(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.Provide()

	require.NoError(t, repo.AddToSummary(ctx, db, bucket("SUCCESS"), 1000, 0))
	require.NoError(t, repo.AddToSummary(ctx, db, bucket("SUCCESS"), 250, 5))

	got, err := repo.Get(ctx, db, bucket("SUCCESS"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1250), got.TotalAmountInPence)
	assert.Equal(t, int64(2), got.NoOfTransactions)
	assert.Equal(t, int64(5), got.TotalFeeInPence)
	assert.Equal(t, "2024-03-01", got.TransactionDate)
}

func TestDeductReversesAnAdd(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.Provide()

	require.NoError(t, repo.AddToSummary(ctx, db, bucket("ERROR"), 1000, 0))
	require.NoError(t, repo.UpdateFee(ctx, db, bucket("ERROR"), 30))
	require.NoError(t, repo.DeductFromSummary(ctx, db, bucket("ERROR"), 1000, 30))

	got, err := repo.Get(ctx, db, bucket("ERROR"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Zero(t, got.TotalAmountInPence)
	assert.Zero(t, got.NoOfTransactions)
	assert.Zero(t, got.TotalFeeInPence)
}

func TestDeductMissingBucketIsNoop(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.Provide()

	require.NoError(t, repo.DeductFromSummary(ctx, db, bucket("FAILED_REJECTED"), 100, 0))
	testutil.AssertCount(t, db, `SELECT COUNT(*) FROM transaction_summary`, 0)
}

func TestUpdateFeeDoesNotCountTransactions(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.Provide()

	require.NoError(t, repo.UpdateFee(ctx, db, bucket("CREATED"), 12))

	got, err := repo.Get(ctx, db, bucket("CREATED"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(12), got.TotalFeeInPence)
	assert.Zero(t, got.NoOfTransactions)

	missing, err := repo.Get(ctx, db, bucket("SUCCESS"))
	require.NoError(t, err)
	assert.Nil(t, missing)
}
