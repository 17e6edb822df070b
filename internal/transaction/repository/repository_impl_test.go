package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledger/internal/testutil"
	"github.com/smallbiznis/ledger/internal/transaction/domain"
	"github.com/smallbiznis/ledger/internal/transaction/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newTransaction(id int64, externalID string, state domain.State, eventCount int) *domain.Transaction {
	return &domain.Transaction{
		ID:                 snowflake.ID(id),
		ExternalID:         externalID,
		TransactionType:    domain.TransactionTypePayment,
		State:              state,
		CreatedDate:        time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		EventCount:         eventCount,
		TransactionDetails: []byte(`{}`),
		UpdatedAt:          time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestUpsertIsMonotonicInEventCount(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.Provide()

	written, err := repo.Upsert(ctx, db, newTransaction(1, "pay_1", domain.StateSubmitted, 5))
	require.NoError(t, err)
	assert.True(t, written)

	written, err = repo.Upsert(ctx, db, newTransaction(2, "pay_1", domain.StateCreated, 3))
	require.NoError(t, err)
	assert.False(t, written, "lower event count must not overwrite")

	stored, err := repo.FindByExternalID(ctx, db, "pay_1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.StateSubmitted, stored.State)
	assert.Equal(t, 5, stored.EventCount)

	written, err = repo.Upsert(ctx, db, newTransaction(3, "pay_1", domain.StateSuccess, 5))
	require.NoError(t, err)
	assert.True(t, written, "equal event count is accepted")

	written, err = repo.Upsert(ctx, db, newTransaction(4, "pay_1", domain.StateError, 7))
	require.NoError(t, err)
	assert.True(t, written)

	stored, err = repo.FindByExternalID(ctx, db, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateError, stored.State)
	assert.Equal(t, 7, stored.EventCount)
	assert.Equal(t, int64(1), int64(stored.ID), "id of the first insert is kept")

	testutil.AssertCount(t, db, "SELECT COUNT(*) FROM transactions", 1)
}

func TestFindByExternalIDMissing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	stored, err := repository.Provide().FindByExternalID(context.Background(), db, "nope")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestListByParentExternalID(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.Provide()

	for i, id := range []string{"ref_2", "ref_1"} {
		child := newTransaction(int64(10+i), id, domain.StateSuccess, 1)
		child.TransactionType = domain.TransactionTypeRefund
		child.ParentExternalID = strPtr("pay_1")
		_, err := repo.Upsert(ctx, db, child)
		require.NoError(t, err)
	}
	_, err := repo.Upsert(ctx, db, newTransaction(20, "pay_1", domain.StateSuccess, 1))
	require.NoError(t, err)

	children, err := repo.ListByParentExternalID(ctx, db, "pay_1")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "ref_1", children[0].ExternalID)
	assert.Equal(t, "ref_2", children[1].ExternalID)
}

func TestUpsertMetadata(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.Provide()
	node := testutil.NewNode(t)

	require.NoError(t, repo.UpsertMetadata(ctx, db, node, "pay_1", map[string]string{"order": "A1", "channel": "web"}))
	require.NoError(t, repo.UpsertMetadata(ctx, db, node, "pay_1", map[string]string{"order": "A2"}))
	require.NoError(t, repo.UpsertMetadata(ctx, db, node, "pay_2", map[string]string{"order": "B1"}))

	testutil.AssertCount(t, db, "SELECT COUNT(*) FROM metadata_keys", 2)
	testutil.AssertCount(t, db, "SELECT COUNT(*) FROM transaction_metadata", 3)

	var value string
	require.NoError(t, db.Raw(
		`SELECT tm.value FROM transaction_metadata tm
		 JOIN metadata_keys mk ON mk.id = tm.metadata_key_id
		 WHERE tm.transaction_external_id = ? AND mk.key = ?`, "pay_1", "order",
	).Scan(&value).Error)
	assert.Equal(t, "A2", value)
}
