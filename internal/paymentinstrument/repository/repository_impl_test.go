package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledger/internal/paymentinstrument/domain"
	"github.com/smallbiznis/ledger/internal/paymentinstrument/repository"
	"github.com/smallbiznis/ledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertIgnoresStaleProjection(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.Provide()
	at := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	brand := func(s string) *string { return &s }

	fresh := &domain.PaymentInstrument{
		ID: snowflake.ID(1), ExternalID: "pi_1", CardBrand: brand("visa"),
		CreatedDate: at, EventCount: 4, UpdatedAt: at,
	}
	stale := &domain.PaymentInstrument{
		ID: snowflake.ID(2), ExternalID: "pi_1", CardBrand: brand("master-card"),
		CreatedDate: at, EventCount: 2, UpdatedAt: at,
	}

	written, err := repo.Upsert(ctx, db, fresh)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = repo.Upsert(ctx, db, stale)
	require.NoError(t, err)
	assert.False(t, written)

	stored, err := repo.FindByExternalID(ctx, db, "pi_1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "visa", *stored.CardBrand)
	assert.Equal(t, 4, stored.EventCount)
}
