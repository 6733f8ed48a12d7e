package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-listing-credits/internal/domain"
)

func TestHistoryService_ListCredits(t *testing.T) {
	db := newTestDB(t, 5, 0)
	e := newEngine(t, db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := e.ledger.Purchase(ctx, "u1", 5, domain.PurchaseMetadata{PackageType: "pack_5"})
		require.NoError(t, err)
	}
	_, err := e.ledger.Grant(ctx, "u1", 1, domain.KindBonus, domain.BonusMetadata{Reason: "promo"})
	require.NoError(t, err)
	_, err = e.ledger.Purchase(ctx, "other", 5, domain.PurchaseMetadata{})
	require.NoError(t, err)

	items, total, err := e.history.ListCredits(ctx, "u1", TxQuery{}, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, items, 2)

	items, total, err = e.history.ListCredits(ctx, "u1", TxQuery{Kind: domain.KindBonus}, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	bm, ok := items[0].Metadata.Variant.(domain.BonusMetadata)
	require.True(t, ok)
	assert.Equal(t, "promo", bm.Reason)

	items, total, err = e.history.ListCredits(ctx, "nobody", TxQuery{}, 1, 20)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, items)

	_, _, err = e.history.ListCredits(ctx, "u1", TxQuery{Kind: "gift"}, 1, 20)
	assert.ErrorIs(t, err, ErrInvalidKind)

	n, last, err := e.history.CreditStats(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	assert.NotNil(t, last)
}

func TestHistoryService_ListPot(t *testing.T) {
	db := newTestDB(t, 5, 2)
	e := newEngine(t, db)
	ctx := context.Background()
	seedUser(t, db, "u1", 0, 0)

	_, err := e.ledger.Consume(ctx, "u1", domain.SourceCommunityPot, "")
	require.NoError(t, err)
	_, err = e.ledger.Donate(ctx, "u1", 3, domain.DonationMetadata{AmountPaid: 300})
	require.NoError(t, err)

	items, total, err := e.history.ListPot(ctx, "", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)

	items, total, err = e.history.ListPot(ctx, domain.PotUsage, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.EqualValues(t, -1, items[0].Amount)

	_, _, err = e.history.ListPot(ctx, "refund", 1, 20)
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestNormPage(t *testing.T) {
	p, s := normPage(0, 500)
	assert.Equal(t, 1, p)
	assert.Equal(t, 100, s)
	p, s = normPage(3, -1)
	assert.Equal(t, 3, p)
	assert.Equal(t, 20, s)
}
