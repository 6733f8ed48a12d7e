package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-listing-credits/internal/domain"
)

func TestDonationStats_AndUsageTotal(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	empty, err := DonationStats(ctx, db)
	if err != nil || empty != (DonationTotals{}) {
		t.Fatalf("empty stats = %+v, %v", empty, err)
	}

	u1, u2 := "u1", "u2"
	rows := []domain.CommunityPotTransaction{
		{Kind: domain.PotDonation, UserID: &u1, Amount: 5, BalanceAfter: 5},
		{Kind: domain.PotDonation, UserID: &u1, Amount: 3, BalanceAfter: 8},
		{Kind: domain.PotDonation, UserID: &u2, Amount: 2, BalanceAfter: 10},
		{Kind: domain.PotDonation, Amount: 1, BalanceAfter: 11}, // anonymous
		{Kind: domain.PotUsage, UserID: &u2, Amount: -1, BalanceAfter: 10},
		{Kind: domain.PotUsage, UserID: &u1, Amount: -1, BalanceAfter: 9},
	}
	for i := range rows {
		if err := AppendPotTransaction(ctx, db, &rows[i]); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	got, err := DonationStats(ctx, db)
	if err != nil {
		t.Fatalf("DonationStats: %v", err)
	}
	want := DonationTotals{TotalCredits: 11, Count: 4, UniqueDonors: 2}
	if got != want {
		t.Fatalf("DonationStats = %+v; want %+v", got, want)
	}

	usage, err := UsageTotal(ctx, db)
	if err != nil || usage != -2 {
		t.Fatalf("UsageTotal = %d, %v; want -2", usage, err)
	}
}

func TestDonationStats_NoTable(t *testing.T) {
	db := newBareDB(t)
	if _, err := DonationStats(context.Background(), db); err == nil {
		t.Fatalf("expected error due to missing table")
	}
}

func TestCreditTransactionsStats(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	count, maxAt, err := CreditTransactionsStats(ctx, db, "u1")
	if err != nil || count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil, nil), got (%d, %v, %v)", count, maxAt, err)
	}

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)
	for _, r := range []domain.CreditTransaction{
		{ID: "a", UserID: "u1", Amount: 1, Kind: domain.KindBonus, BalanceAfter: 1, CreatedAt: t1},
		{ID: "b", UserID: "u1", Amount: 1, Kind: domain.KindBonus, BalanceAfter: 2, CreatedAt: t2},
		{ID: "c", UserID: "u2", Amount: 1, Kind: domain.KindBonus, BalanceAfter: 1, CreatedAt: t2.Add(time.Hour)},
	} {
		r := r
		if err := AppendCreditTransaction(ctx, db, &r); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	count, maxAt, err = CreditTransactionsStats(ctx, db, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 2 || maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("got (%d, %v); want (2, %v)", count, maxAt, t2)
	}
}
