// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides aggregate queries over the ledgers: the
// community statistics and small count/max-timestamp pairs used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-listing-credits/internal/domain"
)

// DonationTotals aggregates donation rows of the community pot ledger.
type DonationTotals struct {
	TotalCredits int64 // sum of donated credits
	Count        int64 // number of donation rows
	UniqueDonors int64 // distinct non-null user ids
}

// DonationStats sums and counts donation-kind pot transactions and counts
// distinct donors.
func DonationStats(ctx context.Context, db *gorm.DB) (DonationTotals, error) {
	var row struct {
		Total  int64
		Count  int64
		Donors int64
	}
	err := db.WithContext(ctx).
		Model(&domain.CommunityPotTransaction{}).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count, COUNT(DISTINCT user_id) AS donors").
		Where("kind = ?", domain.PotDonation).
		Scan(&row).Error
	if err != nil {
		return DonationTotals{}, err
	}
	return DonationTotals{TotalCredits: row.Total, Count: row.Count, UniqueDonors: row.Donors}, nil
}

// UsageTotal returns the sum of usage-kind pot transaction amounts. Usage
// rows are negative, so the result is <= 0.
func UsageTotal(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.CommunityPotTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("kind = ?", domain.PotUsage).
		Scan(&total).Error
	return total, err
}

// CreditTransactionsStats returns the number of ledger rows for userID and
// the greatest CreatedAt among them (nil when there are none).
func CreditTransactionsStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.CreditTransaction{}).Where("user_id = ?", userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
