// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Profile
// model: credit state reads, the daily usage counter, and guarded balance
// updates.
//
// Balance updates are single UPDATE statements with a WHERE guard so the
// store, not the caller, enforces non-negativity. When a guard rejects the
// change the functions return ErrInsufficientBalance; when the profile does
// not exist they return ErrNotFound.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-listing-credits/internal/domain"
)

// GetProfile fetches a profile by user id, or ErrNotFound.
func GetProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error) {
	var p domain.Profile
	if err := db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// EnsureProfile returns the user's profile, creating an empty one first when
// none exists.
func EnsureProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error) {
	now := time.Now().UTC()
	p := &domain.Profile{UserID: userID, CreatedAt: now, UpdatedAt: now}
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(p).Error; err != nil {
		return nil, err
	}
	return GetProfile(ctx, db, userID)
}

// SetDailyUsage overwrites the user's daily counter and its date.
func SetDailyUsage(ctx context.Context, db *gorm.DB, userID string, used int, date string) error {
	res := db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"daily_listings_used": used,
			"last_listing_date":   date,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DebitPersonalCredit removes one credit from the user's balance, guarded by
// personal_credits > 0, and returns the balance after the debit.
func DebitPersonalCredit(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return AdjustPersonalCredits(ctx, db, userID, -1)
}

// AdjustPersonalCredits applies a signed delta to the user's balance in one
// guarded UPDATE and returns the balance read back afterwards.
func AdjustPersonalCredits(ctx context.Context, db *gorm.DB, userID string, delta int64) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("user_id = ? AND personal_credits + ? >= 0", userID, delta).
		Update("personal_credits", gorm.Expr("personal_credits + ?", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, missingOr(ctx, db, &domain.Profile{}, "user_id = ?", userID)
	}
	p, err := GetProfile(ctx, db, userID)
	if err != nil {
		return 0, err
	}
	return p.PersonalCredits, nil
}

// AddDonationTotals increments the donor's lifetime totals: amountPaid in
// minor currency units and credits donated to the pot.
func AddDonationTotals(ctx context.Context, db *gorm.DB, userID string, amountPaid, credits int64) error {
	res := db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"total_donated":              gorm.Expr("total_donated + ?", amountPaid),
			"community_listings_donated": gorm.Expr("community_listings_donated + ?", credits),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementDailyUsage counts one more free listing for today in a single
// guarded UPDATE. A stored date other than today restarts the counter at 1.
// When today's counter has already reached limit nothing is written and
// ErrInsufficientBalance is returned. It returns the counter after the write.
func IncrementDailyUsage(ctx context.Context, db *gorm.DB, userID, today string, limit int) (int, error) {
	res := db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("user_id = ? AND ? > 0 AND (COALESCE(last_listing_date, '') <> ? OR daily_listings_used < ?)",
			userID, limit, today, limit).
		Updates(map[string]any{
			"daily_listings_used": gorm.Expr("CASE WHEN COALESCE(last_listing_date, '') = ? THEN daily_listings_used + 1 ELSE 1 END", today),
			"last_listing_date":   today,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, missingOr(ctx, db, &domain.Profile{}, "user_id = ?", userID)
	}
	p, err := GetProfile(ctx, db, userID)
	if err != nil {
		return 0, err
	}
	return p.DailyListingsUsed, nil
}

// DecrementDailyUsage takes back one listing counted on date. It only
// touches a counter still dated date and above zero, so increments made by
// other requests in the meantime are kept.
func DecrementDailyUsage(ctx context.Context, db *gorm.DB, userID, date string) error {
	return db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("user_id = ? AND last_listing_date = ? AND daily_listings_used > 0", userID, date).
		Update("daily_listings_used", gorm.Expr("daily_listings_used - 1")).Error
}
