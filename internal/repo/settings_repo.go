// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// SystemSettings singleton, including the atomic community pot delta.
//
// Error semantics:
//   - A missing settings row yields ErrNotFound.
//   - A pot delta that would drive the balance below zero yields
//     ErrInsufficientBalance and leaves the row untouched.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-listing-credits/internal/domain"
)

// GetSettings loads the settings singleton.
func GetSettings(ctx context.Context, db *gorm.DB) (*domain.SystemSettings, error) {
	var s domain.SystemSettings
	if err := db.WithContext(ctx).First(&s, "id = ?", domain.SettingsID).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// GetCommunityPotBalance returns the current pot balance.
func GetCommunityPotBalance(ctx context.Context, db *gorm.DB) (int64, error) {
	var row struct{ CommunityPotBalance int64 }
	res := db.WithContext(ctx).
		Model(&domain.SystemSettings{}).
		Select("community_pot_balance").
		Where("id = ?", domain.SettingsID).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	return row.CommunityPotBalance, nil
}

// AdjustCommunityPotBalance applies delta to the pot in a single guarded
// UPDATE executed by the store, so concurrent writers cannot interleave a
// read-modify-write. The guard rejects any delta that would make the balance
// negative.
func AdjustCommunityPotBalance(ctx context.Context, db *gorm.DB, delta int64) error {
	res := db.WithContext(ctx).
		Model(&domain.SystemSettings{}).
		Where("id = ? AND community_pot_balance + ? >= 0", domain.SettingsID, delta).
		Updates(map[string]any{
			"community_pot_balance": gorm.Expr("community_pot_balance + ?", delta),
			"updated_at":            time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return missingOr(ctx, db, &domain.SystemSettings{}, "id = ?", domain.SettingsID)
	}
	return nil
}

// UpdateDailyFreeListings sets the per-user daily free quota.
func UpdateDailyFreeListings(ctx context.Context, db *gorm.DB, n int) error {
	res := db.WithContext(ctx).
		Model(&domain.SystemSettings{}).
		Where("id = ?", domain.SettingsID).
		Updates(map[string]any{
			"daily_free_listings": n,
			"updated_at":          time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// missingOr distinguishes the two reasons a guarded UPDATE matches no rows:
// the row is absent (ErrNotFound) or the guard rejected the change
// (ErrInsufficientBalance).
func missingOr(ctx context.Context, db *gorm.DB, model any, query string, args ...any) error {
	var n int64
	if err := db.WithContext(ctx).Model(model).Where(query, args...).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrInsufficientBalance
}
