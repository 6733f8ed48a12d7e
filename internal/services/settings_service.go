package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-listing-credits/internal/cache"
	"github.com/tbourn/go-listing-credits/internal/domain"
	"github.com/tbourn/go-listing-credits/internal/repo"
)

// ErrSettingsMissing is returned when the settings singleton was never seeded.
var ErrSettingsMissing = errors.New("system settings not initialized")

// SettingsService is the administrator's write path for SystemSettings.
type SettingsService struct {
	DB    *gorm.DB
	Repo  SettingsRepo
	Cache *cache.Cache
}

// Current reads the settings row directly from the store.
func (s *SettingsService) Current(ctx context.Context) (*domain.SystemSettings, error) {
	st, err := s.Repo.GetSettings(ctx, s.DB)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrSettingsMissing
	}
	return st, err
}

// SetDailyFreeListings changes the daily quota and busts the cached settings.
func (s *SettingsService) SetDailyFreeListings(ctx context.Context, n int) (*domain.SystemSettings, error) {
	if n < 0 {
		return nil, ErrInvalidAmount
	}
	if err := s.Repo.UpdateDailyFreeListings(ctx, s.DB, n); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSettingsMissing
		}
		return nil, err
	}
	if s.Cache != nil {
		s.Cache.Invalidate(KeySettings)
	}
	return s.Current(ctx)
}
