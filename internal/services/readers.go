// Package services – Readers
//
// Readers are the cached read accessors the decision engine and the stats
// views are built on. Each one is a fixed key plus a fixed TTL over the
// shared read-through cache; they hold no other logic. Every store read
// behind the cache is bounded by FetchTimeout so a hung query cannot leave a
// key in flight forever.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-listing-credits/internal/cache"
	"github.com/tbourn/go-listing-credits/internal/domain"
	"github.com/tbourn/go-listing-credits/internal/repo"
)

// ReaderTTLs are the per-reader cache lifetimes.
type ReaderTTLs struct {
	Settings time.Duration // settings:credit_check
	Profile  time.Duration // profile:{id}:credits
	Pot      time.Duration // settings:community_pot_balance
}

// DefaultReaderTTLs returns the stock lifetimes: 30s, 10s, 30s.
func DefaultReaderTTLs() ReaderTTLs {
	return ReaderTTLs{
		Settings: 30 * time.Second,
		Profile:  10 * time.Second,
		Pot:      30 * time.Second,
	}
}

// Readers wraps settings and profile reads with the read-through cache.
type Readers struct {
	DB       *gorm.DB
	Settings SettingsRepo
	Profiles ProfileRepo
	Cache    *cache.Cache

	TTL          ReaderTTLs
	FetchTimeout time.Duration
}

// NewReaders constructs Readers with default TTLs and a 3s fetch timeout.
func NewReaders(db *gorm.DB, store Store, c *cache.Cache) *Readers {
	return &Readers{
		DB:           db,
		Settings:     store,
		Profiles:     store,
		Cache:        c,
		TTL:          DefaultReaderTTLs(),
		FetchTimeout: 3 * time.Second,
	}
}

// ReadSettings returns the settings singleton.
func (r *Readers) ReadSettings(ctx context.Context) (domain.SystemSettings, error) {
	return cache.Fetch(ctx, r.Cache, KeySettings, r.TTL.Settings, func(ctx context.Context) (domain.SystemSettings, error) {
		ctx, cancel := r.bound(ctx)
		defer cancel()
		s, err := r.Settings.GetSettings(ctx, r.DB)
		if err != nil {
			return domain.SystemSettings{}, err
		}
		return *s, nil
	})
}

// ReadUserCreditState returns the user's balance and daily usage. A user
// without a profile reads as zero balance and zero usage.
func (r *Readers) ReadUserCreditState(ctx context.Context, userID string) (domain.UserCreditState, error) {
	return cache.Fetch(ctx, r.Cache, KeyUserCredits(userID), r.TTL.Profile, func(ctx context.Context) (domain.UserCreditState, error) {
		ctx, cancel := r.bound(ctx)
		defer cancel()
		p, err := r.Profiles.GetProfile(ctx, r.DB, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return domain.UserCreditState{UserID: userID}, nil
		}
		if err != nil {
			return domain.UserCreditState{}, err
		}
		return p.CreditState(), nil
	})
}

// ReadCommunityPotBalanceOnly returns the pot balance under its own key so
// statistics can refresh it on a different cadence than the settings read.
func (r *Readers) ReadCommunityPotBalanceOnly(ctx context.Context) (int64, error) {
	return cache.Fetch(ctx, r.Cache, KeyPotBalance, r.TTL.Pot, func(ctx context.Context) (int64, error) {
		ctx, cancel := r.bound(ctx)
		defer cancel()
		return r.Settings.GetCommunityPotBalance(ctx, r.DB)
	})
}

func (r *Readers) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.FetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.FetchTimeout)
}
