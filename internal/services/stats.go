// Package services – StatsService
//
// StatsService exposes read-only aggregates over the ledgers, each cached
// with its own key under the "stats:" prefix so one pattern invalidation
// after a ledger write refreshes them all. Per-user totals come from the
// profile row rather than a ledger scan.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-listing-credits/internal/cache"
	"github.com/tbourn/go-listing-credits/internal/repo"
)

// DonationSummary aggregates donation rows of the pot ledger.
type DonationSummary struct {
	TotalDonated  int64 `json:"total_donated"` // credits
	DonationCount int64 `json:"donation_count"`
	UniqueDonors  int64 `json:"unique_donors"`
}

// UserStats are a user's lifetime donation totals.
type UserStats struct {
	TotalDonated             int64 `json:"total_donated"` // minor currency units
	CommunityListingsDonated int64 `json:"community_listings_donated"`
}

// CommunityStats is the combined community view.
type CommunityStats struct {
	CommunityPotBalance int64 `json:"community_pot_balance"`
	DonationSummary
	ListingsFinanced int64 `json:"listings_financed"`
}

// StatsService serves cached aggregates.
type StatsService struct {
	DB       *gorm.DB
	Repo     StatsRepo
	Profiles ProfileRepo
	Readers  *Readers
	Cache    *cache.Cache

	TTL          time.Duration // community aggregates
	UserTTL      time.Duration // per-user totals
	FetchTimeout time.Duration
}

// NewStatsService constructs a StatsService with 60s/120s TTLs.
func NewStatsService(db *gorm.DB, store Store, r *Readers, c *cache.Cache) *StatsService {
	return &StatsService{
		DB:           db,
		Repo:         store,
		Profiles:     store,
		Readers:      r,
		Cache:        c,
		TTL:          60 * time.Second,
		UserTTL:      120 * time.Second,
		FetchTimeout: 3 * time.Second,
	}
}

// CommunityPotBalance re-exposes the pot balance reader.
func (s *StatsService) CommunityPotBalance(ctx context.Context) (int64, error) {
	return s.Readers.ReadCommunityPotBalanceOnly(ctx)
}

// Donations returns the donation sum, count and distinct donors.
func (s *StatsService) Donations(ctx context.Context) (DonationSummary, error) {
	return cache.Fetch(ctx, s.Cache, KeyStatsDonations, s.TTL, func(ctx context.Context) (DonationSummary, error) {
		ctx, cancel := s.bound(ctx)
		defer cancel()
		t, err := s.Repo.DonationStats(ctx, s.DB)
		if err != nil {
			return DonationSummary{}, err
		}
		return DonationSummary{TotalDonated: t.TotalCredits, DonationCount: t.Count, UniqueDonors: t.UniqueDonors}, nil
	})
}

// ListingsFinanced returns how many listings the pot has paid for.
func (s *StatsService) ListingsFinanced(ctx context.Context) (int64, error) {
	return cache.Fetch(ctx, s.Cache, KeyStatsListingsFinanced, s.TTL, func(ctx context.Context) (int64, error) {
		ctx, cancel := s.bound(ctx)
		defer cancel()
		sum, err := s.Repo.UsageTotal(ctx, s.DB)
		if err != nil {
			return 0, err
		}
		if sum < 0 {
			sum = -sum
		}
		return sum, nil
	})
}

// UserStats returns userID's lifetime totals; a user without a profile has
// zero totals.
func (s *StatsService) UserStats(ctx context.Context, userID string) (UserStats, error) {
	return cache.Fetch(ctx, s.Cache, KeyUserStats(userID), s.UserTTL, func(ctx context.Context) (UserStats, error) {
		ctx, cancel := s.bound(ctx)
		defer cancel()
		p, err := s.Profiles.GetProfile(ctx, s.DB, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return UserStats{}, nil
		}
		if err != nil {
			return UserStats{}, err
		}
		return UserStats{TotalDonated: p.TotalDonated, CommunityListingsDonated: p.CommunityListingsDonated}, nil
	})
}

// Community combines the pot balance, donation summary and listings financed.
func (s *StatsService) Community(ctx context.Context) (CommunityStats, error) {
	bal, err := s.CommunityPotBalance(ctx)
	if err != nil {
		return CommunityStats{}, err
	}
	don, err := s.Donations(ctx)
	if err != nil {
		return CommunityStats{}, err
	}
	fin, err := s.ListingsFinanced(ctx)
	if err != nil {
		return CommunityStats{}, err
	}
	return CommunityStats{CommunityPotBalance: bal, DonationSummary: don, ListingsFinanced: fin}, nil
}

func (s *StatsService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.FetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.FetchTimeout)
}
