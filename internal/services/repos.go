package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-listing-credits/internal/domain"
	"github.com/tbourn/go-listing-credits/internal/repo"
)

// SettingsRepo is the store contract for the settings singleton.
type SettingsRepo interface {
	// GetSettings loads the singleton row.
	GetSettings(ctx context.Context, db *gorm.DB) (*domain.SystemSettings, error)

	// GetCommunityPotBalance returns the current pot balance.
	GetCommunityPotBalance(ctx context.Context, db *gorm.DB) (int64, error)

	// AdjustCommunityPotBalance applies delta atomically in the store and
	// fails with repo.ErrInsufficientBalance instead of going negative.
	AdjustCommunityPotBalance(ctx context.Context, db *gorm.DB, delta int64) error

	// UpdateDailyFreeListings sets the daily quota.
	UpdateDailyFreeListings(ctx context.Context, db *gorm.DB, n int) error
}

// ProfileRepo is the store contract for per-user credit state.
type ProfileRepo interface {
	GetProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error)
	EnsureProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error)
	SetDailyUsage(ctx context.Context, db *gorm.DB, userID string, used int, date string) error
	IncrementDailyUsage(ctx context.Context, db *gorm.DB, userID, today string, limit int) (int, error)
	DecrementDailyUsage(ctx context.Context, db *gorm.DB, userID, date string) error
	DebitPersonalCredit(ctx context.Context, db *gorm.DB, userID string) (int64, error)
	AdjustPersonalCredits(ctx context.Context, db *gorm.DB, userID string, delta int64) (int64, error)
	AddDonationTotals(ctx context.Context, db *gorm.DB, userID string, amountPaid, credits int64) error
}

// TransactionRepo is the store contract for the two append-only ledgers.
type TransactionRepo interface {
	AppendCreditTransaction(ctx context.Context, db *gorm.DB, tx *domain.CreditTransaction) error
	AppendPotTransaction(ctx context.Context, db *gorm.DB, tx *domain.CommunityPotTransaction) error
	CountCreditTransactions(ctx context.Context, db *gorm.DB, f repo.TxFilter) (int64, error)
	ListCreditTransactionsPage(ctx context.Context, db *gorm.DB, f repo.TxFilter, offset, limit int) ([]domain.CreditTransaction, error)
	CountPotTransactions(ctx context.Context, db *gorm.DB, f repo.PotTxFilter) (int64, error)
	ListPotTransactionsPage(ctx context.Context, db *gorm.DB, f repo.PotTxFilter, offset, limit int) ([]domain.CommunityPotTransaction, error)
}

// StatsRepo is the store contract for ledger aggregates.
type StatsRepo interface {
	DonationStats(ctx context.Context, db *gorm.DB) (repo.DonationTotals, error)
	UsageTotal(ctx context.Context, db *gorm.DB) (int64, error)
	CreditTransactionsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error)
}

// Store is the full store contract; repo.Store satisfies it.
type Store interface {
	SettingsRepo
	ProfileRepo
	TransactionRepo
	StatsRepo
}

var _ Store = repo.Store{}
