package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-listing-credits/internal/domain"
)

// Store adapts the free functions of this package to the repository
// interfaces consumed by the service layer. It is stateless; the *gorm.DB is
// passed on every call so services can run it inside a transaction.
type Store struct{}

// GetSettings proxies GetSettings.
func (Store) GetSettings(ctx context.Context, db *gorm.DB) (*domain.SystemSettings, error) {
	return GetSettings(ctx, db)
}

// GetCommunityPotBalance proxies GetCommunityPotBalance.
func (Store) GetCommunityPotBalance(ctx context.Context, db *gorm.DB) (int64, error) {
	return GetCommunityPotBalance(ctx, db)
}

// AdjustCommunityPotBalance proxies AdjustCommunityPotBalance.
func (Store) AdjustCommunityPotBalance(ctx context.Context, db *gorm.DB, delta int64) error {
	return AdjustCommunityPotBalance(ctx, db, delta)
}

// UpdateDailyFreeListings proxies UpdateDailyFreeListings.
func (Store) UpdateDailyFreeListings(ctx context.Context, db *gorm.DB, n int) error {
	return UpdateDailyFreeListings(ctx, db, n)
}

// GetProfile proxies GetProfile.
func (Store) GetProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error) {
	return GetProfile(ctx, db, userID)
}

// EnsureProfile proxies EnsureProfile.
func (Store) EnsureProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error) {
	return EnsureProfile(ctx, db, userID)
}

// SetDailyUsage proxies SetDailyUsage.
func (Store) SetDailyUsage(ctx context.Context, db *gorm.DB, userID string, used int, date string) error {
	return SetDailyUsage(ctx, db, userID, used, date)
}

// IncrementDailyUsage proxies IncrementDailyUsage.
func (Store) IncrementDailyUsage(ctx context.Context, db *gorm.DB, userID, today string, limit int) (int, error) {
	return IncrementDailyUsage(ctx, db, userID, today, limit)
}

// DecrementDailyUsage proxies DecrementDailyUsage.
func (Store) DecrementDailyUsage(ctx context.Context, db *gorm.DB, userID, date string) error {
	return DecrementDailyUsage(ctx, db, userID, date)
}

// DebitPersonalCredit proxies DebitPersonalCredit.
func (Store) DebitPersonalCredit(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return DebitPersonalCredit(ctx, db, userID)
}

// AdjustPersonalCredits proxies AdjustPersonalCredits.
func (Store) AdjustPersonalCredits(ctx context.Context, db *gorm.DB, userID string, delta int64) (int64, error) {
	return AdjustPersonalCredits(ctx, db, userID, delta)
}

// AddDonationTotals proxies AddDonationTotals.
func (Store) AddDonationTotals(ctx context.Context, db *gorm.DB, userID string, amountPaid, credits int64) error {
	return AddDonationTotals(ctx, db, userID, amountPaid, credits)
}

// AppendCreditTransaction proxies AppendCreditTransaction.
func (Store) AppendCreditTransaction(ctx context.Context, db *gorm.DB, tx *domain.CreditTransaction) error {
	return AppendCreditTransaction(ctx, db, tx)
}

// AppendPotTransaction proxies AppendPotTransaction.
func (Store) AppendPotTransaction(ctx context.Context, db *gorm.DB, tx *domain.CommunityPotTransaction) error {
	return AppendPotTransaction(ctx, db, tx)
}

// CountCreditTransactions proxies CountCreditTransactions.
func (Store) CountCreditTransactions(ctx context.Context, db *gorm.DB, f TxFilter) (int64, error) {
	return CountCreditTransactions(ctx, db, f)
}

// ListCreditTransactionsPage proxies ListCreditTransactionsPage.
func (Store) ListCreditTransactionsPage(ctx context.Context, db *gorm.DB, f TxFilter, offset, limit int) ([]domain.CreditTransaction, error) {
	return ListCreditTransactionsPage(ctx, db, f, offset, limit)
}

// CountPotTransactions proxies CountPotTransactions.
func (Store) CountPotTransactions(ctx context.Context, db *gorm.DB, f PotTxFilter) (int64, error) {
	return CountPotTransactions(ctx, db, f)
}

// ListPotTransactionsPage proxies ListPotTransactionsPage.
func (Store) ListPotTransactionsPage(ctx context.Context, db *gorm.DB, f PotTxFilter, offset, limit int) ([]domain.CommunityPotTransaction, error) {
	return ListPotTransactionsPage(ctx, db, f, offset, limit)
}

// DonationStats proxies DonationStats.
func (Store) DonationStats(ctx context.Context, db *gorm.DB) (DonationTotals, error) {
	return DonationStats(ctx, db)
}

// UsageTotal proxies UsageTotal.
func (Store) UsageTotal(ctx context.Context, db *gorm.DB) (int64, error) {
	return UsageTotal(ctx, db)
}

// CreditTransactionsStats proxies CreditTransactionsStats.
func (Store) CreditTransactionsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error) {
	return CreditTransactionsStats(ctx, db, userID)
}
