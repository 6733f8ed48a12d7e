// Package domain defines the persistence models for the listing-credit
// engine: the system settings singleton, user credit profiles, and the two
// append-only ledgers. These types are mapped with GORM and shared across the
// repository and service layers.
package domain

import (
	"time"
)

// SettingsID is the primary key of the SystemSettings singleton row.
const SettingsID = 1

// DateLayout is the storage format of calendar dates (LastListingDate).
const DateLayout = "2006-01-02"

// SystemSettings holds the global credit policy and the community pot.
// Exactly one row exists (ID = SettingsID). It is mutated by administrators
// and by the ledger's atomic pot delta.
//
// Fields:
//   - DailyFreeListings: number of pot-funded listings a user may create per day.
//   - CommunityPotBalance: shared balance funding free listings; never negative.
type SystemSettings struct {
	ID                  uint      `json:"-"                     gorm:"primaryKey"`
	DailyFreeListings   int       `json:"daily_free_listings"   gorm:"not null;default:0;check:daily_free_listings >= 0"`
	CommunityPotBalance int64     `json:"community_pot_balance" gorm:"not null;default:0;check:community_pot_balance >= 0"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName returns the database table name for SystemSettings.
func (SystemSettings) TableName() string { return "system_settings" }

// Profile is the per-user credit state plus the donation totals shown on the
// user's stats page.
//
// DailyListingsUsed is a rolling daily counter: it is only meaningful when
// LastListingDate equals today. Otherwise the counter is logically zero and is
// rewritten on the next consumption (lazy reset).
//
// TotalDonated is expressed in minor currency units (what the donor paid);
// CommunityListingsDonated counts the pot credits those donations bought.
type Profile struct {
	UserID                   string    `json:"user_id"                    gorm:"type:varchar(64);primaryKey"`
	PersonalCredits          int64     `json:"personal_credits"           gorm:"not null;default:0;check:personal_credits >= 0"`
	DailyListingsUsed        int       `json:"daily_listings_used"        gorm:"not null;default:0;check:daily_listings_used >= 0"`
	LastListingDate          string    `json:"last_listing_date"          gorm:"type:varchar(10);not null;default:''"`
	TotalDonated             int64     `json:"total_donated"              gorm:"not null;default:0"`
	CommunityListingsDonated int64     `json:"community_listings_donated" gorm:"not null;default:0"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// TableName returns the database table name for Profile.
func (Profile) TableName() string { return "profiles" }

// CreditState is the subset of a profile that drives the allocation decision.
func (p Profile) CreditState() UserCreditState {
	return UserCreditState{
		UserID:            p.UserID,
		PersonalCredits:   p.PersonalCredits,
		DailyListingsUsed: p.DailyListingsUsed,
		LastListingDate:   p.LastListingDate,
	}
}

// UserCreditState is the cached view of a user's balance and daily usage.
type UserCreditState struct {
	UserID            string `json:"user_id"`
	PersonalCredits   int64  `json:"personal_credits"`
	DailyListingsUsed int    `json:"daily_listings_used"`
	LastListingDate   string `json:"last_listing_date"`
}

// EffectiveDailyUsed applies the lazy reset: usage recorded on a day other
// than today counts as zero.
func (s UserCreditState) EffectiveDailyUsed(today string) int {
	if s.LastListingDate != today {
		return 0
	}
	return s.DailyListingsUsed
}

// DateKey formats t as a calendar date in loc (UTC when loc is nil).
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

// TransactionKind classifies a personal-credit ledger row.
type TransactionKind string

const (
	KindPurchase   TransactionKind = "purchase"
	KindUsage      TransactionKind = "usage"
	KindBonus      TransactionKind = "bonus"
	KindRefund     TransactionKind = "refund"
	KindDonation   TransactionKind = "donation"
	KindAdjustment TransactionKind = "adjustment"
)

// Valid reports whether k is a known transaction kind.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindPurchase, KindUsage, KindBonus, KindRefund, KindDonation, KindAdjustment:
		return true
	}
	return false
}

// CreditTransaction is an immutable row of the personal-credit ledger.
// Rows are appended by the ledger service (purchases, grants, donations) and
// never updated or deleted.
type CreditTransaction struct {
	ID           string          `json:"id"            gorm:"type:char(36);primaryKey"`
	UserID       string          `json:"user_id"       gorm:"type:varchar(64);not null;index:idx_credit_tx_user,priority:1"`
	Amount       int64           `json:"amount"        gorm:"not null"`
	Kind         TransactionKind `json:"kind"          gorm:"type:varchar(16);not null;index;check:kind IN ('purchase','usage','bonus','refund','donation','adjustment')"`
	Metadata     MetadataColumn  `json:"metadata"      gorm:"type:text"`
	BalanceAfter int64           `json:"balance_after" gorm:"not null"`
	CreatedAt    time.Time       `json:"created_at"    gorm:"index:idx_credit_tx_user,priority:2"`
}

// TableName returns the database table name for CreditTransaction.
func (CreditTransaction) TableName() string { return "credit_transactions" }

// PotTransactionKind classifies a community-pot ledger row.
type PotTransactionKind string

const (
	PotDonation PotTransactionKind = "donation"
	PotUsage    PotTransactionKind = "usage"
)

// Valid reports whether k is a known pot transaction kind.
func (k PotTransactionKind) Valid() bool {
	return k == PotDonation || k == PotUsage
}

// CommunityPotTransaction is an immutable row of the community-pot ledger.
// Usage rows (Amount = -1) are written when a listing is funded by the pot;
// donation rows when the payment flow tops the pot up.
type CommunityPotTransaction struct {
	ID           string             `json:"id"                gorm:"type:char(36);primaryKey"`
	Kind         PotTransactionKind `json:"kind"              gorm:"type:varchar(16);not null;index;check:kind IN ('donation','usage')"`
	UserID       *string            `json:"user_id,omitempty" gorm:"type:varchar(64);index"`
	Amount       int64              `json:"amount"            gorm:"not null"`
	BalanceAfter int64              `json:"balance_after"     gorm:"not null"`
	ItemID       *string            `json:"item_id,omitempty" gorm:"type:varchar(64)"`
	CreatedAt    time.Time          `json:"created_at"        gorm:"index"`
}

// TableName returns the database table name for CommunityPotTransaction.
func (CommunityPotTransaction) TableName() string { return "community_pot_transactions" }
