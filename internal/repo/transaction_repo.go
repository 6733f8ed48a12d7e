// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides append-only access to the two ledgers
// (credit_transactions and community_pot_transactions) plus filtered,
// paginated reads for the ledger views.
//
// Rows are never updated or deleted by this package.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-listing-credits/internal/domain"
)

// TxFilter narrows credit transaction queries. Zero fields are ignored.
type TxFilter struct {
	UserID string
	Kind   domain.TransactionKind
	Since  *time.Time // inclusive
	Until  *time.Time // exclusive
}

// PotTxFilter narrows community pot transaction queries.
type PotTxFilter struct {
	UserID string
	Kind   domain.PotTransactionKind
}

// AppendCreditTransaction inserts tx, assigning ID and CreatedAt when unset.
func AppendCreditTransaction(ctx context.Context, db *gorm.DB, tx *domain.CreditTransaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(tx).Error
}

// AppendPotTransaction inserts tx, assigning ID and CreatedAt when unset.
func AppendPotTransaction(ctx context.Context, db *gorm.DB, tx *domain.CommunityPotTransaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(tx).Error
}

// CountCreditTransactions returns the number of rows matching f.
func CountCreditTransactions(ctx context.Context, db *gorm.DB, f TxFilter) (int64, error) {
	var n int64
	err := creditScope(db.WithContext(ctx).Model(&domain.CreditTransaction{}), f).Count(&n).Error
	return n, err
}

// ListCreditTransactionsPage returns rows matching f, newest first.
func ListCreditTransactionsPage(ctx context.Context, db *gorm.DB, f TxFilter, offset, limit int) ([]domain.CreditTransaction, error) {
	var out []domain.CreditTransaction
	err := creditScope(db.WithContext(ctx), f).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountPotTransactions returns the number of pot rows matching f.
func CountPotTransactions(ctx context.Context, db *gorm.DB, f PotTxFilter) (int64, error) {
	var n int64
	err := potScope(db.WithContext(ctx).Model(&domain.CommunityPotTransaction{}), f).Count(&n).Error
	return n, err
}

// ListPotTransactionsPage returns pot rows matching f, newest first.
func ListPotTransactionsPage(ctx context.Context, db *gorm.DB, f PotTxFilter, offset, limit int) ([]domain.CommunityPotTransaction, error) {
	var out []domain.CommunityPotTransaction
	err := potScope(db.WithContext(ctx), f).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

func creditScope(q *gorm.DB, f TxFilter) *gorm.DB {
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	if f.Since != nil {
		q = q.Where("created_at >= ?", *f.Since)
	}
	if f.Until != nil {
		q = q.Where("created_at < ?", *f.Until)
	}
	return q
}

func potScope(q *gorm.DB, f PotTxFilter) *gorm.DB {
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	return q
}
