package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-listing-credits/internal/domain"
	"github.com/tbourn/go-listing-credits/internal/repo"
)

// HistoryService serves paginated ledger views. Reads are uncached; the
// HTTP layer uses CreditStats for conditional requests instead.
type HistoryService struct {
	DB    *gorm.DB
	Txs   TransactionRepo
	Stats StatsRepo
}

// TxQuery selects credit transactions of one user.
type TxQuery struct {
	Kind  domain.TransactionKind
	Since *time.Time
	Until *time.Time
}

// ListCredits returns a page of userID's credit transactions, newest first,
// and the total matching count. Invalid page/pageSize fall back to 1/20.
func (s *HistoryService) ListCredits(ctx context.Context, userID string, q TxQuery, page, pageSize int) ([]domain.CreditTransaction, int64, error) {
	if q.Kind != "" && !q.Kind.Valid() {
		return nil, 0, ErrInvalidKind
	}
	page, pageSize = normPage(page, pageSize)
	f := repo.TxFilter{UserID: userID, Kind: q.Kind, Since: q.Since, Until: q.Until}

	total, err := s.Txs.CountCreditTransactions(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.CreditTransaction{}, 0, nil
	}
	items, err := s.Txs.ListCreditTransactionsPage(ctx, s.DB, f, (page-1)*pageSize, pageSize)
	return items, total, err
}

// ListPot returns a page of community pot transactions.
func (s *HistoryService) ListPot(ctx context.Context, kind domain.PotTransactionKind, page, pageSize int) ([]domain.CommunityPotTransaction, int64, error) {
	if kind != "" && !kind.Valid() {
		return nil, 0, ErrInvalidKind
	}
	page, pageSize = normPage(page, pageSize)
	f := repo.PotTxFilter{Kind: kind}

	total, err := s.Txs.CountPotTransactions(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.CommunityPotTransaction{}, 0, nil
	}
	items, err := s.Txs.ListPotTransactionsPage(ctx, s.DB, f, (page-1)*pageSize, pageSize)
	return items, total, err
}

// CreditStats returns the row count and newest CreatedAt of userID's ledger.
func (s *HistoryService) CreditStats(ctx context.Context, userID string) (int64, *time.Time, error) {
	return s.Stats.CreditTransactionsStats(ctx, s.DB, userID)
}

func normPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
