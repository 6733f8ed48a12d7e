package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-listing-credits/internal/domain"
	"github.com/tbourn/go-listing-credits/internal/http/middleware"
	"github.com/tbourn/go-listing-credits/internal/services"
	"github.com/tbourn/go-listing-credits/internal/utils"
)

//
// Service contracts (context-aware)
//

// EligibilityService answers whether a user may create a listing now.
type EligibilityService interface {
	// CheckEligibility never fails; read errors come back as a deny result.
	CheckEligibility(ctx context.Context, userID string) domain.EligibilityResult
}

// LedgerService mutates balances and appends ledger rows.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type LedgerService interface {
	Consume(ctx context.Context, userID string, source domain.Source, itemID string) (*services.ConsumeResult, error)
	Purchase(ctx context.Context, userID string, credits int64, meta domain.PurchaseMetadata) (*domain.CreditTransaction, error)
	Grant(ctx context.Context, userID string, delta int64, kind domain.TransactionKind, meta domain.TxMetadata) (*domain.CreditTransaction, error)
	Donate(ctx context.Context, userID string, credits int64, meta domain.DonationMetadata) (*services.DonationResult, error)
}

// StatsService serves cached aggregates.
type StatsService interface {
	Community(ctx context.Context) (services.CommunityStats, error)
	UserStats(ctx context.Context, userID string) (services.UserStats, error)
}

// HistoryService serves paginated ledger views.
type HistoryService interface {
	ListCredits(ctx context.Context, userID string, q services.TxQuery, page, pageSize int) ([]domain.CreditTransaction, int64, error)
	ListPot(ctx context.Context, kind domain.PotTransactionKind, page, pageSize int) ([]domain.CommunityPotTransaction, int64, error)
	// CreditStats returns the row count and newest CreatedAt for ETags.
	CreditStats(ctx context.Context, userID string) (int64, *time.Time, error)
}

// SettingsService reads and updates the settings singleton.
type SettingsService interface {
	Current(ctx context.Context) (*domain.SystemSettings, error)
	SetDailyFreeListings(ctx context.Context, n int) (*domain.SystemSettings, error)
}

// InvalidationFeed publishes cache invalidations; *cache.Cache satisfies it.
type InvalidationFeed interface {
	AddInvalidationListener(fn func(key string)) (unsubscribe func())
}

//
// Handler wiring
//

// Services bundles the dependencies of Handlers. A nil Feed makes
// /cache/events answer 503.
type Services struct {
	Eligibility EligibilityService
	Ledger      LedgerService
	Stats       StatsService
	History     HistoryService
	Settings    SettingsService
	Feed        InvalidationFeed
}

// Handlers groups the HTTP endpoints of the credit API.
type Handlers struct {
	elig     EligibilityService
	ledger   LedgerService
	stats    StatsService
	history  HistoryService
	settings SettingsService
	feed     InvalidationFeed

	// Heartbeat is the SSE keep-alive interval on /cache/events.
	Heartbeat time.Duration
}

// New constructs Handlers bound to svc.
func New(svc Services) *Handlers {
	return &Handlers{
		elig:      svc.Eligibility,
		ledger:    svc.Ledger,
		stats:     svc.Stats,
		history:   svc.History,
		settings:  svc.Settings,
		feed:      svc.Feed,
		Heartbeat: 25 * time.Second,
	}
}

// userID returns the caller set by middleware.Identity, or "" when anonymous.
func userID(c *gin.Context) string {
	return middleware.UserID(c)
}

// requireUser writes 401 and reports false for anonymous callers.
func requireUser(c *gin.Context) (string, bool) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "sign in required")
		return "", false
	}
	return uid, true
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	tp := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: tp,
		HasNext:    page < tp,
	}
}

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}
