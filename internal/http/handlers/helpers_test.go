package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-listing-credits/internal/cache"
	"github.com/tbourn/go-listing-credits/internal/domain"
	"github.com/tbourn/go-listing-credits/internal/http/middleware"
	"github.com/tbourn/go-listing-credits/internal/repo"
	"github.com/tbourn/go-listing-credits/internal/services"
)

var testNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

// ---------- test DB + real services ----------

func newCreditsDB(t *testing.T, dailyFree int, pot int64) *gorm.DB {
	t.Helper()

	// Unique DSN per call to avoid cross-test contamination
	dsn := fmt.Sprintf("file:credit_handlers_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := repo.EnsureSettings(context.Background(), db, dailyFree, pot); err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	return db
}

func seedCredits(t *testing.T, db *gorm.DB, userID string, credits int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := repo.EnsureProfile(ctx, db, userID); err != nil {
		t.Fatalf("profile: %v", err)
	}
	if credits > 0 {
		if _, err := repo.AdjustPersonalCredits(ctx, db, userID, credits); err != nil {
			t.Fatalf("credits: %v", err)
		}
	}
}

// stack is the real service graph behind Handlers.
type stack struct {
	db    *gorm.DB
	cache *cache.Cache
	h     *Handlers
}

func newStack(t *testing.T, dailyFree int, pot int64) *stack {
	t.Helper()
	db := newCreditsDB(t, dailyFree, pot)
	c := cache.New()
	t.Cleanup(c.Close)

	store := repo.Store{}
	readers := services.NewReaders(db, store, c)
	elig := services.NewEligibilityService(readers)
	elig.Now = func() time.Time { return testNow }
	ledger := services.NewLedgerService(db, store, c)
	ledger.Now = func() time.Time { return testNow }

	h := New(Services{
		Eligibility: elig,
		Ledger:      ledger,
		Stats:       services.NewStatsService(db, store, readers, c),
		History:     &services.HistoryService{DB: db, Txs: store, Stats: store},
		Settings:    &services.SettingsService{DB: db, Repo: store, Cache: c},
		Feed:        c,
	})
	return &stack{db: db, cache: c, h: h}
}

// newRouter mounts fn-registered routes behind RequestID and Identity.
func newRouter(register func(r *gin.Engine)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Identity())
	register(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path, uid string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if uid != "" {
		req.Header.Set(middleware.HeaderUserID, uid)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("json: %v (body=%s)", err, w.Body.String())
	}
	return v
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[ErrorResponse](t, w).Code
}

// ---------- stubs ----------

type stubElig struct {
	res   domain.EligibilityResult
	calls int
}

func (s *stubElig) CheckEligibility(context.Context, string) domain.EligibilityResult {
	s.calls++
	return s.res
}

type stubLedger struct {
	consume  func(context.Context, string, domain.Source, string) (*services.ConsumeResult, error)
	purchase func(context.Context, string, int64, domain.PurchaseMetadata) (*domain.CreditTransaction, error)
	grant    func(context.Context, string, int64, domain.TransactionKind, domain.TxMetadata) (*domain.CreditTransaction, error)
	donate   func(context.Context, string, int64, domain.DonationMetadata) (*services.DonationResult, error)
}

func (s stubLedger) Consume(ctx context.Context, u string, src domain.Source, item string) (*services.ConsumeResult, error) {
	if s.consume != nil {
		return s.consume(ctx, u, src, item)
	}
	return &services.ConsumeResult{Source: src}, nil
}

func (s stubLedger) Purchase(ctx context.Context, u string, n int64, m domain.PurchaseMetadata) (*domain.CreditTransaction, error) {
	if s.purchase != nil {
		return s.purchase(ctx, u, n, m)
	}
	return &domain.CreditTransaction{UserID: u, Amount: n, Kind: domain.KindPurchase}, nil
}

func (s stubLedger) Grant(ctx context.Context, u string, n int64, k domain.TransactionKind, m domain.TxMetadata) (*domain.CreditTransaction, error) {
	if s.grant != nil {
		return s.grant(ctx, u, n, k, m)
	}
	return &domain.CreditTransaction{UserID: u, Amount: n, Kind: k}, nil
}

func (s stubLedger) Donate(ctx context.Context, u string, n int64, m domain.DonationMetadata) (*services.DonationResult, error) {
	if s.donate != nil {
		return s.donate(ctx, u, n, m)
	}
	return &services.DonationResult{CommunityPotBalance: n}, nil
}

type stubStats struct{ err error }

func (s stubStats) Community(context.Context) (services.CommunityStats, error) {
	return services.CommunityStats{}, s.err
}

func (s stubStats) UserStats(context.Context, string) (services.UserStats, error) {
	return services.UserStats{}, s.err
}

type stubHistory struct{ err error }

func (s stubHistory) ListCredits(context.Context, string, services.TxQuery, int, int) ([]domain.CreditTransaction, int64, error) {
	return nil, 0, s.err
}

func (s stubHistory) ListPot(context.Context, domain.PotTransactionKind, int, int) ([]domain.CommunityPotTransaction, int64, error) {
	return nil, 0, s.err
}

func (s stubHistory) CreditStats(context.Context, string) (int64, *time.Time, error) {
	return 0, nil, s.err
}
