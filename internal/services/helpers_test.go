package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-listing-credits/internal/cache"
	"github.com/tbourn/go-listing-credits/internal/repo"
)

var fixedNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

const today = "2025-03-14"

// newTestDB opens a per-test in-memory database with the full schema and a
// settings row of dailyFree / pot.
func newTestDB(t *testing.T, dailyFree int, pot int64) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repo.AutoMigrate(db))
	require.NoError(t, repo.EnsureSettings(context.Background(), db, dailyFree, pot))
	return db
}

// seedUser creates a profile with credits and today's usage.
func seedUser(t *testing.T, db *gorm.DB, userID string, credits int64, usedToday int) {
	t.Helper()
	ctx := context.Background()
	_, err := repo.EnsureProfile(ctx, db, userID)
	require.NoError(t, err)
	if credits > 0 {
		_, err = repo.AdjustPersonalCredits(ctx, db, userID, credits)
		require.NoError(t, err)
	}
	if usedToday > 0 {
		require.NoError(t, repo.SetDailyUsage(ctx, db, userID, usedToday, today))
	}
}

// engine wires the services the way the server does, with a fixed clock.
type engine struct {
	db       *gorm.DB
	cache    *cache.Cache
	readers  *Readers
	elig     *EligibilityService
	ledger   *LedgerService
	stats    *StatsService
	settings *SettingsService
	history  *HistoryService
}

func newEngine(t *testing.T, db *gorm.DB) *engine {
	t.Helper()
	c := cache.New()
	t.Cleanup(c.Close)

	store := repo.Store{}
	r := NewReaders(db, store, c)
	el := NewEligibilityService(r)
	el.Now = func() time.Time { return fixedNow }
	lg := NewLedgerService(db, store, c)
	lg.Now = func() time.Time { return fixedNow }

	return &engine{
		db:       db,
		cache:    c,
		readers:  r,
		elig:     el,
		ledger:   lg,
		stats:    NewStatsService(db, store, r, c),
		settings: &SettingsService{DB: db, Repo: store, Cache: c},
		history:  &HistoryService{DB: db, Txs: store, Stats: store},
	}
}
