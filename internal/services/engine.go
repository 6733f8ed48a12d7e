package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-listing-credits/internal/cache"
)

// EngineOptions tunes the service graph built by NewEngine. Zero values keep
// each service's defaults.
type EngineOptions struct {
	ReaderTTL    ReaderTTLs
	StatsTTL     time.Duration
	UserStatsTTL time.Duration
	FetchTimeout time.Duration

	// Location defines "today" for quotas; nil means UTC.
	Location *time.Location
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Engine is the wired credit engine shared by the HTTP API, the CLI and
// the scheduled jobs. Every member shares one store and one cache.
type Engine struct {
	DB    *gorm.DB
	Cache *cache.Cache

	Readers     *Readers
	Eligibility *EligibilityService
	Ledger      *LedgerService
	Stats       *StatsService
	Settings    *SettingsService
	History     *HistoryService
}

// NewEngine builds every service over db, store and c.
func NewEngine(db *gorm.DB, store Store, c *cache.Cache, opt EngineOptions) *Engine {
	loc := opt.Location
	if loc == nil {
		loc = time.UTC
	}
	now := opt.Now
	if now == nil {
		now = time.Now
	}

	r := NewReaders(db, store, c)
	overlayTTL(&r.TTL.Settings, opt.ReaderTTL.Settings)
	overlayTTL(&r.TTL.Profile, opt.ReaderTTL.Profile)
	overlayTTL(&r.TTL.Pot, opt.ReaderTTL.Pot)
	overlayTTL(&r.FetchTimeout, opt.FetchTimeout)

	el := NewEligibilityService(r)
	el.Now, el.Location = now, loc

	lg := NewLedgerService(db, store, c)
	lg.Now, lg.Location = now, loc

	st := NewStatsService(db, store, r, c)
	overlayTTL(&st.TTL, opt.StatsTTL)
	overlayTTL(&st.UserTTL, opt.UserStatsTTL)
	overlayTTL(&st.FetchTimeout, opt.FetchTimeout)

	return &Engine{
		DB:          db,
		Cache:       c,
		Readers:     r,
		Eligibility: el,
		Ledger:      lg,
		Stats:       st,
		Settings:    &SettingsService{DB: db, Repo: store, Cache: c},
		History:     &HistoryService{DB: db, Txs: store, Stats: store},
	}
}

func overlayTTL(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}
