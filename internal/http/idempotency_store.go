package httpapi

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-listing-credits/internal/http/middleware"
	"github.com/tbourn/go-listing-credits/internal/repo"
)

// IdempotencyStore persists replayable responses in the idempotency table.
type IdempotencyStore struct {
	DB  *gorm.DB
	TTL time.Duration
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)

// NewIdempotencyStore returns a store keeping records for ttl (24h when
// ttl <= 0).
func NewIdempotencyStore(db *gorm.DB, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{DB: db, TTL: ttl}
}

// Lookup returns the unexpired record for (userID, scope, key).
func (s *IdempotencyStore) Lookup(ctx context.Context, userID, scope, key string, now time.Time) (int, []byte, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, scope, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, err
	}
	return rec.Status, []byte(rec.Response), true, nil
}

// Save records a completed response. A concurrent duplicate is not an error:
// the first writer's response wins.
func (s *IdempotencyStore) Save(ctx context.Context, userID, scope, key string, status int, body []byte) error {
	_, err := repo.CreateIdempotency(ctx, s.DB, userID, scope, key, string(body), status, s.TTL)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}
