// Package services – LedgerService
//
// LedgerService is the state-mutating half of the credit engine. It never
// reads through the cache: every operation re-reads the minimal state it
// needs from the store immediately before writing, and relies on the store's
// guarded UPDATEs for non-negativity.
//
// Consume funds one listing:
//
//   - community_pot: re-read settings → increment today's usage guarded by
//     the daily quota (lazy reset in the same UPDATE) → atomic pot delta of
//     -1 → read back the pot → append a pot usage row. A user without a
//     profile gets an empty one first. These are independent writes. When a
//     later step fails, the applied steps are compensated in reverse order
//     (pot +1, usage -1 on the same day). If a
//     compensation fails too, ErrPartialConsumption is returned and the
//     outcome is logged and counted as "partial".
//   - personal_credits: re-read the balance → fail with
//     ErrInsufficientCredits when it is not positive → guarded decrement.
//     This path appends no CreditTransaction row; personal usage rows are
//     not part of the ledger and the statistics rely on that.
//
// Purchase, Grant and Donate are the primitives the payment and admin flows
// call. Each runs in a single database transaction and appends its ledger
// rows there.
//
// On success every operation invalidates the cache keys it made stale.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-listing-credits/internal/cache"
	"github.com/tbourn/go-listing-credits/internal/domain"
	"github.com/tbourn/go-listing-credits/internal/repo"
)

// ConsumeResult reports the balances after a successful consumption.
type ConsumeResult struct {
	Source              domain.Source `json:"source"`
	PersonalCredits     *int64        `json:"personal_credits,omitempty"`
	CommunityPotBalance *int64        `json:"community_pot_balance,omitempty"`
	PotTransactionID    string        `json:"pot_transaction_id,omitempty"`
}

// DonationResult reports the state after a donation.
type DonationResult struct {
	CommunityPotBalance int64                          `json:"community_pot_balance"`
	PotTransaction      domain.CommunityPotTransaction `json:"pot_transaction"`
	CreditTransaction   domain.CreditTransaction       `json:"credit_transaction"`
}

// LedgerService performs debits and credits against the store.
type LedgerService struct {
	DB       *gorm.DB
	Settings SettingsRepo
	Profiles ProfileRepo
	Txs      TransactionRepo

	// Cache, when set, has the affected keys invalidated after each write.
	Cache *cache.Cache

	Now      func() time.Time
	Location *time.Location
}

// NewLedgerService constructs a LedgerService over store.
func NewLedgerService(db *gorm.DB, store Store, c *cache.Cache) *LedgerService {
	return &LedgerService{
		DB:       db,
		Settings: store,
		Profiles: store,
		Txs:      store,
		Cache:    c,
		Now:      time.Now,
		Location: time.UTC,
	}
}

// Consume debits one listing from source for userID. itemID is optional and
// recorded on pot usage rows.
func (s *LedgerService) Consume(ctx context.Context, userID string, source domain.Source, itemID string) (*ConsumeResult, error) {
	tr := otel.Tracer("services/LedgerService")
	ctx, span := tr.Start(ctx, "Consume",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("credits.source", string(source)),
		),
	)
	defer span.End()

	var (
		res *ConsumeResult
		err error
	)
	switch source {
	case domain.SourceCommunityPot:
		res, err = s.consumePot(ctx, userID, itemID)
	case domain.SourcePersonalCredits:
		res, err = s.consumePersonal(ctx, userID)
	default:
		return nil, ErrInvalidSource
	}

	outcome := consumeOutcome(err)
	consumeTotal.WithLabelValues(string(source), outcome).Inc()
	span.SetAttributes(attribute.String("credits.outcome", outcome))
	if err != nil {
		if outcome == "error" || outcome == "partial" {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		return nil, err
	}

	s.invalidate(KeyUserCredits(userID))
	if source == domain.SourceCommunityPot {
		s.invalidate(KeySettings, KeyPotBalance)
	}
	s.invalidateStats()
	return res, nil
}

func consumeOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrPartialConsumption):
		return "partial"
	case errors.Is(err, ErrInsufficientCredits), errors.Is(err, ErrCommunityPotEmpty), errors.Is(err, ErrDailyQuotaExhausted):
		return "denied"
	default:
		return "error"
	}
}

// compensation undoes one applied step.
type compensation struct {
	name string
	undo func(ctx context.Context) error
}

func (s *LedgerService) consumePot(ctx context.Context, userID, itemID string) (*ConsumeResult, error) {
	settings, err := s.Settings.GetSettings(ctx, s.DB)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if settings.CommunityPotBalance <= 0 {
		return nil, ErrCommunityPotEmpty
	}
	prof, err := s.Profiles.EnsureProfile(ctx, s.DB, userID)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	today := domain.DateKey(s.now(), s.Location)
	var applied []compensation

	// 1) usage counter, guarded by today's quota
	if _, err := s.Profiles.IncrementDailyUsage(ctx, s.DB, userID, today, settings.DailyFreeListings); err != nil {
		if errors.Is(err, repo.ErrInsufficientBalance) {
			return nil, ErrDailyQuotaExhausted
		}
		return nil, fmt.Errorf("write daily usage: %w", err)
	}
	applied = append(applied, compensation{"restore daily usage", func(ctx context.Context) error {
		return s.Profiles.DecrementDailyUsage(ctx, s.DB, userID, today)
	}})

	// 2) atomic pot delta
	if err := s.Settings.AdjustCommunityPotBalance(ctx, s.DB, -1); err != nil {
		if errors.Is(err, repo.ErrInsufficientBalance) {
			err = ErrCommunityPotEmpty
		} else {
			err = fmt.Errorf("debit community pot: %w", err)
		}
		return nil, s.compensate(ctx, userID, applied, err)
	}
	applied = append(applied, compensation{"refund community pot", func(ctx context.Context) error {
		return s.Settings.AdjustCommunityPotBalance(ctx, s.DB, 1)
	}})

	// 3) read back
	balance, err := s.Settings.GetCommunityPotBalance(ctx, s.DB)
	if err != nil {
		return nil, s.compensate(ctx, userID, applied, fmt.Errorf("read community pot: %w", err))
	}

	// 4) ledger row
	row := &domain.CommunityPotTransaction{
		Kind:         domain.PotUsage,
		UserID:       &userID,
		Amount:       -1,
		BalanceAfter: balance,
	}
	if itemID != "" {
		row.ItemID = &itemID
	}
	if err := s.Txs.AppendPotTransaction(ctx, s.DB, row); err != nil {
		return nil, s.compensate(ctx, userID, applied, fmt.Errorf("append pot usage: %w", err))
	}

	return &ConsumeResult{
		Source:              domain.SourceCommunityPot,
		PersonalCredits:     ptr(prof.PersonalCredits),
		CommunityPotBalance: ptr(balance),
		PotTransactionID:    row.ID,
	}, nil
}

// compensate runs the applied steps' undo functions in reverse order. It
// returns cause when every undo succeeds, and ErrPartialConsumption wrapping
// cause and the first undo failure otherwise.
func (s *LedgerService) compensate(ctx context.Context, userID string, applied []compensation, cause error) error {
	// Compensation must run even if the request was cancelled.
	ctx = context.WithoutCancel(ctx)
	lg := log.Ctx(ctx).With().Str("user_id", userID).Logger()

	for i := len(applied) - 1; i >= 0; i-- {
		step := applied[i]
		if err := step.undo(ctx); err != nil {
			lg.Error().Err(err).AnErr("cause", cause).Str("step", step.name).
				Msg("ledger: compensation failed, consumption partially applied")
			return fmt.Errorf("%w: %w (compensation %q: %v)", ErrPartialConsumption, cause, step.name, err)
		}
	}
	if len(applied) > 0 {
		consumeTotal.WithLabelValues(string(domain.SourceCommunityPot), "compensated").Inc()
		lg.Warn().Err(cause).Int("steps", len(applied)).Msg("ledger: consumption rolled back")
	}
	return cause
}

func (s *LedgerService) consumePersonal(ctx context.Context, userID string) (*ConsumeResult, error) {
	prof, err := s.Profiles.GetProfile(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		// No profile means no credits.
		return nil, ErrInsufficientCredits
	}
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	if prof.PersonalCredits <= 0 {
		return nil, ErrInsufficientCredits
	}

	after, err := s.Profiles.DebitPersonalCredit(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrInsufficientBalance) {
		// Another writer spent the last credit between read and debit.
		return nil, ErrInsufficientCredits
	}
	if err != nil {
		return nil, fmt.Errorf("debit personal credit: %w", err)
	}
	return &ConsumeResult{
		Source:          domain.SourcePersonalCredits,
		PersonalCredits: ptr(after),
	}, nil
}

// Purchase adds credits bought through checkout and appends a purchase row.
func (s *LedgerService) Purchase(ctx context.Context, userID string, credits int64, meta domain.PurchaseMetadata) (*domain.CreditTransaction, error) {
	tr := otel.Tracer("services/LedgerService")
	ctx, span := tr.Start(ctx, "Purchase",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int64("credits.amount", credits),
		),
	)
	defer span.End()

	if credits <= 0 {
		return nil, ErrInvalidAmount
	}
	row, err := s.applyCredit(ctx, userID, credits, domain.KindPurchase, meta)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.invalidate(KeyUserCredits(userID))
	s.invalidateStats()
	return row, nil
}

// Grant applies a bonus, refund or adjustment. Bonus and refund must be
// positive; adjustments may be negative but never overdraw the balance.
func (s *LedgerService) Grant(ctx context.Context, userID string, delta int64, kind domain.TransactionKind, meta domain.TxMetadata) (*domain.CreditTransaction, error) {
	switch kind {
	case domain.KindBonus, domain.KindRefund:
		if delta <= 0 {
			return nil, ErrInvalidAmount
		}
	case domain.KindAdjustment:
		if delta == 0 {
			return nil, ErrInvalidAmount
		}
	default:
		return nil, ErrInvalidKind
	}
	if meta != nil && meta.MetadataKind() != kind {
		return nil, ErrInvalidKind
	}

	row, err := s.applyCredit(ctx, userID, delta, kind, meta)
	if err != nil {
		return nil, err
	}
	s.invalidate(KeyUserCredits(userID))
	s.invalidateStats()
	return row, nil
}

func (s *LedgerService) applyCredit(ctx context.Context, userID string, delta int64, kind domain.TransactionKind, meta domain.TxMetadata) (*domain.CreditTransaction, error) {
	var row *domain.CreditTransaction
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.Profiles.EnsureProfile(ctx, tx, userID); err != nil {
			return err
		}
		after, err := s.Profiles.AdjustPersonalCredits(ctx, tx, userID, delta)
		if err != nil {
			return err
		}
		row = &domain.CreditTransaction{
			UserID:       userID,
			Amount:       delta,
			Kind:         kind,
			Metadata:     domain.Meta(meta),
			BalanceAfter: after,
		}
		return s.Txs.AppendCreditTransaction(ctx, tx, row)
	})
	if errors.Is(err, repo.ErrInsufficientBalance) {
		return nil, ErrInsufficientCredits
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	return row, nil
}

// Donate tops the community pot up with credits paid for by userID. The
// donor's personal balance is unchanged; their lifetime totals grow and a
// zero-amount donation row records the event in their history.
func (s *LedgerService) Donate(ctx context.Context, userID string, credits int64, meta domain.DonationMetadata) (*DonationResult, error) {
	tr := otel.Tracer("services/LedgerService")
	ctx, span := tr.Start(ctx, "Donate",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int64("credits.amount", credits),
		),
	)
	defer span.End()

	if credits <= 0 || meta.AmountPaid < 0 {
		return nil, ErrInvalidAmount
	}

	var out DonationResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.Profiles.EnsureProfile(ctx, tx, userID); err != nil {
			return err
		}
		if err := s.Settings.AdjustCommunityPotBalance(ctx, tx, credits); err != nil {
			return err
		}
		balance, err := s.Settings.GetCommunityPotBalance(ctx, tx)
		if err != nil {
			return err
		}
		out.CommunityPotBalance = balance
		out.PotTransaction = domain.CommunityPotTransaction{
			Kind:         domain.PotDonation,
			UserID:       &userID,
			Amount:       credits,
			BalanceAfter: balance,
		}
		if err := s.Txs.AppendPotTransaction(ctx, tx, &out.PotTransaction); err != nil {
			return err
		}
		if err := s.Profiles.AddDonationTotals(ctx, tx, userID, meta.AmountPaid, credits); err != nil {
			return err
		}
		prof, err := s.Profiles.GetProfile(ctx, tx, userID)
		if err != nil {
			return err
		}
		out.CreditTransaction = domain.CreditTransaction{
			UserID:       userID,
			Amount:       0,
			Kind:         domain.KindDonation,
			Metadata:     domain.Meta(meta),
			BalanceAfter: prof.PersonalCredits,
		}
		return s.Txs.AppendCreditTransaction(ctx, tx, &out.CreditTransaction)
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("donate: %w", err)
	}

	s.invalidate(KeySettings, KeyPotBalance, KeyUserCredits(userID))
	s.invalidateStats()
	return &out, nil
}

func (s *LedgerService) invalidate(keys ...string) {
	if s.Cache == nil {
		return
	}
	for _, k := range keys {
		s.Cache.Invalidate(k)
	}
}

func (s *LedgerService) invalidateStats() {
	if s.Cache == nil {
		return
	}
	_, _ = s.Cache.InvalidatePattern(PatternStats)
}

func (s *LedgerService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
