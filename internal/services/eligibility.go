// Package services – EligibilityService
//
// This file implements the allocation decision engine. Decide is a pure
// function of the current quota, pot balance, effective daily usage and
// personal balance; EligibilityService feeds it from the cached Readers.
//
// Branch order is policy: whenever the daily quota is not exhausted the
// community pot pays before personal credits do. The result is advisory; the
// ledger re-validates balances when the listing is actually consumed.
//
// CheckEligibility never returns an error. Read failures become a deny
// result with reason "error" so callers always get something to render.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tbourn/go-listing-credits/internal/domain"
)

// DecisionInput is everything Decide looks at.
type DecisionInput struct {
	Authenticated       bool
	DailyFreeListings   int
	CommunityPotBalance int64
	EffectiveDailyUsed  int
	PersonalCredits     int64
}

// Decide evaluates the allocation branches in order and returns the first
// match, with an English message.
func Decide(in DecisionInput) domain.EligibilityResult {
	return decide(defaultPrinter, in)
}

var defaultPrinter = message.NewPrinter(language.English)

func decide(p *message.Printer, in DecisionInput) domain.EligibilityResult {
	if !in.Authenticated {
		return domain.EligibilityResult{
			Reason:  domain.ReasonNotAuthenticated,
			Message: p.Sprintf("Sign in to create a listing."),
		}
	}

	res := domain.EligibilityResult{
		PersonalCredits:     ptr(in.PersonalCredits),
		CommunityPotBalance: ptr(in.CommunityPotBalance),
	}
	quotaLeft := in.EffectiveDailyUsed < in.DailyFreeListings

	switch {
	case quotaLeft && in.CommunityPotBalance > 0:
		res.CanCreate = true
		res.Source = domain.SourceCommunityPot
		res.RemainingFreeToday = in.DailyFreeListings - in.EffectiveDailyUsed
		res.Message = p.Sprintf("This listing is free, funded by the community pot. %d free listings left today.", res.RemainingFreeToday)

	case quotaLeft && in.CommunityPotBalance == 0:
		if in.PersonalCredits > 0 {
			res.CanCreate = true
			res.Source = domain.SourcePersonalCredits
			res.Message = p.Sprintf("The community pot is empty. This listing will use 1 of your %d credits.", in.PersonalCredits)
		} else {
			res.Reason = domain.ReasonCommunityPotEmpty
			res.Message = p.Sprintf("The community pot is empty and you have no credits left. Donate to the pot or buy credits to keep listing.")
		}

	case !quotaLeft:
		if in.PersonalCredits > 0 {
			res.CanCreate = true
			res.Source = domain.SourcePersonalCredits
			res.Message = p.Sprintf("You have used your %d free listings for today. This listing will use 1 of your %d credits.", in.DailyFreeListings, in.PersonalCredits)
		} else {
			res.Reason = domain.ReasonNoCredits
			res.Message = p.Sprintf("You have used your %d free listings for today and have no credits left. Buy credits to keep listing.", in.DailyFreeListings)
		}

	default:
		// Negative balances or other states the store should never hold.
		res.Reason = domain.ReasonUnknown
		res.Message = p.Sprintf("We could not determine whether you can create a listing.")
	}
	return res
}

func errorResult(p *message.Printer) domain.EligibilityResult {
	return domain.EligibilityResult{
		Reason:  domain.ReasonError,
		Message: p.Sprintf("We could not check your credits right now. Please try again."),
	}
}

func ptr[T any](v T) *T { return &v }

// EligibilityService answers "may this user create a listing now, and who
// pays?" from cached reads.
type EligibilityService struct {
	Readers *Readers

	// Now and Location define "today" for the lazy daily reset.
	Now      func() time.Time
	Location *time.Location

	// Locale selects number formatting in messages.
	Locale language.Tag
}

// NewEligibilityService constructs the service with UTC days and English
// messages.
func NewEligibilityService(r *Readers) *EligibilityService {
	return &EligibilityService{
		Readers:  r,
		Now:      time.Now,
		Location: time.UTC,
		Locale:   language.English,
	}
}

// CheckEligibility evaluates the decision for userID. An empty userID is an
// anonymous visitor.
func (s *EligibilityService) CheckEligibility(ctx context.Context, userID string) domain.EligibilityResult {
	tr := otel.Tracer("services/EligibilityService")
	ctx, span := tr.Start(ctx, "CheckEligibility",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	p := message.NewPrinter(s.Locale)
	res := s.check(ctx, p, userID)

	label := string(res.Source)
	if !res.CanCreate {
		label = string(res.Reason)
	}
	eligibilityTotal.WithLabelValues(label).Inc()
	span.SetAttributes(
		attribute.Bool("eligibility.can_create", res.CanCreate),
		attribute.String("eligibility.result", label),
	)
	return res
}

func (s *EligibilityService) check(ctx context.Context, p *message.Printer, userID string) domain.EligibilityResult {
	if userID == "" {
		return decide(p, DecisionInput{})
	}

	settings, err := s.Readers.ReadSettings(ctx)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("eligibility: read settings")
		return errorResult(p)
	}
	state, err := s.Readers.ReadUserCreditState(ctx, userID)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("eligibility: read credit state")
		return errorResult(p)
	}

	return decide(p, DecisionInput{
		Authenticated:       true,
		DailyFreeListings:   settings.DailyFreeListings,
		CommunityPotBalance: settings.CommunityPotBalance,
		EffectiveDailyUsed:  state.EffectiveDailyUsed(s.today()),
		PersonalCredits:     state.PersonalCredits,
	})
}

func (s *EligibilityService) today() string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return domain.DateKey(now(), s.Location)
}
