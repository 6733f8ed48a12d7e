// Package services implements the credit engine: cached readers, the
// allocation decision engine, the ledger, and aggregate statistics.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed
// at the handler layer.
package services

import "errors"

var (
	// ErrInvalidSource is returned when a consumption names a funding source
	// other than community_pot or personal_credits.
	ErrInvalidSource = errors.New("invalid funding source")

	// ErrInsufficientCredits is returned when a personal-credit debit finds no
	// credits left. Nothing is mutated.
	ErrInsufficientCredits = errors.New("insufficient personal credits")

	// ErrCommunityPotEmpty is returned when the pot cannot fund a listing.
	ErrCommunityPotEmpty = errors.New("community pot is empty")

	// ErrDailyQuotaExhausted is returned when a community-pot consumption
	// finds today's free listings used up. Nothing is mutated.
	ErrDailyQuotaExhausted = errors.New("daily free listings exhausted")

	// ErrInvalidAmount is returned for non-positive credit amounts and other
	// out-of-range numeric inputs.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidKind is returned when a grant names a transaction kind it may
	// not write, or metadata of another kind.
	ErrInvalidKind = errors.New("invalid transaction kind")

	// ErrPartialConsumption is returned when a community-pot consumption
	// failed midway and its compensating steps failed too, leaving some
	// writes applied.
	ErrPartialConsumption = errors.New("consumption partially applied")
)
