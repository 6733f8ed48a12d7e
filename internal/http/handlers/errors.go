// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable; clients branch on them rather
// than on messages. Generic codes mirror HTTP status semantics. Credit codes
// name the ledger or eligibility outcome that produced the response.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "insufficient_credits",
//	  "message": "no personal credits left"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "not_authenticated"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeUnavailable      = "service_unavailable"

	// Credits:
	ErrCodeInsufficientCredits = "insufficient_credits"
	ErrCodePotEmpty            = "community_pot_empty"
	ErrCodeNotEligible         = "not_eligible"
	ErrCodeDailyQuota          = "daily_quota_exhausted"
	ErrCodeInvalidSource       = "invalid_source"
	ErrCodeInvalidAmount       = "invalid_amount"
	ErrCodeInvalidKind         = "invalid_kind"
	ErrCodeConsumeFailed       = "consume_failed"
	ErrCodePartialFailure      = "partial_failure"
	ErrCodeLedgerFailed        = "ledger_failed"
	ErrCodeListFailed          = "list_failed"
	ErrCodeStatsFailed         = "stats_failed"
	ErrCodeSettingsFailed      = "settings_failed"
	ErrCodeStreamUnavailable   = "stream_unavailable"
)
