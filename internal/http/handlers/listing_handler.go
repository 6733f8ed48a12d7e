// Listing credit HTTP handlers.
//
//   - GET  /eligibility        (advisory decision, 200 for allow and deny)
//   - POST /listings/consume   (debit one listing, Idempotency-Key aware)
//
// Eligibility is advisory: consume re-validates balances in the ledger, so a
// client that checked a moment ago can still get 402 or 409 here.
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-listing-credits/internal/domain"
	"github.com/tbourn/go-listing-credits/internal/services"
)

// ConsumeRequest is the JSON payload for consuming one listing. An empty
// source lets the server pick it through the eligibility decision.
type ConsumeRequest struct {
	Source string `json:"source" binding:"omitempty,oneof=community_pot personal_credits" example:"community_pot"`
	ItemID string `json:"item_id" binding:"max=128" example:"listing-8f2c"`
}

// GetEligibility godoc
// @ID          getEligibility
// @Summary     Check listing eligibility
// @Description Returns whether the caller may create a listing now and which source would pay. Anonymous callers get reason not_authenticated.
// @Tags        Listings
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "User ID"  example(user123)
//
// @Success     200  {object}  domain.EligibilityResult
// @Router      /eligibility [get]
func (h *Handlers) GetEligibility(c *gin.Context) {
	res := h.elig.CheckEligibility(c.Request.Context(), userID(c))
	ok(c, http.StatusOK, res)
}

// ConsumeListing godoc
// @ID          consumeListing
// @Summary     Consume one listing credit
// @Description Debits one listing from the community pot or the caller's personal credits. Without a source the eligibility decision picks one. Supports Idempotency-Key.
// @Tags        Listings
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  true   "User ID"          example(user123)
// @Param       Idempotency-Key  header  string  false  "Idempotency key"  example(4f1c2b7e-consume-1)
// @Param       body             body    handlers.ConsumeRequest  false  "Consume payload"
//
// @Success     200  {object}  services.ConsumeResult
// @Header      200  {string}  Idempotency-Replayed  "true when served from the idempotency store"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Anonymous caller"
// @Failure     402  {object}  handlers.ErrorResponse  "No personal credits"
// @Failure     409  {object}  handlers.ErrorResponse  "Community pot empty or daily free listings used up"
// @Failure     500  {object}  handlers.ErrorResponse  "Consumption failed or partially applied"
// @Failure     503  {object}  handlers.ErrorResponse  "Eligibility could not be determined"
// @Router      /listings/consume [post]
func (h *Handlers) ConsumeListing(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}

	var req ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	ctx := c.Request.Context()
	source := domain.Source(req.Source)
	if source == "" {
		res := h.elig.CheckEligibility(ctx, uid)
		if !res.CanCreate {
			status, code := denyStatus(res.Reason)
			fail(c, status, code, res.Message)
			return
		}
		source = res.Source
	}

	out, err := h.ledger.Consume(ctx, uid, source, strings.TrimSpace(req.ItemID))
	if err != nil {
		status, code, msg := consumeError(err)
		fail(c, status, code, msg)
		return
	}
	ok(c, http.StatusOK, out)
}

// denyStatus maps a negative eligibility result to an HTTP status and code.
func denyStatus(r domain.DenyReason) (int, string) {
	switch r {
	case domain.ReasonNotAuthenticated:
		return http.StatusUnauthorized, ErrCodeUnauthorized
	case domain.ReasonCommunityPotEmpty:
		return http.StatusConflict, ErrCodePotEmpty
	case domain.ReasonNoCredits:
		return http.StatusPaymentRequired, ErrCodeInsufficientCredits
	case domain.ReasonError:
		return http.StatusServiceUnavailable, ErrCodeUnavailable
	default:
		return http.StatusConflict, ErrCodeNotEligible
	}
}

func consumeError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, services.ErrInvalidSource):
		return http.StatusBadRequest, ErrCodeInvalidSource, "source must be community_pot or personal_credits"
	case errors.Is(err, services.ErrInsufficientCredits):
		return http.StatusPaymentRequired, ErrCodeInsufficientCredits, "no personal credits left"
	case errors.Is(err, services.ErrCommunityPotEmpty):
		return http.StatusConflict, ErrCodePotEmpty, "the community pot is empty"
	case errors.Is(err, services.ErrDailyQuotaExhausted):
		return http.StatusConflict, ErrCodeDailyQuota, "daily free listings used up"
	case errors.Is(err, services.ErrPartialConsumption):
		return http.StatusInternalServerError, ErrCodePartialFailure, "consumption partially applied"
	default:
		return http.StatusInternalServerError, ErrCodeConsumeFailed, err.Error()
	}
}
