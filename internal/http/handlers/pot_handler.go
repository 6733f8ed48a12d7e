// Community pot HTTP handlers.
//
//   - POST /pot/donations      (checkout confirmation hook)
//   - GET  /pot/transactions   (public pot ledger, paginated)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-listing-credits/internal/domain"
)

// DonationRequest is a confirmed donation to the community pot.
type DonationRequest struct {
	Credits    int64  `json:"credits" binding:"required,gt=0" example:"5"`
	PaymentRef string `json:"payment_ref" binding:"max=128" example:"cs_a1B2c3D4e5F6"`
	AmountPaid int64  `json:"amount_paid" binding:"gte=0" example:"450"`
}

// ListPotTransactionsResponse wraps a page of pot ledger rows.
type ListPotTransactionsResponse struct {
	Transactions []domain.CommunityPotTransaction `json:"transactions"`
	Pagination   Pagination                       `json:"pagination"`
}

// Donate godoc
// @ID          donateToPot
// @Summary     Record a donation to the community pot
// @Description Adds credits to the community pot on behalf of the caller. The caller's personal balance is unchanged.
// @Tags        Pot
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  true   "User ID"          example(user123)
// @Param       Idempotency-Key  header  string  false  "Idempotency key"  example(cs_a1B2c3D4e5F6)
// @Param       body             body    handlers.DonationRequest  true  "Donation payload"
//
// @Success     201  {object}  services.DonationResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Anonymous caller"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /pot/donations [post]
func (h *Handlers) Donate(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	var req DonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	res, err := h.ledger.Donate(c.Request.Context(), uid, req.Credits, domain.DonationMetadata{
		PaymentRef: strings.TrimSpace(req.PaymentRef),
		AmountPaid: req.AmountPaid,
	})
	if err != nil {
		status, code, msg := ledgerError(err)
		fail(c, status, code, msg)
		return
	}
	ok(c, http.StatusCreated, res)
}

// ListPotTransactions godoc
// @ID          listPotTransactions
// @Summary     List community pot transactions
// @Tags        Pot
// @Produce     json
//
// @Param       kind       query  string  false  "Transaction kind"  Enums(donation, usage)
// @Param       page       query  int     false  "Page number"       minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"    minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListPotTransactionsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /pot/transactions [get]
func (h *Handlers) ListPotTransactions(c *gin.Context) {
	page, pageSize := clampPagination(c)
	kind := domain.PotTransactionKind(c.Query("kind"))
	if kind != "" && !kind.Valid() {
		fail(c, http.StatusBadRequest, ErrCodeInvalidKind, "unknown pot transaction kind")
		return
	}
	items, total, err := h.history.ListPot(c.Request.Context(), kind, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListPotTransactionsResponse{
		Transactions: items,
		Pagination:   newPagination(page, pageSize, total),
	})
}
