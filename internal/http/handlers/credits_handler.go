// Credit HTTP handlers.
//
//   - POST /credits/purchase       (checkout confirmation hook)
//   - POST /credits/grant          (admin: bonus, refund, adjustment)
//   - GET  /credits/transactions   (caller's ledger, paginated, weak ETag)
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-listing-credits/internal/domain"
	"github.com/tbourn/go-listing-credits/internal/services"
	"github.com/tbourn/go-listing-credits/internal/utils"
)

// PurchaseRequest is a confirmed credit purchase.
type PurchaseRequest struct {
	Credits     int64  `json:"credits" binding:"required,gt=0" example:"10"`
	PackageType string `json:"package_type" binding:"max=64" example:"pack_10"`
	PaymentRef  string `json:"payment_ref" binding:"max=128" example:"pi_3NqA1b2C3d4E5f"`
	AmountPaid  int64  `json:"amount_paid" binding:"gte=0" example:"900"`
}

// GrantRequest credits or debits a user outside checkout.
type GrantRequest struct {
	UserID                string `json:"user_id" binding:"required,max=64" example:"user123"`
	Amount                int64  `json:"amount" binding:"required" example:"3"`
	Kind                  string `json:"kind" binding:"required,oneof=bonus refund adjustment" example:"bonus"`
	Reason                string `json:"reason" binding:"max=255" example:"launch promo"`
	OriginalTransactionID string `json:"original_transaction_id" binding:"max=64"`
	Note                  string `json:"note" binding:"max=255"`
}

// ListCreditTransactionsResponse wraps a page of ledger rows.
type ListCreditTransactionsResponse struct {
	Transactions []domain.CreditTransaction `json:"transactions"`
	Pagination   Pagination                 `json:"pagination"`
}

// PurchaseCredits godoc
// @ID          purchaseCredits
// @Summary     Record a credit purchase
// @Description Adds purchased credits to the caller's balance and appends a purchase row. Called once checkout has been confirmed.
// @Tags        Credits
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  true   "User ID"          example(user123)
// @Param       Idempotency-Key  header  string  false  "Idempotency key"  example(pi_3NqA1b2C3d4E5f)
// @Param       body             body    handlers.PurchaseRequest  true  "Purchase payload"
//
// @Success     201  {object}  domain.CreditTransaction
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Anonymous caller"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /credits/purchase [post]
func (h *Handlers) PurchaseCredits(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	row, err := h.ledger.Purchase(c.Request.Context(), uid, req.Credits, domain.PurchaseMetadata{
		PackageType: strings.TrimSpace(req.PackageType),
		PaymentRef:  strings.TrimSpace(req.PaymentRef),
		AmountPaid:  req.AmountPaid,
	})
	if err != nil {
		status, code, msg := ledgerError(err)
		fail(c, status, code, msg)
		return
	}
	ok(c, http.StatusCreated, row)
}

// GrantCredits godoc
// @ID          grantCredits
// @Summary     Grant or adjust credits (admin)
// @Description Applies a bonus, refund or signed adjustment to a user's balance. Adjustments never overdraw the balance.
// @Tags        Credits
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Admin user ID"  example(admin1)
// @Param       body       body    handlers.GrantRequest  true  "Grant payload"
//
// @Success     201  {object}  domain.CreditTransaction
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Anonymous caller"
// @Failure     402  {object}  handlers.ErrorResponse  "Adjustment would overdraw"
// @Failure     403  {object}  handlers.ErrorResponse  "Not an admin"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /credits/grant [post]
func (h *Handlers) GrantCredits(c *gin.Context) {
	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	kind := domain.TransactionKind(req.Kind)
	var meta domain.TxMetadata
	switch kind {
	case domain.KindBonus:
		meta = domain.BonusMetadata{Reason: req.Reason}
	case domain.KindRefund:
		meta = domain.RefundMetadata{OriginalTransactionID: req.OriginalTransactionID, Reason: req.Reason}
	case domain.KindAdjustment:
		meta = domain.AdjustmentMetadata{Operator: userID(c), Note: req.Note}
	}

	row, err := h.ledger.Grant(c.Request.Context(), strings.TrimSpace(req.UserID), req.Amount, kind, meta)
	if err != nil {
		status, code, msg := ledgerError(err)
		fail(c, status, code, msg)
		return
	}
	ok(c, http.StatusCreated, row)
}

// ListCreditTransactions godoc
// @ID          listCreditTransactions
// @Summary     List the caller's credit transactions
// @Description Newest first. Supports a weak ETag via If-None-Match and may return 304.
// @Tags        Credits
// @Produce     json
//
// @Param       X-User-ID      header  string  true   "User ID"                      example(user123)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       kind           query   string  false  "Transaction kind"             Enums(purchase, usage, bonus, refund, donation, adjustment)
// @Param       since          query   string  false  "RFC3339 or YYYY-MM-DD, inclusive"
// @Param       until          query   string  false  "RFC3339 or YYYY-MM-DD, exclusive"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListCreditTransactionsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Anonymous caller"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /credits/transactions [get]
func (h *Handlers) ListCreditTransactions(c *gin.Context) {
	uid, authed := requireUser(c)
	if !authed {
		return
	}
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	q := services.TxQuery{Kind: domain.TransactionKind(c.Query("kind"))}
	if q.Kind != "" && !q.Kind.Valid() {
		fail(c, http.StatusBadRequest, ErrCodeInvalidKind, "unknown transaction kind")
		return
	}
	var err error
	if q.Since, err = utils.ParseTimeParam(c.Query("since")); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid since")
		return
	}
	if q.Until, err = utils.ParseTimeParam(c.Query("until")); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid until")
		return
	}

	// ETag pre-check (best effort).
	if count, maxTS, err := h.history.CreditStats(ctx, uid); err == nil {
		etag := fmt.Sprintf(`W/"credits:%s:%d:%d:%s:%d:%d:%d:%d"`,
			uid, count, unixOrZero(maxTS), q.Kind, unixOrZero(q.Since), unixOrZero(q.Until), page, pageSize)
		if conditional(c, etag) {
			return
		}
	}

	items, total, err := h.history.ListCredits(ctx, uid, q, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListCreditTransactionsResponse{
		Transactions: items,
		Pagination:   newPagination(page, pageSize, total),
	})
}

func unixOrZero(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.Unix()
}

// ledgerError maps Purchase, Grant and Donate failures.
func ledgerError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		return http.StatusBadRequest, ErrCodeInvalidAmount, "amount out of range"
	case errors.Is(err, services.ErrInvalidKind):
		return http.StatusBadRequest, ErrCodeInvalidKind, "transaction kind not allowed here"
	case errors.Is(err, services.ErrInsufficientCredits):
		return http.StatusPaymentRequired, ErrCodeInsufficientCredits, "balance would go negative"
	default:
		return http.StatusInternalServerError, ErrCodeLedgerFailed, err.Error()
	}
}
