package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-listing-credits/internal/domain"
	"github.com/tbourn/go-listing-credits/internal/http/middleware"
	"github.com/tbourn/go-listing-credits/internal/services"
)

func creditRoutes(h *Handlers) func(*gin.Engine) {
	return func(r *gin.Engine) {
		r.POST("/credits/purchase", h.PurchaseCredits)
		r.POST("/credits/grant", h.GrantCredits)
		r.GET("/credits/transactions", h.ListCreditTransactions)
		r.POST("/pot/donations", h.Donate)
		r.GET("/pot/transactions", h.ListPotTransactions)
	}
}

func TestPurchaseCredits_AndHistory(t *testing.T) {
	s := newStack(t, 5, 0)
	r := newRouter(creditRoutes(s.h))

	w := do(t, r, http.MethodPost, "/credits/purchase", "u1", PurchaseRequest{
		Credits: 10, PackageType: "pack_10", PaymentRef: " pi_abc123456 ", AmountPaid: 900,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("purchase status=%d body=%s", w.Code, w.Body.String())
	}
	row := decode[map[string]any](t, w)
	if row["kind"] != "purchase" || row["balance_after"].(float64) != 10 {
		t.Fatalf("purchase row: %v", row)
	}
	meta, _ := row["metadata"].(map[string]any)
	if meta["payment_ref"] != "pi_abc123456" {
		t.Fatalf("metadata not trimmed/stored: %v", meta)
	}

	w = do(t, r, http.MethodGet, "/credits/transactions?kind=purchase", "u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status=%d", w.Code)
	}
	list := decode[ListCreditTransactionsResponse](t, w)
	if len(list.Transactions) != 1 || list.Pagination.Total != 1 || list.Pagination.TotalPages != 1 || list.Pagination.HasNext {
		t.Fatalf("list: %+v", list)
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}

	// conditional request
	req := httptest.NewRequest(http.MethodGet, "/credits/transactions?kind=purchase", nil)
	req.Header.Set(middleware.HeaderUserID, "u1")
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("If-None-Match -> %d", w.Code)
	}

	// a different filter is a different representation
	w = do(t, r, http.MethodGet, "/credits/transactions?kind=bonus", "u1", nil)
	if w.Header().Get("ETag") == etag {
		t.Fatalf("ETag must depend on the query")
	}
	if got := decode[ListCreditTransactionsResponse](t, w); len(got.Transactions) != 0 {
		t.Fatalf("bonus filter: %+v", got)
	}
}

func TestPurchaseCredits_Validation(t *testing.T) {
	h := New(Services{Ledger: stubLedger{}})
	r := newRouter(creditRoutes(h))

	if w := do(t, r, http.MethodPost, "/credits/purchase", "", PurchaseRequest{Credits: 1}); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous -> %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/credits/purchase", "u1", PurchaseRequest{Credits: 0}); w.Code != http.StatusBadRequest {
		t.Fatalf("zero credits -> %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/credits/purchase", "u1", PurchaseRequest{Credits: 1, AmountPaid: -5}); w.Code != http.StatusBadRequest {
		t.Fatalf("negative amount paid -> %d", w.Code)
	}
}

func TestGrantCredits_MetadataPerKind(t *testing.T) {
	var got domain.TxMetadata
	h := New(Services{Ledger: stubLedger{
		grant: func(_ context.Context, u string, n int64, k domain.TransactionKind, m domain.TxMetadata) (*domain.CreditTransaction, error) {
			got = m
			return &domain.CreditTransaction{UserID: u, Amount: n, Kind: k}, nil
		},
	}})
	r := newRouter(creditRoutes(h))

	w := do(t, r, http.MethodPost, "/credits/grant", "admin1", GrantRequest{UserID: "u1", Amount: -2, Kind: "adjustment", Note: "chargeback"})
	if w.Code != http.StatusCreated {
		t.Fatalf("adjustment status=%d body=%s", w.Code, w.Body.String())
	}
	adj, isAdj := got.(domain.AdjustmentMetadata)
	if !isAdj || adj.Operator != "admin1" || adj.Note != "chargeback" {
		t.Fatalf("adjustment metadata: %#v", got)
	}

	do(t, r, http.MethodPost, "/credits/grant", "admin1", GrantRequest{UserID: "u1", Amount: 1, Kind: "refund", OriginalTransactionID: "tx-9", Reason: "dup"})
	if ref, isRef := got.(domain.RefundMetadata); !isRef || ref.OriginalTransactionID != "tx-9" {
		t.Fatalf("refund metadata: %#v", got)
	}

	if w := do(t, r, http.MethodPost, "/credits/grant", "admin1", GrantRequest{UserID: "u1", Amount: 1, Kind: "purchase"}); w.Code != http.StatusBadRequest {
		t.Fatalf("purchase kind -> %d", w.Code)
	}
}

func TestGrantCredits_RealLedger(t *testing.T) {
	s := newStack(t, 5, 0)
	seedCredits(t, s.db, "u1", 1)
	r := newRouter(creditRoutes(s.h))

	w := do(t, r, http.MethodPost, "/credits/grant", "admin1", GrantRequest{UserID: "u1", Amount: -5, Kind: "adjustment"})
	if w.Code != http.StatusPaymentRequired || errCode(t, w) != ErrCodeInsufficientCredits {
		t.Fatalf("overdraw: status=%d body=%s", w.Code, w.Body.String())
	}
	w = do(t, r, http.MethodPost, "/credits/grant", "admin1", GrantRequest{UserID: "u1", Amount: 4, Kind: "bonus", Reason: "promo"})
	if w.Code != http.StatusCreated {
		t.Fatalf("bonus status=%d body=%s", w.Code, w.Body.String())
	}
	if row := decode[map[string]any](t, w); row["balance_after"].(float64) != 5 {
		t.Fatalf("bonus row: %v", row)
	}
}

func TestLedgerErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrInvalidAmount, http.StatusBadRequest, ErrCodeInvalidAmount},
		{services.ErrInvalidKind, http.StatusBadRequest, ErrCodeInvalidKind},
		{services.ErrInsufficientCredits, http.StatusPaymentRequired, ErrCodeInsufficientCredits},
		{errors.New("disk full"), http.StatusInternalServerError, ErrCodeLedgerFailed},
	}
	for _, tc := range cases {
		status, code, _ := ledgerError(tc.err)
		if status != tc.status || code != tc.code {
			t.Fatalf("%v: got %d/%s", tc.err, status, code)
		}
	}
}

func TestListCreditTransactions_BadParams(t *testing.T) {
	h := New(Services{History: stubHistory{}})
	r := newRouter(creditRoutes(h))

	for _, q := range []string{"kind=gift", "since=yesterday", "until=2025-13-01"} {
		if w := do(t, r, http.MethodGet, "/credits/transactions?"+q, "u1", nil); w.Code != http.StatusBadRequest {
			t.Fatalf("%s -> %d", q, w.Code)
		}
	}
	if w := do(t, r, http.MethodGet, "/credits/transactions", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous -> %d", w.Code)
	}

	h = New(Services{History: stubHistory{err: errors.New("boom")}})
	r = newRouter(creditRoutes(h))
	w := do(t, r, http.MethodGet, "/credits/transactions", "u1", nil)
	if w.Code != http.StatusInternalServerError || w.Header().Get("ETag") != "" {
		t.Fatalf("list error -> %d etag=%q", w.Code, w.Header().Get("ETag"))
	}
}

func TestDonate_AndPotHistory(t *testing.T) {
	s := newStack(t, 5, 2)
	r := newRouter(creditRoutes(s.h))

	w := do(t, r, http.MethodPost, "/pot/donations", "d1", DonationRequest{Credits: 5, PaymentRef: "cs_test1234", AmountPaid: 450})
	if w.Code != http.StatusCreated {
		t.Fatalf("donate status=%d body=%s", w.Code, w.Body.String())
	}
	res := decode[services.DonationResult](t, w)
	if res.CommunityPotBalance != 7 || res.PotTransaction.Amount != 5 || res.CreditTransaction.Amount != 0 {
		t.Fatalf("donation result: %+v", res)
	}

	w = do(t, r, http.MethodGet, "/pot/transactions?kind=donation", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("pot list status=%d", w.Code)
	}
	list := decode[ListPotTransactionsResponse](t, w)
	if len(list.Transactions) != 1 || list.Transactions[0].BalanceAfter != 7 {
		t.Fatalf("pot list: %+v", list)
	}

	if w := do(t, r, http.MethodGet, "/pot/transactions?kind=refund", "", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad pot kind -> %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/pot/donations", "", DonationRequest{Credits: 1}); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous donate -> %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/pot/donations", "d1", DonationRequest{}); w.Code != http.StatusBadRequest {
		t.Fatalf("empty donation -> %d", w.Code)
	}
}
