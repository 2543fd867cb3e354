package receivables

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/receivables/internal/ledger"
	"github.com/odyssey-erp/receivables/internal/shared"
)

type stubPoster struct {
	req       PostingRequest
	auxiliary int64
	err       error
}

func (s *stubPoster) Post(_ context.Context, req PostingRequest, aux int64) (PostingResult, error) {
	s.req, s.auxiliary = req, aux
	if s.err != nil {
		return PostingResult{}, s.err
	}
	return PostingResult{TransactionID: 31, LedgerHeaderID: 77, Message: ConfirmationMessage}, nil
}

func (s *stubPoster) CurrentBalance(_ context.Context, id int64) (decimal.Decimal, error) {
	if id != testCustomerID {
		return decimal.Zero, shared.NotFound("customer")
	}
	return dec("42.50"), nil
}

func (s *stubPoster) History(context.Context, int64) ([]HistoryLine, error) { return nil, nil }

func (s *stubPoster) CustomerSummary(_ context.Context, id int64) (Summary, error) {
	return Summary{CustomerID: id, CurrentBalance: dec("42.50")}, nil
}

func newHandlerRouter(svc Poster, principal *shared.Principal) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if principal != nil {
				req = req.WithContext(shared.ContextWithPrincipal(req.Context(), principal))
			}
			next.ServeHTTP(w, req)
		})
	})
	NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).MountRoutes(r)
	return r
}

func postJSON(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerPostsWithActingAuxiliary(t *testing.T) {
	svc := &stubPoster{}
	h := newHandlerRouter(svc, &shared.Principal{AuxiliaryID: 4, Username: "cxc"})

	rec := postJSON(t, h, `{"customer_id":1,"document_type_id":10,"document_number":"F-100","movement":"DB","amount":"118.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res PostingResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, int64(77), res.LedgerHeaderID)
	assert.Equal(t, int64(4), svc.auxiliary)
	assert.Equal(t, ledger.Debit, svc.req.Movement)
	assert.True(t, svc.req.Amount.Equal(dec("118")))
}

func TestHandlerForwardsIdempotencyKey(t *testing.T) {
	svc := &stubPoster{}
	h := newHandlerRouter(svc, &shared.Principal{AuxiliaryID: 4})

	req := httptest.NewRequest(http.MethodPost, "/transactions",
		bytes.NewBufferString(`{"customer_id":1,"document_type_id":10,"document_number":"F-1","movement":"CR","amount":"10"}`))
	req.Header.Set("Idempotency-Key", " pay-1 ")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "pay-1", svc.req.IdempotencyKey)
}

func TestHandlerRejectsBadPayloads(t *testing.T) {
	h := newHandlerRouter(&stubPoster{}, &shared.Principal{AuxiliaryID: 4})

	for _, body := range []string{
		`{"customer_id":1,"document_type_id":10,"document_number":"","movement":"DB","amount":5}`,
		`{"customer_id":1,"document_type_id":10,"document_number":"F","movement":"XX","amount":5}`,
		`{"customer_id":0,"document_type_id":10,"document_number":"F","movement":"CR","amount":5}`,
		`{"customer_id":1,"unexpected":true}`,
		`not json`,
	} {
		rec := postJSON(t, h, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestHandlerMapsServiceFailures(t *testing.T) {
	body := `{"customer_id":1,"document_type_id":10,"document_number":"F","movement":"DB","amount":5}`
	cases := []struct {
		err    error
		status int
	}{
		{shared.NotFound("customer"), http.StatusNotFound},
		{shared.RuleViolation(ReasonCreditLimit), http.StatusBadRequest},
		{shared.InvalidState("customer", ReasonCustomerInactive), http.StatusBadRequest},
		{shared.Misconfigured("CUENTA_CAJA_GENERAL", "configuration key missing"), http.StatusInternalServerError},
		{shared.ErrIdempotencyConflict, http.StatusConflict},
	}
	for _, tc := range cases {
		rec := postJSON(t, newHandlerRouter(&stubPoster{err: tc.err}, &shared.Principal{AuxiliaryID: 4}), body)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.NotContains(t, rec.Body.String(), "CUENTA_CAJA_GENERAL")
	}

	rec := postJSON(t, newHandlerRouter(&stubPoster{}, nil), body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerBalanceEndpoints(t *testing.T) {
	h := newHandlerRouter(&stubPoster{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/1/balance", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"customer_id":1,"balance":"42.5"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/2/balance", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/1/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/x/summary", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
