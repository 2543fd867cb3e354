package receivables

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/receivables/internal/platform/httpx"
	"github.com/odyssey-erp/receivables/internal/shared"
)

// Poster is the service surface the handler drives.
type Poster interface {
	Post(ctx context.Context, req PostingRequest, actingAuxiliaryID int64) (PostingResult, error)
	CurrentBalance(ctx context.Context, customerID int64) (decimal.Decimal, error)
	History(ctx context.Context, customerID int64) ([]HistoryLine, error)
	CustomerSummary(ctx context.Context, customerID int64) (Summary, error)
}

// Handler exposes postings and balance queries over JSON.
type Handler struct {
	service   Poster
	logger    *slog.Logger
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service Poster) *Handler {
	return &Handler{service: service, logger: logger, validator: validator.New()}
}

// MountRoutes registers receivables endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/transactions", h.post)
	r.Route("/customers/{customerID}", func(r chi.Router) {
		r.Get("/balance", h.balance)
		r.Get("/summary", h.summary)
		r.Get("/history", h.history)
	})
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	var payload postTransactionRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.RespondError(w, validationFailure(err))
		return
	}
	req, err := payload.toPostingRequest()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	req.IdempotencyKey = strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	result, err := h.service.Post(r.Context(), req, principal.AuxiliaryID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	id, ok := customerID(w, r)
	if !ok {
		return
	}
	balance, err := h.service.CurrentBalance(r.Context(), id)
	if err != nil {
		h.fail(w, "current balance", id, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balanceResponse{CustomerID: id, Balance: balance})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	id, ok := customerID(w, r)
	if !ok {
		return
	}
	summary, err := h.service.CustomerSummary(r.Context(), id)
	if err != nil {
		h.fail(w, "customer summary", id, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, ok := customerID(w, r)
	if !ok {
		return
	}
	lines, err := h.service.History(r.Context(), id)
	if err != nil {
		h.fail(w, "customer history", id, err)
		return
	}
	if lines == nil {
		lines = []HistoryLine{}
	}
	httpx.JSON(w, http.StatusOK, lines)
}

func (h *Handler) fail(w http.ResponseWriter, op string, id int64, err error) {
	if httpx.StatusOf(err) >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Int64("customer_id", id), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func customerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "customerID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.InvalidInput("invalid customer id"))
		return 0, false
	}
	return id, true
}
