package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/receivables/internal/platform/httpx"
	"github.com/odyssey-erp/receivables/internal/shared"
)

const dateLayout = "2006-01-02"

type journalQuery struct {
	From string `validate:"omitempty,datetime=2006-01-02"`
	To   string `validate:"omitempty,datetime=2006-01-02"`
}

// Handler serves report endpoints.
type Handler struct {
	service   *Service
	logger    *slog.Logger
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger, validator: validator.New()}
}

// MountRoutes registers report endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/statement/{customerID}", h.statement)
	r.Get("/journal", h.journal)
	r.Get("/dashboard", h.dashboard)
}

func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "customerID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.InvalidInput("invalid customer id"))
		return
	}
	statement, err := h.service.Statement(r.Context(), id)
	if err != nil {
		h.fail(w, "statement", err)
		return
	}
	httpx.JSON(w, http.StatusOK, statement)
}

func (h *Handler) journal(w http.ResponseWriter, r *http.Request) {
	q := journalQuery{From: r.URL.Query().Get("from"), To: r.URL.Query().Get("to")}
	if err := h.validator.Struct(q); err != nil {
		httpx.RespondError(w, shared.InvalidInput("from and to must be YYYY-MM-DD"))
		return
	}
	var rng DateRange
	if q.From != "" {
		from, _ := time.Parse(dateLayout, q.From)
		rng.From = &from
	}
	if q.To != "" {
		to, _ := time.Parse(dateLayout, q.To)
		rng.To = &to
	}
	entries, err := h.service.Journal(r.Context(), rng)
	if err != nil {
		h.fail(w, "journal", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.fail(w, "dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, dash)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusOf(err) >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
