package chart

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/receivables/internal/platform/httpx"
	"github.com/odyssey-erp/receivables/internal/shared"
)

// Handler serves the read-only chart of accounts.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers chart endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/types", h.types)
	r.Get("/{id}/path", h.path)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.service.Outline(r.Context())
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, nodes)
}

func (h *Handler) types(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.AccountTypes(r.Context())
	if err != nil {
		h.logger.Error("list account types", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, types)
}

func (h *Handler) path(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.InvalidInput("invalid account id"))
		return
	}
	path, err := h.service.Path(r.Context(), id)
	if err != nil {
		if httpx.StatusOf(err) >= http.StatusInternalServerError {
			h.logger.Error("account path", slog.Int64("account_id", id), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, path)
}
