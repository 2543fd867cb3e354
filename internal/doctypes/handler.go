package doctypes

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/receivables/internal/ledger"
	"github.com/odyssey-erp/receivables/internal/platform/httpx"
	"github.com/odyssey-erp/receivables/internal/shared"
)

// Lister lists document types.
type Lister interface {
	List(ctx context.Context, movement *ledger.Side) ([]DocumentType, error)
}

// Handler serves document type listings.
type Handler struct {
	repo   Lister
	logger *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, repo Lister) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// MountRoutes registers document type endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var movement *ledger.Side
	if raw := r.URL.Query().Get("movement"); raw != "" {
		side, err := ledger.ParseSide(raw)
		if err != nil {
			httpx.RespondError(w, shared.InvalidInput("movement must be DB or CR"))
			return
		}
		movement = &side
	}
	types, err := h.repo.List(r.Context(), movement)
	if err != nil {
		h.logger.Error("list document types", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, types)
}
