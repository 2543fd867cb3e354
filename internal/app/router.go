package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/receivables/internal/chart"
	"github.com/odyssey-erp/receivables/internal/doctypes"
	"github.com/odyssey-erp/receivables/internal/observability"
	"github.com/odyssey-erp/receivables/internal/receivables"
	"github.com/odyssey-erp/receivables/internal/reports"
	"github.com/odyssey-erp/receivables/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Principals         PrincipalResolver
	ChartHandler       *chart.Handler
	DocTypeHandler     *doctypes.Handler
	ReceivablesHandler *receivables.Handler
	ReportHandler      *reports.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if params.Principals != nil {
			r.Use(RequirePrincipal(params.Principals, params.Logger))
		}
		if params.ChartHandler != nil {
			r.Route("/accounts", params.ChartHandler.MountRoutes)
		}
		if params.DocTypeHandler != nil {
			r.Route("/document-types", params.DocTypeHandler.MountRoutes)
		}
		if params.ReceivablesHandler != nil {
			r.Group(params.ReceivablesHandler.MountRoutes)
		}
		if params.ReportHandler != nil {
			r.Route("/reports", params.ReportHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
