package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	analytichttp "github.com/corebox-crm/corebox/internal/analytics/http"
	"github.com/corebox-crm/corebox/internal/billing"
	"github.com/corebox-crm/corebox/internal/observability"
	"github.com/corebox-crm/corebox/internal/parentreport"
	"github.com/corebox-crm/corebox/internal/rates"
	"github.com/corebox-crm/corebox/internal/students"
	"github.com/corebox-crm/corebox/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	StudentsHandler     *students.Handler
	RatesHandler        *rates.Handler
	BillingHandler      *billing.Handler
	AnalyticsHandler    *analytichttp.Handler
	ParentReportHandler *parentreport.Handler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults. Everything
// except health, metrics and job observability is owner scoped.
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
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	ownerHeader := ""
	if params.Config != nil {
		ownerHeader = params.Config.OwnerHeader
	}
	r.Group(func(gr chi.Router) {
		gr.Use(OwnerMiddleware(ownerHeader))
		if params.StudentsHandler != nil {
			params.StudentsHandler.MountRoutes(gr)
		}
		if params.RatesHandler != nil {
			params.RatesHandler.MountRoutes(gr)
		}
		if params.BillingHandler != nil {
			params.BillingHandler.MountRoutes(gr)
		}
		if params.AnalyticsHandler != nil {
			params.AnalyticsHandler.MountRoutes(gr)
		}
		if params.ParentReportHandler != nil {
			gr.Route("/reports", func(rr chi.Router) {
				params.ParentReportHandler.MountRoutes(rr)
			})
		}
	})

	return r
}
