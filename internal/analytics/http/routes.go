package analytichttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/corebox-crm/corebox/internal/shared"
)

// MountRoutes registers reporting endpoints onto the router. The heavier
// reports share a per-owner rate limit.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(30, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/reports/dashboard", h.handleDashboard)
	r.Get("/reports/students/dashboard", h.handleStudentDashboard)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/reports/aging", h.handleAging)
		gr.Get("/reports/pipeline", h.handlePipeline)
		gr.Get("/reports/payments", h.handlePayments)
		gr.Get("/reports/students", h.handleStudents)
		gr.Get("/reports/financial-summary", h.handleFinancialSummary)
		gr.Get("/reports/activity-summary", h.handleActivitySummary)
		gr.Get("/reports/monthly-revenue", h.handleMonthlyRevenue)
		gr.Get("/reports/ytd-revenue", h.handleYTDRevenue)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if ownerID := shared.OwnerFromContext(r.Context()); ownerID > 0 {
		return "owner:" + strconv.FormatInt(ownerID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
