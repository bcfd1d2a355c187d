// Package analytichttp serves the reporting endpoints as JSON.
package analytichttp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/corebox-crm/corebox/internal/analytics"
	"github.com/corebox-crm/corebox/internal/money"
	"github.com/corebox-crm/corebox/internal/platform/httpx"
	"github.com/corebox-crm/corebox/internal/shared"
)

const requestTimeout = 5 * time.Second

// ReportingService defines the report contract used by the handler.
type ReportingService interface {
	GetAgingSummary(ctx context.Context, ownerID int64, asOf time.Time) (analytics.AgingSummary, error)
	GetPipelineSummary(ctx context.Context, ownerID int64, asOf time.Time) (analytics.PipelineSummary, error)
	GetPaymentAnalytics(ctx context.Context, ownerID int64, asOf time.Time) (analytics.PaymentAnalytics, error)
	GetStudentAnalytics(ctx context.Context, ownerID int64, asOf time.Time) (analytics.StudentAnalytics, error)
	GetFinancialSummary(ctx context.Context, ownerID int64, start time.Time) (analytics.FinancialSummary, error)
	GetActivitySummary(ctx context.Context, ownerID int64, start time.Time) (analytics.ActivitySummary, error)
	GetMonthlyRevenue(ctx context.Context, ownerID int64, from, to time.Time) ([]analytics.MonthlyRevenuePoint, error)
	GetYTDRevenue(ctx context.Context, ownerID int64, asOf time.Time) (money.Money, error)
	GetDashboard(ctx context.Context, ownerID int64, asOf time.Time) (analytics.Dashboard, error)
	GetStudentDashboard(ctx context.Context, ownerID int64, asOf time.Time) (analytics.StudentDashboard, error)
}

// Handler coordinates HTTP requests for the reporting endpoints.
type Handler struct {
	logger  *slog.Logger
	service ReportingService
}

// NewHandler constructs the reporting HTTP handler.
func NewHandler(logger *slog.Logger, service ReportingService) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) handleAging(w http.ResponseWriter, r *http.Request) {
	h.respondReport(w, r, "aging summary", func(ctx context.Context, ownerID int64, asOf time.Time) (any, error) {
		return h.service.GetAgingSummary(ctx, ownerID, asOf)
	})
}

func (h *Handler) handlePipeline(w http.ResponseWriter, r *http.Request) {
	h.respondReport(w, r, "pipeline summary", func(ctx context.Context, ownerID int64, asOf time.Time) (any, error) {
		return h.service.GetPipelineSummary(ctx, ownerID, asOf)
	})
}

func (h *Handler) handlePayments(w http.ResponseWriter, r *http.Request) {
	h.respondReport(w, r, "payment analytics", func(ctx context.Context, ownerID int64, asOf time.Time) (any, error) {
		return h.service.GetPaymentAnalytics(ctx, ownerID, asOf)
	})
}

func (h *Handler) handleStudents(w http.ResponseWriter, r *http.Request) {
	h.respondReport(w, r, "student analytics", func(ctx context.Context, ownerID int64, asOf time.Time) (any, error) {
		return h.service.GetStudentAnalytics(ctx, ownerID, asOf)
	})
}

func (h *Handler) handleFinancialSummary(w http.ResponseWriter, r *http.Request) {
	start, ok := parseDateParam(w, r, "start")
	if !ok {
		return
	}
	h.respondReport(w, r, "financial summary", func(ctx context.Context, ownerID int64, _ time.Time) (any, error) {
		return h.service.GetFinancialSummary(ctx, ownerID, start)
	})
}

func (h *Handler) handleActivitySummary(w http.ResponseWriter, r *http.Request) {
	start, ok := parseDateParam(w, r, "start")
	if !ok {
		return
	}
	h.respondReport(w, r, "activity summary", func(ctx context.Context, ownerID int64, _ time.Time) (any, error) {
		return h.service.GetActivitySummary(ctx, ownerID, start)
	})
}

func (h *Handler) handleMonthlyRevenue(w http.ResponseWriter, r *http.Request) {
	from, ok := parseDateParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := parseDateParam(w, r, "to")
	if !ok {
		return
	}
	h.respondReport(w, r, "monthly revenue", func(ctx context.Context, ownerID int64, _ time.Time) (any, error) {
		return h.service.GetMonthlyRevenue(ctx, ownerID, from, to)
	})
}

func (h *Handler) handleYTDRevenue(w http.ResponseWriter, r *http.Request) {
	h.respondReport(w, r, "ytd revenue", func(ctx context.Context, ownerID int64, asOf time.Time) (any, error) {
		total, err := h.service.GetYTDRevenue(ctx, ownerID, asOf)
		if err != nil {
			return nil, err
		}
		return map[string]money.Money{"ytd_revenue": total}, nil
	})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	h.respondReport(w, r, "dashboard", func(ctx context.Context, ownerID int64, asOf time.Time) (any, error) {
		return h.service.GetDashboard(ctx, ownerID, asOf)
	})
}

func (h *Handler) handleStudentDashboard(w http.ResponseWriter, r *http.Request) {
	h.respondReport(w, r, "student dashboard", func(ctx context.Context, ownerID int64, asOf time.Time) (any, error) {
		return h.service.GetStudentDashboard(ctx, ownerID, asOf)
	})
}

func (h *Handler) respondReport(w http.ResponseWriter, r *http.Request, name string, load func(context.Context, int64, time.Time) (any, error)) {
	ownerID := shared.OwnerFromContext(r.Context())
	asOf, ok := parseDateParam(w, r, "as_of")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, err := load(ctx, ownerID, asOf)
	if err != nil {
		h.logger.Error("load "+name, slog.Any("error", err), slog.Int64("owner_id", ownerID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

// parseDateParam reads an optional YYYY-MM-DD query parameter. A zero time
// means the parameter was absent.
func parseDateParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", name+" must be formatted YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}
