package parentreport

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/corebox-crm/corebox/internal/platform/httpx"
	"github.com/corebox-crm/corebox/internal/shared"
)

// Handler serves the parent report endpoints as JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the parent report HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the parent report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/parent-report/{studentID}", h.handleReport)
	r.Get("/parent-report/{studentID}/narrative", h.handleReportWithNarrative)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	params, ok := h.parseParams(w, r)
	if !ok {
		return
	}
	report, err := h.service.Compose(r.Context(), shared.OwnerFromContext(r.Context()), params.studentID, params.asOf, params.start, params.end)
	if err != nil {
		h.logger.Error("compose parent report", slog.Any("error", err), slog.Int64("student_id", params.studentID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleReportWithNarrative(w http.ResponseWriter, r *http.Request) {
	params, ok := h.parseParams(w, r)
	if !ok {
		return
	}
	report, err := h.service.ComposeWithNarrative(r.Context(), shared.OwnerFromContext(r.Context()), params.studentID, params.asOf, params.start, params.end)
	if err != nil {
		h.logger.Error("compose parent report narrative", slog.Any("error", err), slog.Int64("student_id", params.studentID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

type reportParams struct {
	studentID int64
	asOf      time.Time
	start     *time.Time
	end       *time.Time
}

func (h *Handler) parseParams(w http.ResponseWriter, r *http.Request) (reportParams, bool) {
	studentID, err := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if err != nil || studentID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Path", "studentID must be a positive integer")
		return reportParams{}, false
	}
	asOf, ok := parseDateParam(w, r, "as_of")
	if !ok {
		return reportParams{}, false
	}
	start, ok := parseOptionalDateParam(w, r, "start_date")
	if !ok {
		return reportParams{}, false
	}
	end, ok := parseOptionalDateParam(w, r, "end_date")
	if !ok {
		return reportParams{}, false
	}
	return reportParams{studentID: studentID, asOf: asOf, start: start, end: end}, true
}

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

func parseOptionalDateParam(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	t, ok := parseDateParam(w, r, name)
	if !ok {
		return nil, false
	}
	if t.IsZero() {
		return nil, true
	}
	return &t, true
}
