package billing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/corebox-crm/corebox/internal/money"
	"github.com/corebox-crm/corebox/internal/observability"
	"github.com/corebox-crm/corebox/internal/platform/httpx"
	"github.com/corebox-crm/corebox/internal/rates"
	"github.com/corebox-crm/corebox/internal/shared"
)

// Handler manages billing endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	metrics *observability.Metrics
}

// NewHandler builds a Handler instance. metrics may be nil.
func NewHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics) *Handler {
	return &Handler{logger: logger, service: service, metrics: metrics}
}

// MountRoutes registers billing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sessions", h.createSession)
	r.Get("/sessions", h.listSessions)
	r.Get("/sessions/{id}", h.getSession)
	r.Patch("/sessions/{id}", h.updateSession)

	r.Get("/invoices", h.listInvoices)
	r.Get("/invoices/{id}", h.getInvoice)
	r.Patch("/invoices/{id}", h.updateInvoice)
	r.Post("/invoices/{id}/payments", h.applyPayment)
	r.Post("/students/{studentID}/invoices", h.generateInvoice)

	r.Get("/payments", h.listPayments)
}

type sessionPayload struct {
	ID              int64                `json:"id"`
	StudentID       int64                `json:"student_id"`
	Subject         string               `json:"subject"`
	DurationMinutes int                  `json:"duration_minutes"`
	SessionDate     time.Time            `json:"session_date"`
	Notes           string               `json:"notes,omitempty"`
	RatePerHour     *money.Money         `json:"rate_per_hour,omitempty"`
	CostTotal       *money.Money         `json:"cost_total,omitempty"`
	BillingStatus   SessionBillingStatus `json:"billing_status"`
	IsBillable      bool                 `json:"is_billable"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

type invoicePayload struct {
	ID          int64         `json:"id"`
	OwnerID     int64         `json:"owner_id"`
	StudentID   int64         `json:"student_id"`
	Status      InvoiceStatus `json:"status"`
	TotalAmount money.Money   `json:"total_amount"`
	AmountPaid  money.Money   `json:"amount_paid"`
	BalanceDue  money.Money   `json:"balance_due"`
	DueDate     *time.Time    `json:"due_date,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type invoiceItemPayload struct {
	ID              int64        `json:"id"`
	SessionID       int64        `json:"session_id"`
	Description     string       `json:"description"`
	RatePerHour     *money.Money `json:"rate_per_hour,omitempty"`
	DurationMinutes int          `json:"duration_minutes"`
	CostTotal       money.Money  `json:"cost_total"`
}

type paymentPayload struct {
	ID         int64       `json:"id"`
	InvoiceID  int64       `json:"invoice_id"`
	Amount     money.Money `json:"amount"`
	Method     string      `json:"method,omitempty"`
	Notes      string      `json:"notes,omitempty"`
	ReceivedAt time.Time   `json:"received_at"`
	CreatedAt  time.Time   `json:"created_at"`
}

type invoiceDetailPayload struct {
	invoicePayload
	Items    []invoiceItemPayload `json:"items"`
	Payments []paymentPayload     `json:"payments"`
}

type createSessionPayload struct {
	StudentID       int64                `json:"student_id"`
	Subject         string               `json:"subject"`
	DurationMinutes int                  `json:"duration_minutes"`
	SessionDate     time.Time            `json:"session_date"`
	Notes           string               `json:"notes"`
	RatePerHour     *money.Money         `json:"rate_per_hour"`
	Plan            rates.Plan           `json:"plan"`
	BillingStatus   SessionBillingStatus `json:"billing_status"`
	IsBillable      *bool                `json:"is_billable"`
}

type updateSessionPayload struct {
	Subject         *string               `json:"subject"`
	DurationMinutes *int                  `json:"duration_minutes"`
	SessionDate     *time.Time            `json:"session_date"`
	Notes           *string               `json:"notes"`
	RatePerHour     *money.Money          `json:"rate_per_hour"`
	BillingStatus   *SessionBillingStatus `json:"billing_status"`
	IsBillable      *bool                 `json:"is_billable"`
}

type updateInvoicePayload struct {
	Status  *InvoiceStatus `json:"status"`
	DueDate *time.Time     `json:"due_date"`
}

type applyPaymentPayload struct {
	InvoiceID  int64       `json:"invoice_id"`
	Amount     money.Money `json:"amount"`
	Method     string      `json:"method"`
	Notes      string      `json:"notes"`
	ReceivedAt *time.Time  `json:"received_at"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())

	var payload createSessionPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}

	session, err := h.service.CreateSession(r.Context(), ownerID, CreateSessionInput{
		StudentID:       payload.StudentID,
		Subject:         payload.Subject,
		DurationMinutes: payload.DurationMinutes,
		SessionDate:     payload.SessionDate,
		Notes:           payload.Notes,
		RatePerHour:     payload.RatePerHour,
		Plan:            payload.Plan,
		BillingStatus:   payload.BillingStatus,
		IsBillable:      payload.IsBillable,
	})
	if err != nil {
		h.logger.Error("create session", slog.Any("error", err), slog.Int64("owner_id", ownerID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sessionToPayload(session))
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	sessionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	session, err := h.service.GetSession(r.Context(), ownerID, sessionID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sessionToPayload(session))
}

func (h *Handler) updateSession(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	sessionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var payload updateSessionPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}

	session, err := h.service.UpdateSession(r.Context(), ownerID, sessionID, UpdateSessionInput{
		Subject:         payload.Subject,
		DurationMinutes: payload.DurationMinutes,
		SessionDate:     payload.SessionDate,
		Notes:           payload.Notes,
		RatePerHour:     payload.RatePerHour,
		BillingStatus:   payload.BillingStatus,
		IsBillable:      payload.IsBillable,
	})
	if err != nil {
		h.logger.Error("update session", slog.Any("error", err), slog.Int64("owner_id", ownerID), slog.Int64("session_id", sessionID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sessionToPayload(session))
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	q := r.URL.Query()

	sessions, err := h.service.ListSessions(r.Context(), ownerID, ListSessionsRequest{
		StudentID: queryInt64(q.Get("student_id")),
		Limit:     queryInt(q.Get("limit")),
		Offset:    queryInt(q.Get("offset")),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	out := make([]sessionPayload, 0, len(sessions))
	for i := range sessions {
		out = append(out, sessionToPayload(&sessions[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) generateInvoice(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	studentID, ok := pathID(w, r, "studentID")
	if !ok {
		return
	}

	invoice, err := h.service.GenerateInvoice(r.Context(), ownerID, studentID)
	if err != nil {
		h.logger.Error("generate invoice", slog.Any("error", err), slog.Int64("owner_id", ownerID), slog.Int64("student_id", studentID))
		httpx.RespondError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.InvoicesGenerated.Inc()
	}
	httpx.JSON(w, http.StatusCreated, invoiceToPayload(invoice))
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	invoiceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.service.GetInvoice(r.Context(), ownerID, invoiceID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	out := invoiceDetailPayload{invoicePayload: invoiceToPayload(&detail.Invoice)}
	out.Items = make([]invoiceItemPayload, 0, len(detail.Items))
	for _, item := range detail.Items {
		out.Items = append(out.Items, invoiceItemPayload{
			ID:              item.ID,
			SessionID:       item.SessionID,
			Description:     item.Description,
			RatePerHour:     item.RatePerHour,
			DurationMinutes: item.DurationMinutes,
			CostTotal:       item.CostTotal,
		})
	}
	out.Payments = make([]paymentPayload, 0, len(detail.Payments))
	for i := range detail.Payments {
		out.Payments = append(out.Payments, paymentToPayload(&detail.Payments[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	q := r.URL.Query()

	invoices, err := h.service.ListInvoices(r.Context(), ownerID, ListInvoicesRequest{
		Status:    InvoiceStatus(q.Get("status")),
		StudentID: queryInt64(q.Get("student_id")),
		FromDate:  queryTime(q.Get("from")),
		ToDate:    queryTime(q.Get("to")),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
		Limit:     queryInt(q.Get("limit")),
		Offset:    queryInt(q.Get("offset")),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	out := make([]invoicePayload, 0, len(invoices))
	for i := range invoices {
		out = append(out, invoiceToPayload(&invoices[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	invoiceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var payload updateInvoicePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}

	invoice, err := h.service.UpdateInvoice(r.Context(), ownerID, invoiceID, UpdateInvoiceInput{
		Status:  payload.Status,
		DueDate: payload.DueDate,
	})
	if err != nil {
		h.logger.Error("update invoice", slog.Any("error", err), slog.Int64("owner_id", ownerID), slog.Int64("invoice_id", invoiceID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoiceToPayload(invoice))
}

func (h *Handler) applyPayment(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	invoiceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var payload applyPaymentPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}

	payment, err := h.service.ApplyPayment(r.Context(), ownerID, invoiceID, ApplyPaymentInput{
		InvoiceID:  payload.InvoiceID,
		Amount:     payload.Amount,
		Method:     payload.Method,
		Notes:      payload.Notes,
		ReceivedAt: payload.ReceivedAt,
	})
	if err != nil {
		h.logger.Error("apply payment", slog.Any("error", err), slog.Int64("owner_id", ownerID), slog.Int64("invoice_id", invoiceID))
		httpx.RespondError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.PaymentsRecorded.Inc()
	}
	httpx.JSON(w, http.StatusCreated, paymentToPayload(payment))
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	q := r.URL.Query()

	req := ListPaymentsRequest{
		InvoiceID: queryInt64(q.Get("invoice_id")),
		Method:    q.Get("method"),
		FromDate:  queryTime(q.Get("from")),
		ToDate:    queryTime(q.Get("to")),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
		Limit:     queryInt(q.Get("limit")),
		Offset:    queryInt(q.Get("offset")),
	}
	if raw := q.Get("min_amount"); raw != "" {
		amount, err := money.FromString(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "min_amount must be a decimal amount")
			return
		}
		req.MinAmount = &amount
	}
	if raw := q.Get("max_amount"); raw != "" {
		amount, err := money.FromString(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Query", "max_amount must be a decimal amount")
			return
		}
		req.MaxAmount = &amount
	}

	payments, err := h.service.ListPayments(r.Context(), ownerID, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	out := make([]paymentPayload, 0, len(payments))
	for i := range payments {
		out = append(out, paymentToPayload(&payments[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func sessionToPayload(s *Session) sessionPayload {
	return sessionPayload{
		ID:              s.ID,
		StudentID:       s.StudentID,
		Subject:         s.Subject,
		DurationMinutes: s.DurationMinutes,
		SessionDate:     s.SessionDate,
		Notes:           s.Notes,
		RatePerHour:     s.RatePerHour,
		CostTotal:       s.CostTotal,
		BillingStatus:   s.BillingStatus,
		IsBillable:      s.IsBillable,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func invoiceToPayload(inv *Invoice) invoicePayload {
	return invoicePayload{
		ID:          inv.ID,
		OwnerID:     inv.OwnerID,
		StudentID:   inv.StudentID,
		Status:      inv.Status,
		TotalAmount: inv.TotalAmount,
		AmountPaid:  inv.AmountPaid,
		BalanceDue:  inv.BalanceDue,
		DueDate:     inv.DueDate,
		CreatedAt:   inv.CreatedAt,
		UpdatedAt:   inv.UpdatedAt,
	}
}

func paymentToPayload(p *Payment) paymentPayload {
	return paymentPayload{
		ID:         p.ID,
		InvoiceID:  p.InvoiceID,
		Amount:     p.Amount,
		Method:     p.Method,
		Notes:      p.Notes,
		ReceivedAt: p.ReceivedAt,
		CreatedAt:  p.CreatedAt,
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Path", name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func queryInt64(raw string) int64 {
	v, _ := strconv.ParseInt(raw, 10, 64)
	return v
}

func queryInt(raw string) int {
	v, _ := strconv.Atoi(raw)
	return v
}

func queryTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t
	}
	return time.Time{}
}
