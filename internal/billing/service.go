package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/corebox-crm/corebox/internal/money"
	"github.com/corebox-crm/corebox/internal/rates"
	"github.com/corebox-crm/corebox/internal/shared"
)

// RepositoryPort defines data access methods for the billing ledger.
type RepositoryPort interface {
	CreateSession(ctx context.Context, session Session) (*Session, error)
	SaveSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, ownerID, sessionID int64) (*Session, error)
	ListSessions(ctx context.Context, ownerID int64, req ListSessionsRequest) ([]Session, error)
	ListUnbilledSessions(ctx context.Context, ownerID, studentID int64) ([]Session, error)

	// CreateInvoiceWithItems persists the invoice, its line items, and the
	// session status flips in one transaction.
	CreateInvoiceWithItems(ctx context.Context, invoice Invoice, items []InvoiceItem, costUpdates map[int64]money.Money) (*Invoice, error)
	GetInvoice(ctx context.Context, ownerID, invoiceID int64) (*Invoice, error)
	ListInvoices(ctx context.Context, ownerID int64, req ListInvoicesRequest) ([]Invoice, error)
	ListInvoiceItems(ctx context.Context, invoiceID int64) ([]InvoiceItem, error)
	UpdateInvoice(ctx context.Context, invoice *Invoice) error

	// CreatePaymentAndUpdateInvoice persists the payment row and the
	// recomputed invoice totals/status in one transaction.
	CreatePaymentAndUpdateInvoice(ctx context.Context, payment Payment, invoice *Invoice) (*Payment, error)
	ListInvoicePayments(ctx context.Context, invoiceID int64) ([]Payment, error)
	ListPayments(ctx context.Context, ownerID int64, req ListPaymentsRequest) ([]Payment, error)

	ListOverdueCandidates(ctx context.Context, now time.Time) ([]Invoice, error)
}

// StudentDirectory verifies student ownership.
type StudentDirectory interface {
	StudentExists(ctx context.Context, ownerID, studentID int64) (bool, error)
}

// PolicyProvider supplies the owner's rate policy. *rates.Service
// satisfies it.
type PolicyProvider interface {
	Policy(ctx context.Context, ownerID int64) (*rates.RatePolicy, error)
}

// CacheInvalidator bumps derived-aggregate caches after ledger writes.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service handles billing business logic.
type Service struct {
	repo     RepositoryPort
	students StudentDirectory
	policies PolicyProvider
	cache    CacheInvalidator
	log      *slog.Logger
	now      func() time.Time
}

// NewService builds a Service instance. cache may be nil.
func NewService(repo RepositoryPort, students StudentDirectory, policies PolicyProvider, cache CacheInvalidator) *Service {
	return &Service{repo: repo, students: students, policies: policies, cache: cache, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// WithLogger attaches a logger for non-fatal warnings.
func (s *Service) WithLogger(logger *slog.Logger) {
	s.log = logger
}

func (s *Service) logger() *slog.Logger {
	if s.log != nil {
		return s.log
	}
	return slog.Default()
}

// InvoiceDetail bundles an invoice with its lines and payments.
type InvoiceDetail struct {
	Invoice  Invoice
	Items    []InvoiceItem
	Payments []Payment
}

// CreateSession records a tutoring session on the ledger, pricing it from
// the tier grid when a plan is requested and from the legacy hourly formula
// otherwise.
func (s *Service) CreateSession(ctx context.Context, ownerID int64, input CreateSessionInput) (*Session, error) {
	if input.StudentID == 0 {
		return nil, fmt.Errorf("%w: student id required", shared.ErrValidation)
	}
	if input.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", shared.ErrValidation)
	}
	if err := s.ensureStudent(ctx, ownerID, input.StudentID); err != nil {
		return nil, err
	}

	session := Session{
		OwnerID:         ownerID,
		StudentID:       input.StudentID,
		Subject:         input.Subject,
		DurationMinutes: input.DurationMinutes,
		SessionDate:     input.SessionDate,
		Notes:           input.Notes,
		RatePerHour:     input.RatePerHour,
		BillingStatus:   SessionNotApplicable,
		IsBillable:      true,
	}
	if input.BillingStatus != "" {
		session.BillingStatus = input.BillingStatus
	}
	if input.IsBillable != nil {
		session.IsBillable = *input.IsBillable
	}

	if input.Plan != "" {
		policy, err := s.policies.Policy(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		tier, err := rates.Resolve(policy, input.Plan, input.DurationMinutes)
		if err != nil {
			return nil, err
		}
		session.CostTotal = &tier
		if session.RatePerHour == nil {
			// The tier amount is the session price; record it as the
			// nominal rate as well.
			session.RatePerHour = &tier
		}
	} else {
		if session.RatePerHour == nil {
			policy, err := s.policies.Policy(ctx, ownerID)
			if err != nil {
				return nil, err
			}
			rate := policy.HourlyRate
			session.RatePerHour = &rate
		}
		if cost, ok := rates.LegacyCost(session.DurationMinutes, *session.RatePerHour); ok {
			session.CostTotal = &cost
		}
	}

	return s.repo.CreateSession(ctx, session)
}

// UpdateSession applies partial edits and recomputes the session cost from
// the legacy formula.
func (s *Service) UpdateSession(ctx context.Context, ownerID, sessionID int64, input UpdateSessionInput) (*Session, error) {
	session, err := s.repo.GetSession(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}

	if input.Subject != nil {
		session.Subject = *input.Subject
	}
	if input.DurationMinutes != nil {
		if *input.DurationMinutes <= 0 {
			return nil, fmt.Errorf("%w: duration must be positive", shared.ErrValidation)
		}
		session.DurationMinutes = *input.DurationMinutes
	}
	if input.SessionDate != nil {
		session.SessionDate = *input.SessionDate
	}
	if input.Notes != nil {
		session.Notes = *input.Notes
	}
	if input.RatePerHour != nil {
		session.RatePerHour = input.RatePerHour
	}
	if input.BillingStatus != nil {
		session.BillingStatus = *input.BillingStatus
	}
	if input.IsBillable != nil {
		session.IsBillable = *input.IsBillable
	}

	session.CostTotal = nil
	if session.RatePerHour != nil {
		if cost, ok := rates.LegacyCost(session.DurationMinutes, *session.RatePerHour); ok {
			session.CostTotal = &cost
		}
	}

	if err := s.repo.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession returns an owned session.
func (s *Service) GetSession(ctx context.Context, ownerID, sessionID int64) (*Session, error) {
	return s.repo.GetSession(ctx, ownerID, sessionID)
}

// ListSessions returns the owner's sessions, optionally scoped to one
// student.
func (s *Service) ListSessions(ctx context.Context, ownerID int64, req ListSessionsRequest) ([]Session, error) {
	if req.StudentID != 0 {
		if err := s.ensureStudent(ctx, ownerID, req.StudentID); err != nil {
			return nil, err
		}
	}
	return s.repo.ListSessions(ctx, ownerID, req)
}

// GenerateInvoice groups the student's unbilled billable sessions into a
// new draft invoice. Sessions without a computable cost are skipped and
// remain unbilled. The invoice, its line items, and the session status
// flips persist atomically.
func (s *Service) GenerateInvoice(ctx context.Context, ownerID, studentID int64) (*Invoice, error) {
	if err := s.ensureStudent(ctx, ownerID, studentID); err != nil {
		return nil, err
	}

	sessions, err := s.repo.ListUnbilledSessions(ctx, ownerID, studentID)
	if err != nil {
		return nil, err
	}

	var items []InvoiceItem
	costUpdates := make(map[int64]money.Money)
	for _, session := range sessions {
		cost := session.CostTotal
		if cost == nil && session.RatePerHour != nil {
			if computed, ok := rates.LegacyCost(session.DurationMinutes, *session.RatePerHour); ok {
				cost = &computed
				costUpdates[session.ID] = computed
			}
		}
		if cost == nil {
			continue
		}
		items = append(items, InvoiceItem{
			SessionID:       session.ID,
			StudentID:       session.StudentID,
			OwnerID:         ownerID,
			Description:     fmt.Sprintf("Session on %s - %s", session.SessionDate.Format("2006-01-02"), session.Subject),
			RatePerHour:     session.RatePerHour,
			DurationMinutes: session.DurationMinutes,
			CostTotal:       *cost,
		})
	}

	if len(items) == 0 {
		return nil, shared.ErrNothingToBill
	}

	total := money.Zero()
	for _, item := range items {
		total = total.Add(item.CostTotal)
	}
	total = total.Round()

	invoice := Invoice{
		OwnerID:     ownerID,
		StudentID:   studentID,
		Status:      InvoiceDraft,
		TotalAmount: total,
		AmountPaid:  money.Zero(),
		BalanceDue:  total,
	}

	created, err := s.repo.CreateInvoiceWithItems(ctx, invoice, items, costUpdates)
	if err != nil {
		return nil, err
	}
	s.bumpCache(ctx)
	return created, nil
}

// GetInvoice returns an owned invoice with its lines and payments.
func (s *Service) GetInvoice(ctx context.Context, ownerID, invoiceID int64) (*InvoiceDetail, error) {
	invoice, err := s.repo.GetInvoice(ctx, ownerID, invoiceID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListInvoiceItems(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListInvoicePayments(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}
	return &InvoiceDetail{Invoice: *invoice, Items: items, Payments: payments}, nil
}

var invoiceSortFields = map[string]struct{}{
	"created_at":   {},
	"due_date":     {},
	"total_amount": {},
	"balance_due":  {},
	"id":           {},
}

// ListInvoices returns the owner's invoices after validating sort inputs.
func (s *Service) ListInvoices(ctx context.Context, ownerID int64, req ListInvoicesRequest) ([]Invoice, error) {
	if req.SortBy == "" {
		req.SortBy = "created_at"
	}
	if _, ok := invoiceSortFields[req.SortBy]; !ok {
		return nil, fmt.Errorf("%w: invalid sort_by %q", shared.ErrValidation, req.SortBy)
	}
	if err := normalizeSortOrder(&req.SortOrder); err != nil {
		return nil, err
	}
	if req.Status != "" && !req.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", shared.ErrValidation, req.Status)
	}
	return s.repo.ListInvoices(ctx, ownerID, req)
}

// UpdateInvoice applies direct status/due-date edits. Status determination
// runs on payment application and in the overdue sweep; a direct edit is an
// explicit override.
func (s *Service) UpdateInvoice(ctx context.Context, ownerID, invoiceID int64, input UpdateInvoiceInput) (*Invoice, error) {
	invoice, err := s.repo.GetInvoice(ctx, ownerID, invoiceID)
	if err != nil {
		return nil, err
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, fmt.Errorf("%w: invalid status %q", shared.ErrValidation, *input.Status)
		}
		invoice.Status = *input.Status
	}
	if input.DueDate != nil {
		invoice.DueDate = input.DueDate
	}
	if err := s.repo.UpdateInvoice(ctx, invoice); err != nil {
		return nil, err
	}
	s.bumpCache(ctx)
	return invoice, nil
}

// ApplyPayment records a payment and recomputes the invoice's totals and
// status. All preconditions are checked before any write.
func (s *Service) ApplyPayment(ctx context.Context, ownerID, invoiceID int64, input ApplyPaymentInput) (*Payment, error) {
	invoice, err := s.repo.GetInvoice(ctx, ownerID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status.Terminal() {
		return nil, fmt.Errorf("%w: cannot apply payment to a %s invoice", shared.ErrInvalidInvoiceState, invoice.Status)
	}
	if input.InvoiceID != 0 && input.InvoiceID != invoice.ID {
		return nil, fmt.Errorf("%w: payload references invoice %d", shared.ErrInvoiceMismatch, input.InvoiceID)
	}
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", shared.ErrValidation)
	}

	existing, err := s.repo.ListInvoicePayments(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	receivedAt := now
	if input.ReceivedAt != nil {
		receivedAt = *input.ReceivedAt
	}
	payment := Payment{
		OwnerID:    ownerID,
		InvoiceID:  invoice.ID,
		Amount:     input.Amount.Round(),
		Method:     input.Method,
		Notes:      input.Notes,
		ReceivedAt: receivedAt,
	}

	all := append(append([]Payment(nil), existing...), payment)
	invoice.AmountPaid, invoice.BalanceDue = RecalculateTotals(invoice.TotalAmount, all)
	invoice.Status = DetermineStatus(invoice.Status, invoice.AmountPaid, invoice.BalanceDue, invoice.DueDate, now)

	created, err := s.repo.CreatePaymentAndUpdateInvoice(ctx, payment, invoice)
	if err != nil {
		return nil, err
	}
	s.bumpCache(ctx)
	return created, nil
}

var paymentSortFields = map[string]struct{}{
	"received_at": {},
	"amount":      {},
	"id":          {},
}

// ListPayments returns the owner's payments after validating sort inputs.
func (s *Service) ListPayments(ctx context.Context, ownerID int64, req ListPaymentsRequest) ([]Payment, error) {
	if req.SortBy == "" {
		req.SortBy = "received_at"
	}
	if _, ok := paymentSortFields[req.SortBy]; !ok {
		return nil, fmt.Errorf("%w: invalid sort_by %q", shared.ErrValidation, req.SortBy)
	}
	if err := normalizeSortOrder(&req.SortOrder); err != nil {
		return nil, err
	}
	if req.MinAmount != nil && req.MinAmount.IsNegative() {
		return nil, fmt.Errorf("%w: min_amount must not be negative", shared.ErrValidation)
	}
	return s.repo.ListPayments(ctx, ownerID, req)
}

// SweepOverdue re-runs status determination for unpaid/open invoices whose
// due date has passed, returning how many transitioned. The ledger writes
// the derived status so list views stay converged between payments.
func (s *Service) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	candidates, err := s.repo.ListOverdueCandidates(ctx, now)
	if err != nil {
		return 0, err
	}
	flipped := 0
	for i := range candidates {
		invoice := candidates[i]
		next := DetermineStatus(invoice.Status, invoice.AmountPaid, invoice.BalanceDue, invoice.DueDate, now)
		if next == invoice.Status {
			continue
		}
		invoice.Status = next
		if err := s.repo.UpdateInvoice(ctx, &invoice); err != nil {
			return flipped, err
		}
		flipped++
	}
	if flipped > 0 {
		s.bumpCache(ctx)
	}
	return flipped, nil
}

func (s *Service) ensureStudent(ctx context.Context, ownerID, studentID int64) error {
	ok, err := s.students.StudentExists(ctx, ownerID, studentID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: student %d", shared.ErrNotFound, studentID)
	}
	return nil
}

// bumpCache invalidates derived analytics after a ledger write. The write
// already committed, so a bump failure only delays cache refresh and is
// logged rather than returned.
func (s *Service) bumpCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger().Warn("analytics cache bump failed", slog.Any("error", err))
	}
}

func normalizeSortOrder(order *string) error {
	switch *order {
	case "":
		*order = "desc"
	case "asc", "desc":
	default:
		return fmt.Errorf("%w: invalid sort_order %q", shared.ErrValidation, *order)
	}
	return nil
}
