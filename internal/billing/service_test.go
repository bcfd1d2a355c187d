package billing

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corebox-crm/corebox/internal/money"
	"github.com/corebox-crm/corebox/internal/rates"
	"github.com/corebox-crm/corebox/internal/shared"
)

type fakeRepo struct {
	sessions map[int64]*Session
	invoices map[int64]*Invoice
	items    map[int64][]InvoiceItem
	payments map[int64][]Payment
	nextID   int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		sessions: make(map[int64]*Session),
		invoices: make(map[int64]*Invoice),
		items:    make(map[int64][]InvoiceItem),
		payments: make(map[int64][]Payment),
	}
}

func (f *fakeRepo) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) CreateSession(_ context.Context, session Session) (*Session, error) {
	session.ID = f.id()
	f.sessions[session.ID] = &session
	copied := session
	return &copied, nil
}

func (f *fakeRepo) SaveSession(_ context.Context, session *Session) error {
	if _, ok := f.sessions[session.ID]; !ok {
		return fmt.Errorf("%w: session %d", shared.ErrNotFound, session.ID)
	}
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

func (f *fakeRepo) GetSession(_ context.Context, ownerID, sessionID int64) (*Session, error) {
	session, ok := f.sessions[sessionID]
	if !ok || session.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: session %d", shared.ErrNotFound, sessionID)
	}
	copied := *session
	return &copied, nil
}

func (f *fakeRepo) ListSessions(_ context.Context, ownerID int64, req ListSessionsRequest) ([]Session, error) {
	var out []Session
	for _, session := range f.sessions {
		if session.OwnerID != ownerID {
			continue
		}
		if req.StudentID > 0 && session.StudentID != req.StudentID {
			continue
		}
		out = append(out, *session)
	}
	return out, nil
}

func (f *fakeRepo) ListUnbilledSessions(_ context.Context, ownerID, studentID int64) ([]Session, error) {
	var out []Session
	for _, session := range f.sessions {
		if session.OwnerID != ownerID || session.StudentID != studentID {
			continue
		}
		if !session.IsBillable {
			continue
		}
		if session.BillingStatus != SessionNotApplicable && session.BillingStatus != SessionPending {
			continue
		}
		out = append(out, *session)
	}
	return out, nil
}

func (f *fakeRepo) CreateInvoiceWithItems(_ context.Context, invoice Invoice, items []InvoiceItem, costUpdates map[int64]money.Money) (*Invoice, error) {
	invoice.ID = f.id()
	f.invoices[invoice.ID] = &invoice
	for i := range items {
		items[i].ID = f.id()
		items[i].InvoiceID = invoice.ID
		session := f.sessions[items[i].SessionID]
		session.BillingStatus = SessionInvoiced
		if cost, ok := costUpdates[items[i].SessionID]; ok {
			session.CostTotal = &cost
		}
	}
	f.items[invoice.ID] = items
	copied := invoice
	return &copied, nil
}

func (f *fakeRepo) GetInvoice(_ context.Context, ownerID, invoiceID int64) (*Invoice, error) {
	invoice, ok := f.invoices[invoiceID]
	if !ok || invoice.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, invoiceID)
	}
	copied := *invoice
	return &copied, nil
}

func (f *fakeRepo) ListInvoices(_ context.Context, ownerID int64, req ListInvoicesRequest) ([]Invoice, error) {
	var out []Invoice
	for _, invoice := range f.invoices {
		if invoice.OwnerID != ownerID {
			continue
		}
		if req.Status != "" && invoice.Status != req.Status {
			continue
		}
		out = append(out, *invoice)
	}
	return out, nil
}

func (f *fakeRepo) ListInvoiceItems(_ context.Context, invoiceID int64) ([]InvoiceItem, error) {
	return f.items[invoiceID], nil
}

func (f *fakeRepo) UpdateInvoice(_ context.Context, invoice *Invoice) error {
	if _, ok := f.invoices[invoice.ID]; !ok {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, invoice.ID)
	}
	copied := *invoice
	f.invoices[invoice.ID] = &copied
	return nil
}

func (f *fakeRepo) CreatePaymentAndUpdateInvoice(_ context.Context, payment Payment, invoice *Invoice) (*Payment, error) {
	payment.ID = f.id()
	f.payments[invoice.ID] = append(f.payments[invoice.ID], payment)
	copied := *invoice
	f.invoices[invoice.ID] = &copied
	if invoice.Status == InvoicePaid {
		for _, item := range f.items[invoice.ID] {
			f.sessions[item.SessionID].BillingStatus = SessionPaid
		}
	}
	out := payment
	return &out, nil
}

func (f *fakeRepo) ListInvoicePayments(_ context.Context, invoiceID int64) ([]Payment, error) {
	return f.payments[invoiceID], nil
}

func (f *fakeRepo) ListPayments(_ context.Context, ownerID int64, req ListPaymentsRequest) ([]Payment, error) {
	var out []Payment
	for _, payments := range f.payments {
		for _, payment := range payments {
			if payment.OwnerID != ownerID {
				continue
			}
			if req.InvoiceID > 0 && payment.InvoiceID != req.InvoiceID {
				continue
			}
			out = append(out, payment)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListOverdueCandidates(_ context.Context, now time.Time) ([]Invoice, error) {
	var out []Invoice
	for _, invoice := range f.invoices {
		if invoice.Status != InvoiceUnpaid && invoice.Status != InvoiceOpen {
			continue
		}
		if !invoice.BalanceDue.IsPositive() {
			continue
		}
		if invoice.DueDate == nil || !invoice.DueDate.Before(now) {
			continue
		}
		out = append(out, *invoice)
	}
	return out, nil
}

type fakeStudents struct {
	known map[int64]bool
}

func (f *fakeStudents) StudentExists(_ context.Context, _, studentID int64) (bool, error) {
	return f.known[studentID], nil
}

type fakePolicies struct{}

func (fakePolicies) Policy(_ context.Context, ownerID int64) (*rates.RatePolicy, error) {
	policy := rates.DefaultPolicy(ownerID)
	return &policy, nil
}

type countingCache struct {
	bumps int
}

func (c *countingCache) Bump(context.Context) error {
	c.bumps++
	return nil
}

func newTestService(repo *fakeRepo) (*Service, *countingCache) {
	cache := &countingCache{}
	svc := NewService(repo, &fakeStudents{known: map[int64]bool{42: true}}, fakePolicies{}, cache)
	svc.WithNow(func() time.Time {
		return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	})
	return svc, cache
}

func seedSession(repo *fakeRepo, studentID int64, minutes int, rate string) *Session {
	r := money.MustParse(rate)
	session := &Session{
		ID:              repo.id(),
		OwnerID:         1,
		StudentID:       studentID,
		Subject:         "Math",
		DurationMinutes: minutes,
		SessionDate:     time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		RatePerHour:     &r,
		BillingStatus:   SessionPending,
		IsBillable:      true,
	}
	repo.sessions[session.ID] = session
	return session
}

func TestGenerateInvoiceFromSingleSession(t *testing.T) {
	repo := newFakeRepo()
	svc, cache := newTestService(repo)
	session := seedSession(repo, 42, 60, "80.00")

	invoice, err := svc.GenerateInvoice(context.Background(), 1, 42)
	require.NoError(t, err)

	require.Equal(t, InvoiceDraft, invoice.Status)
	require.Equal(t, "80.00", invoice.TotalAmount.String())
	require.Equal(t, "0.00", invoice.AmountPaid.String())
	require.Equal(t, "80.00", invoice.BalanceDue.String())

	require.Equal(t, SessionInvoiced, repo.sessions[session.ID].BillingStatus)
	require.NotNil(t, repo.sessions[session.ID].CostTotal)
	require.Equal(t, "80.00", repo.sessions[session.ID].CostTotal.String())

	items := repo.items[invoice.ID]
	require.Len(t, items, 1)
	require.Equal(t, "Session on 2024-03-10 - Math", items[0].Description)
	require.Equal(t, "80.00", items[0].CostTotal.String())

	require.Equal(t, 1, cache.bumps)
}

func TestGenerateInvoiceSkipsSessionsWithoutCost(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	seedSession(repo, 42, 60, "80.00")
	uncostable := seedSession(repo, 42, 45, "50.00")
	uncostable.RatePerHour = nil
	uncostable.CostTotal = nil

	invoice, err := svc.GenerateInvoice(context.Background(), 1, 42)
	require.NoError(t, err)

	require.Equal(t, "80.00", invoice.TotalAmount.String())
	require.Len(t, repo.items[invoice.ID], 1)
	require.Equal(t, SessionPending, repo.sessions[uncostable.ID].BillingStatus, "skipped session stays unbilled")
}

func TestGenerateInvoiceNothingToBill(t *testing.T) {
	repo := newFakeRepo()
	svc, cache := newTestService(repo)

	_, err := svc.GenerateInvoice(context.Background(), 1, 42)
	require.ErrorIs(t, err, shared.ErrNothingToBill)
	require.Empty(t, repo.invoices)
	require.Zero(t, cache.bumps)
}

func TestGenerateInvoiceUnknownStudent(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	_, err := svc.GenerateInvoice(context.Background(), 1, 99)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestApplyPaymentPartialThenPaid(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	session := seedSession(repo, 42, 60, "100.00")

	invoice, err := svc.GenerateInvoice(context.Background(), 1, 42)
	require.NoError(t, err)
	require.Equal(t, "100.00", invoice.TotalAmount.String())

	first, err := svc.ApplyPayment(context.Background(), 1, invoice.ID, ApplyPaymentInput{
		Amount: money.MustParse("40.00"),
		Method: "cash",
	})
	require.NoError(t, err)
	require.Equal(t, "40.00", first.Amount.String())

	updated := repo.invoices[invoice.ID]
	require.Equal(t, InvoicePartial, updated.Status)
	require.Equal(t, "40.00", updated.AmountPaid.String())
	require.Equal(t, "60.00", updated.BalanceDue.String())

	_, err = svc.ApplyPayment(context.Background(), 1, invoice.ID, ApplyPaymentInput{
		Amount: money.MustParse("60.00"),
		Method: "transfer",
	})
	require.NoError(t, err)

	updated = repo.invoices[invoice.ID]
	require.Equal(t, InvoicePaid, updated.Status)
	require.Equal(t, "100.00", updated.AmountPaid.String())
	require.Equal(t, "0.00", updated.BalanceDue.String())

	require.Equal(t, SessionPaid, repo.sessions[session.ID].BillingStatus)
}

func TestApplyPaymentTerminalInvoice(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	invoice := &Invoice{
		ID:          repo.id(),
		OwnerID:     1,
		StudentID:   42,
		Status:      InvoiceVoid,
		TotalAmount: money.MustParse("100.00"),
		BalanceDue:  money.MustParse("100.00"),
	}
	repo.invoices[invoice.ID] = invoice

	_, err := svc.ApplyPayment(context.Background(), 1, invoice.ID, ApplyPaymentInput{
		Amount: money.MustParse("10.00"),
	})
	require.ErrorIs(t, err, shared.ErrInvalidInvoiceState)
	require.Empty(t, repo.payments[invoice.ID])
}

func TestApplyPaymentInvoiceMismatch(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	seedSession(repo, 42, 60, "100.00")

	invoice, err := svc.GenerateInvoice(context.Background(), 1, 42)
	require.NoError(t, err)

	_, err = svc.ApplyPayment(context.Background(), 1, invoice.ID, ApplyPaymentInput{
		InvoiceID: invoice.ID + 1,
		Amount:    money.MustParse("10.00"),
	})
	require.ErrorIs(t, err, shared.ErrInvoiceMismatch)
}

func TestApplyPaymentRejectsNonPositiveAmount(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	seedSession(repo, 42, 60, "100.00")

	invoice, err := svc.GenerateInvoice(context.Background(), 1, 42)
	require.NoError(t, err)

	for _, amount := range []string{"0.00", "-5.00"} {
		_, err = svc.ApplyPayment(context.Background(), 1, invoice.ID, ApplyPaymentInput{
			Amount: money.MustParse(amount),
		})
		require.ErrorIs(t, err, shared.ErrValidation)
	}
}

func TestCreateSessionLegacyCostFromDefaultRate(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	session, err := svc.CreateSession(context.Background(), 1, CreateSessionInput{
		StudentID:       42,
		Subject:         "Physics",
		DurationMinutes: 90,
		SessionDate:     time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NotNil(t, session.RatePerHour)
	require.Equal(t, "60.00", session.RatePerHour.String())
	require.NotNil(t, session.CostTotal)
	require.Equal(t, "90.00", session.CostTotal.String())
}

func TestCreateSessionTieredPlan(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	session, err := svc.CreateSession(context.Background(), 1, CreateSessionInput{
		StudentID:       42,
		Subject:         "Chemistry",
		DurationMinutes: 45,
		SessionDate:     time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
		Plan:            rates.PlanDiscount,
	})
	require.NoError(t, err)

	require.NotNil(t, session.CostTotal)
	require.Equal(t, "45.00", session.CostTotal.String())
}

func TestCreateSessionTieredPlanUnsupportedDuration(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	_, err := svc.CreateSession(context.Background(), 1, CreateSessionInput{
		StudentID:       42,
		Subject:         "Chemistry",
		DurationMinutes: 50,
		SessionDate:     time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
		Plan:            rates.PlanRegular,
	})
	require.ErrorIs(t, err, shared.ErrUnsupportedDuration)
}

func TestUpdateSessionRecomputesCost(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)
	session := seedSession(repo, 42, 60, "80.00")

	minutes := 30
	updated, err := svc.UpdateSession(context.Background(), 1, session.ID, UpdateSessionInput{
		DurationMinutes: &minutes,
	})
	require.NoError(t, err)

	require.NotNil(t, updated.CostTotal)
	require.Equal(t, "40.00", updated.CostTotal.String())
}

func TestListInvoicesRejectsUnknownSortKey(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	_, err := svc.ListInvoices(context.Background(), 1, ListInvoicesRequest{SortBy: "balance; DROP TABLE invoices"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.ListInvoices(context.Background(), 1, ListInvoicesRequest{SortOrder: "sideways"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestListPaymentsRejectsUnknownSortKey(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	_, err := svc.ListPayments(context.Background(), 1, ListPaymentsRequest{SortBy: "notes"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSweepOverdue(t *testing.T) {
	repo := newFakeRepo()
	svc, cache := newTestService(repo)

	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -20)
	future := now.AddDate(0, 0, 10)

	overdueSoon := &Invoice{ID: repo.id(), OwnerID: 1, StudentID: 42, Status: InvoiceUnpaid,
		TotalAmount: money.MustParse("80.00"), BalanceDue: money.MustParse("80.00"), DueDate: &past}
	notYetDue := &Invoice{ID: repo.id(), OwnerID: 1, StudentID: 42, Status: InvoiceUnpaid,
		TotalAmount: money.MustParse("50.00"), BalanceDue: money.MustParse("50.00"), DueDate: &future}
	repo.invoices[overdueSoon.ID] = overdueSoon
	repo.invoices[notYetDue.ID] = notYetDue

	flipped, err := svc.SweepOverdue(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 1, flipped)

	require.Equal(t, InvoiceOverdue, repo.invoices[overdueSoon.ID].Status)
	require.Equal(t, InvoiceUnpaid, repo.invoices[notYetDue.ID].Status)
	require.Equal(t, 1, cache.bumps)
}

type failingCache struct{}

func (failingCache) Bump(context.Context) error {
	return fmt.Errorf("redis: connection refused")
}

func TestCacheBumpFailureDoesNotFailWrite(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeStudents{known: map[int64]bool{42: true}}, fakePolicies{}, failingCache{})
	svc.WithNow(func() time.Time {
		return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	})

	var buf bytes.Buffer
	svc.WithLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	seedSession(repo, 42, 60, "80.00")
	invoice, err := svc.GenerateInvoice(context.Background(), 1, 42)
	require.NoError(t, err)
	require.Equal(t, "80.00", invoice.TotalAmount.String())

	require.Contains(t, buf.String(), "analytics cache bump failed")
	require.Contains(t, buf.String(), "connection refused")
}
