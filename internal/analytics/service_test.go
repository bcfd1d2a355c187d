package analytics

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/corebox-crm/corebox/internal/billing"
	"github.com/corebox-crm/corebox/internal/money"
	"github.com/corebox-crm/corebox/internal/students"
)

type mockRepo struct {
	mu           sync.Mutex
	invoices     []billing.Invoice
	payments     []billing.Payment
	sessions     []billing.Session
	students     []students.Student
	invoiceCalls int
	paymentCalls int
	sessionCalls int
	studentCalls int
}

func (m *mockRepo) InvoicesByOwner(context.Context, int64) ([]billing.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoiceCalls++
	return m.invoices, nil
}

func (m *mockRepo) PaymentsByOwner(context.Context, int64) ([]billing.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paymentCalls++
	return m.payments, nil
}

func (m *mockRepo) SessionsByOwner(context.Context, int64) ([]billing.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionCalls++
	return m.sessions, nil
}

func (m *mockRepo) StudentsByOwner(context.Context, int64) ([]students.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.studentCalls++
	return m.students, nil
}

func newTestService(t *testing.T, repo Repository) (*Service, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	svc := NewService(repo, cache)
	return svc, func() {
		_ = client.Close()
		mr.Close()
	}
}

var asOf = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestAgingSummaryBuckets(t *testing.T) {
	repo := &mockRepo{
		invoices: []billing.Invoice{
			{ID: 1, StudentID: 7, Status: billing.InvoiceOverdue,
				BalanceDue: money.MustParse("80.00"), DueDate: datePtr(2024, 2, 24)},
			{ID: 2, StudentID: 7, Status: billing.InvoiceUnpaid,
				BalanceDue: money.MustParse("45.00"), DueDate: nil},
			{ID: 3, StudentID: 8, Status: billing.InvoiceOverdue,
				BalanceDue: money.MustParse("120.00"), DueDate: datePtr(2023, 12, 1)},
			{ID: 4, StudentID: 7, Status: billing.InvoicePaid,
				BalanceDue: money.Zero(), DueDate: datePtr(2024, 1, 1)},
		},
		students: []students.Student{
			{ID: 7, StudentName: "Ada"},
			{ID: 8, StudentName: "Grace"},
		},
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	summary, err := svc.GetAgingSummary(context.Background(), 1, asOf)
	require.NoError(t, err)

	require.Equal(t, "2024-03-15", summary.AsOf)
	// 20 days past due lands in the 1-30 bucket.
	require.Equal(t, "80.00", summary.Totals.Days1To30.String())
	// Missing due date counts as current.
	require.Equal(t, "45.00", summary.Totals.Current.String())
	require.Equal(t, "120.00", summary.Totals.Days90Plus.String())
	require.Equal(t, "0.00", summary.Totals.Days31To60.String())

	require.Len(t, summary.Students, 2)
	require.Equal(t, "Ada", summary.Students[0].StudentDisplayName)
	require.Equal(t, "80.00", summary.Students[0].Buckets.Days1To30.String())
	require.Equal(t, "120.00", summary.Students[1].Buckets.Days90Plus.String())
}

func TestAgingSummaryCaches(t *testing.T) {
	repo := &mockRepo{
		invoices: []billing.Invoice{
			{ID: 1, StudentID: 7, Status: billing.InvoiceUnpaid, BalanceDue: money.MustParse("10.00")},
		},
		students: []students.Student{{ID: 7, StudentName: "Ada"}},
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	_, err := svc.GetAgingSummary(context.Background(), 1, asOf)
	require.NoError(t, err)
	_, err = svc.GetAgingSummary(context.Background(), 1, asOf)
	require.NoError(t, err)
	require.Equal(t, 1, repo.invoiceCalls, "second read must come from cache")
}

func TestAgingSummaryCacheBumpInvalidates(t *testing.T) {
	repo := &mockRepo{
		invoices: []billing.Invoice{
			{ID: 1, StudentID: 7, Status: billing.InvoiceUnpaid, BalanceDue: money.MustParse("10.00")},
		},
		students: []students.Student{{ID: 7, StudentName: "Ada"}},
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	_, err := svc.GetAgingSummary(context.Background(), 1, asOf)
	require.NoError(t, err)
	require.NoError(t, svc.cache.Bump(context.Background()))
	_, err = svc.GetAgingSummary(context.Background(), 1, asOf)
	require.NoError(t, err)
	require.Equal(t, 2, repo.invoiceCalls, "bump must retire the cached report")
}

func TestPipelineSummary(t *testing.T) {
	repo := &mockRepo{
		invoices: []billing.Invoice{
			{ID: 1, Status: billing.InvoiceDraft,
				TotalAmount: money.MustParse("100.00"), BalanceDue: money.MustParse("100.00")},
			{ID: 2, Status: billing.InvoicePartial,
				TotalAmount: money.MustParse("200.00"), BalanceDue: money.MustParse("50.00"),
				DueDate: datePtr(2024, 3, 18)},
			{ID: 3, Status: billing.InvoiceVoid,
				TotalAmount: money.MustParse("500.00"), BalanceDue: money.MustParse("500.00")},
			{ID: 4, Status: billing.InvoiceOverdue,
				TotalAmount: money.MustParse("75.00"), BalanceDue: money.MustParse("75.00"),
				DueDate: datePtr(2024, 3, 1)},
		},
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	summary, err := svc.GetPipelineSummary(context.Background(), 1, asOf)
	require.NoError(t, err)

	// Void invoices stay out of the headline totals.
	require.Equal(t, "375.00", summary.Summary.TotalInvoiced.String())
	require.Equal(t, "225.00", summary.Summary.TotalOutstanding.String())
	require.Equal(t, 3, summary.Summary.InvoiceCount)

	require.Equal(t, 1, summary.Statuses.Draft.Count)
	require.Equal(t, 1, summary.Statuses.PartiallyPaid.Count)
	require.Equal(t, 1, summary.Statuses.Void.Count)
	// Overdue maps onto the issued reporting bucket.
	require.Equal(t, 1, summary.Statuses.Issued.Count)

	require.Equal(t, 1, summary.DueWindows.PastDue.Count)
	require.Equal(t, "75.00", summary.DueWindows.PastDue.TotalOutstanding.String())
	require.Equal(t, 1, summary.DueWindows.DueNext7Days.Count)
	require.Equal(t, "50.00", summary.DueWindows.DueNext7Days.TotalOutstanding.String())
}

func TestPaymentAnalyticsTrends(t *testing.T) {
	repo := &mockRepo{
		payments: []billing.Payment{
			{ID: 1, Amount: money.MustParse("40.00"), Method: "cash",
				CreatedAt: time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)},
			{ID: 2, Amount: money.MustParse("60.00"), Method: "transfer",
				CreatedAt: time.Date(2024, 2, 20, 10, 0, 0, 0, time.UTC)},
			{ID: 3, Amount: money.MustParse("25.00"),
				CreatedAt: time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)},
		},
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	report, err := svc.GetPaymentAnalytics(context.Background(), 1, asOf)
	require.NoError(t, err)

	require.Equal(t, "125.00", report.Summary.TotalPaidAllTime.String())
	require.Equal(t, 3, report.Summary.PaymentCountAllTime)
	require.Equal(t, "41.67", report.Summary.AveragePaymentAmountAllTime.String())
	require.Equal(t, "40.00", report.Summary.TotalPaidLast7Days.String())
	// The 30-day window opens on February 15 and catches both 2024 payments.
	require.Equal(t, "100.00", report.Summary.TotalPaidLast30Days.String())

	require.Len(t, report.WeeklyTrend, 8, "trend always spans eight weeks")
	require.Len(t, report.MonthlyTrend, 12, "trend always spans twelve months")

	last := report.WeeklyTrend[7]
	require.Equal(t, 2024, last.Year)
	require.Equal(t, 11, last.ISOWeek)
	require.Equal(t, "2024-03-11", last.StartDate)
	require.Equal(t, "2024-03-17", last.EndDate)
	require.Equal(t, "40.00", last.TotalPaid.String())
	require.Equal(t, 1, last.PaymentCount)

	require.Equal(t, 2024, report.MonthlyTrend[11].Year)
	require.Equal(t, 3, report.MonthlyTrend[11].Month)
	require.Equal(t, "60.00", report.MonthlyTrend[10].TotalPaid.String())

	// The old 2023 payment is outside both trends but still in methods.
	require.Len(t, report.Methods, 3)
	require.Equal(t, "cash", report.Methods[0].Method)
	require.Equal(t, "transfer", report.Methods[1].Method)
	require.Equal(t, "unspecified", report.Methods[2].Method)
	require.Equal(t, "25.00", report.Methods[2].TotalPaid.String())
}

func TestStudentAnalyticsConsistencyAndStreak(t *testing.T) {
	rate := money.MustParse("60.00")
	// Sessions in the three most recent ISO weeks.
	sessions := []billing.Session{
		{ID: 1, StudentID: 7, DurationMinutes: 60, RatePerHour: &rate,
			SessionDate: time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)},
		{ID: 2, StudentID: 7, DurationMinutes: 90, RatePerHour: &rate,
			SessionDate: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{ID: 3, StudentID: 7, DurationMinutes: 30, RatePerHour: &rate,
			SessionDate: time.Date(2024, 2, 27, 0, 0, 0, 0, time.UTC)},
	}
	repo := &mockRepo{
		sessions: sessions,
		students: []students.Student{{ID: 7, StudentName: "Ada", ParentName: "Marie"}},
		invoices: []billing.Invoice{
			{ID: 11, StudentID: 7, Status: billing.InvoicePartial,
				TotalAmount: money.MustParse("180.00"), BalanceDue: money.MustParse("140.00")},
		},
		payments: []billing.Payment{
			{ID: 21, InvoiceID: 11, Amount: money.MustParse("40.00"),
				CreatedAt: time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)},
		},
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	report, err := svc.GetStudentAnalytics(context.Background(), 1, asOf)
	require.NoError(t, err)
	require.Len(t, report.Students, 1)

	row := report.Students[0]
	require.Equal(t, "Ada", row.StudentDisplayName)
	require.Equal(t, "Marie", row.ParentDisplayName)

	kpis := row.KPIs
	require.Equal(t, 3, kpis.TotalSessions)
	require.Equal(t, "3.00", kpis.TotalHours.String())
	// Nominal invoiced total: one rate per session, not scaled by time.
	require.Equal(t, "180.00", kpis.TotalInvoiced.String())
	require.Equal(t, "40.00", kpis.TotalPaid.String())
	require.Equal(t, "140.00", kpis.TotalOutstanding.String())
	require.Equal(t, 3, kpis.SessionsLast8Weeks)
	require.Equal(t, "3.00", kpis.HoursLast8Weeks.String())
	// Three active weeks out of eight.
	require.Equal(t, 38, kpis.ConsistencyScore)
	require.Equal(t, 3, kpis.CurrentSessionStreakWeeks)
	require.Equal(t, "60.00", kpis.BillingVsUsageRatio.String())
	require.Equal(t, "2024-03-12", *kpis.LastSessionDate)
	require.Equal(t, "2024-02-27", *kpis.FirstSessionDate)

	require.Len(t, row.WeeklyActivity, 8)
	require.Equal(t, 1, row.WeeklyActivity[7].SessionCount)
	require.Equal(t, "1.00", row.WeeklyActivity[7].Hours.String())
	require.Equal(t, "1.50", row.WeeklyActivity[6].Hours.String())
}

func TestStudentAnalyticsNoStudents(t *testing.T) {
	repo := &mockRepo{}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	report, err := svc.GetStudentAnalytics(context.Background(), 1, asOf)
	require.NoError(t, err)
	require.Empty(t, report.Students)
	require.Zero(t, repo.sessionCalls, "no ledger reads when the directory is empty")
}

func TestStudentAnalyticsStreakBreaks(t *testing.T) {
	rate := money.MustParse("60.00")
	repo := &mockRepo{
		students: []students.Student{{ID: 7, StudentName: "Ada"}},
		sessions: []billing.Session{
			// Active two weeks ago, nothing since.
			{ID: 1, StudentID: 7, DurationMinutes: 60, RatePerHour: &rate,
				SessionDate: time.Date(2024, 2, 27, 0, 0, 0, 0, time.UTC)},
		},
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	report, err := svc.GetStudentAnalytics(context.Background(), 1, asOf)
	require.NoError(t, err)
	require.Equal(t, 0, report.Students[0].KPIs.CurrentSessionStreakWeeks)
	// 1 of 8 weeks is 12.5, rounded half to even.
	require.Equal(t, 12, report.Students[0].KPIs.ConsistencyScore)
}

func TestFinancialSummary(t *testing.T) {
	repo := &mockRepo{
		invoices: []billing.Invoice{
			{ID: 1, TotalAmount: money.MustParse("100.00"), BalanceDue: money.Zero(),
				CreatedAt: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)},
			{ID: 2, TotalAmount: money.MustParse("80.00"), BalanceDue: money.MustParse("30.00"),
				CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		},
		payments: []billing.Payment{
			{ID: 1, InvoiceID: 1, Amount: money.MustParse("100.00")},
			{ID: 2, InvoiceID: 2, Amount: money.MustParse("50.00")},
			{ID: 3, InvoiceID: 99, Amount: money.MustParse("10.00")},
		},
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	summary, err := svc.GetFinancialSummary(context.Background(), 1, time.Time{})
	require.NoError(t, err)
	require.Equal(t, "180.00", summary.TotalInvoiced.String())
	require.Equal(t, "150.00", summary.TotalPaid.String())
	require.Equal(t, "30.00", summary.TotalOutstanding.String())
	require.Equal(t, 2, summary.InvoiceCount)
	require.Equal(t, 1, summary.PaidInvoiceCount)
	require.Equal(t, 1, summary.UnpaidInvoiceCount)

	scoped, err := svc.GetFinancialSummary(context.Background(), 1, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "80.00", scoped.TotalInvoiced.String())
	require.Equal(t, "50.00", scoped.TotalPaid.String())
	require.Equal(t, 1, scoped.InvoiceCount)
}

func TestMonthlyRevenueNewestFirst(t *testing.T) {
	repo := &mockRepo{
		payments: []billing.Payment{
			{ID: 1, Amount: money.MustParse("40.00"), CreatedAt: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
			{ID: 2, Amount: money.MustParse("60.00"), CreatedAt: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
			{ID: 3, Amount: money.MustParse("15.00"), CreatedAt: time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)},
		},
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	points, err := svc.GetMonthlyRevenue(context.Background(), 1, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, points, 2)
	require.Equal(t, 3, points[0].Month)
	require.Equal(t, "75.00", points[0].TotalRevenue.String())
	require.Equal(t, 1, points[1].Month)
	require.Equal(t, "40.00", points[1].TotalRevenue.String())
}

func TestDashboardComposition(t *testing.T) {
	repo := &mockRepo{
		invoices: []billing.Invoice{
			{ID: 1, StudentID: 7, Status: billing.InvoiceUnpaid,
				TotalAmount: money.MustParse("80.00"), BalanceDue: money.MustParse("80.00"),
				CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		},
		payments: []billing.Payment{
			{ID: 1, InvoiceID: 1, Amount: money.MustParse("20.00"),
				CreatedAt: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		},
		sessions: []billing.Session{
			{ID: 1, StudentID: 7, DurationMinutes: 60,
				SessionDate: time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)},
		},
		students: []students.Student{{ID: 7, StudentName: "Ada"}},
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	dashboard, err := svc.GetDashboard(context.Background(), 1, asOf)
	require.NoError(t, err)

	require.Equal(t, "2024-03-15", dashboard.AsOf)
	require.Equal(t, "80.00", dashboard.Financial.TotalInvoicedAllTime.String())
	require.Equal(t, "20.00", dashboard.Financial.TotalPaidAllTime.String())
	require.Equal(t, "20.00", dashboard.Financial.TotalPaidLast30Days.String())
	require.Equal(t, 1, dashboard.Activity.TotalSessionsAllTime)
	require.Equal(t, "1.00", dashboard.Activity.TotalHoursAllTime.String())
	require.Equal(t, 1, dashboard.Activity.SessionsLast30Days)
	require.Equal(t, "80.00", dashboard.AR.Current.String())
	require.Equal(t, 1, dashboard.Pipeline.IssuedCount)
}
