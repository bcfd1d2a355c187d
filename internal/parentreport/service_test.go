package parentreport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corebox-crm/corebox/internal/analytics"
	"github.com/corebox-crm/corebox/internal/billing"
	"github.com/corebox-crm/corebox/internal/money"
	"github.com/corebox-crm/corebox/internal/shared"
	"github.com/corebox-crm/corebox/internal/students"
)

type fakeStudents struct {
	student *students.Student
}

func (f *fakeStudents) Get(_ context.Context, _, studentID int64) (*students.Student, error) {
	if f.student == nil || f.student.ID != studentID {
		return nil, shared.ErrNotFound
	}
	return f.student, nil
}

type fakeAnalytics struct {
	report analytics.StudentAnalytics
}

func (f *fakeAnalytics) GetStudentAnalytics(context.Context, int64, time.Time) (analytics.StudentAnalytics, error) {
	return f.report, nil
}

type fakeSessions struct {
	sessions []billing.Session
	calls    int
}

func (f *fakeSessions) ListSessions(_ context.Context, _ int64, req billing.ListSessionsRequest) ([]billing.Session, error) {
	f.calls++
	out := make([]billing.Session, 0, len(f.sessions))
	for _, session := range f.sessions {
		if req.StudentID != 0 && session.StudentID != req.StudentID {
			continue
		}
		out = append(out, session)
	}
	return out, nil
}

var asOf = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func adaKPIs() analytics.StudentKPIs {
	return analytics.StudentKPIs{
		TotalSessions:             4,
		TotalHours:                money.MustParse("4.00"),
		TotalInvoiced:             money.MustParse("240.00"),
		TotalPaid:                 money.MustParse("100.00"),
		TotalOutstanding:          money.MustParse("140.00"),
		LastSessionDate:           strPtr("2024-03-12"),
		FirstSessionDate:          strPtr("2024-02-20"),
		SessionsLast8Weeks:        4,
		HoursLast8Weeks:           money.MustParse("4.00"),
		ConsistencyScore:          88,
		CurrentSessionStreakWeeks: 4,
		BillingVsUsageRatio:       money.MustParse("60.00"),
	}
}

func newTestService(sessions []billing.Session, kpis analytics.StudentKPIs) (*Service, *fakeSessions) {
	sessionSource := &fakeSessions{sessions: sessions}
	svc := NewService(
		&fakeStudents{student: &students.Student{ID: 7, StudentName: "Ada", ParentName: "Marie"}},
		&fakeAnalytics{report: analytics.StudentAnalytics{
			AsOf: "2024-03-15",
			Students: []analytics.StudentAnalyticsRow{{
				StudentID:          7,
				StudentDisplayName: "Ada",
				ParentDisplayName:  "Marie",
				KPIs:               kpis,
				WeeklyActivity:     make([]analytics.WeeklyActivityPoint, 8),
			}},
		}},
		sessionSource,
	)
	svc.WithNow(func() time.Time { return asOf })
	return svc, sessionSource
}

func TestComposeAllTimeFallback(t *testing.T) {
	svc, sessionSource := newTestService(nil, adaKPIs())

	report, err := svc.Compose(context.Background(), 1, 7, asOf, nil, nil)
	require.NoError(t, err)

	require.Equal(t, "2024-03-15", report.AsOf)
	require.Nil(t, report.Period.StartDate)
	require.Nil(t, report.Period.EndDate)
	require.Equal(t, "Ada", report.Student.DisplayName)
	require.Equal(t, "Marie", report.Student.ParentDisplayName)
	require.Nil(t, report.Student.ContactEmail)
	require.Nil(t, report.Student.ContactPhone)

	// No start date means the period mirrors all-time activity, without a
	// ledger read.
	require.Equal(t, 4, report.ProgressSummary.SessionsInPeriod)
	require.Equal(t, "4.00", report.ProgressSummary.HoursInPeriod.String())
	require.Zero(t, sessionSource.calls)

	require.Equal(t, "60.00", report.BillingSummary.NominalRatePerHour.String())
	require.Equal(t, "140.00", report.BillingSummary.TotalOutstandingAllTime.String())
	require.Len(t, report.WeeklyActivity, 8)
	require.Equal(t, "", report.NotesPlaceholders.AcademicNotes)
	require.Equal(t, "", report.NotesPlaceholders.NextSteps)
}

func TestComposePeriodFiltersSessions(t *testing.T) {
	sessions := []billing.Session{
		{ID: 1, StudentID: 7, DurationMinutes: 60, SessionDate: time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)},
		{ID: 2, StudentID: 7, DurationMinutes: 90, SessionDate: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{ID: 3, StudentID: 7, DurationMinutes: 60, SessionDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)},
		{ID: 4, StudentID: 9, DurationMinutes: 60, SessionDate: time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)},
	}
	svc, _ := newTestService(sessions, adaKPIs())

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	report, err := svc.Compose(context.Background(), 1, 7, asOf, &start, &end)
	require.NoError(t, err)

	require.Equal(t, "2024-03-01", *report.Period.StartDate)
	require.Equal(t, "2024-03-10", *report.Period.EndDate)
	require.Equal(t, 1, report.ProgressSummary.SessionsInPeriod)
	require.Equal(t, "1.50", report.ProgressSummary.HoursInPeriod.String())
	// All-time numbers stay untouched by the period filter.
	require.Equal(t, 4, report.ProgressSummary.TotalSessionsAllTime)
}

func TestComposeUnknownStudent(t *testing.T) {
	svc, _ := newTestService(nil, adaKPIs())

	_, err := svc.Compose(context.Background(), 1, 99, asOf, nil, nil)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestComposeMissingAnalyticsRow(t *testing.T) {
	svc := NewService(
		&fakeStudents{student: &students.Student{ID: 7, StudentName: "Ada"}},
		&fakeAnalytics{report: analytics.StudentAnalytics{AsOf: "2024-03-15"}},
		&fakeSessions{},
	)
	svc.WithNow(func() time.Time { return asOf })

	_, err := svc.Compose(context.Background(), 1, 7, asOf, nil, nil)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestComposeZeroHoursRate(t *testing.T) {
	kpis := analytics.StudentKPIs{
		TotalHours:    money.Zero(),
		TotalInvoiced: money.MustParse("120.00"),
	}
	svc, _ := newTestService(nil, kpis)

	report, err := svc.Compose(context.Background(), 1, 7, asOf, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "0.00", report.BillingSummary.NominalRatePerHour.String())
}
