package parentreport

import (
	"context"
	"fmt"
	"time"

	"github.com/corebox-crm/corebox/internal/analytics"
	"github.com/corebox-crm/corebox/internal/billing"
	"github.com/corebox-crm/corebox/internal/money"
	"github.com/corebox-crm/corebox/internal/shared"
	"github.com/corebox-crm/corebox/internal/students"
)

// StudentSource resolves the student the report is about.
type StudentSource interface {
	Get(ctx context.Context, ownerID, studentID int64) (*students.Student, error)
}

// AnalyticsSource supplies the per-student KPI rows.
type AnalyticsSource interface {
	GetStudentAnalytics(ctx context.Context, ownerID int64, asOf time.Time) (analytics.StudentAnalytics, error)
}

// SessionSource lists the student's sessions for period scoping.
type SessionSource interface {
	ListSessions(ctx context.Context, ownerID int64, req billing.ListSessionsRequest) ([]billing.Session, error)
}

// Service composes parent reports.
type Service struct {
	students  StudentSource
	analytics AnalyticsSource
	sessions  SessionSource
	now       func() time.Time
}

// NewService wires the report composer.
func NewService(studentSource StudentSource, analyticsSource AnalyticsSource, sessionSource SessionSource) *Service {
	return &Service{
		students:  studentSource,
		analytics: analyticsSource,
		sessions:  sessionSource,
		now:       time.Now,
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Compose builds the base parent report. start and end scope the period
// sections; with no start the period falls back to all-time activity.
func (s *Service) Compose(ctx context.Context, ownerID, studentID int64, asOf time.Time, start, end *time.Time) (*Report, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	asOf = asOf.UTC().Truncate(24 * time.Hour)

	student, err := s.students.Get(ctx, ownerID, studentID)
	if err != nil {
		return nil, err
	}

	report, err := s.analytics.GetStudentAnalytics(ctx, ownerID, asOf)
	if err != nil {
		return nil, err
	}
	var row *analytics.StudentAnalyticsRow
	for i := range report.Students {
		if report.Students[i].StudentID == studentID {
			row = &report.Students[i]
			break
		}
	}
	if row == nil {
		return nil, fmt.Errorf("student %d analytics: %w", studentID, shared.ErrNotFound)
	}
	kpis := row.KPIs

	nominalRate := money.Zero()
	if kpis.TotalHours.IsPositive() {
		nominalRate = kpis.TotalInvoiced.Div(kpis.TotalHours).Round()
	}

	sessionsInPeriod := kpis.TotalSessions
	hoursInPeriod := kpis.TotalHours
	if start != nil {
		sessionsInPeriod, hoursInPeriod, err = s.periodActivity(ctx, ownerID, studentID, *start, end)
		if err != nil {
			return nil, err
		}
	}

	return &Report{
		AsOf: asOf.Format("2006-01-02"),
		Period: Period{
			StartDate: dayPtr(start),
			EndDate:   dayPtr(end),
		},
		Student: StudentInfo{
			ID:                student.ID,
			DisplayName:       student.StudentName,
			ParentDisplayName: student.ParentName,
		},
		ProgressSummary: ProgressSummary{
			TotalSessionsAllTime:      kpis.TotalSessions,
			TotalHoursAllTime:         kpis.TotalHours,
			SessionsInPeriod:          sessionsInPeriod,
			HoursInPeriod:             hoursInPeriod.Round(),
			ConsistencyScore:          kpis.ConsistencyScore,
			CurrentSessionStreakWeeks: kpis.CurrentSessionStreakWeeks,
			LastSessionDate:           kpis.LastSessionDate,
			FirstSessionDate:          kpis.FirstSessionDate,
		},
		BillingSummary: BillingSummary{
			TotalInvoicedAllTime:    kpis.TotalInvoiced,
			TotalPaidAllTime:        kpis.TotalPaid,
			TotalOutstandingAllTime: kpis.TotalOutstanding,
			NominalRatePerHour:      nominalRate,
			BillingVsUsageRatio:     kpis.BillingVsUsageRatio,
		},
		WeeklyActivity: row.WeeklyActivity,
	}, nil
}

// ComposeWithNarrative builds the base report and overlays the templated
// prose sections.
func (s *Service) ComposeWithNarrative(ctx context.Context, ownerID, studentID int64, asOf time.Time, start, end *time.Time) (*ReportWithNarrative, error) {
	base, err := s.Compose(ctx, ownerID, studentID, asOf, start, end)
	if err != nil {
		return nil, err
	}
	return &ReportWithNarrative{
		Report:    *base,
		Narrative: buildNarrative(base),
	}, nil
}

func (s *Service) periodActivity(ctx context.Context, ownerID, studentID int64, start time.Time, end *time.Time) (int, money.Money, error) {
	sessions, err := s.sessions.ListSessions(ctx, ownerID, billing.ListSessionsRequest{StudentID: studentID})
	if err != nil {
		return 0, money.Money{}, err
	}
	startDay := start.UTC().Truncate(24 * time.Hour)
	count := 0
	minutes := 0
	for _, session := range sessions {
		day := session.SessionDate.UTC().Truncate(24 * time.Hour)
		if day.Before(startDay) {
			continue
		}
		if end != nil && day.After(end.UTC().Truncate(24*time.Hour)) {
			continue
		}
		count++
		minutes += session.DurationMinutes
	}
	return count, minutesToHours(minutes), nil
}

func minutesToHours(minutes int) money.Money {
	if minutes == 0 {
		return money.Zero()
	}
	return money.FromInt(int64(minutes)).Div(money.FromInt(60)).Round()
}

func dayPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	day := t.UTC().Format("2006-01-02")
	return &day
}
