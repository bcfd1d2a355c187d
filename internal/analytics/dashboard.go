package analytics

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// GetDashboard composes the owner dashboard from the individual reports.
// The underlying reports load concurrently; each one still goes through
// its own cache.
func (s *Service) GetDashboard(ctx context.Context, ownerID int64, asOf time.Time) (Dashboard, error) {
	asOf = s.asOfDate(asOf)

	var (
		financial  FinancialSummary
		payAna     PaymentAnalytics
		activity   ActivitySummary
		activity30 ActivitySummary
		aging      AgingSummary
		pipeline   PipelineSummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		financial, err = s.GetFinancialSummary(gctx, ownerID, time.Time{})
		return err
	})
	g.Go(func() error {
		var err error
		payAna, err = s.GetPaymentAnalytics(gctx, ownerID, asOf)
		return err
	})
	g.Go(func() error {
		var err error
		activity, err = s.GetActivitySummary(gctx, ownerID, time.Time{})
		return err
	})
	g.Go(func() error {
		var err error
		activity30, err = s.GetActivitySummary(gctx, ownerID, asOf.AddDate(0, 0, -29))
		return err
	})
	g.Go(func() error {
		var err error
		aging, err = s.GetAgingSummary(gctx, ownerID, asOf)
		return err
	})
	g.Go(func() error {
		var err error
		pipeline, err = s.GetPipelineSummary(gctx, ownerID, asOf)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	return Dashboard{
		AsOf: dayKey(asOf),
		Financial: DashboardFinancialCard{
			TotalInvoicedAllTime:    financial.TotalInvoiced,
			TotalPaidAllTime:        financial.TotalPaid,
			TotalOutstandingAllTime: financial.TotalOutstanding,
			TotalPaidLast30Days:     payAna.Summary.TotalPaidLast30Days,
		},
		Activity: DashboardActivityCard{
			TotalSessionsAllTime: activity.SessionCount,
			TotalHoursAllTime:    activity.TotalHours,
			SessionsLast30Days:   activity30.SessionCount,
			HoursLast30Days:      activity30.TotalHours,
		},
		AR: aging.Totals,
		Pipeline: DashboardPipelineCard{
			DraftCount:               pipeline.Statuses.Draft.Count,
			IssuedCount:              pipeline.Statuses.Issued.Count,
			PartiallyPaidCount:       pipeline.Statuses.PartiallyPaid.Count,
			PaidCount:                pipeline.Statuses.Paid.Count,
			PastDueCount:             pipeline.DueWindows.PastDue.Count,
			Upcoming7DaysOutstanding: pipeline.DueWindows.DueNext7Days.TotalOutstanding,
		},
	}, nil
}

// GetStudentDashboard condenses the per-student analytics into list rows.
func (s *Service) GetStudentDashboard(ctx context.Context, ownerID int64, asOf time.Time) (StudentDashboard, error) {
	analytics, err := s.GetStudentAnalytics(ctx, ownerID, asOf)
	if err != nil {
		return StudentDashboard{}, err
	}

	dashboard := StudentDashboard{AsOf: analytics.AsOf, Students: []StudentDashboardRow{}}
	for _, row := range analytics.Students {
		dashboard.Students = append(dashboard.Students, StudentDashboardRow{
			StudentID:               row.StudentID,
			StudentDisplayName:      row.StudentDisplayName,
			ParentDisplayName:       row.ParentDisplayName,
			TotalSessionsAllTime:    row.KPIs.TotalSessions,
			TotalHoursAllTime:       row.KPIs.TotalHours,
			ConsistencyScore:        row.KPIs.ConsistencyScore,
			CurrentStreakWeeks:      row.KPIs.CurrentSessionStreakWeeks,
			TotalInvoicedAllTime:    row.KPIs.TotalInvoiced,
			TotalPaidAllTime:        row.KPIs.TotalPaid,
			TotalOutstandingAllTime: row.KPIs.TotalOutstanding,
		})
	}
	return dashboard, nil
}
