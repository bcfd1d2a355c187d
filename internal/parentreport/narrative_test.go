package parentreport

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corebox-crm/corebox/internal/money"
)

func baseReport() *Report {
	return &Report{
		Student: StudentInfo{DisplayName: "Ada"},
		ProgressSummary: ProgressSummary{
			TotalSessionsAllTime:      4,
			TotalHoursAllTime:         money.MustParse("4.00"),
			SessionsInPeriod:          4,
			HoursInPeriod:             money.MustParse("4.00"),
			ConsistencyScore:          88,
			CurrentSessionStreakWeeks: 4,
		},
		BillingSummary: BillingSummary{
			TotalInvoicedAllTime:    money.MustParse("240.00"),
			TotalPaidAllTime:        money.MustParse("100.00"),
			TotalOutstandingAllTime: money.MustParse("140.00"),
			NominalRatePerHour:      money.MustParse("60.00"),
			BillingVsUsageRatio:     money.MustParse("60.00"),
		},
	}
}

func TestNarrativeStrongAttendance(t *testing.T) {
	narrative := buildNarrative(baseReport())

	require.Equal(t,
		"Attendance has been strong and consistent over the last several weeks."+
			" There is a positive streak of recent weekly attendance.",
		narrative.Attendance)
	require.Equal(t, "Engagement appears strong with good follow-through.", narrative.BehaviorAndEngagement)
	require.Equal(t,
		"Ada has completed 4 session(s) for a total of 4.00 hour(s) of instruction so far.",
		narrative.Overview)
	require.Equal(t,
		"During this period, Ada attended 4 session(s), totaling 4.00 hour(s) of focused support.",
		narrative.AcademicProgress)
}

func TestNarrativeAttendanceTiers(t *testing.T) {
	report := baseReport()
	report.ProgressSummary.ConsistencyScore = 60
	report.ProgressSummary.CurrentSessionStreakWeeks = 1
	narrative := buildNarrative(report)
	// Streak of 1 or 2 adds no tail.
	require.Equal(t, "Attendance has been generally solid, with a few gaps.", narrative.Attendance)
	require.Equal(t, "Engagement is generally good, with room for increased consistency.", narrative.BehaviorAndEngagement)

	report.ProgressSummary.ConsistencyScore = 30
	report.ProgressSummary.CurrentSessionStreakWeeks = 0
	narrative = buildNarrative(report)
	require.Equal(t,
		"Attendance has been inconsistent, with multiple missed or skipped weeks."+
			" There has been at least one week recently with no sessions.",
		narrative.Attendance)
	require.Equal(t, "Engagement has been spotty and may need additional support.", narrative.BehaviorAndEngagement)
}

func TestNarrativeAttendanceBoundaries(t *testing.T) {
	report := baseReport()
	report.ProgressSummary.CurrentSessionStreakWeeks = 1

	report.ProgressSummary.ConsistencyScore = 80
	require.Contains(t, buildNarrative(report).Attendance, "strong and consistent")

	report.ProgressSummary.ConsistencyScore = 79
	require.Contains(t, buildNarrative(report).Attendance, "generally solid")

	report.ProgressSummary.ConsistencyScore = 50
	require.Contains(t, buildNarrative(report).Attendance, "generally solid")

	report.ProgressSummary.ConsistencyScore = 49
	require.Contains(t, buildNarrative(report).Attendance, "inconsistent")
}

func TestNarrativeNextSteps(t *testing.T) {
	report := baseReport()
	narrative := buildNarrative(report)
	// Outstanding balance and high consistency.
	require.Equal(t,
		"We recommend finalizing outstanding payments to keep the account in good standing."+
			" The next step is to continue the current schedule and monitor ongoing progress.",
		narrative.NextSteps)

	report.BillingSummary.TotalOutstandingAllTime = money.Zero()
	report.ProgressSummary.ConsistencyScore = 69
	narrative = buildNarrative(report)
	require.Equal(t, "A key next step is to establish a more consistent weekly routine.", narrative.NextSteps)

	report.ProgressSummary.ConsistencyScore = 70
	narrative = buildNarrative(report)
	require.Equal(t, "The next step is to continue the current schedule and monitor ongoing progress.", narrative.NextSteps)
}

func TestNarrativeNoSessions(t *testing.T) {
	report := baseReport()
	report.ProgressSummary.TotalSessionsAllTime = 0
	report.ProgressSummary.SessionsInPeriod = 0
	narrative := buildNarrative(report)

	require.Equal(t, "Ada has not started any sessions yet.", narrative.Overview)
	require.Equal(t,
		"There have been no sessions in the selected period, so there is no new academic progress to summarize.",
		narrative.AcademicProgress)
}

func TestNarrativeBillingOverview(t *testing.T) {
	narrative := buildNarrative(baseReport())
	require.Equal(t,
		"Total billed to date is 240.00, with 100.00 paid and 140.00 remaining. "+
			"The current effective rate is approximately 60.00 per hour of instruction (billing vs usage ratio: 60.00).",
		narrative.BillingOverview)
}
