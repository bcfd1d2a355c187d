package parentreport

import (
	"fmt"
	"strings"
)

// buildNarrative renders the prose sections from the base report. Every
// phrase is fixed text keyed off KPI thresholds, so the same report always
// produces the same narrative.
func buildNarrative(report *Report) Narrative {
	progress := report.ProgressSummary
	billing := report.BillingSummary
	name := report.Student.DisplayName

	return Narrative{
		Overview:              overviewPhrase(name, progress),
		Attendance:            attendancePhrase(progress.ConsistencyScore, progress.CurrentSessionStreakWeeks),
		AcademicProgress:      academicProgressPhrase(name, progress),
		BehaviorAndEngagement: behaviorPhrase(progress.ConsistencyScore),
		NextSteps:             nextStepsPhrase(billing, progress.ConsistencyScore),
		BillingOverview:       billingOverviewPhrase(billing),
	}
}

func overviewPhrase(name string, progress ProgressSummary) string {
	if progress.TotalSessionsAllTime == 0 {
		return fmt.Sprintf("%s has not started any sessions yet.", name)
	}
	return fmt.Sprintf("%s has completed %d session(s) for a total of %s hour(s) of instruction so far.",
		name, progress.TotalSessionsAllTime, progress.TotalHoursAllTime)
}

func attendancePhrase(consistency, streak int) string {
	var base string
	switch {
	case consistency >= 80:
		base = "Attendance has been strong and consistent over the last several weeks."
	case consistency >= 50:
		base = "Attendance has been generally solid, with a few gaps."
	default:
		base = "Attendance has been inconsistent, with multiple missed or skipped weeks."
	}
	switch {
	case streak >= 3:
		return base + " There is a positive streak of recent weekly attendance."
	case streak == 0:
		return base + " There has been at least one week recently with no sessions."
	default:
		return base
	}
}

func academicProgressPhrase(name string, progress ProgressSummary) string {
	if progress.SessionsInPeriod == 0 {
		return "There have been no sessions in the selected period, so there is no new academic progress to summarize."
	}
	return fmt.Sprintf("During this period, %s attended %d session(s), totaling %s hour(s) of focused support.",
		name, progress.SessionsInPeriod, progress.HoursInPeriod)
}

func behaviorPhrase(consistency int) string {
	switch {
	case consistency >= 80:
		return "Engagement appears strong with good follow-through."
	case consistency >= 50:
		return "Engagement is generally good, with room for increased consistency."
	default:
		return "Engagement has been spotty and may need additional support."
	}
}

func nextStepsPhrase(billing BillingSummary, consistency int) string {
	var notes []string
	if billing.TotalOutstandingAllTime.IsPositive() {
		notes = append(notes, "We recommend finalizing outstanding payments to keep the account in good standing.")
	}
	if consistency < 70 {
		notes = append(notes, "A key next step is to establish a more consistent weekly routine.")
	} else {
		notes = append(notes, "The next step is to continue the current schedule and monitor ongoing progress.")
	}
	return strings.Join(notes, " ")
}

func billingOverviewPhrase(billing BillingSummary) string {
	return fmt.Sprintf("Total billed to date is %s, with %s paid and %s remaining. "+
		"The current effective rate is approximately %s per hour of instruction (billing vs usage ratio: %s).",
		billing.TotalInvoicedAllTime, billing.TotalPaidAllTime, billing.TotalOutstandingAllTime,
		billing.NominalRatePerHour, billing.BillingVsUsageRatio)
}
