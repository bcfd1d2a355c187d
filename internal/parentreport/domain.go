// Package parentreport composes parent-facing student reports from the
// analytics KPIs and the session ledger, with an optional deterministic
// narrative overlay.
package parentreport

import (
	"github.com/corebox-crm/corebox/internal/analytics"
	"github.com/corebox-crm/corebox/internal/money"
)

// Period is the reporting window. Nil bounds mean all-time.
type Period struct {
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

// StudentInfo identifies the student the report is about. Contact fields
// stay null until the directory carries verified parent contact data.
type StudentInfo struct {
	ID                int64   `json:"id"`
	DisplayName       string  `json:"display_name"`
	ParentDisplayName string  `json:"parent_display_name"`
	ContactEmail      *string `json:"contact_email"`
	ContactPhone      *string `json:"contact_phone"`
}

// ProgressSummary pairs all-time activity with the selected period.
type ProgressSummary struct {
	TotalSessionsAllTime      int         `json:"total_sessions_all_time"`
	TotalHoursAllTime         money.Money `json:"total_hours_all_time"`
	SessionsInPeriod          int         `json:"sessions_in_period"`
	HoursInPeriod             money.Money `json:"hours_in_period"`
	ConsistencyScore          int         `json:"consistency_score_0_100"`
	CurrentSessionStreakWeeks int         `json:"current_session_streak_weeks"`
	LastSessionDate           *string     `json:"last_session_date"`
	FirstSessionDate          *string     `json:"first_session_date"`
}

// BillingSummary is the parent-facing billing position.
type BillingSummary struct {
	TotalInvoicedAllTime    money.Money `json:"total_invoiced_all_time"`
	TotalPaidAllTime        money.Money `json:"total_paid_all_time"`
	TotalOutstandingAllTime money.Money `json:"total_outstanding_all_time"`
	NominalRatePerHour      money.Money `json:"nominal_rate_per_hour"`
	BillingVsUsageRatio     money.Money `json:"billing_vs_usage_ratio"`
}

// NotesPlaceholders are free-text sections the tutor fills in by hand.
type NotesPlaceholders struct {
	AcademicNotes string `json:"academic_notes"`
	BehaviorNotes string `json:"behavior_notes"`
	NextSteps     string `json:"next_steps"`
}

// Report is the base parent report payload.
type Report struct {
	AsOf              string                          `json:"as_of"`
	Period            Period                          `json:"period"`
	Student           StudentInfo                     `json:"student"`
	ProgressSummary   ProgressSummary                 `json:"progress_summary"`
	BillingSummary    BillingSummary                  `json:"billing_summary"`
	WeeklyActivity    []analytics.WeeklyActivityPoint `json:"weekly_activity_last_8_weeks"`
	NotesPlaceholders NotesPlaceholders               `json:"notes_placeholders"`
}

// Narrative is the templated prose overlay.
type Narrative struct {
	Overview              string `json:"overview"`
	Attendance            string `json:"attendance"`
	AcademicProgress      string `json:"academic_progress"`
	BehaviorAndEngagement string `json:"behavior_and_engagement"`
	NextSteps             string `json:"next_steps"`
	BillingOverview       string `json:"billing_overview"`
}

// ReportWithNarrative extends the base report with the narrative sections.
type ReportWithNarrative struct {
	Report
	Narrative Narrative `json:"narrative"`
}
