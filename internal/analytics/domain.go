// Package analytics derives owner-facing reporting from the billing
// ledger: receivable aging, the invoice pipeline, payment trends, and
// per-student activity KPIs.
package analytics

import "github.com/corebox-crm/corebox/internal/money"

const currencyUSD = "USD"

// AgingBuckets splits outstanding balances by days past due.
type AgingBuckets struct {
	Current    money.Money `json:"current"`
	Days1To30  money.Money `json:"days_1_30"`
	Days31To60 money.Money `json:"days_31_60"`
	Days61To90 money.Money `json:"days_61_90"`
	Days90Plus money.Money `json:"days_90_plus"`
}

// AgingStudentRow is one student's share of the aging totals.
type AgingStudentRow struct {
	StudentID          int64        `json:"student_id"`
	StudentDisplayName string       `json:"student_display_name"`
	Buckets            AgingBuckets `json:"buckets"`
}

// AgingSummary is the owner-level receivable aging report.
type AgingSummary struct {
	AsOf     string            `json:"as_of"`
	Currency string            `json:"currency"`
	Totals   AgingBuckets      `json:"totals"`
	Students []AgingStudentRow `json:"students"`
}

// PipelineStatusBucket aggregates invoices sharing a pipeline status.
type PipelineStatusBucket struct {
	Count            int         `json:"count"`
	TotalAmount      money.Money `json:"total_amount"`
	TotalOutstanding money.Money `json:"total_outstanding"`
}

// PipelineDueWindow aggregates outstanding balances by due proximity.
type PipelineDueWindow struct {
	Count            int         `json:"count"`
	TotalOutstanding money.Money `json:"total_outstanding"`
}

// PipelineTotals carries the headline pipeline numbers. Void invoices are
// excluded from all three.
type PipelineTotals struct {
	TotalInvoiced    money.Money `json:"total_invoiced"`
	TotalOutstanding money.Money `json:"total_outstanding"`
	InvoiceCount     int         `json:"invoice_count"`
}

// PipelineStatuses groups invoices by their reporting status. Ledger
// statuses collapse onto five reporting keys: draft and paid map to
// themselves, partial maps to partially_paid, void to void, and everything
// else counts as issued.
type PipelineStatuses struct {
	Draft         PipelineStatusBucket `json:"draft"`
	Issued        PipelineStatusBucket `json:"issued"`
	Paid          PipelineStatusBucket `json:"paid"`
	PartiallyPaid PipelineStatusBucket `json:"partially_paid"`
	Void          PipelineStatusBucket `json:"void"`
}

// PipelineDueWindows buckets outstanding non-void invoices by due date.
type PipelineDueWindows struct {
	PastDue       PipelineDueWindow `json:"past_due"`
	DueNext7Days  PipelineDueWindow `json:"due_next_7_days"`
	DueNext30Days PipelineDueWindow `json:"due_next_30_days"`
}

// PipelineSummary is the owner-level invoice pipeline report.
type PipelineSummary struct {
	AsOf       string             `json:"as_of"`
	Currency   string             `json:"currency"`
	Summary    PipelineTotals     `json:"summary"`
	Statuses   PipelineStatuses   `json:"statuses"`
	DueWindows PipelineDueWindows `json:"due_windows"`
}

// WeeklyPaymentPoint is one ISO week in the payment trend.
type WeeklyPaymentPoint struct {
	Year         int         `json:"year"`
	ISOWeek      int         `json:"iso_week"`
	StartDate    string      `json:"start_date"`
	EndDate      string      `json:"end_date"`
	TotalPaid    money.Money `json:"total_paid"`
	PaymentCount int         `json:"payment_count"`
}

// MonthlyPaymentPoint is one calendar month in the payment trend.
type MonthlyPaymentPoint struct {
	Year         int         `json:"year"`
	Month        int         `json:"month"`
	TotalPaid    money.Money `json:"total_paid"`
	PaymentCount int         `json:"payment_count"`
}

// MethodBreakdown aggregates payments sharing a method. Payments with no
// recorded method report as "unspecified".
type MethodBreakdown struct {
	Method       string      `json:"method"`
	TotalPaid    money.Money `json:"total_paid"`
	PaymentCount int         `json:"payment_count"`
}

// PaymentTotals carries the headline payment numbers.
type PaymentTotals struct {
	TotalPaidAllTime            money.Money `json:"total_paid_all_time"`
	TotalPaidLast7Days          money.Money `json:"total_paid_last_7_days"`
	TotalPaidLast30Days         money.Money `json:"total_paid_last_30_days"`
	PaymentCountAllTime         int         `json:"payment_count_all_time"`
	AveragePaymentAmountAllTime money.Money `json:"average_payment_amount_all_time"`
}

// PaymentAnalytics is the owner-level payment and cash flow report.
type PaymentAnalytics struct {
	AsOf         string                `json:"as_of"`
	Currency     string                `json:"currency"`
	Summary      PaymentTotals         `json:"summary"`
	WeeklyTrend  []WeeklyPaymentPoint  `json:"weekly_trend"`
	MonthlyTrend []MonthlyPaymentPoint `json:"monthly_trend"`
	Methods      []MethodBreakdown     `json:"methods"`
}

// WeeklyActivityPoint is one ISO week of a student's session activity.
type WeeklyActivityPoint struct {
	Year         int         `json:"year"`
	ISOWeek      int         `json:"iso_week"`
	StartDate    string      `json:"start_date"`
	EndDate      string      `json:"end_date"`
	SessionCount int         `json:"session_count"`
	Hours        money.Money `json:"hours"`
}

// StudentKPIs summarises a student's activity and billing position.
// TotalInvoiced sums the nominal per-session rates, not invoice totals.
type StudentKPIs struct {
	TotalSessions             int         `json:"total_sessions"`
	TotalHours                money.Money `json:"total_hours"`
	TotalInvoiced             money.Money `json:"total_invoiced"`
	TotalPaid                 money.Money `json:"total_paid"`
	TotalOutstanding          money.Money `json:"total_outstanding"`
	LastSessionDate           *string     `json:"last_session_date"`
	FirstSessionDate          *string     `json:"first_session_date"`
	SessionsLast8Weeks        int         `json:"sessions_last_8_weeks"`
	HoursLast8Weeks           money.Money `json:"hours_last_8_weeks"`
	ConsistencyScore          int         `json:"consistency_score_0_100"`
	CurrentSessionStreakWeeks int         `json:"current_session_streak_weeks"`
	BillingVsUsageRatio       money.Money `json:"billing_vs_usage_ratio"`
}

// StudentAnalyticsRow is one student's analytics entry.
type StudentAnalyticsRow struct {
	StudentID          int64                 `json:"student_id"`
	StudentDisplayName string                `json:"student_display_name"`
	ParentDisplayName  string                `json:"parent_display_name"`
	KPIs               StudentKPIs           `json:"kpis"`
	WeeklyActivity     []WeeklyActivityPoint `json:"weekly_activity_last_8_weeks"`
}

// StudentAnalytics is the owner-level per-student report.
type StudentAnalytics struct {
	AsOf     string                `json:"as_of"`
	Students []StudentAnalyticsRow `json:"students"`
}

// FinancialSummary aggregates invoice and payment totals for an owner.
type FinancialSummary struct {
	TotalInvoiced      money.Money `json:"total_invoiced"`
	TotalPaid          money.Money `json:"total_paid"`
	TotalOutstanding   money.Money `json:"total_outstanding"`
	InvoiceCount       int         `json:"invoice_count"`
	PaidInvoiceCount   int         `json:"paid_invoice_count"`
	UnpaidInvoiceCount int         `json:"unpaid_invoice_count"`
}

// MonthlyRevenuePoint is one month of received revenue, newest first in
// the report.
type MonthlyRevenuePoint struct {
	Year         int         `json:"year"`
	Month        int         `json:"month"`
	TotalRevenue money.Money `json:"total_revenue"`
}

// ActivitySummary aggregates session volume and ledger totals.
type ActivitySummary struct {
	SessionCount     int         `json:"session_count"`
	TotalHours       money.Money `json:"total_hours"`
	TotalInvoiced    money.Money `json:"total_invoiced"`
	TotalPaid        money.Money `json:"total_paid"`
	TotalOutstanding money.Money `json:"total_outstanding"`
}

// DashboardFinancialCard is the money headline on the owner dashboard.
type DashboardFinancialCard struct {
	TotalInvoicedAllTime    money.Money `json:"total_invoiced_all_time"`
	TotalPaidAllTime        money.Money `json:"total_paid_all_time"`
	TotalOutstandingAllTime money.Money `json:"total_outstanding_all_time"`
	TotalPaidLast30Days     money.Money `json:"total_paid_last_30_days"`
}

// DashboardActivityCard is the session volume headline.
type DashboardActivityCard struct {
	TotalSessionsAllTime int         `json:"total_sessions_all_time"`
	TotalHoursAllTime    money.Money `json:"total_hours_all_time"`
	SessionsLast30Days   int         `json:"sessions_last_30_days"`
	HoursLast30Days      money.Money `json:"hours_last_30_days"`
}

// DashboardPipelineCard is the invoice pipeline headline.
type DashboardPipelineCard struct {
	DraftCount               int         `json:"draft_count"`
	IssuedCount              int         `json:"issued_count"`
	PartiallyPaidCount       int         `json:"partially_paid_count"`
	PaidCount                int         `json:"paid_count"`
	PastDueCount             int         `json:"past_due_count"`
	Upcoming7DaysOutstanding money.Money `json:"upcoming_7_days_outstanding"`
}

// Dashboard composes the owner dashboard cards.
type Dashboard struct {
	AsOf      string                 `json:"as_of"`
	Financial DashboardFinancialCard `json:"financial"`
	Activity  DashboardActivityCard  `json:"activity"`
	AR        AgingBuckets           `json:"ar"`
	Pipeline  DashboardPipelineCard  `json:"pipeline"`
}

// StudentDashboardRow is one line of the student dashboard list.
type StudentDashboardRow struct {
	StudentID               int64       `json:"student_id"`
	StudentDisplayName      string      `json:"student_display_name"`
	ParentDisplayName       string      `json:"parent_display_name"`
	TotalSessionsAllTime    int         `json:"total_sessions_all_time"`
	TotalHoursAllTime       money.Money `json:"total_hours_all_time"`
	ConsistencyScore        int         `json:"consistency_score_0_100"`
	CurrentStreakWeeks      int         `json:"current_session_streak_weeks"`
	TotalInvoicedAllTime    money.Money `json:"total_invoiced_all_time"`
	TotalPaidAllTime        money.Money `json:"total_paid_all_time"`
	TotalOutstandingAllTime money.Money `json:"total_outstanding_all_time"`
}

// StudentDashboard is the dashboard list of students.
type StudentDashboard struct {
	AsOf     string                `json:"as_of"`
	Students []StudentDashboardRow `json:"students"`
}
