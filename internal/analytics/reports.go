package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/corebox-crm/corebox/internal/money"
	"github.com/corebox-crm/corebox/internal/shared"
)

// GetFinancialSummary aggregates invoice and payment totals, optionally
// scoped to invoices created on or after start. Payments count when their
// invoice is in scope, whatever the payment date.
func (s *Service) GetFinancialSummary(ctx context.Context, ownerID int64, start time.Time) (FinancialSummary, error) {
	invoices, err := s.repo.InvoicesByOwner(ctx, ownerID)
	if err != nil {
		return FinancialSummary{}, err
	}
	payments, err := s.repo.PaymentsByOwner(ctx, ownerID)
	if err != nil {
		return FinancialSummary{}, err
	}

	summary := FinancialSummary{}
	inScope := make(map[int64]bool)
	for _, invoice := range invoices {
		if !start.IsZero() && invoice.CreatedAt.UTC().Truncate(24*time.Hour).Before(start) {
			continue
		}
		inScope[invoice.ID] = true
		summary.InvoiceCount++
		summary.TotalInvoiced = summary.TotalInvoiced.Add(invoice.TotalAmount).Round()
		summary.TotalOutstanding = summary.TotalOutstanding.Add(invoice.BalanceDue).Round()
		if !invoice.BalanceDue.IsPositive() {
			summary.PaidInvoiceCount++
		}
	}
	summary.UnpaidInvoiceCount = summary.InvoiceCount - summary.PaidInvoiceCount

	for _, payment := range payments {
		if inScope[payment.InvoiceID] {
			summary.TotalPaid = summary.TotalPaid.Add(payment.Amount).Round()
		}
	}
	return summary, nil
}

// GetActivitySummary aggregates session volume and ledger totals,
// optionally scoped to activity on or after start.
func (s *Service) GetActivitySummary(ctx context.Context, ownerID int64, start time.Time) (ActivitySummary, error) {
	sessions, err := s.repo.SessionsByOwner(ctx, ownerID)
	if err != nil {
		return ActivitySummary{}, err
	}
	invoices, err := s.repo.InvoicesByOwner(ctx, ownerID)
	if err != nil {
		return ActivitySummary{}, err
	}
	payments, err := s.repo.PaymentsByOwner(ctx, ownerID)
	if err != nil {
		return ActivitySummary{}, err
	}

	summary := ActivitySummary{}
	totalMinutes := 0
	for _, session := range sessions {
		if !start.IsZero() && session.SessionDate.UTC().Truncate(24*time.Hour).Before(start) {
			continue
		}
		summary.SessionCount++
		totalMinutes += session.DurationMinutes
	}
	summary.TotalHours = minutesToHours(totalMinutes)

	inScope := make(map[int64]bool)
	for _, invoice := range invoices {
		if !start.IsZero() && invoice.CreatedAt.UTC().Truncate(24*time.Hour).Before(start) {
			continue
		}
		inScope[invoice.ID] = true
		summary.TotalInvoiced = summary.TotalInvoiced.Add(invoice.TotalAmount).Round()
		summary.TotalOutstanding = summary.TotalOutstanding.Add(invoice.BalanceDue).Round()
	}
	for _, payment := range payments {
		if inScope[payment.InvoiceID] {
			summary.TotalPaid = summary.TotalPaid.Add(payment.Amount).Round()
		}
	}
	return summary, nil
}

// GetMonthlyRevenue groups received payments by calendar month, newest
// month first.
func (s *Service) GetMonthlyRevenue(ctx context.Context, ownerID int64, from, to time.Time) ([]MonthlyRevenuePoint, error) {
	payments, err := s.repo.PaymentsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	totals := make(map[shared.CalendarMonth]money.Money)
	for _, payment := range payments {
		day := payment.CreatedAt.UTC().Truncate(24 * time.Hour)
		if !from.IsZero() && day.Before(from) {
			continue
		}
		if !to.IsZero() && day.After(to) {
			continue
		}
		key := shared.MonthOf(day)
		totals[key] = totals[key].Add(payment.Amount).Round()
	}

	points := make([]MonthlyRevenuePoint, 0, len(totals))
	for key, total := range totals {
		points = append(points, MonthlyRevenuePoint{
			Year:         key.Year,
			Month:        int(key.Month),
			TotalRevenue: total,
		})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Year != points[j].Year {
			return points[i].Year > points[j].Year
		}
		return points[i].Month > points[j].Month
	})
	return points, nil
}

// GetYTDRevenue sums payments received since January 1 of the reporting
// year.
func (s *Service) GetYTDRevenue(ctx context.Context, ownerID int64, asOf time.Time) (money.Money, error) {
	asOf = s.asOfDate(asOf)
	startOfYear := time.Date(asOf.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	payments, err := s.repo.PaymentsByOwner(ctx, ownerID)
	if err != nil {
		return money.Money{}, err
	}
	total := money.Zero()
	for _, payment := range payments {
		if !payment.CreatedAt.UTC().Before(startOfYear) {
			total = total.Add(payment.Amount)
		}
	}
	return total.Round(), nil
}
