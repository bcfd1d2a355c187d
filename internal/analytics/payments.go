package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/corebox-crm/corebox/internal/money"
	"github.com/corebox-crm/corebox/internal/shared"
)

// GetPaymentAnalytics reports payment totals, an eight ISO week and twelve
// month trend, and a per-method breakdown. Trend keys come from payment
// record time, so late-entered payments count in the week they were logged.
func (s *Service) GetPaymentAnalytics(ctx context.Context, ownerID int64, asOf time.Time) (PaymentAnalytics, error) {
	asOf = s.asOfDate(asOf)
	return cached(ctx, s.cache, keyPayments(ownerID, asOf), func(ctx context.Context) (PaymentAnalytics, error) {
		return s.computePaymentAnalytics(ctx, ownerID, asOf)
	})
}

func (s *Service) computePaymentAnalytics(ctx context.Context, ownerID int64, asOf time.Time) (PaymentAnalytics, error) {
	payments, err := s.repo.PaymentsByOwner(ctx, ownerID)
	if err != nil {
		return PaymentAnalytics{}, err
	}

	analytics := PaymentAnalytics{
		AsOf:     dayKey(asOf),
		Currency: currencyUSD,
		Methods:  []MethodBreakdown{},
	}

	totalAllTime := money.Zero()
	for _, payment := range payments {
		totalAllTime = totalAllTime.Add(payment.Amount)
	}
	analytics.Summary.TotalPaidAllTime = totalAllTime.Round()
	analytics.Summary.PaymentCountAllTime = len(payments)
	if len(payments) > 0 {
		analytics.Summary.AveragePaymentAmountAllTime = totalAllTime.Div(money.FromInt(int64(len(payments)))).Round()
	}

	last7Start := asOf.AddDate(0, 0, -6)
	last30Start := asOf.AddDate(0, 0, -29)
	last7 := money.Zero()
	last30 := money.Zero()
	for _, payment := range payments {
		day := payment.CreatedAt.UTC().Truncate(24 * time.Hour)
		if !day.Before(last7Start) {
			last7 = last7.Add(payment.Amount)
		}
		if !day.Before(last30Start) {
			last30 = last30.Add(payment.Amount)
		}
	}
	analytics.Summary.TotalPaidLast7Days = last7.Round()
	analytics.Summary.TotalPaidLast30Days = last30.Round()

	weeks := shared.LastNISOWeeks(asOf, 8)
	weekTotals := make(map[shared.ISOWeek]*WeeklyPaymentPoint, len(weeks))
	analytics.WeeklyTrend = make([]WeeklyPaymentPoint, 0, len(weeks))
	for _, week := range weeks {
		start, end := week.Range()
		analytics.WeeklyTrend = append(analytics.WeeklyTrend, WeeklyPaymentPoint{
			Year:      week.Year,
			ISOWeek:   week.Week,
			StartDate: dayKey(start),
			EndDate:   dayKey(end),
		})
		weekTotals[week] = &analytics.WeeklyTrend[len(analytics.WeeklyTrend)-1]
	}
	for _, payment := range payments {
		key := shared.ISOWeekOf(payment.CreatedAt.UTC())
		if point, ok := weekTotals[key]; ok {
			point.TotalPaid = point.TotalPaid.Add(payment.Amount).Round()
			point.PaymentCount++
		}
	}

	months := shared.LastNMonths(asOf, 12)
	monthTotals := make(map[shared.CalendarMonth]*MonthlyPaymentPoint, len(months))
	analytics.MonthlyTrend = make([]MonthlyPaymentPoint, 0, len(months))
	for _, month := range months {
		analytics.MonthlyTrend = append(analytics.MonthlyTrend, MonthlyPaymentPoint{
			Year:  month.Year,
			Month: int(month.Month),
		})
		monthTotals[month] = &analytics.MonthlyTrend[len(analytics.MonthlyTrend)-1]
	}
	for _, payment := range payments {
		key := shared.MonthOf(payment.CreatedAt.UTC())
		if point, ok := monthTotals[key]; ok {
			point.TotalPaid = point.TotalPaid.Add(payment.Amount).Round()
			point.PaymentCount++
		}
	}

	methodTotals := make(map[string]*MethodBreakdown)
	for _, payment := range payments {
		method := payment.Method
		if method == "" {
			method = "unspecified"
		}
		entry, ok := methodTotals[method]
		if !ok {
			entry = &MethodBreakdown{Method: method}
			methodTotals[method] = entry
		}
		entry.TotalPaid = entry.TotalPaid.Add(payment.Amount).Round()
		entry.PaymentCount++
	}
	for _, entry := range methodTotals {
		analytics.Methods = append(analytics.Methods, *entry)
	}
	sort.Slice(analytics.Methods, func(i, j int) bool {
		return analytics.Methods[i].Method < analytics.Methods[j].Method
	})

	return analytics, nil
}
