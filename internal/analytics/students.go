package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebox-crm/corebox/internal/billing"
	"github.com/corebox-crm/corebox/internal/money"
	"github.com/corebox-crm/corebox/internal/shared"
)

// GetStudentAnalytics reports per-student activity and billing KPIs over
// the trailing eight ISO weeks plus all-time totals. TotalInvoiced sums
// the nominal per-session rates rather than invoice totals, so it can
// diverge from invoice-based reports when sessions run over or under an
// hour.
func (s *Service) GetStudentAnalytics(ctx context.Context, ownerID int64, asOf time.Time) (StudentAnalytics, error) {
	asOf = s.asOfDate(asOf)
	return cached(ctx, s.cache, keyStudents(ownerID, asOf), func(ctx context.Context) (StudentAnalytics, error) {
		return s.computeStudentAnalytics(ctx, ownerID, asOf)
	})
}

func (s *Service) computeStudentAnalytics(ctx context.Context, ownerID int64, asOf time.Time) (StudentAnalytics, error) {
	report := StudentAnalytics{AsOf: dayKey(asOf), Students: []StudentAnalyticsRow{}}

	directory, err := s.repo.StudentsByOwner(ctx, ownerID)
	if err != nil {
		return StudentAnalytics{}, err
	}
	if len(directory) == 0 {
		return report, nil
	}

	sessions, err := s.repo.SessionsByOwner(ctx, ownerID)
	if err != nil {
		return StudentAnalytics{}, err
	}
	invoices, err := s.repo.InvoicesByOwner(ctx, ownerID)
	if err != nil {
		return StudentAnalytics{}, err
	}
	payments, err := s.repo.PaymentsByOwner(ctx, ownerID)
	if err != nil {
		return StudentAnalytics{}, err
	}

	sessionsByStudent := make(map[int64][]billing.Session)
	for _, session := range sessions {
		sessionsByStudent[session.StudentID] = append(sessionsByStudent[session.StudentID], session)
	}
	invoicesByStudent := make(map[int64][]billing.Invoice)
	for _, invoice := range invoices {
		invoicesByStudent[invoice.StudentID] = append(invoicesByStudent[invoice.StudentID], invoice)
	}
	paymentsByInvoice := make(map[int64][]billing.Payment)
	for _, payment := range payments {
		paymentsByInvoice[payment.InvoiceID] = append(paymentsByInvoice[payment.InvoiceID], payment)
	}

	weeks := shared.LastNISOWeeks(asOf, 8)

	for _, student := range directory {
		stuSessions := sessionsByStudent[student.ID]

		totalMinutes := 0
		for _, session := range stuSessions {
			totalMinutes += session.DurationMinutes
		}
		totalHours := minutesToHours(totalMinutes)

		var firstDate, lastDate *string
		for _, session := range stuSessions {
			day := dayKey(session.SessionDate.UTC())
			if firstDate == nil || day < *firstDate {
				d := day
				firstDate = &d
			}
			if lastDate == nil || day > *lastDate {
				d := day
				lastDate = &d
			}
		}

		weekly := make([]WeeklyActivityPoint, 0, len(weeks))
		weekIndex := make(map[shared.ISOWeek]int, len(weeks))
		for i, week := range weeks {
			start, end := week.Range()
			weekly = append(weekly, WeeklyActivityPoint{
				Year:      week.Year,
				ISOWeek:   week.Week,
				StartDate: dayKey(start),
				EndDate:   dayKey(end),
			})
			weekIndex[week] = i
		}
		weekMinutes := make([]int, len(weeks))
		for _, session := range stuSessions {
			key := shared.ISOWeekOf(session.SessionDate.UTC())
			if i, ok := weekIndex[key]; ok {
				weekly[i].SessionCount++
				weekMinutes[i] += session.DurationMinutes
			}
		}
		sessionsLast8 := 0
		minutesLast8 := 0
		weeksWithSessions := 0
		for i := range weekly {
			weekly[i].Hours = minutesToHours(weekMinutes[i])
			sessionsLast8 += weekly[i].SessionCount
			minutesLast8 += weekMinutes[i]
			if weekly[i].SessionCount > 0 {
				weeksWithSessions++
			}
		}

		streak := 0
		for i := len(weekly) - 1; i >= 0; i-- {
			if weekly[i].SessionCount == 0 {
				break
			}
			streak++
		}

		// Nominal billing position: each session contributes its hourly
		// rate once, regardless of duration.
		nominalTotal := money.Zero()
		for _, session := range stuSessions {
			if session.RatePerHour != nil {
				nominalTotal = nominalTotal.Add(*session.RatePerHour)
			}
		}

		totalPaid := money.Zero()
		for _, invoice := range invoicesByStudent[student.ID] {
			if invoice.Status == billing.InvoiceVoid {
				continue
			}
			for _, payment := range paymentsByInvoice[invoice.ID] {
				totalPaid = totalPaid.Add(payment.Amount)
			}
		}
		outstanding := nominalTotal.Sub(totalPaid).ClampZero()

		ratio := money.Zero()
		if totalHours.IsPositive() {
			ratio = nominalTotal.Div(totalHours).Round()
		}

		report.Students = append(report.Students, StudentAnalyticsRow{
			StudentID:          student.ID,
			StudentDisplayName: student.StudentName,
			ParentDisplayName:  student.ParentName,
			KPIs: StudentKPIs{
				TotalSessions:             len(stuSessions),
				TotalHours:                totalHours,
				TotalInvoiced:             nominalTotal.Round(),
				TotalPaid:                 totalPaid.Round(),
				TotalOutstanding:          outstanding.Round(),
				LastSessionDate:           lastDate,
				FirstSessionDate:          firstDate,
				SessionsLast8Weeks:        sessionsLast8,
				HoursLast8Weeks:           minutesToHours(minutesLast8),
				ConsistencyScore:          consistencyScore(weeksWithSessions, len(weeks)),
				CurrentSessionStreakWeeks: streak,
				BillingVsUsageRatio:       ratio,
			},
			WeeklyActivity: weekly,
		})
	}

	return report, nil
}

func minutesToHours(minutes int) money.Money {
	if minutes == 0 {
		return money.Zero()
	}
	return money.FromInt(int64(minutes)).Div(money.FromInt(60)).Round()
}

// consistencyScore is the share of trailing weeks with at least one
// session, as a 0-100 integer rounded half to even.
func consistencyScore(activeWeeks, totalWeeks int) int {
	if totalWeeks == 0 {
		return 0
	}
	score := decimal.NewFromInt(int64(100 * activeWeeks)).Div(decimal.NewFromInt(int64(totalWeeks)))
	return int(score.RoundBank(0).IntPart())
}
