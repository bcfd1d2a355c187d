package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/corebox-crm/corebox/internal/billing"
	"github.com/corebox-crm/corebox/internal/money"
	"github.com/corebox-crm/corebox/internal/shared"
)

// GetAgingSummary reports outstanding balances bucketed by days past due.
// Invoices that are paid, void, or written off never age; an invoice with
// no due date sits in the current bucket.
func (s *Service) GetAgingSummary(ctx context.Context, ownerID int64, asOf time.Time) (AgingSummary, error) {
	asOf = s.asOfDate(asOf)
	return cached(ctx, s.cache, keyAging(ownerID, asOf), func(ctx context.Context) (AgingSummary, error) {
		return s.computeAging(ctx, ownerID, asOf)
	})
}

func (s *Service) computeAging(ctx context.Context, ownerID int64, asOf time.Time) (AgingSummary, error) {
	invoices, err := s.repo.InvoicesByOwner(ctx, ownerID)
	if err != nil {
		return AgingSummary{}, err
	}

	summary := AgingSummary{
		AsOf:     dayKey(asOf),
		Currency: currencyUSD,
		Students: []AgingStudentRow{},
	}

	perStudent := make(map[int64]*AgingBuckets)
	for _, invoice := range invoices {
		if !invoice.BalanceDue.IsPositive() {
			continue
		}
		switch invoice.Status {
		case billing.InvoicePaid, billing.InvoiceVoid, billing.InvoiceWrittenOff:
			continue
		}

		balance := invoice.BalanceDue.Round()
		addToBucket(&summary.Totals, invoice.DueDate, asOf, balance)
		buckets, ok := perStudent[invoice.StudentID]
		if !ok {
			buckets = &AgingBuckets{}
			perStudent[invoice.StudentID] = buckets
		}
		addToBucket(buckets, invoice.DueDate, asOf, balance)
	}

	if len(perStudent) == 0 {
		return summary, nil
	}

	directory, err := s.repo.StudentsByOwner(ctx, ownerID)
	if err != nil {
		return AgingSummary{}, err
	}
	names := make(map[int64]string, len(directory))
	for _, student := range directory {
		names[student.ID] = student.StudentName
	}

	for studentID, buckets := range perStudent {
		name, ok := names[studentID]
		if !ok {
			name = "Unknown"
		}
		summary.Students = append(summary.Students, AgingStudentRow{
			StudentID:          studentID,
			StudentDisplayName: name,
			Buckets:            *buckets,
		})
	}
	sort.Slice(summary.Students, func(i, j int) bool {
		return summary.Students[i].StudentID < summary.Students[j].StudentID
	})
	return summary, nil
}

func addToBucket(buckets *AgingBuckets, dueDate *time.Time, asOf time.Time, balance money.Money) {
	var daysPastDue int
	if dueDate != nil {
		daysPastDue = shared.DaysBetween(dueDate.UTC().Truncate(24*time.Hour), asOf)
	}
	switch {
	case dueDate == nil || daysPastDue <= 0:
		buckets.Current = buckets.Current.Add(balance)
	case daysPastDue <= 30:
		buckets.Days1To30 = buckets.Days1To30.Add(balance)
	case daysPastDue <= 60:
		buckets.Days31To60 = buckets.Days31To60.Add(balance)
	case daysPastDue <= 90:
		buckets.Days61To90 = buckets.Days61To90.Add(balance)
	default:
		buckets.Days90Plus = buckets.Days90Plus.Add(balance)
	}
}
