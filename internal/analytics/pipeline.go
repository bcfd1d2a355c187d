package analytics

import (
	"context"
	"time"

	"github.com/corebox-crm/corebox/internal/billing"
	"github.com/corebox-crm/corebox/internal/shared"
)

// GetPipelineSummary reports the owner's invoice pipeline: per-status
// totals plus due windows over outstanding non-void invoices.
func (s *Service) GetPipelineSummary(ctx context.Context, ownerID int64, asOf time.Time) (PipelineSummary, error) {
	asOf = s.asOfDate(asOf)
	return cached(ctx, s.cache, keyPipeline(ownerID, asOf), func(ctx context.Context) (PipelineSummary, error) {
		return s.computePipeline(ctx, ownerID, asOf)
	})
}

func (s *Service) computePipeline(ctx context.Context, ownerID int64, asOf time.Time) (PipelineSummary, error) {
	invoices, err := s.repo.InvoicesByOwner(ctx, ownerID)
	if err != nil {
		return PipelineSummary{}, err
	}

	summary := PipelineSummary{
		AsOf:     dayKey(asOf),
		Currency: currencyUSD,
	}

	for _, invoice := range invoices {
		total := invoice.TotalAmount.Round()
		outstanding := invoice.BalanceDue.Round()

		bucket := summary.Statuses.bucketFor(invoice.Status)
		bucket.Count++
		bucket.TotalAmount = bucket.TotalAmount.Add(total)
		bucket.TotalOutstanding = bucket.TotalOutstanding.Add(outstanding)

		isVoid := invoice.Status == billing.InvoiceVoid
		if !isVoid {
			summary.Summary.TotalInvoiced = summary.Summary.TotalInvoiced.Add(total)
			summary.Summary.TotalOutstanding = summary.Summary.TotalOutstanding.Add(outstanding)
			summary.Summary.InvoiceCount++
		}

		if isVoid || !outstanding.IsPositive() || invoice.DueDate == nil {
			continue
		}
		daysFromToday := shared.DaysBetween(asOf, invoice.DueDate.UTC().Truncate(24*time.Hour))
		var window *PipelineDueWindow
		switch {
		case daysFromToday < 0:
			window = &summary.DueWindows.PastDue
		case daysFromToday <= 7:
			window = &summary.DueWindows.DueNext7Days
		case daysFromToday <= 30:
			window = &summary.DueWindows.DueNext30Days
		default:
			continue
		}
		window.Count++
		window.TotalOutstanding = window.TotalOutstanding.Add(outstanding)
	}

	return summary, nil
}

// bucketFor maps a ledger status onto its reporting bucket.
func (p *PipelineStatuses) bucketFor(status billing.InvoiceStatus) *PipelineStatusBucket {
	switch status {
	case billing.InvoiceDraft:
		return &p.Draft
	case billing.InvoicePaid:
		return &p.Paid
	case billing.InvoicePartial:
		return &p.PartiallyPaid
	case billing.InvoiceVoid:
		return &p.Void
	default:
		return &p.Issued
	}
}
