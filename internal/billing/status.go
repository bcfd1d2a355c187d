package billing

import (
	"time"

	"github.com/corebox-crm/corebox/internal/money"
)

// DetermineStatus projects an invoice's totals onto its status. It is a
// pure function: given the same inputs it always yields the same status, so
// re-running it after every mutation is safe.
//
// Terminal states short-circuit. For the rest, first match wins:
//
//	balance <= 0                -> paid
//	paid > 0 and balance > 0    -> partial
//	due date set and now past   -> overdue
//	paid == 0                   -> unpaid
//	otherwise                   -> open
func DetermineStatus(current InvoiceStatus, amountPaid, balanceDue money.Money, dueDate *time.Time, now time.Time) InvoiceStatus {
	if current.Terminal() {
		return current
	}
	if !balanceDue.IsPositive() {
		return InvoicePaid
	}
	if amountPaid.IsPositive() {
		return InvoicePartial
	}
	if dueDate != nil && now.After(*dueDate) {
		return InvoiceOverdue
	}
	if amountPaid.IsZero() {
		return InvoiceUnpaid
	}
	return InvoiceOpen
}

// RecalculateTotals derives the paid and outstanding amounts from the
// payment set. The balance is clamped at zero so overpayment never yields a
// negative figure.
func RecalculateTotals(totalAmount money.Money, payments []Payment) (amountPaid, balanceDue money.Money) {
	for _, p := range payments {
		amountPaid = amountPaid.Add(p.Amount)
	}
	amountPaid = amountPaid.Round()
	balanceDue = totalAmount.Sub(amountPaid).ClampZero().Round()
	return amountPaid, balanceDue
}
