// Package billing owns the session ledger, invoice generation, and the
// payment ledger with its invoice status state machine.
package billing

import (
	"time"

	"github.com/corebox-crm/corebox/internal/money"
	"github.com/corebox-crm/corebox/internal/rates"
)

// SessionBillingStatus tracks whether a session has been billed.
type SessionBillingStatus string

const (
	SessionNotApplicable SessionBillingStatus = "not_applicable"
	SessionPending       SessionBillingStatus = "pending"
	SessionInvoiced      SessionBillingStatus = "invoiced"
	SessionPaid          SessionBillingStatus = "paid"
)

// InvoiceStatus enumerates invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceDraft      InvoiceStatus = "draft"
	InvoiceUnpaid     InvoiceStatus = "unpaid"
	InvoiceOpen       InvoiceStatus = "open"
	InvoicePartial    InvoiceStatus = "partial"
	InvoiceOverdue    InvoiceStatus = "overdue"
	InvoicePaid       InvoiceStatus = "paid"
	InvoiceVoid       InvoiceStatus = "void"
	InvoiceWrittenOff InvoiceStatus = "written_off"
)

// Terminal reports whether the status is sticky: determination never
// overrides void or written_off.
func (s InvoiceStatus) Terminal() bool {
	return s == InvoiceVoid || s == InvoiceWrittenOff
}

// Valid reports whether s is a known invoice status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceDraft, InvoiceUnpaid, InvoiceOpen, InvoicePartial,
		InvoiceOverdue, InvoicePaid, InvoiceVoid, InvoiceWrittenOff:
		return true
	}
	return false
}

// Session is one unit of tutoring work. Cost is only present when both
// duration and rate were positive at computation time.
type Session struct {
	ID              int64
	OwnerID         int64
	StudentID       int64
	Subject         string
	DurationMinutes int
	SessionDate     time.Time
	Notes           string
	RatePerHour     *money.Money
	CostTotal       *money.Money
	BillingStatus   SessionBillingStatus
	IsBillable      bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Invoice is a billable grouping of sessions for one student.
// BalanceDue == max(0, TotalAmount - AmountPaid) always holds.
type Invoice struct {
	ID          int64
	OwnerID     int64
	StudentID   int64
	Status      InvoiceStatus
	TotalAmount money.Money
	AmountPaid  money.Money
	BalanceDue  money.Money
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InvoiceItem is an immutable line created at generation time.
type InvoiceItem struct {
	ID              int64
	InvoiceID       int64
	SessionID       int64
	StudentID       int64
	OwnerID         int64
	Description     string
	RatePerHour     *money.Money
	DurationMinutes int
	CostTotal       money.Money
	CreatedAt       time.Time
}

// Payment is money received against exactly one invoice. Immutable once
// created.
type Payment struct {
	ID         int64
	OwnerID    int64
	InvoiceID  int64
	Amount     money.Money
	Method     string
	Notes      string
	ReceivedAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreateSessionInput captures a new ledger entry. When Plan is set the cost
// comes from the owner's tier grid; otherwise the legacy duration x hourly
// formula applies.
type CreateSessionInput struct {
	StudentID       int64
	Subject         string
	DurationMinutes int
	SessionDate     time.Time
	Notes           string
	RatePerHour     *money.Money
	Plan            rates.Plan
	BillingStatus   SessionBillingStatus
	IsBillable      *bool
}

// UpdateSessionInput carries partial session edits; nil fields are
// untouched.
type UpdateSessionInput struct {
	Subject         *string
	DurationMinutes *int
	SessionDate     *time.Time
	Notes           *string
	RatePerHour     *money.Money
	BillingStatus   *SessionBillingStatus
	IsBillable      *bool
}

// ApplyPaymentInput records money received against an invoice. InvoiceID
// guards against cross-invoice application; zero means "the target".
type ApplyPaymentInput struct {
	InvoiceID  int64
	Amount     money.Money
	Method     string
	Notes      string
	ReceivedAt *time.Time
}

// UpdateInvoiceInput carries direct status/due-date edits.
type UpdateInvoiceInput struct {
	Status  *InvoiceStatus
	DueDate *time.Time
}

// ListInvoicesRequest filters and sorts the invoice list.
type ListInvoicesRequest struct {
	Status    InvoiceStatus
	StudentID int64
	FromDate  time.Time
	ToDate    time.Time
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// ListPaymentsRequest filters and sorts the payment list.
type ListPaymentsRequest struct {
	InvoiceID int64
	Method    string
	MinAmount *money.Money
	MaxAmount *money.Money
	FromDate  time.Time
	ToDate    time.Time
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// ListSessionsRequest scopes the session list.
type ListSessionsRequest struct {
	StudentID int64
	Limit     int
	Offset    int
}
