package shared

import "errors"

var (
	// ErrNotFound indicates an owner-scoped entity does not exist or does
	// not belong to the caller.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or out-of-range input, rejected
	// before any mutation.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidInvoiceState indicates a payment against a void or
	// written-off invoice.
	ErrInvalidInvoiceState = errors.New("invoice in terminal state")
	// ErrInvoiceMismatch indicates the payload references a different
	// invoice than the one being paid.
	ErrInvoiceMismatch = errors.New("invoice reference mismatch")
	// ErrNothingToBill indicates invoice generation found no billable
	// sessions with a usable cost.
	ErrNothingToBill = errors.New("no billable sessions")
	// ErrUnsupportedDuration indicates a duration outside the tiered
	// price grid.
	ErrUnsupportedDuration = errors.New("unsupported session duration")
	// ErrRateNotConfigured indicates the resolved rate tier is absent or
	// not positive.
	ErrRateNotConfigured = errors.New("rate not configured")
)
