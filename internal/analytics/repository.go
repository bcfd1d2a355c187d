package analytics

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corebox-crm/corebox/internal/billing"
	"github.com/corebox-crm/corebox/internal/students"
)

// PgRepository reads report inputs straight from the ledger tables.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// InvoicesByOwner returns every invoice the owner has.
func (r *PgRepository) InvoicesByOwner(ctx context.Context, ownerID int64) ([]billing.Invoice, error) {
	query := `
		SELECT id, owner_id, student_id, status, total_amount, amount_paid,
			balance_due, due_date, created_at, updated_at
		FROM invoices
		WHERE owner_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []billing.Invoice
	for rows.Next() {
		var invoice billing.Invoice
		err := rows.Scan(
			&invoice.ID, &invoice.OwnerID, &invoice.StudentID, &invoice.Status,
			&invoice.TotalAmount, &invoice.AmountPaid, &invoice.BalanceDue,
			&invoice.DueDate, &invoice.CreatedAt, &invoice.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

// PaymentsByOwner returns every payment the owner has received.
func (r *PgRepository) PaymentsByOwner(ctx context.Context, ownerID int64) ([]billing.Payment, error) {
	query := `
		SELECT id, owner_id, invoice_id, amount, method, notes, received_at,
			created_at, updated_at
		FROM payments
		WHERE owner_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

// SessionsByOwner returns every session on the owner's ledger.
func (r *PgRepository) SessionsByOwner(ctx context.Context, ownerID int64) ([]billing.Session, error) {
	query := `
		SELECT id, owner_id, student_id, subject, duration_minutes, session_date,
			notes, rate_per_hour, cost_total, billing_status, is_billable,
			created_at, updated_at
		FROM sessions
		WHERE owner_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []billing.Session
	for rows.Next() {
		var session billing.Session
		err := rows.Scan(
			&session.ID, &session.OwnerID, &session.StudentID, &session.Subject,
			&session.DurationMinutes, &session.SessionDate, &session.Notes,
			&session.RatePerHour, &session.CostTotal, &session.BillingStatus,
			&session.IsBillable, &session.CreatedAt, &session.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// StudentsByOwner returns the owner's full student directory.
func (r *PgRepository) StudentsByOwner(ctx context.Context, ownerID int64) ([]students.Student, error) {
	query := `
		SELECT id, owner_id, student_name, parent_name, parent_email,
			parent_phone, notes, is_active, created_at, updated_at
		FROM students
		WHERE owner_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []students.Student
	for rows.Next() {
		var student students.Student
		err := rows.Scan(
			&student.ID, &student.OwnerID, &student.StudentName, &student.ParentName,
			&student.ParentEmail, &student.ParentPhone, &student.Notes,
			&student.IsActive, &student.CreatedAt, &student.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		list = append(list, student)
	}
	return list, rows.Err()
}

func scanPayments(rows pgx.Rows) ([]billing.Payment, error) {
	var payments []billing.Payment
	for rows.Next() {
		var payment billing.Payment
		err := rows.Scan(
			&payment.ID, &payment.OwnerID, &payment.InvoiceID, &payment.Amount,
			&payment.Method, &payment.Notes, &payment.ReceivedAt,
			&payment.CreatedAt, &payment.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}
