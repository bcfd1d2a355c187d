package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corebox-crm/corebox/internal/money"
	"github.com/corebox-crm/corebox/internal/platform/db"
	"github.com/corebox-crm/corebox/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the billing ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sessionColumns = `id, owner_id, student_id, subject, duration_minutes, session_date,
	notes, rate_per_hour, cost_total, billing_status, is_billable, created_at, updated_at`

const invoiceColumns = `id, owner_id, student_id, status, total_amount, amount_paid,
	balance_due, due_date, created_at, updated_at`

const paymentColumns = `id, owner_id, invoice_id, amount, method, notes,
	received_at, created_at, updated_at`

// --- Sessions ---

// CreateSession inserts a session row.
func (r *Repository) CreateSession(ctx context.Context, session Session) (*Session, error) {
	query := `
		INSERT INTO sessions (
			owner_id, student_id, subject, duration_minutes, session_date,
			notes, rate_per_hour, cost_total, billing_status, is_billable,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		session.OwnerID,
		session.StudentID,
		session.Subject,
		session.DurationMinutes,
		session.SessionDate,
		session.Notes,
		session.RatePerHour,
		session.CostTotal,
		string(session.BillingStatus),
		session.IsBillable,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// SaveSession persists edited session fields.
func (r *Repository) SaveSession(ctx context.Context, session *Session) error {
	query := `
		UPDATE sessions SET
			subject = $1, duration_minutes = $2, session_date = $3, notes = $4,
			rate_per_hour = $5, cost_total = $6, billing_status = $7,
			is_billable = $8, updated_at = NOW()
		WHERE id = $9 AND owner_id = $10
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		session.Subject,
		session.DurationMinutes,
		session.SessionDate,
		session.Notes,
		session.RatePerHour,
		session.CostTotal,
		string(session.BillingStatus),
		session.IsBillable,
		session.ID,
		session.OwnerID,
	).Scan(&session.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: session %d", shared.ErrNotFound, session.ID)
	}
	return err
}

// GetSession returns one owned session.
func (r *Repository) GetSession(ctx context.Context, ownerID, sessionID int64) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 AND owner_id = $2`

	var session Session
	err := r.pool.QueryRow(ctx, query, sessionID, ownerID).Scan(
		&session.ID, &session.OwnerID, &session.StudentID, &session.Subject,
		&session.DurationMinutes, &session.SessionDate, &session.Notes,
		&session.RatePerHour, &session.CostTotal, &session.BillingStatus,
		&session.IsBillable, &session.CreatedAt, &session.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %d", shared.ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions returns the owner's sessions, newest session date first.
func (r *Repository) ListSessions(ctx context.Context, ownerID int64, req ListSessionsRequest) ([]Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE owner_id = $1`
	args := []any{ownerID}
	argNum := 2

	if req.StudentID > 0 {
		query += fmt.Sprintf(" AND student_id = $%d", argNum)
		args = append(args, req.StudentID)
		argNum++
	}

	query += " ORDER BY session_date DESC, id DESC"

	if req.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, req.Limit)
		argNum++
	}
	if req.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, req.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

// ListUnbilledSessions returns billable sessions not yet tied to an invoice,
// oldest first so invoice lines read chronologically.
func (r *Repository) ListUnbilledSessions(ctx context.Context, ownerID, studentID int64) ([]Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions
		WHERE owner_id = $1 AND student_id = $2
			AND is_billable = TRUE
			AND billing_status IN ('not_applicable', 'pending')
		ORDER BY session_date, id`

	rows, err := r.pool.Query(ctx, query, ownerID, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

func scanSessions(rows pgx.Rows) ([]Session, error) {
	var sessions []Session
	for rows.Next() {
		var session Session
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

// --- Invoices ---

// CreateInvoiceWithItems inserts the invoice and its lines and flips the
// source sessions to invoiced, all in one transaction.
func (r *Repository) CreateInvoiceWithItems(ctx context.Context, invoice Invoice, items []InvoiceItem, costUpdates map[int64]money.Money) (*Invoice, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		insertInvoice := `
			INSERT INTO invoices (
				owner_id, student_id, status, total_amount, amount_paid,
				balance_due, due_date, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
			RETURNING id, created_at, updated_at`

		err := tx.QueryRow(ctx, insertInvoice,
			invoice.OwnerID,
			invoice.StudentID,
			string(invoice.Status),
			invoice.TotalAmount,
			invoice.AmountPaid,
			invoice.BalanceDue,
			invoice.DueDate,
		).Scan(&invoice.ID, &invoice.CreatedAt, &invoice.UpdatedAt)
		if err != nil {
			return err
		}

		insertItem := `
			INSERT INTO invoice_items (
				invoice_id, session_id, student_id, owner_id, description,
				rate_per_hour, duration_minutes, cost_total, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`

		for _, item := range items {
			_, err := tx.Exec(ctx, insertItem,
				invoice.ID,
				item.SessionID,
				item.StudentID,
				item.OwnerID,
				item.Description,
				item.RatePerHour,
				item.DurationMinutes,
				item.CostTotal,
			)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_invoice_items_session" {
					return fmt.Errorf("%w: session %d already invoiced", shared.ErrValidation, item.SessionID)
				}
				return err
			}

			flip := `UPDATE sessions SET billing_status = 'invoiced', updated_at = NOW() WHERE id = $1`
			if cost, ok := costUpdates[item.SessionID]; ok {
				flip = `UPDATE sessions SET billing_status = 'invoiced', cost_total = $2, updated_at = NOW() WHERE id = $1`
				if _, err := tx.Exec(ctx, flip, item.SessionID, cost); err != nil {
					return err
				}
				continue
			}
			if _, err := tx.Exec(ctx, flip, item.SessionID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// GetInvoice returns one owned invoice.
func (r *Repository) GetInvoice(ctx context.Context, ownerID, invoiceID int64) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 AND owner_id = $2`

	var invoice Invoice
	err := r.pool.QueryRow(ctx, query, invoiceID, ownerID).Scan(
		&invoice.ID, &invoice.OwnerID, &invoice.StudentID, &invoice.Status,
		&invoice.TotalAmount, &invoice.AmountPaid, &invoice.BalanceDue,
		&invoice.DueDate, &invoice.CreatedAt, &invoice.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, invoiceID)
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ListInvoices returns invoices with optional filtering. Sort inputs are
// whitelisted by the service before they reach the query text.
func (r *Repository) ListInvoices(ctx context.Context, ownerID int64, req ListInvoicesRequest) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE owner_id = $1`
	args := []any{ownerID}
	argNum := 2

	if req.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(req.Status))
		argNum++
	}
	if req.StudentID > 0 {
		query += fmt.Sprintf(" AND student_id = $%d", argNum)
		args = append(args, req.StudentID)
		argNum++
	}
	if !req.FromDate.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argNum)
		args = append(args, req.FromDate)
		argNum++
	}
	if !req.ToDate.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argNum)
		args = append(args, req.ToDate)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY %s %s, id DESC", req.SortBy, sortDirection(req.SortOrder))

	if req.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, req.Limit)
		argNum++
	}
	if req.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, req.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		var invoice Invoice
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

// ListInvoiceItems returns the invoice's lines in id order.
func (r *Repository) ListInvoiceItems(ctx context.Context, invoiceID int64) ([]InvoiceItem, error) {
	query := `
		SELECT id, invoice_id, session_id, student_id, owner_id, description,
			rate_per_hour, duration_minutes, cost_total, created_at
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []InvoiceItem
	for rows.Next() {
		var item InvoiceItem
		err := rows.Scan(
			&item.ID, &item.InvoiceID, &item.SessionID, &item.StudentID,
			&item.OwnerID, &item.Description, &item.RatePerHour,
			&item.DurationMinutes, &item.CostTotal, &item.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateInvoice persists status, totals, and due date.
func (r *Repository) UpdateInvoice(ctx context.Context, invoice *Invoice) error {
	query := `
		UPDATE invoices SET
			status = $1, total_amount = $2, amount_paid = $3,
			balance_due = $4, due_date = $5, updated_at = NOW()
		WHERE id = $6 AND owner_id = $7
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		string(invoice.Status),
		invoice.TotalAmount,
		invoice.AmountPaid,
		invoice.BalanceDue,
		invoice.DueDate,
		invoice.ID,
		invoice.OwnerID,
	).Scan(&invoice.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, invoice.ID)
	}
	return err
}

// ListOverdueCandidates returns non-terminal invoices past due with money
// still owed, across all owners.
func (r *Repository) ListOverdueCandidates(ctx context.Context, now time.Time) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE status IN ('unpaid', 'open')
			AND balance_due > 0
			AND due_date IS NOT NULL AND due_date < $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		var invoice Invoice
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

// --- Payments ---

// CreatePaymentAndUpdateInvoice inserts the payment and writes the
// recomputed invoice totals and status in one transaction. Sessions tied to
// a fully paid invoice flip to paid here as well.
func (r *Repository) CreatePaymentAndUpdateInvoice(ctx context.Context, payment Payment, invoice *Invoice) (*Payment, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		insert := `
			INSERT INTO payments (
				owner_id, invoice_id, amount, method, notes, received_at,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			RETURNING id, created_at, updated_at`

		err := tx.QueryRow(ctx, insert,
			payment.OwnerID,
			payment.InvoiceID,
			payment.Amount,
			payment.Method,
			payment.Notes,
			payment.ReceivedAt,
		).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
		if err != nil {
			return err
		}

		update := `
			UPDATE invoices SET
				status = $1, amount_paid = $2, balance_due = $3, updated_at = NOW()
			WHERE id = $4 AND owner_id = $5
			RETURNING updated_at`

		err = tx.QueryRow(ctx, update,
			string(invoice.Status),
			invoice.AmountPaid,
			invoice.BalanceDue,
			invoice.ID,
			invoice.OwnerID,
		).Scan(&invoice.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, invoice.ID)
		}
		if err != nil {
			return err
		}

		if invoice.Status == InvoicePaid {
			flip := `
				UPDATE sessions SET billing_status = 'paid', updated_at = NOW()
				WHERE id IN (SELECT session_id FROM invoice_items WHERE invoice_id = $1)`
			if _, err := tx.Exec(ctx, flip, invoice.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListInvoicePayments returns an invoice's payments, oldest first.
func (r *Repository) ListInvoicePayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE invoice_id = $1 ORDER BY received_at, id`

	rows, err := r.pool.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

// ListPayments returns payments with optional filtering.
func (r *Repository) ListPayments(ctx context.Context, ownerID int64, req ListPaymentsRequest) ([]Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE owner_id = $1`
	args := []any{ownerID}
	argNum := 2

	if req.InvoiceID > 0 {
		query += fmt.Sprintf(" AND invoice_id = $%d", argNum)
		args = append(args, req.InvoiceID)
		argNum++
	}
	if req.Method != "" {
		query += fmt.Sprintf(" AND method = $%d", argNum)
		args = append(args, req.Method)
		argNum++
	}
	if req.MinAmount != nil {
		query += fmt.Sprintf(" AND amount >= $%d", argNum)
		args = append(args, *req.MinAmount)
		argNum++
	}
	if req.MaxAmount != nil {
		query += fmt.Sprintf(" AND amount <= $%d", argNum)
		args = append(args, *req.MaxAmount)
		argNum++
	}
	if !req.FromDate.IsZero() {
		query += fmt.Sprintf(" AND received_at >= $%d", argNum)
		args = append(args, req.FromDate)
		argNum++
	}
	if !req.ToDate.IsZero() {
		query += fmt.Sprintf(" AND received_at <= $%d", argNum)
		args = append(args, req.ToDate)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY %s %s, id DESC", req.SortBy, sortDirection(req.SortOrder))

	if req.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, req.Limit)
		argNum++
	}
	if req.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, req.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

func scanPayments(rows pgx.Rows) ([]Payment, error) {
	var payments []Payment
	for rows.Next() {
		var payment Payment
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

func sortDirection(order string) string {
	if order == "asc" {
		return "ASC"
	}
	return "DESC"
}
