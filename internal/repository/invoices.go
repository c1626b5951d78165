package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"evmarket/internal/apperr"
	"evmarket/internal/models"
)

const pgUniqueViolation = "23505"

// InvoiceRepository persists the monetary record of sessions. Invoices are
// never created or deleted independently of their session; the ledger calls
// these methods inside the session transaction.
type InvoiceRepository struct {
	db *sql.DB
}

// NewInvoiceRepository returns repository.
func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Create inserts the invoice for a session. A second invoice for the same
// session violates the UNIQUE constraint and reports apperr.ErrConflict.
func (r *InvoiceRepository) Create(ctx context.Context, q DBTX, sessionID int64, amount decimal.Decimal) (*models.Invoice, error) {
	const query = `
		INSERT INTO invoices (session_id, amount, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, created_at
	`
	invoice := &models.Invoice{
		SessionID: sessionID,
		Amount:    amount,
	}
	err := q.QueryRowContext(ctx, query, sessionID, amount).Scan(&invoice.ID, &invoice.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, fmt.Errorf("invoices: session %d already invoiced: %w", sessionID, apperr.ErrConflict)
		}
		return nil, fmt.Errorf("invoices: create: %w", err)
	}
	return invoice, nil
}

// DeleteBySession removes a session's invoice. Idempotent: deleting an
// already-absent invoice is not an error, so session deletion never fails on
// a missing invoice.
func (r *InvoiceRepository) DeleteBySession(ctx context.Context, q DBTX, sessionID int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM invoices WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("invoices: delete: %w", err)
	}
	return nil
}

// GetBySession returns the invoice for a session.
func (r *InvoiceRepository) GetBySession(ctx context.Context, sessionID int64) (*models.Invoice, error) {
	const query = `
		SELECT id, session_id, amount, created_at
		FROM invoices
		WHERE session_id = $1
	`
	var invoice models.Invoice
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&invoice.ID,
		&invoice.SessionID,
		&invoice.Amount,
		&invoice.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invoices: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("invoices: get: %w", err)
	}
	return &invoice, nil
}
