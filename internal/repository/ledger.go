package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"evmarket/internal/models"
)

// Ledger is the unit of work binding the session and invoice tables.
// Both mutations of the pair run in a single database transaction so that no
// reader can ever observe a session without an invoice or an orphan invoice.
type Ledger struct {
	db       *sql.DB
	sessions *SessionRepository
	invoices *InvoiceRepository
}

// NewLedger builds the unit of work over both repositories.
func NewLedger(db *sql.DB, sessions *SessionRepository, invoices *InvoiceRepository) *Ledger {
	return &Ledger{db: db, sessions: sessions, invoices: invoices}
}

// CreateWithInvoice persists the session and its invoice atomically. If the
// invoice insert fails the session insert is rolled back with it.
func (l *Ledger) CreateWithInvoice(ctx context.Context, session *models.Session, amount decimal.Decimal) (*models.Session, *models.Invoice, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("ledger: begin: %w", err)
	}
	defer tx.Rollback()

	created, err := l.sessions.Create(ctx, tx, session)
	if err != nil {
		return nil, nil, err
	}
	invoice, err := l.invoices.Create(ctx, tx, created.ID, amount)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("ledger: commit: %w", err)
	}
	return created, invoice, nil
}

// DeleteWithInvoice removes the pair atomically, invoice first to satisfy
// the foreign key. Ownership is checked inside the transaction; a session
// that is missing or belongs to another user reports apperr.ErrNotFound.
func (l *Ledger) DeleteWithInvoice(ctx context.Context, sessionID, userID int64) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := l.sessions.GetOwned(ctx, tx, sessionID, userID); err != nil {
		return err
	}
	if err := l.invoices.DeleteBySession(ctx, tx, sessionID); err != nil {
		return err
	}
	if err := l.sessions.Delete(ctx, tx, sessionID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ledger: commit: %w", err)
	}
	return nil
}

// ListByUser exposes the session repository's user listing through the
// ledger, keeping services on a single storage interface.
func (l *Ledger) ListByUser(ctx context.Context, userID int64) ([]models.SessionWithInvoice, error) {
	return l.sessions.ListByUser(ctx, userID)
}

// ListByProvider exposes the provider listing; see SessionRepository.
func (l *Ledger) ListByProvider(ctx context.Context, providerID int64) ([]models.SessionWithInvoice, error) {
	return l.sessions.ListByProvider(ctx, providerID)
}
