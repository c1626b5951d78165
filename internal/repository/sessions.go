package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"evmarket/internal/apperr"
	"evmarket/internal/models"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so that mutations can run
// inside the ledger transaction while reads use the pool directly.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SessionRepository handles persistence of charging sessions. Sessions have
// no update path: they are inserted complete and only ever deleted.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a completed session.
func (r *SessionRepository) Create(ctx context.Context, q DBTX, session *models.Session) (*models.Session, error) {
	const query = `
		INSERT INTO charging_sessions (user_id, vehicle_id, station_id, start_time, end_time, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`
	err := q.QueryRowContext(ctx, query,
		session.UserID,
		session.VehicleID,
		session.StationID,
		session.StartTime,
		session.EndTime,
	).Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("sessions: create: %w", err)
	}
	return session, nil
}

// GetOwned returns the session only when it exists and belongs to userID.
// Missing and not-owned both report apperr.ErrNotFound.
func (r *SessionRepository) GetOwned(ctx context.Context, q DBTX, sessionID, userID int64) (*models.Session, error) {
	const query = `
		SELECT id, user_id, vehicle_id, station_id, start_time, end_time, created_at
		FROM charging_sessions
		WHERE id = $1 AND user_id = $2
	`
	var s models.Session
	err := q.QueryRowContext(ctx, query, sessionID, userID).Scan(
		&s.ID,
		&s.UserID,
		&s.VehicleID,
		&s.StationID,
		&s.StartTime,
		&s.EndTime,
		&s.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sessions: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sessions: get owned: %w", err)
	}
	return &s, nil
}

// Delete removes a session row.
func (r *SessionRepository) Delete(ctx context.Context, q DBTX, sessionID int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM charging_sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("sessions: delete: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sessions: delete: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("sessions: %w", apperr.ErrNotFound)
	}
	return nil
}

// ListByUser returns all of one user's sessions with their invoice amounts,
// newest start first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID int64) ([]models.SessionWithInvoice, error) {
	const query = `
		SELECT s.id, s.user_id, s.vehicle_id, s.station_id, s.start_time, s.end_time, s.created_at, i.amount
		FROM charging_sessions s
		JOIN invoices i ON i.session_id = s.id
		WHERE s.user_id = $1
		ORDER BY s.start_time DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("sessions: list by user: %w", err)
	}
	return scanSessionsWithInvoice(rows)
}

// ListByProvider returns every session recorded at one of the provider's
// stations, newest start first. Used exclusively by the aggregator and the
// provider session feed.
func (r *SessionRepository) ListByProvider(ctx context.Context, providerID int64) ([]models.SessionWithInvoice, error) {
	const query = `
		SELECT s.id, s.user_id, s.vehicle_id, s.station_id, s.start_time, s.end_time, s.created_at, i.amount
		FROM charging_sessions s
		JOIN invoices i ON i.session_id = s.id
		JOIN charging_stations st ON st.id = s.station_id
		WHERE st.provider_id = $1
		ORDER BY s.start_time DESC
	`
	rows, err := r.db.QueryContext(ctx, query, providerID)
	if err != nil {
		return nil, fmt.Errorf("sessions: list by provider: %w", err)
	}
	return scanSessionsWithInvoice(rows)
}

func scanSessionsWithInvoice(rows *sql.Rows) ([]models.SessionWithInvoice, error) {
	defer rows.Close()

	var sessions []models.SessionWithInvoice
	for rows.Next() {
		var s models.SessionWithInvoice
		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.VehicleID,
			&s.StationID,
			&s.StartTime,
			&s.EndTime,
			&s.CreatedAt,
			&s.InvoiceAmount,
		); err != nil {
			return nil, fmt.Errorf("sessions: scan: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sessions: rows: %w", err)
	}
	return sessions, nil
}
