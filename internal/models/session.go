package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session represents one completed charging event. Sessions are immutable
// after creation; the only lifecycle transition is deletion, which cascades
// to the invoice.
type Session struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	VehicleID int64     `db:"vehicle_id" json:"vehicle_id"`
	StationID int64     `db:"station_id" json:"station_id"`
	StartTime time.Time `db:"start_time" json:"start_time"`
	EndTime   time.Time `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SessionWithInvoice pairs a session with its billed amount, the shape every
// list endpoint and the aggregator consume.
type SessionWithInvoice struct {
	Session
	InvoiceAmount decimal.Decimal `json:"invoice_amount"`
}
