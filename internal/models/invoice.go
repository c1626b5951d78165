package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is the monetary record of exactly one session. It is created in
// the same transaction as its session and deleted in the same transaction as
// the session's deletion; the session_id column carries a UNIQUE constraint.
type Invoice struct {
	ID        int64           `db:"id" json:"id"`
	SessionID int64           `db:"session_id" json:"session_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
