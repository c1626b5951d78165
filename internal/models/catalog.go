package models

import "github.com/shopspring/decimal"

// Vehicle is the read-only projection of the externally managed vehicles
// table; only the ownership field matters to this service.
type Vehicle struct {
	ID          int64 `db:"id"`
	OwnerUserID int64 `db:"user_id"`
}

// Station is the read-only projection of the externally managed stations
// table, joined with its provider's per-minute rate. The rate is read once
// at session-creation time; later rate changes never touch existing invoices.
type Station struct {
	ID            int64           `db:"id"`
	ProviderID    int64           `db:"provider_id"`
	RatePerMinute decimal.Decimal `db:"price_per_minute"`
}
