package models

import "github.com/shopspring/decimal"

// StationStats is a derived view over one station's session history.
// Recomputed from the ledgers on every query, never persisted. Stations with
// zero sessions are omitted from output entirely.
type StationStats struct {
	StationID            int64           `json:"station_id"`
	TotalSessions        int             `json:"total_sessions"`
	TotalEarnings        decimal.Decimal `json:"total_earnings"`
	UniqueUserCount      int             `json:"unique_user_count"`
	TotalDurationMinutes int64           `json:"total_duration_minutes"`
	AverageSessionValue  decimal.Decimal `json:"average_session_value"`
	ActiveSessionCount   int             `json:"active_session_count"`
}

// EarningsBucket is one calendar interval (day or month, UTC) of summed
// invoice amounts. Buckets with no sessions are absent, not zero-valued.
type EarningsBucket struct {
	Period string          `json:"period"`
	Amount decimal.Decimal `json:"amount"`
}

// ProviderTotals are the global rollups across all of a provider's stations.
type ProviderTotals struct {
	TotalEarnings decimal.Decimal `json:"total_earnings"`
	TotalSessions int             `json:"total_sessions"`
	TotalUsers    int             `json:"total_users"`
}

// ProviderAnalytics is the full aggregator output for one provider.
type ProviderAnalytics struct {
	Totals   ProviderTotals   `json:"totals"`
	Stations []StationStats   `json:"stations"`
	Earnings []EarningsBucket `json:"earnings"`
}

// UserSummary is the customer-side rollup: total spend and a monthly series.
type UserSummary struct {
	TotalSpent    decimal.Decimal  `json:"total_spent"`
	TotalSessions int              `json:"total_sessions"`
	Monthly       []EarningsBucket `json:"monthly"`
}
