package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

var msPerMinute = decimal.NewFromInt(60_000)

// Amount computes the invoice amount for a completed session:
// fractional minutes between start and end multiplied by the provider's
// per-minute rate, rounded half-away-from-zero to 2 decimal places.
// The fractional duration is kept through the multiplication; only the final
// product is rounded. Deterministic for a given (start, end, rate) triple.
func Amount(start, end time.Time, ratePerMinute decimal.Decimal) decimal.Decimal {
	minutes := decimal.NewFromInt(end.Sub(start).Milliseconds()).Div(msPerMinute)
	return minutes.Mul(ratePerMinute).Round(2)
}

// DurationMinutes is the whole-minute duration used for display. Billing
// never uses this truncated value.
func DurationMinutes(start, end time.Time) int {
	return int(end.Sub(start) / time.Minute)
}
