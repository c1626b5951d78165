package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"evmarket/internal/apperr"
	"evmarket/internal/models"
)

// activeWindow is the presentation heuristic for "currently active"
// stations: a session counts as active while its end time is within two
// hours of now. There is no real-time telemetry behind this signal; it is a
// deliberate simplification carried over for behavioral parity, and a
// candidate for replacement if live station status ever becomes available.
const activeWindow = 2 * time.Hour

// Window selects the earnings-series granularity and length.
type Window struct {
	Buckets int
	Monthly bool
}

const (
	defaultWindowBuckets = 7
	maxWindowBuckets     = 366
)

// ParseWindow reads "<n>d" (daily buckets) or "<n>m" (monthly buckets).
// Anything unparseable falls back to the default 7-day window.
func ParseWindow(raw string) Window {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if len(raw) < 2 {
		return Window{Buckets: defaultWindowBuckets}
	}
	n, err := strconv.Atoi(raw[:len(raw)-1])
	if err != nil || n <= 0 {
		return Window{Buckets: defaultWindowBuckets}
	}
	if n > maxWindowBuckets {
		n = maxWindowBuckets
	}
	switch raw[len(raw)-1] {
	case 'd':
		return Window{Buckets: n}
	case 'm':
		return Window{Buckets: n, Monthly: true}
	}
	return Window{Buckets: defaultWindowBuckets}
}

// AnalyticsService turns the raw session+invoice history into per-station
// summaries, earnings series and global rollups. Everything is recomputed
// from the ledgers on every call; nothing is cached or persisted.
type AnalyticsService struct {
	sessions SessionStore
	catalog  CatalogStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewAnalyticsService builds the aggregator.
func NewAnalyticsService(sessions SessionStore, catalog CatalogStore, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		sessions: sessions,
		catalog:  catalog,
		logger:   logger,
		now:      time.Now,
	}
}

// ProviderIDForUser resolves the provider operated by an authenticated user.
func (s *AnalyticsService) ProviderIDForUser(ctx context.Context, userID int64) (int64, error) {
	providerID, err := s.catalog.ProviderIDForUser(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return 0, apperr.E(apperr.ErrNotFound, "provider not found")
	}
	if err != nil {
		return 0, mapStorage(err)
	}
	return providerID, nil
}

type stationAcc struct {
	stats       models.StationStats
	users       map[int64]struct{}
	durationMin float64
}

// ProviderAnalytics computes the full dashboard view for one provider.
// An empty session history yields zero totals and empty slices, never an
// error.
func (s *AnalyticsService) ProviderAnalytics(ctx context.Context, providerID int64, window Window) (*models.ProviderAnalytics, error) {
	rows, err := s.sessions.ListByProvider(ctx, providerID)
	if err != nil {
		return nil, mapStorage(err)
	}

	now := s.now().UTC()
	stations := make(map[int64]*stationAcc)
	uniqueUsers := make(map[int64]struct{})
	buckets := make(map[string]decimal.Decimal)
	totals := models.ProviderTotals{}

	for _, row := range rows {
		acc, ok := stations[row.StationID]
		if !ok {
			acc = &stationAcc{users: make(map[int64]struct{})}
			acc.stats.StationID = row.StationID
			stations[row.StationID] = acc
		}

		acc.stats.TotalSessions++
		acc.stats.TotalEarnings = acc.stats.TotalEarnings.Add(row.InvoiceAmount)
		acc.users[row.UserID] = struct{}{}
		acc.durationMin += row.EndTime.Sub(row.StartTime).Minutes()
		if now.Sub(row.EndTime) <= activeWindow {
			acc.stats.ActiveSessionCount++
		}

		uniqueUsers[row.UserID] = struct{}{}
		totals.TotalSessions++
		totals.TotalEarnings = totals.TotalEarnings.Add(row.InvoiceAmount)

		key := bucketKey(row.StartTime, window.Monthly)
		buckets[key] = buckets[key].Add(row.InvoiceAmount)
	}
	totals.TotalUsers = len(uniqueUsers)

	out := &models.ProviderAnalytics{
		Totals:   totals,
		Stations: make([]models.StationStats, 0, len(stations)),
		Earnings: seriesFromBuckets(buckets, window.Buckets),
	}
	for _, acc := range stations {
		// Only stations with at least one session are emitted, so the
		// average is always well-defined.
		acc.stats.UniqueUserCount = len(acc.users)
		acc.stats.TotalDurationMinutes = int64(acc.durationMin)
		acc.stats.AverageSessionValue = acc.stats.TotalEarnings.
			Div(decimal.NewFromInt(int64(acc.stats.TotalSessions))).Round(2)
		out.Stations = append(out.Stations, acc.stats)
	}
	sort.Slice(out.Stations, func(i, j int) bool {
		return out.Stations[i].StationID < out.Stations[j].StationID
	})

	return out, nil
}

// UserSummary computes a customer's total spend and monthly spend series.
func (s *AnalyticsService) UserSummary(ctx context.Context, userID int64) (*models.UserSummary, error) {
	rows, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, mapStorage(err)
	}

	summary := &models.UserSummary{}
	buckets := make(map[string]decimal.Decimal)
	for _, row := range rows {
		summary.TotalSessions++
		summary.TotalSpent = summary.TotalSpent.Add(row.InvoiceAmount)
		key := bucketKey(row.StartTime, true)
		buckets[key] = buckets[key].Add(row.InvoiceAmount)
	}
	summary.Monthly = seriesFromBuckets(buckets, len(buckets))
	return summary, nil
}

// bucketKey groups by the UTC calendar day or month of the session start.
func bucketKey(start time.Time, monthly bool) string {
	if monthly {
		return start.UTC().Format("2006-01")
	}
	return start.UTC().Format("2006-01-02")
}

// seriesFromBuckets orders buckets chronologically and keeps the most recent
// limit entries. Buckets with no sessions simply do not exist; zero-filling,
// when a chart needs a dense series, is presentation work, not aggregation.
func seriesFromBuckets(buckets map[string]decimal.Decimal, limit int) []models.EarningsBucket {
	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[len(keys)-limit:]
	}

	series := make([]models.EarningsBucket, 0, len(keys))
	for _, key := range keys {
		series = append(series, models.EarningsBucket{Period: key, Amount: buckets[key]})
	}
	return series
}
