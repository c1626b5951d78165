package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"evmarket/internal/http/middleware"
	"evmarket/internal/models"
	"evmarket/internal/service"
)

// AnalyticsHandlers exposes the provider dashboard and user summary views.
type AnalyticsHandlers struct {
	analytics *service.AnalyticsService
	sessions  *service.SessionsService
	logger    *zap.Logger
}

// NewAnalyticsHandlers returns handler set.
func NewAnalyticsHandlers(analytics *service.AnalyticsService, sessions *service.SessionsService, logger *zap.Logger) *AnalyticsHandlers {
	return &AnalyticsHandlers{analytics: analytics, sessions: sessions, logger: logger}
}

type stationStatsResponse struct {
	StationID            int64  `json:"stationId"`
	TotalSessions        int    `json:"totalSessions"`
	TotalEarnings        string `json:"totalEarnings"`
	UniqueUserCount      int    `json:"uniqueUserCount"`
	TotalDurationMinutes int64  `json:"totalDurationMinutes"`
	AverageSessionValue  string `json:"averageSessionValue"`
	ActiveSessionCount   int    `json:"activeSessionCount"`
}

type earningsBucketResponse struct {
	Period string `json:"period"`
	Amount string `json:"amount"`
}

type providerAnalyticsResponse struct {
	Totals struct {
		TotalEarnings string `json:"totalEarnings"`
		TotalSessions int    `json:"totalSessions"`
		TotalUsers    int    `json:"totalUsers"`
	} `json:"totals"`
	Stations []stationStatsResponse   `json:"stations"`
	Earnings []earningsBucketResponse `json:"earnings"`
}

func toBucketResponses(buckets []models.EarningsBucket) []earningsBucketResponse {
	out := make([]earningsBucketResponse, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, earningsBucketResponse{Period: b.Period, Amount: b.Amount.StringFixed(2)})
	}
	return out
}

// ProviderAnalytics handles GET /provider/analytics.
func (h *AnalyticsHandlers) ProviderAnalytics(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.resolveProvider(w, r)
	if !ok {
		return
	}

	window := service.ParseWindow(r.URL.Query().Get("window"))
	out, err := h.analytics.ProviderAnalytics(r.Context(), providerID, window)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	var resp providerAnalyticsResponse
	resp.Totals.TotalEarnings = out.Totals.TotalEarnings.StringFixed(2)
	resp.Totals.TotalSessions = out.Totals.TotalSessions
	resp.Totals.TotalUsers = out.Totals.TotalUsers
	resp.Stations = make([]stationStatsResponse, 0, len(out.Stations))
	for _, s := range out.Stations {
		resp.Stations = append(resp.Stations, stationStatsResponse{
			StationID:            s.StationID,
			TotalSessions:        s.TotalSessions,
			TotalEarnings:        s.TotalEarnings.StringFixed(2),
			UniqueUserCount:      s.UniqueUserCount,
			TotalDurationMinutes: s.TotalDurationMinutes,
			AverageSessionValue:  s.AverageSessionValue.StringFixed(2),
			ActiveSessionCount:   s.ActiveSessionCount,
		})
	}
	resp.Earnings = toBucketResponses(out.Earnings)

	writeJSON(w, http.StatusOK, resp)
}

// ProviderSessions handles GET /provider/sessions.
func (h *AnalyticsHandlers) ProviderSessions(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.resolveProvider(w, r)
	if !ok {
		return
	}

	rows, err := h.sessions.ListSessionsForProvider(r.Context(), providerID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	sessions := make([]sessionResponse, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, toSessionResponse(row))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// UserSummary handles GET /users/me/summary.
func (h *AnalyticsHandlers) UserSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := h.analytics.UserSummary(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"totalSpent":    summary.TotalSpent.StringFixed(2),
		"totalSessions": summary.TotalSessions,
		"monthly":       toBucketResponses(summary.Monthly),
	})
}

func (h *AnalyticsHandlers) resolveProvider(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return 0, false
	}
	providerID, err := h.analytics.ProviderIDForUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return 0, false
	}
	return providerID, true
}
