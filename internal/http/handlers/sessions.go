package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"evmarket/internal/billing"
	"evmarket/internal/http/middleware"
	"evmarket/internal/models"
	"evmarket/internal/service"
)

// SessionsHandlers exposes the session ledger over HTTP.
type SessionsHandlers struct {
	svc    *service.SessionsService
	logger *zap.Logger
}

// NewSessionsHandlers returns handler set.
func NewSessionsHandlers(svc *service.SessionsService, logger *zap.Logger) *SessionsHandlers {
	return &SessionsHandlers{svc: svc, logger: logger}
}

type createSessionRequest struct {
	VehicleID int64  `json:"vehicleId"`
	StationID int64  `json:"stationId"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type createSessionResponse struct {
	SessionID       int64  `json:"sessionId"`
	DurationMinutes int    `json:"durationMinutes"`
	InvoiceAmount   string `json:"invoiceAmount"`
}

type sessionResponse struct {
	ID              int64     `json:"id"`
	VehicleID       int64     `json:"vehicleId"`
	StationID       int64     `json:"stationId"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	DurationMinutes int       `json:"durationMinutes"`
	InvoiceAmount   string    `json:"invoiceAmount"`
}

func toSessionResponse(row models.SessionWithInvoice) sessionResponse {
	return sessionResponse{
		ID:              row.ID,
		VehicleID:       row.VehicleID,
		StationID:       row.StationID,
		StartTime:       row.StartTime,
		EndTime:         row.EndTime,
		DurationMinutes: billing.DurationMinutes(row.StartTime, row.EndTime),
		InvoiceAmount:   row.InvoiceAmount.StringFixed(2),
	}
}

// Create handles POST /sessions.
func (h *SessionsHandlers) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	result, err := h.svc.CreateSession(r.Context(), service.CreateSessionInput{
		UserID:    userID,
		VehicleID: req.VehicleID,
		StationID: req.StationID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{
		SessionID:       result.Session.ID,
		DurationMinutes: result.DurationMinutes,
		InvoiceAmount:   result.Invoice.Amount.StringFixed(2),
	})
}

// Delete handles DELETE /sessions/{id}.
func (h *SessionsHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		// A malformed id cannot name an existing session.
		writeError(w, http.StatusNotFound, "charging session not found")
		return
	}

	if err := h.svc.DeleteSession(r.Context(), sessionID, userID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMe handles GET /sessions/me.
func (h *SessionsHandlers) ListMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	rows, err := h.svc.ListSessionsForUser(r.Context(), userID)
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
