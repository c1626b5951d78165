package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"evmarket/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Errors carrying a user-facing message keep it; everything else gets a
// generic one so internals never leak to callers.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		status, message = http.StatusNotFound, "not found"
	case errors.Is(err, apperr.ErrInvalidArgument):
		status, message = http.StatusBadRequest, "invalid request"
	case errors.Is(err, apperr.ErrConflict):
		status, message = http.StatusConflict, "conflict"
	case errors.Is(err, apperr.ErrUnavailable):
		status, message = http.StatusServiceUnavailable, "service unavailable"
	}
	if m, ok := apperr.UserMessage(err); ok {
		message = m
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
	}
	writeError(w, status, message)
}
