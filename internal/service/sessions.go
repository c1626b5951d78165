package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"evmarket/internal/apperr"
	"evmarket/internal/billing"
	"evmarket/internal/models"
	"evmarket/internal/timeutil"
)

// SessionStore is the transactional session+invoice ledger.
type SessionStore interface {
	CreateWithInvoice(ctx context.Context, session *models.Session, amount decimal.Decimal) (*models.Session, *models.Invoice, error)
	DeleteWithInvoice(ctx context.Context, sessionID, userID int64) error
	ListByUser(ctx context.Context, userID int64) ([]models.SessionWithInvoice, error)
	ListByProvider(ctx context.Context, providerID int64) ([]models.SessionWithInvoice, error)
}

// CatalogStore reads the externally managed vehicle/station/provider tables.
type CatalogStore interface {
	GetVehicle(ctx context.Context, vehicleID int64) (*models.Vehicle, error)
	GetStation(ctx context.Context, stationID int64) (*models.Station, error)
	ProviderIDForUser(ctx context.Context, userID int64) (int64, error)
}

// HistoryCache caches per-user session history. Optional; a nil cache
// disables caching entirely.
type HistoryCache interface {
	Get(ctx context.Context, userID int64) ([]models.SessionWithInvoice, error)
	Save(ctx context.Context, userID int64, sessions []models.SessionWithInvoice) error
	Invalidate(ctx context.Context, userID int64) error
}

// SessionsService implements the session ledger operations: validated
// creation with atomic billing, owner-scoped deletion, and the user and
// provider listings.
type SessionsService struct {
	store   SessionStore
	catalog CatalogStore
	history HistoryCache
	logger  *zap.Logger
}

// NewSessionsService builds the service.
func NewSessionsService(store SessionStore, catalog CatalogStore, history HistoryCache, logger *zap.Logger) *SessionsService {
	return &SessionsService{
		store:   store,
		catalog: catalog,
		history: history,
		logger:  logger,
	}
}

// CreateSessionInput carries one completed charging interval as submitted by
// the caller. Timestamps arrive raw and pass through the time normalizer
// before any arithmetic.
type CreateSessionInput struct {
	UserID    int64
	VehicleID int64
	StationID int64
	StartTime string
	EndTime   string
}

// CreateSessionResult is the created pair plus the display duration.
type CreateSessionResult struct {
	Session         *models.Session
	Invoice         *models.Invoice
	DurationMinutes int
}

// CreateSession validates ownership and temporal validity, snapshots the
// provider rate, and persists session and invoice as one atomic unit.
func (s *SessionsService) CreateSession(ctx context.Context, input CreateSessionInput) (*CreateSessionResult, error) {
	vehicle, err := s.catalog.GetVehicle(ctx, input.VehicleID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.E(apperr.ErrNotFound, "vehicle not found")
	}
	if err != nil {
		return nil, mapStorage(err)
	}
	// A vehicle owned by someone else is indistinguishable from a missing one.
	if vehicle.OwnerUserID != input.UserID {
		return nil, apperr.E(apperr.ErrNotFound, "vehicle not found")
	}

	station, err := s.catalog.GetStation(ctx, input.StationID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.E(apperr.ErrNotFound, "charging station not found")
	}
	if err != nil {
		return nil, mapStorage(err)
	}

	start, err := timeutil.Normalize(input.StartTime)
	if err != nil {
		return nil, apperr.E(apperr.ErrInvalidArgument, "invalid start time")
	}
	end, err := timeutil.Normalize(input.EndTime)
	if err != nil {
		return nil, apperr.E(apperr.ErrInvalidArgument, "invalid end time")
	}
	if !end.After(start) {
		return nil, apperr.E(apperr.ErrInvalidArgument, "end time must be after start time")
	}

	// Rate snapshot: later provider rate changes never touch this invoice.
	amount := billing.Amount(start, end, station.RatePerMinute)

	session := &models.Session{
		UserID:    input.UserID,
		VehicleID: input.VehicleID,
		StationID: input.StationID,
		StartTime: start,
		EndTime:   end,
	}
	created, invoice, err := s.store.CreateWithInvoice(ctx, session, amount)
	if err != nil {
		return nil, mapStorage(err)
	}

	s.invalidateHistory(ctx, input.UserID)

	s.logger.Info("charging session created",
		zap.Int64("session_id", created.ID),
		zap.Int64("user_id", created.UserID),
		zap.Int64("station_id", created.StationID),
		zap.String("amount", invoice.Amount.StringFixed(2)),
	)

	return &CreateSessionResult{
		Session:         created,
		Invoice:         invoice,
		DurationMinutes: billing.DurationMinutes(start, end),
	}, nil
}

// DeleteSession removes the caller's session and its invoice as one unit.
// A session that is missing or owned by another user reports not found.
func (s *SessionsService) DeleteSession(ctx context.Context, sessionID, userID int64) error {
	err := s.store.DeleteWithInvoice(ctx, sessionID, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.E(apperr.ErrNotFound, "charging session not found")
	}
	if err != nil {
		return mapStorage(err)
	}

	s.invalidateHistory(ctx, userID)

	s.logger.Info("charging session deleted",
		zap.Int64("session_id", sessionID),
		zap.Int64("user_id", userID),
	)
	return nil
}

// ListSessionsForUser returns the user's full history, newest start first.
func (s *SessionsService) ListSessionsForUser(ctx context.Context, userID int64) ([]models.SessionWithInvoice, error) {
	if s.history != nil {
		cached, err := s.history.Get(ctx, userID)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("session history cache read failed", zap.Error(err))
		}
	}

	sessions, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, mapStorage(err)
	}

	if s.history != nil {
		if err := s.history.Save(ctx, userID, sessions); err != nil {
			s.logger.Warn("session history cache write failed", zap.Error(err))
		}
	}
	return sessions, nil
}

// ListSessionsForProvider returns every session at the provider's stations.
func (s *SessionsService) ListSessionsForProvider(ctx context.Context, providerID int64) ([]models.SessionWithInvoice, error) {
	sessions, err := s.store.ListByProvider(ctx, providerID)
	if err != nil {
		return nil, mapStorage(err)
	}
	return sessions, nil
}

func (s *SessionsService) invalidateHistory(ctx context.Context, userID int64) {
	if s.history == nil {
		return
	}
	if err := s.history.Invalidate(ctx, userID); err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn("session history cache invalidation failed", zap.Error(err))
	}
}

// mapStorage keeps already-classified errors and reports everything else as
// a retryable unavailability.
func mapStorage(err error) error {
	if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrConflict) {
		return err
	}
	return fmt.Errorf("%w: %v", apperr.ErrUnavailable, err)
}
