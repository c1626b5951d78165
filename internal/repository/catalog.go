package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"evmarket/internal/apperr"
	"evmarket/internal/models"
)

// CatalogRepository reads the externally managed vehicle, station and
// provider tables. This service never writes them.
type CatalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository returns repository.
func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// GetVehicle returns the vehicle's ownership record.
func (r *CatalogRepository) GetVehicle(ctx context.Context, vehicleID int64) (*models.Vehicle, error) {
	const query = `SELECT id, user_id FROM vehicles WHERE id = $1`

	var v models.Vehicle
	err := r.db.QueryRowContext(ctx, query, vehicleID).Scan(&v.ID, &v.OwnerUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: vehicle: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: vehicle: %w", err)
	}
	return &v, nil
}

// GetStation returns the station joined with its provider's current
// per-minute rate. Callers snapshot the rate at session-creation time.
func (r *CatalogRepository) GetStation(ctx context.Context, stationID int64) (*models.Station, error) {
	const query = `
		SELECT st.id, st.provider_id, p.price_per_minute
		FROM charging_stations st
		JOIN providers p ON p.id = st.provider_id
		WHERE st.id = $1
	`
	var s models.Station
	err := r.db.QueryRowContext(ctx, query, stationID).Scan(&s.ID, &s.ProviderID, &s.RatePerMinute)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: station: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: station: %w", err)
	}
	return &s, nil
}

// ProviderIDForUser maps an authenticated user to the provider they operate.
func (r *CatalogRepository) ProviderIDForUser(ctx context.Context, userID int64) (int64, error) {
	const query = `SELECT id FROM providers WHERE user_id = $1`

	var providerID int64
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&providerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("catalog: provider: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("catalog: provider: %w", err)
	}
	return providerID, nil
}
