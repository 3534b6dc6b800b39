package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/apperrors"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
)

// UpsertDriverLocation replaces the driver's latest known position
func (s *Store) UpsertDriverLocation(ctx context.Context, loc *models.DriverLocation) error {
	loc.UpdatedAt = time.Now().Unix()

	query := `
		INSERT INTO driver_current_location (
			driver_id, latitude, longitude, heading, speed, accuracy, timestamp, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (driver_id) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			heading = EXCLUDED.heading,
			speed = EXCLUDED.speed,
			accuracy = EXCLUDED.accuracy,
			timestamp = EXCLUDED.timestamp,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.DB.ExecContext(ctx, query,
		loc.DriverID, loc.Latitude, loc.Longitude, loc.Heading, loc.Speed, loc.Accuracy, loc.Timestamp, loc.UpdatedAt)
	if err != nil {
		return classify(err, "upsert driver location")
	}
	return nil
}

func (s *Store) GetDriverLocation(ctx context.Context, driverID string) (*models.DriverLocation, error) {
	var loc models.DriverLocation
	query := `SELECT driver_id, latitude, longitude, heading, speed, accuracy, timestamp, updated_at
	          FROM driver_current_location WHERE driver_id = $1`

	if err := s.DB.GetContext(ctx, &loc, query, driverID); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("no location for driver %s", driverID)
		}
		return nil, fmt.Errorf("failed to get driver location: %w", err)
	}
	return &loc, nil
}
