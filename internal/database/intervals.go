package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/apperrors"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
)

const intervalColumns = `id, driver_id, work_date, start_time, end_time, duration_seconds,
	source, inspection_id, created_at, updated_at`

// GetOpenInterval returns the open interval for a driver on a work date, or nil if clocked out
func (s *Store) GetOpenInterval(ctx context.Context, driverID, workDate string) (*models.TimeInterval, error) {
	var iv models.TimeInterval
	query := `SELECT ` + intervalColumns + ` FROM time_intervals
	          WHERE driver_id = $1 AND work_date = $2 AND end_time IS NULL`

	if err := s.DB.GetContext(ctx, &iv, query, driverID, workDate); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open interval: %w", err)
	}
	return &iv, nil
}

// OpenInterval inserts an open interval. Returns a conflict error if one is already open for the same key.
func (s *Store) OpenInterval(ctx context.Context, iv *models.TimeInterval) error {
	now := time.Now().Unix()
	iv.CreatedAt = now
	iv.UpdatedAt = now

	query := `
		INSERT INTO time_intervals (id, driver_id, work_date, start_time, source, inspection_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (driver_id, work_date) WHERE end_time IS NULL DO NOTHING
	`
	res, err := s.DB.ExecContext(ctx, query,
		iv.ID, iv.DriverID, iv.WorkDate, iv.StartTime, iv.Source, iv.InspectionID, iv.CreatedAt, iv.UpdatedAt)
	if err != nil {
		return classify(err, "open interval")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.Conflict("driver already has an open interval for %s", iv.WorkDate)
	}
	return nil
}

// CloseInterval sets end and duration on an interval that is still open.
// Returns a conflict error if it was closed concurrently.
func (s *Store) CloseInterval(ctx context.Context, id string, end, durationSeconds int64) error {
	query := `
		UPDATE time_intervals
		SET end_time = $2, duration_seconds = $3, updated_at = $4
		WHERE id = $1 AND end_time IS NULL
	`
	res, err := s.DB.ExecContext(ctx, query, id, end, durationSeconds, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to close interval: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.Conflict("interval %s is already closed", id)
	}
	return nil
}

// ListIntervals returns intervals for the given drivers with work_date in [from, to] inclusive
func (s *Store) ListIntervals(ctx context.Context, driverIDs []string, from, to string) ([]models.TimeInterval, error) {
	intervals := []models.TimeInterval{}
	if len(driverIDs) == 0 {
		return intervals, nil
	}

	query := `SELECT ` + intervalColumns + ` FROM time_intervals
	          WHERE driver_id = ANY($1) AND work_date BETWEEN $2 AND $3
	          ORDER BY driver_id, start_time ASC`

	if err := s.DB.SelectContext(ctx, &intervals, query, pq.Array(driverIDs), from, to); err != nil {
		return nil, fmt.Errorf("failed to list intervals: %w", err)
	}
	return intervals, nil
}
