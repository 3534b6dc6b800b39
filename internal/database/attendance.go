package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/apperrors"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
)

// CompletionGate decides, from a consistent snapshot, whether a route may be completed
type CompletionGate = func(stops []models.RouteStopDetail, records []models.AttendanceRecord) (models.RouteCompletionState, error)

const attendanceColumns = `id, student_id, route_id, route_stop_id, driver_id, work_date, status,
	latitude, longitude, recorded_at`

// UpsertAttendance stores the record, replacing any earlier one for (student, stop, work date)
func (s *Store) UpsertAttendance(ctx context.Context, rec *models.AttendanceRecord) error {
	query := `
		INSERT INTO attendance_records (` + attendanceColumns + `)
		VALUES (:id, :student_id, :route_id, :route_stop_id, :driver_id, :work_date, :status,
			:latitude, :longitude, :recorded_at)
		ON CONFLICT (student_id, route_stop_id, work_date) DO UPDATE SET
			status = EXCLUDED.status,
			driver_id = EXCLUDED.driver_id,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			recorded_at = EXCLUDED.recorded_at
		RETURNING id
	`
	rows, err := s.DB.NamedQueryContext(ctx, query, rec)
	if err != nil {
		return classify(err, "upsert attendance")
	}
	defer rows.Close()

	// On update the stored row keeps its original id
	if rows.Next() {
		if err := rows.Scan(&rec.ID); err != nil {
			return fmt.Errorf("failed to scan attendance id: %w", err)
		}
	}
	return rows.Err()
}

func (s *Store) ListAttendance(ctx context.Context, routeID, workDate string) ([]models.AttendanceRecord, error) {
	return loadAttendance(ctx, s.DB, routeID, workDate)
}

func loadAttendance(ctx context.Context, q sqlx.QueryerContext, routeID, workDate string) ([]models.AttendanceRecord, error) {
	records := []models.AttendanceRecord{}
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records
	          WHERE route_id = $1 AND work_date = $2`

	if err := sqlx.SelectContext(ctx, q, &records, query, routeID, workDate); err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	return records, nil
}

// GetRouteCompletion returns the completion for the work date, or nil if not completed
func (s *Store) GetRouteCompletion(ctx context.Context, routeID, workDate string) (*models.RouteCompletion, error) {
	var c models.RouteCompletion
	query := `SELECT * FROM route_completions WHERE route_id = $1 AND work_date = $2`

	if err := s.DB.GetContext(ctx, &c, query, routeID, workDate); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get route completion: %w", err)
	}
	return &c, nil
}

// CompleteRoute re-evaluates gate against the stops and attendance read under the route row lock,
// then writes the completion in the same transaction.
func (s *Store) CompleteRoute(ctx context.Context, c *models.RouteCompletion, gate CompletionGate) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockRoute(ctx, tx, c.RouteID); err != nil {
			return err
		}

		var done bool
		if err := tx.GetContext(ctx, &done,
			"SELECT EXISTS(SELECT 1 FROM route_completions WHERE route_id = $1 AND work_date = $2)",
			c.RouteID, c.WorkDate); err != nil {
			return fmt.Errorf("failed to check completion: %w", err)
		}
		if done {
			return apperrors.Conflict("route already completed for %s", c.WorkDate)
		}

		stops, err := loadStopDetails(ctx, tx, c.RouteID)
		if err != nil {
			return err
		}
		records, err := loadAttendance(ctx, tx, c.RouteID, c.WorkDate)
		if err != nil {
			return err
		}

		state, err := gate(stops, records)
		if err != nil {
			return err
		}
		c.TotalStudents = state.TotalStudents
		c.ConfirmedStudents = state.ConfirmedStudents

		query := `
			INSERT INTO route_completions (
				id, route_id, driver_id, work_date, completed_at, total_students, confirmed_students
			) VALUES (
				:id, :route_id, :driver_id, :work_date, :completed_at, :total_students, :confirmed_students
			)
		`
		if _, err := tx.NamedExecContext(ctx, query, c); err != nil {
			return classify(err, "insert route completion")
		}
		return nil
	})
}
