package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/apperrors"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
)

const stopColumns = `rs.id, rs.route_id, rs.sequence, rs.stop_type, rs.student_id, rs.school_id,
	rs.address, rs.address_overridden, rs.planned_time, rs.notes, rs.created_at, rs.updated_at`

type stopRider struct {
	RouteStopID string `db:"route_stop_id"`
	models.Student
}

func (s *Store) GetRoute(ctx context.Context, routeID string) (*models.Route, error) {
	var route models.Route
	if err := s.DB.GetContext(ctx, &route, "SELECT * FROM routes WHERE id = $1", routeID); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("route %s not found", routeID)
		}
		return nil, fmt.Errorf("failed to get route: %w", err)
	}
	return &route, nil
}

// GetRouteStopDetails returns the route's stops in sequence order with their riders
func (s *Store) GetRouteStopDetails(ctx context.Context, routeID string) ([]models.RouteStopDetail, error) {
	return loadStopDetails(ctx, s.DB, routeID)
}

func loadStopDetails(ctx context.Context, q sqlx.QueryerContext, routeID string) ([]models.RouteStopDetail, error) {
	details := []models.RouteStopDetail{}
	query := `
		SELECT ` + stopColumns + `,
			st.home_address AS student_home_address,
			sc.address AS school_address
		FROM route_stops rs
		LEFT JOIN students st ON st.id = rs.student_id
		LEFT JOIN schools sc ON sc.id = rs.school_id
		WHERE rs.route_id = $1
		ORDER BY rs.sequence ASC
	`
	if err := sqlx.SelectContext(ctx, q, &details, query, routeID); err != nil {
		return nil, fmt.Errorf("failed to get route stops: %w", err)
	}

	// A stop's riders are its own student plus any siblings linked to it
	var riders []stopRider
	ridersQuery := `
		SELECT x.route_stop_id, s.id, s.name, s.home_address
		FROM (
			SELECT id AS route_stop_id, student_id FROM route_stops
			WHERE route_id = $1 AND student_id IS NOT NULL
			UNION
			SELECT rss.route_stop_id, rss.student_id FROM route_stop_students rss
			JOIN route_stops rs ON rs.id = rss.route_stop_id
			WHERE rs.route_id = $1
		) x
		JOIN students s ON s.id = x.student_id
		ORDER BY s.name ASC
	`
	if err := sqlx.SelectContext(ctx, q, &riders, ridersQuery, routeID); err != nil {
		return nil, fmt.Errorf("failed to get stop riders: %w", err)
	}

	byStop := make(map[string][]models.Student, len(details))
	for _, r := range riders {
		byStop[r.RouteStopID] = append(byStop[r.RouteStopID], r.Student)
	}
	for i := range details {
		details[i].Riders = byStop[details[i].ID]
		if details[i].Riders == nil {
			details[i].Riders = []models.Student{}
		}
	}

	return details, nil
}

// lockRoute takes a row lock on the route for the rest of the transaction
func lockRoute(ctx context.Context, tx *sqlx.Tx, routeID string) error {
	var id string
	if err := tx.GetContext(ctx, &id, "SELECT id FROM routes WHERE id = $1 FOR UPDATE", routeID); err != nil {
		if isNoRows(err) {
			return apperrors.NotFound("route %s not found", routeID)
		}
		return fmt.Errorf("failed to lock route: %w", err)
	}
	return nil
}

// AppendRouteStop inserts a stop after the current last stop (max sequence + 1)
func (s *Store) AppendRouteStop(ctx context.Context, stop *models.RouteStop) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockRoute(ctx, tx, stop.RouteID); err != nil {
			return err
		}

		var next int
		if err := tx.GetContext(ctx, &next,
			"SELECT COALESCE(MAX(sequence), 0) + 1 FROM route_stops WHERE route_id = $1", stop.RouteID); err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}

		if stop.ID == "" {
			stop.ID = uuid.New().String()
		}
		stop.Sequence = next
		return insertStop(ctx, tx, stop)
	})
}

func insertStop(ctx context.Context, tx *sqlx.Tx, stop *models.RouteStop) error {
	now := time.Now().Unix()
	stop.CreatedAt = now
	stop.UpdatedAt = now

	query := `
		INSERT INTO route_stops (
			id, route_id, sequence, stop_type, student_id, school_id,
			address, address_overridden, planned_time, notes, created_at, updated_at
		) VALUES (
			:id, :route_id, :sequence, :stop_type, :student_id, :school_id,
			:address, :address_overridden, :planned_time, :notes, :created_at, :updated_at
		)
	`
	if _, err := tx.NamedExecContext(ctx, query, stop); err != nil {
		return classify(err, "insert route stop")
	}
	return nil
}

// DeleteRouteStop removes a stop. Remaining sequences are left as they are.
func (s *Store) DeleteRouteStop(ctx context.Context, routeID, stopID string) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM route_stops WHERE id = $1 AND route_id = $2", stopID, routeID)
	if err != nil {
		return fmt.Errorf("failed to delete route stop: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound("stop %s not found on route %s", stopID, routeID)
	}
	return nil
}

// ReplaceRouteStops makes the stored stops of a route exactly the given list, in order.
// Sequences are taken from the slice (the caller numbers them). Stops without an id are created,
// stored stops missing from the list are deleted. All or nothing.
func (s *Store) ReplaceRouteStops(ctx context.Context, routeID string, stops []models.RouteStop) error {
	if len(stops) == 0 {
		return apperrors.Validation("no stops to save")
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockRoute(ctx, tx, routeID); err != nil {
			return err
		}

		keep := make([]string, 0, len(stops))
		for i := range stops {
			if stops[i].ID == "" {
				stops[i].ID = uuid.New().String()
			}
			stops[i].RouteID = routeID
			keep = append(keep, stops[i].ID)
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM route_stops WHERE route_id = $1 AND NOT (id = ANY($2))", routeID, pq.Array(keep)); err != nil {
			return fmt.Errorf("failed to remove dropped stops: %w", err)
		}

		now := time.Now().Unix()
		upsert := `
			INSERT INTO route_stops (
				id, route_id, sequence, stop_type, student_id, school_id,
				address, address_overridden, planned_time, notes, created_at, updated_at
			) VALUES (
				:id, :route_id, :sequence, :stop_type, :student_id, :school_id,
				:address, :address_overridden, :planned_time, :notes, :created_at, :updated_at
			)
			ON CONFLICT (id) DO UPDATE SET
				sequence = EXCLUDED.sequence,
				stop_type = EXCLUDED.stop_type,
				student_id = EXCLUDED.student_id,
				school_id = EXCLUDED.school_id,
				address = EXCLUDED.address,
				address_overridden = EXCLUDED.address_overridden,
				planned_time = EXCLUDED.planned_time,
				notes = EXCLUDED.notes,
				updated_at = EXCLUDED.updated_at
			WHERE route_stops.route_id = EXCLUDED.route_id
		`
		for i := range stops {
			if stops[i].CreatedAt == 0 {
				stops[i].CreatedAt = now
			}
			stops[i].UpdatedAt = now

			res, err := tx.NamedExecContext(ctx, upsert, &stops[i])
			if err != nil {
				return classify(err, "save stop "+stops[i].ID)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read rows affected: %w", err)
			}
			if n == 0 {
				return apperrors.Validation("stop %s belongs to another route", stops[i].ID)
			}
		}

		return nil
	})
}
