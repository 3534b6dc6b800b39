package database

import (
	"context"
	"time"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
)

// CreateInspection stores a submitted inspection. An unknown driver or vehicle is NotFound.
func (s *Store) CreateInspection(ctx context.Context, in *models.Inspection) error {
	in.CreatedAt = time.Now().Unix()

	query := `
		INSERT INTO inspections (
			id, driver_id, vehicle_id, inspection_type, work_date, submitted_at,
			odometer, defects_found, notes, checklist, created_at
		) VALUES (
			:id, :driver_id, :vehicle_id, :inspection_type, :work_date, :submitted_at,
			:odometer, :defects_found, :notes, :checklist, :created_at
		)
	`
	if _, err := s.DB.NamedExecContext(ctx, query, in); err != nil {
		return classify(err, "create inspection")
	}
	return nil
}
