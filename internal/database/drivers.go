package database

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/apperrors"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
)

// ListActiveDrivers returns the active driver roster ordered by name
func (s *Store) ListActiveDrivers(ctx context.Context) ([]models.Driver, error) {
	drivers := []models.Driver{}
	query := `SELECT id, name, active FROM users WHERE role = 'driver' AND active = TRUE ORDER BY name ASC`

	if err := s.DB.SelectContext(ctx, &drivers, query); err != nil {
		return nil, fmt.Errorf("failed to list drivers: %w", err)
	}
	return drivers, nil
}

// GetDriversByIDs returns the drivers that exist among ids, active or not
func (s *Store) GetDriversByIDs(ctx context.Context, ids []string) ([]models.Driver, error) {
	drivers := []models.Driver{}
	query := `SELECT id, name, active FROM users WHERE role = 'driver' AND id = ANY($1) ORDER BY name ASC`

	if err := s.DB.SelectContext(ctx, &drivers, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to get drivers: %w", err)
	}
	return drivers, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.DB.GetContext(ctx, &user, "SELECT * FROM users WHERE email = $1", email); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *Store) VehicleExists(ctx context.Context, vehicleID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM vehicles WHERE id = $1 AND active = TRUE)`
	if err := s.DB.GetContext(ctx, &exists, query, vehicleID); err != nil {
		return false, fmt.Errorf("failed to check vehicle: %w", err)
	}
	return exists, nil
}

// CreateUser inserts a user; an existing email is a conflict
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password, name, role, active)
		VALUES (:id, :email, :password, :name, :role, :active)
		ON CONFLICT (email) DO NOTHING
	`
	res, err := s.DB.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.Conflict("user already exists: %s", user.Email)
	}
	return nil
}
