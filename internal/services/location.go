package services

import (
	"context"
	"log"
	"time"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/apperrors"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
)

type LocationStore interface {
	GetDriverLocation(ctx context.Context, driverID string) (*models.DriverLocation, error)
	UpsertDriverLocation(ctx context.Context, loc *models.DriverLocation) error
}

// LocationResolver gives a best-effort position for a driver
type LocationResolver interface {
	Resolve(ctx context.Context, driverID string) (lat, lng float64, ok bool)
}

// LocationService keeps the latest driver position and answers bounded-time lookups
type LocationService struct {
	store   LocationStore
	timeout time.Duration
}

func NewLocationService(store LocationStore, timeout time.Duration) *LocationService {
	return &LocationService{store: store, timeout: timeout}
}

// Update validates and stores the driver's latest position
func (l *LocationService) Update(ctx context.Context, loc *models.DriverLocation) error {
	if !models.ValidCoordinates(&loc.Latitude, &loc.Longitude) {
		return apperrors.Validation("latitude must be within [-90, 90] and longitude within [-180, 180]")
	}
	if loc.Timestamp == 0 {
		loc.Timestamp = time.Now().Unix()
	}
	return l.store.UpsertDriverLocation(ctx, loc)
}

// Resolve returns the last known position, giving up after the configured timeout
func (l *LocationService) Resolve(ctx context.Context, driverID string) (float64, float64, bool) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	type result struct {
		loc *models.DriverLocation
		err error
	}
	done := make(chan result, 1)
	go func() {
		loc, err := l.store.GetDriverLocation(ctx, driverID)
		done <- result{loc, err}
	}()

	select {
	case <-ctx.Done():
		log.Printf("⚠️  Location lookup for driver %s timed out after %s", driverID, l.timeout)
		return 0, 0, false
	case r := <-done:
		if r.err != nil {
			log.Printf("⚠️  Location lookup for driver %s failed: %v", driverID, r.err)
			return 0, 0, false
		}
		return r.loc.Latitude, r.loc.Longitude, true
	}
}
