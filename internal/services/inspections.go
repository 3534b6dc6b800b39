package services

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/apperrors"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
)

type InspectionStore interface {
	VehicleExists(ctx context.Context, vehicleID string) (bool, error)
	CreateInspection(ctx context.Context, in *models.Inspection) error
}

// InspectionService stores vehicle inspections and drives the clock from them
type InspectionService struct {
	store InspectionStore
	clock *ClockController
	loc   *time.Location
}

func NewInspectionService(store InspectionStore, clock *ClockController, loc *time.Location) *InspectionService {
	return &InspectionService{store: store, clock: clock, loc: loc}
}

// Submit validates and stores the inspection, then applies its clock side effect.
// A clock failure does not undo the inspection; it comes back as ClockWarning.
func (s *InspectionService) Submit(ctx context.Context, driverID string, req models.SubmitInspectionRequest, now time.Time) (*models.InspectionResult, error) {
	req.VehicleID = strings.TrimSpace(req.VehicleID)
	if req.VehicleID == "" {
		return nil, apperrors.Validation("vehicle_id is required")
	}
	if !req.InspectionType.Valid() {
		return nil, apperrors.Validation("inspection_type must be pre_trip or post_trip")
	}
	if len(req.Checklist) > 0 && !json.Valid(req.Checklist) {
		return nil, apperrors.Validation("checklist must be valid JSON")
	}

	ok, err := s.store.VehicleExists(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("vehicle %s not found", req.VehicleID)
	}

	checklist := req.Checklist
	if len(checklist) == 0 {
		checklist = json.RawMessage(`{}`)
	}

	inspection := &models.Inspection{
		ID:             uuid.New().String(),
		DriverID:       driverID,
		VehicleID:      req.VehicleID,
		InspectionType: req.InspectionType,
		WorkDate:       models.WorkDateFor(now, s.loc),
		SubmittedAt:    now.Unix(),
		Odometer:       req.Odometer,
		DefectsFound:   req.DefectsFound,
		Notes:          req.Notes,
		Checklist:      checklist,
	}
	if err := s.store.CreateInspection(ctx, inspection); err != nil {
		return nil, err
	}
	log.Printf("✅ Inspection %s (%s) stored for driver %s", inspection.ID, inspection.InspectionType, driverID)

	result := &models.InspectionResult{Inspection: inspection}

	tr, err := s.clock.OnInspectionSubmitted(ctx, driverID, inspection.InspectionType, inspection.WorkDate, inspection.SubmittedAt, inspection.ID)
	if err != nil {
		log.Printf("⚠️  Inspection %s saved but clock update failed: %v", inspection.ID, err)
		warning := "Inspection saved, but your clock status could not be updated. Please tell dispatch."
		result.ClockWarning = &warning
		return result, nil
	}

	result.Clock = tr
	return result, nil
}
