package models

import "encoding/json"

// InspectionType distinguishes the start-of-day and end-of-day vehicle checks
type InspectionType string

const (
	InspectionPreTrip  InspectionType = "pre_trip"
	InspectionPostTrip InspectionType = "post_trip"
)

func (t InspectionType) Valid() bool {
	return t == InspectionPreTrip || t == InspectionPostTrip
}

// Inspection is a submitted vehicle checklist
type Inspection struct {
	ID             string          `json:"id" db:"id"`
	DriverID       string          `json:"driver_id" db:"driver_id"`
	VehicleID      string          `json:"vehicle_id" db:"vehicle_id"`
	InspectionType InspectionType  `json:"inspection_type" db:"inspection_type"`
	WorkDate       string          `json:"work_date" db:"work_date"`
	SubmittedAt    int64           `json:"submitted_at" db:"submitted_at"`
	Odometer       *int64          `json:"odometer,omitempty" db:"odometer"`
	DefectsFound   bool            `json:"defects_found" db:"defects_found"`
	Notes          *string         `json:"notes,omitempty" db:"notes"`
	Checklist      json.RawMessage `json:"checklist" db:"checklist"`
	CreatedAt      int64           `json:"created_at" db:"created_at"`
}

// SubmitInspectionRequest is the request body for POST /api/driver/inspections
type SubmitInspectionRequest struct {
	VehicleID      string          `json:"vehicle_id"`
	InspectionType InspectionType  `json:"inspection_type"`
	Odometer       *int64          `json:"odometer,omitempty"`
	DefectsFound   bool            `json:"defects_found"`
	Notes          *string         `json:"notes,omitempty"`
	Checklist      json.RawMessage `json:"checklist,omitempty"`
}

// InspectionResult is returned after an inspection is stored.
// ClockWarning is set when the inspection saved but the clock could not be updated.
type InspectionResult struct {
	Inspection   *Inspection      `json:"inspection"`
	Clock        *ClockTransition `json:"clock,omitempty"`
	ClockWarning *string          `json:"clock_warning,omitempty"`
}
