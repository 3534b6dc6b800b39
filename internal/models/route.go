package models

import "strings"

// Route is a recurring bus route
type Route struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	RouteType string `json:"route_type" db:"route_type"` // "am", "pm", "field_trip"
	Active    bool   `json:"active" db:"active"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
	UpdatedAt int64  `json:"updated_at" db:"updated_at"`
}

// StopType represents what happens at a stop
type StopType string

const (
	StopPickupHome    StopType = "pickup_home"
	StopDropoffHome   StopType = "dropoff_home"
	StopPickupSchool  StopType = "pickup_school"
	StopDropoffSchool StopType = "dropoff_school"
	StopOther         StopType = "other"
)

func (t StopType) Valid() bool {
	switch t {
	case StopPickupHome, StopDropoffHome, StopPickupSchool, StopDropoffSchool, StopOther:
		return true
	}
	return false
}

func (t StopType) IsPickup() bool {
	return strings.HasPrefix(string(t), "pickup_")
}

func (t StopType) IsDropoff() bool {
	return strings.HasPrefix(string(t), "dropoff_")
}

func (t StopType) IsHome() bool {
	return strings.HasSuffix(string(t), "_home")
}

func (t StopType) IsSchool() bool {
	return strings.HasSuffix(string(t), "_school")
}

// RouteStop is one ordered stop on a route
type RouteStop struct {
	ID                string   `json:"id" db:"id"`
	RouteID           string   `json:"route_id" db:"route_id"`
	Sequence          int      `json:"sequence" db:"sequence"`
	StopType          StopType `json:"stop_type" db:"stop_type"`
	StudentID         *string  `json:"student_id,omitempty" db:"student_id"`
	SchoolID          *string  `json:"school_id,omitempty" db:"school_id"`
	Address           string   `json:"address" db:"address"`
	AddressOverridden bool     `json:"address_overridden" db:"address_overridden"`
	PlannedTime       *string  `json:"planned_time,omitempty" db:"planned_time"` // HH:MM
	Notes             *string  `json:"notes,omitempty" db:"notes"`
	CreatedAt         int64    `json:"created_at" db:"created_at"`
	UpdatedAt         int64    `json:"updated_at" db:"updated_at"`
}

// StopWithStudents is a stop plus everyone who boards or alights there.
// ResolvedAddress is the display address derived at load time.
type StopWithStudents struct {
	RouteStop
	ResolvedAddress string    `json:"resolved_address"`
	Students        []Student `json:"students"`
}

type Student struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	HomeAddress string `json:"home_address" db:"home_address"`
}

type School struct {
	ID      string `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	Address string `json:"address" db:"address"`
}

// AddStopRequest is the request body for POST /api/manager/routes/{id}/stops
type AddStopRequest struct {
	StopType    StopType `json:"stop_type"`
	StudentID   *string  `json:"student_id,omitempty"`
	SchoolID    *string  `json:"school_id,omitempty"`
	Address     string   `json:"address"`
	PlannedTime *string  `json:"planned_time,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
}

// ReorderStopsRequest is the request body for POST /api/manager/routes/{id}/stops/reorder
type ReorderStopsRequest struct {
	Stops     []RouteStop `json:"stops"`
	StopID    string      `json:"stop_id"`
	Direction string      `json:"direction"` // "up" or "down"
}

// SaveStopsRequest is the request body for PUT /api/manager/routes/{id}/stops
type SaveStopsRequest struct {
	Stops []RouteStop `json:"stops"`
}

// RouteStopDetail is a stored stop joined with the data needed to resolve its address and riders
type RouteStopDetail struct {
	RouteStop
	StudentHomeAddress *string   `db:"student_home_address"`
	SchoolAddress      *string   `db:"school_address"`
	Riders             []Student `db:"-"`
}
