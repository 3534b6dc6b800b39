package models

// AttendanceStatus is the outcome recorded for a student at a stop
type AttendanceStatus string

const (
	AttendancePickedUp   AttendanceStatus = "picked_up"
	AttendanceDroppedOff AttendanceStatus = "dropped_off"
	AttendanceAbsent     AttendanceStatus = "absent"
	AttendanceNoShow     AttendanceStatus = "no_show"
	AttendanceCancelled  AttendanceStatus = "cancelled"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePickedUp, AttendanceDroppedOff, AttendanceAbsent, AttendanceNoShow, AttendanceCancelled:
		return true
	}
	return false
}

// AttendanceRecord is unique per (student, stop, work date); later writes replace earlier ones
type AttendanceRecord struct {
	ID          string           `json:"id" db:"id"`
	StudentID   string           `json:"student_id" db:"student_id"`
	RouteID     string           `json:"route_id" db:"route_id"`
	RouteStopID string           `json:"route_stop_id" db:"route_stop_id"`
	DriverID    string           `json:"driver_id" db:"driver_id"`
	WorkDate    string           `json:"work_date" db:"work_date"`
	Status      AttendanceStatus `json:"status" db:"status"`
	Latitude    *float64         `json:"latitude,omitempty" db:"latitude"`
	Longitude   *float64         `json:"longitude,omitempty" db:"longitude"`
	RecordedAt  int64            `json:"recorded_at" db:"recorded_at"`
}

// RecordAttendanceRequest is the request body for POST /api/routes/{id}/attendance
type RecordAttendanceRequest struct {
	StudentID   string           `json:"student_id"`
	RouteStopID string           `json:"route_stop_id"`
	Status      AttendanceStatus `json:"status"`
	Latitude    *float64         `json:"latitude,omitempty"`
	Longitude   *float64         `json:"longitude,omitempty"`
}

// RouteCompletionState is derived from stops and attendance; never stored
type RouteCompletionState struct {
	RouteID           string `json:"route_id"`
	WorkDate          string `json:"work_date"`
	TotalStudents     int    `json:"total_students"`
	ConfirmedStudents int    `json:"confirmed_students"`
	AllConfirmed      bool   `json:"all_confirmed"`
	Completed         bool   `json:"completed"`
}

// RouteCompletion marks a route finished for a work date
type RouteCompletion struct {
	ID                string `json:"id" db:"id"`
	RouteID           string `json:"route_id" db:"route_id"`
	DriverID          string `json:"driver_id" db:"driver_id"`
	WorkDate          string `json:"work_date" db:"work_date"`
	CompletedAt       int64  `json:"completed_at" db:"completed_at"`
	TotalStudents     int    `json:"total_students" db:"total_students"`
	ConfirmedStudents int    `json:"confirmed_students" db:"confirmed_students"`
}
