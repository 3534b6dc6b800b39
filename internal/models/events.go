package models

// Event names, also used as AMQP routing keys
const (
	EventInspectionSubmitted = "inspection.submitted"
	EventClockTransition     = "clock.transition"
	EventAttendanceRecorded  = "attendance.recorded"
	EventRouteCompleted      = "route.completed"
)

// InspectionSubmittedMessage is what an external inspection system publishes
type InspectionSubmittedMessage struct {
	DriverID       string         `json:"driver_id"`
	InspectionType InspectionType `json:"inspection_type"`
	SubmittedAt    int64          `json:"submitted_at"`
	InspectionID   string         `json:"inspection_id,omitempty"`
}
