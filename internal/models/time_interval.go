package models

// ClockState is derived from whether an open interval exists for (driver, work date)
type ClockState string

const (
	ClockStateOut ClockState = "clocked_out"
	ClockStateIn  ClockState = "clocked_in"
)

// IntervalSource records what opened an interval
type IntervalSource string

const (
	IntervalSourceInspection IntervalSource = "inspection"
	IntervalSourceManual     IntervalSource = "manual"
)

// TimeInterval is one clocked-in span for a driver on a work date.
// EndTime is nil while the driver is still clocked in.
type TimeInterval struct {
	ID              string         `json:"id" db:"id"`
	DriverID        string         `json:"driver_id" db:"driver_id"`
	WorkDate        string         `json:"work_date" db:"work_date"` // YYYY-MM-DD, operator time zone
	StartTime       int64          `json:"start_time" db:"start_time"`
	EndTime         *int64         `json:"end_time,omitempty" db:"end_time"`
	DurationSeconds *int64         `json:"duration_seconds,omitempty" db:"duration_seconds"`
	Source          IntervalSource `json:"source" db:"source"`
	InspectionID    *string        `json:"inspection_id,omitempty" db:"inspection_id"`
	CreatedAt       int64          `json:"created_at" db:"created_at"`
	UpdatedAt       int64          `json:"updated_at" db:"updated_at"`
}

// IsOpen returns true while the interval has no end
func (i *TimeInterval) IsOpen() bool {
	return i.EndTime == nil
}

// Seconds returns the interval length as of now.
// A stored duration is authoritative; open intervals run until now.
func (i *TimeInterval) Seconds(now int64) int64 {
	if i.EndTime == nil {
		return nonNegative(now - i.StartTime)
	}
	if i.DurationSeconds != nil {
		return *i.DurationSeconds
	}
	return nonNegative(*i.EndTime - i.StartTime)
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// ClockTransition is the outcome of a clock operation
type ClockTransition struct {
	DriverID  string        `json:"driver_id"`
	WorkDate  string        `json:"work_date"`
	From      ClockState    `json:"from"`
	To        ClockState    `json:"to"`
	Changed   bool          `json:"changed"` // false for idempotent no-ops
	Interval  *TimeInterval `json:"interval,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

// ClockStatus is the driver-facing view of the current session
type ClockStatus struct {
	DriverID       string        `json:"driver_id"`
	WorkDate       string        `json:"work_date"`
	State          ClockState    `json:"state"`
	RunningSeconds int64         `json:"running_seconds"`
	OpenInterval   *TimeInterval `json:"open_interval,omitempty"`
}
