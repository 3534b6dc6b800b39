package models

// DriverLocation is the latest known position of a driver. Only one row per driver is kept.
type DriverLocation struct {
	DriverID  string   `json:"driver_id" db:"driver_id"`
	Latitude  float64  `json:"latitude" db:"latitude"`
	Longitude float64  `json:"longitude" db:"longitude"`
	Heading   *float64 `json:"heading,omitempty" db:"heading"`   // Direction of travel (0-360 degrees)
	Speed     *float64 `json:"speed,omitempty" db:"speed"`       // Speed in m/s
	Accuracy  *float64 `json:"accuracy,omitempty" db:"accuracy"` // GPS accuracy in meters
	Timestamp int64    `json:"timestamp" db:"timestamp"`         // Client-side timestamp
	UpdatedAt int64    `json:"updated_at" db:"updated_at"`
}

// ValidCoordinates reports whether lat/lng are present and within range
func ValidCoordinates(lat, lng *float64) bool {
	if lat == nil || lng == nil {
		return false
	}
	return *lat >= -90 && *lat <= 90 && *lng >= -180 && *lng <= 180
}
