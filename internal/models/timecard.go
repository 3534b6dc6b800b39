package models

// DayTimecardSummary totals one driver's intervals for one calendar day
type DayTimecardSummary struct {
	WorkDate        string `json:"work_date"`
	TotalSeconds    int64  `json:"total_seconds"`
	IntervalCount   int    `json:"interval_count"`
	HasOpenInterval bool   `json:"has_open_interval"`
}

// DriverTimecard is a driver's summary over a date range
type DriverTimecard struct {
	DriverID     string               `json:"driver_id"`
	DriverName   string               `json:"driver_name"`
	Days         []DayTimecardSummary `json:"days"`
	TotalSeconds int64                `json:"total_seconds"`
}
