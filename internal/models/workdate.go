package models

import (
	"fmt"
	"time"
)

const WorkDateLayout = "2006-01-02"

// WorkDateFor returns the calendar day of t in loc
func WorkDateFor(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(WorkDateLayout)
}

// ParseWorkDate parses a YYYY-MM-DD date as midnight in loc
func ParseWorkDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(WorkDateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// WeekStart returns the first day of the week containing t
func WeekStart(t time.Time, startsOn time.Weekday) time.Time {
	offset := (int(t.Weekday()) - int(startsOn) + 7) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
