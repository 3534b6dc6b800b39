package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/apperrors"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
)

func int64Ptr(v int64) *int64 { return &v }

func seededTimecardStore() *memStore {
	store := newMemStore()
	store.drivers = []models.Driver{
		{ID: "d1", Name: "Alex", Active: true},
		{ID: "d2", Name: "Blake", Active: true},
		{ID: "d3", Name: "Casey", Active: false},
	}
	return store
}

func TestSummarizeIncludesDriversWithNoIntervals(t *testing.T) {
	store := seededTimecardStore()
	agg := NewTimecardAggregator(store, time.UTC)

	cards, err := agg.Summarize(context.Background(), nil, "2024-09-09", "2024-09-15", 0)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	if len(cards) != 2 {
		t.Fatalf("expected the 2 active drivers, got %d", len(cards))
	}
	for _, c := range cards {
		if c.TotalSeconds != 0 {
			t.Errorf("driver %s total = %d, want 0", c.DriverID, c.TotalSeconds)
		}
		if len(c.Days) != 7 {
			t.Errorf("driver %s has %d days, want 7", c.DriverID, len(c.Days))
		}
	}
}

func TestSummarizeTotalsClosedAndOpenIntervals(t *testing.T) {
	store := seededTimecardStore()
	store.intervals = []models.TimeInterval{
		// stored duration is authoritative
		{ID: "a", DriverID: "d1", WorkDate: "2024-09-09", StartTime: 0, EndTime: int64Ptr(4000), DurationSeconds: int64Ptr(3600)},
		// derived from timestamps
		{ID: "b", DriverID: "d1", WorkDate: "2024-09-09", StartTime: 5000, EndTime: int64Ptr(6800)},
		// open
		{ID: "c", DriverID: "d1", WorkDate: "2024-09-10", StartTime: 100000},
		// outside the window
		{ID: "d", DriverID: "d1", WorkDate: "2024-09-16", StartTime: 0, EndTime: int64Ptr(999)},
	}
	agg := NewTimecardAggregator(store, time.UTC)

	cards, err := agg.Summarize(context.Background(), []string{"d1"}, "2024-09-09", "2024-09-15", 100600)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}

	days := cards[0].Days
	if days[0].TotalSeconds != 5400 || days[0].IntervalCount != 2 || days[0].HasOpenInterval {
		t.Errorf("monday = %+v, want 5400s over 2 closed intervals", days[0])
	}
	if days[1].TotalSeconds != 600 || !days[1].HasOpenInterval {
		t.Errorf("tuesday = %+v, want 600s live", days[1])
	}
	if cards[0].TotalSeconds != 6000 {
		t.Errorf("week total = %d, want 6000", cards[0].TotalSeconds)
	}
}

func TestSummarizeOpenIntervalGrowsWithNow(t *testing.T) {
	store := seededTimecardStore()
	store.intervals = []models.TimeInterval{{ID: "a", DriverID: "d1", WorkDate: "2024-09-09", StartTime: 1000}}
	agg := NewTimecardAggregator(store, time.UTC)
	ctx := context.Background()

	var last int64 = -1
	for _, now := range []int64{500, 1000, 1001, 5000, 90000} {
		cards, err := agg.Summarize(ctx, []string{"d1"}, "2024-09-09", "2024-09-09", now)
		if err != nil {
			t.Fatalf("Summarize: %v", err)
		}
		got := cards[0].TotalSeconds
		if got < last {
			t.Fatalf("total went backwards: %d after %d (now=%d)", got, last, now)
		}
		last = got
	}
}

func TestSummarizeUnknownDriver(t *testing.T) {
	agg := NewTimecardAggregator(seededTimecardStore(), time.UTC)

	_, err := agg.Summarize(context.Background(), []string{"d1", "ghost"}, "2024-09-09", "2024-09-15", 0)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSummarizeExplicitInactiveDriver(t *testing.T) {
	agg := NewTimecardAggregator(seededTimecardStore(), time.UTC)

	cards, err := agg.Summarize(context.Background(), []string{"d3"}, "2024-09-09", "2024-09-09", 0)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(cards) != 1 || cards[0].DriverID != "d3" {
		t.Fatalf("explicitly requested inactive driver should be reported, got %+v", cards)
	}
}

func TestSummarizeValidatesRange(t *testing.T) {
	agg := NewTimecardAggregator(seededTimecardStore(), time.UTC)
	ctx := context.Background()

	tests := []struct {
		name     string
		from, to string
	}{
		{"reversed", "2024-09-15", "2024-09-09"},
		{"malformed", "2024-9-9", "2024-09-15"},
		{"too long", "2023-01-01", "2024-12-31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := agg.Summarize(ctx, nil, tt.from, tt.to, 0)
			if !errors.Is(err, apperrors.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if _, err := agg.Summarize(ctx, nil, "2024-01-01", "2024-12-31", 0); err != nil {
		t.Fatalf("366-day leap year range should be accepted: %v", err)
	}
}

// A driver clocks in at 09:00 with a pre-trip, an admin looks at 09:05,
// the driver clocks out at 09:30 with a post-trip, the admin looks again.
func TestInspectionToTimecardScenario(t *testing.T) {
	store := seededTimecardStore()
	clock := newTestClock(store, nil)
	agg := NewTimecardAggregator(store, time.UTC)
	ctx := context.Background()

	at := func(h, m int) int64 { return time.Date(2024, 9, 9, h, m, 0, 0, time.UTC).Unix() }

	if _, err := clock.OnInspectionSubmitted(ctx, "d1", models.InspectionPreTrip, testDate, at(9, 0), ""); err != nil {
		t.Fatalf("pre-trip: %v", err)
	}

	cards, err := agg.Summarize(ctx, []string{"d1"}, testDate, testDate, at(9, 5))
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if cards[0].Days[0].TotalSeconds != 300 || !cards[0].Days[0].HasOpenInterval {
		t.Fatalf("at 09:05 day = %+v, want 300s live", cards[0].Days[0])
	}

	if _, err := clock.OnInspectionSubmitted(ctx, "d1", models.InspectionPostTrip, testDate, at(9, 30), ""); err != nil {
		t.Fatalf("post-trip: %v", err)
	}

	cards, err = agg.Summarize(ctx, []string{"d1"}, testDate, testDate, at(12, 0))
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if cards[0].Days[0].TotalSeconds != 1800 || cards[0].Days[0].HasOpenInterval {
		t.Fatalf("after post-trip day = %+v, want 1800s closed", cards[0].Days[0])
	}
	if cards[0].TotalSeconds != 1800 {
		t.Fatalf("week total = %d, want 1800", cards[0].TotalSeconds)
	}
}

func TestWeekWindow(t *testing.T) {
	wed := time.Date(2024, 9, 11, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		startsOn time.Weekday
		days     int
		from, to string
	}{
		{time.Monday, 7, "2024-09-09", "2024-09-15"},
		{time.Sunday, 7, "2024-09-08", "2024-09-14"},
		{time.Monday, 5, "2024-09-09", "2024-09-13"},
		{time.Sunday, 5, "2024-09-09", "2024-09-13"},
	}
	for _, tt := range tests {
		from, to := WeekWindow(wed, time.UTC, tt.startsOn, tt.days)
		if from != tt.from || to != tt.to {
			t.Errorf("WeekWindow(%s, %d) = %s..%s, want %s..%s", tt.startsOn, tt.days, from, to, tt.from, tt.to)
		}
	}
}
