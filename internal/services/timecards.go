package services

import (
	"context"
	"strings"
	"time"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/apperrors"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/platform/obs"
)

const maxTimecardDays = 366

type TimecardStore interface {
	ListActiveDrivers(ctx context.Context) ([]models.Driver, error)
	GetDriversByIDs(ctx context.Context, ids []string) ([]models.Driver, error)
	ListIntervals(ctx context.Context, driverIDs []string, from, to string) ([]models.TimeInterval, error)
}

// TimecardAggregator rebuilds per-day totals from stored intervals on every call
type TimecardAggregator struct {
	store TimecardStore
	loc   *time.Location
}

func NewTimecardAggregator(store TimecardStore, loc *time.Location) *TimecardAggregator {
	return &TimecardAggregator{store: store, loc: loc}
}

// Summarize totals intervals per driver per day over [from, to] inclusive.
// No driver ids means the whole active roster. Every driver gets every day, zero or not;
// open intervals count up to now.
func (a *TimecardAggregator) Summarize(ctx context.Context, driverIDs []string, from, to string, now int64) (cards []models.DriverTimecard, err error) {
	defer obs.Time(ctx, "timecards.summarize")(&err)

	days, err := a.dateRange(from, to)
	if err != nil {
		return nil, err
	}

	drivers, err := a.roster(ctx, driverIDs)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(drivers))
	for i, d := range drivers {
		ids[i] = d.ID
	}

	intervals, err := a.store.ListIntervals(ctx, ids, from, to)
	if err != nil {
		return nil, err
	}

	dayIndex := make(map[string]int, len(days))
	for i, d := range days {
		dayIndex[d] = i
	}

	byDriver := make(map[string]*models.DriverTimecard, len(drivers))
	cards = make([]models.DriverTimecard, len(drivers))
	for i, d := range drivers {
		cards[i] = models.DriverTimecard{
			DriverID:   d.ID,
			DriverName: d.Name,
			Days:       make([]models.DayTimecardSummary, len(days)),
		}
		for j, day := range days {
			cards[i].Days[j].WorkDate = day
		}
		byDriver[d.ID] = &cards[i]
	}

	for i := range intervals {
		iv := &intervals[i]
		card, ok := byDriver[iv.DriverID]
		if !ok {
			continue
		}
		j, ok := dayIndex[iv.WorkDate]
		if !ok {
			continue
		}

		secs := iv.Seconds(now)
		day := &card.Days[j]
		day.TotalSeconds += secs
		day.IntervalCount++
		if iv.IsOpen() {
			day.HasOpenInterval = true
		}
		card.TotalSeconds += secs
	}

	return cards, nil
}

func (a *TimecardAggregator) dateRange(from, to string) ([]string, error) {
	start, err := models.ParseWorkDate(from, a.loc)
	if err != nil {
		return nil, apperrors.Validation("%v", err)
	}
	end, err := models.ParseWorkDate(to, a.loc)
	if err != nil {
		return nil, apperrors.Validation("%v", err)
	}
	if end.Before(start) {
		return nil, apperrors.Validation("start date %s is after end date %s", from, to)
	}

	var days []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if len(days) == maxTimecardDays {
			return nil, apperrors.Validation("date range is longer than %d days", maxTimecardDays)
		}
		days = append(days, d.Format(models.WorkDateLayout))
	}
	return days, nil
}

// roster returns the drivers to report on, in request order for explicit ids
func (a *TimecardAggregator) roster(ctx context.Context, driverIDs []string) ([]models.Driver, error) {
	if len(driverIDs) == 0 {
		return a.store.ListActiveDrivers(ctx)
	}

	seen := make(map[string]bool, len(driverIDs))
	unique := make([]string, 0, len(driverIDs))
	for _, id := range driverIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}

	found, err := a.store.GetDriversByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Driver, len(found))
	for _, d := range found {
		byID[d.ID] = d
	}

	drivers := make([]models.Driver, 0, len(unique))
	var missing []string
	for _, id := range unique {
		d, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		drivers = append(drivers, d)
	}
	if len(missing) > 0 {
		return nil, apperrors.NotFound("unknown driver ids: %s", strings.Join(missing, ", "))
	}
	return drivers, nil
}

// WeekWindow returns the default reporting window containing now: the week starting on startsOn,
// showing displayDays days (5 for a work week, 7 for a full week). A 5-day window always covers Monday to Friday.
func WeekWindow(now time.Time, loc *time.Location, startsOn time.Weekday, displayDays int) (from, to string) {
	start := models.WeekStart(now.In(loc), startsOn)
	if displayDays == 5 && start.Weekday() == time.Sunday {
		start = start.AddDate(0, 0, 1)
	}
	end := start.AddDate(0, 0, displayDays-1)
	return start.Format(models.WorkDateLayout), end.Format(models.WorkDateLayout)
}
