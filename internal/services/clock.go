package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/apperrors"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/locks"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/platform/obs"
)

// IntervalStore persists time intervals. OpenInterval and CloseInterval return an
// apperrors.ErrConflict error when the row changed underneath them.
type IntervalStore interface {
	GetOpenInterval(ctx context.Context, driverID, workDate string) (*models.TimeInterval, error)
	OpenInterval(ctx context.Context, iv *models.TimeInterval) error
	CloseInterval(ctx context.Context, id string, end, durationSeconds int64) error
}

type clockEvent int

const (
	clockStart clockEvent = iota
	clockStop
)

// nextClockState is the whole machine: start moves to clocked_in, stop to clocked_out,
// and an event that targets the current state changes nothing.
func nextClockState(from models.ClockState, ev clockEvent) (models.ClockState, bool) {
	to := models.ClockStateOut
	if ev == clockStart {
		to = models.ClockStateIn
	}
	return to, to != from
}

func clockStateOf(open *models.TimeInterval) models.ClockState {
	if open != nil {
		return models.ClockStateIn
	}
	return models.ClockStateOut
}

// ClockController opens and closes a driver's time intervals.
// Work on one (driver, work date) is serialised through the Locker.
type ClockController struct {
	store  IntervalStore
	locker locks.Locker
	events Events
	loc    *time.Location
}

func NewClockController(store IntervalStore, locker locks.Locker, events Events, loc *time.Location) *ClockController {
	if events == nil {
		events = NopEvents{}
	}
	return &ClockController{store: store, locker: locker, events: events, loc: loc}
}

// OnInspectionSubmitted applies the clock side effect of an inspection:
// pre-trip clocks in, post-trip clocks out. Repeats are no-ops.
func (c *ClockController) OnInspectionSubmitted(ctx context.Context, driverID string, kind models.InspectionType, workDate string, now int64, inspectionID string) (*models.ClockTransition, error) {
	var ev clockEvent
	switch kind {
	case models.InspectionPreTrip:
		ev = clockStart
	case models.InspectionPostTrip:
		ev = clockStop
	default:
		return nil, apperrors.Validation("invalid inspection type %q", kind)
	}

	var ref *string
	if inspectionID != "" {
		ref = &inspectionID
	}
	return c.transition(ctx, driverID, workDate, ev, now, models.IntervalSourceInspection, ref)
}

// ClockIn opens an interval for today without an inspection
func (c *ClockController) ClockIn(ctx context.Context, driverID string, now time.Time) (*models.ClockTransition, error) {
	return c.transition(ctx, driverID, models.WorkDateFor(now, c.loc), clockStart, now.Unix(), models.IntervalSourceManual, nil)
}

// ClockOut closes today's open interval without an inspection
func (c *ClockController) ClockOut(ctx context.Context, driverID string, now time.Time) (*models.ClockTransition, error) {
	return c.transition(ctx, driverID, models.WorkDateFor(now, c.loc), clockStop, now.Unix(), models.IntervalSourceManual, nil)
}

// CurrentState reports the clock state for the work date and how long the open interval has run
func (c *ClockController) CurrentState(ctx context.Context, driverID, workDate string, now int64) (*models.ClockStatus, error) {
	open, err := c.store.GetOpenInterval(ctx, driverID, workDate)
	if err != nil {
		return nil, err
	}

	status := &models.ClockStatus{
		DriverID:     driverID,
		WorkDate:     workDate,
		State:        clockStateOf(open),
		OpenInterval: open,
	}
	if open != nil {
		status.RunningSeconds = open.Seconds(now)
	}
	return status, nil
}

func (c *ClockController) transition(ctx context.Context, driverID, workDate string, ev clockEvent, now int64, source models.IntervalSource, inspectionID *string) (tr *models.ClockTransition, err error) {
	defer obs.Time(ctx, "clock.transition")(&err)

	if driverID == "" {
		return nil, apperrors.Validation("driver id is required")
	}
	if _, err := models.ParseWorkDate(workDate, time.UTC); err != nil {
		return nil, apperrors.Validation("%v", err)
	}

	tr, err = c.apply(ctx, driverID, workDate, ev, now, source, inspectionID)
	if err != nil {
		return nil, err
	}

	if tr.Changed {
		log.Printf("⏱️  Driver %s %s -> %s (%s)", driverID, tr.From, tr.To, workDate)
		c.events.ClockTransitioned(ctx, *tr)
	}
	return tr, nil
}

func (c *ClockController) apply(ctx context.Context, driverID, workDate string, ev clockEvent, now int64, source models.IntervalSource, inspectionID *string) (*models.ClockTransition, error) {
	unlock, err := c.locker.Lock(ctx, driverID+"|"+workDate)
	if err != nil {
		return nil, fmt.Errorf("failed to lock clock for driver %s: %w", driverID, err)
	}
	defer unlock()

	open, err := c.store.GetOpenInterval(ctx, driverID, workDate)
	if err != nil {
		return nil, err
	}

	from := clockStateOf(open)
	to, changed := nextClockState(from, ev)
	tr := &models.ClockTransition{
		DriverID:  driverID,
		WorkDate:  workDate,
		From:      from,
		To:        from,
		Interval:  open,
		Timestamp: now,
	}
	if !changed {
		return tr, nil
	}

	switch to {
	case models.ClockStateIn:
		iv := &models.TimeInterval{
			ID:           uuid.New().String(),
			DriverID:     driverID,
			WorkDate:     workDate,
			StartTime:    now,
			Source:       source,
			InspectionID: inspectionID,
		}
		if err := c.store.OpenInterval(ctx, iv); err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				return c.settle(ctx, tr)
			}
			return nil, err
		}
		tr.Interval = iv

	case models.ClockStateOut:
		end := now
		duration := max(0, end-open.StartTime)
		if err := c.store.CloseInterval(ctx, open.ID, end, duration); err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				return c.settle(ctx, tr)
			}
			return nil, err
		}
		closed := *open
		closed.EndTime = &end
		closed.DurationSeconds = &duration
		tr.Interval = &closed
	}

	tr.To = to
	tr.Changed = true
	return tr, nil
}

// settle handles a write that lost a race with another instance: whatever is stored now wins
// and the caller sees a no-op.
func (c *ClockController) settle(ctx context.Context, tr *models.ClockTransition) (*models.ClockTransition, error) {
	open, err := c.store.GetOpenInterval(ctx, tr.DriverID, tr.WorkDate)
	if err != nil {
		return nil, err
	}

	state := clockStateOf(open)
	log.Printf("⚠️  Clock write for driver %s lost a race, settled at %s", tr.DriverID, state)

	tr.From = state
	tr.To = state
	tr.Interval = open
	tr.Changed = false
	return tr, nil
}
