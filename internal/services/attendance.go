package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/apperrors"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/database"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/platform/obs"
)

type AttendanceStore interface {
	GetRoute(ctx context.Context, routeID string) (*models.Route, error)
	GetRouteStopDetails(ctx context.Context, routeID string) ([]models.RouteStopDetail, error)
	UpsertAttendance(ctx context.Context, rec *models.AttendanceRecord) error
	ListAttendance(ctx context.Context, routeID, workDate string) ([]models.AttendanceRecord, error)
	GetRouteCompletion(ctx context.Context, routeID, workDate string) (*models.RouteCompletion, error)
	CompleteRoute(ctx context.Context, c *models.RouteCompletion, gate database.CompletionGate) error
}

// AttendanceInput is one status report from a driver
type AttendanceInput struct {
	StudentID   string
	RouteID     string
	RouteStopID string
	DriverID    string
	Status      models.AttendanceStatus
	Latitude    *float64
	Longitude   *float64
}

// AttendanceTracker records per-student outcomes and guards route completion
type AttendanceTracker struct {
	store    AttendanceStore
	location LocationResolver
	events   Events
	loc      *time.Location
	strict   bool
}

func NewAttendanceTracker(store AttendanceStore, location LocationResolver, events Events, loc *time.Location, strict bool) *AttendanceTracker {
	if events == nil {
		events = NopEvents{}
	}
	return &AttendanceTracker{store: store, location: location, events: events, loc: loc, strict: strict}
}

// RecordAttendance upserts the student's status at a stop for today's work date
func (t *AttendanceTracker) RecordAttendance(ctx context.Context, in AttendanceInput, now time.Time) (rec *models.AttendanceRecord, err error) {
	defer obs.Time(ctx, "attendance.record")(&err)

	if !in.Status.Valid() {
		return nil, apperrors.Validation("invalid status %q", in.Status)
	}
	if in.StudentID == "" || in.RouteStopID == "" {
		return nil, apperrors.Validation("student_id and route_stop_id are required")
	}

	stop, err := t.findStop(ctx, in.RouteID, in.RouteStopID)
	if err != nil {
		return nil, err
	}
	if !hasRider(stop, in.StudentID) {
		return nil, apperrors.Validation("student %s does not ride at stop %s", in.StudentID, in.RouteStopID)
	}
	if t.strict {
		if err := checkStatusForStop(stop.StopType, in.Status); err != nil {
			return nil, err
		}
	}

	rec = &models.AttendanceRecord{
		ID:          uuid.New().String(),
		StudentID:   in.StudentID,
		RouteID:     in.RouteID,
		RouteStopID: in.RouteStopID,
		DriverID:    in.DriverID,
		WorkDate:    models.WorkDateFor(now, t.loc),
		Status:      in.Status,
		RecordedAt:  now.Unix(),
	}

	if models.ValidCoordinates(in.Latitude, in.Longitude) {
		rec.Latitude, rec.Longitude = in.Latitude, in.Longitude
	} else if t.location != nil {
		if lat, lng, ok := t.location.Resolve(ctx, in.DriverID); ok {
			rec.Latitude, rec.Longitude = &lat, &lng
		}
	}

	if err := t.store.UpsertAttendance(ctx, rec); err != nil {
		return nil, err
	}

	log.Printf("✅ Attendance: student %s %s at stop %s (route %s)", rec.StudentID, rec.Status, rec.RouteStopID, rec.RouteID)
	t.events.AttendanceRecorded(ctx, *rec)
	return rec, nil
}

func (t *AttendanceTracker) findStop(ctx context.Context, routeID, stopID string) (*models.RouteStopDetail, error) {
	details, err := t.store.GetRouteStopDetails(ctx, routeID)
	if err != nil {
		return nil, err
	}
	for i := range details {
		if details[i].ID == stopID {
			return &details[i], nil
		}
	}
	return nil, apperrors.NotFound("stop %s not found on route %s", stopID, routeID)
}

func hasRider(stop *models.RouteStopDetail, studentID string) bool {
	for _, s := range stop.Riders {
		if s.ID == studentID {
			return true
		}
	}
	return false
}

func checkStatusForStop(stopType models.StopType, status models.AttendanceStatus) error {
	if stopType.IsPickup() && status == models.AttendanceDroppedOff {
		return apperrors.Validation("%s is not allowed at a pickup stop", status)
	}
	if stopType.IsDropoff() && status == models.AttendancePickedUp {
		return apperrors.Validation("%s is not allowed at a drop-off stop", status)
	}
	return nil
}

// ComputeCompletion counts student occurrences (student, stop) and how many have any record.
// A route with no occurrences is complete.
func ComputeCompletion(stops []models.RouteStopDetail, records []models.AttendanceRecord) models.RouteCompletionState {
	type occurrence struct{ studentID, stopID string }

	recorded := make(map[occurrence]bool, len(records))
	for _, r := range records {
		recorded[occurrence{r.StudentID, r.RouteStopID}] = true
	}

	seen := make(map[occurrence]bool)
	var state models.RouteCompletionState
	for _, stop := range stops {
		for _, s := range stop.Riders {
			key := occurrence{s.ID, stop.ID}
			if seen[key] {
				continue
			}
			seen[key] = true
			state.TotalStudents++
			if recorded[key] {
				state.ConfirmedStudents++
			}
		}
	}

	state.AllConfirmed = state.TotalStudents == 0 || state.ConfirmedStudents == state.TotalStudents
	return state
}

// CanComplete reports whether every student occurrence has a status
func CanComplete(stops []models.RouteStopDetail, records []models.AttendanceRecord) bool {
	return ComputeCompletion(stops, records).AllConfirmed
}

// CompletionState reads current stops and attendance for the work date
func (t *AttendanceTracker) CompletionState(ctx context.Context, routeID, workDate string) (*models.RouteCompletionState, error) {
	if _, err := t.store.GetRoute(ctx, routeID); err != nil {
		return nil, err
	}

	stops, err := t.store.GetRouteStopDetails(ctx, routeID)
	if err != nil {
		return nil, err
	}
	records, err := t.store.ListAttendance(ctx, routeID, workDate)
	if err != nil {
		return nil, err
	}
	done, err := t.store.GetRouteCompletion(ctx, routeID, workDate)
	if err != nil {
		return nil, err
	}

	state := ComputeCompletion(stops, records)
	state.RouteID = routeID
	state.WorkDate = workDate
	state.Completed = done != nil
	return &state, nil
}

// MarkRouteComplete re-checks the gate against stored data at the moment of the call
// and records the completion. Fails with a guard error while any student is unconfirmed.
func (t *AttendanceTracker) MarkRouteComplete(ctx context.Context, routeID, driverID, workDate string, now int64) (c *models.RouteCompletion, err error) {
	defer obs.Time(ctx, "route.complete")(&err)

	if _, err := models.ParseWorkDate(workDate, t.loc); err != nil {
		return nil, apperrors.Validation("%v", err)
	}

	c = &models.RouteCompletion{
		ID:          uuid.New().String(),
		RouteID:     routeID,
		DriverID:    driverID,
		WorkDate:    workDate,
		CompletedAt: now,
	}

	gate := func(stops []models.RouteStopDetail, records []models.AttendanceRecord) (models.RouteCompletionState, error) {
		state := ComputeCompletion(stops, records)
		if !state.AllConfirmed {
			return state, apperrors.Guard("%d of %d students confirmed", state.ConfirmedStudents, state.TotalStudents)
		}
		return state, nil
	}

	if err := t.store.CompleteRoute(ctx, c, gate); err != nil {
		return nil, err
	}

	log.Printf("🏁 Route %s completed by driver %s for %s (%d/%d)", routeID, driverID, workDate, c.ConfirmedStudents, c.TotalStudents)
	t.events.RouteCompleted(ctx, *c)
	return c, nil
}
