package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/apperrors"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/database"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
)

type attendanceKey struct{ student, stop, date string }

// memStore is an in-memory stand-in for database.Store
type memStore struct {
	mu sync.Mutex

	intervals   []models.TimeInterval
	drivers     []models.Driver
	routes      map[string]models.Route
	stops       []models.RouteStopDetail
	attendance  map[attendanceKey]models.AttendanceRecord
	completions map[string]models.RouteCompletion
	vehicles    map[string]bool
	inspections []models.Inspection
	locations   map[string]models.DriverLocation
	tokens      map[string][]string

	openErr       error
	beforeOpen    func(s *memStore) // runs under the store lock before the conflict check
	locationDelay time.Duration
}

func newMemStore() *memStore {
	return &memStore{
		routes:      map[string]models.Route{},
		attendance:  map[attendanceKey]models.AttendanceRecord{},
		completions: map[string]models.RouteCompletion{},
		vehicles:    map[string]bool{},
		locations:   map[string]models.DriverLocation{},
		tokens:      map[string][]string{},
	}
}

// --- intervals ---

func (m *memStore) GetOpenInterval(_ context.Context, driverID, workDate string) (*models.TimeInterval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openLocked(driverID, workDate), nil
}

func (m *memStore) openLocked(driverID, workDate string) *models.TimeInterval {
	for i := range m.intervals {
		iv := m.intervals[i]
		if iv.DriverID == driverID && iv.WorkDate == workDate && iv.EndTime == nil {
			return &iv
		}
	}
	return nil
}

func (m *memStore) OpenInterval(_ context.Context, iv *models.TimeInterval) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.openErr != nil {
		return m.openErr
	}
	if m.beforeOpen != nil {
		m.beforeOpen(m)
	}
	if m.openLocked(iv.DriverID, iv.WorkDate) != nil {
		return apperrors.Conflict("already open")
	}
	m.intervals = append(m.intervals, *iv)
	return nil
}

func (m *memStore) CloseInterval(_ context.Context, id string, end, duration int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.intervals {
		if m.intervals[i].ID == id && m.intervals[i].EndTime == nil {
			m.intervals[i].EndTime = &end
			m.intervals[i].DurationSeconds = &duration
			return nil
		}
	}
	return apperrors.Conflict("already closed")
}

func (m *memStore) ListIntervals(_ context.Context, driverIDs []string, from, to string) ([]models.TimeInterval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := map[string]bool{}
	for _, id := range driverIDs {
		want[id] = true
	}
	var out []models.TimeInterval
	for _, iv := range m.intervals {
		if want[iv.DriverID] && iv.WorkDate >= from && iv.WorkDate <= to {
			out = append(out, iv)
		}
	}
	return out, nil
}

func (m *memStore) openCount(driverID, workDate string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, iv := range m.intervals {
		if iv.DriverID == driverID && iv.WorkDate == workDate && iv.EndTime == nil {
			n++
		}
	}
	return n
}

// --- drivers ---

func (m *memStore) ListActiveDrivers(context.Context) ([]models.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Driver
	for _, d := range m.drivers {
		if d.Active {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) GetDriversByIDs(_ context.Context, ids []string) ([]models.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Driver
	for _, d := range m.drivers {
		for _, id := range ids {
			if d.ID == id {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

// --- routes and stops ---

func (m *memStore) GetRoute(_ context.Context, routeID string) (*models.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.routes[routeID]
	if !ok {
		return nil, apperrors.NotFound("route %s not found", routeID)
	}
	return &r, nil
}

func (m *memStore) GetRouteStopDetails(_ context.Context, routeID string) ([]models.RouteStopDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopsLocked(routeID), nil
}

func (m *memStore) stopsLocked(routeID string) []models.RouteStopDetail {
	out := []models.RouteStopDetail{}
	for _, d := range m.stops {
		if d.RouteID == routeID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

func (m *memStore) AppendRouteStop(_ context.Context, stop *models.RouteStop) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.routes[stop.RouteID]; !ok {
		return apperrors.NotFound("route %s not found", stop.RouteID)
	}
	next := 1
	for _, d := range m.stops {
		if d.RouteID == stop.RouteID && d.Sequence >= next {
			next = d.Sequence + 1
		}
	}
	if stop.ID == "" {
		stop.ID = uuid.New().String()
	}
	stop.Sequence = next
	m.stops = append(m.stops, models.RouteStopDetail{RouteStop: *stop, Riders: ridersFor(*stop)})
	return nil
}

func (m *memStore) DeleteRouteStop(_ context.Context, routeID, stopID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, d := range m.stops {
		if d.ID == stopID && d.RouteID == routeID {
			m.stops = append(m.stops[:i], m.stops[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("stop %s not found", stopID)
}

func (m *memStore) ReplaceRouteStops(_ context.Context, routeID string, stops []models.RouteStop) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.routes[routeID]; !ok {
		return apperrors.NotFound("route %s not found", routeID)
	}

	existing := map[string]models.RouteStopDetail{}
	var others []models.RouteStopDetail
	for _, d := range m.stops {
		if d.RouteID == routeID {
			existing[d.ID] = d
		} else {
			others = append(others, d)
		}
	}

	for _, s := range stops {
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		s.RouteID = routeID
		d := models.RouteStopDetail{RouteStop: s, Riders: ridersFor(s)}
		if prev, ok := existing[s.ID]; ok {
			d.Riders = prev.Riders
			d.StudentHomeAddress = prev.StudentHomeAddress
			d.SchoolAddress = prev.SchoolAddress
		}
		others = append(others, d)
	}
	m.stops = others
	return nil
}

func ridersFor(s models.RouteStop) []models.Student {
	if s.StudentID == nil {
		return []models.Student{}
	}
	return []models.Student{{ID: *s.StudentID, Name: "Student " + *s.StudentID}}
}

// --- attendance ---

func (m *memStore) UpsertAttendance(_ context.Context, rec *models.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := attendanceKey{rec.StudentID, rec.RouteStopID, rec.WorkDate}
	if prev, ok := m.attendance[key]; ok {
		rec.ID = prev.ID
	}
	m.attendance[key] = *rec
	return nil
}

func (m *memStore) ListAttendance(_ context.Context, routeID, workDate string) ([]models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attendanceLocked(routeID, workDate), nil
}

func (m *memStore) attendanceLocked(routeID, workDate string) []models.AttendanceRecord {
	out := []models.AttendanceRecord{}
	for _, r := range m.attendance {
		if r.RouteID == routeID && r.WorkDate == workDate {
			out = append(out, r)
		}
	}
	return out
}

func (m *memStore) GetRouteCompletion(_ context.Context, routeID, workDate string) (*models.RouteCompletion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.completions[routeID+"|"+workDate]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memStore) CompleteRoute(_ context.Context, c *models.RouteCompletion, gate database.CompletionGate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.routes[c.RouteID]; !ok {
		return apperrors.NotFound("route %s not found", c.RouteID)
	}
	key := c.RouteID + "|" + c.WorkDate
	if _, ok := m.completions[key]; ok {
		return apperrors.Conflict("route already completed for %s", c.WorkDate)
	}

	state, err := gate(m.stopsLocked(c.RouteID), m.attendanceLocked(c.RouteID, c.WorkDate))
	if err != nil {
		return err
	}
	c.TotalStudents = state.TotalStudents
	c.ConfirmedStudents = state.ConfirmedStudents
	m.completions[key] = *c
	return nil
}

// --- inspections ---

func (m *memStore) VehicleExists(_ context.Context, vehicleID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vehicles[vehicleID], nil
}

func (m *memStore) CreateInspection(_ context.Context, in *models.Inspection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inspections = append(m.inspections, *in)
	return nil
}

// --- locations and tokens ---

func (m *memStore) GetDriverLocation(ctx context.Context, driverID string) (*models.DriverLocation, error) {
	if m.locationDelay > 0 {
		select {
		case <-time.After(m.locationDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loc, ok := m.locations[driverID]
	if !ok {
		return nil, apperrors.NotFound("no location for driver %s", driverID)
	}
	return &loc, nil
}

func (m *memStore) UpsertDriverLocation(_ context.Context, loc *models.DriverLocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[loc.DriverID] = *loc
	return nil
}

func (m *memStore) GetTokensByRole(_ context.Context, role string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[role], nil
}

func (m *memStore) DeleteFCMTokens(_ context.Context, tokens []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		drop[t] = true
	}
	for role, held := range m.tokens {
		kept := held[:0]
		for _, t := range held {
			if !drop[t] {
				kept = append(kept, t)
			}
		}
		m.tokens[role] = kept
	}
	return nil
}

// recordingEvents captures events for assertions
type recordingEvents struct {
	mu          sync.Mutex
	transitions []models.ClockTransition
	attendance  []models.AttendanceRecord
	completions []models.RouteCompletion
}

func (r *recordingEvents) ClockTransitioned(_ context.Context, tr models.ClockTransition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, tr)
}

func (r *recordingEvents) AttendanceRecorded(_ context.Context, rec models.AttendanceRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attendance = append(r.attendance, rec)
}

func (r *recordingEvents) RouteCompleted(_ context.Context, c models.RouteCompletion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completions = append(r.completions, c)
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }
