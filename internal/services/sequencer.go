package services

import (
	"context"
	"log"
	"strings"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/apperrors"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/platform/obs"
)

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

type StopStore interface {
	GetRoute(ctx context.Context, routeID string) (*models.Route, error)
	GetRouteStopDetails(ctx context.Context, routeID string) ([]models.RouteStopDetail, error)
	AppendRouteStop(ctx context.Context, stop *models.RouteStop) error
	DeleteRouteStop(ctx context.Context, routeID, stopID string) error
	ReplaceRouteStops(ctx context.Context, routeID string, stops []models.RouteStop) error
}

// StopList is an editable, ordered list of stops. Order is the slice order;
// Sequence fields are only rewritten by Renumber.
type StopList []models.RouteStop

// Move swaps the stop with its neighbour in the given direction.
// Moving the first stop up or the last stop down returns the list unchanged.
func (l StopList) Move(stopID string, dir Direction) (StopList, error) {
	if dir != DirectionUp && dir != DirectionDown {
		return nil, apperrors.Validation("direction must be up or down")
	}

	idx := -1
	for i := range l {
		if l[i].ID == stopID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, apperrors.NotFound("stop %s is not in the list", stopID)
	}

	out := make(StopList, len(l))
	copy(out, l)

	target := idx - 1
	if dir == DirectionDown {
		target = idx + 1
	}
	if target < 0 || target >= len(out) {
		return out, nil
	}

	out[idx], out[target] = out[target], out[idx]
	return out, nil
}

// Renumber assigns sequence 1..N in list order
func (l StopList) Renumber() StopList {
	out := make(StopList, len(l))
	copy(out, l)
	for i := range out {
		out[i].Sequence = i + 1
	}
	return out
}

// ResolveAddress picks the address shown to the driver. An admin override always wins;
// otherwise home stops use the student's home and school stops use the school.
func ResolveAddress(d models.RouteStopDetail) string {
	if d.AddressOverridden && d.Address != "" {
		return d.Address
	}
	if d.StopType.IsHome() && d.StudentHomeAddress != nil && *d.StudentHomeAddress != "" {
		return *d.StudentHomeAddress
	}
	if d.StopType.IsSchool() && d.SchoolAddress != nil && *d.SchoolAddress != "" {
		return *d.SchoolAddress
	}
	return d.Address
}

// StopSequencer loads and edits the ordered stops of a route
type StopSequencer struct {
	store StopStore
}

func NewStopSequencer(store StopStore) *StopSequencer {
	return &StopSequencer{store: store}
}

// GetRouteStops returns the route's stops in order with resolved addresses and riders
func (s *StopSequencer) GetRouteStops(ctx context.Context, routeID string) ([]models.StopWithStudents, error) {
	if _, err := s.store.GetRoute(ctx, routeID); err != nil {
		return nil, err
	}

	details, err := s.store.GetRouteStopDetails(ctx, routeID)
	if err != nil {
		return nil, err
	}

	stops := make([]models.StopWithStudents, len(details))
	for i, d := range details {
		stops[i] = models.StopWithStudents{
			RouteStop:       d.RouteStop,
			ResolvedAddress: ResolveAddress(d),
			Students:        d.Riders,
		}
	}
	return stops, nil
}

// AddStop appends a stop at the end of the route
func (s *StopSequencer) AddStop(ctx context.Context, routeID string, req models.AddStopRequest) (stop *models.RouteStop, err error) {
	defer obs.Time(ctx, "stops.add")(&err)

	stop = &models.RouteStop{
		RouteID:     routeID,
		StopType:    req.StopType,
		StudentID:   req.StudentID,
		SchoolID:    req.SchoolID,
		Address:     strings.TrimSpace(req.Address),
		PlannedTime: req.PlannedTime,
		Notes:       req.Notes,
	}
	stop.AddressOverridden = stop.Address != ""

	if err := validateStop(stop); err != nil {
		return nil, err
	}

	if err := s.store.AppendRouteStop(ctx, stop); err != nil {
		return nil, err
	}

	log.Printf("✅ Added %s stop %s to route %s at sequence %d", stop.StopType, stop.ID, routeID, stop.Sequence)
	return stop, nil
}

// RemoveStop deletes a stop; other stops keep their sequence numbers
func (s *StopSequencer) RemoveStop(ctx context.Context, routeID, stopID string) error {
	if err := s.store.DeleteRouteStop(ctx, routeID, stopID); err != nil {
		return err
	}
	log.Printf("🗑️  Removed stop %s from route %s", stopID, routeID)
	return nil
}

// Save stores the list as the route's complete stop order. The client's order is taken as is.
func (s *StopSequencer) Save(ctx context.Context, routeID string, stops []models.RouteStop) (saved []models.StopWithStudents, err error) {
	defer obs.Time(ctx, "stops.save")(&err)

	if len(stops) == 0 {
		return nil, apperrors.Validation("no stops to save")
	}

	current, err := s.store.GetRouteStopDetails(ctx, routeID)
	if err != nil {
		return nil, err
	}
	stored := make(map[string]*models.RouteStopDetail, len(current))
	for i := range current {
		stored[current[i].ID] = &current[i]
	}

	seen := make(map[string]bool, len(stops))
	for i := range stops {
		if id := stops[i].ID; id != "" {
			if seen[id] {
				return nil, apperrors.Validation("stop %s appears more than once", id)
			}
			seen[id] = true
		}
		stops[i].Address = strings.TrimSpace(stops[i].Address)
		stops[i].AddressOverridden = addressOverride(stops[i], stored[stops[i].ID])
		if err := validateStop(&stops[i]); err != nil {
			return nil, err
		}
	}

	ordered := StopList(stops).Renumber()
	if err := s.store.ReplaceRouteStops(ctx, routeID, ordered); err != nil {
		return nil, err
	}

	log.Printf("✅ Saved %d stops for route %s", len(ordered), routeID)
	return s.GetRouteStops(ctx, routeID)
}

// addressOverride decides whether a stop's address was typed by an admin, the same way
// AddStop does: any address on a new stop is an override. For a stored stop, an unchanged
// address keeps its flag and an address equal to the derived one keeps the client's flag.
func addressOverride(stop models.RouteStop, prev *models.RouteStopDetail) bool {
	if stop.Address == "" {
		return false
	}
	if prev == nil {
		return true
	}
	if stop.Address == prev.Address {
		return prev.AddressOverridden || stop.AddressOverridden
	}
	if sameRef(stop.StudentID, prev.StudentID) && sameRef(stop.SchoolID, prev.SchoolID) {
		derived := *prev
		derived.StopType = stop.StopType
		derived.Address = ""
		derived.AddressOverridden = false
		if ResolveAddress(derived) == stop.Address {
			return stop.AddressOverridden
		}
	}
	return true
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func validateStop(stop *models.RouteStop) error {
	if !stop.StopType.Valid() {
		return apperrors.Validation("invalid stop type %q", stop.StopType)
	}
	if stop.StopType.IsHome() && stop.StudentID == nil && stop.Address == "" {
		return apperrors.Validation("%s stop needs a student or an address", stop.StopType)
	}
	if stop.StopType.IsSchool() && stop.SchoolID == nil && stop.Address == "" {
		return apperrors.Validation("%s stop needs a school or an address", stop.StopType)
	}
	return nil
}
