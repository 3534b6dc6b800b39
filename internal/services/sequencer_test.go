package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/apperrors"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
)

func stopIDs(stops []models.RouteStop) []string {
	ids := make([]string, len(stops))
	for i, s := range stops {
		ids[i] = s.ID
	}
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func threeStops() StopList {
	return StopList{
		{ID: "a", Sequence: 1, StopType: models.StopOther, Address: "1 A St"},
		{ID: "b", Sequence: 2, StopType: models.StopOther, Address: "2 B St"},
		{ID: "c", Sequence: 3, StopType: models.StopOther, Address: "3 C St"},
	}
}

func TestStopListMove(t *testing.T) {
	tests := []struct {
		name string
		id   string
		dir  Direction
		want []string
	}{
		{"middle up", "b", DirectionUp, []string{"b", "a", "c"}},
		{"middle down", "b", DirectionDown, []string{"a", "c", "b"}},
		{"first up is a no-op", "a", DirectionUp, []string{"a", "b", "c"}},
		{"last down is a no-op", "c", DirectionDown, []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list := threeStops()
			got, err := list.Move(tt.id, tt.dir)
			if err != nil {
				t.Fatalf("Move: %v", err)
			}
			if ids := stopIDs(got); !equalIDs(ids, tt.want) {
				t.Fatalf("order = %v, want %v", ids, tt.want)
			}
			if ids := stopIDs(list); !equalIDs(ids, []string{"a", "b", "c"}) {
				t.Fatalf("Move must not modify its receiver, got %v", ids)
			}
		})
	}
}

func TestStopListMoveErrors(t *testing.T) {
	if _, err := threeStops().Move("zz", DirectionUp); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("unknown stop: expected not found, got %v", err)
	}
	if _, err := threeStops().Move("a", "sideways"); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("bad direction: expected validation error, got %v", err)
	}
}

func TestStopListRenumber(t *testing.T) {
	list := StopList{{ID: "x", Sequence: 7}, {ID: "y", Sequence: 2}, {ID: "z", Sequence: 40}}

	got := list.Renumber()
	for i, s := range got {
		if s.Sequence != i+1 {
			t.Errorf("stop %s sequence = %d, want %d", s.ID, s.Sequence, i+1)
		}
	}
	if list[0].Sequence != 7 {
		t.Errorf("Renumber must not modify its receiver")
	}
}

func newSequencerStore() *memStore {
	store := newMemStore()
	store.routes["r1"] = models.Route{ID: "r1", Name: "AM North", Active: true}
	for _, s := range threeStops() {
		s.RouteID = "r1"
		store.stops = append(store.stops, models.RouteStopDetail{RouteStop: s, Riders: []models.Student{}})
	}
	return store
}

func TestAddStopAppendsAfterLast(t *testing.T) {
	store := newSequencerStore()
	seq := NewStopSequencer(store)
	ctx := context.Background()

	// Removing a middle stop leaves a gap; the next stop still goes after the highest sequence.
	if err := seq.RemoveStop(ctx, "r1", "b"); err != nil {
		t.Fatalf("RemoveStop: %v", err)
	}

	stop, err := seq.AddStop(ctx, "r1", models.AddStopRequest{StopType: models.StopPickupHome, StudentID: strPtr("s1")})
	if err != nil {
		t.Fatalf("AddStop: %v", err)
	}
	if stop.Sequence != 4 {
		t.Fatalf("sequence = %d, want 4", stop.Sequence)
	}

	stops, err := seq.GetRouteStops(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRouteStops: %v", err)
	}
	var seqs []int
	for _, s := range stops {
		seqs = append(seqs, s.Sequence)
	}
	if len(seqs) != 3 || seqs[0] != 1 || seqs[1] != 3 || seqs[2] != 4 {
		t.Fatalf("sequences = %v, want [1 3 4] (no compaction)", seqs)
	}
}

func TestAddStopValidation(t *testing.T) {
	seq := NewStopSequencer(newSequencerStore())
	ctx := context.Background()

	if _, err := seq.AddStop(ctx, "r1", models.AddStopRequest{StopType: "teleport", Address: "x"}); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("bad stop type: expected validation error, got %v", err)
	}
	if _, err := seq.AddStop(ctx, "r1", models.AddStopRequest{StopType: models.StopDropoffSchool}); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("school stop without school: expected validation error, got %v", err)
	}
	if _, err := seq.AddStop(ctx, "missing", models.AddStopRequest{StopType: models.StopOther, Address: "x"}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("unknown route: expected not found, got %v", err)
	}
}

func TestSaveRenumbersInClientOrder(t *testing.T) {
	store := newSequencerStore()
	seq := NewStopSequencer(store)
	ctx := context.Background()

	current, _ := seq.GetRouteStops(ctx, "r1")
	a, c := current[0].RouteStop, current[2].RouteStop

	// c moves to the front, b is dropped, a new stop is added at the end
	saved, err := seq.Save(ctx, "r1", []models.RouteStop{
		c,
		a,
		{StopType: models.StopOther, Address: "9 New Rd"},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if len(saved) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(saved))
	}
	if saved[0].ID != "c" || saved[1].ID != "a" || saved[2].ID == "" {
		t.Fatalf("order = %s,%s,%s, want c,a,<new>", saved[0].ID, saved[1].ID, saved[2].ID)
	}
	for i, s := range saved {
		if s.Sequence != i+1 {
			t.Errorf("stop %s sequence = %d, want %d", s.ID, s.Sequence, i+1)
		}
	}
}

func TestSaveMarksTypedAddressesAsOverrides(t *testing.T) {
	store := newSequencerStore()
	home := "12 Oak Ln"
	store.stops = append(store.stops, models.RouteStopDetail{
		RouteStop:          models.RouteStop{ID: "h", RouteID: "r1", Sequence: 4, StopType: models.StopPickupHome, StudentID: strPtr("s1")},
		StudentHomeAddress: &home,
		Riders:             []models.Student{{ID: "s1"}},
	})
	seq := NewStopSequencer(store)
	ctx := context.Background()

	current, _ := seq.GetRouteStops(ctx, "r1")
	a, h := current[0].RouteStop, current[3].RouteStop
	h.Address = current[3].ResolvedAddress // client echoes the derived address

	saved, err := seq.Save(ctx, "r1", []models.RouteStop{
		a,
		h,
		{StopType: models.StopPickupHome, StudentID: strPtr("s2"), Address: "Side door, Elm Ave"},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved[0].AddressOverridden {
		t.Errorf("unchanged address on %s became an override", saved[0].ID)
	}
	if saved[1].AddressOverridden || saved[1].ResolvedAddress != home {
		t.Errorf("derived address echoed back: overridden=%v resolved=%q", saved[1].AddressOverridden, saved[1].ResolvedAddress)
	}
	if !saved[2].AddressOverridden || saved[2].ResolvedAddress != "Side door, Elm Ave" {
		t.Errorf("new stop with typed address: overridden=%v resolved=%q", saved[2].AddressOverridden, saved[2].ResolvedAddress)
	}

	// Editing the address of a stored home stop without sending the flag still overrides
	edited := saved[1].RouteStop
	edited.Address = "Back gate, 5th St"
	edited.AddressOverridden = false
	saved, err = seq.Save(ctx, "r1", []models.RouteStop{saved[0].RouteStop, edited, saved[2].RouteStop})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !saved[1].AddressOverridden || saved[1].ResolvedAddress != "Back gate, 5th St" {
		t.Fatalf("edited address: overridden=%v resolved=%q", saved[1].AddressOverridden, saved[1].ResolvedAddress)
	}

	// Reloading keeps the typed address instead of the student's home
	stops, _ := seq.GetRouteStops(ctx, "r1")
	if stops[1].ResolvedAddress != "Back gate, 5th St" {
		t.Fatalf("reloaded address = %q", stops[1].ResolvedAddress)
	}
}

func TestSaveRejectsEmptyAndDuplicates(t *testing.T) {
	seq := NewStopSequencer(newSequencerStore())
	ctx := context.Background()

	_, err := seq.Save(ctx, "r1", nil)
	if !errors.Is(err, apperrors.ErrValidation) || apperrors.Message(err, "") != "no stops to save" {
		t.Errorf("empty save: got %v", err)
	}

	dup := threeStops()
	dup[2].ID = "a"
	if _, err := seq.Save(ctx, "r1", dup); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("duplicate ids: expected validation error, got %v", err)
	}
}

func TestResolveAddress(t *testing.T) {
	home := "14 Birch Ln"
	school := "1200 Oak St"

	tests := []struct {
		name string
		stop models.RouteStopDetail
		want string
	}{
		{
			"override wins",
			models.RouteStopDetail{
				RouteStop:          models.RouteStop{StopType: models.StopPickupHome, Address: "Back gate", AddressOverridden: true},
				StudentHomeAddress: &home,
			},
			"Back gate",
		},
		{
			"home stop uses student home",
			models.RouteStopDetail{
				RouteStop:          models.RouteStop{StopType: models.StopDropoffHome, Address: "stale"},
				StudentHomeAddress: &home,
			},
			home,
		},
		{
			"school stop uses school",
			models.RouteStopDetail{
				RouteStop:     models.RouteStop{StopType: models.StopPickupSchool},
				SchoolAddress: &school,
			},
			school,
		},
		{
			"other stop uses stored",
			models.RouteStopDetail{
				RouteStop:          models.RouteStop{StopType: models.StopOther, Address: "Depot"},
				StudentHomeAddress: &home,
			},
			"Depot",
		},
		{
			"home stop without student falls back to stored",
			models.RouteStopDetail{RouteStop: models.RouteStop{StopType: models.StopPickupHome, Address: "Corner"}},
			"Corner",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveAddress(tt.stop); got != tt.want {
				t.Errorf("ResolveAddress = %q, want %q", got, tt.want)
			}
		})
	}
}
