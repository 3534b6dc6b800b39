package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/apperrors"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
)

func newInspectionFixture() (*memStore, *InspectionService) {
	store := newMemStore()
	store.vehicles["v1"] = true
	clock := newTestClock(store, nil)
	return store, NewInspectionService(store, clock, time.UTC)
}

func TestSubmitPreTripClocksIn(t *testing.T) {
	store, svc := newInspectionFixture()
	now := time.Date(2024, 9, 9, 9, 0, 0, 0, time.UTC)

	res, err := svc.Submit(context.Background(), "d1", models.SubmitInspectionRequest{
		VehicleID:      "v1",
		InspectionType: models.InspectionPreTrip,
		Checklist:      json.RawMessage(`{"brakes":"ok","lights":"ok"}`),
	}, now)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if res.ClockWarning != nil {
		t.Fatalf("unexpected clock warning: %s", *res.ClockWarning)
	}
	if res.Clock == nil || res.Clock.To != models.ClockStateIn {
		t.Fatalf("expected clocked_in, got %+v", res.Clock)
	}
	if res.Inspection.WorkDate != "2024-09-09" {
		t.Fatalf("work date = %s", res.Inspection.WorkDate)
	}
	if n := store.openCount("d1", "2024-09-09"); n != 1 {
		t.Fatalf("expected 1 open interval, got %d", n)
	}
}

func TestSubmitValidatesBeforeWriting(t *testing.T) {
	store, svc := newInspectionFixture()
	ctx := context.Background()
	now := time.Now()

	tests := []struct {
		name string
		req  models.SubmitInspectionRequest
		kind error
	}{
		{"missing vehicle", models.SubmitInspectionRequest{InspectionType: models.InspectionPreTrip}, apperrors.ErrValidation},
		{"bad type", models.SubmitInspectionRequest{VehicleID: "v1", InspectionType: "walkaround"}, apperrors.ErrValidation},
		{"bad checklist", models.SubmitInspectionRequest{VehicleID: "v1", InspectionType: models.InspectionPreTrip, Checklist: json.RawMessage(`{`)}, apperrors.ErrValidation},
		{"unknown vehicle", models.SubmitInspectionRequest{VehicleID: "v9", InspectionType: models.InspectionPreTrip}, apperrors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Submit(ctx, "d1", tt.req, now); !errors.Is(err, tt.kind) {
				t.Fatalf("expected %v, got %v", tt.kind, err)
			}
		})
	}

	if len(store.inspections) != 0 || len(store.intervals) != 0 {
		t.Fatalf("rejected submissions must not write anything")
	}
}

func TestSubmitKeepsInspectionWhenClockFails(t *testing.T) {
	store, svc := newInspectionFixture()
	store.openErr = errors.New("connection reset")

	res, err := svc.Submit(context.Background(), "d1", models.SubmitInspectionRequest{
		VehicleID:      "v1",
		InspectionType: models.InspectionPreTrip,
	}, time.Now())
	if err != nil {
		t.Fatalf("clock failure must not fail the submission: %v", err)
	}
	if res.ClockWarning == nil {
		t.Fatalf("expected a clock warning")
	}
	if len(store.inspections) != 1 {
		t.Fatalf("inspection should be stored, have %d", len(store.inspections))
	}
	if string(store.inspections[0].Checklist) != "{}" {
		t.Fatalf("empty checklist should be stored as {}, got %s", store.inspections[0].Checklist)
	}
}
