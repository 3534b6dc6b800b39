package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/apperrors"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/services"
)

type Sequencer interface {
	GetRouteStops(ctx context.Context, routeID string) ([]models.StopWithStudents, error)
	AddStop(ctx context.Context, routeID string, req models.AddStopRequest) (*models.RouteStop, error)
	RemoveStop(ctx context.Context, routeID, stopID string) error
	Save(ctx context.Context, routeID string, stops []models.RouteStop) ([]models.StopWithStudents, error)
}

type Attendance interface {
	RecordAttendance(ctx context.Context, in services.AttendanceInput, now time.Time) (*models.AttendanceRecord, error)
	CompletionState(ctx context.Context, routeID, workDate string) (*models.RouteCompletionState, error)
	MarkRouteComplete(ctx context.Context, routeID, driverID, workDate string, now int64) (*models.RouteCompletion, error)
}

// GetRouteStops returns the ordered stops with resolved addresses and riders
func GetRouteStops(seq Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routeID := chi.URLParam(r, "id")
		log.Printf("📥 REQUEST: GET /api/routes/%s/stops", routeID)

		stops, err := seq.GetRouteStops(r.Context(), routeID)
		if err != nil {
			respondServiceError(w, err, "Failed to fetch stops")
			return
		}

		log.Printf("📤 RESPONSE: 200 - Found %d stops", len(stops))
		respondData(w, http.StatusOK, stops)
	}
}

func AddStop(seq Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routeID := chi.URLParam(r, "id")
		log.Printf("📥 REQUEST: POST /api/manager/routes/%s/stops", routeID)

		var req models.AddStopRequest
		if !decodeBody(w, r, &req) {
			return
		}

		stop, err := seq.AddStop(r.Context(), routeID, req)
		if err != nil {
			respondServiceError(w, err, "Failed to add stop")
			return
		}
		respondData(w, http.StatusCreated, stop)
	}
}

func RemoveStop(seq Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routeID := chi.URLParam(r, "id")
		stopID := chi.URLParam(r, "stopId")
		log.Printf("📥 REQUEST: DELETE /api/manager/routes/%s/stops/%s", routeID, stopID)

		if err := seq.RemoveStop(r.Context(), routeID, stopID); err != nil {
			respondServiceError(w, err, "Failed to remove stop")
			return
		}
		respondData(w, http.StatusOK, map[string]string{"id": stopID})
	}
}

// ReorderStops moves one stop up or down in the given list without saving.
// When the body carries no list the route's current order is used.
func ReorderStops(seq Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routeID := chi.URLParam(r, "id")
		log.Printf("📥 REQUEST: POST /api/manager/routes/%s/stops/reorder", routeID)

		var req models.ReorderStopsRequest
		if !decodeBody(w, r, &req) {
			return
		}

		list := services.StopList(req.Stops)
		if len(list) == 0 {
			current, err := seq.GetRouteStops(r.Context(), routeID)
			if err != nil {
				respondServiceError(w, err, "Failed to fetch stops")
				return
			}
			for _, s := range current {
				list = append(list, s.RouteStop)
			}
		}

		moved, err := list.Move(req.StopID, services.Direction(req.Direction))
		if err != nil {
			respondServiceError(w, err, "Failed to reorder stops")
			return
		}
		respondData(w, http.StatusOK, moved)
	}
}

// SaveStops persists the client's order, renumbering from 1
func SaveStops(seq Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routeID := chi.URLParam(r, "id")
		log.Printf("📥 REQUEST: PUT /api/manager/routes/%s/stops", routeID)

		var req models.SaveStopsRequest
		if !decodeBody(w, r, &req) {
			return
		}

		saved, err := seq.Save(r.Context(), routeID, req.Stops)
		if err != nil {
			respondServiceError(w, err, "Failed to save stops")
			return
		}

		log.Printf("📤 RESPONSE: 200 - Saved %d stops", len(saved))
		respondData(w, http.StatusOK, saved)
	}
}

// RecordAttendance records one student's status at a stop
func RecordAttendance(tracker Attendance) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routeID := chi.URLParam(r, "id")
		log.Printf("📥 REQUEST: POST /api/routes/%s/attendance", routeID)

		userClaims, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req models.RecordAttendanceRequest
		if !decodeBody(w, r, &req) {
			return
		}

		rec, err := tracker.RecordAttendance(r.Context(), services.AttendanceInput{
			StudentID:   req.StudentID,
			RouteID:     routeID,
			RouteStopID: req.RouteStopID,
			DriverID:    userClaims.UserID,
			Status:      req.Status,
			Latitude:    req.Latitude,
			Longitude:   req.Longitude,
		}, now())
		if err != nil {
			respondServiceError(w, err, "Failed to record attendance")
			return
		}
		respondData(w, http.StatusOK, rec)
	}
}

// GetCompletionState reports how many students are confirmed for ?date (default today)
func GetCompletionState(tracker Attendance, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routeID := chi.URLParam(r, "id")

		workDate, err := workDateParam(r, loc)
		if err != nil {
			respondServiceError(w, err, "")
			return
		}

		state, err := tracker.CompletionState(r.Context(), routeID, workDate)
		if err != nil {
			respondServiceError(w, err, "Failed to load completion state")
			return
		}
		respondData(w, http.StatusOK, state)
	}
}

// CompleteRoute marks today's run finished once every student is confirmed
func CompleteRoute(tracker Attendance, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routeID := chi.URLParam(r, "id")
		log.Printf("📥 REQUEST: POST /api/routes/%s/complete", routeID)

		userClaims, ok := currentUser(w, r)
		if !ok {
			return
		}

		t := now()
		completion, err := tracker.MarkRouteComplete(r.Context(), routeID, userClaims.UserID, models.WorkDateFor(t, loc), t.Unix())
		if err != nil {
			respondServiceError(w, err, "Failed to complete route")
			return
		}

		log.Printf("✅ Route %s completed by %s", routeID, userClaims.Email)
		respondData(w, http.StatusOK, completion)
	}
}

func workDateParam(r *http.Request, loc *time.Location) (string, error) {
	date := r.URL.Query().Get("date")
	if date == "" {
		return models.WorkDateFor(now(), loc), nil
	}
	if _, err := models.ParseWorkDate(date, loc); err != nil {
		return "", apperrors.Validation("date must be YYYY-MM-DD")
	}
	return date, nil
}
