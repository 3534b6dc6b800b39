package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/apperrors"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
	"github.com/Mena-E/transafe-7d-inspections-sub000/pkg/utils"
)

type InspectionSubmitter interface {
	Submit(ctx context.Context, driverID string, req models.SubmitInspectionRequest, now time.Time) (*models.InspectionResult, error)
}

type Clock interface {
	ClockIn(ctx context.Context, driverID string, now time.Time) (*models.ClockTransition, error)
	ClockOut(ctx context.Context, driverID string, now time.Time) (*models.ClockTransition, error)
	CurrentState(ctx context.Context, driverID, workDate string, now int64) (*models.ClockStatus, error)
}

type LocationUpdater interface {
	Update(ctx context.Context, loc *models.DriverLocation) error
}

type TokenRegistrar interface {
	UpsertFCMToken(ctx context.Context, t *models.FCMToken) error
}

// SubmitInspection stores a pre-trip or post-trip inspection and drives the clock
func SubmitInspection(svc InspectionSubmitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /api/driver/inspections")

		userClaims, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req models.SubmitInspectionRequest
		if !decodeBody(w, r, &req) {
			return
		}

		result, err := svc.Submit(r.Context(), userClaims.UserID, req, now())
		if err != nil {
			respondServiceError(w, err, "Failed to submit inspection")
			return
		}

		if result.ClockWarning != nil {
			log.Printf("⚠️  Inspection %s saved with clock warning: %s", result.Inspection.ID, *result.ClockWarning)
		}
		log.Printf("📤 RESPONSE: 201 - %s inspection %s", result.Inspection.InspectionType, result.Inspection.ID)
		respondData(w, http.StatusCreated, result)
	}
}

// GetClockState reports whether the driver is clocked in today and for how long
func GetClockState(clock Clock, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := currentUser(w, r)
		if !ok {
			return
		}

		t := now()
		status, err := clock.CurrentState(r.Context(), userClaims.UserID, models.WorkDateFor(t, loc), t.Unix())
		if err != nil {
			respondServiceError(w, err, "Failed to load clock state")
			return
		}
		respondData(w, http.StatusOK, status)
	}
}

// ClockIn is a manual clock-in, for days without a pre-trip inspection
func ClockIn(clock Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /api/driver/clock/in")

		userClaims, ok := currentUser(w, r)
		if !ok {
			return
		}

		tr, err := clock.ClockIn(r.Context(), userClaims.UserID, now())
		if err != nil {
			respondServiceError(w, err, "Failed to clock in")
			return
		}
		respondData(w, http.StatusOK, tr)
	}
}

func ClockOut(clock Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /api/driver/clock/out")

		userClaims, ok := currentUser(w, r)
		if !ok {
			return
		}

		tr, err := clock.ClockOut(r.Context(), userClaims.UserID, now())
		if err != nil {
			respondServiceError(w, err, "Failed to clock out")
			return
		}
		respondData(w, http.StatusOK, tr)
	}
}

// UpdateLocation stores the driver's latest GPS position
func UpdateLocation(locations LocationUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := currentUser(w, r)
		if !ok {
			return
		}

		var loc models.DriverLocation
		if !decodeBody(w, r, &loc) {
			return
		}
		loc.DriverID = userClaims.UserID

		if err := locations.Update(r.Context(), &loc); err != nil {
			respondServiceError(w, err, "Failed to update location")
			return
		}
		respondData(w, http.StatusOK, loc)
	}
}

// RegisterFCMToken saves a device push token for the current user
func RegisterFCMToken(tokens TokenRegistrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req struct {
			Token      string `json:"token"`
			DeviceType string `json:"device_type"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Token == "" {
			utils.RespondError(w, http.StatusBadRequest, "token is required")
			return
		}
		if req.DeviceType != "ios" && req.DeviceType != "android" {
			respondServiceError(w, apperrors.Validation("device_type must be ios or android"), "")
			return
		}

		t := &models.FCMToken{UserID: userClaims.UserID, Token: req.Token, DeviceType: req.DeviceType}
		if err := tokens.UpsertFCMToken(r.Context(), t); err != nil {
			respondServiceError(w, err, "Failed to save token")
			return
		}

		log.Printf("✅ FCM token registered for %s (%s)", userClaims.Email, req.DeviceType)
		respondData(w, http.StatusOK, t)
	}
}
