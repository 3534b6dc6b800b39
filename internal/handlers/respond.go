package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/apperrors"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/middleware"
	"github.com/Mena-E/transafe-7d-inspections-sub000/pkg/utils"
)

// now is replaced in tests
var now = time.Now

// statusFor maps an error kind to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrGuard):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes err as an error envelope. Store failures are
// logged and reported with fallback so internals never reach the client.
func respondServiceError(w http.ResponseWriter, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("❌ Error: %v", err)
		utils.RespondError(w, status, fallback)
		return
	}
	log.Printf("⚠️  %d: %v", status, err)
	utils.RespondError(w, status, apperrors.Message(err, fallback))
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	utils.RespondJSON(w, status, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func currentUser(w http.ResponseWriter, r *http.Request) (middleware.UserClaims, bool) {
	userClaims, ok := middleware.GetUserFromContext(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
	}
	return userClaims, ok
}
