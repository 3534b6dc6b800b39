package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/apperrors"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/middleware"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
	"github.com/Mena-E/transafe-7d-inspections-sub000/pkg/utils"
)

type UserFinder interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

func Login(users UserFinder, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		if !decodeBody(w, r, &req) {
			return
		}

		log.Printf("🔐 Login attempt for: %s", req.Email)

		if jwtSecret == "" {
			log.Println("❌ JWT secret not configured")
			utils.RespondError(w, http.StatusInternalServerError, "Authentication is not configured")
			return
		}

		user, err := users.GetUserByEmail(r.Context(), req.Email)
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				log.Printf("❌ Error loading user: %v", err)
				utils.RespondError(w, http.StatusInternalServerError, "Login failed")
				return
			}
			log.Printf("❌ User not found: %s", req.Email)
			utils.RespondError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			log.Printf("❌ Invalid password for: %s", req.Email)
			utils.RespondError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}

		if !user.Active {
			log.Printf("❌ Inactive account: %s", req.Email)
			utils.RespondError(w, http.StatusForbidden, "Account is inactive")
			return
		}

		token, err := middleware.IssueToken(jwtSecret, middleware.UserClaims{
			UserID: user.ID,
			Email:  user.Email,
			Role:   user.Role,
		}, now())
		if err != nil {
			log.Printf("❌ %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create token")
			return
		}

		log.Printf("✅ Login successful: %s (%s)", user.Email, user.Role)
		respondData(w, http.StatusOK, models.LoginResponse{Token: token, User: user.ToUserResponse()})
	}
}
