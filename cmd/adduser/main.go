package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/apperrors"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/config"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/database"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
)

func main() {
	email := flag.String("email", "", "login email")
	name := flag.String("name", "", "display name")
	role := flag.String("role", models.RoleDriver, "driver or admin")
	password := flag.String("password", "", "initial password")
	flag.Parse()

	user, err := newUser(*email, *name, *role, *password)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.NewStore(db).CreateUser(context.Background(), user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			log.Printf("⚠️  %v", err)
			return
		}
		log.Fatalf("❌ %v", err)
	}
	log.Printf("✅ Created %s user: %s", user.Role, user.Email)
}

// newUser validates the flags and hashes the password
func newUser(email, name, role, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("a valid -email is required")
	}
	if role != models.RoleDriver && role != models.RoleAdmin {
		return nil, fmt.Errorf("-role must be %s or %s", models.RoleDriver, models.RoleAdmin)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("-password must be at least 8 characters")
	}
	if name == "" {
		name = email
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return &models.User{
		ID:       uuid.New().String(),
		Email:    email,
		Password: string(hash),
		Name:     name,
		Role:     role,
		Active:   true,
	}, nil
}
