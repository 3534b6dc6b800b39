package database

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

func SeedUsers(db *sqlx.DB) error {
	// Check if users already exist
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Users already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding test users...")

	driverPassword, err := bcrypt.GenerateFromPassword([]byte("driver123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	adminPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	users := []map[string]interface{}{
		{"id": uuid.New().String(), "email": "driver@transafe.com", "password": string(driverPassword), "name": "Maria Driver", "role": "driver"},
		{"id": uuid.New().String(), "email": "driver2@transafe.com", "password": string(driverPassword), "name": "Sam Driver", "role": "driver"},
		{"id": uuid.New().String(), "email": "admin@transafe.com", "password": string(adminPassword), "name": "Dispatch Admin", "role": "admin"},
	}

	for _, user := range users {
		query := `
			INSERT INTO users (id, email, password, name, role)
			VALUES (:id, :email, :password, :name, :role)
		`
		if _, err := db.NamedExec(query, user); err != nil {
			return err
		}
		log.Printf("  ✓ Created user: %s (%s)", user["email"], user["role"])
	}

	log.Println("✓ Successfully seeded test users")
	log.Println("  📧 Driver: driver@transafe.com / driver123")
	log.Println("  📧 Admin:  admin@transafe.com / admin123")
	return nil
}

// SeedFleet creates a vehicle, two schools, a household of students and one morning route
func SeedFleet(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM routes"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Routes already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding fleet, schools, students and routes...")

	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	vehicleID := uuid.New().String()
	if _, err := tx.Exec(`INSERT INTO vehicles (id, label, plate) VALUES ($1, $2, $3)`,
		vehicleID, "Van 12", "7TSF012"); err != nil {
		return fmt.Errorf("failed to seed vehicle: %w", err)
	}

	elementary := uuid.New().String()
	middle := uuid.New().String()
	schools := []map[string]interface{}{
		{"id": elementary, "name": "Lincoln Elementary", "address": "1200 Oak St"},
		{"id": middle, "name": "Roosevelt Middle", "address": "55 Park Ave"},
	}
	for _, school := range schools {
		if _, err := tx.NamedExec(`INSERT INTO schools (id, name, address) VALUES (:id, :name, :address)`, school); err != nil {
			return fmt.Errorf("failed to seed school: %w", err)
		}
	}

	ava := uuid.New().String()
	ben := uuid.New().String()
	cleo := uuid.New().String()
	students := []map[string]interface{}{
		{"id": ava, "name": "Ava Nguyen", "home_address": "14 Birch Ln", "school_id": elementary},
		{"id": ben, "name": "Ben Nguyen", "home_address": "14 Birch Ln", "school_id": elementary},
		{"id": cleo, "name": "Cleo Ortiz", "home_address": "890 Cedar Rd", "school_id": middle},
	}
	for _, student := range students {
		query := `INSERT INTO students (id, name, home_address, school_id) VALUES (:id, :name, :home_address, :school_id)`
		if _, err := tx.NamedExec(query, student); err != nil {
			return fmt.Errorf("failed to seed student: %w", err)
		}
	}

	routeID := uuid.New().String()
	if _, err := tx.Exec(`INSERT INTO routes (id, name, route_type) VALUES ($1, $2, 'am')`, routeID, "AM North"); err != nil {
		return fmt.Errorf("failed to seed route: %w", err)
	}

	siblingsStop := uuid.New().String()
	elementaryStop := uuid.New().String()
	middleStop := uuid.New().String()
	stops := []map[string]interface{}{
		{"id": siblingsStop, "seq": 1, "type": "pickup_home", "student": ava, "school": nil, "time": "07:05"},
		{"id": uuid.New().String(), "seq": 2, "type": "pickup_home", "student": cleo, "school": nil, "time": "07:20"},
		{"id": elementaryStop, "seq": 3, "type": "dropoff_school", "student": nil, "school": elementary, "time": "07:45"},
		{"id": middleStop, "seq": 4, "type": "dropoff_school", "student": nil, "school": middle, "time": "07:55"},
	}
	for _, stop := range stops {
		query := `
			INSERT INTO route_stops (id, route_id, sequence, stop_type, student_id, school_id, planned_time)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		if _, err := tx.Exec(query, stop["id"], routeID, stop["seq"], stop["type"], stop["student"], stop["school"], stop["time"]); err != nil {
			return fmt.Errorf("failed to seed route stop: %w", err)
		}
	}

	// Ben boards with his sister; school stops carry everyone dropped there
	riders := [][2]string{
		{siblingsStop, ben},
		{elementaryStop, ava},
		{elementaryStop, ben},
		{middleStop, cleo},
	}
	for _, r := range riders {
		if _, err := tx.Exec(`INSERT INTO route_stop_students (route_stop_id, student_id) VALUES ($1, $2)`, r[0], r[1]); err != nil {
			return fmt.Errorf("failed to seed stop rider: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}

	log.Printf("✓ Seeded vehicle %s and route %s with %d stops", vehicleID, routeID, len(stops))
	return nil
}
