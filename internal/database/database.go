package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func Connect(dbURL string) (*sqlx.DB, error) {
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Println("🔌 DATABASE CONNECTION ATTEMPT")
	log.Printf("   📍 URL prefix: %s...", dbURL[:min(30, len(dbURL))])
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Printf("❌ DATABASE CONNECTION FAILED: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		log.Printf("❌ DATABASE PING FAILED: %v", err)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ DATABASE CONNECTION SUCCESSFUL")
	return db, nil
}

// Store is the Postgres-backed persistence for clock, route and attendance data.
type Store struct {
	DB *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{DB: db}
}

// inTx runs fn in a transaction, committing only if fn succeeds.
func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		// Users: drivers and admins
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('driver', 'admin')),
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS active BOOLEAN NOT NULL DEFAULT TRUE`,

		`CREATE TABLE IF NOT EXISTS vehicles (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			plate TEXT,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		`CREATE TABLE IF NOT EXISTS schools (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			address TEXT NOT NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		`CREATE TABLE IF NOT EXISTS students (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			home_address TEXT NOT NULL DEFAULT '',
			school_id TEXT REFERENCES schools(id) ON DELETE SET NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		`CREATE TABLE IF NOT EXISTS routes (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			route_type TEXT NOT NULL DEFAULT 'am',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Sequence uniqueness is checked at commit so a whole list can be renumbered in one transaction
		`CREATE TABLE IF NOT EXISTS route_stops (
			id TEXT PRIMARY KEY,
			route_id TEXT NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
			sequence INT NOT NULL,
			stop_type TEXT NOT NULL CHECK(stop_type IN ('pickup_home', 'dropoff_home', 'pickup_school', 'dropoff_school', 'other')),
			student_id TEXT REFERENCES students(id) ON DELETE SET NULL,
			school_id TEXT REFERENCES schools(id) ON DELETE SET NULL,
			address TEXT NOT NULL DEFAULT '',
			address_overridden BOOLEAN NOT NULL DEFAULT FALSE,
			planned_time TEXT,
			notes TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			CONSTRAINT route_stops_route_sequence_key UNIQUE (route_id, sequence) DEFERRABLE INITIALLY DEFERRED
		)`,

		// Extra riders sharing a stop (siblings)
		`CREATE TABLE IF NOT EXISTS route_stop_students (
			route_stop_id TEXT NOT NULL REFERENCES route_stops(id) ON DELETE CASCADE,
			student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
			PRIMARY KEY (route_stop_id, student_id)
		)`,

		`CREATE TABLE IF NOT EXISTS inspections (
			id TEXT PRIMARY KEY,
			driver_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			vehicle_id TEXT NOT NULL REFERENCES vehicles(id),
			inspection_type TEXT NOT NULL CHECK(inspection_type IN ('pre_trip', 'post_trip')),
			work_date TEXT NOT NULL,
			submitted_at BIGINT NOT NULL,
			odometer BIGINT,
			defects_found BOOLEAN NOT NULL DEFAULT FALSE,
			notes TEXT,
			checklist JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		`CREATE TABLE IF NOT EXISTS time_intervals (
			id TEXT PRIMARY KEY,
			driver_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			work_date TEXT NOT NULL CHECK(work_date ~ '^\d{4}-\d{2}-\d{2}$'),
			start_time BIGINT NOT NULL,
			end_time BIGINT,
			duration_seconds BIGINT CHECK(duration_seconds IS NULL OR duration_seconds >= 0),
			source TEXT NOT NULL DEFAULT 'inspection' CHECK(source IN ('inspection', 'manual')),
			inspection_id TEXT REFERENCES inspections(id) ON DELETE SET NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,
		// At most one open interval per driver per work date
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_time_intervals_one_open
			ON time_intervals(driver_id, work_date) WHERE end_time IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_time_intervals_driver_date ON time_intervals(driver_id, work_date)`,

		`CREATE TABLE IF NOT EXISTS attendance_records (
			id TEXT PRIMARY KEY,
			student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
			route_id TEXT NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
			route_stop_id TEXT NOT NULL REFERENCES route_stops(id) ON DELETE CASCADE,
			driver_id TEXT NOT NULL REFERENCES users(id),
			work_date TEXT NOT NULL,
			status TEXT NOT NULL CHECK(status IN ('picked_up', 'dropped_off', 'absent', 'no_show', 'cancelled')),
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			recorded_at BIGINT NOT NULL,
			UNIQUE (student_id, route_stop_id, work_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_route_date ON attendance_records(route_id, work_date)`,

		`CREATE TABLE IF NOT EXISTS route_completions (
			id TEXT PRIMARY KEY,
			route_id TEXT NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
			driver_id TEXT NOT NULL REFERENCES users(id),
			work_date TEXT NOT NULL,
			completed_at BIGINT NOT NULL,
			total_students INT NOT NULL,
			confirmed_students INT NOT NULL,
			UNIQUE (route_id, work_date)
		)`,

		// driver_current_location has exactly 1 row per driver, updated via UPSERT
		`CREATE TABLE IF NOT EXISTS driver_current_location (
			driver_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			heading DOUBLE PRECISION,
			speed DOUBLE PRECISION,
			accuracy DOUBLE PRECISION,
			timestamp BIGINT NOT NULL,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		`CREATE TABLE IF NOT EXISTS fcm_tokens (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token TEXT NOT NULL UNIQUE,
			device_type TEXT NOT NULL CHECK(device_type IN ('ios', 'android')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fcm_tokens_user_id ON fcm_tokens(user_id)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}

	log.Println("✓ Database migrations completed")
	return nil
}
