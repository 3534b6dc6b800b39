package main

import (
	"flag"
	"log"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/config"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/database"
)

func main() {
	seedFleet := flag.Bool("seed-fleet", true, "insert the demo vehicle, schools, students and route")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Schema is up to date")

	if err := database.SeedUsers(db); err != nil {
		log.Fatalf("❌ User seeding failed: %v", err)
	}
	log.Println("✅ Users seeded")

	if *seedFleet {
		if err := database.SeedFleet(db); err != nil {
			log.Fatalf("❌ Fleet seeding failed: %v", err)
		}
		log.Println("✅ Fleet seeded")
	}
}
