package main

import (
	"context"
	"log"

	"meetdesk-backend/shared/config"
	"meetdesk-backend/shared/database"
	"meetdesk-backend/shared/store"
)

func main() {
	log.Println("🌱 Starting database seeding...")

	cfg := config.LoadConfig()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	if _, err := database.SeedAdmin(context.Background(), store.NewGormStore(db), cfg); err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}

	log.Println("✅ Database seeding completed successfully!")
}
