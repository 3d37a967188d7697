package main

import (
	"flag"
	"log"

	"meetdesk-backend/shared/config"
	"meetdesk-backend/shared/database"
)

func main() {
	confirm := flag.Bool("yes", false, "drop every MeetDesk table without prompting")
	flag.Parse()

	cfg := config.LoadConfig()
	if cfg.IsProduction() && !*confirm {
		log.Fatal("❌ Refusing to reset a production database without -yes")
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer database.Close(db)

	log.Printf("🗑️ Dropping %d tables from %s...", len(database.Tables), cfg.DBName)
	migrator := db.Migrator()
	failed := 0
	for _, table := range database.Tables {
		if err := migrator.DropTable(table); err != nil {
			log.Printf("❌ Failed to drop %s: %v", table, err)
			failed++
			continue
		}
		log.Printf("   dropped %s", table)
	}

	if failed > 0 {
		log.Fatalf("❌ Reset incomplete: %d tables could not be dropped", failed)
	}
	log.Println("✅ Database reset completed. Run 'go run ./cmd/seed' to recreate the schema and admin user")
}
