// cmd/migrate/main.go
package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/gurkanbulca/tasknest/internal/config"
	"github.com/gurkanbulca/tasknest/internal/database"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	db, err := database.Connect(ctx, database.Config{DSN: cfg.DSN()})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Running database migrations...")
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}

	log.Println("Migrations completed successfully!")
}
