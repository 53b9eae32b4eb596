package main

import (
	"context"
	"flag"
	"log"

	"collection-route-service/internal/app"
	"collection-route-service/internal/config"
)

func main() {
	seedPath := flag.String("seed", "", "stops JSON file (overrides SEED_PATH)")
	schemaOnly := flag.Bool("schema-only", false, "create the schema without seeding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if *seedPath != "" {
		cfg.SeedPath = *seedPath
	}

	ctx := context.Background()

	log.Printf("Initializing database schema driver=%s...", cfg.DBDriver)
	conn, err := app.OpenDatabase(ctx, cfg)
	if err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	defer conn.Close()
	log.Println("Schema ready.")

	if *schemaOnly {
		return
	}

	log.Println("Seeding database...")
	if err := app.SeedStops(ctx, cfg, conn); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("Seeding complete.")
}
