package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"polls-be/pkg/database"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/migrate [up|drop|reset|seed]")
		os.Exit(1)
	}

	command := os.Args[1]

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "up":
		if err := database.Migrate(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ All tables created successfully")

	case "drop":
		if err := database.DropSchema(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ All tables dropped successfully")

	case "reset":
		if err := database.DropSchema(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		if err := database.Migrate(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ Schema recreated successfully")

	case "seed":
		if err := seedData(ctx, conn); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		fmt.Println("✅ Data seeded successfully")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

var samplePolls = []struct {
	title       string
	description string
	options     []string
}{
	{"Lunch?", "Where should the team eat today", []string{"Pizza", "Sushi"}},
	{"Favourite editor", "", []string{"vim", "emacs", "VS Code", "GoLand"}},
}

// seedData inserts the sample polls in one transaction
func seedData(ctx context.Context, conn *pgx.Conn) error {
	return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		for _, p := range samplePolls {
			var pollID int64
			err := tx.QueryRow(ctx,
				`INSERT INTO polls (title, description) VALUES ($1, $2) RETURNING id`,
				p.title, p.description,
			).Scan(&pollID)
			if err != nil {
				return fmt.Errorf("insert poll %q: %w", p.title, err)
			}

			for _, text := range p.options {
				if _, err := tx.Exec(ctx,
					`INSERT INTO options (poll_id, option_text) VALUES ($1, $2)`,
					pollID, text,
				); err != nil {
					return fmt.Errorf("insert option %q: %w", text, err)
				}
			}
			fmt.Printf("  seeded poll %d: %s (%d options)\n", pollID, p.title, len(p.options))
		}
		return nil
	})
}
