package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"trackvote/internal/domain"
	"trackvote/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

const usage = "Usage: go run ./cmd/migrate [drop|up|seed [teams.json]]"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	if len(os.Args) < 2 {
		fmt.Println(usage)
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
	case "drop":
		if err := dropTables(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("All tables dropped successfully")

	case "up":
		if err := createTables(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("All tables created successfully")

	case "seed":
		teams := defaultTeams
		if len(os.Args) > 2 {
			if teams, err = loadTeams(os.Args[2]); err != nil {
				log.Fatalf("Failed to read teams: %v", err)
			}
		}
		if err := seedTeams(ctx, conn, teams); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		fmt.Println("Data seeded successfully")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

func dropTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`DROP TABLE IF EXISTS votes CASCADE`,
		`DROP TABLE IF EXISTS teams CASCADE`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("  Dropped: %s\n", query)
	}

	return nil
}

func createTables(ctx context.Context, conn *pgx.Conn) error {
	for _, query := range repository.PostgresSchema {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
		fmt.Printf("  Created: %s\n", getTableName(query))
	}

	return nil
}

var defaultTeams = []domain.CreateTeamRequest{
	{Name: "Team Alpha", Track: domain.TrackArtPreU},
	{Name: "Team Beta", Track: domain.TrackArtUpperSec},
	{Name: "Team Gamma", Track: domain.TrackInnovationPreU},
	{Name: "Team Delta", Track: domain.TrackInnovationUpperSec},
	{Name: "Team Epsilon", Track: domain.TrackTechnicalPreU},
	{Name: "Team Zeta", Track: domain.TrackTechnicalUpperSec},
}

// loadTeams reads a JSON array of {"name", "track"} objects
func loadTeams(path string) ([]domain.CreateTeamRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var teams []domain.CreateTeamRequest
	if err := json.Unmarshal(data, &teams); err != nil {
		return nil, fmt.Errorf("invalid teams file: %w", err)
	}
	for i, t := range teams {
		if strings.TrimSpace(t.Name) == "" || !t.Track.Valid() {
			return nil, fmt.Errorf("team %d: name and a valid track are required", i)
		}
	}
	return teams, nil
}

func seedTeams(ctx context.Context, conn *pgx.Conn, teams []domain.CreateTeamRequest) error {
	batch := &pgx.Batch{}
	for _, t := range teams {
		batch.Queue(`INSERT INTO teams (id, name, track) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`,
			uuid.NewString(), strings.TrimSpace(t.Name), string(t.Track))
	}

	results := conn.SendBatch(ctx, batch)
	inserted := int64(0)
	for range teams {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to seed teams: %w", err)
		}
		inserted += tag.RowsAffected()
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to seed teams: %w", err)
	}

	fmt.Printf("  Seeded %d teams (%d already present)\n", inserted, int64(len(teams))-inserted)
	return nil
}

func getTableName(query string) string {
	query = strings.Join(strings.Fields(query), " ")
	if len(query) > 50 {
		return query[:50] + "..."
	}
	return query
}
