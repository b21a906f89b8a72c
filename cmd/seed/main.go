package main

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/oksasatya/go-ddd-task-manager/config"
	"github.com/oksasatya/go-ddd-task-manager/pkg/helpers"
)

var sampleTasks = []string{
	"Buy milk",
	"Review pull requests",
	"Plan the sprint demo",
	"Book dentist appointment",
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	name := "Matt"
	email := "matt@goteam.com"
	password := "password"
	imageURL := "https://ui-avatars.com/api/?name=Matt&background=random"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var id int64
	err = db.QueryRow(`
		INSERT INTO users (name, email, password_hash, image_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ((lower(email))) DO UPDATE SET name = EXCLUDED.name, image_url = EXCLUDED.image_url
		RETURNING id
	`, name, email, hash, imageURL).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: id=%d email=%s name=%s password=%s\n", id, email, name, password)

	var count int
	if err := db.QueryRow(`SELECT count(*) FROM tasks WHERE user_id = $1`, id).Scan(&count); err != nil {
		log.Fatalf("failed to count tasks: %v", err)
	}
	if count > 0 {
		fmt.Printf("user already has %d tasks, skipping sample tasks\n", count)
		return
	}

	today := helpers.FormatDate(time.Now())
	for i, statement := range sampleTasks {
		if _, err := db.Exec(`
			INSERT INTO tasks (user_id, statement, task_date, sort_order)
			VALUES ($1, $2, $3::date, $4)
		`, id, statement, today, i); err != nil {
			log.Fatalf("failed to seed task %q: %v", statement, err)
		}
	}
	fmt.Printf("seeded %d tasks for %s\n", len(sampleTasks), today)
}
