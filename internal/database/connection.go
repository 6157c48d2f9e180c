package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// DB is the global database connection
var DB *sqlx.DB

// Connect establishes the database connection. DB_TYPE selects the backend:
// "sqlite" (the default) opens the file at DB_PATH, "postgres" opens
// DATABASE_URL.
func Connect() error {
	dbType := os.Getenv("DB_TYPE")
	if dbType == "" {
		dbType = "sqlite"
	}

	var db *sqlx.DB
	var err error

	switch dbType {
	case "sqlite":
		path := os.Getenv("DB_PATH")
		if path == "" {
			path = filepath.Join("data", "studyengine.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %v", err)
		}
		db, err = sqlx.Connect("sqlite3", path)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %v", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return fmt.Errorf("failed to enable foreign keys: %v", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	case "postgres":
		db, err = sqlx.Connect("postgres", os.Getenv("DATABASE_URL"))
		if err != nil {
			return fmt.Errorf("failed to connect to database: %v", err)
		}
	default:
		return fmt.Errorf("unsupported DB_TYPE %q", dbType)
	}

	DB = db

	return initializeSchema(dbType)
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(dbType string) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if dbType == "postgres" {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS topics (
				id %s,
				title TEXT NOT NULL UNIQUE,
				difficulty TEXT NOT NULL DEFAULT 'normal',
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`, serial),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS items (
				id %s,
				topic_id BIGINT NOT NULL,
				front_text TEXT NOT NULL,
				back_text TEXT NOT NULL,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				FOREIGN KEY (topic_id) REFERENCES topics(id) ON DELETE CASCADE
			)
		`, serial),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS progress (
				id %s,
				learner_id TEXT NOT NULL,
				item_id BIGINT NOT NULL,
				ease_factor DOUBLE PRECISION NOT NULL DEFAULT 2.5,
				interval INTEGER NOT NULL DEFAULT 0,
				repetitions INTEGER NOT NULL DEFAULT 0,
				next_review_date TIMESTAMP NOT NULL,
				total_reviews INTEGER NOT NULL DEFAULT 0,
				total_correct_reviews INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE,
				UNIQUE(learner_id, item_id)
			)
		`, serial),
		`
			CREATE TABLE IF NOT EXISTS sessions (
				id TEXT PRIMARY KEY,
				learner_id TEXT NOT NULL,
				topic_id BIGINT NOT NULL,
				status TEXT NOT NULL,
				queue TEXT NOT NULL,
				correct_count INTEGER NOT NULL DEFAULT 0,
				incorrect_count INTEGER NOT NULL DEFAULT 0,
				elapsed_seconds INTEGER NOT NULL DEFAULT 0,
				version BIGINT NOT NULL DEFAULT 1,
				completed_at TIMESTAMP,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`,
		`
			CREATE TABLE IF NOT EXISTS learners (
				id TEXT PRIMARY KEY,
				current_streak INTEGER NOT NULL DEFAULT 0,
				longest_streak INTEGER NOT NULL DEFAULT 0,
				last_practice_date TIMESTAMP
			)
		`,
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS practice_records (
				id %s,
				learner_id TEXT NOT NULL,
				topic_id BIGINT NOT NULL,
				accuracy DOUBLE PRECISION NOT NULL,
				duration_seconds INTEGER NOT NULL,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`, serial),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS summary_outbox (
				id %s,
				learner_id TEXT NOT NULL,
				topic_id BIGINT NOT NULL,
				accuracy DOUBLE PRECISION NOT NULL,
				duration_seconds INTEGER NOT NULL,
				attempts INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`, serial),
		`CREATE INDEX IF NOT EXISTS idx_sessions_open ON sessions (learner_id, topic_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_progress_due ON progress (learner_id, next_review_date)`,
	}

	for _, stmt := range statements {
		if _, err := DB.Exec(stmt); err != nil {
			return errors.Wrap(err, "failed to initialize schema")
		}
	}
	return nil
}
