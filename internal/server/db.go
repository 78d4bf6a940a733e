package server

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure Go sqlite driver
)

// InitSQLite opens the archive database at dbPath, creating the file and its
// parent directory on first use, and ensures the run archive schemas exist.
func InitSQLite(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := createSchemas(db); err != nil {
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}

	return db, nil
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			lab TEXT NOT NULL,
			seed INTEGER NOT NULL,
			rate REAL NOT NULL,
			sim_time REAL NOT NULL,
			ticks INTEGER NOT NULL,
			driver TEXT NOT NULL DEFAULT '',
			phase TEXT NOT NULL,
			terminal BOOLEAN NOT NULL DEFAULT 0,
			metrics TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			time REAL NOT NULL,
			event_type TEXT NOT NULL,
			name TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			FOREIGN KEY (run_id) REFERENCES runs(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_lab ON runs(lab);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_events_run_id ON events(run_id);`,
	}

	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
