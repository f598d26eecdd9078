package data

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// InitDB opens the SQLite journal at path and runs migrations
func InitDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS export_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		report TEXT NOT NULL,
		connection_name TEXT,
		host TEXT,
		database_name TEXT,
		date_field TEXT,
		start_date TEXT,
		end_date TEXT,
		selected_gtin TEXT,
		status TEXT,
		row_count INTEGER DEFAULT 0,
		marked_count INTEGER DEFAULT 0,
		duration_ms INTEGER,
		outcome TEXT,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_export_history_timestamp ON export_history(timestamp);
	`
	_, err := db.Exec(schema)
	return err
}
