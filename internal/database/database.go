// Package database persists catalogs, schedules and bookings in SQLite.
// The engine stores stay authoritative at runtime; this layer restores
// them at startup and records every accepted mutation.
package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps sql.DB for the booking server.
type DB struct {
	*sql.DB
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS barbers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			image_url TEXT,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS services (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			price INTEGER NOT NULL DEFAULT 0,
			duration INTEGER NOT NULL DEFAULT 30,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Weekly patterns; day lists and slot lists are stored as JSON.
		`CREATE TABLE IF NOT EXISTS weekly_patterns (
			barber_id INTEGER PRIMARY KEY,
			working_days TEXT NOT NULL,
			default_slots TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (barber_id) REFERENCES barbers(id)
		)`,

		`CREATE TABLE IF NOT EXISTS schedule_overrides (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			barber_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			is_working BOOLEAN NOT NULL,
			slots TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(barber_id, date),
			FOREIGN KEY (barber_id) REFERENCES barbers(id)
		)`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY,
			code TEXT,
			barber_id INTEGER NOT NULL,
			date TEXT,
			time TEXT,
			service_ids TEXT,
			customer_name TEXT,
			customer_phone TEXT,
			customer_photo TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (barber_id) REFERENCES barbers(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_barber_date ON bookings(barber_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_overrides_barber ON schedule_overrides(barber_id)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}
