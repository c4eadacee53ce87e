package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

func NewSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	return db, nil
}

// SettingsStore persists runtime configuration overrides across restarts.
// Overrides are flat dotted keys layered on top of the YAML config at boot
// and whenever the settings API writes them.
type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) (*SettingsStore, error) {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS settings_overrides (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to create settings table: %w", err)
	}
	return &SettingsStore{db: db}, nil
}

// Load returns all persisted overrides.
func (s *SettingsStore) Load() (map[string]string, error) {
	rows, err := s.db.Query("SELECT key, value FROM settings_overrides")
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	overrides := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		overrides[key] = value
	}
	return overrides, rows.Err()
}

// Update upserts the given overrides in one transaction.
func (s *SettingsStore) Update(overrides map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for key, value := range overrides {
		_, err := tx.Exec(`
            INSERT INTO settings_overrides (key, value, updated_at)
            VALUES (?, ?, CURRENT_TIMESTAMP)
            ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
        `, key, value)
		if err != nil {
			return fmt.Errorf("failed to store setting %s: %w", key, err)
		}
	}
	return tx.Commit()
}
