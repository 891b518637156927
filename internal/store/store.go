// Package store persists capture records and the settings singleton in a
// local SQLite database.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Store wraps the database handle and the base data directory.
type Store struct {
	db      *sql.DB
	baseDir string
}

// Open initializes the SQLite database at baseDir/glance.db.
// The baseDir parameter allows tests to use t.TempDir() instead of the real
// data directory.
func Open(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	// Pragmas in the connection string apply to all pooled connections.
	dbPath := filepath.Join(baseDir, "glance.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	_ = os.Chmod(dbPath, 0600)

	slog.Info("database ready", "path", dbPath)
	return &Store{db: db, baseDir: baseDir}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// BaseDir returns the application data directory the store was opened with.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := userVersion(db)
	if err != nil {
		return err
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS records (
		  id              INTEGER PRIMARY KEY AUTOINCREMENT,
		  timestamp       TEXT NOT NULL,
		  source_type     TEXT NOT NULL,
		  content         TEXT NOT NULL,
		  screenshot_path TEXT,
		  phash           TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_records_timestamp
		ON records(timestamp DESC);

		CREATE TABLE IF NOT EXISTS settings (
		  id                   INTEGER PRIMARY KEY CHECK (id = 1),
		  api_base_url         TEXT,
		  api_key              TEXT,
		  model_name           TEXT,
		  capture_interval_min INTEGER DEFAULT 5,
		  change_threshold     REAL DEFAULT 3.0,
		  max_silent_min       INTEGER DEFAULT 30,
		  analysis_prompt      TEXT,
		  summary_time         TEXT DEFAULT '18:00',
		  summary_dir          TEXT,
		  auto_capture_enabled INTEGER DEFAULT 0,
		  last_summary_path    TEXT
		);

		INSERT OR IGNORE INTO settings (id) VALUES (1);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := setUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

func userVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

func setUserVersion(db *sql.DB, version int) error {
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
