package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id              TEXT PRIMARY KEY,
	owner_id        TEXT NOT NULL,
	kind            TEXT NOT NULL,
	provider        TEXT NOT NULL,
	provider_job_id TEXT NOT NULL,
	status          TEXT NOT NULL,
	progress        INTEGER NOT NULL DEFAULT 0,
	title           TEXT NOT NULL DEFAULT '',
	input_params    TEXT NOT NULL,
	output_url      TEXT,
	output_stored   INTEGER NOT NULL DEFAULT 0,
	voice_id        TEXT,
	preview_url     TEXT,
	error           TEXT,
	is_favorite     INTEGER NOT NULL DEFAULT 0,
	source_job_id   TEXT,
	created_at      TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_owner_created ON jobs(owner_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_jobs_owner_status ON jobs(owner_id, status);

CREATE TABLE IF NOT EXISTS user_settings (
	owner_id          TEXT PRIMARY KEY,
	fal_api_key       TEXT NOT NULL DEFAULT '',
	minimax_api_key   TEXT NOT NULL DEFAULT '',
	replicate_api_key TEXT NOT NULL DEFAULT '',
	storage_settings  TEXT,
	platform_access   INTEGER NOT NULL DEFAULT 0
);
`

// Store wraps the SQLite connection shared by the job and settings stores.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and applies the
// schema. The parent directory is created on demand.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?cache=shared&mode=rwc&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// OpenMemory opens an in-memory database, used by tests.
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, err
	}
	// A single pinned connection keeps the in-memory DB alive and private
	// to this Store.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection (sqlmock in unit tests).
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}
