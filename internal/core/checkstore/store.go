package checkstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Ning0612/Filestate/internal/domain"
)

// Store persists the last observed checksum per (path, checktype) key.
// It spans runs: the Checksum state reads it to resolve an unassigned
// desired value and writes it after every sync, which is what lets the
// engine tell a first sighting from drift caused between runs.
type Store struct {
	db *sql.DB
}

// Open creates or opens the checksum database under dataDir
func Open(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "filestate.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Limit connection pool to prevent "database is locked" errors
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Enable WAL mode for better concurrency and set busy timeout
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode and busy timeout: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database schema
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS checksums (
		path TEXT NOT NULL,
		checktype TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (path, checktype)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Get returns the last recorded value for (path, checktype). The second
// return is false when no value has been recorded yet.
func (s *Store) Get(path string, ctype domain.CheckType) (string, bool, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM checksums WHERE path = ? AND checktype = ?`,
		path, string(ctype),
	).Scan(&value)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query checksum: %w", err)
	}

	return value, true, nil
}

// Set records the observed value for (path, checktype), replacing any
// earlier one
func (s *Store) Set(path string, ctype domain.CheckType, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO checksums (path, checktype, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path, checktype) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, path, string(ctype), value)

	if err != nil {
		return fmt.Errorf("failed to save checksum: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
