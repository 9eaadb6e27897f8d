package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DBFileName is the database created inside the state directory.
const DBFileName = "gridx.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);`

// SQLite stores records in a single kv table.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database inside dir. An empty dir opens
// a private in-memory database.
func OpenSQLite(dir string) (*SQLite, error) {
	dsn := ":memory:"
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite storage: create %s: %w", dir, err)
		}
		dsn = filepath.Join(dir, DBFileName)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite storage: open: %w", err)
	}
	// One connection keeps ":memory:" coherent and serialises writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite storage: schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *SQLite) Set(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func (s *SQLite) Remove(key string) error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return err
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
