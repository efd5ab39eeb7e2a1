package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite keeps preferences in a local database file, flushed on every edit.
type SQLite struct {
	db  *sql.DB
	hub *hub
}

// OpenSQLite opens (and creates when missing) the preference file at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("prefs: create dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_sync=FULL")
	if err != nil {
		return nil, fmt.Errorf("prefs: open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("prefs: ping db: %w", err)
	}
	if _, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS preferences (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`); err != nil {
		db.Close()
		return nil, fmt.Errorf("prefs: migrate: %w", err)
	}
	return &SQLite{db: db, hub: newHub()}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("prefs: get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *SQLite) Edit(ctx context.Context, changes map[string]*string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("prefs: begin: %w", err)
	}
	defer tx.Rollback()

	for _, k := range sortedKeys(changes) {
		v := changes[k]
		if v == nil {
			_, err = tx.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, k)
		} else {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO preferences (key, value) VALUES (?, ?)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value
			`, k, *v)
		}
		if err != nil {
			return fmt.Errorf("prefs: write %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("prefs: commit: %w", err)
	}
	s.hub.publish(Change{Keys: sortedKeys(changes)})
	return nil
}

func (s *SQLite) Watch(ctx context.Context) (<-chan Change, error) {
	return s.hub.subscribe(ctx), nil
}

func (s *SQLite) Close() error {
	s.hub.close()
	return s.db.Close()
}
