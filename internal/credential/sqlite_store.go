package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const credentialSchema = `CREATE TABLE IF NOT EXISTS credentials (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`

// SQLiteStore keeps the credential slot in a SQLite key/value table.
type SQLiteStore struct {
	db   *sql.DB
	path string
	key  string
}

// OpenSQLite initializes or connects to the credential database.
func OpenSQLite(path, key string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure credential directory: %w", err)
	}

	// SQLite gives journal files the database file's mode, so the file must
	// be private before the first connection touches it.
	if err := createPrivate(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// A rollback journal is removed after each commit; a WAL file would keep
	// the token in a sidecar between checkpoints.
	pragmas := []string{
		"PRAGMA journal_mode=DELETE",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(credentialSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create credentials table: %w", err)
	}
	return &SQLiteStore{db: db, path: path, key: normalizeKey(key)}, nil
}

func createPrivate(path string) error {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("create credential db: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("create credential db: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("restrict credential db permissions: %w", err)
	}
	return nil
}

// Path reports the database location.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Load() (string, error) {
	var token string
	err := s.db.QueryRowContext(context.Background(), `SELECT value FROM credentials WHERE key = ?`, s.key).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load credential: %w", err)
	}
	return token, nil
}

func (s *SQLiteStore) Save(token string) error {
	_, err := s.db.ExecContext(
		context.Background(),
		`INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.key,
		token,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Remove() error {
	if _, err := s.db.ExecContext(context.Background(), `DELETE FROM credentials WHERE key = ?`, s.key); err != nil {
		return fmt.Errorf("remove credential: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
