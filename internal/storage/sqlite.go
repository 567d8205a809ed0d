package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const defaultBusyTimeoutMS = 5000

// SQLiteStorage is a durable key-value primitive backed by a single SQLite table
type SQLiteStorage struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies migrations.
// ":memory:" gives a private in-memory database
func OpenSQLite(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", normalizeSQLiteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// one writer keeps every command's read-modify-write on the same connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeoutMS),
		"PRAGMA synchronous=NORMAL",
		"PRAGMA journal_mode=WAL",
	}

	for _, pragma := range pragmas {
		if err := retryWithBackoff(func() error {
			_, err := db.ExecContext(context.Background(), pragma)
			return err
		}); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := retryWithBackoff(func() error { return runMigrations(db) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func normalizeSQLiteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}

	if path == ":memory:" {
		return "file::memory:"
	}

	// mode=rwc => read/write/create
	return "file:" + path + "?mode=rwc"
}

// Get returns the stored text and true if the key is found
func (s *SQLiteStorage) Get(key string) (string, bool, error) {
	var value string
	err := retryWithBackoff(func() error {
		return s.db.QueryRowContext(context.Background(),
			`SELECT value FROM entries WHERE key = ?`, key).Scan(&value)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Set upserts the key. A full database or disk is reported as ErrQuotaExceeded
func (s *SQLiteStorage) Set(key, value string) error {
	err := retryWithBackoff(func() error {
		_, err := s.db.ExecContext(context.Background(), `
			INSERT INTO entries (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value)
		return err
	})
	if err != nil {
		if isFullError(err) {
			return ErrQuotaExceeded
		}
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Remove deletes the key
func (s *SQLiteStorage) Remove(key string) error {
	err := retryWithBackoff(func() error {
		_, err := s.db.ExecContext(context.Background(), `DELETE FROM entries WHERE key = ?`, key)
		return err
	})
	if err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

// Keys returns every stored key ordered by key
func (s *SQLiteStorage) Keys() ([]string, error) {
	var keys []string
	err := retryWithBackoff(func() error {
		keys = keys[:0]

		rows, err := s.db.QueryContext(context.Background(), `SELECT key FROM entries ORDER BY key`)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var k string
			if err := rows.Scan(&k); err != nil {
				return err
			}
			keys = append(keys, k)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

// Len returns the number of stored keys
func (s *SQLiteStorage) Len() (int, error) {
	var n int
	err := retryWithBackoff(func() error {
		return s.db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM entries`).Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("count keys: %w", err)
	}
	return n, nil
}

// Close releases the database handle
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
