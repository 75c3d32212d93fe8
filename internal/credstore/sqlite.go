package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Ensure SQLiteStore implements the Store interface
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore persists credential sets to a local SQLite file so console
// sessions survive process restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed initializes) the credential database
// at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS credentials (
		session TEXT NOT NULL,
		kind TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (session, kind)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create credentials table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Set(ctx context.Context, session string, kind Kind, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (session, kind, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (session, kind) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		session, string(kind), value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, session string, kind Kind) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM credentials WHERE session = ? AND kind = ?",
		session, string(kind),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	return value, nil
}

func (s *SQLiteStore) Clear(ctx context.Context, session string, kind Kind) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM credentials WHERE session = ? AND kind = ?",
		session, string(kind),
	)
	if err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ClearAll(ctx context.Context, session string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM credentials WHERE session = ?",
		session,
	)
	if err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
