package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nkiryanov/fuowallet/internal/apperrors"
)

const createTable = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// Storage keeps keys in a single-file SQLite database
type Storage struct {
	db *sql.DB
}

// Open creates or opens the database file and ensures the schema
func Open(ctx context.Context, path string) (*Storage, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single writer is enough for a session file
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, createTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}

	return &Storage{db: db}, nil
}

const getValue = `SELECT value FROM kv WHERE key = ?`

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, getValue, key).Scan(&value)

	switch {
	case err == nil:
		return value, nil
	case errors.Is(err, sql.ErrNoRows):
		return "", apperrors.ErrKeyNotFound
	default:
		return "", fmt.Errorf("sqlite error: %w", err)
	}
}

const setValue = `
INSERT INTO kv (key, value) VALUES (?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value`

func (s *Storage) Set(ctx context.Context, key string, value string) error {
	if _, err := s.db.ExecContext(ctx, setValue, key, value); err != nil {
		return fmt.Errorf("sqlite error: %w", err)
	}
	return nil
}

const removeValue = `DELETE FROM kv WHERE key = ?`

func (s *Storage) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, removeValue, key); err != nil {
		return fmt.Errorf("sqlite error: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}
