package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/fuowallet/internal/apperrors"
)

var ErrNotMigrated = errors.New("session table not found, migrations not applied")

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Storage keeps session keys in 'session_kv' table
type Storage struct {
	db DBTX
}

func New(db DBTX) *Storage {
	return &Storage{db: db}
}

const getValue = `-- name: GetValue
SELECT value FROM session_kv
WHERE key = $1
`

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	rows, _ := s.db.Query(ctx, getValue, key)
	value, err := pgx.CollectOneRow(rows, pgx.RowTo[string])

	switch {
	case err == nil:
		return value, nil
	case errors.Is(err, pgx.ErrNoRows):
		return "", apperrors.ErrKeyNotFound
	default:
		return "", dbError(err)
	}
}

const setValue = `-- name: SetValue
INSERT INTO session_kv (key, value)
VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE
SET value = EXCLUDED.value, updated_at = now()
`

func (s *Storage) Set(ctx context.Context, key string, value string) error {
	if _, err := s.db.Exec(ctx, setValue, key, value); err != nil {
		return dbError(err)
	}
	return nil
}

const removeValue = `-- name: RemoveValue
DELETE FROM session_kv
WHERE key = $1
`

func (s *Storage) Remove(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, removeValue, key); err != nil {
		return dbError(err)
	}
	return nil
}

func dbError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable {
		return ErrNotMigrated
	}

	return fmt.Errorf("db error: %w", err)
}
