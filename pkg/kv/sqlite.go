package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const (
	getValueStatement = `
	SELECT value
	FROM diary_kv
	WHERE key = ?
	`

	setValueStatement = `
	INSERT INTO diary_kv (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = unixepoch()
	`

	listKeysStatement = `
	SELECT key
	FROM diary_kv
	WHERE substr(key, 1, ?) = ?
	ORDER BY key ASC
	`
)

// SQLiteStore keeps values in the diary_kv table created by db.UpgradeDB.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, getValueStatement, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to read key '%s': %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, setValueStatement, key, value); err != nil {
		return fmt.Errorf("failed to write key '%s': %w", key, err)
	}
	return nil
}

// Keys matches on a literal prefix; LIKE would treat '_' in "diary_" as a wildcard.
func (s *SQLiteStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, listKeysStatement, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys with prefix '%s': %w", prefix, err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key row: %w", err)
		}
		keys = append(keys, key)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating key rows: %w", err)
	}
	return keys, nil
}

// Remove deletes all keys in one transaction.
func (s *SQLiteStore) Remove(ctx context.Context, keys ...string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(keys)-1) + "?"
	args := make([]interface{}, 0, len(keys))
	for _, k := range keys {
		args = append(args, k)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin remove transaction: %w", err)
	}
	res, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM diary_kv WHERE key IN (%s)", placeholders), args...)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to remove %d keys: %w", len(keys), err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit key removal: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
