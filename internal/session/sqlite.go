package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore persists session values in the session_values table.
//
// Expired rows are treated as missing and removed lazily on read.
type SQLiteStore struct {
	db  *sql.DB
	id  string
	ttl time.Duration
	now func() time.Time
}

func NewSQLiteStore(db *sql.DB, id string, ttl time.Duration) *SQLiteStore {
	return &SQLiteStore{db: db, id: id, ttl: ttl, now: time.Now}
}

func (s *SQLiteStore) ID() string { return s.id }

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	var expiresAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM session_values WHERE session_id = ? AND key = ?",
		s.id, key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read session value %s: %w", key, err)
	}

	if expiresAt.Valid && !expiresAt.Time.After(s.now()) {
		if err := s.Delete(ctx, key); err != nil {
			return "", false, err
		}
		return "", false, nil
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	var expiresAt sql.NullTime
	if exp := expiry(s.now(), s.ttl); !exp.IsZero() {
		expiresAt = sql.NullTime{Time: exp.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_values (session_id, key, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (session_id, key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP`,
		s.id, key, value, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to write session value %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM session_values WHERE session_id = ? AND key = ?", s.id, key); err != nil {
		return fmt.Errorf("failed to delete session value %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM session_values WHERE session_id = ?", s.id); err != nil {
		return fmt.Errorf("failed to clear session %s: %w", s.id, err)
	}
	return nil
}
