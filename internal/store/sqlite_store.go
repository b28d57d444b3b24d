package store

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

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(filePath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", filePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps writes serialized and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	st := &SQLiteStore{db: db}
	if err := st.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) ReadKey(ctx context.Context, userID string, name string) ([]byte, bool, error) {
	if userID == "" {
		return nil, false, ErrEmptyUserID
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT value
		FROM kv
		WHERE user_id = ? AND name = ?`,
		userID,
		name,
	)
	var value string
	err := row.Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s for %s: %w", name, userID, err)
	}
	return []byte(value), true, nil
}

func (s *SQLiteStore) WriteKey(ctx context.Context, userID string, name string, value []byte) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO kv
		(user_id, name, value, updated_at)
		VALUES (?, ?, ?, ?)`,
		userID,
		name,
		string(value),
		toTS(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("write %s for %s: %w", name, userID, err)
	}
	return nil
}

func (s *SQLiteStore) ListKey(ctx context.Context, name string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, value
		FROM kv
		WHERE name = ?
		ORDER BY user_id`,
		name,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]Record, 0)
	for rows.Next() {
		var record Record
		var value string
		if err := rows.Scan(&record.UserID, &value); err != nil {
			return nil, err
		}
		record.Value = []byte(value)
		result = append(result, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout = 5000;
		CREATE TABLE IF NOT EXISTS kv (
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (user_id, name)
		);
		CREATE INDEX IF NOT EXISTS idx_kv_name ON kv(name);
	`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func toTS(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
