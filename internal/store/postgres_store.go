package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	st := &PostgresStore{pool: pool}
	if err := st.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return st, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) ReadKey(ctx context.Context, userID string, name string) ([]byte, bool, error) {
	if userID == "" {
		return nil, false, ErrEmptyUserID
	}
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM kv WHERE user_id = $1 AND name = $2`,
		userID, name,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s for %s: %w", name, userID, err)
	}
	return []byte(value), true, nil
}

func (s *PostgresStore) WriteKey(ctx context.Context, userID string, name string, value []byte) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO kv (user_id, name, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, name)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		userID, name, string(value),
	)
	if err != nil {
		return fmt.Errorf("write %s for %s: %w", name, userID, err)
	}
	return nil
}

func (s *PostgresStore) ListKey(ctx context.Context, name string) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, value FROM kv WHERE name = $1 ORDER BY user_id`,
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
	return result, rows.Err()
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS kv (
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, name)
		);
		CREATE INDEX IF NOT EXISTS idx_kv_name ON kv(name);
	`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
