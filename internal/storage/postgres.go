package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists records in a single relation keyed by
// (table_name, record_key). This store is pure I/O; entity semantics belong
// to the repositories above it.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the records relation if it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			table_name TEXT NOT NULL,
			record_key TEXT NOT NULL,
			payload    BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (table_name, record_key)
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure records schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, table, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM records WHERE table_name = $1 AND record_key = $2`,
		table, key,
	).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get record %s/%s: %w", table, key, err)
	}
	return payload, nil
}

func (s *PostgresStore) Set(ctx context.Context, table, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (table_name, record_key, payload, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (table_name, record_key) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = now()
	`, table, key, value)
	if err != nil {
		return fmt.Errorf("set record %s/%s: %w", table, key, err)
	}
	return nil
}

func (s *PostgresStore) Unset(ctx context.Context, table, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE table_name = $1 AND record_key = $2`,
		table, key,
	)
	if err != nil {
		return fmt.Errorf("unset record %s/%s: %w", table, key, err)
	}
	return nil
}
