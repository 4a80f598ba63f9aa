package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// KV is the durable key-value substrate behind all persisted application
// state. Values are opaque JSON blobs; typing lives one layer up.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	// SetAll writes every entry atomically: either all keys change or none
	// do. Entries with a nil value are removed.
	SetAll(ctx context.Context, entries map[string][]byte) error
}

const (
	getStateSQL    = `SELECT value FROM app_state WHERE key = $1;`
	upsertStateSQL = `INSERT INTO app_state (key, value, updated_at)
    VALUES ($1, $2, now())
    ON CONFLICT (key) DO UPDATE
    SET value = EXCLUDED.value, updated_at = now();`
	removeStateSQL = `DELETE FROM app_state WHERE key = $1;`
)

// PostgresKV stores state in the app_state table.
type PostgresKV struct {
	pool *pgxpool.Pool
}

// NewPostgresKV wires a pgx pool into a KV store.
func NewPostgresKV(pool *pgxpool.Pool) *PostgresKV {
	return &PostgresKV{pool: pool}
}

// Close releases the underlying pool resources.
func (s *PostgresKV) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *PostgresKV) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// Get reads one value, reporting absence for unknown keys.
func (s *PostgresKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	var value []byte
	if err := pool.QueryRow(ctx, getStateSQL, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get state %q: %w", key, err)
	}
	return value, true, nil
}

// Set upserts one value.
func (s *PostgresKV) Set(ctx context.Context, key string, value []byte) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, upsertStateSQL, key, value); err != nil {
		return fmt.Errorf("set state %q: %w", key, err)
	}
	return nil
}

// Remove deletes one key; removing an absent key is a no-op.
func (s *PostgresKV) Remove(ctx context.Context, key string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, removeStateSQL, key); err != nil {
		return fmt.Errorf("remove state %q: %w", key, err)
	}
	return nil
}

// SetAll applies all writes in a single transaction.
func (s *PostgresKV) SetAll(ctx context.Context, entries map[string][]byte) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin state swap: %w", err)
	}
	defer tx.Rollback(ctx)

	for key, value := range entries {
		if value == nil {
			if _, err := tx.Exec(ctx, removeStateSQL, key); err != nil {
				return fmt.Errorf("swap remove %q: %w", key, err)
			}
			continue
		}
		if _, err := tx.Exec(ctx, upsertStateSQL, key, value); err != nil {
			return fmt.Errorf("swap set %q: %w", key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit state swap: %w", err)
	}
	return nil
}

var _ KV = (*PostgresKV)(nil)
