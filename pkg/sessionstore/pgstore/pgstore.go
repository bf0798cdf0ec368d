// Package pgstore is a Postgres-backed sessionstore.Store implementation
// using jackc/pgx/v5 directly, grounded on pkg/database/client.go's
// connection-pool setup and embedded-migration pattern.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nubaeon/empirica/pkg/sessionstore"
)

// Store is a Postgres-backed sessionstore.Store. The zero value is not
// usable; construct with New.
type Store struct {
	pool *pgxpool.Pool
}

// New opens a connection pool against cfg, applies pending migrations, and
// returns a ready Store. The caller must call Close when done.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := runMigrations(cfg); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Health reports whether the pool can reach the database, grounded on
// pkg/database/health.go's Health(ctx, db) check.
func (s *Store) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// jsonNull is what a nil/empty Put value is stored as, since kv_entries.value
// is JSONB NOT NULL and cannot hold an empty byte string. Get translates it
// back to a zero-length, non-nil slice so callers (e.g. checkpoint's alias
// bookkeeping, which clears an alias by Put-ing an empty value) see the same
// "present but empty" shape memstore produces.
var jsonNull = []byte("null")

// Put implements sessionstore.Store. Values must be valid JSON text since
// the underlying column is JSONB; every writer in this system (checkpoint,
// goal, cascade) serializes via encoding/json before calling Put. A nil or
// empty value is stored as the JSON null literal, since the column rejects
// empty strings.
//
// The insert races are resolved with SELECT ... FOR UPDATE on the target
// row inside a transaction before the upsert, giving the single-writer-per-
// key guarantee spec.md §6 requires even without an explicit session lock.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var discard []byte
	err = tx.QueryRow(ctx, `SELECT value FROM kv_entries WHERE key = $1 FOR UPDATE`, key).Scan(&discard)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to lock existing row: %w", err)
	}

	stored := value
	if len(stored) == 0 {
		stored = jsonNull
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, stored)
	if err != nil {
		return fmt.Errorf("failed to upsert key %q: %w", key, err)
	}

	return tx.Commit(ctx)
}

// Get implements sessionstore.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv_entries WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sessionstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	if string(value) == "null" {
		return []byte{}, nil
	}
	return value, nil
}

// ListPrefix implements sessionstore.Store.
func (s *Store) ListPrefix(ctx context.Context, prefix string) (map[string][]byte, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM kv_entries WHERE key LIKE $1`, escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to scan prefix %q: %w", prefix, err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out[key] = value
	}
	return out, rows.Err()
}

// DeletePrefix implements sessionstore.Store.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM kv_entries WHERE key LIKE $1`, escapeLike(prefix)+"%")
	if err != nil {
		return 0, fmt.Errorf("failed to delete prefix %q: %w", prefix, err)
	}
	return int(tag.RowsAffected()), nil
}

// WithSessionLock implements sessionstore.Store using a Postgres advisory
// transaction lock keyed by the FNV-1a hash of sessionID, so concurrent
// processes sharing this database serialize on the same session.
func (s *Store) WithSessionLock(ctx context.Context, sessionID string, fn func(ctx context.Context) error) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin lock transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, sessionLockKey(sessionID)); err != nil {
		return fmt.Errorf("failed to acquire session lock: %w", err)
	}

	if err := fn(ctx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func sessionLockKey(sessionID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(sessionID))
	return int64(h.Sum64())
}

// escapeLike escapes LIKE metacharacters in prefix so literal % or _
// characters in a key don't act as wildcards.
func escapeLike(prefix string) string {
	out := make([]byte, 0, len(prefix))
	for i := 0; i < len(prefix); i++ {
		switch prefix[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, prefix[i])
	}
	return string(out)
}

var _ sessionstore.Store = (*Store)(nil)
