// Package sessionstore defines the durable key-value contract consumed by
// the cascade, checkpoint, and goal packages (spec.md §6): put/get/
// list_prefix/delete_prefix over a flat keyspace, with a single-writer-per-
// session invariant. Two implementations are provided: memstore (in-process,
// for tests and single-process deployments) and pgstore (Postgres-backed).
package sessionstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when key has no stored value.
var ErrNotFound = errors.New("sessionstore: key not found")

// Store is the durable key-value contract. Keys are caller-composed using
// the keyspaces spec.md §6 names: "sessions/{id}", "assessments/{session_id}
// /{phase}/{round}", "goals/{id}", "identities/{ai_id}".
//
// Implementations must guarantee at most one writer proceeds per sessionID
// at a time (the single-writer-per-session invariant); WithSessionLock
// expresses this for callers that need to serialize a read-modify-write
// sequence spanning multiple keys.
type Store interface {
	// Put writes value under key, replacing any existing value.
	Put(ctx context.Context, key string, value []byte) error

	// Get reads the value stored under key. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// ListPrefix returns all key/value pairs whose key starts with prefix.
	ListPrefix(ctx context.Context, prefix string) (map[string][]byte, error)

	// DeletePrefix removes every key starting with prefix and reports how
	// many entries were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// WithSessionLock runs fn with exclusive access for sessionID: no other
	// call to WithSessionLock for the same sessionID, on this Store or (for
	// pgstore) any other process sharing the same database, proceeds until
	// fn returns.
	WithSessionLock(ctx context.Context, sessionID string, fn func(ctx context.Context) error) error
}
