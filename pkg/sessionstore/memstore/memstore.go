// Package memstore is an in-memory sessionstore.Store implementation for
// tests and single-process use, grounded on pkg/session/manager.go's
// mutex-guarded map.
package memstore

import (
	"context"
	"strings"
	"sync"

	"github.com/nubaeon/empirica/pkg/sessionstore"
)

// Store is a sync.RWMutex-guarded in-memory key-value store. The zero value
// is not usable; construct with New.
type Store struct {
	mu       sync.RWMutex
	entries  map[string][]byte
	sessions map[string]*sync.Mutex
	sessMu   sync.Mutex
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		entries:  make(map[string][]byte),
		sessions: make(map[string]*sync.Mutex),
	}
}

// Put implements sessionstore.Store.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(value))
	copy(cp, value)
	s.entries[key] = cp
	return nil
}

// Get implements sessionstore.Store.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.entries[key]
	if !ok {
		return nil, sessionstore.ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

// ListPrefix implements sessionstore.Store.
func (s *Store) ListPrefix(_ context.Context, prefix string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]byte)
	for k, v := range s.entries {
		if strings.HasPrefix(k, prefix) {
			cp := make([]byte, len(v))
			copy(cp, v)
			out[k] = cp
		}
	}
	return out, nil
}

// DeletePrefix implements sessionstore.Store.
func (s *Store) DeletePrefix(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}

// WithSessionLock implements sessionstore.Store by serializing calls for the
// same sessionID through a per-session mutex.
func (s *Store) WithSessionLock(ctx context.Context, sessionID string, fn func(ctx context.Context) error) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()
	return fn(ctx)
}

func (s *Store) sessionLock(sessionID string) *sync.Mutex {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()

	lock, ok := s.sessions[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.sessions[sessionID] = lock
	}
	return lock
}

var _ sessionstore.Store = (*Store)(nil)
