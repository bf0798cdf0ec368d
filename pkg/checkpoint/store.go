package checkpoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/nubaeon/empirica/pkg/identity"
	"github.com/nubaeon/empirica/pkg/sessionstore"
	"github.com/nubaeon/empirica/pkg/vcsnotes"
)

// Store implements append/latest/list/diff/session_trace_hash over a
// sessionstore.Store secondary index plus an optional vcsnotes.Store for
// cross-repository sharing. notes may be nil, in which case the store
// operates permanently in session-store-only (degraded) mode.
type Store struct {
	notes    *vcsnotes.Store
	sessions sessionstore.Store
	noteRef  string
}

// NewStore constructs a Store. noteRef is the note-ref root (e.g.
// "refs/notes/empirica/checkpoints"); notes may be nil if no VCS is
// available, in which case Append degrades to session-store-only silently.
func NewStore(notes *vcsnotes.Store, sessions sessionstore.Store, noteRef string) *Store {
	return &Store{notes: notes, sessions: sessions, noteRef: noteRef}
}

// Append serializes rec to canonical JSON, computes its content-addressed
// id, and durably records it: body + secondary index in the session store
// (single-writer-per-session, via WithSessionLock), and — best-effort — a
// git note keyed by a synthetic hash derived from the checkpoint id. If the
// VCS write fails, Append logs and continues in degraded mode rather than
// failing the call, per spec.md §4.5's failure-mode wording.
func (s *Store) Append(ctx context.Context, rec Record) (string, error) {
	canonical, err := identity.CanonicalJSON(rec)
	if err != nil {
		return "", fmt.Errorf("checkpoint: failed to serialize record: %w", err)
	}
	if len(canonical) > MaxSerializedBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLarge, len(canonical))
	}

	sum := sha256.Sum256(canonical)
	id := hex.EncodeToString(sum[:])

	err = s.sessions.WithSessionLock(ctx, rec.SessionID, func(ctx context.Context) error {
		if err := s.sessions.Put(ctx, bodyKey(rec.SessionID, id), canonical); err != nil {
			return fmt.Errorf("failed to store checkpoint body: %w", err)
		}

		idx, err := s.loadIndex(ctx, rec.SessionID)
		if err != nil {
			return err
		}
		if !containsString(idx, id) {
			idx = append(idx, id)
			if err := s.storeIndex(ctx, rec.SessionID, idx); err != nil {
				return fmt.Errorf("failed to update checkpoint index: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.updateAliases(ctx, rec)

	if s.notes != nil {
		key, hashErr := syntheticHash(id)
		if hashErr != nil {
			slog.Warn("checkpoint: failed to derive note key, degrading to session-store-only", "session_id", rec.SessionID, "error", hashErr)
		} else if err := s.notes.AttachNote(ctx, s.noteRef, key, canonical); err != nil {
			slog.Warn("checkpoint: note ref unavailable, degrading to session-store-only", "session_id", rec.SessionID, "checkpoint_id", id, "error", err)
		}
	}

	return id, nil
}

// Latest returns the highest-timestamp checkpoint for sessionIDOrAlias,
// optionally filtered to aiID.
func (s *Store) Latest(ctx context.Context, sessionIDOrAlias, aiID string) (*Record, error) {
	sessionID, err := s.ResolveAlias(ctx, sessionIDOrAlias)
	if err != nil {
		return nil, err
	}

	idx, err := s.loadIndex(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i := len(idx) - 1; i >= 0; i-- {
		rec, err := s.loadBody(ctx, sessionID, idx[i])
		if err != nil {
			return nil, err
		}
		if aiID == "" || rec.AIID == aiID {
			return &rec, nil
		}
	}
	return nil, ErrNotFound
}

// List returns every checkpoint for sessionIDOrAlias, ordered by timestamp
// ascending (the append order, per spec.md §4.5's ordering guarantee).
func (s *Store) List(ctx context.Context, sessionIDOrAlias string) ([]Record, error) {
	sessionID, err := s.ResolveAlias(ctx, sessionIDOrAlias)
	if err != nil {
		return nil, err
	}

	idx, err := s.loadIndex(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(idx))
	for _, id := range idx {
		rec, err := s.loadBody(ctx, sessionID, id)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Diff computes the componentwise score deltas (b − a) and the symmetric
// difference of metadata keys between a and b, per spec.md §4.5.
func (s *Store) Diff(a, b Record) (map[string]float64, []string, error) {
	if len(a.Vectors) != 13 || len(b.Vectors) != 13 {
		return nil, nil, ErrInvalidVectorCount
	}

	deltas := make(map[string]float64, len(a.Vectors))
	for name, av := range a.Vectors {
		deltas[name] = roundTo2(b.Vectors[name] - av)
	}

	keys := make(map[string]bool)
	for k := range a.Metadata {
		if _, ok := b.Metadata[k]; !ok {
			keys[k] = true
		}
	}
	for k := range b.Metadata {
		if _, ok := a.Metadata[k]; !ok {
			keys[k] = true
		}
	}
	diffKeys := make([]string, 0, len(keys))
	for k := range keys {
		diffKeys = append(diffKeys, k)
	}
	sort.Strings(diffKeys)

	return deltas, diffKeys, nil
}

// SessionTraceHash computes SHA-256 over the ordered concatenation of
// checkpoint ids for sessionIDOrAlias, for use as cascade_trace_hash.
func (s *Store) SessionTraceHash(ctx context.Context, sessionIDOrAlias string) ([]byte, error) {
	sessionID, err := s.ResolveAlias(ctx, sessionIDOrAlias)
	if err != nil {
		return nil, err
	}
	idx, err := s.loadIndex(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return identity.TraceHash(idx), nil
}

// ResolveAlias resolves one of the session aliases spec.md §4.5 names
// ("latest", "latest:active", "latest:<ai_id>", "latest:active:<ai_id>")
// to a concrete session id via the session store's bookkeeping entries. A
// string that is not one of those forms is returned unchanged.
func (s *Store) ResolveAlias(ctx context.Context, alias string) (string, error) {
	if !strings.HasPrefix(alias, "latest") {
		return alias, nil
	}

	var key string
	switch {
	case alias == "latest":
		key = aliasLatestKey
	case alias == "latest:active":
		key = aliasLatestActiveKey
	case strings.HasPrefix(alias, "latest:active:"):
		key = aliasLatestActiveByAIKey(strings.TrimPrefix(alias, "latest:active:"))
	case strings.HasPrefix(alias, "latest:"):
		key = aliasLatestByAIKey(strings.TrimPrefix(alias, "latest:"))
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownAlias, alias)
	}

	v, err := s.sessions.Get(ctx, key)
	if errors.Is(err, sessionstore.ErrNotFound) || len(v) == 0 {
		return "", fmt.Errorf("%w: %s", ErrUnknownAlias, alias)
	}
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (s *Store) updateAliases(ctx context.Context, rec Record) {
	_ = s.sessions.Put(ctx, aliasLatestKey, []byte(rec.SessionID))
	_ = s.sessions.Put(ctx, aliasLatestByAIKey(rec.AIID), []byte(rec.SessionID))

	if isActive(rec) {
		_ = s.sessions.Put(ctx, aliasLatestActiveKey, []byte(rec.SessionID))
		_ = s.sessions.Put(ctx, aliasLatestActiveByAIKey(rec.AIID), []byte(rec.SessionID))
		return
	}

	s.clearAliasIfMatches(ctx, aliasLatestActiveKey, rec.SessionID)
	s.clearAliasIfMatches(ctx, aliasLatestActiveByAIKey(rec.AIID), rec.SessionID)
}

func (s *Store) clearAliasIfMatches(ctx context.Context, key, sessionID string) {
	v, err := s.sessions.Get(ctx, key)
	if err == nil && string(v) == sessionID {
		_ = s.sessions.Put(ctx, key, nil)
	}
}

// isActive reports whether rec represents an in-progress (non-terminal)
// session, used to maintain the "latest:active" bookkeeping entries.
func isActive(rec Record) bool {
	if rec.Phase == PhasePostflight {
		return false
	}
	if _, hasErr := rec.Metadata["error"]; hasErr {
		return false
	}
	if action, ok := rec.Metadata["recommended_action"].(string); ok {
		if action == "BLOCK" || action == "ESCALATE" {
			return false
		}
	}
	return true
}

func (s *Store) loadBody(ctx context.Context, sessionID, id string) (Record, error) {
	raw, err := s.sessions.Get(ctx, bodyKey(sessionID, id))
	if err != nil {
		return Record{}, fmt.Errorf("checkpoint: failed to load body %s: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("checkpoint: failed to decode body %s: %w", id, err)
	}
	return rec, nil
}

func (s *Store) loadIndex(ctx context.Context, sessionID string) ([]string, error) {
	raw, err := s.sessions.Get(ctx, indexKey(sessionID))
	if errors.Is(err, sessionstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint: failed to load index: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("checkpoint: failed to decode index: %w", err)
	}
	return ids, nil
}

func (s *Store) storeIndex(ctx context.Context, sessionID string, ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return s.sessions.Put(ctx, indexKey(sessionID), raw)
}

func containsString(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func bodyKey(sessionID, id string) string {
	return fmt.Sprintf("sessions/%s/checkpoints/%s", sessionID, id)
}

func indexKey(sessionID string) string {
	return fmt.Sprintf("sessions/%s/checkpoint_index", sessionID)
}

const (
	aliasLatestKey       = "sessions/_meta/latest"
	aliasLatestActiveKey = "sessions/_meta/latest_active"
)

func aliasLatestByAIKey(aiID string) string {
	return fmt.Sprintf("sessions/_meta/latest_by_ai/%s", aiID)
}

func aliasLatestActiveByAIKey(aiID string) string {
	return fmt.Sprintf("sessions/_meta/latest_active_by_ai/%s", aiID)
}

// syntheticHash derives a plumbing.Hash key for the vcsnotes tree from a
// checkpoint id. Checkpoint ids are hex-SHA-256 (32 bytes); plumbing.Hash is
// sized for SHA-1 (20 bytes), so this truncates to the first 40 hex
// characters. The truncated value is only ever used as an opaque notes-tree
// key, never compared against a real commit hash, so the truncation is safe.
func syntheticHash(checkpointID string) (plumbing.Hash, error) {
	if len(checkpointID) < 40 {
		return plumbing.ZeroHash, fmt.Errorf("checkpoint id too short: %s", checkpointID)
	}
	return plumbing.NewHash(checkpointID[:40]), nil
}
