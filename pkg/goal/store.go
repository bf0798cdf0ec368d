package goal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/uuid"

	"github.com/nubaeon/empirica/pkg/sessionstore"
	"github.com/nubaeon/empirica/pkg/vcsnotes"
	"github.com/nubaeon/empirica/pkg/vector"
)

// Store implements create_goal/add_subtask/complete_subtask/discover/
// resume/mark_complete (spec.md §4.6) over a sessionstore.Store record plus
// an optional vcsnotes.Store mirror for cross-agent discover. notes may be
// nil, in which case Discover always returns an empty list and every other
// operation degrades to session-store-only.
type Store struct {
	notes    *vcsnotes.Store
	sessions sessionstore.Store
	noteRef  string
}

// NewStore constructs a Store. noteRef is the note-ref root (e.g.
// "refs/notes/empirica/goals").
func NewStore(notes *vcsnotes.Store, sessions sessionstore.Store, noteRef string) *Store {
	return &Store{notes: notes, sessions: sessions, noteRef: noteRef}
}

// CreateGoal persists a new goal record, stamping epistemic_state from
// currentVector.ToFlat() and appending a "created" lineage entry, per
// spec.md §4.6.
func (s *Store) CreateGoal(ctx context.Context, sessionID, creatorAIID, objective string, scope Scope, criteria []Criterion, complexity float64, currentVector *vector.Vector) (string, error) {
	g := Goal{
		GoalID:              uuid.New().String(),
		SessionID:           sessionID,
		AIID:                creatorAIID,
		CreatedAt:           time.Now().UTC(),
		Objective:           objective,
		Scope:               scope,
		SuccessCriteria:     criteria,
		EstimatedComplexity: complexity,
		Subtasks:            []Subtask{},
		EpistemicState:      currentVector.ToFlat(),
		Lineage: []LineageEntry{
			{AIID: creatorAIID, Timestamp: time.Now().UTC(), Action: ActionCreated},
		},
	}

	if err := s.save(ctx, &g); err != nil {
		return "", err
	}
	return g.GoalID, nil
}

// AddSubtask appends a new subtask to goalID, validating that every
// dependency id already exists on the goal.
func (s *Store) AddSubtask(ctx context.Context, goalID, description string, importance Importance, dependencies []string, estimatedTokens int) (string, error) {
	g, err := s.load(ctx, goalID)
	if err != nil {
		return "", err
	}

	existing := make(map[string]bool, len(g.Subtasks))
	for _, st := range g.Subtasks {
		existing[st.ID] = true
	}
	for _, dep := range dependencies {
		if !existing[dep] {
			return "", fmt.Errorf("%w: %s", ErrUnknownDependency, dep)
		}
	}

	sub := Subtask{
		ID:              uuid.New().String(),
		Description:     description,
		Status:          SubtaskPending,
		Importance:      importance,
		Dependencies:    dependencies,
		EstimatedTokens: estimatedTokens,
	}
	g.Subtasks = append(g.Subtasks, sub)

	if err := s.save(ctx, g); err != nil {
		return "", err
	}
	return sub.ID, nil
}

// CompleteSubtask sets subtaskID's status to completed and records evidence,
// after validating every dependency is already completed.
func (s *Store) CompleteSubtask(ctx context.Context, goalID, subtaskID, evidence string) error {
	g, err := s.load(ctx, goalID)
	if err != nil {
		return err
	}

	byID := make(map[string]*Subtask, len(g.Subtasks))
	for i := range g.Subtasks {
		byID[g.Subtasks[i].ID] = &g.Subtasks[i]
	}

	target, ok := byID[subtaskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSubtaskNotFound, subtaskID)
	}

	for _, depID := range target.Dependencies {
		dep, ok := byID[depID]
		if !ok || dep.Status != SubtaskCompleted {
			return fmt.Errorf("%w: %s", ErrUnmetDependency, depID)
		}
	}

	target.Status = SubtaskCompleted
	target.CompletionEvidence = &evidence

	return s.save(ctx, g)
}

// Discover lists goal ids readable from the side-notes mirror, optionally
// filtered by creator ai_id and/or scope. Filtering is an in-memory scan, per
// spec.md's "out of core scope" framing of anything beyond simple filters at
// this data volume.
func (s *Store) Discover(ctx context.Context, aiIDFilter string, scopeFilter Scope) ([]string, error) {
	if s.notes == nil {
		return nil, nil
	}

	entries, err := s.notes.ListNotes(ctx, s.noteRef)
	if err != nil {
		if errors.Is(err, vcsnotes.ErrRefNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("goal: failed to list goal notes: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		var g Goal
		if err := json.Unmarshal(entry.Body, &g); err != nil {
			continue
		}
		if aiIDFilter != "" && g.AIID != aiIDFilter {
			continue
		}
		if scopeFilter != "" && g.Scope != scopeFilter {
			continue
		}
		ids = append(ids, g.GoalID)
	}
	return ids, nil
}

// Resume appends a "resumed" lineage entry for resumingAIID and returns the
// updated record. The caller decides, from the returned epistemic_state and
// the session's latest checkpoint, whether to re-cascade or continue from
// CHECK — no re-PREFLIGHT is forced at this layer, per spec.md §4.6's
// handoff semantics. Resume is intentionally not idempotent: each call
// appends a distinct lineage entry.
func (s *Store) Resume(ctx context.Context, goalID, resumingAIID string) (*Goal, error) {
	g, err := s.load(ctx, goalID)
	if err != nil {
		return nil, err
	}

	g.Lineage = append(g.Lineage, LineageEntry{AIID: resumingAIID, Timestamp: time.Now().UTC(), Action: ActionResumed})

	if err := s.save(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// MarkComplete appends a "completed" lineage entry, allowed only when every
// success criterion on the goal has IsMet = true.
func (s *Store) MarkComplete(ctx context.Context, goalID, completingAIID string) error {
	g, err := s.load(ctx, goalID)
	if err != nil {
		return err
	}
	if !g.IsTerminal() {
		return ErrCriteriaUnmet
	}

	g.Lineage = append(g.Lineage, LineageEntry{AIID: completingAIID, Timestamp: time.Now().UTC(), Action: ActionCompleted})

	return s.save(ctx, g)
}

// Load returns the current record for goalID without mutating lineage.
func (s *Store) Load(ctx context.Context, goalID string) (*Goal, error) {
	return s.load(ctx, goalID)
}

func (s *Store) load(ctx context.Context, goalID string) (*Goal, error) {
	raw, err := s.sessions.Get(ctx, sessionstore.GoalKey(goalID))
	if errors.Is(err, sessionstore.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("goal: failed to load %s: %w", goalID, err)
	}
	var g Goal
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("goal: failed to decode %s: %w", goalID, err)
	}
	return &g, nil
}

func (s *Store) save(ctx context.Context, g *Goal) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("goal: failed to serialize %s: %w", g.GoalID, err)
	}
	if err := s.sessions.Put(ctx, sessionstore.GoalKey(g.GoalID), raw); err != nil {
		return fmt.Errorf("goal: failed to store %s: %w", g.GoalID, err)
	}

	if s.notes != nil {
		key, hashErr := goalNoteHash(g.GoalID)
		if hashErr != nil {
			slog.Warn("goal: failed to derive note key, degrading to session-store-only", "goal_id", g.GoalID, "error", hashErr)
		} else if err := s.notes.AttachNote(ctx, s.noteRef, key, raw); err != nil {
			slog.Warn("goal: note ref unavailable, degrading to session-store-only", "goal_id", g.GoalID, "error", err)
		}
	}
	return nil
}

// goalNoteHash derives a stable plumbing.Hash notes-tree key from goalID, the
// same truncate-SHA-256-to-20-bytes technique pkg/checkpoint's syntheticHash
// uses — except here it is keyed by goal id rather than by content, since a
// goal record mutates in place and each save force-updates the same note
// (last-writer-wins), unlike a checkpoint's one-note-per-version history.
func goalNoteHash(goalID string) (plumbing.Hash, error) {
	if goalID == "" {
		return plumbing.ZeroHash, fmt.Errorf("goal: empty goal id")
	}
	sum := sha256.Sum256([]byte(goalID))
	return plumbing.NewHash(hex.EncodeToString(sum[:])[:40]), nil
}
