// Package e2e drives the full empirica stack — cascade, checkpoint store,
// goal store, vcsnotes, identity — together against an in-memory session
// store and a throwaway on-disk git repository, rather than mocking any one
// package in isolation. pkg/sessionstore/pgstore's own integration tests use
// test/util's testcontainers-go bootstrap instead; these tests need no
// database.
package e2e

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/nubaeon/empirica/pkg/checkpoint"
	"github.com/nubaeon/empirica/pkg/goal"
	"github.com/nubaeon/empirica/pkg/identity"
	"github.com/nubaeon/empirica/pkg/llm"
	"github.com/nubaeon/empirica/pkg/sessionstore"
	"github.com/nubaeon/empirica/pkg/sessionstore/memstore"
	"github.com/nubaeon/empirica/pkg/vcsnotes"
	"github.com/nubaeon/empirica/pkg/vector"
)

// stack bundles one end-to-end session's collaborators: a fresh git
// repository backing vcsnotes, an in-memory session store, and the
// checkpoint/goal/identity layers built on top.
type stack struct {
	sessions    sessionstore.Store
	notes       *vcsnotes.Store
	checkpoints *checkpoint.Store
	goals       *goal.Store
	identities  *identity.Service
}

// newStack wires one full collaborator set rooted at a fresh temp git repo.
func newStack(t *testing.T) *stack {
	t.Helper()
	repoDir := initGitRepo(t)
	notes, err := vcsnotes.Open(repoDir)
	require.NoError(t, err)

	sessions := memstore.New()
	return &stack{
		sessions:    sessions,
		notes:       notes,
		checkpoints: checkpoint.NewStore(notes, sessions, "refs/notes/empirica/checkpoints"),
		goals:       goal.NewStore(notes, sessions, "refs/notes/empirica/goals"),
		identities:  identity.NewService(t.TempDir()),
	}
}

// initGitRepo creates a throwaway git repository with one commit, mirroring
// pkg/checkpoint's and pkg/goal's own test helper.
func initGitRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("e2e fixture repo"), 0o644))
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	sig := &object.Signature{Name: "empirica-e2e", Email: "e2e@localhost"}
	_, err = wt.Commit("initial", &git.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)
	return dir
}

// seedVector builds a full, validly-scored Vector for callers (like goal
// creation) that need a starting epistemic state but aren't exercising the
// cascade itself.
func seedVector(t *testing.T) *vector.Vector {
	t.Helper()
	components := make(map[string]vector.Component, len(vector.Names))
	for _, name := range vector.Names {
		components[name] = vector.Component{Score: 0.5, Rationale: "e2e seed"}
	}
	v, err := vector.FromParsed(components)
	require.NoError(t, err)
	return v
}

// mustParseTime parses an RFC3339 checkpoint timestamp, failing the test on
// a malformed value.
func mustParseTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

// flatLeaf mirrors assessment's flat-by-component wire leaf shape.
type flatLeaf struct {
	Score                 float64 `json:"score"`
	Rationale             string  `json:"rationale"`
	Evidence              string  `json:"evidence,omitempty"`
	WarrantsInvestigation bool    `json:"warrants_investigation"`
	InvestigationPriority int     `json:"investigation_priority"`
}

// flatReply builds a well-formed flat-by-component assessment reply with
// every component defaulted to a high, unremarkable score, overridden by
// whatever scores is supplied.
func flatReply(t *testing.T, scores map[string]float64) string {
	t.Helper()
	reply := make(map[string]flatLeaf, len(vector.Names))
	for _, name := range vector.Names {
		score := 0.85
		if s, ok := scores[name]; ok {
			score = s
		}
		reply[name] = flatLeaf{Score: score, Rationale: "e2e scripted reply"}
	}
	body, err := json.Marshal(reply)
	require.NoError(t, err)
	return string(body)
}

// scriptedLLM replays replies in order, failing the test if more calls are
// made than replies supplied.
func scriptedLLM(t *testing.T, replies []string) llm.FuncClient {
	t.Helper()
	i := 0
	return func(ctx context.Context, prompt, modelID string) (string, error) {
		require.Less(t, i, len(replies), "scriptedLLM: ran out of scripted replies")
		reply := replies[i]
		i++
		return reply, nil
	}
}
