package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nubaeon/empirica/pkg/sessionstore/memstore"
	"github.com/nubaeon/empirica/pkg/vcsnotes"
	"github.com/nubaeon/empirica/pkg/vector"
)

func fullVector(t *testing.T) *vector.Vector {
	t.Helper()
	components := map[string]vector.Component{}
	for _, name := range vector.Names {
		components[name] = vector.Component{Score: 0.5}
	}
	v, err := vector.FromParsed(components)
	require.NoError(t, err)
	return v
}

func initGitRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0o644))
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	sig := &object.Signature{Name: "t", Email: "t@localhost"}
	_, err = wt.Commit("initial", &git.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)
	return dir
}

func TestAppendAndLatestAndList(t *testing.T) {
	sessions := memstore.New()
	store := NewStore(nil, sessions, "refs/notes/empirica/checkpoints")
	ctx := context.Background()
	v := fullVector(t)

	rec1, err := NewRecord("s1", "agent-a", PhasePreflight, 0, v, map[string]any{"confidence": 0.7, "recommended_action": "PROCEED"}, time.Unix(100, 0))
	require.NoError(t, err)
	id1, err := store.Append(ctx, rec1)
	require.NoError(t, err)

	rec2, err := NewRecord("s1", "agent-a", PhasePostflight, 0, v, map[string]any{"confidence": 0.9, "recommended_action": "PROCEED"}, time.Unix(200, 0))
	require.NoError(t, err)
	id2, err := store.Append(ctx, rec2)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	latest, err := store.Latest(ctx, "s1", "")
	require.NoError(t, err)
	assert.Equal(t, PhasePostflight, latest.Phase)

	all, err := store.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, PhasePreflight, all[0].Phase)
	assert.Equal(t, PhasePostflight, all[1].Phase)
}

func TestAppendIdempotentOnIdenticalBody(t *testing.T) {
	sessions := memstore.New()
	store := NewStore(nil, sessions, "refs/notes/empirica/checkpoints")
	ctx := context.Background()
	v := fullVector(t)

	rec, err := NewRecord("s1", "agent-a", PhasePreflight, 0, v, nil, time.Unix(100, 0))
	require.NoError(t, err)

	id1, err := store.Append(ctx, rec)
	require.NoError(t, err)
	id2, err := store.Append(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	all, err := store.List(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDiff(t *testing.T) {
	sessions := memstore.New()
	store := NewStore(nil, sessions, "refs/notes/empirica/checkpoints")
	v := fullVector(t)

	a, err := NewRecord("s1", "agent-a", PhasePreflight, 0, v, map[string]any{"confidence": 0.5}, time.Unix(100, 0))
	require.NoError(t, err)
	b, err := NewRecord("s1", "agent-a", PhasePostflight, 1, v, map[string]any{"calibration_accuracy": 0.9}, time.Unix(200, 0))
	require.NoError(t, err)

	deltas, metaDiff, err := store.Diff(a, b)
	require.NoError(t, err)
	for _, d := range deltas {
		assert.Equal(t, 0.0, d)
	}
	assert.ElementsMatch(t, []string{"confidence", "calibration_accuracy"}, metaDiff)
}

func TestSessionTraceHash(t *testing.T) {
	sessions := memstore.New()
	store := NewStore(nil, sessions, "refs/notes/empirica/checkpoints")
	ctx := context.Background()
	v := fullVector(t)

	rec, err := NewRecord("s1", "agent-a", PhasePreflight, 0, v, nil, time.Unix(100, 0))
	require.NoError(t, err)
	_, err = store.Append(ctx, rec)
	require.NoError(t, err)

	hash1, err := store.SessionTraceHash(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, hash1, 32)
}

func TestResolveAliases(t *testing.T) {
	sessions := memstore.New()
	store := NewStore(nil, sessions, "refs/notes/empirica/checkpoints")
	ctx := context.Background()
	v := fullVector(t)

	rec, err := NewRecord("s1", "agent-a", PhasePreflight, 0, v, map[string]any{"recommended_action": "INVESTIGATE"}, time.Unix(100, 0))
	require.NoError(t, err)
	_, err = store.Append(ctx, rec)
	require.NoError(t, err)

	resolved, err := store.ResolveAlias(ctx, "latest")
	require.NoError(t, err)
	assert.Equal(t, "s1", resolved)

	resolved, err = store.ResolveAlias(ctx, "latest:active")
	require.NoError(t, err)
	assert.Equal(t, "s1", resolved)

	resolved, err = store.ResolveAlias(ctx, "latest:agent-a")
	require.NoError(t, err)
	assert.Equal(t, "s1", resolved)

	resolved, err = store.ResolveAlias(ctx, "latest:active:agent-a")
	require.NoError(t, err)
	assert.Equal(t, "s1", resolved)

	// terminal checkpoint clears the active alias
	terminal, err := NewRecord("s1", "agent-a", PhasePostflight, 1, v, nil, time.Unix(200, 0))
	require.NoError(t, err)
	_, err = store.Append(ctx, terminal)
	require.NoError(t, err)

	_, err = store.ResolveAlias(ctx, "latest:active")
	assert.ErrorIs(t, err, ErrUnknownAlias)

	resolved, err = store.ResolveAlias(ctx, "latest")
	require.NoError(t, err)
	assert.Equal(t, "s1", resolved)
}

func TestAppendTooLarge(t *testing.T) {
	sessions := memstore.New()
	store := NewStore(nil, sessions, "refs/notes/empirica/checkpoints")
	ctx := context.Background()
	v := fullVector(t)

	bigTask := make([]byte, MaxSerializedBytes*2)
	for i := range bigTask {
		bigTask[i] = 'x'
	}
	rec, err := NewRecord("s1", "agent-a", PhasePreflight, 0, v, map[string]any{"task": string(bigTask)}, time.Unix(100, 0))
	require.NoError(t, err)

	_, err = store.Append(ctx, rec)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestAppendWithVCSNotes(t *testing.T) {
	repoDir := initGitRepo(t)
	notes, err := vcsnotes.Open(repoDir)
	require.NoError(t, err)

	sessions := memstore.New()
	store := NewStore(notes, sessions, "refs/notes/empirica/checkpoints")
	ctx := context.Background()
	v := fullVector(t)

	rec, err := NewRecord("s1", "agent-a", PhasePreflight, 0, v, nil, time.Unix(100, 0))
	require.NoError(t, err)
	id, err := store.Append(ctx, rec)
	require.NoError(t, err)

	notesList, err := notes.ListNotes(ctx, "refs/notes/empirica/checkpoints")
	require.NoError(t, err)
	require.Len(t, notesList, 1)
	assert.Equal(t, id[:40], notesList[0].Commit.String())
}
