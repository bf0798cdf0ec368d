package vcsnotes

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRef = "refs/notes/empirica/checkpoints"

func newTestRepo(t *testing.T) (*Store, plumbing.Hash) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	filePath := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(filePath, []byte("empirica test fixture"), 0o644))
	_, err = wt.Add("README.md")
	require.NoError(t, err)

	sig := &object.Signature{Name: "test", Email: "test@localhost"}
	commitHash, err := wt.Commit("initial commit", &git.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)

	store, err := Open(dir)
	require.NoError(t, err)
	return store, commitHash
}

func TestAttachAndReadNote(t *testing.T) {
	store, commit := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, store.AttachNote(ctx, testRef, commit, []byte(`{"confidence":0.8}`)))

	body, err := store.ReadNote(ctx, testRef, commit)
	require.NoError(t, err)
	assert.Equal(t, `{"confidence":0.8}`, string(body))
}

func TestReadNote_RefNotFound(t *testing.T) {
	store, commit := newTestRepo(t)
	_, err := store.ReadNote(context.Background(), testRef, commit)
	assert.True(t, errors.Is(err, ErrRefNotFound))
}

func TestReadNote_NoteNotFound(t *testing.T) {
	store, commit := newTestRepo(t)
	ctx := context.Background()

	other := commit
	other[0] ^= 0xFF
	require.NoError(t, store.AttachNote(ctx, testRef, other, []byte("x")))

	_, err := store.ReadNote(ctx, testRef, commit)
	assert.True(t, errors.Is(err, ErrNoteNotFound))
}

func TestAttachNote_LastWriterWins(t *testing.T) {
	store, commit := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, store.AttachNote(ctx, testRef, commit, []byte("first")))
	require.NoError(t, store.AttachNote(ctx, testRef, commit, []byte("second")))

	body, err := store.ReadNote(ctx, testRef, commit)
	require.NoError(t, err)
	assert.Equal(t, "second", string(body))
}

func TestListNotes(t *testing.T) {
	store, commit := newTestRepo(t)
	ctx := context.Background()

	other := commit
	other[0] ^= 0xFF

	require.NoError(t, store.AttachNote(ctx, testRef, commit, []byte("a")))
	require.NoError(t, store.AttachNote(ctx, testRef, other, []byte("b")))

	notes, err := store.ListNotes(ctx, testRef)
	require.NoError(t, err)
	assert.Len(t, notes, 2)
}

func TestListNotes_RefNotFound(t *testing.T) {
	store, _ := newTestRepo(t)
	_, err := store.ListNotes(context.Background(), testRef)
	assert.True(t, errors.Is(err, ErrRefNotFound))
}
