// Package vcsnotes is a thin git-notes shim over github.com/go-git/go-git/v5
// plumbing, providing the four VCS-collaborator primitives spec.md §6 and
// §4.5 require: attach a note to a commit, list all notes under a ref, read
// one note, and last-writer-wins concurrent updates (a force-update of the
// notes ref, since git's notes convention has no native merge semantics at
// this layer).
//
// Git notes are themselves a plumbing-level convention, not a porcelain
// operation: a commit under refs/notes/<namespace> whose tree maps the
// annotated object's hex SHA to a blob holding the note body. go-git does
// not expose notes as porcelain, so this package builds that tree/commit
// structure directly, the same way tarsy's pkg/database/client.go reaches
// past the ent porcelain into a raw *sql.DB when it needs direct control.
package vcsnotes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrRefNotFound is returned by ReadNote and ListNotes when the requested
// notes ref does not exist yet (no note has ever been attached under it).
var ErrRefNotFound = errors.New("vcsnotes: note ref not found")

// ErrNoteNotFound is returned by ReadNote when the ref exists but carries no
// note for the given commit.
var ErrNoteNotFound = errors.New("vcsnotes: note not found for commit")

// NoteEntry is one entry from a notes tree: the annotated commit and the
// note body attached to it.
type NoteEntry struct {
	Commit plumbing.Hash
	Body   []byte
}

// Store wraps a single git repository and provides note read/write
// operations over any number of note refs (callers pass the ref per call,
// so one Store instance serves both the checkpoint and goal side-notes
// namespaces).
type Store struct {
	repo *git.Repository
}

// Open opens the git repository rooted at path.
func Open(path string) (*Store, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("vcsnotes: failed to open repository at %s: %w", path, err)
	}
	return &Store{repo: repo}, nil
}

// AttachNote writes body as the note for commit under ref, creating ref on
// first write. If ref already has a note for commit (from a racing writer),
// the new write supersedes it — last-writer-wins, per spec.md §4.5.
func (s *Store) AttachNote(_ context.Context, ref string, commit plumbing.Hash, body []byte) error {
	refName := plumbing.ReferenceName(ref)

	entries, parent, err := s.currentEntries(refName)
	if err != nil {
		return err
	}

	blobHash, err := s.writeBlob(body)
	if err != nil {
		return err
	}

	entries = upsertEntry(entries, commit.String(), blobHash)

	treeHash, err := s.writeTree(entries)
	if err != nil {
		return err
	}

	commitHash, err := s.writeNotesCommit(treeHash, parent)
	if err != nil {
		return err
	}

	newRef := plumbing.NewHashReference(refName, commitHash)
	if err := s.repo.Storer.SetReference(newRef); err != nil {
		return fmt.Errorf("vcsnotes: failed to update ref %s: %w", ref, err)
	}
	return nil
}

// ListNotes returns every note currently attached under ref, in tree order.
// Returns ErrRefNotFound if ref has never been written.
func (s *Store) ListNotes(_ context.Context, ref string) ([]NoteEntry, error) {
	entries, _, err := s.currentEntries(plumbing.ReferenceName(ref))
	if err != nil {
		return nil, err
	}
	if entries == nil {
		return nil, fmt.Errorf("%w: %s", ErrRefNotFound, ref)
	}

	out := make([]NoteEntry, 0, len(entries))
	for _, e := range entries {
		commitHash := plumbing.NewHash(e.Name)
		body, err := s.readBlob(e.Hash)
		if err != nil {
			return nil, err
		}
		out = append(out, NoteEntry{Commit: commitHash, Body: body})
	}
	return out, nil
}

// ReadNote returns the note body attached to commit under ref.
func (s *Store) ReadNote(_ context.Context, ref string, commit plumbing.Hash) ([]byte, error) {
	entries, _, err := s.currentEntries(plumbing.ReferenceName(ref))
	if err != nil {
		return nil, err
	}
	if entries == nil {
		return nil, fmt.Errorf("%w: %s", ErrRefNotFound, ref)
	}

	for _, e := range entries {
		if e.Name == commit.String() {
			return s.readBlob(e.Hash)
		}
	}
	return nil, fmt.Errorf("%w: %s under %s", ErrNoteNotFound, commit, ref)
}

// currentEntries resolves refName's current notes commit (if any) and
// returns its tree entries plus the commit hash to use as the new commit's
// parent. Returns (nil, zero hash, nil) if refName does not exist yet.
func (s *Store) currentEntries(refName plumbing.ReferenceName) ([]object.TreeEntry, plumbing.Hash, error) {
	ref, err := s.repo.Reference(refName, true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, plumbing.ZeroHash, nil
		}
		return nil, plumbing.ZeroHash, fmt.Errorf("vcsnotes: failed to resolve ref %s: %w", refName, err)
	}

	commit, err := s.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, plumbing.ZeroHash, fmt.Errorf("vcsnotes: failed to load notes commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, plumbing.ZeroHash, fmt.Errorf("vcsnotes: failed to load notes tree: %w", err)
	}

	entries := make([]object.TreeEntry, len(tree.Entries))
	copy(entries, tree.Entries)
	return entries, ref.Hash(), nil
}

func upsertEntry(entries []object.TreeEntry, name string, blobHash plumbing.Hash) []object.TreeEntry {
	next := object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: blobHash}
	for i, e := range entries {
		if e.Name == name {
			entries[i] = next
			return entries
		}
	}
	entries = append(entries, next)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

func (s *Store) writeBlob(body []byte) (plumbing.Hash, error) {
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)

	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("vcsnotes: failed to open blob writer: %w", err)
	}
	if _, err := io.Copy(w, bytes.NewReader(body)); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, fmt.Errorf("vcsnotes: failed to write blob: %w", err)
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("vcsnotes: failed to close blob writer: %w", err)
	}

	return s.repo.Storer.SetEncodedObject(obj)
}

func (s *Store) readBlob(hash plumbing.Hash) ([]byte, error) {
	blob, err := s.repo.BlobObject(hash)
	if err != nil {
		return nil, fmt.Errorf("vcsnotes: failed to load blob %s: %w", hash, err)
	}
	r, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("vcsnotes: failed to open blob reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("vcsnotes: failed to read blob %s: %w", hash, err)
	}
	return data, nil
}

func (s *Store) writeTree(entries []object.TreeEntry) (plumbing.Hash, error) {
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.TreeObject)

	tree := object.Tree{Entries: entries}
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("vcsnotes: failed to encode tree: %w", err)
	}
	return s.repo.Storer.SetEncodedObject(obj)
}

func (s *Store) writeNotesCommit(treeHash plumbing.Hash, parent plumbing.Hash) (plumbing.Hash, error) {
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.CommitObject)

	sig := object.Signature{Name: "empirica", Email: "empirica@localhost", When: time.Now()}
	commit := object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      "notes update",
		TreeHash:     treeHash,
		ParentHashes: parentHashes(parent),
	}
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("vcsnotes: failed to encode commit: %w", err)
	}
	return s.repo.Storer.SetEncodedObject(obj)
}

func parentHashes(parent plumbing.Hash) []plumbing.Hash {
	if parent.IsZero() {
		return nil
	}
	return []plumbing.Hash{parent}
}
