// Package objstore is the thin, blocking façade over the content-addressed
// object store (spec.md §4.1). It is the only package in the repo that
// shells out to the underlying "git-like" store binary; every other
// component reads and writes through the Store interface so the store
// implementation can be swapped without touching merge semantics.
package objstore

import "github.com/agentmesh/manifold/internal/oid"

// Mode is a POSIX-style file mode as stored in a tree entry. Only regular
// files are represented by the core (spec.md §4.1); symlinks, submodules,
// and directory entries are the caller's concern.
type Mode string

// RegularFileMode is the mode written for ordinary file content.
const RegularFileMode Mode = "100644"

// ExecutableFileMode is preserved when an existing entry was executable.
const ExecutableFileMode Mode = "100755"

// TreeEntry is one path's (mode, blob) pair as read from or written to a
// tree level.
type TreeEntry struct {
	Mode Mode
	Blob oid.BlobID
}

// RefEntry is one ref's name and the commit it currently points at.
type RefEntry struct {
	Name   string
	Commit oid.CommitID
}

// Checkout is a detached temporary working tree materialized from a commit.
// Release must be called exactly once, on every exit path, to remove both
// the worktree registration and its directory (spec.md §4.1 temp_checkout).
type Checkout struct {
	Path    string
	Release func() error
}

// Store is the object-store façade every other package depends on.
type Store interface {
	// ReadBlob returns the content of a blob.
	ReadBlob(id oid.BlobID) ([]byte, error)

	// WriteBlob writes content and returns its (idempotent) BlobID.
	WriteBlob(content []byte) (oid.BlobID, error)

	// ReadTreeRecursive returns every regular-file path reachable from a
	// commit's tree, mapped to its (mode, blob). The result is a map and
	// carries no order.
	ReadTreeRecursive(commit oid.CommitID) (map[string]TreeEntry, error)

	// WriteTree hashes one directory level's entries (already sorted and
	// duplicate-free by the caller) into a TreeID.
	WriteTree(entries []NamedEntry) (oid.TreeID, error)

	// WriteCommit creates a commit object with fixed, deterministic
	// author/committer timestamps so identical inputs hash identically.
	WriteCommit(tree oid.TreeID, parents []oid.CommitID, message string) (oid.CommitID, error)

	// ReadRef returns the commit a ref points at, and whether it exists.
	ReadRef(name string) (oid.CommitID, bool, error)

	// CasRef compares-and-swaps a ref. expected == "" means "must not
	// exist"; next == "" means "delete". Returns ErrConflict if expected
	// no longer matches the ref's live value.
	CasRef(name string, expected, next oid.CommitID) error

	// ForEachRef lists every ref whose name has the given prefix.
	ForEachRef(prefix string) ([]RefEntry, error)

	// TempCheckout materializes a detached worktree at commit.
	TempCheckout(commit oid.CommitID) (*Checkout, error)

	// CommitWorktreeAll stages every change in a worktree directory and
	// commits it with message if the worktree is dirty. ok is false, and
	// the returned id is the zero value, when there was nothing to
	// commit; the caller should keep using the worktree's existing HEAD
	// in that case.
	CommitWorktreeAll(dir, message string) (id oid.CommitID, ok bool, err error)
}

// NamedEntry is a TreeEntry with the path segment name it is stored under
// at one tree level, used as WriteTree's input (spec.md §4.1: "entries at
// one level").
type NamedEntry struct {
	Name  string // single path segment, no slashes
	Entry TreeEntry
	// SubTree is set instead of Entry.Blob when this name is itself a
	// directory already built at a deeper level.
	SubTree oid.TreeID
	IsDir   bool
}
