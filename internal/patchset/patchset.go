// Package patchset implements Collect (spec.md §4.3): turning one
// workspace's backend snapshot into an ordered, content-hashed PatchSet.
package patchset

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/agentmesh/manifold/internal/oid"
	"github.com/agentmesh/manifold/internal/workspace"
)

// Kind classifies one FileChange (spec.md §3).
type Kind = workspace.ChangeKind

const (
	Added    = workspace.Added
	Modified = workspace.Modified
	Deleted  = workspace.Deleted
)

// FileChange is one path's change, with content unless it was deleted
// (spec.md §3: "content is None iff kind = Deleted").
type FileChange struct {
	Path    string
	Kind    Kind
	Content []byte    // nil iff Kind == Deleted
	Blob    oid.BlobID // optimistic pre-image hash, see Collect
}

// PatchSet is one workspace's collected, path-sorted changes (spec.md §3).
// An empty PatchSet (no changes) is legal and is preserved, never dropped,
// so callers can still report that the workspace contributed nothing.
type PatchSet struct {
	WorkspaceID workspace.ID
	Epoch       oid.CommitID
	Changes     []FileChange
}

// Hasher computes a content-addressed id for a byte slice without writing
// it into the object store. Collect uses this as an "optimistic pre-image"
// equality check (spec.md §4.3): the façade re-hashes on write, so this
// hash only needs to agree with the façade's own hash function, not be
// authoritative.
type Hasher func([]byte) (oid.BlobID, error)

// Reader reads file bytes for a workspace's added/modified paths.
type Reader interface {
	ReadFile(path string) ([]byte, error)
}

// Collect produces a PatchSet from one workspace's backend snapshot. If
// any read fails after the snapshot listed the path, Collect fails the
// entire phase rather than silently dropping the change (spec.md §4.3).
func Collect(ws workspace.ID, epoch oid.CommitID, snap workspace.Snapshot, workspaceDir string, reader Reader, hash Hasher) (PatchSet, error) {
	changes := make([]FileChange, 0, len(snap.Added)+len(snap.Modified)+len(snap.Deleted))

	addUpsert := func(path string, kind Kind) error {
		content, err := reader.ReadFile(filepath.Join(workspaceDir, path))
		if err != nil {
			return fmt.Errorf("%w: workspace %s path %s: %v", workspace.ErrChangeReadErr, ws, path, err)
		}
		blob, err := hash(content)
		if err != nil {
			return fmt.Errorf("collect: hash %s: %w", path, err)
		}
		changes = append(changes, FileChange{Path: path, Kind: kind, Content: content, Blob: blob})
		return nil
	}

	for _, p := range snap.Added {
		if err := addUpsert(p, Added); err != nil {
			return PatchSet{}, err
		}
	}
	for _, p := range snap.Modified {
		if err := addUpsert(p, Modified); err != nil {
			return PatchSet{}, err
		}
	}
	for _, p := range snap.Deleted {
		changes = append(changes, FileChange{Path: p, Kind: Deleted})
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	if len(changes) == 0 {
		changes = nil
	}

	return PatchSet{WorkspaceID: ws, Epoch: epoch, Changes: changes}, nil
}
