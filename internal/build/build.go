// Package build implements Build (spec.md §4.6): materializing
// ResolvedChanges on top of an epoch tree into a new candidate commit.
package build

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentmesh/manifold/internal/objstore"
	"github.com/agentmesh/manifold/internal/oid"
	"github.com/agentmesh/manifold/internal/resolve"
	"github.com/agentmesh/manifold/internal/workspace"
)

// Entry is one path's (mode, blob) pair in the in-memory flat tree map
// Build works against before synthesizing trees bottom-up.
type Entry struct {
	Mode objstore.Mode
	Blob oid.BlobID
}

// Output is Build's result.
type Output struct {
	Candidate oid.CommitID
	// Tree is the flat path -> entry map the candidate was built from.
	Tree map[string]Entry
}

// Build materializes changes on top of epoch's tree and commits the
// result with epoch as sole parent. message, if empty, is
// auto-generated from sources (spec.md §4.6 step 4).
func Build(store objstore.Store, epoch oid.CommitID, sources []workspace.ID, changes []resolve.Change, message string) (Output, error) {
	flat, err := materialize(store, epoch)
	if err != nil {
		return Output{}, fmt.Errorf("build: materialize epoch tree: %w", err)
	}

	sorted := append([]resolve.Change(nil), changes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	for _, c := range sorted {
		switch c.Op {
		case resolve.OpUpsert:
			blob, err := store.WriteBlob(c.Content)
			if err != nil {
				return Output{}, fmt.Errorf("build: write blob %s: %w", c.Path, err)
			}
			mode := objstore.RegularFileMode
			if existing, ok := flat[c.Path]; ok {
				mode = existing.Mode
			}
			flat[c.Path] = Entry{Mode: mode, Blob: blob}
		case resolve.OpDelete:
			delete(flat, c.Path)
		}
	}

	root, err := synthesizeTrees(store, flat)
	if err != nil {
		return Output{}, fmt.Errorf("build: synthesize trees: %w", err)
	}

	if message == "" {
		message = commitMessage(sources)
	}
	commit, err := store.WriteCommit(root, []oid.CommitID{epoch}, message)
	if err != nil {
		return Output{}, fmt.Errorf("build: write commit: %w", err)
	}

	return Output{Candidate: commit, Tree: flat}, nil
}

func commitMessage(sources []workspace.ID) string {
	if len(sources) == 0 {
		return "epoch: merge"
	}
	ids := make([]string, len(sources))
	for i, s := range sources {
		ids[i] = s.String()
	}
	sort.Strings(ids)
	return "epoch: merge " + strings.Join(ids, " ")
}

func materialize(store objstore.Store, epoch oid.CommitID) (map[string]Entry, error) {
	entries, err := store.ReadTreeRecursive(epoch)
	if err != nil {
		return nil, err
	}
	flat := make(map[string]Entry, len(entries))
	for path, e := range entries {
		flat[path] = Entry{Mode: e.Mode, Blob: e.Blob}
	}
	return flat, nil
}
