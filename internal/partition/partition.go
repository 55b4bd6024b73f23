// Package partition implements Partition (spec.md §4.4): indexing every
// changed path across all patch sets into unique and shared groups.
package partition

import (
	"sort"

	"github.com/agentmesh/manifold/internal/oid"
	"github.com/agentmesh/manifold/internal/patchset"
	"github.com/agentmesh/manifold/internal/workspace"
)

// Entry is a per-workspace view of one path (spec.md §3 PathEntry).
type Entry struct {
	WorkspaceID workspace.ID
	Kind        patchset.Kind
	Content     []byte // nil iff Kind == Deleted
	Blob        oid.BlobID
	HasBlob     bool // distinguishes "no blob" from the zero value
}

// UniqueEntry pairs a path touched by exactly one workspace with its entry.
type UniqueEntry struct {
	Path  string
	Entry Entry
}

// SharedEntry pairs a path touched by more than one workspace with its
// entries, sorted by workspace id (spec.md §4.4).
type SharedEntry struct {
	Path    string
	Entries []Entry
}

// Result is Partition's output: two path-sorted sequences (spec.md §3
// PartitionResult).
type Result struct {
	Unique []UniqueEntry
	Shared []SharedEntry
}

// Partition indexes every (path, workspace_id) pair across patchSets
// exactly once. Total cost is O(N log N) in the number of changed paths;
// ordering is a pure function of content, never arrival order (spec.md
// §4.4 invariants).
func Partition(patchSets []patchset.PatchSet) Result {
	grouped := make(map[string][]Entry)
	var pathOrder []string

	for _, ps := range patchSets {
		for _, change := range ps.Changes {
			entry := Entry{
				WorkspaceID: ps.WorkspaceID,
				Kind:        change.Kind,
				Content:     change.Content,
				Blob:        change.Blob,
				HasBlob:     change.Blob != "",
			}
			if _, seen := grouped[change.Path]; !seen {
				pathOrder = append(pathOrder, change.Path)
			}
			grouped[change.Path] = append(grouped[change.Path], entry)
		}
	}

	sort.Strings(pathOrder)

	var result Result
	for _, path := range pathOrder {
		entries := grouped[path]
		sort.Slice(entries, func(i, j int) bool { return entries[i].WorkspaceID < entries[j].WorkspaceID })

		if len(entries) == 1 {
			result.Unique = append(result.Unique, UniqueEntry{Path: path, Entry: entries[0]})
		} else {
			result.Shared = append(result.Shared, SharedEntry{Path: path, Entries: entries})
		}
	}

	return result
}
