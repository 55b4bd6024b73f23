// Package resolve implements Resolve (spec.md §4.5): turning a
// PartitionResult into a path-sorted list of ResolvedChanges and a
// path-sorted list of ConflictRecords.
package resolve

import (
	"bytes"
	"sort"

	"github.com/agentmesh/manifold/internal/conflict"
	"github.com/agentmesh/manifold/internal/partition"
)

// Op distinguishes the two shapes a ResolvedChange can take (spec.md §3).
type Op int

const (
	OpUpsert Op = iota
	OpDelete
)

func (o Op) String() string {
	if o == OpDelete {
		return "delete"
	}
	return "upsert"
}

// Change is ResolvedChange from spec.md §3: Upsert(path, bytes) or
// Delete(path).
type Change struct {
	Path    string
	Op      Op
	Content []byte // nil iff Op == OpDelete
}

// Result is Resolve's output: both sequences sorted by path (spec.md
// §4.5.7), so a caller (or a unit test) can rely on that ordering without
// re-sorting.
type Result struct {
	Resolved  []Change
	Conflicts []conflict.Record
}

// BaseContent looks up epoch-side content for a path. A missing entry
// means the path did not exist at the epoch (spec.md §4.5 inputs).
type BaseContent func(path string) (content []byte, ok bool)

// Resolve turns a PartitionResult into ResolvedChanges and ConflictRecords,
// both sorted by path. hook may be nil, in which case every Diff3Conflict
// falls straight through without a structural-merge attempt.
func Resolve(part partition.Result, base BaseContent, hook *HookRegistry) Result {
	var resolved []Change
	var conflicts []conflict.Record

	for _, u := range part.Unique {
		change, rec := resolveUnique(u)
		if rec != nil {
			conflicts = append(conflicts, *rec)
		} else {
			resolved = append(resolved, *change)
		}
	}

	for _, s := range part.Shared {
		baseContent, hasBase := base(s.Path)
		change, rec := resolveShared(s.Path, baseContent, hasBase, s.Entries, hook)
		if rec != nil {
			conflicts = append(conflicts, *rec)
		} else {
			resolved = append(resolved, *change)
		}
	}

	sort.Slice(resolved, func(i, j int) bool { return resolved[i].Path < resolved[j].Path })
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Path < conflicts[j].Path })

	return Result{Resolved: resolved, Conflicts: conflicts}
}

func bytesEqual(a, b []byte) bool { return bytes.Equal(a, b) }
