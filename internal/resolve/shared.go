package resolve

import (
	"strings"

	"github.com/agentmesh/manifold/internal/conflict"
	"github.com/agentmesh/manifold/internal/partition"
	"github.com/agentmesh/manifold/internal/patchset"
	"github.com/agentmesh/manifold/internal/resolve/diff3"
)

// resolveShared implements the decision tree of spec.md §4.5.2. Entries
// arrive already sorted by workspace id (partition.Partition's contract).
// Exactly one of the return values is non-nil.
func resolveShared(path string, base []byte, hasBase bool, entries []partition.Entry, hook *HookRegistry) (*Change, *conflict.Record) {
	sides := make([]conflict.Side, len(entries))
	for i, e := range entries {
		sides[i] = conflict.Side{WorkspaceID: e.WorkspaceID, Kind: e.Kind, Content: e.Content}
	}

	// 1. All sides deleted.
	allDeleted := true
	anyDeleted := false
	anyNonDelete := false
	for _, e := range entries {
		if e.Kind == patchset.Deleted {
			anyDeleted = true
		} else {
			anyNonDelete = true
			allDeleted = false
		}
	}
	if allDeleted {
		return &Change{Path: path, Op: OpDelete}, nil
	}

	// 2. Any delete mixed with any non-delete.
	if anyDeleted && anyNonDelete {
		return nil, &conflict.Record{Path: path, Base: base, HasBase: hasBase, Sides: sides, Reason: conflict.ReasonModifyDelete}
	}

	// 3. Any non-deletion side has no content.
	for _, e := range entries {
		if e.Kind != patchset.Deleted && e.Content == nil {
			return nil, &conflict.Record{Path: path, Base: base, HasBase: hasBase, Sides: sides, Reason: conflict.ReasonMissingContent}
		}
	}

	// 4. Hash-equality short-circuit: all blob ids equal, or (fallback
	// when any blob id missing) all byte strings equal.
	if common, ok := allEqual(entries); ok {
		return &Change{Path: path, Op: OpUpsert, Content: common}, nil
	}

	// 5. No base for this path.
	if !hasBase {
		allAdded := true
		for _, e := range entries {
			if e.Kind != patchset.Added {
				allAdded = false
				break
			}
		}
		reason := conflict.ReasonMissingBase
		if allAdded {
			reason = conflict.ReasonAddAddDifferent
		}
		return nil, &conflict.Record{Path: path, Base: base, HasBase: hasBase, Sides: sides, Reason: reason}
	}

	// 6. K-way three-way merge fold, in the fixed workspace-id order
	// Partition already imposed.
	acc := entries[0].Content
	label := entries[0].WorkspaceID.String()
	baseLines := splitLines(base)

	for _, e := range entries[1:] {
		if bytesEqual(acc, e.Content) {
			label = label + "+" + e.WorkspaceID.String()
			continue
		}

		accLines := splitLines(acc)
		sLines := splitLines(e.Content)
		result := diff3.Merge(baseLines, accLines, sLines)

		if result.Clean {
			acc = joinLines(result.Lines)
			label = label + "+" + e.WorkspaceID.String()
			continue
		}

		if retried, ok := ShiftedAlignmentRetry(baseLines, accLines, sLines); ok {
			acc = joinLines(retried)
			label = label + "+" + e.WorkspaceID.String()
			continue
		}

		if hook != nil {
			if h, found := hook.Lookup(path); found {
				hookSides := []HookSide{{WorkspaceLabel: label, Content: acc}, {WorkspaceLabel: e.WorkspaceID.String(), Content: e.Content}}
				hr, err := h.Merge(base, hookSides)
				if err == nil && hr.Supported {
					if hr.Clean {
						acc = hr.Content
						label = label + "+" + e.WorkspaceID.String()
						continue
					}
					return nil, &conflict.Record{Path: path, Base: base, HasBase: hasBase, Sides: sides, Reason: conflict.ReasonDiff3Conflict, Atoms: hr.Atoms}
				}
			}
		}

		markers := diff3.RenderMarkers(baseLines, result.Conflicts, label, e.WorkspaceID.String())
		atoms, parseErr := diff3.ParseConflictAtoms(markers, label, e.WorkspaceID.String())
		if parseErr != nil {
			atoms = nil
		}
		return nil, &conflict.Record{Path: path, Base: base, HasBase: hasBase, Sides: sides, Reason: conflict.ReasonDiff3Conflict, Atoms: atoms}
	}

	// 7. Fold completed without a conflict.
	return &Change{Path: path, Op: OpUpsert, Content: acc}, nil
}

// allEqual implements step 4's hash-equality short-circuit.
func allEqual(entries []partition.Entry) ([]byte, bool) {
	allHaveBlobs := true
	for _, e := range entries {
		if !e.HasBlob {
			allHaveBlobs = false
			break
		}
	}
	if allHaveBlobs {
		first := entries[0].Blob
		for _, e := range entries[1:] {
			if e.Blob != first {
				return nil, false
			}
		}
		return entries[0].Content, true
	}
	first := entries[0].Content
	for _, e := range entries[1:] {
		if !bytesEqual(first, e.Content) {
			return nil, false
		}
	}
	return first, true
}

func splitLines(b []byte) []string {
	if len(b) == 0 {
		return nil
	}
	text := strings.TrimSuffix(string(b), "\n")
	return strings.Split(text, "\n")
}

func joinLines(lines []string) []byte {
	if len(lines) == 0 {
		return []byte{}
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}
