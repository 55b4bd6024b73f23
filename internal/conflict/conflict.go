// Package conflict holds the shared conflict vocabulary (spec.md §3):
// ConflictRecord, ConflictSide, ConflictAtom, and AtomEdit. It is a leaf
// package so both the diff3 merge engine and the resolve decision tree can
// depend on it without a cycle.
package conflict

import (
	"github.com/agentmesh/manifold/internal/patchset"
	"github.com/agentmesh/manifold/internal/workspace"
)

// Reason classifies why a shared path could not be resolved cleanly
// (spec.md §3 ConflictRecord).
type Reason string

const (
	ReasonAddAddDifferent Reason = "add_add_different"
	ReasonModifyDelete    Reason = "modify_delete"
	ReasonDiff3Conflict    Reason = "diff3_conflict"
	ReasonMissingBase      Reason = "missing_base"
	ReasonMissingContent   Reason = "missing_content"
)

// Side is one workspace's contribution to a conflicted path.
type Side struct {
	WorkspaceID workspace.ID
	Kind        patchset.Kind
	Content     []byte // nil iff Kind == Deleted
}

// BaseRegion localizes an atom to either a line range in the base file or
// an AST-node reference (spec.md §3 ConflictAtom). Exactly one of the two
// shapes is populated.
type BaseRegion struct {
	// Line-range shape.
	IsLineRange bool
	LineLo      int // 0-indexed, inclusive
	LineHi      int // 0-indexed, exclusive

	// AST-node shape (used only by structural merge hooks, spec.md §4.5.6).
	NodeKind    string
	NodeName    string // optional
	ContainingLo int
	ContainingHi int
}

// AtomEdit is one workspace's proposed replacement text for a localized
// region (spec.md §3).
type AtomEdit struct {
	WorkspaceLabel string // "+"-joined history of merged workspaces for K-way folds
	Region         BaseRegion
	Text           string
}

// Atom localizes one Diff3Conflict to a line region or AST node
// (spec.md §3 ConflictAtom). Empty for non-Diff3Conflict reasons.
type Atom struct {
	BaseRegion BaseRegion
	Edits      []AtomEdit
	Reason     Reason
}

// Record is one shared path's conflict (spec.md §3 ConflictRecord).
type Record struct {
	Path   string
	Base   []byte // nil iff the path had no base content at the epoch
	HasBase bool
	Sides  []Side
	Reason Reason
	Atoms  []Atom // non-empty only for ReasonDiff3Conflict
}
