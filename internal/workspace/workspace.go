// Package workspace is the backend of spec.md §4.2: it is the only
// component in the merge engine that looks at live files on disk. Every
// later phase consumes its output only through the PatchSets Collect
// freezes (spec.md §3 invariant 2, "frozen inputs").
package workspace

import (
	"errors"
	"regexp"

	"github.com/agentmesh/manifold/internal/oid"
)

// idPattern mirrors the teacher's internal/pool.validIDPattern, generalized
// per spec.md §3: [A-Za-z0-9_-]+, not starting with '-', not '.' or '..'.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_-]*$`)

// Sentinel errors for workspace id validation and lookup.
var (
	ErrEmptyID       = errors.New("workspace: id cannot be empty")
	ErrInvalidID     = errors.New("workspace: id contains invalid characters or a leading hyphen")
	ErrReservedID    = errors.New("workspace: id may not be '.' or '..'")
	ErrNotFound      = errors.New("workspace: not found")
	ErrChangeReadErr = errors.New("workspace: failed to read a changed path after snapshot listed it")
)

// ID is a validated workspace identifier (spec.md §3).
type ID string

// NewID validates and constructs a workspace ID.
func NewID(s string) (ID, error) {
	if s == "" {
		return "", ErrEmptyID
	}
	if s == "." || s == ".." {
		return "", ErrReservedID
	}
	if !idPattern.MatchString(s) {
		return "", ErrInvalidID
	}
	return ID(s), nil
}

func (id ID) String() string { return string(id) }

// ChangeKind classifies one changed path (spec.md §3 FileChange).
type ChangeKind int

const (
	Added ChangeKind = iota
	Modified
	Deleted
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Snapshot is a workspace's changed paths relative to its base epoch,
// repo-relative, lexicographically sorted, duplicate-free (spec.md §4.2).
type Snapshot struct {
	Added    []string
	Modified []string
	Deleted  []string
}

// Backend is the polymorphism point spec.md §9 names: a small closed
// capability set {head, snapshot, workspace_path, exists} consumed through
// an interface at construction time.
type Backend interface {
	// Head returns the commit the workspace currently points at.
	Head(ws ID) (oid.CommitID, error)

	// Snapshot returns changed paths relative to the epoch the workspace
	// is based on.
	Snapshot(ws ID, epoch oid.CommitID) (Snapshot, error)

	// PathOf returns the filesystem directory file bytes can be read from
	// for this workspace's added/modified entries.
	PathOf(ws ID) (string, error)

	// Exists reports whether the workspace is known to the backend.
	Exists(ws ID) bool
}
