// Package oid defines the opaque content-hash identifiers shared across the
// merge engine: blob, tree, and commit ids. All three are newtypes over a
// validated hex string so that a BlobID can never be passed where a TreeID
// is expected, even though both are "just a string" at the wire level.
package oid

import (
	"errors"
	"regexp"
)

// hexPattern matches lowercase hex of 4 to 64 characters, which covers the
// sha1 ids (40 chars) the reference object store uses. Width is not a contract of the core (spec.md §3),
// so callers outside this package should not assume a fixed length; the
// pattern only rejects obviously-malformed input.
var hexPattern = regexp.MustCompile(`^[0-9a-f]{4,64}$`)

// Sentinel errors for id construction.
var (
	ErrEmpty   = errors.New("oid: empty identifier")
	ErrInvalid = errors.New("oid: identifier is not lowercase hex")
)

// Kind distinguishes the three object kinds an id can name.
type Kind uint8

const (
	KindBlob Kind = iota
	KindTree
	KindCommit
)

func (k Kind) String() string {
	switch k {
	case KindBlob:
		return "blob"
	case KindTree:
		return "tree"
	case KindCommit:
		return "commit"
	default:
		return "unknown"
	}
}

// validate checks that s is a well-formed hex identifier.
func validate(s string) error {
	if s == "" {
		return ErrEmpty
	}
	if !hexPattern.MatchString(s) {
		return ErrInvalid
	}
	return nil
}

// BlobID identifies file content.
type BlobID string

// NewBlobID validates and constructs a BlobID.
func NewBlobID(s string) (BlobID, error) {
	if err := validate(s); err != nil {
		return "", err
	}
	return BlobID(s), nil
}

// String returns the raw hex string.
func (b BlobID) String() string { return string(b) }

// IsZero reports whether b is the empty BlobID.
func (b BlobID) IsZero() bool { return b == "" }

// TreeID identifies a directory snapshot.
type TreeID string

// NewTreeID validates and constructs a TreeID.
func NewTreeID(s string) (TreeID, error) {
	if err := validate(s); err != nil {
		return "", err
	}
	return TreeID(s), nil
}

func (t TreeID) String() string { return string(t) }
func (t TreeID) IsZero() bool   { return t == "" }

// CommitID identifies a snapshot + parents + message + timestamps.
type CommitID string

// NewCommitID validates and constructs a CommitID.
func NewCommitID(s string) (CommitID, error) {
	if err := validate(s); err != nil {
		return "", err
	}
	return CommitID(s), nil
}

func (c CommitID) String() string { return string(c) }
func (c CommitID) IsZero() bool   { return c == "" }

// ShortMergeID returns the first 12 hex characters of a candidate commit id,
// used as the sole external handle for a quarantine (spec.md §3 QuarantineState).
func ShortMergeID(c CommitID) string {
	s := string(c)
	if len(s) <= 12 {
		return s
	}
	return s[:12]
}
