package objstore

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agentmesh/manifold/internal/oid"
)

// zeroOID is the all-zero object id git uses on the command line to assert
// "this ref must not already exist" in an update-ref compare-and-swap.
const zeroOID = "0000000000000000000000000000000000000000"

// GitStore implements Store by shelling out to a real git binary, exactly
// as internal/rpi/worktree.go does for worktree lifecycle operations in
// the teacher. Every call is bounded by Timeout.
type GitStore struct {
	RepoRoot string
	Timeout  time.Duration
}

// NewGitStore constructs a GitStore with the teacher's default bounded
// subprocess timeout (30s, matching rpi.CreateWorktree's caller contract).
func NewGitStore(repoRoot string) *GitStore {
	return &GitStore{RepoRoot: repoRoot, Timeout: 30 * time.Second}
}

func (s *GitStore) run(stdin []byte, args ...string) ([]byte, error) {
	return runGit(s.RepoRoot, s.Timeout, stdin, args...)
}

// runIn runs a git command rooted at dir instead of s.RepoRoot, for
// operations that must run inside a worktree checkout rather than the
// main repository.
func (s *GitStore) runIn(dir string, stdin []byte, args ...string) ([]byte, error) {
	return runGit(dir, s.Timeout, stdin, args...)
}

// ReadBlob returns the content of a blob.
func (s *GitStore) ReadBlob(id oid.BlobID) ([]byte, error) {
	out, err := s.run(nil, "cat-file", "blob", id.String())
	if err != nil {
		if strings.Contains(err.Error(), "Not a valid object name") ||
			strings.Contains(err.Error(), "bad file") {
			return nil, fmt.Errorf("%w: blob %s", ErrNotFound, id)
		}
		return nil, err
	}
	return out, nil
}

// WriteBlob writes content and returns its BlobID. git hash-object -w is
// idempotent by content: writing the same bytes twice returns the same id
// and does not duplicate storage (spec.md §4.1).
func (s *GitStore) WriteBlob(content []byte) (oid.BlobID, error) {
	out, err := s.run(content, "hash-object", "-w", "--stdin")
	if err != nil {
		return "", err
	}
	return oid.NewBlobID(strings.TrimSpace(string(out)))
}

// ReadTreeRecursive returns every regular-file path reachable from commit's
// tree, mapped to its (mode, blob). Symlinks and submodules are omitted.
func (s *GitStore) ReadTreeRecursive(commit oid.CommitID) (map[string]TreeEntry, error) {
	out, err := s.run(nil, "ls-tree", "-r", "-z", commit.String())
	if err != nil {
		return nil, err
	}

	entries := make(map[string]TreeEntry)
	for _, line := range strings.Split(strings.TrimRight(string(out), "\x00"), "\x00") {
		if line == "" {
			continue
		}
		entry, path, ok, err := parseLsTreeLine(line)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue // symlink, submodule, or other non-blob entry
		}
		entries[path] = entry
	}
	return entries, nil
}

// parseLsTreeLine parses one "<mode> <type> <oid>\t<path>" ls-tree -z line.
func parseLsTreeLine(line string) (entry TreeEntry, path string, ok bool, err error) {
	tabIdx := strings.IndexByte(line, '\t')
	if tabIdx < 0 {
		return TreeEntry{}, "", false, fmt.Errorf("%w: malformed ls-tree line %q", ErrCorrupt, line)
	}
	meta, path := line[:tabIdx], line[tabIdx+1:]
	fields := strings.Fields(meta)
	if len(fields) != 3 {
		return TreeEntry{}, "", false, fmt.Errorf("%w: malformed ls-tree metadata %q", ErrCorrupt, meta)
	}
	mode, objType, objID := fields[0], fields[1], fields[2]
	if objType != "blob" {
		return TreeEntry{}, path, false, nil
	}
	blobID, err := oid.NewBlobID(objID)
	if err != nil {
		return TreeEntry{}, "", false, fmt.Errorf("%w: ls-tree blob id: %v", ErrCorrupt, err)
	}
	return TreeEntry{Mode: Mode(mode), Blob: blobID}, path, true, nil
}

// WriteTree hashes one directory level's entries into a TreeID. Entries
// must already be sorted and duplicate-free by name (the caller's job per
// spec.md §4.1); WriteTree sorts defensively before hashing since the
// underlying format requires it and a defensive sort costs nothing extra.
func (s *GitStore) WriteTree(entries []NamedEntry) (oid.TreeID, error) {
	sorted := make([]NamedEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return treeSortKey(sorted[i]) < treeSortKey(sorted[j]) })

	var b strings.Builder
	for _, e := range sorted {
		if e.IsDir {
			fmt.Fprintf(&b, "040000 tree %s\t%s\x00", e.SubTree.String(), e.Name)
		} else {
			fmt.Fprintf(&b, "%s blob %s\t%s\x00", e.Entry.Mode, e.Entry.Blob.String(), e.Name)
		}
	}

	out, err := s.run([]byte(b.String()), "mktree", "-z")
	if err != nil {
		return "", err
	}
	return oid.NewTreeID(strings.TrimSpace(string(out)))
}

// treeSortKey reproduces git's tree entry ordering: directories sort as if
// their name had a trailing slash, so "foo" (file) sorts before "foo.go"
// but a subdirectory "foo/" sorts after "foo.go" — without this, two trees
// with the same logical contents but a mix of dir/file names would hash
// differently depending on Go's default string sort.
func treeSortKey(e NamedEntry) string {
	if e.IsDir {
		return e.Name + "/"
	}
	return e.Name
}

// WriteCommit creates a commit with parents and message, with fixed
// author/committer timestamps so identical inputs produce identical ids.
func (s *GitStore) WriteCommit(tree oid.TreeID, parents []oid.CommitID, message string) (oid.CommitID, error) {
	args := []string{"commit-tree", tree.String()}
	for _, p := range parents {
		args = append(args, "-p", p.String())
	}
	out, err := s.run([]byte(message), args...)
	if err != nil {
		return "", err
	}
	return oid.NewCommitID(strings.TrimSpace(string(out)))
}

// ReadRef returns the commit a ref points at, and whether it exists.
func (s *GitStore) ReadRef(name string) (oid.CommitID, bool, error) {
	out, err := s.run(nil, "rev-parse", "--verify", "--quiet", name)
	if err != nil {
		if strings.Contains(err.Error(), "exit status") || strings.Contains(err.Error(), "fatal") {
			return "", false, nil
		}
		return "", false, err
	}
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return "", false, nil
	}
	id, err := oid.NewCommitID(trimmed)
	if err != nil {
		return "", false, fmt.Errorf("%w: ref %s: %v", ErrCorrupt, name, err)
	}
	return id, true, nil
}

// CasRef compares-and-swaps a ref in one atomic git update-ref invocation:
// the old value is passed on the command line, so git itself rejects the
// update if the ref has moved since the caller last read it (spec.md §3
// invariant 3, ref monotonicity at commit).
func (s *GitStore) CasRef(name string, expected, next oid.CommitID) error {
	oldArg := zeroOID
	if expected != "" {
		oldArg = expected.String()
	}

	var args []string
	if next == "" {
		args = []string{"update-ref", "-d", name, oldArg}
	} else {
		args = []string{"update-ref", name, next.String(), oldArg}
	}

	if _, err := s.run(nil, args...); err != nil {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return nil
}

// ForEachRef lists every ref whose name has the given prefix.
func (s *GitStore) ForEachRef(prefix string) ([]RefEntry, error) {
	out, err := s.run(nil, "for-each-ref", "--format=%(refname) %(objectname)", prefix)
	if err != nil {
		return nil, err
	}
	var refs []RefEntry
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: malformed for-each-ref line %q", ErrCorrupt, line)
		}
		id, err := oid.NewCommitID(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: for-each-ref id: %v", ErrCorrupt, err)
		}
		refs = append(refs, RefEntry{Name: fields[0], Commit: id})
	}
	return refs, nil
}

// TempCheckout materializes a detached worktree at commit under a unique
// temporary path, the way rpi.CreateWorktree does for RPI sandboxes, with
// a Release handle that removes both the worktree registration and the
// directory on any exit path (spec.md §4.1, §5 "unique paths derived from
// a random nonce").
func (s *GitStore) TempCheckout(commit oid.CommitID) (*Checkout, error) {
	dir, err := os.MkdirTemp("", "manifold-checkout-"+strconv.FormatInt(time.Now().UnixNano(), 36)+"-")
	if err != nil {
		return nil, fmt.Errorf("%w: create temp dir: %v", ErrIO, err)
	}

	if _, err := s.run(nil, "worktree", "add", "--detach", "--quiet", dir, commit.String()); err != nil {
		_ = os.RemoveAll(dir) //nolint:errcheck // best-effort cleanup on setup failure
		return nil, err
	}

	release := func() error {
		_, remErr := s.run(nil, "worktree", "remove", "--force", dir)
		if rmErr := os.RemoveAll(dir); rmErr != nil && remErr == nil {
			remErr = fmt.Errorf("%w: remove checkout dir: %v", ErrIO, rmErr)
		}
		return remErr
	}

	return &Checkout{Path: dir, Release: release}, nil
}

// CommitWorktreeAll stages every change in a worktree at dir and commits
// it if dirty (spec.md §4.14 Promote step 2: "stage all and create a
// commit... else keep the original candidate").
func (s *GitStore) CommitWorktreeAll(dir, message string) (oid.CommitID, bool, error) {
	status, err := s.runIn(dir, nil, "status", "--porcelain")
	if err != nil {
		return "", false, err
	}
	if strings.TrimSpace(string(status)) == "" {
		return "", false, nil
	}

	if _, err := s.runIn(dir, nil, "add", "-A"); err != nil {
		return "", false, err
	}
	if _, err := s.runIn(dir, nil, "commit", "--quiet", "-m", message); err != nil {
		return "", false, err
	}
	out, err := s.runIn(dir, nil, "rev-parse", "HEAD")
	if err != nil {
		return "", false, err
	}
	id, err := oid.NewCommitID(strings.TrimSpace(string(out)))
	if err != nil {
		return "", false, fmt.Errorf("%w: rev-parse HEAD: %v", ErrCorrupt, err)
	}
	return id, true, nil
}
