package workspace

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/agentmesh/manifold/internal/oid"
)

// GitBackend implements Backend over a directory of sibling worktrees,
// ws/<id>/, each its own git checkout. This follows the teacher's layout
// convention (rpi worktrees live as siblings of the repo root) adapted to
// spec.md §6's "ws/<workspace_id>/" namespace.
type GitBackend struct {
	WorkspacesRoot string // e.g. "<repo_root>/ws"
	Timeout        time.Duration
}

// NewGitBackend constructs a GitBackend rooted at workspacesRoot.
func NewGitBackend(workspacesRoot string) *GitBackend {
	return &GitBackend{WorkspacesRoot: workspacesRoot, Timeout: 30 * time.Second}
}

func (b *GitBackend) path(ws ID) string {
	return filepath.Join(b.WorkspacesRoot, ws.String())
}

// Exists reports whether ws/<id>/.git exists.
func (b *GitBackend) Exists(ws ID) bool {
	_, err := os.Stat(filepath.Join(b.path(ws), ".git"))
	return err == nil
}

// PathOf returns the workspace's checkout directory.
func (b *GitBackend) PathOf(ws ID) (string, error) {
	if !b.Exists(ws) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, ws)
	}
	return b.path(ws), nil
}

// Head returns the commit the workspace's HEAD currently resolves to.
func (b *GitBackend) Head(ws ID) (oid.CommitID, error) {
	dir, err := b.PathOf(ws)
	if err != nil {
		return "", err
	}
	out, err := b.run(dir, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("workspace %s head: %w", ws, err)
	}
	return oid.NewCommitID(strings.TrimSpace(string(out)))
}

// Snapshot diffs the workspace's current working tree (including any
// uncommitted edits an agent left behind) against the epoch commit it was
// derived from. A workspace may have committed, partially committed, or
// entirely uncommitted changes; diffing the working tree captures all three
// uniformly for paths git tracks. Untracked files (new files never added to
// the index) are not listed.
func (b *GitBackend) Snapshot(ws ID, epoch oid.CommitID) (Snapshot, error) {
	dir, err := b.PathOf(ws)
	if err != nil {
		return Snapshot{}, err
	}

	out, err := b.run(dir, "diff", "--no-renames", "--name-status", "-z", epoch.String())
	if err != nil {
		return Snapshot{}, fmt.Errorf("workspace %s snapshot: %w", ws, err)
	}

	snap := Snapshot{}
	fields := splitNUL(out)
	for i := 0; i < len(fields); i++ {
		status, path := fields[i], ""
		if i+1 < len(fields) {
			path = fields[i+1]
		}
		switch {
		case strings.HasPrefix(status, "A"):
			snap.Added = append(snap.Added, path)
			i++
		case strings.HasPrefix(status, "M"):
			snap.Modified = append(snap.Modified, path)
			i++
		case strings.HasPrefix(status, "D"):
			snap.Deleted = append(snap.Deleted, path)
			i++
		default:
			// Unrecognized status line (e.g. a copy/rename code slipped
			// through --no-renames); skip its path field defensively.
			i++
		}
	}

	sort.Strings(snap.Added)
	sort.Strings(snap.Modified)
	sort.Strings(snap.Deleted)
	return snap, nil
}

func splitNUL(b []byte) []string {
	trimmed := bytes.TrimRight(b, "\x00")
	if len(trimmed) == 0 {
		return nil
	}
	return strings.Split(string(trimmed), "\x00")
}

func (b *GitBackend) run(dir string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("git %s timed out after %s", strings.Join(args, " "), b.Timeout)
		}
		return nil, fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
