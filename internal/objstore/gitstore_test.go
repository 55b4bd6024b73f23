package objstore

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentmesh/manifold/internal/oid"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func newTestRepo(t *testing.T) *GitStore {
	t.Helper()
	requireGit(t)

	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v: %s", args, err, out)
		}
	}
	run("init", "--quiet")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")

	return &GitStore{RepoRoot: dir, Timeout: 10 * time.Second}
}

func TestWriteBlobIsIdempotent(t *testing.T) {
	s := newTestRepo(t)

	id1, err := s.WriteBlob([]byte("hello\n"))
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	id2, err := s.WriteBlob([]byte("hello\n"))
	if err != nil {
		t.Fatalf("WriteBlob again: %v", err)
	}
	if id1 != id2 {
		t.Errorf("WriteBlob not idempotent: %s != %s", id1, id2)
	}

	got, err := s.ReadBlob(id1)
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if string(got) != "hello\n" {
		t.Errorf("ReadBlob = %q, want %q", got, "hello\n")
	}
}

func TestReadBlobNotFound(t *testing.T) {
	s := newTestRepo(t)
	fake, _ := oid.NewBlobID("deadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
	if _, err := s.ReadBlob(fake); err == nil {
		t.Fatal("expected error for missing blob")
	}
}

func TestWriteTreeAndCommitDeterministic(t *testing.T) {
	s := newTestRepo(t)

	blobA, err := s.WriteBlob([]byte("a\n"))
	if err != nil {
		t.Fatalf("WriteBlob a: %v", err)
	}
	blobB, err := s.WriteBlob([]byte("b\n"))
	if err != nil {
		t.Fatalf("WriteBlob b: %v", err)
	}

	entries := []NamedEntry{
		{Name: "a.txt", Entry: TreeEntry{Mode: RegularFileMode, Blob: blobA}},
		{Name: "b.txt", Entry: TreeEntry{Mode: RegularFileMode, Blob: blobB}},
	}

	tree1, err := s.WriteTree(entries)
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	tree2, err := s.WriteTree(entries)
	if err != nil {
		t.Fatalf("WriteTree again: %v", err)
	}
	if tree1 != tree2 {
		t.Errorf("WriteTree not deterministic: %s != %s", tree1, tree2)
	}

	commit1, err := s.WriteCommit(tree1, nil, "epoch: merge\n")
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}
	commit2, err := s.WriteCommit(tree1, nil, "epoch: merge\n")
	if err != nil {
		t.Fatalf("WriteCommit again: %v", err)
	}
	if commit1 != commit2 {
		t.Errorf("WriteCommit not deterministic: %s != %s", commit1, commit2)
	}
}

func TestCasRefLifecycle(t *testing.T) {
	s := newTestRepo(t)

	blob, _ := s.WriteBlob([]byte("x\n"))
	tree, err := s.WriteTree([]NamedEntry{{Name: "x.txt", Entry: TreeEntry{Mode: RegularFileMode, Blob: blob}}})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	c1, err := s.WriteCommit(tree, nil, "first\n")
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}

	// Must-not-exist CAS (expected == "").
	if err := s.CasRef("refs/epoch/current", "", c1); err != nil {
		t.Fatalf("CasRef create: %v", err)
	}

	got, ok, err := s.ReadRef("refs/epoch/current")
	if err != nil || !ok || got != c1 {
		t.Fatalf("ReadRef after create = %v, %v, %v; want %s, true, nil", got, ok, err, c1)
	}

	// Wrong expected value fails.
	c2, _ := s.WriteCommit(tree, []oid.CommitID{c1}, "second\n")
	bogus := oid.CommitID("0000000000000000000000000000000000000001")
	if err := s.CasRef("refs/epoch/current", bogus, c2); err == nil {
		t.Fatal("expected CasRef conflict with stale expected value")
	}

	// Correct expected value succeeds.
	if err := s.CasRef("refs/epoch/current", c1, c2); err != nil {
		t.Fatalf("CasRef advance: %v", err)
	}
	got, _, _ = s.ReadRef("refs/epoch/current")
	if got != c2 {
		t.Errorf("ReadRef after advance = %s, want %s", got, c2)
	}
}

func TestForEachRef(t *testing.T) {
	s := newTestRepo(t)
	blob, _ := s.WriteBlob([]byte("x\n"))
	tree, _ := s.WriteTree([]NamedEntry{{Name: "x.txt", Entry: TreeEntry{Mode: RegularFileMode, Blob: blob}}})
	c, _ := s.WriteCommit(tree, nil, "m\n")

	if err := s.CasRef("refs/recovery/ws-00/1", "", c); err != nil {
		t.Fatalf("CasRef: %v", err)
	}
	if err := s.CasRef("refs/recovery/ws-01/2", "", c); err != nil {
		t.Fatalf("CasRef: %v", err)
	}

	refs, err := s.ForEachRef("refs/recovery/")
	if err != nil {
		t.Fatalf("ForEachRef: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("ForEachRef returned %d refs, want 2", len(refs))
	}
}

func TestTempCheckout(t *testing.T) {
	s := newTestRepo(t)
	blob, _ := s.WriteBlob([]byte("content\n"))
	tree, _ := s.WriteTree([]NamedEntry{{Name: "f.txt", Entry: TreeEntry{Mode: RegularFileMode, Blob: blob}}})
	c, err := s.WriteCommit(tree, nil, "m\n")
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}

	checkout, err := s.TempCheckout(c)
	if err != nil {
		t.Fatalf("TempCheckout: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(checkout.Path, "f.txt"))
	if err != nil {
		t.Fatalf("read checkout file: %v", err)
	}
	if string(data) != "content\n" {
		t.Errorf("checkout content = %q, want %q", data, "content\n")
	}

	if err := checkout.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(checkout.Path); !os.IsNotExist(err) {
		t.Errorf("expected checkout dir removed, stat err = %v", err)
	}
}
