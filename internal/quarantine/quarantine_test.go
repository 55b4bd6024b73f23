package quarantine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentmesh/manifold/internal/mergestate"
	"github.com/agentmesh/manifold/internal/objstore"
	"github.com/agentmesh/manifold/internal/oid"
	"github.com/agentmesh/manifold/internal/validate"
)

type fakeStore struct {
	dirty        bool
	committed    oid.CommitID
	casErr       error
	checkoutPath string
}

func (s *fakeStore) ReadBlob(oid.BlobID) ([]byte, error)  { panic("unused") }
func (s *fakeStore) WriteBlob([]byte) (oid.BlobID, error) { panic("unused") }
func (s *fakeStore) ReadTreeRecursive(oid.CommitID) (map[string]objstore.TreeEntry, error) {
	panic("unused")
}
func (s *fakeStore) WriteTree([]objstore.NamedEntry) (oid.TreeID, error) { panic("unused") }
func (s *fakeStore) WriteCommit(oid.TreeID, []oid.CommitID, string) (oid.CommitID, error) {
	panic("unused")
}
func (s *fakeStore) ReadRef(string) (oid.CommitID, bool, error) { panic("unused") }
func (s *fakeStore) CasRef(name string, expected, next oid.CommitID) error { return s.casErr }
func (s *fakeStore) ForEachRef(string) ([]objstore.RefEntry, error)        { panic("unused") }

func (s *fakeStore) TempCheckout(commit oid.CommitID) (*objstore.Checkout, error) {
	dir, err := os.MkdirTemp("", "quarantine-checkout-")
	if err != nil {
		return nil, err
	}
	return &objstore.Checkout{Path: dir, Release: func() error { return os.RemoveAll(dir) }}, nil
}

func (s *fakeStore) CommitWorktreeAll(dir, message string) (oid.CommitID, bool, error) {
	if !s.dirty {
		return "", false, nil
	}
	return s.committed, true, nil
}

type scriptedRunner struct {
	result mergestate.CommandResult
}

func (r *scriptedRunner) Run(ctx context.Context, dir, command string, timeout time.Duration) mergestate.CommandResult {
	return r.result
}

func passResult() mergestate.CommandResult {
	code := 0
	return mergestate.CommandResult{Command: "test", Passed: true, ExitCode: &code}
}

func failResult() mergestate.CommandResult {
	code := 1
	return mergestate.CommandResult{Command: "test", Passed: false, ExitCode: &code, Stderr: "still broken"}
}

func TestCreateWritesStateAndWorktree(t *testing.T) {
	wsRoot := t.TempDir()
	manifoldDir := t.TempDir()
	store := &fakeStore{}

	candidate := oid.CommitID("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	epochBefore := oid.CommitID("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	state, err := Create(store, wsRoot, manifoldDir, candidate, epochBefore, nil, "main", nil, 100)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if state.MergeID != oid.ShortMergeID(candidate) {
		t.Errorf("MergeID = %q", state.MergeID)
	}

	worktreePath := filepath.Join(wsRoot, worktreeName(state.MergeID))
	if _, err := os.Stat(worktreePath); err != nil {
		t.Fatalf("worktree not created: %v", err)
	}

	loaded, err := Load(manifoldDir, state.MergeID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil || loaded.Candidate != candidate || loaded.Branch != "main" {
		t.Fatalf("loaded = %+v", loaded)
	}
}

func TestListSkipsDirsWithoutStateFile(t *testing.T) {
	manifoldDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(manifoldDir, "quarantine", "has-state"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(manifoldDir, "quarantine", "no-state"), 0o755); err != nil {
		t.Fatal(err)
	}
	s := &State{MergeID: "has-state", Branch: "main"}
	if err := save(manifoldDir, s); err != nil {
		t.Fatal(err)
	}

	states, err := List(manifoldDir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(states) != 1 || states[0].MergeID != "has-state" {
		t.Fatalf("states = %+v", states)
	}
}

func TestAbandonIdempotent(t *testing.T) {
	wsRoot := t.TempDir()
	manifoldDir := t.TempDir()
	mergeID := "deadbeef0000"

	if err := os.MkdirAll(filepath.Join(wsRoot, worktreeName(mergeID)), 0o755); err != nil {
		t.Fatal(err)
	}
	s := &State{MergeID: mergeID}
	if err := save(manifoldDir, s); err != nil {
		t.Fatal(err)
	}

	if err := Abandon(wsRoot, manifoldDir, mergeID); err != nil {
		t.Fatalf("first Abandon: %v", err)
	}
	if err := Abandon(wsRoot, manifoldDir, mergeID); err != nil {
		t.Fatalf("second Abandon (idempotent): %v", err)
	}
}

func TestPromoteCleanWorktreePromotesAndAbandons(t *testing.T) {
	wsRoot := t.TempDir()
	manifoldDir := t.TempDir()
	store := &fakeStore{dirty: false}

	candidate := oid.CommitID("cccccccccccccccccccccccccccccccccccccccc")
	epochBefore := oid.CommitID("dddddddddddddddddddddddddddddddddddddddd")

	state, err := Create(store, wsRoot, manifoldDir, candidate, epochBefore, nil, "main", nil, 100)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	runner := &scriptedRunner{result: passResult()}
	cfg := validate.Config{Commands: []string{"go test ./..."}, TimeoutSeconds: 10}

	outcome, err := Promote(store, runner, wsRoot, manifoldDir, state.MergeID, cfg)
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if !outcome.Committed || outcome.NewEpoch != candidate {
		t.Fatalf("outcome = %+v", outcome)
	}

	worktreePath := filepath.Join(wsRoot, worktreeName(state.MergeID))
	if _, err := os.Stat(worktreePath); !os.IsNotExist(err) {
		t.Errorf("worktree should be removed after promote, stat err = %v", err)
	}
}

func TestPromoteDirtyWorktreeFixesForward(t *testing.T) {
	wsRoot := t.TempDir()
	manifoldDir := t.TempDir()
	fixedUp := oid.CommitID("eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
	store := &fakeStore{dirty: true, committed: fixedUp}

	candidate := oid.CommitID("ffffffffffffffffffffffffffffffffffffffff")
	epochBefore := oid.CommitID("1111111111111111111111111111111111111111")

	state, err := Create(store, wsRoot, manifoldDir, candidate, epochBefore, nil, "main", nil, 100)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	runner := &scriptedRunner{result: passResult()}
	cfg := validate.Config{Commands: []string{"go test ./..."}, TimeoutSeconds: 10}

	outcome, err := Promote(store, runner, wsRoot, manifoldDir, state.MergeID, cfg)
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if !outcome.Committed || outcome.NewEpoch != fixedUp {
		t.Fatalf("outcome = %+v, want fixed-up commit %s", outcome, fixedUp)
	}
}

func TestPromoteValidationFailureLeavesQuarantineIntact(t *testing.T) {
	wsRoot := t.TempDir()
	manifoldDir := t.TempDir()
	store := &fakeStore{dirty: false}

	candidate := oid.CommitID("2222222222222222222222222222222222222222")
	epochBefore := oid.CommitID("3333333333333333333333333333333333333333")

	state, err := Create(store, wsRoot, manifoldDir, candidate, epochBefore, nil, "main", nil, 100)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	runner := &scriptedRunner{result: failResult()}
	cfg := validate.Config{Commands: []string{"go test ./..."}, TimeoutSeconds: 10, OnFailure: validate.Block}

	outcome, err := Promote(store, runner, wsRoot, manifoldDir, state.MergeID, cfg)
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if outcome.Committed {
		t.Fatalf("outcome.Committed = true, want false on validation failure")
	}

	worktreePath := filepath.Join(wsRoot, worktreeName(state.MergeID))
	if _, err := os.Stat(worktreePath); err != nil {
		t.Errorf("worktree should remain after failed promote: %v", err)
	}
	loaded, err := Load(manifoldDir, state.MergeID)
	if err != nil || loaded == nil {
		t.Errorf("quarantine state should remain after failed promote: %v, %+v", err, loaded)
	}
}

func TestPromoteMissingWorktreeFails(t *testing.T) {
	wsRoot := t.TempDir()
	manifoldDir := t.TempDir()
	store := &fakeStore{}
	runner := &scriptedRunner{result: passResult()}

	_, err := Promote(store, runner, wsRoot, manifoldDir, "no-such-merge", validate.Config{})
	if err == nil {
		t.Fatalf("expected error for unknown merge id")
	}
}
