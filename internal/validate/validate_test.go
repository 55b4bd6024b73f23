package validate

import (
	"context"
	"testing"
	"time"

	"github.com/agentmesh/manifold/internal/mergestate"
	"github.com/agentmesh/manifold/internal/objstore"
	"github.com/agentmesh/manifold/internal/oid"
)

type fakeCheckoutStore struct{ released bool }

func (s *fakeCheckoutStore) ReadBlob(oid.BlobID) ([]byte, error) { panic("unused") }
func (s *fakeCheckoutStore) WriteBlob([]byte) (oid.BlobID, error) { panic("unused") }
func (s *fakeCheckoutStore) ReadTreeRecursive(oid.CommitID) (map[string]objstore.TreeEntry, error) {
	panic("unused")
}
func (s *fakeCheckoutStore) WriteTree([]objstore.NamedEntry) (oid.TreeID, error) { panic("unused") }
func (s *fakeCheckoutStore) WriteCommit(oid.TreeID, []oid.CommitID, string) (oid.CommitID, error) {
	panic("unused")
}
func (s *fakeCheckoutStore) ReadRef(string) (oid.CommitID, bool, error) { panic("unused") }
func (s *fakeCheckoutStore) CasRef(string, oid.CommitID, oid.CommitID) error { panic("unused") }
func (s *fakeCheckoutStore) ForEachRef(string) ([]objstore.RefEntry, error) { panic("unused") }
func (s *fakeCheckoutStore) TempCheckout(oid.CommitID) (*objstore.Checkout, error) {
	return &objstore.Checkout{Path: "/tmp/fake-checkout", Release: func() error {
		s.released = true
		return nil
	}}, nil
}
func (s *fakeCheckoutStore) CommitWorktreeAll(dir, message string) (oid.CommitID, bool, error) {
	panic("unused")
}

type scriptedRunner struct {
	results []mergestate.CommandResult
	calls   int
}

func (r *scriptedRunner) Run(ctx context.Context, dir, command string, timeout time.Duration) mergestate.CommandResult {
	res := r.results[r.calls]
	r.calls++
	return res
}

func passResult(cmd string) mergestate.CommandResult {
	code := 0
	return mergestate.CommandResult{Command: cmd, Passed: true, ExitCode: &code, DurationMs: 10}
}

func failResult(cmd string) mergestate.CommandResult {
	code := 1
	return mergestate.CommandResult{Command: cmd, Passed: false, ExitCode: &code, Stderr: "boom", DurationMs: 5}
}

func TestRunSkippedWhenNoCommands(t *testing.T) {
	store := &fakeCheckoutStore{}
	result, err := Run(store, &scriptedRunner{}, "candidate", Config{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome != Skipped || result.Result != nil {
		t.Fatalf("result = %+v", result)
	}
}

func TestRunAllCommandsPass(t *testing.T) {
	store := &fakeCheckoutStore{}
	runner := &scriptedRunner{results: []mergestate.CommandResult{passResult("go build ./..."), passResult("go test ./...")}}
	cfg := Config{Commands: []string{"go build ./...", "go test ./..."}, TimeoutSeconds: 30}

	result, err := Run(store, runner, "candidate", cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome != Passed || !result.Result.Passed {
		t.Fatalf("result = %+v", result)
	}
	if result.Result.DurationMs != 20 {
		t.Errorf("DurationMs = %d, want 20", result.Result.DurationMs)
	}
	if !store.released {
		t.Errorf("checkout was not released")
	}
}

func TestRunStopsOnFirstFailure(t *testing.T) {
	store := &fakeCheckoutStore{}
	runner := &scriptedRunner{results: []mergestate.CommandResult{failResult("go build ./...")}}
	cfg := Config{Commands: []string{"go build ./...", "go test ./..."}, TimeoutSeconds: 30, OnFailure: Block}

	result, err := Run(store, runner, "candidate", cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome != Blocked {
		t.Fatalf("Outcome = %v, want Blocked", result.Outcome)
	}
	if runner.calls != 1 {
		t.Errorf("runner was called %d times, want 1 (should stop after first failure)", runner.calls)
	}
	if len(result.Result.CommandResults) != 1 {
		t.Errorf("CommandResults = %+v", result.Result.CommandResults)
	}
}

func TestRunOnFailurePolicies(t *testing.T) {
	cases := []struct {
		policy OnFailure
		want   Outcome
	}{
		{Warn, PassedWithWarnings},
		{Block, Blocked},
		{Quarantine, OutcomeQuarantine},
		{BlockQuarantine, BlockedAndQuarantine},
	}
	for _, c := range cases {
		store := &fakeCheckoutStore{}
		runner := &scriptedRunner{results: []mergestate.CommandResult{failResult("cmd")}}
		cfg := Config{Commands: []string{"cmd"}, TimeoutSeconds: 10, OnFailure: c.policy}

		result, err := Run(store, runner, "candidate", cfg)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if result.Outcome != c.want {
			t.Errorf("policy %v: Outcome = %v, want %v", c.policy, result.Outcome, c.want)
		}
	}
}
