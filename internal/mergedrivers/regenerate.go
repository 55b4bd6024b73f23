package mergedrivers

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/agentmesh/manifold/internal/objstore"
	"github.com/agentmesh/manifold/internal/oid"
	"github.com/agentmesh/manifold/internal/resolve"
)

// Runner executes one regenerate driver's shell command against a
// checkout directory. A non-nil error is treated as a validation failure
// (spec.md §4.7), not a phase-level error.
type Runner interface {
	Run(dir, command string) error
}

// ShellRunner runs command through "sh -c" with a bounded timeout,
// mirroring the teacher's toolchain invocation pattern
// (internal/rpi/toolchain.go: exec.CommandContext, cmd.Dir set, stderr
// captured for error context).
type ShellRunner struct {
	Timeout time.Duration
}

// Run implements Runner.
func (r ShellRunner) Run(dir, command string) error {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("mergedrivers: regenerate command timed out after %s: %s", timeout, command)
		}
		return fmt.Errorf("mergedrivers: regenerate command failed: %s: %w: %s", command, err, output)
	}
	return nil
}

// Result is one driver's regenerate outcome.
type Result struct {
	DriverIndex int
	Paths       []string
	Changes     []resolve.Change // read-back content, one Upsert per path
	Err         error            // non-nil: treat as a validation failure for Paths
}

// Run executes every driver with paths deferred to it, once per driver
// (not once per path), against a fresh temporary checkout of provisional
// each time. The checkout is released on every exit path (spec.md §4.7:
// "its worktree must be cleaned up on every exit path").
func Run(store objstore.Store, runner Runner, provisional oid.CommitID, drivers []Driver, paths map[int][]string) ([]Result, error) {
	indices := make([]int, 0, len(paths))
	for idx := range paths {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	results := make([]Result, 0, len(indices))
	for _, idx := range indices {
		ps := append([]string(nil), paths[idx]...)
		sort.Strings(ps)

		result, err := runOne(store, runner, provisional, drivers[idx].Command, idx, ps)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func runOne(store objstore.Store, runner Runner, provisional oid.CommitID, command string, idx int, paths []string) (result Result, phaseErr error) {
	checkout, err := store.TempCheckout(provisional)
	if err != nil {
		return Result{}, fmt.Errorf("mergedrivers: regenerate checkout: %w", err)
	}
	defer func() {
		if relErr := checkout.Release(); relErr != nil && result.Err == nil {
			result.Err = fmt.Errorf("mergedrivers: release regenerate checkout: %w", relErr)
		}
	}()

	result = Result{DriverIndex: idx, Paths: paths}

	if runErr := runner.Run(checkout.Path, command); runErr != nil {
		result.Err = runErr
		return result, nil
	}

	changes := make([]resolve.Change, 0, len(paths))
	for _, p := range paths {
		content, readErr := os.ReadFile(filepath.Join(checkout.Path, p))
		if readErr != nil {
			result.Err = fmt.Errorf("mergedrivers: read back %s after regenerate: %w", p, readErr)
			return result, nil
		}
		changes = append(changes, resolve.Change{Path: p, Op: resolve.OpUpsert, Content: content})
	}
	result.Changes = changes
	return result, nil
}
