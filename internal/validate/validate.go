// Package validate implements the Validate phase (spec.md §4.11): a
// timed shell-command pipeline run against a temporary checkout of the
// candidate commit.
package validate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/agentmesh/manifold/internal/mergestate"
	"github.com/agentmesh/manifold/internal/objstore"
	"github.com/agentmesh/manifold/internal/oid"
)

// OnFailure is the policy applied when validation fails (spec.md §4.11).
type OnFailure string

const (
	Warn            OnFailure = "warn"
	Block           OnFailure = "block"
	Quarantine      OnFailure = "quarantine"
	BlockQuarantine OnFailure = "block_quarantine"
)

// Config is ValidationConfig (spec.md §3/§6).
type Config struct {
	Commands       []string
	TimeoutSeconds uint32
	OnFailure      OnFailure
}

// Outcome classifies Validate's decision once commands have run (spec.md
// §4.11 step 4). Skipped is returned directly when Config.Commands is
// empty, bypassing the rest of the machinery.
type Outcome string

const (
	Skipped              Outcome = "skipped"
	Passed               Outcome = "passed"
	PassedWithWarnings    Outcome = "passed_with_warnings"
	Blocked              Outcome = "blocked"
	OutcomeQuarantine    Outcome = "quarantine"
	BlockedAndQuarantine Outcome = "blocked_and_quarantine"
)

// Result pairs the decided Outcome with the raw ValidationResult, when
// commands actually ran.
type Result struct {
	Outcome Outcome
	Result  *mergestate.ValidationResult // nil iff Outcome == Skipped
}

// Runner runs one shell command with a bounded timeout against dir and
// reports its outcome. Implementations must kill the process on timeout
// (so a kill, not only a deadline, yields ExitCode == nil).
type Runner interface {
	Run(ctx context.Context, dir, command string, timeout time.Duration) mergestate.CommandResult
}

// ShellRunner runs commands via "sh -c", waiting for completion under
// exec.CommandContext the way internal/rpi/toolchain.go bounds its
// subprocess calls, generalized so a kill from ctx cancellation also
// yields exit_code = nil, not just a deadline.
type ShellRunner struct{}

// Run implements Runner.
func (ShellRunner) Run(ctx context.Context, dir, command string, timeout time.Duration) mergestate.CommandResult {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start).Milliseconds()

	result := mergestate.CommandResult{
		Command:    command,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMs: duration,
	}

	if err == nil {
		code := 0
		result.ExitCode = &code
		result.Passed = true
		return result
	}

	if runCtx.Err() == context.DeadlineExceeded {
		result.ExitCode = nil // killed by timeout
		result.Passed = false
		return result
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			result.ExitCode = nil // killed by signal
		} else {
			result.ExitCode = &code
		}
		result.Passed = false
		return result
	}

	result.ExitCode = nil
	result.Passed = false
	result.Stderr += fmt.Sprintf("\nmanifold: failed to start command: %v", err)
	return result
}

// Run executes Config.Commands in order against a temporary checkout of
// candidate, stopping on the first failing command (spec.md §4.11).
func Run(store objstore.Store, runner Runner, candidate oid.CommitID, cfg Config) (Result, error) {
	if len(cfg.Commands) == 0 {
		return Result{Outcome: Skipped}, nil
	}

	checkout, err := store.TempCheckout(candidate)
	if err != nil {
		return Result{}, fmt.Errorf("validate: checkout %s: %w", candidate, err)
	}
	defer checkout.Release()

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	var commandResults []mergestate.CommandResult
	allPassed := true
	var totalDuration int64

	for _, command := range cfg.Commands {
		cr := runner.Run(context.Background(), checkout.Path, command, timeout)
		commandResults = append(commandResults, cr)
		totalDuration += cr.DurationMs
		if !cr.Passed {
			allPassed = false
			break
		}
	}

	last := commandResults[len(commandResults)-1]
	vr := &mergestate.ValidationResult{
		Passed:         allPassed,
		ExitCode:       last.ExitCode,
		Stdout:         last.Stdout,
		Stderr:         last.Stderr,
		DurationMs:     totalDuration,
		CommandResults: commandResults,
	}

	if allPassed {
		return Result{Outcome: Passed, Result: vr}, nil
	}

	switch cfg.OnFailure {
	case Warn:
		return Result{Outcome: PassedWithWarnings, Result: vr}, nil
	case Quarantine:
		return Result{Outcome: OutcomeQuarantine, Result: vr}, nil
	case BlockQuarantine:
		return Result{Outcome: BlockedAndQuarantine, Result: vr}, nil
	default: // Block, or unset
		return Result{Outcome: Blocked, Result: vr}, nil
	}
}
