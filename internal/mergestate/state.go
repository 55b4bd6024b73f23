// Package mergestate implements the merge-state document (spec.md §4.8):
// its serialization, the legal phase-transition table, and the recovery
// dispatch table keyed on the persisted phase.
package mergestate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/agentmesh/manifold/internal/atomicfile"
	"github.com/agentmesh/manifold/internal/oid"
	"github.com/agentmesh/manifold/internal/workspace"
)

// Phase is one state in the crash-recoverable pipeline (spec.md §4.8).
type Phase string

const (
	Prepare  Phase = "prepare"
	Build    Phase = "build"
	Validate Phase = "validate"
	Commit   Phase = "commit"
	Cleanup  Phase = "cleanup"
	Complete Phase = "complete"
	Aborted  Phase = "aborted"
)

// legalTransitions is the table spec.md §4.8 names. Every non-terminal
// phase may also move to Aborted; that edge is checked separately in
// CanAdvance so it doesn't have to be repeated in every row.
var legalTransitions = map[Phase]Phase{
	Prepare:  Build,
	Build:    Validate,
	Validate: Commit,
	Commit:   Cleanup,
	Cleanup:  Complete,
}

// terminal reports whether phase accepts no further transitions.
func terminal(phase Phase) bool {
	return phase == Complete || phase == Aborted
}

// CanAdvance reports whether moving from -> to is a legal transition
// (spec.md §4.8's table, plus "Aborted reachable from any non-terminal
// state").
func CanAdvance(from, to Phase) bool {
	if terminal(from) {
		return false
	}
	if to == Aborted {
		return true
	}
	return legalTransitions[from] == to
}

// ErrIllegalTransition is returned by State.Advance for a transition not
// in the table.
var ErrIllegalTransition = errors.New("mergestate: illegal phase transition")

// CommandResult is one validation command's outcome (spec.md §3).
type CommandResult struct {
	Command    string `json:"command"`
	Passed     bool   `json:"passed"`
	ExitCode   *int   `json:"exit_code"` // nil encodes "killed by timeout/signal"
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	DurationMs int64  `json:"duration_ms"`
}

// ValidationResult is the aggregated outcome of a validation run
// (spec.md §3).
type ValidationResult struct {
	Passed         bool            `json:"passed"`
	ExitCode       *int            `json:"exit_code"`
	Stdout         string          `json:"stdout"`
	Stderr         string          `json:"stderr"`
	DurationMs     int64           `json:"duration_ms"`
	CommandResults []CommandResult `json:"command_results"`
}

// State is the MergeState document (spec.md §3).
type State struct {
	Phase            Phase                         `json:"phase"`
	Sources          []workspace.ID                `json:"sources"`
	EpochBefore      oid.CommitID                   `json:"epoch_before"`
	FrozenHeads      map[workspace.ID]oid.CommitID  `json:"frozen_heads"`
	EpochCandidate   oid.CommitID                   `json:"epoch_candidate,omitempty"`
	ValidationResult *ValidationResult              `json:"validation_result,omitempty"`
	EpochAfter       oid.CommitID                   `json:"epoch_after,omitempty"`
	StartedAt        int64                          `json:"started_at"`
	UpdatedAt        int64                          `json:"updated_at"`
	AbortReason      string                         `json:"abort_reason,omitempty"`
}

// Advance moves the in-memory state to `to` if legal, updating
// UpdatedAt, and returns ErrIllegalTransition otherwise. It does not
// persist; call Save to do that.
func (s *State) Advance(to Phase, now int64) error {
	if !CanAdvance(s.Phase, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.Phase, to)
	}
	s.Phase = to
	s.UpdatedAt = now
	return nil
}

// Save serializes s and writes it atomically to path (spec.md §4.8:
// serialize, write a sibling temp file, fsync, rename over the target).
func (s *State) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("mergestate: marshal: %w", err)
	}
	return atomicfile.Write(path, data)
}

// Load reads and deserializes the state file at path. It returns
// (nil, nil) if no file exists there, matching "file absent: nothing to
// do" in the recovery table. Unknown fields are tolerated; missing
// optional fields deserialize to their zero value, matching
// Option<T> == None.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("mergestate: read %s: %w", path, err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("mergestate: malformed state file %s: %w", path, err)
	}
	return &s, nil
}

// Delete removes the state file, tolerating "already absent".
func Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("mergestate: remove %s: %w", path, err)
	}
	return nil
}
