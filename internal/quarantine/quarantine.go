// Package quarantine implements quarantine create/promote/abandon/list
// (spec.md §4.14): a reserved worktree plus a state.json file that is the
// sole source of truth for "is this quarantine live".
package quarantine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/agentmesh/manifold/internal/atomicfile"
	"github.com/agentmesh/manifold/internal/mergestate"
	"github.com/agentmesh/manifold/internal/objstore"
	"github.com/agentmesh/manifold/internal/oid"
	"github.com/agentmesh/manifold/internal/validate"
	"github.com/agentmesh/manifold/internal/workspace"
)

// State is QuarantineState (spec.md §3). Handle is an internal bookkeeping
// id, distinct from the content-derived MergeID: it lets operator tooling
// and logs refer to a specific quarantine attempt even across a Create
// that reuses a stale worktree at the same MergeID.
type State struct {
	MergeID          string                        `json:"merge_id"`
	Handle           string                        `json:"handle"`
	EpochBefore      oid.CommitID                  `json:"epoch_before"`
	Candidate        oid.CommitID                  `json:"candidate"`
	Sources          []workspace.ID                `json:"sources"`
	Branch           string                        `json:"branch"`
	ValidationResult *mergestate.ValidationResult  `json:"validation_result,omitempty"`
	CreatedAt        int64                         `json:"created_at"`
}

// Sentinel errors.
var (
	ErrWorktreeNotFound = errors.New("quarantine: worktree not found")
)

// PromoteOutcome is the result of a Promote call (spec.md §4.14).
type PromoteOutcome struct {
	// Committed is true iff promotion succeeded; NewEpoch is then the
	// commit now pointed at by epoch/current and the branch ref.
	Committed bool
	NewEpoch  oid.CommitID
	// ValidationResult is set whether promotion succeeded or failed, so
	// a failed re-validation can still be reported to the caller.
	ValidationResult validate.Result
}

// worktreeName is the reserved path name a quarantine's worktree is
// checked out at (spec.md §4.14 step 1).
func worktreeName(mergeID string) string {
	return "merge-quarantine-" + mergeID
}

// quarantineDir returns `.manifold/quarantine/<merge_id>`.
func quarantineDir(manifoldDir, mergeID string) string {
	return filepath.Join(manifoldDir, "quarantine", mergeID)
}

// Create materializes a detached worktree at candidate and writes the
// QuarantineState + failing ValidationResult atomically (spec.md §4.14).
// Idempotent: an existing worktree at the reserved path is reused.
func Create(store objstore.Store, wsRoot, manifoldDir string, candidate, epochBefore oid.CommitID, sources []workspace.ID, branch string, vr *mergestate.ValidationResult, createdAt int64) (*State, error) {
	mergeID := oid.ShortMergeID(candidate)
	worktreePath := filepath.Join(wsRoot, worktreeName(mergeID))

	if _, err := os.Stat(worktreePath); os.IsNotExist(err) {
		checkout, err := store.TempCheckout(candidate)
		if err != nil {
			return nil, fmt.Errorf("quarantine: checkout %s: %w", candidate, err)
		}
		if err := os.Rename(checkout.Path, worktreePath); err != nil {
			_ = checkout.Release()
			return nil, fmt.Errorf("quarantine: move checkout to %s: %w", worktreePath, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("quarantine: stat %s: %w", worktreePath, err)
	}

	state := &State{
		MergeID:          mergeID,
		Handle:           uuid.NewString(),
		EpochBefore:      epochBefore,
		Candidate:        candidate,
		Sources:          sources,
		Branch:           branch,
		ValidationResult: vr,
		CreatedAt:        createdAt,
	}
	if err := save(manifoldDir, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Promote re-validates a quarantine's worktree, fixing it forward with a
// commit if it has local changes, and on success CAS-promotes it to the
// live epoch and branch (spec.md §4.14 Promote).
func Promote(store objstore.Store, runner validate.Runner, wsRoot, manifoldDir, mergeID string, cfg validate.Config) (PromoteOutcome, error) {
	state, err := Load(manifoldDir, mergeID)
	if err != nil {
		return PromoteOutcome{}, err
	}
	if state == nil {
		return PromoteOutcome{}, fmt.Errorf("quarantine: %s: %w", mergeID, ErrWorktreeNotFound)
	}

	worktreePath := filepath.Join(wsRoot, worktreeName(mergeID))
	if _, err := os.Stat(worktreePath); err != nil {
		if os.IsNotExist(err) {
			return PromoteOutcome{}, fmt.Errorf("quarantine: %s: %w", mergeID, ErrWorktreeNotFound)
		}
		return PromoteOutcome{}, fmt.Errorf("quarantine: stat %s: %w", worktreePath, err)
	}

	candidate := state.Candidate
	fixedUp, committed, err := store.CommitWorktreeAll(worktreePath, "quarantine: fix-forward")
	if err != nil {
		return PromoteOutcome{}, fmt.Errorf("quarantine: fix-forward commit: %w", err)
	}
	if committed {
		candidate = fixedUp
	}

	result, err := validate.Run(store, runner, candidate, cfg)
	if err != nil {
		return PromoteOutcome{}, fmt.Errorf("quarantine: re-validate: %w", err)
	}
	if result.Result == nil || !result.Result.Passed {
		return PromoteOutcome{ValidationResult: result}, nil
	}

	if err := store.CasRef("epoch/current", state.EpochBefore, candidate); err != nil {
		return PromoteOutcome{}, fmt.Errorf("quarantine: promote epoch/current: %w", err)
	}
	if err := store.CasRef("branch/"+state.Branch, state.EpochBefore, candidate); err != nil {
		return PromoteOutcome{}, fmt.Errorf("quarantine: promote branch/%s: %w", state.Branch, err)
	}

	if err := os.RemoveAll(worktreePath); err != nil {
		return PromoteOutcome{}, fmt.Errorf("quarantine: abandon worktree after promote: %w", err)
	}
	if err := os.RemoveAll(quarantineDir(manifoldDir, mergeID)); err != nil {
		return PromoteOutcome{}, fmt.Errorf("quarantine: abandon state after promote: %w", err)
	}

	return PromoteOutcome{Committed: true, NewEpoch: candidate, ValidationResult: result}, nil
}

func statePath(manifoldDir, mergeID string) string {
	return filepath.Join(quarantineDir(manifoldDir, mergeID), "state.json")
}

func save(manifoldDir string, state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("quarantine: marshal state: %w", err)
	}
	return atomicfile.Write(statePath(manifoldDir, state.MergeID), data)
}

// Load reads a quarantine's state.json. It returns (nil, nil) if the
// directory has no state file — "a worktree without a state file is not
// considered a live quarantine" (spec.md §4.14 step 2).
func Load(manifoldDir, mergeID string) (*State, error) {
	data, err := os.ReadFile(statePath(manifoldDir, mergeID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("quarantine: read state for %s: %w", mergeID, err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("quarantine: malformed state for %s: %w", mergeID, err)
	}
	return &state, nil
}

// List implements list_quarantines (SPEC_FULL.md): walk
// .manifold/quarantine/*/state.json, parsing each and skipping (not
// erroring on) any directory missing a state file.
func List(manifoldDir string) ([]*State, error) {
	root := filepath.Join(manifoldDir, "quarantine")
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("quarantine: list %s: %w", root, err)
	}

	var states []*State
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		state, err := Load(manifoldDir, entry.Name())
		if err != nil {
			return nil, err
		}
		if state == nil {
			continue // no state.json: not a live quarantine
		}
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].MergeID < states[j].MergeID })
	return states, nil
}

// Abandon removes the worktree directory and the state directory with
// os.RemoveAll; it runs no git command, and a missing directory is not an
// error. Idempotent: repeated calls on an already-abandoned
// merge_id succeed (spec.md §4.14, invariant 13).
func Abandon(wsRoot, manifoldDir, mergeID string) error {
	worktreePath := filepath.Join(wsRoot, worktreeName(mergeID))
	if err := os.RemoveAll(worktreePath); err != nil {
		return fmt.Errorf("quarantine: remove worktree %s: %w", worktreePath, err)
	}
	if err := os.RemoveAll(quarantineDir(manifoldDir, mergeID)); err != nil {
		return fmt.Errorf("quarantine: remove state dir for %s: %w", mergeID, err)
	}
	return nil
}
