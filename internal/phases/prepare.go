package phases

import (
	"fmt"

	"github.com/agentmesh/manifold/internal/mergestate"
	"github.com/agentmesh/manifold/internal/objstore"
	"github.com/agentmesh/manifold/internal/oid"
	"github.com/agentmesh/manifold/internal/workspace"
)

// epochRef and branchRef name the refs the phases operate on (spec.md
// §4 "epoch/current", "branch/<name>").
const epochRef = "epoch/current"

func branchRef(branch string) string { return "branch/" + branch }

// Prepare implements run_prepare_phase (spec.md §4.9): it freezes the
// merge's inputs (the epoch and every source workspace's HEAD) and writes
// the initial MergeState.
func Prepare(store objstore.Store, backend workspace.Backend, statePath string, sources []workspace.ID, now int64) (*mergestate.State, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	existing, err := mergestate.Load(statePath)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		ok, err := prepareException(store, existing)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: found phase %s", ErrMergeAlreadyInProgress, existing.Phase)
		}
	}

	epochBefore, _, err := store.ReadRef(epochRef)
	if err != nil {
		return nil, fmt.Errorf("phases: read %s: %w", epochRef, err)
	}

	frozenHeads := make(map[workspace.ID]oid.CommitID, len(sources))
	for _, ws := range sources {
		head, err := backend.Head(ws)
		if err != nil {
			return nil, fmt.Errorf("phases: freeze head for %s: %w", ws, err)
		}
		frozenHeads[ws] = head
	}

	state := &mergestate.State{
		Phase:       mergestate.Prepare,
		Sources:     sources,
		EpochBefore: epochBefore,
		FrozenHeads: frozenHeads,
		StartedAt:   now,
		UpdatedAt:   now,
	}
	if err := state.Save(statePath); err != nil {
		return nil, err
	}
	return state, nil
}

// prepareException implements the one carve-out in spec.md §4.9 step 1: a
// non-terminal state file found in Commit or Cleanup whose epoch_candidate
// already equals the live epoch means the previous run committed but
// crashed before cleanup, and may be safely overwritten.
func prepareException(store objstore.Store, existing *mergestate.State) (bool, error) {
	if existing.Phase != mergestate.Commit && existing.Phase != mergestate.Cleanup {
		return isTerminal(existing.Phase), nil
	}
	live, exists, err := store.ReadRef(epochRef)
	if err != nil {
		return false, fmt.Errorf("phases: read %s: %w", epochRef, err)
	}
	return exists && live == existing.EpochCandidate, nil
}

func isTerminal(phase mergestate.Phase) bool {
	return phase == mergestate.Complete || phase == mergestate.Aborted
}
