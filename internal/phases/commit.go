package phases

import (
	"errors"
	"fmt"

	"github.com/agentmesh/manifold/internal/mergestate"
	"github.com/agentmesh/manifold/internal/objstore"
)

// Commit implements run_commit_phase (spec.md §4.12): the point of no
// return. Once the epoch/current CAS succeeds, a failure on the branch
// ref CAS is a hard error requiring operator intervention — Commit never
// rolls the epoch ref back.
func Commit(store objstore.Store, statePath string, state *mergestate.State, branch string, now int64) error {
	if state.Phase != mergestate.Validate {
		return fmt.Errorf("phases: commit precondition failed: phase is %s, want %s", state.Phase, mergestate.Validate)
	}

	if err := store.CasRef(epochRef, state.EpochBefore, state.EpochCandidate); err != nil {
		if errors.Is(err, objstore.ErrConflict) {
			return fmt.Errorf("phases: commit aborted, %s moved concurrently: %w", epochRef, err)
		}
		return fmt.Errorf("phases: cas %s: %w", epochRef, err)
	}

	if err := state.Advance(mergestate.Commit, now); err != nil {
		return err
	}
	if err := state.Save(statePath); err != nil {
		return err
	}

	if err := store.CasRef(branchRef(branch), state.EpochBefore, state.EpochCandidate); err != nil {
		return fmt.Errorf("phases: cas %s failed after epoch/current was already advanced to %s; operator must reconcile refs manually: %w", branchRef(branch), state.EpochCandidate, err)
	}

	state.EpochAfter = state.EpochCandidate
	if err := state.Advance(mergestate.Cleanup, now); err != nil {
		return err
	}
	return state.Save(statePath)
}
