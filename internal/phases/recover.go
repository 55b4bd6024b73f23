package phases

import (
	"fmt"

	"github.com/agentmesh/manifold/internal/mergestate"
	"github.com/agentmesh/manifold/internal/objstore"
)

// RecoveryOutcome is recover_from_merge_state's result (spec.md §4.8,
// §4.15). State is nil iff no state file was found.
type RecoveryOutcome struct {
	Action mergestate.RecoveryAction
	State  *mergestate.State
}

// Recover implements recover_from_merge_state (spec.md §4.8): load the
// state file, if any, and dispatch on its persisted phase.
func Recover(statePath string) (RecoveryOutcome, error) {
	state, err := mergestate.Load(statePath)
	if err != nil {
		return RecoveryOutcome{}, err
	}
	if state == nil {
		return RecoveryOutcome{Action: mergestate.RecoveryNoFile}, nil
	}
	return RecoveryOutcome{Action: mergestate.Decide(state.Phase), State: state}, nil
}

// InspectCommitRefs resolves the RecoveryInspectCommitRefs action (spec.md
// §4.8): a Commit-phase state file needs a live check of whether the
// epoch ref CAS already landed before the crash. aligned=true means the
// commit succeeded and recovery should proceed straight to Cleanup;
// aligned=false means it did not, and the state should be aborted.
func InspectCommitRefs(store objstore.Store, state *mergestate.State) (aligned bool, err error) {
	live, exists, err := store.ReadRef(epochRef)
	if err != nil {
		return false, fmt.Errorf("phases: read %s: %w", epochRef, err)
	}
	return exists && live == state.EpochCandidate, nil
}
